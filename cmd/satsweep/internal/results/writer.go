// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package results

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/AleutianAI/satsweep/cmd/satsweep/internal/grid"
)

// Header is the first line of every results file, without its line break.
//
// The last six columns name the fields the solver is expected to print; the
// writer does not check that it does.
const Header = "T;C;equ;noimp;steps;last_change;last_improve;sat_cnt;clause_cnt;init_sat_cnt"

// Sentinel errors returned by the writer.
var (
	// ErrResultsExist means Create found a non-empty file at the path.
	ErrResultsExist = errors.New("results file already exists and is not empty")

	// ErrHeaderMismatch means Resume found a file that does not start with Header.
	ErrHeaderMismatch = errors.New("results file does not start with the expected header")

	// ErrHeaderWritten means WriteHeader was called twice or after a row.
	ErrHeaderWritten = errors.New("header already written")

	// ErrNoHeader means AppendRow was called before WriteHeader.
	ErrNoHeader = errors.New("header not written")

	// ErrClosed means the writer was used after Close.
	ErrClosed = errors.New("results writer closed")
)

// =============================================================================
// Writer
// =============================================================================

// Writer appends rows to a results file.
//
// # Thread Safety
//
// All methods are safe for concurrent use, although a sweep only ever calls
// them from one goroutine.
type Writer struct {
	path   string
	file   *os.File
	buf    *bufio.Writer
	header bool
	rows   int
	closed bool
	mu     sync.Mutex
}

// Create opens path for a new sweep.
//
// # Description
//
// Creates the file if it does not exist. An existing empty file is accepted.
// An existing non-empty file is refused with ErrResultsExist, so a previous
// sweep's rows are never followed by a second header. Use Resume to continue
// such a file.
//
// # Inputs
//
//   - path: Results file location. Parent directories must exist.
//
// # Outputs
//
//   - *Writer: Writer with no header written yet
//   - error: Wrapped os error, or ErrResultsExist
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open results file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat results file: %w", err)
	}
	if info.Size() > 0 {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrResultsExist)
	}

	return newWriter(path, f, false), nil
}

// Resume opens an existing results file to continue a sweep.
//
// # Description
//
// Checks that the file starts with Header and counts its data rows. The
// returned writer treats the header as already written. If the last row is
// missing its line break, one is appended so the next row starts on its own
// line; that partial row still counts as done.
//
// # Outputs
//
//   - *Writer: Writer positioned at the end of the file
//   - int: Number of data rows already present
//   - error: Wrapped os error, or ErrHeaderMismatch
//
// # Assumptions
//
// Every previous run wrote exactly one line. Multi-line diagnostics make the
// row count, and therefore the resume point, wrong.
func Resume(path string) (*Writer, int, error) {
	rows, terminated, err := scanRows(path)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, 0, fmt.Errorf("open results file: %w", err)
	}

	w := newWriter(path, f, true)
	if !terminated {
		if err := w.write([]byte{'\n'}); err != nil {
			f.Close()
			return nil, 0, err
		}
	}
	return w, rows, nil
}

// CountRows returns the number of data rows in an existing results file.
//
// The header is not counted. A trailing line without a line break counts as
// a row.
func CountRows(path string) (int, error) {
	rows, _, err := scanRows(path)
	return rows, err
}

func newWriter(path string, f *os.File, header bool) *Writer {
	return &Writer{
		path:   path,
		file:   f,
		buf:    bufio.NewWriter(f),
		header: header,
	}
}

// WriteHeader writes Header and a line break.
//
// It must be called exactly once, before the first AppendRow.
func (w *Writer) WriteHeader() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.header || w.rows > 0 {
		return ErrHeaderWritten
	}
	if err := w.write([]byte(Header + "\n")); err != nil {
		return err
	}
	w.header = true
	return nil
}

// AppendRow writes one run's row and flushes it.
//
// # Description
//
// Writes Prefix(p) followed by diagnostic exactly as given. If diagnostic is
// empty or does not end in '\n', a single '\n' is added so the row is
// terminated. Nothing else is added, removed or reordered.
//
// # Inputs
//
//   - p: The tuple that produced the diagnostic
//   - diagnostic: The solver's stderr, possibly empty
//
// # Outputs
//
//   - error: Write or flush failure, ErrNoHeader, or ErrClosed
//
// # Examples
//
//	w.AppendRow(p, []byte("120;40;37;430;430;391\n"))
//	// 20;0.9;1;1000;120;40;37;430;430;391
func (w *Writer) AppendRow(p grid.Point, diagnostic []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if !w.header {
		return ErrNoHeader
	}

	row := make([]byte, 0, 32+len(diagnostic))
	row = append(row, Prefix(p)...)
	row = append(row, diagnostic...)
	if len(diagnostic) == 0 || diagnostic[len(diagnostic)-1] != '\n' {
		row = append(row, '\n')
	}

	if err := w.write(row); err != nil {
		return err
	}
	w.rows++
	return nil
}

// Rows returns how many rows this writer has appended. Rows present before
// Resume are not included.
func (w *Writer) Rows() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// Path returns the results file path.
func (w *Writer) Path() string {
	return w.path
}

// Close flushes, syncs and closes the file.
//
// Safe to call more than once; later calls return nil.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	if err := w.buf.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flush results file: %w", err))
	}
	if err := w.file.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("sync results file: %w", err))
	}
	if err := w.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close results file: %w", err))
	}
	return errors.Join(errs...)
}

// write buffers b and flushes it to the file.
func (w *Writer) write(b []byte) error {
	if _, err := w.buf.Write(b); err != nil {
		return fmt.Errorf("write results file: %w", err)
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flush results file: %w", err)
	}
	return nil
}

// =============================================================================
// Formatting
// =============================================================================

// Prefix returns "T;C;equ;noimp;" for p, including the trailing separator.
func Prefix(p grid.Point) string {
	params := p.Params()
	return strings.Join(params[:], ";") + ";"
}

// =============================================================================
// Reading
// =============================================================================

// scanRows validates the header of path and counts the lines after it.
// terminated reports whether the file ends with a line break.
func scanRows(path string) (rows int, terminated bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false, fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	first, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, false, fmt.Errorf("read results header: %w", err)
	}
	if strings.TrimSuffix(first, "\n") != Header {
		return 0, false, fmt.Errorf("%s: %w", path, ErrHeaderMismatch)
	}
	if !strings.HasSuffix(first, "\n") {
		return 0, false, nil
	}

	terminated = true
	chunk := make([]byte, 64*1024)
	for {
		n, readErr := r.Read(chunk)
		if n > 0 {
			rows += bytes.Count(chunk[:n], []byte{'\n'})
			terminated = chunk[n-1] == '\n'
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return 0, false, fmt.Errorf("read results file: %w", readErr)
		}
	}
	if !terminated {
		rows++
	}
	return rows, terminated, nil
}
