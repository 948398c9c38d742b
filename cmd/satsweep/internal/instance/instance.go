// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package instance inspects a DIMACS CNF instance before a sweep.
//
// The sweep itself never looks inside the instance; it streams the file to
// the solver unchanged. Describe exists so an operator can catch the wrong
// file (a truncated download, an instance with different dimensions) before
// spending hours on runs whose clause_cnt column will not match.
//
// Parsing uses gophersat. Because gophersat simplifies while parsing (unit
// clauses are moved out, trivially unsatisfiable problems stop early), the
// declared counts from the "p cnf" line are reported separately. The
// optional reference solve uses gini, an independent CDCL solver, so the
// answer does not depend on gophersat's simplifications.
package instance

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/crillab/gophersat/solver"
	"github.com/go-air/gini"
)

var (
	// ErrNoProblemLine means the file has no "p cnf <vars> <clauses>" line.
	ErrNoProblemLine = errors.New("no p cnf line")

	// ErrMalformed means gophersat could not parse the clauses.
	ErrMalformed = errors.New("malformed CNF")
)

// Description summarises a CNF instance.
type Description struct {
	// Path is the file that was read.
	Path string

	// Size is the file size in bytes.
	Size int64

	// DeclaredVars and DeclaredClauses come from the "p cnf" line.
	DeclaredVars    int
	DeclaredClauses int

	// Vars is the variable count gophersat parsed.
	Vars int

	// Clauses counts the non-unit clauses kept after parsing.
	Clauses int

	// Units counts unit literals extracted while parsing.
	Units int

	// TriviallyUnsat is true when parsing alone proved unsatisfiability.
	TriviallyUnsat bool

	// Solved is true when Options.Solve was set; Satisfiable is only
	// meaningful then.
	Solved      bool
	Satisfiable bool
}

// Options controls Describe.
type Options struct {
	// Solve runs gini's CDCL solver on the instance to get a reference
	// SAT/UNSAT answer. Fine for the small instances sweeps are run on; may
	// take arbitrarily long on hard ones.
	Solve bool
}

// Describe reads and parses the instance at path.
//
// # Description
//
// Reads the whole file, scans for the problem line, then hands the problem
// line and clauses to solver.ParseCNF. Comment lines, blank lines and a
// SATLIB "%" trailer are dropped first; gini accepts none of them. With opts.Solve the same bytes are loaded into gini
// and solved.
//
// # Outputs
//
//   - *Description: Counts and status
//   - error: Wrapped os error, ErrNoProblemLine, or ErrMalformed
//
// # Examples
//
//	desc, err := instance.Describe("uf100-430.cnf", instance.Options{})
//	// desc.DeclaredVars == 100, desc.DeclaredClauses == 430
func Describe(path string, opts Options) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instance: %w", err)
	}

	vars, clauses, err := scanProblemLine(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	body, err := clauseText(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	pb, err := solver.ParseCNF(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrMalformed, err)
	}

	desc := &Description{
		Path:            path,
		Size:            int64(len(data)),
		DeclaredVars:    vars,
		DeclaredClauses: clauses,
		Vars:            pb.NbVars,
		Clauses:         len(pb.Clauses),
		Units:           len(pb.Units),
		TriviallyUnsat:  pb.Status == solver.Unsat,
	}

	if opts.Solve {
		desc.Solved = true
		if !desc.TriviallyUnsat {
			g, err := gini.NewDimacs(bytes.NewReader(body))
			if err != nil {
				return nil, fmt.Errorf("%s: %w: %v", path, ErrMalformed, err)
			}
			desc.Satisfiable = g.Solve() == 1
		}
	}

	return desc, nil
}

// Mismatch reports whether parsed counts disagree with the declared ones.
// Units are counted as clauses; duplicate units collapsed by the parser can
// still make this report a mismatch on an otherwise sound file.
func (d *Description) Mismatch() bool {
	if d.TriviallyUnsat {
		return false
	}
	return d.Vars != d.DeclaredVars || d.Clauses+d.Units != d.DeclaredClauses
}

// clauseText returns the problem line and clause lines of a DIMACS file,
// one per line and trimmed. Comments and blank lines are dropped and
// everything from the first line starting with "%" on is cut, as SATLIB
// benchmark files end with "%" and a lone "0".
func clauseText(data []byte) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(len(data))

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "", line[0] == 'c':
			continue
		case line[0] == '%':
			return out.Bytes(), nil
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read instance: %w", err)
	}
	return out.Bytes(), nil
}

// scanProblemLine returns the counts from the first "p cnf" line.
func scanProblemLine(data []byte) (vars, clauses int, err error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "p") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 || fields[1] != "cnf" {
			return 0, 0, fmt.Errorf("%w: malformed p-line %q", ErrNoProblemLine, line)
		}
		if vars, err = strconv.Atoi(fields[2]); err != nil {
			return 0, 0, fmt.Errorf("%w: bad variable count %q", ErrNoProblemLine, fields[2])
		}
		if clauses, err = strconv.Atoi(fields[3]); err != nil {
			return 0, 0, fmt.Errorf("%w: bad clause count %q", ErrNoProblemLine, fields[3])
		}
		return vars, clauses, nil
	}
	if err := sc.Err(); err != nil {
		return 0, 0, err
	}
	return 0, 0, ErrNoProblemLine
}
