// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders satsweep's human-facing output.
//
// Every Printer has one of two modes. Styled uses lipgloss colors and icons
// and is chosen when the destination is a terminal. Plain prints stable
// key=value lines for pipes, CI logs and scripts. Diagnostics still go
// through pkg/logging; this package only prints results meant to be read.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // titles
	ColorTealDeep    = lipgloss.Color("#16858E") // borders
	ColorSlate       = lipgloss.Color("#2C4A54") // muted text

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles holds the lipgloss styles used by Printer.
var Styles = struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
)

// Render returns the icon in its status color.
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return string(i)
	}
}

// =============================================================================
// Printer
// =============================================================================

// Mode selects how a Printer formats output.
type Mode int

const (
	// ModePlain prints unstyled, line-oriented key=value text.
	ModePlain Mode = iota

	// ModeStyled prints colors, icons and boxes.
	ModeStyled
)

// Field is one labelled value in a summary.
type Field struct {
	Key   string // plain-mode key, e.g. "nonzero_exits"
	Label string // styled-mode label, e.g. "Non-zero exits"
	Value string
}

// Printer writes human-facing output to one destination.
type Printer struct {
	out  io.Writer
	mode Mode
}

// NewPrinter creates a Printer for out, styled if out is a terminal.
func NewPrinter(out io.Writer) *Printer {
	mode := ModePlain
	if IsTerminal(out) {
		mode = ModeStyled
	}
	return &Printer{out: out, mode: mode}
}

// NewPrinterWithMode creates a Printer with an explicit mode.
func NewPrinterWithMode(out io.Writer, mode Mode) *Printer {
	return &Printer{out: out, mode: mode}
}

// Mode returns the printer's mode.
func (p *Printer) Mode() Mode {
	return p.mode
}

// IsTerminal reports whether w is an *os.File attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Success prints an OK line.
func (p *Printer) Success(text string) {
	p.status(IconSuccess, "OK", Styles.Success, text)
}

// Warning prints a warning line.
func (p *Printer) Warning(text string) {
	p.status(IconWarning, "WARN", Styles.Warning, text)
}

// Error prints an error line.
func (p *Printer) Error(text string) {
	p.status(IconError, "ERROR", Styles.Error, text)
}

func (p *Printer) status(icon Icon, tag string, style lipgloss.Style, text string) {
	if p.mode == ModePlain {
		fmt.Fprintf(p.out, "%s: %s\n", tag, text)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", icon.Render(), style.Render(text))
}

// Summary prints a titled block of fields.
//
// Plain mode prints one "key=value" line per field, in order, so the output
// can be grepped or parsed. Styled mode prints an aligned box.
//
// # Example
//
//	p.Summary("Sweep complete", []ux.Field{{Key: "completed", Label: "Completed", Value: "1440"}})
//	// plain:  completed=1440
func (p *Printer) Summary(title string, fields []Field) {
	if p.mode == ModePlain {
		for _, f := range fields {
			fmt.Fprintf(p.out, "%s=%s\n", f.Key, f.Value)
		}
		return
	}

	width := 0
	for _, f := range fields {
		width = max(width, lipgloss.Width(f.Label))
	}

	var b strings.Builder
	b.WriteString(Styles.Title.Render(title))
	for _, f := range fields {
		b.WriteString("\n")
		b.WriteString(Styles.Muted.Render(f.Label + strings.Repeat(" ", width-lipgloss.Width(f.Label))))
		b.WriteString("  ")
		b.WriteString(Styles.Bold.Render(f.Value))
	}
	fmt.Fprintln(p.out, Styles.Box.Render(b.String()))
}

// =============================================================================
// Progress
// =============================================================================

// ProgressBar renders "██████░░░░  60%" for current of total.
func ProgressBar(current, total, width int) string {
	if total <= 0 {
		return fmt.Sprintf("%s %3.0f%%", Styles.Muted.Render(strings.Repeat("░", width)), 0.0)
	}
	pct := float64(current) / float64(total)
	filled := min(int(pct*float64(width)), width)

	bar := Styles.Success.Render(strings.Repeat("█", filled)) +
		Styles.Muted.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %3.0f%%", bar, pct*100)
}

// Progress redraws a single status line in place.
//
// It only draws in styled mode; in plain mode every method is a no-op so
// piped stderr is not filled with carriage returns. Other output sharing the
// terminal goes through Writer so that it never lands in the middle of the
// bar.
type Progress struct {
	printer *Printer
	width   int

	mu          sync.Mutex
	drawn       bool
	done, total int
}

// NewProgress creates a progress line on p.
func NewProgress(p *Printer) *Progress {
	return &Progress{printer: p, width: 30}
}

// Update redraws the line for done of total.
func (pr *Progress) Update(done, total int) {
	if pr.printer.mode == ModePlain {
		return
	}
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.done, pr.total = done, total
	pr.draw()
}

// Done ends the line so later output starts on a fresh one.
func (pr *Progress) Done() {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.drawn {
		fmt.Fprintln(pr.printer.out)
		pr.drawn = false
	}
}

// Writer wraps w, usually the log destination on the same terminal. Each
// write first erases the bar, then the bar is drawn again below the text.
// In plain mode w is returned unchanged.
//
// # Example
//
//	progress := ux.NewProgress(ux.NewPrinter(os.Stderr))
//	logger := logging.New(logging.Config{Output: progress.Writer(os.Stderr)})
func (pr *Progress) Writer(w io.Writer) io.Writer {
	if pr.printer.mode == ModePlain {
		return w
	}
	return &progressWriter{progress: pr, out: w}
}

// draw must be called with mu held.
func (pr *Progress) draw() {
	fmt.Fprintf(pr.printer.out, "\r%s %d/%d", ProgressBar(pr.done, pr.total, pr.width), pr.done, pr.total)
	pr.drawn = true
}

type progressWriter struct {
	progress *Progress
	out      io.Writer
}

func (w *progressWriter) Write(p []byte) (int, error) {
	pr := w.progress
	pr.mu.Lock()
	defer pr.mu.Unlock()

	redraw := pr.drawn
	if redraw {
		// Carriage return, then erase to end of line.
		fmt.Fprint(pr.printer.out, "\r\x1b[K")
	}
	n, err := w.out.Write(p)
	if redraw {
		pr.draw()
	}
	return n, err
}
