// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders zsls command-line output.
//
// Output is rich (colors and icons) when the destination is a terminal and
// plain otherwise, so piping `zsls diagnose` into grep or an editor's
// quickfix list sees stable text.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Aleutian color palette
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // headers
	ColorTealDeep    = lipgloss.Color("#16858E") // borders
	ColorSlate       = lipgloss.Color("#2C4A54") // muted text

	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Path    lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Header:  lipgloss.NewStyle().Bold(true).Foreground(ColorTealPrimary),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Success: lipgloss.NewStyle().Foreground(ColorTealBright),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Path:    lipgloss.NewStyle().Underline(true),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
}

// Icon provides themed status icons.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
)

// =============================================================================
// MODE
// =============================================================================

// Mode selects how output is rendered.
type Mode string

const (
	// ModeRich renders colors, icons, and boxes.
	ModeRich Mode = "rich"

	// ModePlain renders tab-separated text for scripts.
	ModePlain Mode = "plain"
)

// EnvOutput overrides terminal detection with "rich" or "plain".
const EnvOutput = "ZSLS_OUTPUT"

// ParseMode converts a string to a Mode. Unknown values yield ModePlain.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rich", "color", "full":
		return ModeRich
	default:
		return ModePlain
	}
}

// DetectMode returns the mode for w: EnvOutput when set, ModeRich for a
// terminal, ModePlain otherwise.
func DetectMode(w io.Writer) Mode {
	if env := os.Getenv(EnvOutput); env != "" {
		return ParseMode(env)
	}
	if f, ok := w.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return ModeRich
		}
	}
	return ModePlain
}

// =============================================================================
// PRINTER
// =============================================================================

// Printer writes styled output to one destination.
//
// Thread Safety: Not safe for concurrent use.
type Printer struct {
	w    io.Writer
	mode Mode
}

// NewPrinter creates a Printer for w using DetectMode.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, mode: DetectMode(w)}
}

// NewPrinterMode creates a Printer with an explicit mode.
func NewPrinterMode(w io.Writer, mode Mode) *Printer {
	return &Printer{w: w, mode: mode}
}

// Mode returns the printer's mode.
func (p *Printer) Mode() Mode {
	return p.mode
}

func (p *Printer) rich() bool {
	return p.mode == ModeRich
}

// Title prints a heading. Plain mode omits it.
func (p *Printer) Title(text string) {
	if !p.rich() {
		return
	}
	fmt.Fprintln(p.w, Styles.Title.Render(text))
}

// Success prints a success line.
func (p *Printer) Success(text string) {
	if !p.rich() {
		fmt.Fprintf(p.w, "OK: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", Styles.Success.Render(string(IconSuccess)), Styles.Success.Render(text))
}

// Warning prints a warning line.
func (p *Printer) Warning(text string) {
	if !p.rich() {
		fmt.Fprintf(p.w, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", Styles.Warning.Render(string(IconWarning)), Styles.Warning.Render(text))
}

// Error prints an error line.
func (p *Printer) Error(text string) {
	if !p.rich() {
		fmt.Fprintf(p.w, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", Styles.Error.Render(string(IconError)), Styles.Error.Render(text))
}

// Text prints text unchanged.
func (p *Printer) Text(text string) {
	fmt.Fprint(p.w, text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(p.w)
	}
}

// Location prints a one-based path:line:col followed by a snippet.
func (p *Printer) Location(path string, line, col int, snippet string) {
	loc := fmt.Sprintf("%s:%d:%d", path, line, col)
	if !p.rich() {
		fmt.Fprintf(p.w, "%s\t%s\n", loc, snippet)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", Styles.Muted.Render(string(IconArrow)), Styles.Path.Render(loc))
	if snippet != "" {
		fmt.Fprintln(p.w, Styles.Box.Render(snippet))
	}
}

// Diagnostic prints one compiler-style diagnostic line with one-based
// line and column.
func (p *Printer) Diagnostic(path string, line, col int, severity, message string) {
	if !p.rich() {
		fmt.Fprintf(p.w, "%s:%d:%d: %s: %s\n", path, line, col, severity, message)
		return
	}
	style := Styles.Warning
	if severity == "error" {
		style = Styles.Error
	}
	fmt.Fprintf(p.w, "%s %s %s\n",
		Styles.Path.Render(fmt.Sprintf("%s:%d:%d", path, line, col)),
		style.Render(severity+":"),
		message,
	)
}

// Summary prints the diagnostics totals.
func (p *Printer) Summary(errors, warnings, files int) {
	if !p.rich() {
		fmt.Fprintf(p.w, "SUMMARY: errors=%d warnings=%d files=%d\n", errors, warnings, files)
		return
	}
	icon := Styles.Success.Render(string(IconSuccess))
	if errors > 0 {
		icon = Styles.Error.Render(string(IconError))
	}
	fmt.Fprintf(p.w, "\n%s %s %s  %s %s  %s %s\n", icon,
		Styles.Error.Render(fmt.Sprintf("%d", errors)), Styles.Muted.Render("errors"),
		Styles.Warning.Render(fmt.Sprintf("%d", warnings)), Styles.Muted.Render("warnings"),
		Styles.Bold.Render(fmt.Sprintf("%d", files)), Styles.Muted.Render("files"),
	)
}

// Table prints rows under headers. Plain mode prints tab-separated rows
// without the header line.
func (p *Printer) Table(headers []string, rows [][]string) {
	if !p.rich() {
		for _, row := range rows {
			fmt.Fprintln(p.w, strings.Join(row, "\t"))
		}
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], len(row[i]))
		}
	}

	cells := func(row []string, style lipgloss.Style) string {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			parts[i] = style.Render(cell + strings.Repeat(" ", widths[i]-len(cell)))
		}
		return strings.Join(parts, "  ")
	}

	fmt.Fprintln(p.w, cells(headers, Styles.Header))
	for _, row := range rows {
		fmt.Fprintln(p.w, cells(row, lipgloss.NewStyle()))
	}
}
