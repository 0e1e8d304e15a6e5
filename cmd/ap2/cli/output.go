// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// JSONOutput is embedded in a command's params to add --json.
//
//	if done, err := params.EmitJSON(os.Stdout, result); done {
//	    return err
//	}
//	// ... human formatting ...
type JSONOutput struct {
	OutputJSON bool `flag:"json" desc:"output as JSON"`
}

// EmitJSON writes result as indented JSON to w if --json is set and
// reports whether it did. Nil slices are written as [].
func (j *JSONOutput) EmitJSON(w io.Writer, result any) (bool, error) {
	if !j.OutputJSON {
		return false, nil
	}
	return true, WriteJSON(w, normalizeNilSlice(result))
}

// WriteJSON marshals value as indented JSON to w.
func WriteJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func normalizeNilSlice(value any) any {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Slice && v.IsNil() {
		return reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	return value
}

// Printer writes human-readable command output. Styling is applied
// only when the destination is a terminal.
type Printer struct {
	w      io.Writer
	styled bool

	title   lipgloss.Style
	label   lipgloss.Style
	good    lipgloss.Style
	bad     lipgloss.Style
	pending lipgloss.Style
	muted   lipgloss.Style
}

// NewPrinter returns a Printer for file, styled when file is a
// terminal.
func NewPrinter(file *os.File) *Printer {
	return newPrinter(file, term.IsTerminal(int(file.Fd())))
}

// NewPlainPrinter returns a Printer that never styles.
func NewPlainPrinter(w io.Writer) *Printer {
	return newPrinter(w, false)
}

func newPrinter(w io.Writer, styled bool) *Printer {
	return &Printer{
		w:       w,
		styled:  styled,
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		good:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		bad:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		pending: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		muted:   lipgloss.NewStyle().Faint(true),
	}
}

func (p *Printer) render(style lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return style.Render(text)
}

// Title writes a heading line.
func (p *Printer) Title(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(p.title, fmt.Sprintf(format, args...)))
}

// Field is one label/value row of a Fields block.
type Field struct {
	Label string
	Value string
}

// Fields writes aligned label/value rows. Rows with an empty value are
// skipped.
func (p *Printer) Fields(fields ...Field) {
	tw := tabwriter.NewWriter(p.w, 2, 0, 2, ' ', 0)
	for _, field := range fields {
		if field.Value == "" {
			continue
		}
		// Every label carries the same escape overhead, so columns
		// still align when styled.
		fmt.Fprintf(tw, "  %s\t%s\n", p.render(p.label, field.Label+":"), field.Value)
	}
	tw.Flush()
}

// Status renders a status word colored by outcome: success-like words
// green, failure-like words red, anything else yellow.
func (p *Printer) Status(status string) string {
	switch strings.ToLower(status) {
	case "success", "paid", "valid", "active", "enabled", "authorized", "ok":
		return p.render(p.good, status)
	case "failed", "canceled", "expired", "invalid", "disabled", "error":
		return p.render(p.bad, status)
	default:
		return p.render(p.pending, status)
	}
}

// Line writes a plain line.
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Muted writes a de-emphasized line.
func (p *Printer) Muted(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(p.muted, fmt.Sprintf(format, args...)))
}

// Table writes rows under a header with aligned columns.
func (p *Printer) Table(header []string, rows [][]string) {
	tw := tabwriter.NewWriter(p.w, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(header, "\t")))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}
