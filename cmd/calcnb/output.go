// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"nickandperla.net/calcnb/internal/notebook"
	"nickandperla.net/calcnb/pkg/calcnb"
)

const (
	gutter       = 2
	minResultCol = 8
)

var (
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// annotated pairs each document line with its result, if any.
type annotated struct {
	Line   notebook.Line
	Result *calcnb.Result
}

func annotate(text string, results []*calcnb.Result) []annotated {
	byIndex := make(map[int]*calcnb.Result, len(results))
	for _, r := range results {
		byIndex[r.Line.Index] = r
	}
	lines := notebook.Split(text)
	out := make([]annotated, len(lines))
	for i, l := range lines {
		out[i] = annotated{Line: l, Result: byIndex[l.Index]}
	}
	return out
}

// resultColumn picks the display column of results: just past the widest
// line, but no further than half the terminal.
func resultColumn(rows []annotated, width int) int {
	col := minResultCol
	for _, row := range rows {
		if w := runewidth.StringWidth(row.Line.Text) + gutter; w > col {
			col = w
		}
	}
	if width > 0 && col > width/2 {
		col = width / 2
	}
	return col
}

// marker renders the annotation text of a result, or "" for none.
func marker(r *calcnb.Result, color bool) string {
	if r == nil || (r.Text == "" && !r.Failed()) {
		return ""
	}
	if r.Failed() {
		s := "! " + r.Text
		if color {
			return errorStyle.Render(s)
		}
		return s
	}
	s := "= " + r.Text
	if color {
		return valueStyle.Render(s)
	}
	return s
}

// writeText prints the document with results aligned in a column. Lines
// wider than the column get their result after a gutter.
func writeText(w io.Writer, text string, results []*calcnb.Result, width int, color bool) error {
	rows := annotate(text, results)
	// A trailing newline leaves an empty last line that is not printed.
	if n := len(rows); n > 1 && rows[n-1].Line.Text == "" {
		rows = rows[:n-1]
	}
	col := resultColumn(rows, width)

	var b strings.Builder
	for _, row := range rows {
		b.WriteString(row.Line.Text)
		if m := marker(row.Result, color); m != "" {
			pad := col - runewidth.StringWidth(row.Line.Text)
			if pad < gutter {
				pad = gutter
			}
			b.WriteString(strings.Repeat(" ", pad))
			b.WriteString(m)
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

type yamlLine struct {
	Line   int    `yaml:"line"`
	Text   string `yaml:"text"`
	Result string `yaml:"result,omitempty"`
	Error  string `yaml:"error,omitempty"`
}

// writeYAML prints one entry per non-blank line.
func writeYAML(w io.Writer, results []*calcnb.Result) error {
	out := make([]yamlLine, 0, len(results))
	for _, r := range results {
		entry := yamlLine{Line: r.Line.Index + 1, Text: r.Line.Text}
		if r.Failed() {
			entry.Error = r.Text
		} else {
			entry.Result = r.Text
		}
		out = append(out, entry)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return enc.Close()
}
