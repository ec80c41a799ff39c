// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package notebook

import (
	"sort"
	"strings"
)

// Line is one newline-delimited segment of a document. Start and End are
// byte offsets; End is the offset just past the last byte of Text.
type Line struct {
	Index int
	Start int
	End   int
	Text  string
}

// Blank reports whether the line holds only whitespace.
func (l Line) Blank() bool {
	return strings.TrimSpace(l.Text) == ""
}

// Split segments text into lines. Every '\n' ends a line, so a trailing
// newline produces a final empty line and the empty document has exactly
// one empty line.
func Split(text string) []Line {
	segs := strings.Split(text, "\n")
	lines := make([]Line, len(segs))
	end := -1
	for i, seg := range segs {
		end += 1 + len(seg)
		lines[i] = Line{Index: i, Start: end - len(seg), End: end, Text: seg}
	}
	return lines
}

// LineAt returns the line containing offset. Offsets past the end map to
// the last line.
func LineAt(lines []Line, offset int) (Line, bool) {
	if len(lines) == 0 {
		return Line{}, false
	}
	i := sort.Search(len(lines), func(i int) bool { return lines[i].End >= offset })
	if i == len(lines) {
		i--
	}
	return lines[i], true
}
