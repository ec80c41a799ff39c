// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package overlay keeps result markers anchored to document offsets while
// the document is edited between evaluation passes.
package overlay

import (
	"fmt"

	"github.com/google/go-cmp/cmp"

	"nickandperla.net/calcnb/internal/notebook"
)

// Change is a single replacement. FromA and ToA delimit the replaced range
// in the document before the change; FromB and ToB delimit the inserted
// text in the document after it.
type Change struct {
	FromA, ToA int
	FromB, ToB int
	Inserted   string
}

// Replace builds the change that replaces doc[from:to] with text.
func Replace(doc string, from, to int, text string) (Change, error) {
	if from < 0 || to < from || to > len(doc) {
		return Change{}, fmt.Errorf("replace [%d,%d) out of range for document of length %d", from, to, len(doc))
	}
	return Change{FromA: from, ToA: to, FromB: from, ToB: from + len(text), Inserted: text}, nil
}

// Insert builds the change that inserts text at offset.
func Insert(doc string, offset int, text string) (Change, error) {
	return Replace(doc, offset, offset, text)
}

// Check reports whether c can be applied to a document of length n and
// whether its B side is consistent with the inserted text.
func (c Change) Check(n int) error {
	if c.FromA < 0 || c.ToA < c.FromA || c.ToA > n {
		return fmt.Errorf("range [%d,%d) out of bounds for document of length %d", c.FromA, c.ToA, n)
	}
	if c.FromB != c.FromA || c.ToB != c.FromB+len(c.Inserted) {
		return fmt.Errorf("inserted range [%d,%d) does not match %d inserted bytes at %d", c.FromB, c.ToB, len(c.Inserted), c.FromA)
	}
	return nil
}

// Apply returns doc with the change applied.
func (c Change) Apply(doc string) string {
	return doc[:c.FromA] + c.Inserted + doc[c.ToA:]
}

// Payload is what a marker displays.
type Payload struct {
	Text   string
	Failed bool
	// Line is the source text of the line the marker belongs to.
	Line string
}

// Marker is a payload anchored at a document offset.
type Marker struct {
	Offset int
	Payload
}

// Tracker holds the current markers as a flat table: offsets and payloads
// share a marker index. The zero value is ready to use.
type Tracker struct {
	offsets  []int
	payloads []Payload
}

// Len returns the number of markers.
func (t *Tracker) Len() int { return len(t.offsets) }

// Markers returns a copy of the current markers in offset order.
func (t *Tracker) Markers() []Marker {
	out := make([]Marker, len(t.offsets))
	for i := range t.offsets {
		out[i] = Marker{Offset: t.offsets[i], Payload: t.payloads[i]}
	}
	return out
}

// Shift moves markers through a sequence of changes, applied in order.
// A deletion that touches a marker's offset drops the marker; every
// surviving marker at or after the change moves by the change's length
// delta. A marker sitting exactly where a newline is typed stays put so
// that it remains on its line.
func (t *Tracker) Shift(changes ...Change) {
	for _, c := range changes {
		t.shift(c)
	}
}

func (t *Tracker) shift(c Change) {
	delta := c.ToB - c.ToA
	removing := delta < 0
	stepOver := c.Inserted == "\n"

	n := 0
	for i, off := range t.offsets {
		if removing && ((c.FromA <= off && off <= c.ToA) || (c.FromB <= off && off <= c.ToB)) {
			continue
		}
		var moves bool
		if stepOver && !removing {
			moves = off > c.FromA
		} else {
			moves = off >= c.FromA
		}
		if moves {
			off += delta
		}
		t.offsets[n] = off
		t.payloads[n] = t.payloads[i]
		n++
	}
	t.offsets = t.offsets[:n]
	t.payloads = t.payloads[:n]
}

// Install replaces every marker with one per result, anchored at the end
// of the result's line. It returns the indices of markers whose payload
// differs from the marker previously at the same index; unchanged markers
// need not be redrawn.
func (t *Tracker) Install(results []*notebook.Result) []int {
	offsets := make([]int, len(results))
	payloads := make([]Payload, len(results))
	for i, r := range results {
		offsets[i] = r.Line.End
		payloads[i] = Payload{Text: r.Text, Failed: r.Failed(), Line: r.Line.Text}
	}

	var changed []int
	for i := range payloads {
		if i < len(t.payloads) && cmp.Equal(t.payloads[i], payloads[i]) {
			continue
		}
		changed = append(changed, i)
	}
	t.offsets = offsets
	t.payloads = payloads
	return changed
}

// Clear removes all markers.
func (t *Tracker) Clear() {
	t.offsets = nil
	t.payloads = nil
}
