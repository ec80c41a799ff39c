// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package scope implements the copy-on-write variable bindings threaded
// through the lines of a notebook.
//
// A Scope is owned by exactly one line evaluation at a time. Before a line
// runs, the scope it inherits is cloned; the clone is what the line may
// mutate. Snapshots recorded in results are never handed to another line
// without cloning first.
package scope

import (
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Value is a runtime-defined value bound in a scope.
//
// Clone returns a deep copy whose mutation cannot be observed through the
// receiver. Function-like values, which carry no mutable state, may return
// themselves. Implementations should also provide an Equal(Value) bool
// method; it is used for structural comparison.
type Value interface {
	Clone() Value
}

// Scope maps variable names to values.
type Scope struct {
	vars map[string]Value
}

// New creates a new empty scope.
func New() *Scope {
	return &Scope{vars: make(map[string]Value)}
}

// FromMap creates a scope holding clones of the given bindings.
func FromMap(m map[string]Value) *Scope {
	s := &Scope{vars: make(map[string]Value, len(m))}
	for k, v := range m {
		s.vars[k] = cloneValue(v)
	}
	return s
}

// Get retrieves a value by name.
func (s *Scope) Get(name string) (Value, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.vars[name]
	return v, ok
}

// Set binds a value to a name, overwriting any existing binding.
func (s *Scope) Set(name string, v Value) {
	s.vars[name] = v
}

// Has returns true if the name is bound.
func (s *Scope) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Len returns the number of bindings.
func (s *Scope) Len() int {
	if s == nil {
		return 0
	}
	return len(s.vars)
}

// Names returns the bound names in sorted order.
func (s *Scope) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.vars))
	for k := range s.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone creates a deep copy of the scope.
func (s *Scope) Clone() *Scope {
	clone := &Scope{vars: make(map[string]Value, s.Len())}
	if s == nil {
		return clone
	}
	for k, v := range s.vars {
		clone.vars[k] = cloneValue(v)
	}
	return clone
}

// Filter projects the scope down to the given names. Names that are not
// bound are omitted, so two scopes that both lack a name agree on it.
// The returned scope shares values with s and must be treated as read-only.
func (s *Scope) Filter(names []string) *Scope {
	out := &Scope{vars: make(map[string]Value, len(names))}
	for _, name := range names {
		if v, ok := s.Get(name); ok {
			out.vars[name] = v
		}
	}
	return out
}

// Apply overlays clones of every binding in writes onto s.
func (s *Scope) Apply(writes *Scope) {
	if writes == nil {
		return
	}
	for k, v := range writes.vars {
		s.vars[k] = cloneValue(v)
	}
}

// Equal reports whether two scopes have the same key set and deeply equal
// values. It panics if a value type has unexported fields and no Equal
// method.
func Equal(a, b *Scope) bool {
	if a.Len() != b.Len() {
		return false
	}
	if a.Len() == 0 {
		return true
	}
	return cmp.Equal(a.vars, b.vars, cmpopts.EquateEmpty(), cmpopts.EquateNaNs())
}

// Map returns a copy of the bindings, for inspection and serialization.
func (s *Scope) Map() map[string]Value {
	out := make(map[string]Value, s.Len())
	if s == nil {
		return out
	}
	for k, v := range s.vars {
		out[k] = v
	}
	return out
}

func cloneValue(v Value) Value {
	if v == nil {
		return nil
	}
	return v.Clone()
}
