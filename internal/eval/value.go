// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"math"

	"nickandperla.net/calcnb/internal/expr"
	"nickandperla.net/calcnb/internal/scope"
)

// Number is a float64 value.
type Number float64

func (n Number) Clone() scope.Value { return n }

// Equal treats two NaNs as equal so that a line producing NaN can be reused.
func (n Number) Equal(other scope.Value) bool {
	o, ok := other.(Number)
	if !ok {
		return false
	}
	return n == o || (math.IsNaN(float64(n)) && math.IsNaN(float64(o)))
}

// Bool is the result of a comparison.
type Bool bool

func (b Bool) Clone() scope.Value { return b }

func (b Bool) Equal(other scope.Value) bool {
	o, ok := other.(Bool)
	return ok && b == o
}

// Vector is a mutable one-dimensional array of numbers. Index assignment
// modifies it in place, so scopes holding a vector must clone it.
type Vector struct {
	Elems []float64
}

// NewVector creates a vector holding a copy of elems.
func NewVector(elems ...float64) *Vector {
	return &Vector{Elems: append([]float64(nil), elems...)}
}

func (v *Vector) Clone() scope.Value {
	return &Vector{Elems: append([]float64(nil), v.Elems...)}
}

func (v *Vector) Equal(other scope.Value) bool {
	o, ok := other.(*Vector)
	if !ok || len(v.Elems) != len(o.Elems) {
		return false
	}
	for i := range v.Elems {
		if !Number(v.Elems[i]).Equal(Number(o.Elems[i])) {
			return false
		}
	}
	return true
}

// Function is a user-defined function. Free variables of the body are
// captured by value when the function is defined, so a function never
// observes later assignments. Functions are immutable once created.
type Function struct {
	Name   string
	Params []string
	Body   expr.Expr
	Env    *scope.Scope
}

// Clone returns the receiver: a function carries no mutable state and
// rebinding it is enough.
func (f *Function) Clone() scope.Value { return f }

func (f *Function) Equal(other scope.Value) bool {
	o, ok := other.(*Function)
	if !ok {
		return false
	}
	if f == o {
		return true
	}
	if f.Name != o.Name || len(f.Params) != len(o.Params) {
		return false
	}
	for i := range f.Params {
		if f.Params[i] != o.Params[i] {
			return false
		}
	}
	return expr.Equal(f.Body, o.Body) && scope.Equal(f.Env, o.Env)
}
