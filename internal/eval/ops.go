// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"math"

	"nickandperla.net/calcnb/internal/scope"
	"nickandperla.net/calcnb/internal/token"
)

// asFloat converts numbers and booleans to float64.
func asFloat(v scope.Value) (float64, bool) {
	switch x := v.(type) {
	case Number:
		return float64(x), true
	case Bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toNumeric(v scope.Value) (scope.Value, error) {
	if vec, ok := v.(*Vector); ok {
		return vec.Clone(), nil
	}
	f, ok := asFloat(v)
	if !ok {
		return nil, evalErrorf("Expected a number, got %s", typeName(v))
	}
	return Number(f), nil
}

// mapNumeric applies f to a number, or element-wise to a vector.
func mapNumeric(v scope.Value, f func(float64) float64) (scope.Value, error) {
	if vec, ok := v.(*Vector); ok {
		out := make([]float64, len(vec.Elems))
		for i, x := range vec.Elems {
			out[i] = f(x)
		}
		return &Vector{Elems: out}, nil
	}
	x, ok := asFloat(v)
	if !ok {
		return nil, evalErrorf("Expected a number, got %s", typeName(v))
	}
	return Number(f(x)), nil
}

func arith(op token.Token) func(a, b float64) float64 {
	switch op {
	case token.PLUS:
		return func(a, b float64) float64 { return a + b }
	case token.MINUS:
		return func(a, b float64) float64 { return a - b }
	case token.STAR:
		return func(a, b float64) float64 { return a * b }
	case token.SLASH:
		return func(a, b float64) float64 { return a / b }
	case token.PERCENT:
		return mod
	case token.CARET:
		return math.Pow
	}
	return nil
}

// mod is the floored modulo: the result has the sign of the divisor.
func mod(a, b float64) float64 {
	if b == 0 {
		return a
	}
	return a - b*math.Floor(a/b)
}

func compare(op token.Token, a, b float64) bool {
	switch op {
	case token.EQ:
		return a == b
	case token.NEQ:
		return a != b
	case token.LT:
		return a < b
	case token.LTE:
		return a <= b
	case token.GT:
		return a > b
	case token.GTE:
		return a >= b
	}
	return false
}

// binary applies an infix operator. Scalars broadcast over vectors; two
// vectors add and subtract element-wise and multiply as a dot product.
func binary(op token.Token, x, y scope.Value) (scope.Value, error) {
	xv, xVec := x.(*Vector)
	yv, yVec := y.(*Vector)

	if op.IsComparison() {
		if xVec || yVec {
			if op == token.EQ || op == token.NEQ {
				eq := xVec && yVec && xv.Equal(yv)
				return Bool(eq == (op == token.EQ)), nil
			}
			return nil, evalErrorf("Cannot compare %s and %s", typeName(x), typeName(y))
		}
		a, aok := asFloat(x)
		b, bok := asFloat(y)
		if !aok || !bok {
			return nil, evalErrorf("Cannot compare %s and %s", typeName(x), typeName(y))
		}
		return Bool(compare(op, a, b)), nil
	}

	f := arith(op)
	if f == nil {
		return nil, evalErrorf("Unsupported operator %s", op)
	}

	switch {
	case xVec && yVec:
		if len(xv.Elems) != len(yv.Elems) {
			return nil, evalErrorf("Dimension mismatch (%d != %d)", len(xv.Elems), len(yv.Elems))
		}
		switch op {
		case token.PLUS, token.MINUS:
			out := make([]float64, len(xv.Elems))
			for i := range out {
				out[i] = f(xv.Elems[i], yv.Elems[i])
			}
			return &Vector{Elems: out}, nil
		case token.STAR:
			var dot float64
			for i := range xv.Elems {
				dot += xv.Elems[i] * yv.Elems[i]
			}
			return Number(dot), nil
		}
		return nil, evalErrorf("Unsupported operator %s for two vectors", op)

	case xVec:
		b, ok := asFloat(y)
		if !ok {
			return nil, evalErrorf("Unexpected type of argument: %s", typeName(y))
		}
		return mapNumeric(xv, func(a float64) float64 { return f(a, b) })

	case yVec:
		a, ok := asFloat(x)
		if !ok {
			return nil, evalErrorf("Unexpected type of argument: %s", typeName(x))
		}
		if op == token.SLASH || op == token.CARET || op == token.PERCENT {
			return nil, evalErrorf("Unsupported operator %s with a vector divisor or exponent", op)
		}
		return mapNumeric(yv, func(b float64) float64 { return f(a, b) })
	}

	a, aok := asFloat(x)
	b, bok := asFloat(y)
	if !aok || !bok {
		return nil, evalErrorf("Unexpected type of argument for operator %s: %s and %s", op, typeName(x), typeName(y))
	}
	return Number(f(a, b)), nil
}
