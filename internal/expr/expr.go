// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package expr defines calcnb expression syntax trees.
package expr

import (
	"strconv"
	"strings"

	"nickandperla.net/calcnb/internal/token"
)

// Expr is the interface all expression types implement.
type Expr interface {
	// String returns the canonical representation of the expression.
	// Two trees are syntactically equal iff their canonical forms match.
	String() string
	// IsEmpty returns true if this is an empty expression.
	IsEmpty() bool
}

// Empty represents a line with no expression (blank or comment only).
type Empty struct{}

func (e Empty) String() string { return "" }
func (e Empty) IsEmpty() bool  { return true }

// Number is a numeric literal.
type Number struct {
	Value float64
}

func (n Number) String() string { return strconv.FormatFloat(n.Value, 'g', -1, 64) }
func (n Number) IsEmpty() bool  { return false }

// Symbol is a reference to a named variable, constant or function.
type Symbol struct {
	Name string
}

func (s Symbol) String() string { return s.Name }
func (s Symbol) IsEmpty() bool  { return false }

// Unary is a prefix operator applied to an operand (-x, +x).
type Unary struct {
	Op token.Token
	X  Expr
}

func (u Unary) String() string { return "(" + u.Op.String() + u.X.String() + ")" }
func (u Unary) IsEmpty() bool  { return false }

// Binary is an infix operator expression.
type Binary struct {
	Op   token.Token
	X, Y Expr
}

func (b Binary) String() string {
	return "(" + b.X.String() + " " + b.Op.String() + " " + b.Y.String() + ")"
}
func (b Binary) IsEmpty() bool { return false }

// Vector is a vector literal ([a, b, c]).
type Vector struct {
	Elems []Expr
}

func (v Vector) String() string { return "[" + join(v.Elems) + "]" }
func (v Vector) IsEmpty() bool  { return false }

// Index is a 1-based element access (v[i]).
type Index struct {
	X     Expr
	Index Expr
}

func (i Index) String() string { return i.X.String() + "[" + i.Index.String() + "]" }
func (i Index) IsEmpty() bool  { return false }

// Call is a function invocation (name(args)).
type Call struct {
	Name string
	Args []Expr
}

func (c Call) String() string { return c.Name + "(" + join(c.Args) + ")" }
func (c Call) IsEmpty() bool  { return false }

// Assign binds the value of an expression to a name (a = expr).
type Assign struct {
	Name  string
	Value Expr
}

func (a Assign) String() string { return a.Name + " = " + a.Value.String() }
func (a Assign) IsEmpty() bool  { return false }

// IndexAssign replaces one element of a bound vector in place (v[i] = expr).
type IndexAssign struct {
	Name  string
	Index Expr
	Value Expr
}

func (a IndexAssign) String() string {
	return a.Name + "[" + a.Index.String() + "] = " + a.Value.String()
}
func (a IndexAssign) IsEmpty() bool { return false }

// FuncDef defines a named function (f(x, y) = body).
type FuncDef struct {
	Name   string
	Params []string
	Body   Expr
}

func (f FuncDef) String() string {
	return f.Name + "(" + strings.Join(f.Params, ", ") + ") = " + f.Body.String()
}
func (f FuncDef) IsEmpty() bool { return false }

func join(exprs []Expr) string {
	var sb strings.Builder
	for i, e := range exprs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.String())
	}
	return sb.String()
}
