// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package expr

import "sort"

// Children returns the direct sub-expressions of e in source order.
func Children(e Expr) []Expr {
	switch n := e.(type) {
	case Unary:
		return []Expr{n.X}
	case Binary:
		return []Expr{n.X, n.Y}
	case Vector:
		return n.Elems
	case Index:
		return []Expr{n.X, n.Index}
	case Call:
		return n.Args
	case Assign:
		return []Expr{n.Value}
	case IndexAssign:
		return []Expr{n.Index, n.Value}
	case FuncDef:
		return []Expr{n.Body}
	}
	return nil
}

// Inspect traverses e depth-first, calling f for each node. If f returns
// false the children of that node are skipped.
func Inspect(e Expr, f func(Expr) bool) {
	if e == nil || !f(e) {
		return
	}
	for _, c := range Children(e) {
		Inspect(c, f)
	}
}

// Symbols returns the sorted set of names an expression reads from its
// scope. Assignment targets are not reads; an index assignment reads the
// vector it modifies. Function parameters and a function's own name are
// bound inside its body and are excluded.
func Symbols(e Expr) []string {
	set := make(map[string]bool)
	collectSymbols(e, nil, set)
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func collectSymbols(e Expr, bound map[string]bool, set map[string]bool) {
	switch n := e.(type) {
	case Symbol:
		if !bound[n.Name] {
			set[n.Name] = true
		}
		return
	case Call:
		if !bound[n.Name] {
			set[n.Name] = true
		}
	case IndexAssign:
		if !bound[n.Name] {
			set[n.Name] = true
		}
	case FuncDef:
		inner := make(map[string]bool, len(bound)+len(n.Params)+1)
		for k := range bound {
			inner[k] = true
		}
		inner[n.Name] = true
		for _, p := range n.Params {
			inner[p] = true
		}
		collectSymbols(n.Body, inner, set)
		return
	}
	for _, c := range Children(e) {
		collectSymbols(c, bound, set)
	}
}

// Targets returns the sorted set of names an expression binds in its
// scope, whether or not the bound value changes. A function body is not
// run at definition, so only the function's own name is a target.
func Targets(e Expr) []string {
	set := make(map[string]bool)
	Inspect(e, func(n Expr) bool {
		switch n := n.(type) {
		case Assign:
			set[n.Name] = true
		case IndexAssign:
			set[n.Name] = true
		case FuncDef:
			set[n.Name] = true
			return false
		}
		return true
	})
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether two trees are structurally equal.
func Equal(a, b Expr) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case Empty:
		_, ok := b.(Empty)
		return ok
	case Number:
		y, ok := b.(Number)
		return ok && (x.Value == y.Value || (x.Value != x.Value && y.Value != y.Value))
	case Symbol:
		y, ok := b.(Symbol)
		return ok && x.Name == y.Name
	case Unary:
		y, ok := b.(Unary)
		return ok && x.Op == y.Op && Equal(x.X, y.X)
	case Binary:
		y, ok := b.(Binary)
		return ok && x.Op == y.Op && Equal(x.X, y.X) && Equal(x.Y, y.Y)
	case Vector:
		y, ok := b.(Vector)
		return ok && equalAll(x.Elems, y.Elems)
	case Index:
		y, ok := b.(Index)
		return ok && Equal(x.X, y.X) && Equal(x.Index, y.Index)
	case Call:
		y, ok := b.(Call)
		return ok && x.Name == y.Name && equalAll(x.Args, y.Args)
	case Assign:
		y, ok := b.(Assign)
		return ok && x.Name == y.Name && Equal(x.Value, y.Value)
	case IndexAssign:
		y, ok := b.(IndexAssign)
		return ok && x.Name == y.Name && Equal(x.Index, y.Index) && Equal(x.Value, y.Value)
	case FuncDef:
		y, ok := b.(FuncDef)
		if !ok || x.Name != y.Name || len(x.Params) != len(y.Params) {
			return false
		}
		for i := range x.Params {
			if x.Params[i] != y.Params[i] {
				return false
			}
		}
		return Equal(x.Body, y.Body)
	}
	return false
}

func equalAll(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
