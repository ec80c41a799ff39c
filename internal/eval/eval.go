// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package eval implements the reference calcnb expression runtime: parsing,
// evaluation against a scope, value formatting and syntax tree queries.
package eval

import (
	"context"
	"math"
	"sort"

	"nickandperla.net/calcnb/internal/expr"
	"nickandperla.net/calcnb/internal/scope"
	"nickandperla.net/calcnb/internal/token"
)

// DefaultMaxDepth bounds nested function calls.
const DefaultMaxDepth = 256

// Runtime evaluates calcnb expressions.
type Runtime struct {
	constants map[string]scope.Value
	builtins  map[string]builtin
	maxDepth  int
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithMaxDepth sets the maximum nesting of user function calls.
func WithMaxDepth(n int) Option {
	return func(r *Runtime) { r.maxDepth = n }
}

// WithConstant adds a named constant. Scope bindings shadow constants.
func WithConstant(name string, v scope.Value) Option {
	return func(r *Runtime) { r.constants[name] = v }
}

// New creates a new Runtime with the given options.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		constants: map[string]scope.Value{
			"pi":       Number(math.Pi),
			"e":        Number(math.E),
			"tau":      Number(2 * math.Pi),
			"phi":      Number(math.Phi),
			"Infinity": Number(math.Inf(1)),
			"NaN":      Number(math.NaN()),
			"true":     Bool(true),
			"false":    Bool(false),
		},
		builtins: builtins(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Parse parses a single line into a syntax tree.
func (r *Runtime) Parse(text string) (expr.Expr, error) {
	return Parse(text)
}

// Symbols returns the names a tree reads from its scope.
func (r *Runtime) Symbols(tree expr.Expr) []string {
	return expr.Symbols(tree)
}

// Targets returns the names the tree binds.
func (r *Runtime) Targets(tree expr.Expr) []string {
	return expr.Targets(tree)
}

// Equal reports whether two syntax trees are structurally equal.
func (r *Runtime) Equal(a, b expr.Expr) bool {
	return expr.Equal(a, b)
}

// Names returns the builtin function and constant names, sorted.
func (r *Runtime) Names() []string {
	names := make([]string, 0, len(r.constants)+len(r.builtins))
	for k := range r.constants {
		names = append(names, k)
	}
	for k := range r.builtins {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// EvalString parses and evaluates text against sc.
func (r *Runtime) EvalString(ctx context.Context, text string, sc *scope.Scope) (scope.Value, error) {
	tree, err := r.Parse(text)
	if err != nil {
		return nil, err
	}
	return r.Evaluate(ctx, tree, sc)
}

// Evaluate evaluates a parsed line against sc. Assignments and function
// definitions bind into sc; an index assignment modifies the bound vector
// in place. On error sc is left exactly as it was. An empty tree evaluates
// to a nil value.
func (r *Runtime) Evaluate(ctx context.Context, tree expr.Expr, sc *scope.Scope) (scope.Value, error) {
	ev := &evaluation{rt: r, ctx: ctx}
	lookup := func(name string) (scope.Value, bool) { return sc.Get(name) }

	switch n := tree.(type) {
	case nil, expr.Empty:
		return nil, nil

	case expr.Assign:
		v, err := ev.eval(n.Value, lookup)
		if err != nil {
			return nil, err
		}
		sc.Set(n.Name, v.Clone())
		return v.Clone(), nil

	case expr.IndexAssign:
		bound, ok := sc.Get(n.Name)
		if !ok {
			return nil, evalErrorf("Undefined symbol %s", n.Name)
		}
		vec, ok := bound.(*Vector)
		if !ok {
			return nil, evalErrorf("Cannot index %s: not a vector", n.Name)
		}
		iv, err := ev.eval(n.Index, lookup)
		if err != nil {
			return nil, err
		}
		i, err := vectorIndex(vec, iv)
		if err != nil {
			return nil, err
		}
		v, err := ev.eval(n.Value, lookup)
		if err != nil {
			return nil, err
		}
		num, ok := v.(Number)
		if !ok {
			return nil, evalErrorf("Cannot assign %s to a vector element", typeName(v))
		}
		vec.Elems[i] = float64(num)
		return num, nil

	case expr.FuncDef:
		env := scope.New()
		for _, name := range expr.Symbols(n) {
			if v, ok := sc.Get(name); ok {
				env.Set(name, v.Clone())
			}
		}
		fn := &Function{Name: n.Name, Params: n.Params, Body: n.Body, Env: env}
		sc.Set(n.Name, fn)
		return fn, nil
	}

	v, err := ev.eval(tree, lookup)
	if err != nil {
		return nil, err
	}
	return v.Clone(), nil
}

type lookupFunc func(name string) (scope.Value, bool)

// evaluation holds the state of a single Evaluate call.
type evaluation struct {
	rt    *Runtime
	ctx   context.Context
	depth int
}

func (ev *evaluation) checkContext() error {
	if ev.ctx == nil {
		return nil
	}
	if err := ev.ctx.Err(); err != nil {
		return &EvalError{Msg: ErrTimeout.Error(), Err: ErrTimeout}
	}
	return nil
}

func (ev *evaluation) eval(e expr.Expr, lookup lookupFunc) (scope.Value, error) {
	switch n := e.(type) {
	case expr.Number:
		return Number(n.Value), nil

	case expr.Symbol:
		if v, ok := lookup(n.Name); ok {
			return v, nil
		}
		if v, ok := ev.rt.constants[n.Name]; ok {
			return v, nil
		}
		if _, ok := ev.rt.builtins[n.Name]; ok {
			return nil, evalErrorf("Function %s must be called with arguments", n.Name)
		}
		return nil, evalErrorf("Undefined symbol %s", n.Name)

	case expr.Unary:
		x, err := ev.eval(n.X, lookup)
		if err != nil {
			return nil, err
		}
		if n.Op == token.PLUS {
			return toNumeric(x)
		}
		return mapNumeric(x, func(f float64) float64 { return -f })

	case expr.Binary:
		x, err := ev.eval(n.X, lookup)
		if err != nil {
			return nil, err
		}
		y, err := ev.eval(n.Y, lookup)
		if err != nil {
			return nil, err
		}
		return binary(n.Op, x, y)

	case expr.Vector:
		elems := make([]float64, len(n.Elems))
		for i, el := range n.Elems {
			v, err := ev.eval(el, lookup)
			if err != nil {
				return nil, err
			}
			num, ok := asFloat(v)
			if !ok {
				return nil, evalErrorf("Vector elements must be numbers, got %s", typeName(v))
			}
			elems[i] = num
		}
		return &Vector{Elems: elems}, nil

	case expr.Index:
		x, err := ev.eval(n.X, lookup)
		if err != nil {
			return nil, err
		}
		vec, ok := x.(*Vector)
		if !ok {
			return nil, evalErrorf("Cannot index a %s", typeName(x))
		}
		iv, err := ev.eval(n.Index, lookup)
		if err != nil {
			return nil, err
		}
		i, err := vectorIndex(vec, iv)
		if err != nil {
			return nil, err
		}
		return Number(vec.Elems[i]), nil

	case expr.Call:
		return ev.call(n, lookup)
	}
	return nil, evalErrorf("Cannot evaluate %s", e.String())
}

func (ev *evaluation) call(n expr.Call, lookup lookupFunc) (scope.Value, error) {
	if err := ev.checkContext(); err != nil {
		return nil, err
	}
	args := make([]scope.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := ev.eval(a, lookup)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	if bound, ok := lookup(n.Name); ok {
		fn, ok := bound.(*Function)
		if !ok {
			return nil, evalErrorf("%s is not a function", n.Name)
		}
		return ev.apply(fn, args)
	}
	if b, ok := ev.rt.builtins[n.Name]; ok {
		return b(args)
	}
	return nil, evalErrorf("Undefined function %s", n.Name)
}

// apply invokes a user function. Inside the body, parameters shadow the
// function's own name, which shadows its captured environment.
func (ev *evaluation) apply(fn *Function, args []scope.Value) (scope.Value, error) {
	if len(args) != len(fn.Params) {
		return nil, evalErrorf("Wrong number of arguments in function %s (%d provided, %d expected)",
			fn.Name, len(args), len(fn.Params))
	}
	if ev.depth >= ev.rt.maxDepth {
		return nil, evalErrorf("Maximum call depth exceeded in function %s", fn.Name)
	}
	ev.depth++
	defer func() { ev.depth-- }()

	params := make(map[string]scope.Value, len(args))
	for i, p := range fn.Params {
		params[p] = args[i]
	}
	lookup := func(name string) (scope.Value, bool) {
		if v, ok := params[name]; ok {
			return v, true
		}
		if name == fn.Name {
			return fn, true
		}
		return fn.Env.Get(name)
	}
	return ev.eval(fn.Body, lookup)
}

func vectorIndex(vec *Vector, iv scope.Value) (int, error) {
	f, ok := asFloat(iv)
	if !ok || f != math.Trunc(f) {
		return 0, evalErrorf("Index must be an integer, got %s", typeName(iv))
	}
	i := int(f)
	if i < 1 || i > len(vec.Elems) {
		return 0, evalErrorf("Index out of range (%d not in 1..%d)", i, len(vec.Elems))
	}
	return i - 1, nil
}

func typeName(v scope.Value) string {
	switch v.(type) {
	case Number:
		return "number"
	case Bool:
		return "boolean"
	case *Vector:
		return "vector"
	case *Function:
		return "function"
	case nil:
		return "nothing"
	}
	return "value"
}
