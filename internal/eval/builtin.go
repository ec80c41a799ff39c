// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"math"

	"nickandperla.net/calcnb/internal/scope"
)

// builtin is the signature for builtin functions. Arguments are already
// evaluated.
type builtin func(args []scope.Value) (scope.Value, error)

func builtins() map[string]builtin {
	return map[string]builtin{
		"sin":   unary("sin", math.Sin),
		"cos":   unary("cos", math.Cos),
		"tan":   unary("tan", math.Tan),
		"asin":  unary("asin", math.Asin),
		"acos":  unary("acos", math.Acos),
		"atan":  unary("atan", math.Atan),
		"sqrt":  unary("sqrt", math.Sqrt),
		"cbrt":  unary("cbrt", math.Cbrt),
		"abs":   unary("abs", math.Abs),
		"exp":   unary("exp", math.Exp),
		"log10": unary("log10", math.Log10),
		"log2":  unary("log2", math.Log2),
		"floor": unary("floor", math.Floor),
		"ceil":  unary("ceil", math.Ceil),
		"log":   builtinLog,
		"round": builtinRound,
		"min":   reduce("min", math.Inf(1), math.Min),
		"max":   reduce("max", math.Inf(-1), math.Max),
		"sum":   reduce("sum", 0, func(a, b float64) float64 { return a + b }),
		"mean":  builtinMean,
		"size":  builtinSize,
	}
}

// unary lifts a float function to numbers and vectors.
func unary(name string, f func(float64) float64) builtin {
	return func(args []scope.Value) (scope.Value, error) {
		if len(args) != 1 {
			return nil, arity(name, len(args), "1")
		}
		return mapNumeric(args[0], f)
	}
}

// reduce folds its arguments, or the elements of a single vector argument.
func reduce(name string, init float64, f func(a, b float64) float64) builtin {
	return func(args []scope.Value) (scope.Value, error) {
		xs, err := flatten(name, args)
		if err != nil {
			return nil, err
		}
		acc := init
		for _, x := range xs {
			acc = f(acc, x)
		}
		return Number(acc), nil
	}
}

func builtinMean(args []scope.Value) (scope.Value, error) {
	xs, err := flatten("mean", args)
	if err != nil {
		return nil, err
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return Number(sum / float64(len(xs))), nil
}

func builtinLog(args []scope.Value) (scope.Value, error) {
	switch len(args) {
	case 1:
		return mapNumeric(args[0], math.Log)
	case 2:
		base, ok := asFloat(args[1])
		if !ok {
			return nil, evalErrorf("Function log expects a numeric base, got %s", typeName(args[1]))
		}
		lb := math.Log(base)
		return mapNumeric(args[0], func(x float64) float64 { return math.Log(x) / lb })
	}
	return nil, arity("log", len(args), "1-2")
}

func builtinRound(args []scope.Value) (scope.Value, error) {
	switch len(args) {
	case 1:
		return mapNumeric(args[0], math.Round)
	case 2:
		n, ok := asFloat(args[1])
		if !ok || n != math.Trunc(n) || n < 0 || n > 15 {
			return nil, evalErrorf("Number of decimals in function round must be an integer from 0 to 15")
		}
		p := math.Pow(10, n)
		return mapNumeric(args[0], func(x float64) float64 { return math.Round(x*p) / p })
	}
	return nil, arity("round", len(args), "1-2")
}

func builtinSize(args []scope.Value) (scope.Value, error) {
	if len(args) != 1 {
		return nil, arity("size", len(args), "1")
	}
	if vec, ok := args[0].(*Vector); ok {
		return Number(len(vec.Elems)), nil
	}
	return Number(1), nil
}

func flatten(name string, args []scope.Value) ([]float64, error) {
	if len(args) == 0 {
		return nil, arity(name, 0, "at least 1")
	}
	var xs []float64
	for _, a := range args {
		if vec, ok := a.(*Vector); ok {
			xs = append(xs, vec.Elems...)
			continue
		}
		x, ok := asFloat(a)
		if !ok {
			return nil, evalErrorf("Function %s expects numbers, got %s", name, typeName(a))
		}
		xs = append(xs, x)
	}
	if len(xs) == 0 {
		return nil, evalErrorf("Function %s called with an empty vector", name)
	}
	return xs, nil
}

func arity(name string, got int, want string) error {
	return evalErrorf("Wrong number of arguments in function %s (%d provided, %s expected)", name, got, want)
}
