// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"nickandperla.net/calcnb/internal/scope"
)

func evalLines(t *testing.T, r *Runtime, sc *scope.Scope, lines ...string) []string {
	t.Helper()
	var out []string
	for _, line := range lines {
		v, err := r.EvalString(context.Background(), line, sc)
		if err != nil {
			out = append(out, err.Error())
			continue
		}
		out = append(out, r.Format(v, DefaultPrecision))
	}
	return out
}

func TestEvaluateExpressions(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"precedence", "1.2 * (2 + 4.5)", "7.8"},
		{"power right assoc", "2 ^ 3 ^ 2", "512"},
		{"unary binds looser than power", "-2 ^ 2", "-4"},
		{"unary in exponent", "2 ^ -1", "0.5"},
		{"modulo floored", "-7 % 3", "2"},
		{"hex literal", "0x1f + 1", "32"},
		{"exponent literal", "2e3 / 4", "500"},
		{"division by zero", "1 / 0", "Infinity"},
		{"comparison", "3 > 2", "true"},
		{"constant", "round(pi, 4)", "3.1416"},
		{"builtin", "sqrt(16) + abs(-2)", "6"},
		{"log base", "log(8, 2)", "3"},
		{"vector literal", "[1, 2, 3] * 2", "[2, 4, 6]"},
		{"dot product", "[1, 2, 3] * [4, 5, 6]", "32"},
		{"vector index", "[10, 20, 30][2]", "20"},
		{"vector reduce", "sum([1, 2, 3]) + max(4, 9, 2)", "15"},
		{"mean", "mean([1, 2, 3, 4])", "2.5"},
		{"float noise trimmed", "0.1 + 0.2", "0.3"},
		{"large exponent", "2 ^ 80", "1.2089258196146e+24"},
		{"small exponent", "0.0001 * 1.5", "1.5e-4"},
		{"comment only", "# nothing here", ""},
		{"trailing comment", "1 + 1 # two", "2"},
	}

	r := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalLines(t, r, scope.New(), tt.in)
			if got[0] != tt.want {
				t.Errorf("%q: expected %q, got %q", tt.in, tt.want, got[0])
			}
		})
	}
}

func TestAssignmentThreadsScope(t *testing.T) {
	r := New()
	sc := scope.New()
	got := evalLines(t, r, sc, "a = 3", "a * 2", "b = a + 1", "b")
	want := []string{"3", "6", "4", "4"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i+1, want[i], got[i])
		}
	}
	if names := strings.Join(sc.Names(), ","); names != "a,b" {
		t.Errorf("expected bindings a,b, got %s", names)
	}
}

func TestFunctionsCaptureByValue(t *testing.T) {
	r := New()
	sc := scope.New()
	got := evalLines(t, r, sc,
		"k = 2",
		"f(x) = x * k",
		"f(5)",
		"k = 100",
		"f(5)",
		"fact(n) = n <= 1 ? 1 : 0", // no conditional operator
		"g(n) = n * 2 + f(n)",
		"g(1)",
	)
	if got[1] != "f(x)" {
		t.Errorf("expected function to format as f(x), got %q", got[1])
	}
	if got[2] != "10" || got[4] != "10" {
		t.Errorf("expected f to keep captured k=2, got %q and %q", got[2], got[4])
	}
	if !strings.HasPrefix(got[5], "SyntaxError") {
		t.Errorf("expected syntax error for '?', got %q", got[5])
	}
	if got[7] != "4" {
		t.Errorf("expected g(1) = 4, got %q", got[7])
	}
}

func TestRecursionDepthLimit(t *testing.T) {
	r := New(WithMaxDepth(8))
	sc := scope.New()
	got := evalLines(t, r, sc, "loop(n) = loop(n + 1)", "loop(1)")
	if !strings.Contains(got[1], "Maximum call depth") {
		t.Errorf("expected depth error, got %q", got[1])
	}
}

func TestEvaluateRespectsContext(t *testing.T) {
	r := New()
	sc := scope.New()
	evalLines(t, r, sc, "f(x) = x + 1")

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := r.EvalString(ctx, "f(1)", sc)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	var evalErr *EvalError
	if !errors.As(err, &evalErr) {
		t.Errorf("expected *EvalError, got %T", err)
	}
}

func TestFailureLeavesScopeUntouched(t *testing.T) {
	r := New()
	sc := scope.New()
	evalLines(t, r, sc, "v = [1, 2, 3]", "a = 1")
	before := sc.Clone()

	for _, line := range []string{"a = undefinedThing + 1", "v[7] = 1", "v[1] = [1]", "a = (1"} {
		if _, err := r.EvalString(context.Background(), line, sc); err == nil {
			t.Fatalf("expected %q to fail", line)
		}
	}
	if !scope.Equal(before, sc) {
		t.Errorf("scope changed after failed evaluations: %v", sc.Map())
	}
}

func TestIndexAssignMutatesInPlace(t *testing.T) {
	r := New()
	sc := scope.New()
	got := evalLines(t, r, sc, "v = [1, 2, 3]", "v[2] = 20", "v")
	if got[1] != "20" || got[2] != "[1, 20, 3]" {
		t.Errorf("unexpected results %v", got)
	}
}

func TestAssignedValueDoesNotAliasScope(t *testing.T) {
	r := New()
	sc := scope.New()
	v, err := r.EvalString(context.Background(), "v = [1, 2]", sc)
	if err != nil {
		t.Fatal(err)
	}
	v.(*Vector).Elems[0] = 99
	bound, _ := sc.Get("v")
	if got := Format(bound, 0); got != "[1, 2]" {
		t.Errorf("mutating the result changed the binding: %s", got)
	}
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		in      string
		wantMsg string
	}{
		{"1 +", "Unexpected end of expression"},
		{"(1 + 2", "Parenthesis ) expected"},
		{"3 = 4", "Invalid left hand side"},
		{"f(1) = 2", "Invalid parameter list"},
		{"2 $ 3", "Unexpected"},
		{"[1, 2", "Parenthesis ] expected"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := Parse(tt.in)
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("expected *SyntaxError, got %v", err)
			}
			if !strings.Contains(se.Msg, tt.wantMsg) {
				t.Errorf("expected message containing %q, got %q", tt.wantMsg, se.Msg)
			}
		})
	}
}

func TestUndefinedSymbol(t *testing.T) {
	r := New()
	got := evalLines(t, r, scope.New(), "x + 1", "nope(2)", "sin")
	if got[0] != "Error: Undefined symbol x" {
		t.Errorf("unexpected error text %q", got[0])
	}
	if got[1] != "Error: Undefined function nope" {
		t.Errorf("unexpected error text %q", got[1])
	}
	if !strings.Contains(got[2], "must be called") {
		t.Errorf("unexpected error text %q", got[2])
	}
}
