// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package notebook

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"nickandperla.net/calcnb/internal/eval"
	"nickandperla.net/calcnb/internal/expr"
	"nickandperla.net/calcnb/internal/scope"
)

// countingRuntime records which lines reach Evaluate.
type countingRuntime struct {
	*eval.Runtime
	evaluated []string
}

func (c *countingRuntime) Evaluate(ctx context.Context, tree expr.Expr, sc *scope.Scope) (scope.Value, error) {
	c.evaluated = append(c.evaluated, tree.String())
	return c.Runtime.Evaluate(ctx, tree, sc)
}

func newTestEvaluator(opts ...Option) (*Evaluator, *countingRuntime) {
	rt := &countingRuntime{Runtime: eval.New()}
	return NewEvaluator(rt, opts...), rt
}

func texts(results []*Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Text
	}
	return out
}

func reused(results []*Result) []bool {
	out := make([]bool, len(results))
	for i, r := range results {
		out[i] = r.Reused
	}
	return out
}

func TestEndToEnd(t *testing.T) {
	ev, _ := newTestEvaluator()
	ctx := context.Background()

	results, _ := ev.Evaluate(ctx, "1.2 * (2 + 4.5)")
	if diff := cmp.Diff([]string{"7.8"}, texts(results)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	results, _ = ev.Evaluate(ctx, "a = 3\na * 2")
	if diff := cmp.Diff([]string{"3", "6"}, texts(results)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	results, _ = ev.Evaluate(ctx, "a = 10\na * 2")
	if diff := cmp.Diff([]string{"10", "20"}, texts(results)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestIdempotentPass(t *testing.T) {
	ev, rt := newTestEvaluator()
	ctx := context.Background()
	doc := "a = 1\nf(x) = x * a\n\nv = [1, 2]\nv[1] = 5\nf(v[1])\nbad +\n# note"

	first, stats := ev.Evaluate(ctx, doc)
	if stats.Evaluated != 7 || stats.Failed != 1 || stats.Lines != 7 {
		t.Fatalf("unexpected first pass stats %s", stats)
	}

	rt.evaluated = nil
	second, stats := ev.Evaluate(ctx, doc)
	if len(rt.evaluated) != 0 {
		t.Errorf("no-op pass evaluated %v", rt.evaluated)
	}
	if stats.Reused != len(second) {
		t.Errorf("expected every line reused, got %s", stats)
	}
	if diff := cmp.Diff(texts(first), texts(second)); diff != "" {
		t.Errorf("results changed on a no-op pass (-first +second):\n%s", diff)
	}
	if got := texts(second)[4]; got != "5" {
		t.Errorf("expected f(v[1]) = 5, got %q", got)
	}
}

func TestCascade(t *testing.T) {
	ev, rt := newTestEvaluator()
	ctx := context.Background()
	ev.Evaluate(ctx, "a = 1\nb = a + 1\nc = 10")

	rt.evaluated = nil
	results, _ := ev.Evaluate(ctx, "a = 2\nb = a + 1\nc = 10")

	if diff := cmp.Diff([]string{"2", "3", "10"}, texts(results)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{false, false, true}, reused(results)); diff != "" {
		t.Errorf("reuse mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a = 2", "b = (a + 1)"}, rt.evaluated); diff != "" {
		t.Errorf("evaluated lines mismatch (-want +got):\n%s", diff)
	}
	c, _ := ev.Scope().Get("b")
	if eval.Format(c, 0) != "3" {
		t.Errorf("final scope has b = %v", c)
	}
}

func TestIndependentOfUnrelatedEdits(t *testing.T) {
	ev, rt := newTestEvaluator()
	ctx := context.Background()
	ev.Evaluate(ctx, "x = 5\ny = 2\nx + 1")

	rt.evaluated = nil
	results, _ := ev.Evaluate(ctx, "x = 5\ny = 3\nx + 1")

	if diff := cmp.Diff([]bool{true, false, true}, reused(results)); diff != "" {
		t.Errorf("reuse mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"5", "3", "6"}, texts(results)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestReusedLineReplaysOntoCurrentScope(t *testing.T) {
	ev, _ := newTestEvaluator()
	ctx := context.Background()
	ev.Evaluate(ctx, "x = 1\ny = 2\nx + y")

	// y = 2 is reused but must not restore the old x into the scope.
	results, _ := ev.Evaluate(ctx, "x = 7\ny = 2\nx + y")
	if diff := cmp.Diff([]bool{false, true, false}, reused(results)); diff != "" {
		t.Errorf("reuse mismatch (-want +got):\n%s", diff)
	}
	if got := results[2].Text; got != "9" {
		t.Errorf("expected 9, got %q", got)
	}
}

func TestInsertedLineReusesByKey(t *testing.T) {
	ev, rt := newTestEvaluator()
	ctx := context.Background()
	ev.Evaluate(ctx, "a = 2\nb = a ^ 10\nb / 2")

	rt.evaluated = nil
	results, _ := ev.Evaluate(ctx, "q = 1\na = 2\nb = a ^ 10\nb / 2")

	if diff := cmp.Diff([]string{"1", "2", "1024", "512"}, texts(results)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"q = 1"}, rt.evaluated); diff != "" {
		t.Errorf("expected only the inserted line evaluated (-want +got):\n%s", diff)
	}
	if results[1].Line.Index != 1 || results[1].Line.Start != 6 {
		t.Errorf("reused result kept stale line %+v", results[1].Line)
	}
}

func TestEquivalentTextReuses(t *testing.T) {
	ev, rt := newTestEvaluator()
	ctx := context.Background()
	ev.Evaluate(ctx, "a=1+2")

	rt.evaluated = nil
	results, _ := ev.Evaluate(ctx, "a = 1 + 2  # spaced")
	if !results[0].Reused || len(rt.evaluated) != 0 {
		t.Errorf("expected structural reuse, evaluated %v", rt.evaluated)
	}
	if results[0].Line.Text != "a = 1 + 2  # spaced" {
		t.Errorf("reused result should carry the new line text, got %q", results[0].Line.Text)
	}
}

func TestFailuresAreLocal(t *testing.T) {
	ev, _ := newTestEvaluator()
	results, stats := ev.Evaluate(context.Background(), "a = 4\na = nope * 2\nb = (1\na + 1")

	if stats.Failed != 2 {
		t.Errorf("expected 2 failures, got %s", stats)
	}
	if got := results[3].Text; got != "5" {
		t.Errorf("expected a to survive the failed lines, got %q", got)
	}
	if KindOf(results[1].Failure) != EvaluationFailure {
		t.Errorf("expected evaluation failure, got %v", KindOf(results[1].Failure))
	}
	if KindOf(results[2].Failure) != ParseFailure {
		t.Errorf("expected parse failure, got %v", KindOf(results[2].Failure))
	}
	var se *eval.SyntaxError
	if !errors.As(results[2].Failure, &se) {
		t.Errorf("expected the syntax error to be reachable, got %T", results[2].Failure)
	}
	if !strings.HasPrefix(results[1].Text, "Error:") {
		t.Errorf("expected failure text, got %q", results[1].Text)
	}
}

func TestBlankLinesOmitted(t *testing.T) {
	ev, _ := newTestEvaluator()
	results, stats := ev.Evaluate(context.Background(), "\n  \n1\n\n2\n")
	if stats.Lines != 2 || len(results) != 2 {
		t.Fatalf("expected 2 results, got %d (%s)", len(results), stats)
	}
	if results[0].Line.Index != 2 || results[1].Line.Index != 4 {
		t.Errorf("results attached to wrong lines: %d, %d", results[0].Line.Index, results[1].Line.Index)
	}
}

func TestSnapshotsAreIsolated(t *testing.T) {
	ev, _ := newTestEvaluator()
	results, _ := ev.Evaluate(context.Background(), "v = [1, 2, 3]\nv[2] = 9\nv")

	before, _ := results[1].ScopeBefore.Get("v")
	after, _ := results[1].ScopeAfter.Get("v")
	if got := eval.Format(before, 0); got != "[1, 2, 3]" {
		t.Errorf("index assignment leaked into the previous snapshot: %s", got)
	}
	if got := eval.Format(after, 0); got != "[1, 9, 3]" {
		t.Errorf("unexpected snapshot after assignment: %s", got)
	}
	if results[2].Text != "[1, 9, 3]" {
		t.Errorf("unexpected result %q", results[2].Text)
	}
}

func TestScopeCloneRoundTrip(t *testing.T) {
	sc := scope.New()
	sc.Set("n", eval.Number(2))
	sc.Set("v", eval.NewVector(1, 2))
	clone := sc.Clone()
	if !scope.Equal(sc, clone) {
		t.Fatal("clone should equal original")
	}
	v, _ := clone.Get("v")
	v.(*eval.Vector).Elems[0] = 42
	if scope.Equal(sc, clone) {
		t.Error("mutating the clone changed the original")
	}
}

type slowRuntime struct{ *eval.Runtime }

func (s slowRuntime) Evaluate(ctx context.Context, tree expr.Expr, sc *scope.Scope) (scope.Value, error) {
	if tree.String() == "slow" {
		<-ctx.Done()
		return nil, eval.ErrTimeout
	}
	return s.Runtime.Evaluate(ctx, tree, sc)
}

func TestLineTimeout(t *testing.T) {
	ev := NewEvaluator(slowRuntime{eval.New()}, WithLineTimeout(10*time.Millisecond))
	results, stats := ev.Evaluate(context.Background(), "a = 1\nslow\na + 1")
	if stats.Failed != 1 {
		t.Fatalf("expected only the slow line to fail, got %s", stats)
	}
	if !errors.Is(results[1].Failure, eval.ErrTimeout) {
		t.Errorf("expected timeout, got %v", results[1].Failure)
	}
	if results[2].Text != "2" {
		t.Errorf("expected 2 after timeout, got %q", results[2].Text)
	}
}

type panicRuntime struct{ *eval.Runtime }

func (p panicRuntime) Evaluate(ctx context.Context, tree expr.Expr, sc *scope.Scope) (scope.Value, error) {
	if tree.String() == "boom" {
		panic("kaboom")
	}
	return p.Runtime.Evaluate(ctx, tree, sc)
}

func TestRuntimePanicFailsLine(t *testing.T) {
	ev := NewEvaluator(panicRuntime{eval.New()})
	results, stats := ev.Evaluate(context.Background(), "boom\n2")
	if stats.Failed != 1 || !strings.Contains(results[0].Text, "kaboom") {
		t.Errorf("expected contained panic, got %q (%s)", results[0].Text, stats)
	}
	if results[1].Text != "2" {
		t.Errorf("expected later lines to run, got %q", results[1].Text)
	}
}

func TestInitialScopeAndPrecision(t *testing.T) {
	initial := scope.New()
	initial.Set("rate", eval.Number(1)/eval.Number(3))
	ev, _ := newTestEvaluator(WithInitialScope(initial), WithPrecision(4))
	results, _ := ev.Evaluate(context.Background(), "rate * 2")
	if results[0].Text != "0.6667" {
		t.Errorf("expected 0.6667, got %q", results[0].Text)
	}
}

func TestResetForcesEvaluation(t *testing.T) {
	ev, rt := newTestEvaluator()
	ctx := context.Background()
	ev.Evaluate(ctx, "1 + 1")
	ev.Reset()
	rt.evaluated = nil
	_, stats := ev.Evaluate(ctx, "1 + 1")
	if stats.Evaluated != 1 || len(rt.evaluated) != 1 {
		t.Errorf("expected evaluation after reset, got %s", stats)
	}
}

// TestMatchesFreshEvaluation runs edit sequences through one evaluator and
// checks every pass against a new evaluator over the same text.
func TestMatchesFreshEvaluation(t *testing.T) {
	tests := []struct {
		name  string
		steps []string
	}{
		{
			name:  "redundant assignment",
			steps: []string{"a = 1\na = 1\na", "a = 5\na = 1\na", "a = 1\na = 1\na"},
		},
		{
			name:  "redundant index write",
			steps: []string{"v = [1, 2]\nv[1] = 1\nv", "v = [3, 4]\nv[1] = 1\nv", "v = [1, 4]\nv[1] = 1\nv"},
		},
		{
			name:  "identical function redefinition",
			steps: []string{"f(x) = x * 2\nf(x) = x * 2\nf(3)", "f(x) = x * 3\nf(x) = x * 2\nf(3)"},
		},
		{
			name:  "captured binding",
			steps: []string{"k = 2\ng(x) = x * k\nk = 2\ng(5)", "k = 3\ng(x) = x * k\nk = 2\ng(5)"},
		},
		{
			name:  "inserted and moved lines",
			steps: []string{"p = 2\nq = 3\np * q", "c = 9\np = 2\nq = 3\np * q", "q = 3\np = 2\np * q", "q = 4\np = 2\np * q"},
		},
		{
			name:  "blank and comment lines",
			steps: []string{"x = 2\n\n# note\nx ^ 2", "x = 3\n\n# note\nx ^ 2", "x = 3\n# note\n\nx ^ 2"},
		},
		{
			name:  "failure then fix",
			steps: []string{"y = 1 +\ny * 2", "y = 1\ny * 2", "y = 1\ny = zz\ny * 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ev := NewEvaluator(eval.New())
			for i, text := range tt.steps {
				got, _ := ev.Evaluate(ctx, text)

				fresh := NewEvaluator(eval.New())
				want, _ := fresh.Evaluate(ctx, text)

				if diff := cmp.Diff(texts(want), texts(got)); diff != "" {
					t.Errorf("step %d %q: results mismatch (-fresh +incremental):\n%s", i, text, diff)
				}
				if !scope.Equal(fresh.Scope(), ev.Scope()) {
					t.Errorf("step %d %q: final scope mismatch: fresh %v, incremental %v",
						i, text, fresh.Scope().Map(), ev.Scope().Map())
				}
			}
		})
	}
}

func TestRedundantAssignmentReplays(t *testing.T) {
	ev, rt := newTestEvaluator()
	ctx := context.Background()
	ev.Evaluate(ctx, "a = 1\na = 1\na")

	rt.evaluated = nil
	results, _ := ev.Evaluate(ctx, "a = 5\na = 1\na")
	if diff := cmp.Diff([]string{"5", "1", "1"}, texts(results)); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{false, true, true}, reused(results)); diff != "" {
		t.Errorf("reuse mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a = 5"}, rt.evaluated); diff != "" {
		t.Errorf("evaluated mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a"}, results[1].Writes.Names()); diff != "" {
		t.Errorf("writes mismatch (-want +got):\n%s", diff)
	}
}

// opaque has unexported state and no Equal method, so it cannot be
// compared structurally.
type opaque struct{ n float64 }

func (o opaque) Clone() scope.Value { return o }

func TestIncomparableValuesAreNotReused(t *testing.T) {
	initial := scope.FromMap(map[string]scope.Value{"o": opaque{n: 1}})
	ev, rt := newTestEvaluator(WithInitialScope(initial))
	ctx := context.Background()
	ev.Evaluate(ctx, "o")

	rt.evaluated = nil
	results, stats := ev.Evaluate(ctx, "o")
	if len(results) != 1 || results[0].Failed() {
		t.Fatalf("unexpected results %+v", results)
	}
	if stats.Reused != 0 || stats.Evaluated != 1 {
		t.Errorf("expected the line to be evaluated again, got %s", stats)
	}
	if diff := cmp.Diff([]string{"o"}, rt.evaluated); diff != "" {
		t.Errorf("evaluated mismatch (-want +got):\n%s", diff)
	}
}
