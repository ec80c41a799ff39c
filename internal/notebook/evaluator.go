// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package notebook implements incremental re-evaluation of a calculator
// notebook: the document is split into lines, each line is evaluated
// against the scope produced by the lines above it, and results from the
// previous pass are reused when neither a line's text nor the variables it
// reads have changed.
package notebook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nickandperla.net/calcnb/internal/expr"
	"nickandperla.net/calcnb/internal/logging"
	"nickandperla.net/calcnb/internal/scope"
)

// DefaultLineTimeout bounds the evaluation of a single line.
const DefaultLineTimeout = 250 * time.Millisecond

// Runtime is the expression language the notebook evaluates.
type Runtime interface {
	// Parse parses one line. Blank or comment-only text yields an empty tree.
	Parse(text string) (expr.Expr, error)
	// Evaluate runs a tree against sc, binding any assignments into sc.
	Evaluate(ctx context.Context, tree expr.Expr, sc *scope.Scope) (scope.Value, error)
	// Format renders a value with the given number of significant digits.
	Format(v scope.Value, precision int) string
	// Symbols returns the names the tree reads from its scope.
	Symbols(tree expr.Expr) []string
	// Targets returns every name the tree binds when evaluated, including
	// bindings whose value does not change.
	Targets(tree expr.Expr) []string
	// Equal reports structural equality of two trees.
	Equal(a, b expr.Expr) bool
}

// FailureKind classifies a line failure.
type FailureKind int

const (
	NoFailure FailureKind = iota
	ParseFailure
	EvaluationFailure
)

func (k FailureKind) String() string {
	switch k {
	case ParseFailure:
		return "parse"
	case EvaluationFailure:
		return "evaluation"
	}
	return "none"
}

// Failure is a line's parse or evaluation error.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string { return f.Err.Error() }
func (f *Failure) Unwrap() error { return f.Err }

// KindOf returns the failure kind of err, or NoFailure.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	if err != nil {
		return EvaluationFailure
	}
	return NoFailure
}

// Result is the outcome of evaluating one non-blank line.
type Result struct {
	Line Line
	Tree expr.Expr
	// Key is the canonical form of Tree, empty on parse failure.
	Key string

	ScopeBefore *scope.Scope
	ScopeAfter  *scope.Scope
	// Writes holds every binding the line assigned, changed or not.
	Writes *scope.Scope

	Value       scope.Value
	Failure     error
	UsedSymbols []string
	// Text is the display form: the formatted value or the failure message.
	Text   string
	Reused bool
}

// Failed reports whether the line failed to parse or evaluate.
func (r *Result) Failed() bool { return r.Failure != nil }

// Stats summarizes one pass.
type Stats struct {
	Lines     int
	Reused    int
	Evaluated int
	Failed    int
}

func (s Stats) String() string {
	return fmt.Sprintf("lines=%d reused=%d evaluated=%d failed=%d", s.Lines, s.Reused, s.Evaluated, s.Failed)
}

// Evaluator runs incremental passes over a document. It is not safe for
// concurrent use.
type Evaluator struct {
	rt          Runtime
	initial     *scope.Scope
	precision   int
	lineTimeout time.Duration
	log         logging.Logger

	prev  map[int]*Result
	byKey map[string]*Result
	final *scope.Scope
	pass  int
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithInitialScope sets the scope threaded into the first line.
func WithInitialScope(sc *scope.Scope) Option {
	return func(e *Evaluator) { e.initial = sc.Clone() }
}

// WithPrecision sets the number of significant digits in Result.Text.
func WithPrecision(n int) Option {
	return func(e *Evaluator) { e.precision = n }
}

// WithLineTimeout bounds each line's evaluation. Zero disables the bound.
func WithLineTimeout(d time.Duration) Option {
	return func(e *Evaluator) { e.lineTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Evaluator) { e.log = l }
}

// NewEvaluator creates an evaluator over rt.
func NewEvaluator(rt Runtime, opts ...Option) *Evaluator {
	e := &Evaluator{
		rt:          rt,
		initial:     scope.New(),
		lineTimeout: DefaultLineTimeout,
		log:         logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reset forgets the previous pass so that every line is evaluated again.
func (e *Evaluator) Reset() {
	e.prev = nil
	e.byKey = nil
	e.final = nil
}

// Scope returns a copy of the scope produced by the last line of the most
// recent pass.
func (e *Evaluator) Scope() *scope.Scope {
	if e.final == nil {
		return e.initial.Clone()
	}
	return e.final.Clone()
}

// Evaluate splits text into lines and evaluates them.
func (e *Evaluator) Evaluate(ctx context.Context, text string) ([]*Result, Stats) {
	return e.EvaluateLines(ctx, Split(text))
}

// EvaluateLines runs one pass over lines. Blank lines produce no result.
// Results of this pass become the memoization input of the next one.
func (e *Evaluator) EvaluateLines(ctx context.Context, lines []Line) ([]*Result, Stats) {
	e.pass++
	var (
		stats   Stats
		results = make([]*Result, 0, len(lines))
		prev    = make(map[int]*Result, len(lines))
		byKey   = make(map[string]*Result, len(lines))
		sc      = e.initial.Clone()
	)

	for _, line := range lines {
		if line.Blank() {
			continue
		}
		stats.Lines++

		before := sc
		tree, parseErr := e.rt.Parse(line.Text)
		var used []string
		key := ""
		if parseErr == nil {
			used = e.rt.Symbols(tree)
			key = tree.String()
		}

		var res *Result
		if cand := e.candidate(line, tree, key, used, before, parseErr); cand != nil {
			res = e.reuse(cand, line, before)
			sc = res.ScopeAfter.Clone()
			stats.Reused++
		} else {
			res = e.evaluate(ctx, line, tree, key, used, before, parseErr)
			sc = res.ScopeAfter.Clone()
			stats.Evaluated++
		}
		if res.Failed() {
			stats.Failed++
		}

		results = append(results, res)
		prev[line.Index] = res
		if key != "" {
			if _, ok := byKey[key]; !ok {
				byKey[key] = res
			}
		}
	}

	e.prev = prev
	e.byKey = byKey
	e.final = sc
	e.log.Debugf("pass %d: %s", e.pass, stats)
	return results, stats
}

// candidate finds a previous result whose transition can be replayed for
// line: same text or same tree, and the same values for every symbol the
// line reads. The result at the same line index is tried first.
func (e *Evaluator) candidate(line Line, tree expr.Expr, key string, used []string, before *scope.Scope, parseErr error) *Result {
	try := func(c *Result) bool {
		if c == nil {
			return false
		}
		sameText := c.Line.Text == line.Text
		if !sameText {
			if parseErr != nil || c.Tree == nil || !e.rt.Equal(c.Tree, tree) {
				return false
			}
		}
		return e.sameInputs(before, c.ScopeBefore, used)
	}

	if c := e.prev[line.Index]; try(c) {
		return c
	}
	if key == "" {
		return nil
	}
	if c := e.byKey[key]; c != e.prev[line.Index] && try(c) {
		return c
	}
	return nil
}

// sameInputs compares the used bindings of two scopes. Values that cannot
// be compared make the line not reusable instead of failing the pass.
func (e *Evaluator) sameInputs(a, b *scope.Scope, used []string) (same bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warnf("cannot compare scope values: %v", r)
			same = false
		}
	}()
	return scope.Equal(a.Filter(used), b.Filter(used))
}

func (e *Evaluator) reuse(cand *Result, line Line, before *scope.Scope) *Result {
	after := before.Clone()
	after.Apply(cand.Writes)

	res := *cand
	res.Line = line
	res.ScopeBefore = before
	res.ScopeAfter = after
	res.Reused = true
	res.Text = e.display(&res)
	return &res
}

func (e *Evaluator) evaluate(ctx context.Context, line Line, tree expr.Expr, key string, used []string, before *scope.Scope, parseErr error) *Result {
	res := &Result{
		Line:        line,
		Tree:        tree,
		Key:         key,
		ScopeBefore: before,
		UsedSymbols: used,
	}
	if parseErr != nil {
		res.Failure = &Failure{Kind: ParseFailure, Err: parseErr}
		res.ScopeAfter = before
		res.Writes = scope.New()
		res.Text = e.display(res)
		return res
	}

	work := before.Clone()
	v, err := e.run(ctx, tree, work)
	if err != nil {
		e.log.Debugf("line %d failed: %v", line.Index+1, err)
		res.Failure = &Failure{Kind: EvaluationFailure, Err: err}
		res.ScopeAfter = before
		res.Writes = scope.New()
	} else {
		res.Value = v
		res.ScopeAfter = work
		res.Writes = work.Filter(e.rt.Targets(tree)).Clone()
	}
	res.Text = e.display(res)
	return res
}

// run evaluates one line under the line deadline. A panicking runtime
// fails only the line.
func (e *Evaluator) run(ctx context.Context, tree expr.Expr, work *scope.Scope) (v scope.Value, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.lineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.lineTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("Error: %v", r)
		}
	}()
	return e.rt.Evaluate(ctx, tree, work)
}

func (e *Evaluator) display(r *Result) string {
	if r.Failure != nil {
		return r.Failure.Error()
	}
	return e.rt.Format(r.Value, e.precision)
}
