// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package calcnb provides the public API for calculator notebooks: a
// document whose lines are evaluated incrementally as it is edited, with
// result markers that stay anchored to their lines between passes.
package calcnb

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"nickandperla.net/calcnb/internal/eval"
	"nickandperla.net/calcnb/internal/logging"
	"nickandperla.net/calcnb/internal/notebook"
	"nickandperla.net/calcnb/internal/overlay"
	"nickandperla.net/calcnb/internal/schedule"
	"nickandperla.net/calcnb/internal/scope"
	"nickandperla.net/calcnb/internal/stdlib"
	"nickandperla.net/calcnb/internal/store"
)

// PreludeKey is the store key that, when present, replaces the built-in
// prelude.
const PreludeKey = "calcnb.prelude"

// Change is an edit to the document.
type Change = overlay.Change

// Marker is a result anchored at a document offset.
type Marker = overlay.Marker

// Update describes the outcome of a pass.
type Update struct {
	Results []*Result
	// Changed lists marker indices whose display differs from before.
	Changed []int
	Markers []Marker
	Stats   Stats
	// Skipped is set when the document was unchanged and no line ran.
	Skipped bool
}

// Session is a live notebook. All methods are safe for concurrent use;
// operations are serialized.
type Session struct {
	mu sync.Mutex

	rt          Runtime
	ev          *notebook.Evaluator
	tracker     overlay.Tracker
	sched       *schedule.Debouncer
	store       Store
	log         logging.Logger
	onResults   func(Update)
	docKey      string
	precision   int
	debounce    time.Duration
	lineTimeout time.Duration
	prelude     string
	noPrelude   bool
	initialText *string
	afterFunc   schedule.AfterFunc
	initErr     error

	text     string
	results  []*Result
	stats    Stats
	lastSum  uint64
	hashed   bool
	storeErr error

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a session. The document is taken from WithInitialText or,
// failing that, from the store; one pass is run before New returns.
func New(opts ...Option) (*Session, error) {
	s := &Session{
		docKey:      store.DefaultKey,
		precision:   eval.DefaultPrecision,
		debounce:    schedule.DefaultDelay,
		lineTimeout: notebook.DefaultLineTimeout,
		log:         logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.initErr != nil {
		return nil, fmt.Errorf("open store: %w", s.initErr)
	}
	if s.rt == nil {
		s.rt = eval.New()
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	initial := s.loadPrelude()
	s.ev = notebook.NewEvaluator(s.rt,
		notebook.WithInitialScope(initial),
		notebook.WithPrecision(s.precision),
		notebook.WithLineTimeout(s.lineTimeout),
		notebook.WithLogger(s.log),
	)

	var schedOpts []schedule.Option
	if s.afterFunc != nil {
		schedOpts = append(schedOpts, schedule.WithAfterFunc(s.afterFunc))
	}
	s.sched = schedule.New(s.debounce, func() { s.Recompute(s.ctx) }, schedOpts...)

	switch {
	case s.initialText != nil:
		s.text = *s.initialText
	case s.store != nil:
		text, ok, err := s.store.Get(s.docKey)
		if err != nil {
			s.cancel()
			return nil, fmt.Errorf("load document %q: %w", s.docKey, err)
		}
		if ok {
			s.text = text
		}
	}

	s.Recompute(s.ctx)
	return s, nil
}

// loadPrelude evaluates the prelude and returns the scope it produces.
// A stored prelude overrides the configured one.
func (s *Session) loadPrelude() *scope.Scope {
	if s.noPrelude {
		return scope.New()
	}
	src := s.prelude
	if src == "" {
		src = stdlib.Prelude
	}
	if s.store != nil {
		if text, ok, err := s.store.Get(PreludeKey); err == nil && ok {
			src = text
		}
	}

	ev := notebook.NewEvaluator(s.rt, notebook.WithLineTimeout(s.lineTimeout))
	results, stats := ev.Evaluate(s.ctx, src)
	for _, r := range results {
		if r.Failed() {
			s.log.Warnf("prelude line %d: %s", r.Line.Index+1, r.Text)
		}
	}
	s.log.Debugf("prelude loaded: %s", stats)
	return ev.Scope()
}

// Text returns the current document.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Edit applies changes in order, shifts the result markers through them
// and schedules a pass. Either every change applies or none does.
func (s *Session) Edit(changes ...Change) error {
	s.mu.Lock()
	text := s.text
	for i, c := range changes {
		if err := c.Check(len(text)); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("change %d: %w", i, err)
		}
		text = c.Apply(text)
	}
	s.text = text
	s.tracker.Shift(changes...)
	s.mu.Unlock()

	s.sched.Trigger()
	return nil
}

// Replace replaces the byte range [from, to) with text.
func (s *Session) Replace(from, to int, text string) error {
	s.mu.Lock()
	c, err := overlay.Replace(s.text, from, to, text)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Edit(c)
}

// SetText replaces the whole document.
func (s *Session) SetText(text string) error {
	s.mu.Lock()
	c, err := overlay.Replace(s.text, 0, len(s.text), text)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Edit(c)
}

// AppendLine adds a line at the end of the document and returns its
// index.
func (s *Session) AppendLine(line string) (int, error) {
	s.mu.Lock()
	doc := s.text
	s.mu.Unlock()

	insert := line
	if doc != "" {
		insert = "\n" + line
	}
	c, err := overlay.Insert(doc, len(doc), insert)
	if err != nil {
		return 0, err
	}
	if err := s.Edit(c); err != nil {
		return 0, err
	}
	return len(notebook.Split(doc + insert)) - 1, nil
}

// SetOnResults replaces the callback registered with WithOnResults.
func (s *Session) SetOnResults(cb func(Update)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResults = cb
}

// Flush runs a pending pass now. It reports whether one was pending.
func (s *Session) Flush() bool {
	return s.sched.Flush()
}

// Recompute runs a pass immediately. A pass over a document identical to
// the previous one evaluates nothing; it only restores markers that edits
// may have dropped.
func (s *Session) Recompute(ctx context.Context) Update {
	s.mu.Lock()
	upd, notify := s.passLocked(ctx)
	cb := s.onResults
	s.mu.Unlock()

	if notify && cb != nil {
		cb(upd)
	}
	return upd
}

// Reevaluate discards every cached result and evaluates all lines again.
func (s *Session) Reevaluate(ctx context.Context) Update {
	s.mu.Lock()
	s.ev.Reset()
	s.hashed = false
	s.mu.Unlock()
	return s.Recompute(ctx)
}

func (s *Session) passLocked(ctx context.Context) (Update, bool) {
	sum, err := fingerprint(s.text)
	if err != nil {
		s.log.Warnf("fingerprint: %v", err)
	}

	if err == nil && s.hashed && sum == s.lastSum {
		changed := s.tracker.Install(s.results)
		upd := Update{
			Results: s.results,
			Changed: changed,
			Markers: s.tracker.Markers(),
			Stats:   s.stats,
			Skipped: true,
		}
		return upd, len(changed) > 0
	}

	results, stats := s.ev.Evaluate(ctx, s.text)
	s.results = results
	s.stats = stats
	s.lastSum, s.hashed = sum, err == nil
	changed := s.tracker.Install(results)
	s.log.With(map[string]any{"changed": len(changed)}).Debugf("pass: %s", stats)

	s.persistLocked()
	return Update{
		Results: results,
		Changed: changed,
		Markers: s.tracker.Markers(),
		Stats:   stats,
	}, true
}

func (s *Session) persistLocked() {
	if s.store == nil {
		return
	}
	if err := s.store.Put(s.docKey, s.text); err != nil {
		s.storeErr = err
		s.log.Errorf("persist %q: %v", s.docKey, err)
		return
	}
	s.storeErr = nil
}

// Results returns the results of the last pass.
func (s *Session) Results() []*Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Result(nil), s.results...)
}

// Stats returns the statistics of the last pass that evaluated.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Markers returns the current result markers.
func (s *Session) Markers() []Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Markers()
}

// Scope returns a copy of the bindings after the last line.
func (s *Session) Scope() *scope.Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ev.Scope()
}

// Names returns the bound variable names followed by the runtime's
// builtin names, deduplicated and sorted.
func (s *Session) Names() []string {
	names := s.Scope().Names()
	if n, ok := s.rt.(interface{ Names() []string }); ok {
		names = append(names, n.Names()...)
	}
	sort.Strings(names)
	out := names[:0]
	for i, name := range names {
		if i == 0 || name != names[i-1] {
			out = append(out, name)
		}
	}
	return out
}

// Format renders a value with the session's precision.
func (s *Session) Format(v scope.Value) string {
	return s.rt.Format(v, s.precision)
}

// History returns stored revisions of the document, newest first. It
// returns nil if the store keeps no history.
func (s *Session) History(limit int) ([]store.VersionEntry, error) {
	hs, ok := s.store.(store.HistoryStore)
	if !ok {
		return nil, nil
	}
	return hs.GetHistory(s.docKey, limit)
}

// Err returns the last persistence error, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeErr
}

// Close runs any pending pass, stops the scheduler and releases the store.
func (s *Session) Close() error {
	s.sched.Flush()
	s.sched.Stop()
	s.cancel()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
