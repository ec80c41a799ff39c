// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package schedule debounces recomputation requests.
package schedule

import (
	"sync"
	"time"
)

// DefaultDelay is the quiescence interval before a triggered run fires.
const DefaultDelay = 300 * time.Millisecond

// Timer is the part of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// AfterFunc starts a timer that calls f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Debouncer runs a function once input has been quiet for a delay. Every
// Trigger supersedes the previous one; a superseded timer never runs the
// function. Runs never overlap.
type Debouncer struct {
	delay     time.Duration
	fn        func()
	afterFunc AfterFunc

	mu      sync.Mutex
	gen     uint64
	timer   Timer
	pending bool
	stopped bool

	run sync.Mutex
	wg  sync.WaitGroup
}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithAfterFunc replaces the timer source, for tests.
func WithAfterFunc(f AfterFunc) Option {
	return func(d *Debouncer) { d.afterFunc = f }
}

// New creates a debouncer that calls fn after delay of quiescence.
// A non-positive delay uses DefaultDelay.
func New(delay time.Duration, fn func(), opts ...Option) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	d := &Debouncer{delay: delay, fn: fn, afterFunc: realAfterFunc}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Delay returns the quiescence interval.
func (d *Debouncer) Delay() time.Duration { return d.delay }

// Trigger (re)starts the quiescence timer.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopTimerLocked()
	d.gen++
	gen := d.gen
	d.pending = true
	d.timer = d.afterFunc(d.delay, func() { d.fire(gen) })
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Flush runs a pending run immediately on the calling goroutine. It
// returns false if nothing was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if !d.pending || d.stopped {
		d.mu.Unlock()
		return false
	}
	d.stopTimerLocked()
	d.gen++
	d.pending = false
	d.wg.Add(1)
	d.mu.Unlock()

	d.execute()
	return true
}

// Cancel discards a pending run.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopTimerLocked()
	d.gen++
	d.pending = false
}

// Stop cancels any pending run and waits briefly for a running one to
// finish. Later Triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopTimerLocked()
	d.gen++
	d.pending = false
	d.stopped = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.pending || d.stopped {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.wg.Add(1)
	d.mu.Unlock()

	d.execute()
}

func (d *Debouncer) execute() {
	defer d.wg.Done()
	d.run.Lock()
	defer d.run.Unlock()
	d.fn()
}

func (d *Debouncer) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
