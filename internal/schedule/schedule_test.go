// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package schedule

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock records scheduled callbacks so tests decide when they fire.
type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *manualClock) afterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// fireAll runs every callback, including stopped ones, as a late
// time.AfterFunc would.
func (c *manualClock) fireAll() {
	c.mu.Lock()
	timers := append([]*manualTimer(nil), c.timers...)
	c.mu.Unlock()
	for _, t := range timers {
		t.f()
	}
}

func newManual(fn func()) (*Debouncer, *manualClock) {
	clock := &manualClock{}
	return New(50*time.Millisecond, fn, WithAfterFunc(clock.afterFunc)), clock
}

func TestTriggerCoalesces(t *testing.T) {
	var runs int
	d, clock := newManual(func() { runs++ })

	d.Trigger()
	d.Trigger()
	d.Trigger()
	require.Len(t, clock.timers, 3)
	assert.True(t, clock.timers[0].stopped)
	assert.True(t, clock.timers[1].stopped)
	assert.Equal(t, 50*time.Millisecond, clock.timers[2].d)

	// Superseded timers that fire late must not run.
	clock.fireAll()
	assert.Equal(t, 1, runs)
	assert.False(t, d.Pending())
}

func TestFlushRunsPending(t *testing.T) {
	var runs int
	d, clock := newManual(func() { runs++ })

	assert.False(t, d.Flush(), "nothing pending")
	d.Trigger()
	assert.True(t, d.Flush())
	assert.Equal(t, 1, runs)

	clock.fireAll()
	assert.Equal(t, 1, runs, "flushed timer must not fire again")
}

func TestCancel(t *testing.T) {
	var runs int
	d, clock := newManual(func() { runs++ })

	d.Trigger()
	d.Cancel()
	clock.fireAll()
	assert.Zero(t, runs)
	assert.False(t, d.Flush())
}

func TestStopIgnoresLaterTriggers(t *testing.T) {
	var runs int
	d, clock := newManual(func() { runs++ })

	d.Trigger()
	d.Stop()
	d.Trigger()
	clock.fireAll()
	assert.Zero(t, runs)
	assert.Len(t, clock.timers, 1)
}

func TestDefaultDelay(t *testing.T) {
	d := New(0, func() {})
	assert.Equal(t, DefaultDelay, d.Delay())
}

func TestRealTimerFires(t *testing.T) {
	var runs atomic.Int32
	done := make(chan struct{}, 1)
	d := New(5*time.Millisecond, func() {
		runs.Add(1)
		done <- struct{}{}
	})
	defer d.Stop()

	for i := 0; i < 5; i++ {
		d.Trigger()
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced function never ran")
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestRunsNeverOverlap(t *testing.T) {
	var active, maxActive atomic.Int32
	d, clock := newManual(func() {
		n := active.Add(1)
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		time.Sleep(time.Millisecond)
		active.Add(-1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		d.Trigger()
		clock.mu.Lock()
		last := clock.timers[len(clock.timers)-1]
		clock.mu.Unlock()
		wg.Add(2)
		go func() { defer wg.Done(); last.f() }()
		go func() { defer wg.Done(); d.Flush() }()
		wg.Wait()
	}
	assert.Equal(t, int32(1), maxActive.Load())
}
