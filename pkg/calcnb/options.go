// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package calcnb

import (
	"time"

	"nickandperla.net/calcnb/internal/logging"
	"nickandperla.net/calcnb/internal/notebook"
	"nickandperla.net/calcnb/internal/schedule"
	"nickandperla.net/calcnb/internal/store"
)

// Option configures a Session.
type Option func(*Session)

// WithSQLiteStore configures SQLite persistence at the given path.
func WithSQLiteStore(path string) Option {
	return func(s *Session) {
		st, err := store.NewSQLite(path)
		if err != nil {
			s.initErr = err
			return
		}
		s.store = st
	}
}

// WithMemoryStore configures an in-memory store (for testing).
func WithMemoryStore() Option {
	return func(s *Session) {
		s.store = store.NewMemory()
	}
}

// WithStore configures a custom store.
func WithStore(st Store) Option {
	return func(s *Session) {
		s.store = st
	}
}

// WithDocumentKey sets the name the document is persisted under.
func WithDocumentKey(key string) Option {
	return func(s *Session) {
		s.docKey = key
	}
}

// WithRuntime replaces the expression runtime.
func WithRuntime(rt Runtime) Option {
	return func(s *Session) {
		s.rt = rt
	}
}

// WithDebounce sets the quiet interval between an edit and the pass it
// triggers.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) {
		s.debounce = d
	}
}

// WithPrecision sets the number of significant digits shown in results.
func WithPrecision(n int) Option {
	return func(s *Session) {
		s.precision = n
	}
}

// WithLineTimeout bounds the evaluation of each line.
func WithLineTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.lineTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// WithOnResults registers a callback invoked after every pass that
// changed the displayed results. It runs with the session unlocked.
func WithOnResults(cb func(Update)) Option {
	return func(s *Session) {
		s.onResults = cb
	}
}

// WithInitialText starts the session from text instead of the stored
// document.
func WithInitialText(text string) Option {
	return func(s *Session) {
		s.initialText = &text
	}
}

// WithPrelude sets a custom prelude evaluated before the first line.
// If not set, stdlib.Prelude is used.
func WithPrelude(source string) Option {
	return func(s *Session) {
		s.prelude = source
	}
}

// WithNoPrelude starts notebooks from an empty scope.
func WithNoPrelude() Option {
	return func(s *Session) {
		s.noPrelude = true
	}
}

// WithAfterFunc replaces the scheduler's timer source (for testing).
func WithAfterFunc(f schedule.AfterFunc) Option {
	return func(s *Session) {
		s.afterFunc = f
	}
}

// Store interface for custom stores.
type Store = store.Store

// Runtime interface for custom expression languages.
type Runtime = notebook.Runtime

// Result is the outcome of one line.
type Result = notebook.Result

// Stats summarizes a pass.
type Stats = notebook.Stats
