// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package store persists notebook documents.
package store

import (
	"time"

	"github.com/itchyny/timefmt-go"
)

// DefaultKey is the name the notebook document is stored under.
const DefaultKey = "calcnb.document"

// Store is the interface for document persistence.
type Store interface {
	// Get retrieves the latest text stored under name. ok is false if
	// nothing is stored.
	Get(name string) (text string, ok bool, err error)
	// Put stores text under name. Storing the current text again is a no-op.
	Put(name, text string) error
	// Delete removes name and its history.
	Delete(name string) error
	// Close releases resources.
	Close() error
}

// VersionEntry is one stored revision of a document.
type VersionEntry struct {
	Version int
	Value   string
	Ts      string
}

// HistoryStore extends Store with revision history queries.
type HistoryStore interface {
	// GetHistory returns up to limit revisions, newest first. A limit of
	// zero or less returns every revision.
	GetHistory(name string, limit int) ([]VersionEntry, error)
}

// tsLayout is the strftime layout of VersionEntry.Ts.
const tsLayout = "%Y-%m-%d %H:%M:%S"

func timestamp(now func() time.Time) string {
	return timefmt.Format(now().UTC(), tsLayout)
}

// ParseTimestamp parses a VersionEntry timestamp.
func ParseTimestamp(ts string) (time.Time, error) {
	return timefmt.Parse(ts, tsLayout)
}
