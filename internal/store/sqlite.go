// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Current schema version
const SchemaVersion = "1"

// SQLite is a SQLite-backed store keeping every revision of a document.
type SQLite struct {
	mu  sync.Mutex
	db  *sql.DB
	now func() time.Time
}

// NewSQLite creates a new SQLite store at the given path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLite{db: db, now: time.Now}

	// Unlocked variants: nothing else can see s yet.
	version, err := s.getMetadataUnlocked("schema_version")
	if err != nil {
		db.Close()
		return nil, err
	}

	switch version {
	case "":
		if err := s.createSchema(); err != nil {
			db.Close()
			return nil, err
		}
		if err := s.setMetadataUnlocked("schema_version", SchemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	case SchemaVersion:
	default:
		db.Close()
		return nil, fmt.Errorf("unsupported schema version: %s (expected %s)", version, SchemaVersion)
	}

	return s, nil
}

func (s *SQLite) createSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			name TEXT NOT NULL,
			version INTEGER NOT NULL,
			value TEXT NOT NULL,
			ts TEXT NOT NULL,
			PRIMARY KEY (name, version)
		);
	`)
	return err
}

// Get retrieves the latest revision of a document.
func (s *SQLite) Get(name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	err := s.db.QueryRow(
		"SELECT value FROM documents WHERE name = ? ORDER BY version DESC LIMIT 1", name,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Put stores a new revision unless text equals the latest one.
func (s *SQLite) Put(name, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var (
		version int
		latest  string
	)
	err = tx.QueryRow(
		"SELECT version, value FROM documents WHERE name = ? ORDER BY version DESC LIMIT 1", name,
	).Scan(&version, &latest)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	case latest == text:
		return nil
	}

	_, err = tx.Exec(
		"INSERT INTO documents (name, version, value, ts) VALUES (?, ?, ?, ?)",
		name, version+1, text, timestamp(s.now),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a document and all of its revisions.
func (s *SQLite) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM documents WHERE name = ?", name)
	return err
}

// GetHistory returns revisions newest first.
func (s *SQLite) GetHistory(name string, limit int) ([]VersionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		"SELECT version, value, ts FROM documents WHERE name = ? ORDER BY version DESC LIMIT ?",
		name, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []VersionEntry
	for rows.Next() {
		var e VersionEntry
		if err := rows.Scan(&e.Version, &e.Value, &e.Ts); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetMetadata retrieves a metadata value by key.
func (s *SQLite) GetMetadata(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getMetadataUnlocked(key)
}

// getMetadataUnlocked retrieves metadata without locking (caller must hold lock).
func (s *SQLite) getMetadataUnlocked(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetMetadata stores a metadata value by key.
func (s *SQLite) SetMetadata(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setMetadataUnlocked(key, value)
}

// setMetadataUnlocked stores metadata without locking (caller must hold lock).
func (s *SQLite) setMetadataUnlocked(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
