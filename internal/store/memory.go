// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package store

import (
	"sync"
	"time"
)

// Memory is an in-memory store.
type Memory struct {
	mu       sync.RWMutex
	data     map[string][]VersionEntry
	metadata map[string]string
	now      func() time.Time
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data:     make(map[string][]VersionEntry),
		metadata: make(map[string]string),
		now:      time.Now,
	}
}

// Get retrieves the latest text by name.
func (m *Memory) Get(name string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := m.data[name]
	if len(versions) == 0 {
		return "", false, nil
	}
	return versions[len(versions)-1].Value, true, nil
}

// Put appends a revision unless text equals the latest one.
func (m *Memory) Put(name, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	versions := m.data[name]
	if n := len(versions); n > 0 && versions[n-1].Value == text {
		return nil
	}
	m.data[name] = append(versions, VersionEntry{
		Version: len(versions) + 1,
		Value:   text,
		Ts:      timestamp(m.now),
	})
	return nil
}

// Delete removes a document and its history.
func (m *Memory) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, name)
	return nil
}

// GetHistory returns revisions newest first.
func (m *Memory) GetHistory(name string, limit int) ([]VersionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := m.data[name]
	if len(versions) == 0 {
		return nil, nil
	}
	n := len(versions)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]VersionEntry, 0, n)
	for i := len(versions) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, versions[i])
	}
	return out, nil
}

// Close is a no-op for memory store.
func (m *Memory) Close() error {
	return nil
}

// GetMetadata retrieves a metadata value by key.
func (m *Memory) GetMetadata(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metadata[key], nil
}

// SetMetadata stores a metadata value by key.
func (m *Memory) SetMetadata(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[key] = value
	return nil
}
