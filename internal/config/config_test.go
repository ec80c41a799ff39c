// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"nickandperla.net/calcnb/internal/logging"
)

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("debounce: 50ms\nprecision: 6\nlogLevel: debug\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := Default()
	want.Debounce = 50 * time.Millisecond
	want.Precision = 6
	want.LogLevel = "debug"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.Level() != logging.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.Level())
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("expected defaults (-want +got):\n%s", diff)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []string{
		"precision: 0",
		"precision: 40",
		"debounce: -1s",
		"lineTimeout: -5ms",
		"documentKey: ''",
		"debounce: [1, 2]",
	}
	for _, in := range tests {
		if _, err := Parse([]byte(in)); err == nil {
			t.Errorf("expected %q to be rejected", in)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calcnb.yaml")
	if err := os.WriteFile(path, []byte("db: notes.db\ndocumentKey: scratch\nlineTimeout: 1s\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DB != "notes.db" || cfg.DocumentKey != "scratch" || cfg.LineTimeout != time.Second {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Debounce = 75 * time.Millisecond
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if diff := cmp.Diff(cfg, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
