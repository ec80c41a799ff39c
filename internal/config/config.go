// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package config loads calcnb settings from YAML.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"nickandperla.net/calcnb/internal/logging"
)

// Config holds the tunable settings of a notebook session.
type Config struct {
	// Debounce is the quiet interval before a recompute pass.
	Debounce time.Duration `yaml:"debounce"`
	// Precision is the number of significant digits shown.
	Precision int `yaml:"precision"`
	// LineTimeout bounds the evaluation of one line.
	LineTimeout time.Duration `yaml:"lineTimeout"`
	// DB is the SQLite database path. Empty disables persistence.
	DB string `yaml:"db"`
	// DocumentKey is the name the document is stored under.
	DocumentKey string `yaml:"documentKey"`
	LogLevel    string `yaml:"logLevel"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Debounce:    300 * time.Millisecond,
		Precision:   14,
		LineTimeout: 250 * time.Millisecond,
		DB:          "calcnb.db",
		DocumentKey: "calcnb.document",
		LogLevel:    "warn",
	}
}

// Level returns the parsed log level.
func (c Config) Level() logging.Level {
	return logging.ParseLevel(c.LogLevel)
}

// Validate reports settings that cannot be used.
func (c Config) Validate() error {
	switch {
	case c.Debounce < 0:
		return fmt.Errorf("debounce must not be negative, got %s", c.Debounce)
	case c.LineTimeout < 0:
		return fmt.Errorf("lineTimeout must not be negative, got %s", c.LineTimeout)
	case c.Precision < 1 || c.Precision > 17:
		return fmt.Errorf("precision must be between 1 and 17, got %d", c.Precision)
	case c.DocumentKey == "":
		return fmt.Errorf("documentKey must not be empty")
	}
	return nil
}

// Parse decodes YAML over the defaults. Keys absent from data keep their
// default values.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads the YAML config at URL, which may be a plain path or any
// scheme afs supports.
func Load(ctx context.Context, URL string) (Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", URL, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", URL, err)
	}
	return cfg, nil
}

// Marshal encodes the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(struct {
		Debounce    string `yaml:"debounce"`
		Precision   int    `yaml:"precision"`
		LineTimeout string `yaml:"lineTimeout"`
		DB          string `yaml:"db"`
		DocumentKey string `yaml:"documentKey"`
		LogLevel    string `yaml:"logLevel"`
	}{c.Debounce.String(), c.Precision, c.LineTimeout.String(), c.DB, c.DocumentKey, c.LogLevel})
}
