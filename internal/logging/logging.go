// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package logging provides the leveled logger used across calcnb.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/itchyny/timefmt-go"
)

// Level is the severity of a log line.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name. Unknown names map to LevelWarn.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LevelError
	case "WARN", "WARNING":
		return LevelWarn
	case "INFO":
		return LevelInfo
	case "DEBUG":
		return LevelDebug
	default:
		return LevelWarn
	}
}

// Logger is the logging interface used by the notebook components.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	// With returns a child logger carrying the given fields on every line.
	With(fields map[string]any) Logger
}

// timestampLayout is a strftime layout.
const timestampLayout = "%Y-%m-%dT%H:%M:%SZ"

// format renders one line: [LEVEL] ts msg k1=v1 k2=v2
func format(ts time.Time, level Level, msg string, fields map[string]any, stamp bool) []byte {
	var b strings.Builder
	b.Grow(128)

	b.WriteByte('[')
	b.WriteString(level.String())
	b.WriteString("] ")
	if stamp {
		b.WriteString(timefmt.Format(ts.UTC(), timestampLayout))
		b.WriteByte(' ')
	}
	b.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte(' ')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(sprint(fields[k]))
		}
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func sprint(v any) string {
	switch t := v.(type) {
	case string:
		if strings.IndexFunc(t, func(r rune) bool { return r <= ' ' }) >= 0 {
			return fmt.Sprintf("%q", t)
		}
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

type textLogger struct {
	out    io.Writer
	level  Level
	stamp  bool
	fields map[string]any
	mu     *sync.Mutex
	now    func() time.Time
}

// New creates a text logger writing lines at or above level to w.
// If w is nil, os.Stderr is used.
func New(level Level, w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	return &textLogger{
		out:    w,
		level:  level,
		stamp:  true,
		fields: map[string]any{},
		mu:     &sync.Mutex{},
		now:    time.Now,
	}
}

// NewPlain is like New but omits timestamps.
func NewPlain(level Level, w io.Writer) Logger {
	l := New(level, w).(*textLogger)
	l.stamp = false
	return l
}

func (l *textLogger) Enabled(level Level) bool { return level <= l.level }

func (l *textLogger) With(fields map[string]any) Logger {
	if len(fields) == 0 {
		return l
	}
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	child := *l
	child.fields = merged
	return &child
}

func (l *textLogger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *textLogger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *textLogger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *textLogger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

func (l *textLogger) logf(level Level, f string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	line := format(l.now(), level, fmt.Sprintf(f, args...), l.fields, l.stamp)

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(line)
}

type noop struct{}

func (noop) Debugf(string, ...any)        {}
func (noop) Infof(string, ...any)         {}
func (noop) Warnf(string, ...any)         {}
func (noop) Errorf(string, ...any)        {}
func (n noop) With(map[string]any) Logger { return n }

// Nop returns a logger that discards everything.
func Nop() Logger { return noop{} }
