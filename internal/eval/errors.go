// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"errors"
	"fmt"
)

// ErrTimeout is wrapped by the EvalError returned when a line's evaluation
// context is done before evaluation completes.
var ErrTimeout = errors.New("evaluation exceeded time limit")

// SyntaxError reports text that is not valid in the expression grammar.
type SyntaxError struct {
	Msg string
	Pos int // Byte offset within the line
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("SyntaxError: %s (char %d)", e.Msg, e.Pos+1)
}

// EvalError reports a failure while evaluating a parsed expression.
type EvalError struct {
	Msg string
	Err error
}

func (e *EvalError) Error() string {
	return "Error: " + e.Msg
}

func (e *EvalError) Unwrap() error { return e.Err }

func evalErrorf(format string, args ...any) error {
	return &EvalError{Msg: fmt.Sprintf(format, args...)}
}

func syntaxErrorf(pos int, format string, args ...any) error {
	return &SyntaxError{Msg: fmt.Sprintf(format, args...), Pos: pos}
}
