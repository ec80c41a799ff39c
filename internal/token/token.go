// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package token defines calcnb expression token types.
package token

// Token represents an expression token type.
type Token int

const (
	EOF Token = iota
	ILLEGAL

	NUMBER // 1.5, 2e3, 0x1f
	IDENT  // a, total_cost, sin

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	CARET   // ^
	ASSIGN  // =
	EQ      // ==
	NEQ     // !=
	LT      // <
	LTE     // <=
	GT      // >
	GTE     // >=

	// Delimiters
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	COMMA    // ,
)

var names = map[Token]string{
	EOF:      "EOF",
	ILLEGAL:  "ILLEGAL",
	NUMBER:   "NUMBER",
	IDENT:    "IDENT",
	PLUS:     "+",
	MINUS:    "-",
	STAR:     "*",
	SLASH:    "/",
	PERCENT:  "%",
	CARET:    "^",
	ASSIGN:   "=",
	EQ:       "==",
	NEQ:      "!=",
	LT:       "<",
	LTE:      "<=",
	GT:       ">",
	GTE:      ">=",
	LPAREN:   "(",
	RPAREN:   ")",
	LBRACKET: "[",
	RBRACKET: "]",
	COMMA:    ",",
}

// String returns the string representation of a token.
func (t Token) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// Precedence returns the binding power of a binary operator, or 0 if the
// token is not a binary operator. Higher binds tighter.
func (t Token) Precedence() int {
	switch t {
	case EQ, NEQ, LT, LTE, GT, GTE:
		return 1
	case PLUS, MINUS:
		return 2
	case STAR, SLASH, PERCENT:
		return 3
	case CARET:
		return 5
	}
	return 0
}

// IsRightAssoc returns true for right-associative binary operators.
func (t Token) IsRightAssoc() bool {
	return t == CARET
}

// IsComparison returns true if the token compares two operands.
func (t Token) IsComparison() bool {
	switch t {
	case EQ, NEQ, LT, LTE, GT, GTE:
		return true
	}
	return false
}
