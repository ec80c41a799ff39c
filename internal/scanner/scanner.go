// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package scanner provides a streaming Unicode-aware lexer for calcnb
// expressions.
package scanner

import (
	"bufio"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"nickandperla.net/calcnb/internal/token"
)

// Scanner tokenizes expression input rune-by-rune.
type Scanner struct {
	reader *bufio.Reader
	buf    strings.Builder
	peeked *Item
	pos    int // Byte offset of the next unread rune
	last   int // Width of the last read rune, for unread
}

// Item represents a scanned token with its value.
type Item struct {
	Token token.Token
	Value string
	Pos   int // Byte offset where this token started
}

// New creates a new Scanner from an io.Reader.
func New(r io.Reader) *Scanner {
	return &Scanner{reader: bufio.NewReader(r)}
}

// NewFromString creates a new Scanner from a string.
func NewFromString(s string) *Scanner {
	return New(strings.NewReader(s))
}

// Pos returns the byte offset of the next unread rune.
func (s *Scanner) Pos() int {
	return s.pos
}

// Peek returns the next item without consuming it.
func (s *Scanner) Peek() (*Item, error) {
	if s.peeked != nil {
		return s.peeked, nil
	}
	item, err := s.Next()
	if err != nil {
		return nil, err
	}
	s.peeked = item
	return item, nil
}

func (s *Scanner) read() (rune, error) {
	r, size, err := s.reader.ReadRune()
	if err != nil {
		return 0, err
	}
	s.pos += size
	s.last = size
	return r, nil
}

func (s *Scanner) unread() {
	if s.reader.UnreadRune() == nil {
		s.pos -= s.last
	}
}

// Next returns the next token from the input. A '#' starts a comment that
// runs to the end of input.
func (s *Scanner) Next() (*Item, error) {
	if s.peeked != nil {
		item := s.peeked
		s.peeked = nil
		return item, nil
	}

	if err := s.skipWhitespace(); err != nil {
		return nil, err
	}

	start := s.pos
	r, err := s.read()
	if err == io.EOF {
		return &Item{Token: token.EOF, Pos: start}, nil
	}
	if err != nil {
		return nil, err
	}

	switch {
	case r == '#':
		if _, err := io.Copy(io.Discard, s.reader); err != nil {
			return nil, err
		}
		return &Item{Token: token.EOF, Pos: start}, nil
	case isDigit(r) || r == '.':
		s.unread()
		return s.scanNumber(start)
	case isIdentStart(r):
		s.unread()
		return s.scanIdent(start)
	}

	single := func(t token.Token) (*Item, error) {
		return &Item{Token: t, Value: string(r), Pos: start}, nil
	}
	double := func(next rune, two, one token.Token) (*Item, error) {
		n, err := s.read()
		if err == nil && n == next {
			return &Item{Token: two, Value: string(r) + string(n), Pos: start}, nil
		}
		if err == nil {
			s.unread()
		} else if err != io.EOF {
			return nil, err
		}
		return &Item{Token: one, Value: string(r), Pos: start}, nil
	}

	switch r {
	case '+':
		return single(token.PLUS)
	case '-':
		return single(token.MINUS)
	case '*':
		return single(token.STAR)
	case '/':
		return single(token.SLASH)
	case '%':
		return single(token.PERCENT)
	case '^':
		return single(token.CARET)
	case '(':
		return single(token.LPAREN)
	case ')':
		return single(token.RPAREN)
	case '[':
		return single(token.LBRACKET)
	case ']':
		return single(token.RBRACKET)
	case ',':
		return single(token.COMMA)
	case '=':
		return double('=', token.EQ, token.ASSIGN)
	case '<':
		return double('=', token.LTE, token.LT)
	case '>':
		return double('=', token.GTE, token.GT)
	case '!':
		return double('=', token.NEQ, token.ILLEGAL)
	}
	return &Item{Token: token.ILLEGAL, Value: string(r), Pos: start}, nil
}

// scanNumber reads a decimal or hexadecimal literal. The value is validated
// by the parser; the scanner only collects the characters.
func (s *Scanner) scanNumber(start int) (*Item, error) {
	s.buf.Reset()
	r, err := s.read()
	if err != nil {
		return nil, err
	}
	s.buf.WriteRune(r)

	if r == '0' {
		if n, err := s.read(); err == nil {
			if n == 'x' || n == 'X' {
				s.buf.WriteRune(n)
				if err := s.collect(isHexDigit); err != nil {
					return nil, err
				}
				return &Item{Token: token.NUMBER, Value: s.buf.String(), Pos: start}, nil
			}
			s.unread()
		} else if err != io.EOF {
			return nil, err
		}
	}

	seenDot := r == '.'
	seenExp := false
	for {
		r, err := s.read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch {
		case isDigit(r):
		case r == '.' && !seenDot && !seenExp:
			seenDot = true
		case (r == 'e' || r == 'E') && !seenExp:
			seenExp = true
			s.buf.WriteRune(r)
			sign, err := s.read()
			if err == nil && (sign == '+' || sign == '-') {
				s.buf.WriteRune(sign)
			} else if err == nil {
				s.unread()
			} else if err != io.EOF {
				return nil, err
			}
			continue
		default:
			s.unread()
			return &Item{Token: token.NUMBER, Value: s.buf.String(), Pos: start}, nil
		}
		s.buf.WriteRune(r)
	}
	return &Item{Token: token.NUMBER, Value: s.buf.String(), Pos: start}, nil
}

func (s *Scanner) scanIdent(start int) (*Item, error) {
	s.buf.Reset()
	if err := s.collect(isIdentChar); err != nil {
		return nil, err
	}
	return &Item{Token: token.IDENT, Value: s.buf.String(), Pos: start}, nil
}

func (s *Scanner) collect(accept func(rune) bool) error {
	for {
		r, err := s.read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !accept(r) {
			s.unread()
			return nil
		}
		s.buf.WriteRune(r)
	}
}

func (s *Scanner) skipWhitespace() error {
	for {
		r, err := s.read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !unicode.IsSpace(r) {
			s.unread()
			return nil
		}
	}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isIdentStart(r rune) bool {
	return r == '_' || (r != utf8.RuneError && unicode.IsLetter(r))
}

// isIdentChar returns true if the rune is valid in an identifier (letter, digit, underscore).
func isIdentChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
