// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"strconv"
	"strings"

	"nickandperla.net/calcnb/internal/expr"
	"nickandperla.net/calcnb/internal/scanner"
	"nickandperla.net/calcnb/internal/token"
)

// unaryPrecedence sits between multiplication and exponentiation, so
// -2^2 is -(2^2) while -2*3 is (-2)*3.
const unaryPrecedence = 4

// Parse parses a single line into a syntax tree. Blank and comment-only
// lines parse to expr.Empty.
func Parse(text string) (expr.Expr, error) {
	p := &parser{s: scanner.NewFromString(text)}
	return p.statement()
}

type parser struct {
	s *scanner.Scanner
}

func (p *parser) peek() (*scanner.Item, error) { return p.s.Peek() }
func (p *parser) next() (*scanner.Item, error) { return p.s.Next() }

func (p *parser) expect(t token.Token, what string) (*scanner.Item, error) {
	item, err := p.next()
	if err != nil {
		return nil, err
	}
	if item.Token != t {
		if item.Token == token.EOF {
			return nil, syntaxErrorf(item.Pos, "%s expected, unexpected end of expression", what)
		}
		return nil, syntaxErrorf(item.Pos, "%s expected", what)
	}
	return item, nil
}

// statement parses an expression and, if it is followed by '=', converts
// it into the matching assignment form.
func (p *parser) statement() (expr.Expr, error) {
	first, err := p.peek()
	if err != nil {
		return nil, err
	}
	if first.Token == token.EOF {
		return expr.Empty{}, nil
	}

	lhs, err := p.expression(1)
	if err != nil {
		return nil, err
	}

	item, err := p.next()
	if err != nil {
		return nil, err
	}
	switch item.Token {
	case token.EOF:
		return lhs, nil
	case token.ASSIGN:
	default:
		return nil, syntaxErrorf(item.Pos, "Unexpected %q", item.Value)
	}

	rhs, err := p.expression(1)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.EOF, "End of expression"); err != nil {
		return nil, err
	}

	switch target := lhs.(type) {
	case expr.Symbol:
		return expr.Assign{Name: target.Name, Value: rhs}, nil
	case expr.Index:
		if sym, ok := target.X.(expr.Symbol); ok {
			return expr.IndexAssign{Name: sym.Name, Index: target.Index, Value: rhs}, nil
		}
	case expr.Call:
		params := make([]string, 0, len(target.Args))
		seen := make(map[string]bool, len(target.Args))
		for _, arg := range target.Args {
			sym, ok := arg.(expr.Symbol)
			if !ok || seen[sym.Name] {
				return nil, syntaxErrorf(first.Pos, "Invalid parameter list of function %s", target.Name)
			}
			seen[sym.Name] = true
			params = append(params, sym.Name)
		}
		return expr.FuncDef{Name: target.Name, Params: params, Body: rhs}, nil
	}
	return nil, syntaxErrorf(first.Pos, "Invalid left hand side of assignment")
}

// expression parses binary operators by precedence climbing.
func (p *parser) expression(minPrec int) (expr.Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		item, err := p.peek()
		if err != nil {
			return nil, err
		}
		prec := item.Token.Precedence()
		if prec == 0 || prec < minPrec {
			return left, nil
		}
		p.next()
		nextMin := prec + 1
		if item.Token.IsRightAssoc() {
			nextMin = prec
		}
		right, err := p.expression(nextMin)
		if err != nil {
			return nil, err
		}
		left = expr.Binary{Op: item.Token, X: left, Y: right}
	}
}

func (p *parser) unary() (expr.Expr, error) {
	item, err := p.peek()
	if err != nil {
		return nil, err
	}
	if item.Token == token.MINUS || item.Token == token.PLUS {
		p.next()
		x, err := p.expression(unaryPrecedence)
		if err != nil {
			return nil, err
		}
		return expr.Unary{Op: item.Token, X: x}, nil
	}
	return p.postfix()
}

func (p *parser) postfix() (expr.Expr, error) {
	x, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		item, err := p.peek()
		if err != nil {
			return nil, err
		}
		if item.Token != token.LBRACKET {
			return x, nil
		}
		p.next()
		idx, err := p.expression(1)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBRACKET, "Parenthesis ]"); err != nil {
			return nil, err
		}
		x = expr.Index{X: x, Index: idx}
	}
}

func (p *parser) primary() (expr.Expr, error) {
	item, err := p.next()
	if err != nil {
		return nil, err
	}
	switch item.Token {
	case token.NUMBER:
		v, err := parseNumber(item.Value)
		if err != nil {
			return nil, syntaxErrorf(item.Pos, "Invalid number %q", item.Value)
		}
		return expr.Number{Value: v}, nil

	case token.IDENT:
		next, err := p.peek()
		if err != nil {
			return nil, err
		}
		if next.Token != token.LPAREN {
			return expr.Symbol{Name: item.Value}, nil
		}
		p.next()
		args, err := p.list(token.RPAREN, "Parenthesis )")
		if err != nil {
			return nil, err
		}
		return expr.Call{Name: item.Value, Args: args}, nil

	case token.LPAREN:
		x, err := p.expression(1)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN, "Parenthesis )"); err != nil {
			return nil, err
		}
		return x, nil

	case token.LBRACKET:
		elems, err := p.list(token.RBRACKET, "Parenthesis ]")
		if err != nil {
			return nil, err
		}
		return expr.Vector{Elems: elems}, nil

	case token.EOF:
		return nil, syntaxErrorf(item.Pos, "Unexpected end of expression")
	}
	return nil, syntaxErrorf(item.Pos, "Value expected")
}

// list parses comma-separated expressions up to the closing token.
func (p *parser) list(closing token.Token, what string) ([]expr.Expr, error) {
	var out []expr.Expr
	item, err := p.peek()
	if err != nil {
		return nil, err
	}
	if item.Token == closing {
		p.next()
		return out, nil
	}
	for {
		x, err := p.expression(1)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
		item, err := p.next()
		if err != nil {
			return nil, err
		}
		switch item.Token {
		case token.COMMA:
			continue
		case closing:
			return out, nil
		case token.EOF:
			return nil, syntaxErrorf(item.Pos, "%s expected, unexpected end of expression", what)
		default:
			return nil, syntaxErrorf(item.Pos, "%s expected", what)
		}
	}
}

func parseNumber(s string) (float64, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, err := strconv.ParseUint(s[2:], 16, 64)
		return float64(n), err
	}
	return strconv.ParseFloat(s, 64)
}
