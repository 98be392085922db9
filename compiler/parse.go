package compiler

import (
	"strconv"
	"strings"
	"text/scanner"

	"github.com/pkg/errors"
)

// Parse parses a single expression:
//
//	expr = ["-"] int | "true" | "false" | name
//	     | name "(" [expr {"," expr}] ")"
//	     | "let" name "=" expr "in" expr "end"
func Parse(src string) (Expr, error) {
	p := &parser{}
	p.s.Init(strings.NewReader(src))
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.SkipComments | scanner.ScanComments
	p.s.Error = func(s *scanner.Scanner, msg string) {
		p.fail(s.Position, msg)
	}
	p.next()

	e := p.expr()
	if p.err == nil && p.tok != scanner.EOF {
		p.fail(p.s.Position, "unexpected "+p.describe())
	}
	if p.err != nil {
		return nil, p.err
	}
	return e, nil
}

var keywords = map[string]bool{
	"true":  true,
	"false": true,
	"let":   true,
	"in":    true,
	"end":   true,
}

type parser struct {
	s   scanner.Scanner
	tok rune
	err error
}

func (p *parser) next() {
	p.tok = p.s.Scan()
}

// Only the first error is kept, the rest tend to be follow-ups.
func (p *parser) fail(pos scanner.Position, msg string) {
	if p.err == nil {
		p.err = errors.Errorf("%d:%d: %s", pos.Line, pos.Column, msg)
	}
}

func (p *parser) describe() string {
	if p.tok == scanner.EOF {
		return "end of input"
	}
	return strconv.Quote(p.s.TokenText())
}

func (p *parser) expect(tok rune) {
	if p.tok != tok {
		p.fail(p.s.Position, "expected "+scanner.TokenString(tok)+", found "+p.describe())
		return
	}
	p.next()
}

func (p *parser) expr() Expr {
	if p.err != nil {
		return nil
	}
	switch p.tok {
	case '-':
		p.next()
		if p.tok != scanner.Int {
			p.fail(p.s.Position, "expected integer after '-', found "+p.describe())
			return nil
		}
		return p.integer("-")
	case scanner.Int:
		return p.integer("")
	case scanner.Ident:
		name := p.s.TokenText()
		pos := p.s.Position
		p.next()
		switch name {
		case "true", "false":
			return &BoolLit{Value: name == "true"}
		case "let":
			return p.let()
		case "in", "end":
			p.fail(pos, "unexpected "+name)
			return nil
		}
		if p.tok != '(' {
			return &Var{Name: name}
		}
		p.next()
		call := &Call{Func: name}
		for p.err == nil && p.tok != ')' {
			if len(call.Args) > 0 {
				p.expect(',')
			}
			call.Args = append(call.Args, p.expr())
		}
		p.expect(')')
		return call
	}
	p.fail(p.s.Position, "unexpected "+p.describe())
	return nil
}

func (p *parser) integer(sign string) Expr {
	v, err := strconv.ParseInt(sign+p.s.TokenText(), 0, 64)
	if err != nil {
		p.fail(p.s.Position, "bad integer "+sign+p.s.TokenText())
		return nil
	}
	p.next()
	return &IntLit{Value: v}
}

func (p *parser) let() Expr {
	if p.tok != scanner.Ident || keywords[p.s.TokenText()] {
		p.fail(p.s.Position, "expected name after let, found "+p.describe())
		return nil
	}
	e := &Let{Name: p.s.TokenText()}
	p.next()
	p.expect('=')
	e.Value = p.expr()
	p.keyword("in")
	e.Body = p.expr()
	p.keyword("end")
	return e
}

func (p *parser) keyword(kw string) {
	if p.err != nil {
		return
	}
	if p.tok != scanner.Ident || p.s.TokenText() != kw {
		p.fail(p.s.Position, "expected "+kw+", found "+p.describe())
		return
	}
	p.next()
}
