// Released under an MIT license. See LICENSE.

package parser

import (
	"github.com/michaelmacinnis/enclave/internal/common/struct/token"
	"github.com/michaelmacinnis/enclave/internal/reader/ast"
)

// patterns parses the pattern of a case clause. A bare comma separated list
// is an open sequence pattern.
func (p *parser) patterns() ast.Pattern {
	pos := p.at()

	first := p.maybeStarPattern()
	if !p.peek().Op(",") {
		if _, ok := first.(*ast.MatchStar); ok {
			p.failAt(first, "can't use starred pattern here")
		}

		return first
	}

	s := &ast.MatchSequence{Pos: pos, Patterns: []ast.Pattern{first}}

	for p.peek().Op(",") {
		p.consume()

		if p.peek().Op(":") || p.peek().Word("if") {
			break
		}

		s.Patterns = append(s.Patterns, p.maybeStarPattern())
	}

	p.checkStars(s)

	return s
}

func (p *parser) checkStars(s *ast.MatchSequence) {
	seen := false

	for _, e := range s.Patterns {
		if _, ok := e.(*ast.MatchStar); ok {
			if seen {
				p.failAt(e, "multiple starred names in sequence pattern")
			}

			seen = true
		}
	}
}

func (p *parser) maybeStarPattern() ast.Pattern {
	if !p.peek().Op("*") {
		return p.pattern()
	}

	pos := p.at()

	p.consume()

	name := p.name()
	if name == "_" {
		name = ""
	}

	return &ast.MatchStar{Pos: pos, Name: name}
}

// pattern parses an or-pattern optionally bound with "as".
func (p *parser) pattern() ast.Pattern {
	pos := p.at()

	e := p.orPattern()

	if p.peek().Word("as") {
		p.consume()

		name := p.name()
		if name == "_" {
			p.failAt(pos, "cannot use '_' as a target")
		}

		return &ast.MatchAs{Pos: pos, Pattern: e, Name: name}
	}

	return e
}

func (p *parser) orPattern() ast.Pattern {
	pos := p.at()

	first := p.closedPattern()
	if !p.peek().Op("|") {
		return first
	}

	o := &ast.MatchOr{Pos: pos, Patterns: []ast.Pattern{first}}

	for p.peek().Op("|") {
		p.consume()

		o.Patterns = append(o.Patterns, p.closedPattern())
	}

	for _, e := range o.Patterns[:len(o.Patterns)-1] {
		if irrefutable(e) {
			p.failAt(e, "wildcard makes remaining patterns unreachable")
		}
	}

	return o
}

//nolint:cyclop,funlen
func (p *parser) closedPattern() ast.Pattern {
	pos := p.at()
	t := p.peek()

	switch {
	case t.Word("None"):
		p.consume()

		return &ast.MatchSingleton{Pos: pos, Value: nil}
	case t.Word("True"):
		p.consume()

		return &ast.MatchSingleton{Pos: pos, Value: true}
	case t.Word("False"):
		p.consume()

		return &ast.MatchSingleton{Pos: pos, Value: false}
	case t.Is(token.Number) || t.Op("-"):
		return &ast.MatchValue{Pos: pos, Value: p.signedNumber()}
	case t.Is(token.String, token.Bytes):
		return &ast.MatchValue{Pos: pos, Value: p.strings()}
	case t.Is(token.FString):
		p.fail("patterns may only match literals and attribute lookups")
	case t.Op("("):
		return p.groupPattern()
	case t.Op("["):
		p.consume()

		s := &ast.MatchSequence{Pos: pos}

		for !p.peek().Op("]") {
			s.Patterns = append(s.Patterns, p.maybeStarPattern())

			if !p.peek().Op(",") {
				break
			}

			p.consume()
		}

		p.expectOp("]")
		p.checkStars(s)

		return s
	case t.Op("{"):
		return p.mappingPattern()
	case t.Is(token.Name):
		return p.namePattern()
	}

	p.unexpected()

	return nil
}

func (p *parser) signedNumber() ast.Expr {
	pos := p.at()

	if p.peek().Op("-") {
		p.consume()

		if p.minInt() {
			p.consume()

			return &ast.Constant{Pos: pos, Value: int64(-1 << 63)}
		}

		t := p.expect(token.Number)

		return &ast.UnaryOp{Pos: pos, Op: "-", Operand: &ast.Constant{Pos: pos, Value: p.number(t)}}
	}

	t := p.expect(token.Number)

	return &ast.Constant{Pos: pos, Value: p.number(t)}
}

func (p *parser) groupPattern() ast.Pattern {
	pos := p.at()

	p.consume()

	if p.peek().Op(")") {
		p.consume()

		return &ast.MatchSequence{Pos: pos}
	}

	first := p.maybeStarPattern()

	if p.peek().Op(")") {
		p.consume()

		if _, ok := first.(*ast.MatchStar); ok {
			p.failAt(first, "can't use starred pattern here")
		}

		return first
	}

	s := &ast.MatchSequence{Pos: pos, Patterns: []ast.Pattern{first}}

	for p.peek().Op(",") {
		p.consume()

		if p.peek().Op(")") {
			break
		}

		s.Patterns = append(s.Patterns, p.maybeStarPattern())
	}

	p.expectOp(")")
	p.checkStars(s)

	return s
}

func (p *parser) mappingPattern() ast.Pattern {
	pos := p.at()

	p.consume()

	m := &ast.MatchMapping{Pos: pos}

	for !p.peek().Op("}") {
		if p.peek().Op("**") {
			p.consume()

			m.Rest = p.name()
			if m.Rest == "_" {
				p.failAt(pos, "cannot use '_' as a target")
			}

			if p.peek().Op(",") {
				p.consume()
			}

			if !p.peek().Op("}") {
				p.fail("double star pattern must be last")
			}

			break
		}

		m.Keys = append(m.Keys, p.mappingKey())

		p.expectOp(":")

		m.Patterns = append(m.Patterns, p.pattern())

		if !p.peek().Op(",") {
			break
		}

		p.consume()
	}

	p.expectOp("}")

	return m
}

func (p *parser) mappingKey() ast.Expr {
	pos := p.at()
	t := p.peek()

	switch {
	case t.Word("None"):
		p.consume()

		return &ast.Constant{Pos: pos, Value: nil}
	case t.Word("True"):
		p.consume()

		return &ast.Constant{Pos: pos, Value: true}
	case t.Word("False"):
		p.consume()

		return &ast.Constant{Pos: pos, Value: false}
	case t.Is(token.Number) || t.Op("-"):
		return p.signedNumber()
	case t.Is(token.String, token.Bytes):
		return p.strings()
	case t.Is(token.Name):
		e := p.dottedValue()
		if _, ok := e.(*ast.Attribute); !ok {
			p.failAt(e, "mapping pattern keys may only match literals and attribute lookups")
		}

		return e
	}

	p.unexpected()

	return nil
}

// dottedValue parses a name followed by zero or more attribute lookups.
func (p *parser) dottedValue() ast.Expr {
	pos := p.at()

	var e ast.Expr = &ast.Name{Pos: pos, ID: p.name()}

	for p.peek().Op(".") {
		p.consume()

		e = &ast.Attribute{Pos: pos, Value: e, Attr: p.name()}
	}

	return e
}

//nolint:funlen
func (p *parser) namePattern() ast.Pattern {
	pos := p.at()

	e := p.dottedValue()

	if !p.peek().Op("(") {
		if n, ok := e.(*ast.Name); ok {
			if n.ID == "_" {
				return &ast.MatchAs{Pos: pos}
			}

			return &ast.MatchAs{Pos: pos, Name: n.ID}
		}

		return &ast.MatchValue{Pos: pos, Value: e}
	}

	p.consume()

	c := &ast.MatchClass{Pos: pos, Cls: e}

	for !p.peek().Op(")") {
		if p.peek().Is(token.Name) && p.peekAt(1).Op("=") {
			c.KwdAttrs = append(c.KwdAttrs, p.name())

			p.consume() // =

			c.KwdPatterns = append(c.KwdPatterns, p.pattern())
		} else {
			if len(c.KwdAttrs) > 0 {
				p.fail("positional patterns follow keyword patterns")
			}

			c.Patterns = append(c.Patterns, p.pattern())
		}

		if !p.peek().Op(",") {
			break
		}

		p.consume()
	}

	p.expectOp(")")

	seen := map[string]bool{}

	for _, k := range c.KwdAttrs {
		if seen[k] {
			p.failAt(c, "attribute name repeated in class pattern: %s", k)
		}

		seen[k] = true
	}

	return c
}

func irrefutable(e ast.Pattern) bool {
	switch e := e.(type) {
	case *ast.MatchAs:
		return e.Pattern == nil || irrefutable(e.Pattern)
	case *ast.MatchOr:
		for _, sub := range e.Patterns {
			if irrefutable(sub) {
				return true
			}
		}
	}

	return false
}
