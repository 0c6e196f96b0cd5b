// Released under an MIT license. See LICENSE.

package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/michaelmacinnis/enclave/internal/common/struct/token"
	"github.com/michaelmacinnis/enclave/internal/reader/ast"
)

// starExpressions parses a comma separated list that may contain starred
// items. More than one item, or a trailing comma, makes a tuple.
func (p *parser) starExpressions() ast.Expr {
	return p.commaList(p.starExpression)
}

func (p *parser) starNamedExpressions() ast.Expr {
	return p.commaList(func() ast.Expr {
		if p.peek().Op("*") {
			return p.starExpression()
		}

		return p.namedExpression()
	})
}

func (p *parser) commaList(item func() ast.Expr) ast.Expr {
	pos := p.at()

	first := item()
	if !p.peek().Op(",") {
		return first
	}

	elts := []ast.Expr{first}

	for p.peek().Op(",") {
		p.consume()

		if !p.startsExpression() {
			break
		}

		elts = append(elts, item())
	}

	return &ast.Tuple{Pos: pos, Elts: elts}
}

func (p *parser) startsExpression() bool {
	t := p.peek()

	switch {
	case t.Is(token.Name, token.Number, token.String, token.Bytes, token.FString):
		return true
	case t.Word("not", "lambda", "await", "None", "True", "False", "yield"):
		return true
	case t.Op("(", "[", "{", "-", "+", "~", "*", "...", "**"):
		return true
	}

	return false
}

func (p *parser) starExpression() ast.Expr {
	if p.peek().Op("*") {
		pos := p.at()
		p.consume()

		return &ast.Starred{Pos: pos, Value: p.bitwiseOr()}
	}

	return p.expression()
}

func (p *parser) namedExpression() ast.Expr {
	if p.peek().Is(token.Name) && p.peekAt(1).Op(":=") {
		pos := p.at()
		target := &ast.Name{Pos: pos, ID: p.name()}

		p.consume()

		return &ast.NamedExpr{Pos: pos, Target: target, Value: p.expression()}
	}

	return p.expression()
}

func (p *parser) expression() ast.Expr {
	if p.peek().Word("lambda") {
		return p.lambda()
	}

	pos := p.at()

	body := p.disjunction()

	if !p.peek().Word("if") {
		return body
	}

	p.consume()

	test := p.disjunction()

	p.expectWord("else")

	return &ast.IfExp{Pos: pos, Test: test, Body: body, Else: p.expression()}
}

func (p *parser) lambda() ast.Expr {
	pos := p.at()

	p.expectWord("lambda")

	args := p.parameters(":", false)

	p.expectOp(":")

	p.funcs = append(p.funcs, &function{})
	body := p.expression()
	p.funcs = p.funcs[:len(p.funcs)-1]

	return &ast.Lambda{Pos: pos, Args: args, Body: body}
}

func (p *parser) yieldExpression() ast.Expr {
	pos := p.at()

	p.expectWord("yield")

	if len(p.funcs) == 0 {
		p.failAt(pos, "'yield' outside function")
	}

	if p.peek().Word("from") {
		p.consume()

		return &ast.YieldFrom{Pos: pos, Value: p.expression()}
	}

	y := &ast.Yield{Pos: pos}

	if p.startsExpression() && !p.peek().Word("yield") {
		y.Value = p.starExpressions()
	}

	return y
}

func (p *parser) disjunction() ast.Expr {
	pos := p.at()

	first := p.conjunction()
	if !p.peek().Word("or") {
		return first
	}

	values := []ast.Expr{first}
	for p.peek().Word("or") {
		p.consume()
		values = append(values, p.conjunction())
	}

	return &ast.BoolOp{Pos: pos, Op: "or", Values: values}
}

func (p *parser) conjunction() ast.Expr {
	pos := p.at()

	first := p.inversion()
	if !p.peek().Word("and") {
		return first
	}

	values := []ast.Expr{first}
	for p.peek().Word("and") {
		p.consume()
		values = append(values, p.inversion())
	}

	return &ast.BoolOp{Pos: pos, Op: "and", Values: values}
}

func (p *parser) inversion() ast.Expr {
	if p.peek().Word("not") {
		pos := p.at()
		p.consume()

		return &ast.UnaryOp{Pos: pos, Op: "not", Operand: p.inversion()}
	}

	return p.comparison()
}

func (p *parser) comparison() ast.Expr {
	pos := p.at()

	left := p.bitwiseOr()

	var (
		ops   []string
		exprs []ast.Expr
	)

	for {
		t := p.peek()

		var op string

		switch {
		case t.Op("==", "!=", "<", "<=", ">", ">="):
			op = t.Value()
		case t.Word("in"):
			op = "in"
		case t.Word("not") && p.peekAt(1).Word("in"):
			p.consume()

			op = "not in"
		case t.Word("is"):
			op = "is"

			if p.peekAt(1).Word("not") {
				p.consume()

				op = "is not"
			}
		default:
			if len(ops) == 0 {
				return left
			}

			return &ast.Compare{Pos: pos, Left: left, Ops: ops, Comparators: exprs}
		}

		p.consume()

		ops = append(ops, op)
		exprs = append(exprs, p.bitwiseOr())
	}
}

func (p *parser) binary(next func() ast.Expr, ops ...string) ast.Expr {
	pos := p.at()

	left := next()

	for p.peek().Op(ops...) {
		op := p.consume().Value()
		left = &ast.BinOp{Pos: pos, Left: left, Op: op, Right: next()}
	}

	return left
}

func (p *parser) bitwiseOr() ast.Expr {
	return p.binary(p.bitwiseXor, "|")
}

func (p *parser) bitwiseXor() ast.Expr {
	return p.binary(p.bitwiseAnd, "^")
}

func (p *parser) bitwiseAnd() ast.Expr {
	return p.binary(p.shift, "&")
}

func (p *parser) shift() ast.Expr {
	return p.binary(p.sum, "<<", ">>")
}

func (p *parser) sum() ast.Expr {
	return p.binary(p.term, "+", "-")
}

func (p *parser) term() ast.Expr {
	return p.binary(p.factor, "*", "/", "//", "%", "@")
}

func (p *parser) factor() ast.Expr {
	if p.peek().Op("+", "-", "~") {
		pos := p.at()
		op := p.consume().Value()

		// The most negative int is only reachable through negation.
		if op == "-" && p.minInt() {
			p.consume()

			return &ast.Constant{Pos: pos, Value: int64(math.MinInt64)}
		}

		return &ast.UnaryOp{Pos: pos, Op: op, Operand: p.factor()}
	}

	return p.power()
}

func (p *parser) minInt() bool {
	t := p.peek()
	if !t.Is(token.Number) || strings.ReplaceAll(t.Value(), "_", "") != "9223372036854775808" {
		return false
	}

	return !p.peekAt(1).Op("**", ".", "(", "[")
}

func (p *parser) power() ast.Expr {
	pos := p.at()

	base := p.awaitPrimary()

	if p.peek().Op("**") {
		p.consume()

		return &ast.BinOp{Pos: pos, Left: base, Op: "**", Right: p.factor()}
	}

	return base
}

func (p *parser) awaitPrimary() ast.Expr {
	if p.peek().Word("await") {
		pos := p.at()
		p.consume()

		if !p.inAsync() {
			p.failAt(pos, "'await' outside async function")
		}

		return &ast.Await{Pos: pos, Value: p.primary()}
	}

	return p.primary()
}

func (p *parser) primary() ast.Expr {
	e := p.atom()

	for {
		t := p.peek()
		pos := ast.Pos{At: e.Position()}

		switch {
		case t.Op("."):
			p.consume()
			e = &ast.Attribute{Pos: pos, Value: e, Attr: p.name()}
		case t.Op("("):
			p.consume()

			call := &ast.Call{Pos: pos, Func: e}
			call.Args, call.Keywords = p.arguments()

			p.expectOp(")")

			e = call
		case t.Op("["):
			p.consume()

			e = &ast.Subscript{Pos: pos, Value: e, Index: p.slices()}

			p.expectOp("]")
		default:
			return e
		}
	}
}

// arguments parses call arguments up to (not including) the closing paren.
//
//nolint:funlen
func (p *parser) arguments() ([]ast.Expr, []*ast.Keyword) {
	var (
		args     []ast.Expr
		keywords []*ast.Keyword
	)

	for !p.peek().Op(")") {
		pos := p.at()
		t := p.peek()

		switch {
		case t.Op("*"):
			p.consume()

			args = append(args, &ast.Starred{Pos: pos, Value: p.expression()})
		case t.Op("**"):
			p.consume()

			keywords = append(keywords, &ast.Keyword{Pos: pos, Value: p.expression()})
		case t.Is(token.Name) && p.peekAt(1).Op("="):
			name := p.name()
			p.consume()

			for _, k := range keywords {
				if k.Arg == name {
					p.failAt(pos, "keyword argument repeated: %s", name)
				}
			}

			keywords = append(keywords, &ast.Keyword{Pos: pos, Arg: name, Value: p.expression()})
		default:
			e := p.namedExpression()

			if p.peek().Word("for", "async") {
				e = &ast.GeneratorExp{Pos: pos, Elt: e, Generators: p.comprehensions()}

				if len(args) > 0 || len(keywords) > 0 || p.peek().Op(",") && !p.peekAt(1).Op(")") {
					p.failAt(pos, "Generator expression must be parenthesized")
				}
			}

			if len(keywords) > 0 {
				for _, k := range keywords {
					if k.Arg == "" {
						p.failAt(pos, "positional argument follows keyword argument unpacking")
					}
				}

				p.failAt(pos, "positional argument follows keyword argument")
			}

			args = append(args, e)
		}

		if !p.peek().Op(",") {
			break
		}

		p.consume()
	}

	return args, keywords
}

func (p *parser) slices() ast.Expr {
	pos := p.at()

	first := p.slice()
	if !p.peek().Op(",") {
		return first
	}

	elts := []ast.Expr{first}

	for p.peek().Op(",") {
		p.consume()

		if p.peek().Op("]") {
			break
		}

		elts = append(elts, p.slice())
	}

	return &ast.Tuple{Pos: pos, Elts: elts}
}

func (p *parser) slice() ast.Expr {
	pos := p.at()

	if p.peek().Op("*") {
		return p.starExpression()
	}

	var lower ast.Expr
	if !p.peek().Op(":") {
		lower = p.namedExpression()

		if !p.peek().Op(":") {
			return lower
		}
	}

	s := &ast.Slice{Pos: pos, Lower: lower}

	p.expectOp(":")

	if !p.peek().Op(":", "]", ",") {
		s.Upper = p.expression()
	}

	if p.peek().Op(":") {
		p.consume()

		if !p.peek().Op("]", ",") {
			s.Step = p.expression()
		}
	}

	return s
}

//nolint:funlen,gocyclo
func (p *parser) atom() ast.Expr {
	pos := p.at()
	t := p.peek()

	switch {
	case t.Is(token.Name):
		p.consume()

		return &ast.Name{Pos: pos, ID: t.Value()}
	case t.Word("None"):
		p.consume()

		return &ast.Constant{Pos: pos, Value: nil}
	case t.Word("True"):
		p.consume()

		return &ast.Constant{Pos: pos, Value: true}
	case t.Word("False"):
		p.consume()

		return &ast.Constant{Pos: pos, Value: false}
	case t.Op("..."):
		p.consume()

		return &ast.Constant{Pos: pos, Value: ast.Ellipsis}
	case t.Is(token.Number):
		p.consume()

		return &ast.Constant{Pos: pos, Value: p.number(t)}
	case t.Is(token.String, token.Bytes, token.FString):
		return p.strings()
	case t.Op("("):
		return p.parenthesized()
	case t.Op("["):
		p.consume()

		if p.peek().Op("]") {
			p.consume()

			return &ast.List{Pos: pos}
		}

		first := p.starNamedOrStar()

		if p.peek().Word("for", "async") {
			e := &ast.ListComp{Pos: pos, Elt: first, Generators: p.comprehensions()}

			p.expectOp("]")

			return e
		}

		elts := p.rest(first, "]")

		p.expectOp("]")

		return &ast.List{Pos: pos, Elts: elts}
	case t.Op("{"):
		return p.braces()
	case t.Word("yield"):
		p.fail("yield expression must be parenthesized")
	}

	p.unexpected()

	return nil
}

func (p *parser) starNamedOrStar() ast.Expr {
	if p.peek().Op("*") {
		return p.starExpression()
	}

	return p.namedExpression()
}

// rest parses the remaining comma separated items of a display.
func (p *parser) rest(first ast.Expr, end string) []ast.Expr {
	elts := []ast.Expr{first}

	for p.peek().Op(",") {
		p.consume()

		if p.peek().Op(end) {
			break
		}

		elts = append(elts, p.starNamedOrStar())
	}

	return elts
}

func (p *parser) parenthesized() ast.Expr {
	pos := p.at()

	p.expectOp("(")

	if p.peek().Op(")") {
		p.consume()

		return &ast.Tuple{Pos: pos}
	}

	if p.peek().Word("yield") {
		e := p.yieldExpression()

		p.expectOp(")")

		return e
	}

	first := p.starNamedOrStar()

	if p.peek().Word("for", "async") {
		e := &ast.GeneratorExp{Pos: pos, Elt: first, Generators: p.comprehensions()}

		p.expectOp(")")

		return e
	}

	if !p.peek().Op(",") {
		p.expectOp(")")

		if _, ok := first.(*ast.Starred); ok {
			p.failAt(first, "cannot use starred expression here")
		}

		return first
	}

	elts := p.rest(first, ")")

	p.expectOp(")")

	return &ast.Tuple{Pos: pos, Elts: elts}
}

//nolint:funlen
func (p *parser) braces() ast.Expr {
	pos := p.at()

	p.expectOp("{")

	if p.peek().Op("}") {
		p.consume()

		return &ast.Dict{Pos: pos}
	}

	if p.peek().Op("**") {
		p.consume()

		d := &ast.Dict{Pos: pos, Keys: []ast.Expr{nil}, Values: []ast.Expr{p.bitwiseOr()}}

		return p.dictRest(d)
	}

	first := p.starNamedOrStar()

	if p.peek().Op(":") {
		p.consume()

		value := p.expression()

		if p.peek().Word("for", "async") {
			e := &ast.DictComp{Pos: pos, Key: first, Value: value, Generators: p.comprehensions()}

			p.expectOp("}")

			return e
		}

		d := &ast.Dict{Pos: pos, Keys: []ast.Expr{first}, Values: []ast.Expr{value}}

		return p.dictRest(d)
	}

	if p.peek().Word("for", "async") {
		e := &ast.SetComp{Pos: pos, Elt: first, Generators: p.comprehensions()}

		p.expectOp("}")

		return e
	}

	elts := p.rest(first, "}")

	p.expectOp("}")

	return &ast.Set{Pos: pos, Elts: elts}
}

func (p *parser) dictRest(d *ast.Dict) ast.Expr {
	for p.peek().Op(",") {
		p.consume()

		if p.peek().Op("}") {
			break
		}

		if p.peek().Op("**") {
			p.consume()

			d.Keys = append(d.Keys, nil)
			d.Values = append(d.Values, p.bitwiseOr())

			continue
		}

		d.Keys = append(d.Keys, p.expression())

		p.expectOp(":")

		d.Values = append(d.Values, p.expression())
	}

	p.expectOp("}")

	return d
}

func (p *parser) comprehensions() []*ast.Comprehension {
	var gens []*ast.Comprehension

	for p.peek().Word("for", "async") {
		c := &ast.Comprehension{}

		if p.peek().Word("async") {
			if !p.inAsync() {
				p.failAt(p.at(), "asynchronous comprehension outside of an asynchronous function")
			}

			p.consume()

			c.Async = true
		}

		p.expectWord("for")

		c.Target = p.target(p.targetList())

		p.expectWord("in")

		c.Iter = p.disjunction()

		for p.peek().Word("if") {
			p.consume()
			c.Ifs = append(c.Ifs, p.disjunction())
		}

		gens = append(gens, c)
	}

	return gens
}

func (p *parser) number(t *token.T) any {
	text := strings.ReplaceAll(t.Value(), "_", "")
	lower := strings.ToLower(text)

	base := 10

	switch {
	case strings.HasPrefix(lower, "0x"):
		base, text = 16, text[2:]
	case strings.HasPrefix(lower, "0o"):
		base, text = 8, text[2:]
	case strings.HasPrefix(lower, "0b"):
		base, text = 2, text[2:]
	case strings.ContainsAny(lower, ".e"):
		f, err := strconv.ParseFloat(text, 64)
		if err != nil && !strings.Contains(err.Error(), "range") {
			p.failAt(ast.Pos{At: t.Source()}, "invalid float literal")
		}

		return f
	}

	if base == 10 && len(text) > 1 && strings.Trim(text, "0") != "" && text[0] == '0' {
		p.failAt(ast.Pos{At: t.Source()}, "leading zeros in decimal integer literals are not permitted")
	}

	i, err := strconv.ParseInt(text, base, 64)
	if err != nil {
		if strings.Contains(err.Error(), "range") {
			p.failAt(ast.Pos{At: t.Source()}, "integer literal is too large")
		}

		p.failAt(ast.Pos{At: t.Source()}, "invalid integer literal")
	}

	return i
}

func describeExpr(e ast.Expr) string {
	switch e := e.(type) {
	case *ast.Call:
		return "function call"
	case *ast.Constant:
		return "literal"
	case *ast.BinOp, *ast.UnaryOp, *ast.BoolOp:
		return "expression"
	case *ast.Compare:
		return "comparison"
	case *ast.Lambda:
		return "lambda"
	case *ast.IfExp:
		return "conditional expression"
	case *ast.NamedExpr:
		return "named expression"
	case *ast.Await:
		return "await expression"
	case *ast.Yield, *ast.YieldFrom:
		return "yield expression"
	case *ast.Dict:
		return "dict literal"
	case *ast.Set:
		return "set display"
	case *ast.JoinedStr:
		return "f-string expression"
	default:
		return strings.ToLower(ast.Kind(e))
	}
}
