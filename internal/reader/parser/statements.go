// Released under an MIT license. See LICENSE.

package parser

import (
	"strings"

	"github.com/michaelmacinnis/enclave/internal/common/struct/token"
	"github.com/michaelmacinnis/enclave/internal/reader/ast"
)

func (p *parser) statement() []ast.Stmt {
	t := p.peek()

	switch {
	case t.Word("def"):
		return []ast.Stmt{p.functionDef(nil, false)}
	case t.Word("class"):
		return []ast.Stmt{p.classDef(nil)}
	case t.Word("if"):
		return []ast.Stmt{p.ifStatement()}
	case t.Word("while"):
		return []ast.Stmt{p.whileStatement()}
	case t.Word("for"):
		return []ast.Stmt{p.forStatement(false)}
	case t.Word("try"):
		return []ast.Stmt{p.tryStatement()}
	case t.Word("with"):
		return []ast.Stmt{p.withStatement(false)}
	case t.Word("async"):
		return []ast.Stmt{p.asyncStatement()}
	case t.Op("@"):
		return []ast.Stmt{p.decorated()}
	case t.Is(token.Name) && t.Value() == "match":
		if s := p.matchStatement(); s != nil {
			return []ast.Stmt{s}
		}
	}

	return p.simpleStatements()
}

func (p *parser) simpleStatements() []ast.Stmt {
	var stmts []ast.Stmt

	for {
		stmts = append(stmts, p.simpleStatement())

		if !p.peek().Op(";") {
			break
		}

		p.consume()

		if p.peek().Is(token.Newline) {
			break
		}
	}

	p.expect(token.Newline)

	return stmts
}

//nolint:funlen,gocyclo
func (p *parser) simpleStatement() ast.Stmt {
	t := p.peek()
	pos := p.at()

	switch {
	case t.Word("pass"):
		p.consume()

		return &ast.Pass{Pos: pos}
	case t.Word("break"):
		p.consume()

		if p.loopDepth() == 0 {
			p.failAt(pos, "'break' outside loop")
		}

		return &ast.Break{Pos: pos}
	case t.Word("continue"):
		p.consume()

		if p.loopDepth() == 0 {
			p.failAt(pos, "'continue' not properly in loop")
		}

		return &ast.Continue{Pos: pos}
	case t.Word("return"):
		p.consume()

		if len(p.funcs) == 0 {
			p.failAt(pos, "'return' outside function")
		}

		s := &ast.Return{Pos: pos}
		if !p.endOfSimple() {
			s.Value = p.starExpressions()
		}

		return s
	case t.Word("raise"):
		p.consume()

		s := &ast.Raise{Pos: pos}
		if !p.endOfSimple() {
			s.Exc = p.expression()

			if p.peek().Word("from") {
				p.consume()
				s.Cause = p.expression()
			}
		}

		return s
	case t.Word("global"), t.Word("nonlocal"):
		p.consume()

		names := []string{p.name()}
		for p.peek().Op(",") {
			p.consume()
			names = append(names, p.name())
		}

		if t.Value() == "global" {
			return &ast.Global{Pos: pos, Names: names}
		}

		return &ast.Nonlocal{Pos: pos, Names: names}
	case t.Word("del"):
		p.consume()

		targets := []ast.Expr{p.target(p.bitwiseOr())}
		for p.peek().Op(",") {
			p.consume()

			if p.endOfSimple() {
				break
			}

			targets = append(targets, p.target(p.bitwiseOr()))
		}

		return &ast.Delete{Pos: pos, Targets: targets}
	case t.Word("assert"):
		p.consume()

		s := &ast.Assert{Pos: pos, Test: p.expression()}
		if p.peek().Op(",") {
			p.consume()
			s.Msg = p.expression()
		}

		return s
	case t.Word("import"):
		return p.importStatement()
	case t.Word("from"):
		return p.fromImport()
	case t.Is(token.Name) && t.Value() == "type" && p.peekAt(1).Is(token.Name):
		return p.typeAlias()
	}

	return p.expressionStatement()
}

func (p *parser) endOfSimple() bool {
	t := p.peek()

	return t.Is(token.Newline, token.EOF) || t.Op(";")
}

func (p *parser) expressionStatement() ast.Stmt {
	pos := p.at()

	var first ast.Expr
	if p.peek().Word("yield") {
		first = p.yieldExpression()
	} else {
		first = p.starExpressions()
	}

	t := p.peek()

	switch {
	case t.Op("="):
		targets := []ast.Expr{p.target(first)}

		var value ast.Expr

		for p.peek().Op("=") {
			p.consume()

			if p.peek().Word("yield") {
				value = p.yieldExpression()
			} else {
				value = p.starExpressions()
			}

			if p.peek().Op("=") {
				targets = append(targets, p.target(value))
			}
		}

		return &ast.Assign{Pos: pos, Targets: targets, Value: value}
	case t.Op(":"):
		p.consume()

		target := p.target(first)

		switch target.(type) {
		case *ast.Name, *ast.Attribute, *ast.Subscript:
		default:
			p.failAt(target, "only single target (not tuple) can be annotated")
		}

		s := &ast.AnnAssign{Pos: pos, Target: target, Annotation: p.expression()}
		_, s.Simple = target.(*ast.Name)

		if p.peek().Op("=") {
			p.consume()

			if p.peek().Word("yield") {
				s.Value = p.yieldExpression()
			} else {
				s.Value = p.starExpressions()
			}
		}

		return s
	case t.Is(token.Operator) && augmented[t.Value()]:
		p.consume()

		target := p.target(first)

		switch target.(type) {
		case *ast.Name, *ast.Attribute, *ast.Subscript:
		default:
			p.failAt(target, "illegal expression for augmented assignment")
		}

		op := strings.TrimSuffix(t.Value(), "=")

		var value ast.Expr
		if p.peek().Word("yield") {
			value = p.yieldExpression()
		} else {
			value = p.starExpressions()
		}

		return &ast.AugAssign{Pos: pos, Target: target, Op: op, Value: value}
	}

	return &ast.ExprStmt{Pos: pos, Value: first}
}

// target checks that e can be assigned to.
func (p *parser) target(e ast.Expr) ast.Expr {
	switch e := e.(type) {
	case *ast.Name, *ast.Attribute, *ast.Subscript:
		return e
	case *ast.Starred:
		p.target(e.Value)

		return e
	case *ast.Tuple:
		p.targets(e.Elts)

		return e
	case *ast.List:
		p.targets(e.Elts)

		return e
	}

	p.failAt(e, "cannot assign to %s", describeExpr(e))

	return nil
}

func (p *parser) targets(elts []ast.Expr) {
	starred := false

	for _, elt := range elts {
		if _, ok := elt.(*ast.Starred); ok {
			if starred {
				p.failAt(elt, "multiple starred expressions in assignment")
			}

			starred = true
		}

		p.target(elt)
	}
}

func (p *parser) importStatement() ast.Stmt {
	pos := p.at()

	p.expectWord("import")

	s := &ast.Import{Pos: pos}

	for {
		a := &ast.Alias{Pos: p.at(), Name: p.dottedName()}

		if p.peek().Word("as") {
			p.consume()
			a.AsName = p.name()
		}

		s.Names = append(s.Names, a)

		if !p.peek().Op(",") {
			break
		}

		p.consume()
	}

	return s
}

func (p *parser) fromImport() ast.Stmt {
	pos := p.at()

	p.expectWord("from")

	s := &ast.ImportFrom{Pos: pos}

	for p.peek().Op(".", "...") {
		s.Level += len(p.consume().Value())
	}

	if s.Level == 0 || !p.peek().Word("import") {
		s.Module = p.dottedName()
	}

	p.expectWord("import")

	if p.peek().Op("*") {
		p.failAt(p.at(), "wildcard imports are not supported")
	}

	parens := p.peek().Op("(")
	if parens {
		p.consume()
	}

	for {
		a := &ast.Alias{Pos: p.at(), Name: p.name()}

		if p.peek().Word("as") {
			p.consume()
			a.AsName = p.name()
		}

		s.Names = append(s.Names, a)

		if !p.peek().Op(",") {
			break
		}

		p.consume()

		if parens && p.peek().Op(")") {
			break
		}
	}

	if parens {
		p.expectOp(")")
	}

	if s.Module == "__future__" && s.Level == 0 {
		for _, a := range s.Names {
			if !futures[a.Name] {
				p.failAt(a, "future feature %s is not defined", a.Name)
			}
		}
	}

	return s
}

func (p *parser) dottedName() string {
	parts := []string{p.name()}

	for p.peek().Op(".") {
		p.consume()
		parts = append(parts, p.name())
	}

	return strings.Join(parts, ".")
}

func (p *parser) typeAlias() ast.Stmt {
	pos := p.at()

	p.consume() // type

	s := &ast.TypeAlias{Pos: pos, Name: p.name()}

	if p.peek().Op("[") {
		s.TypeParams = p.typeParams()
	}

	p.expectOp("=")

	s.Value = p.expression()

	return s
}

func (p *parser) typeParams() []*ast.TypeParam {
	p.expectOp("[")

	var params []*ast.TypeParam

	for !p.peek().Op("]") {
		tp := &ast.TypeParam{Pos: p.at()}

		switch {
		case p.peek().Op("*"):
			p.consume()

			tp.Kind = ast.TypeVarTuple
		case p.peek().Op("**"):
			p.consume()

			tp.Kind = ast.ParamSpec
		}

		tp.Name = p.name()

		if tp.Kind == ast.TypeVar && p.peek().Op(":") {
			p.consume()
			tp.Bound = p.expression()
		}

		if p.peek().Op("=") {
			p.consume()
			tp.Default = p.expression()
		}

		params = append(params, tp)

		if !p.peek().Op(",") {
			break
		}

		p.consume()
	}

	p.expectOp("]")

	if len(params) == 0 {
		p.failAt(p.at(), "type parameter list cannot be empty")
	}

	return params
}

// block parses ':' followed by either a simple statement list on the same
// line or an indented suite.
func (p *parser) block() []ast.Stmt {
	p.expectOp(":")

	if !p.peek().Is(token.Newline) {
		return p.simpleStatements()
	}

	p.consume()
	p.expect(token.Indent)

	var body []ast.Stmt

	for !p.peek().Is(token.Dedent, token.EOF) {
		if p.peek().Is(token.Newline) {
			p.consume()

			continue
		}

		body = append(body, p.statement()...)
	}

	p.expect(token.Dedent)

	return body
}

func (p *parser) loopBody() []ast.Stmt {
	p.enterLoop()
	defer p.leaveLoop()

	return p.block()
}

func (p *parser) enterLoop() {
	if n := len(p.funcs); n > 0 {
		p.funcs[n-1].loops++
	} else {
		p.loops++
	}
}

func (p *parser) leaveLoop() {
	if n := len(p.funcs); n > 0 {
		p.funcs[n-1].loops--
	} else {
		p.loops--
	}
}

func (p *parser) loopDepth() int {
	if n := len(p.funcs); n > 0 {
		return p.funcs[n-1].loops
	}

	return p.loops
}

func (p *parser) inAsync() bool {
	n := len(p.funcs)

	return n > 0 && p.funcs[n-1].async
}

func (p *parser) ifStatement() ast.Stmt {
	pos := p.at()

	p.consume() // if or elif

	s := &ast.If{Pos: pos, Test: p.namedExpression()}
	s.Body = p.block()

	switch {
	case p.peek().Word("elif"):
		s.Else = []ast.Stmt{p.ifStatement()}
	case p.peek().Word("else"):
		p.consume()
		s.Else = p.block()
	}

	return s
}

func (p *parser) whileStatement() ast.Stmt {
	pos := p.at()

	p.expectWord("while")

	s := &ast.While{Pos: pos, Test: p.namedExpression()}
	s.Body = p.loopBody()

	if p.peek().Word("else") {
		p.consume()
		s.Else = p.block()
	}

	return s
}

func (p *parser) forStatement(async bool) ast.Stmt {
	pos := p.at()

	p.expectWord("for")

	s := &ast.For{Pos: pos, Async: async}
	s.Target = p.target(p.targetList())

	p.expectWord("in")

	s.Iter = p.starExpressions()
	s.Body = p.loopBody()

	if p.peek().Word("else") {
		p.consume()
		s.Else = p.block()
	}

	return s
}

// targetList parses the comma separated targets of a for statement or
// comprehension, stopping before 'in'.
func (p *parser) targetList() ast.Expr {
	pos := p.at()

	first := p.starTarget()
	if !p.peek().Op(",") {
		return first
	}

	elts := []ast.Expr{first}

	for p.peek().Op(",") {
		p.consume()

		if p.peek().Word("in") {
			break
		}

		elts = append(elts, p.starTarget())
	}

	return &ast.Tuple{Pos: pos, Elts: elts}
}

func (p *parser) starTarget() ast.Expr {
	if p.peek().Op("*") {
		pos := p.at()
		p.consume()

		return &ast.Starred{Pos: pos, Value: p.bitwiseOr()}
	}

	return p.bitwiseOr()
}

func (p *parser) tryStatement() ast.Stmt {
	pos := p.at()

	p.expectWord("try")

	s := &ast.Try{Pos: pos, Body: p.block()}

	for p.peek().Word("except") {
		hpos := p.at()

		p.consume()

		star := false
		if p.peek().Op("*") {
			p.consume()

			star = true
		}

		if len(s.Handlers) > 0 && star != s.Star {
			p.failAt(hpos, "cannot have both 'except' and 'except*' on the same 'try'")
		}

		s.Star = star

		h := &ast.ExceptHandler{Pos: hpos}

		if !p.peek().Op(":") {
			h.Type = p.expression()

			if p.peek().Op(",") {
				elts := []ast.Expr{h.Type}
				for p.peek().Op(",") {
					p.consume()
					elts = append(elts, p.expression())
				}

				h.Type = &ast.Tuple{Pos: ast.Pos{At: h.Type.Position()}, Elts: elts}
			}

			if p.peek().Word("as") {
				p.consume()
				h.Name = p.name()
			}
		} else if star {
			p.failAt(hpos, "expected one or more exception types")
		}

		h.Body = p.block()

		s.Handlers = append(s.Handlers, h)
	}

	if p.peek().Word("else") {
		if len(s.Handlers) == 0 {
			p.unexpected()
		}

		p.consume()
		s.Else = p.block()
	}

	if p.peek().Word("finally") {
		p.consume()
		s.Finally = p.block()
	}

	if len(s.Handlers) == 0 && s.Finally == nil {
		p.fail("expected 'except' or 'finally' block")
	}

	return s
}

func (p *parser) withStatement(async bool) ast.Stmt {
	pos := p.at()

	p.expectWord("with")

	s := &ast.With{Pos: pos, Async: async}

	// Parenthesized with items, which cannot be told apart from a
	// parenthesized expression without looking for the closing colon.
	if p.peek().Op("(") && p.speculate(func() {
		p.consume()

		s.Items = p.withItems(")")

		p.expectOp(")")

		if !p.peek().Op(":") {
			p.unexpected()
		}
	}) {
		s.Body = p.block()

		return s
	}

	s.Items = p.withItems(":")
	s.Body = p.block()

	return s
}

func (p *parser) withItems(end string) []*ast.WithItem {
	var items []*ast.WithItem

	for {
		item := &ast.WithItem{Context: p.expression()}

		if p.peek().Word("as") {
			p.consume()
			item.Vars = p.target(p.starTarget())
		}

		items = append(items, item)

		if !p.peek().Op(",") {
			break
		}

		p.consume()

		if p.peek().Op(end) {
			break
		}
	}

	return items
}

func (p *parser) asyncStatement() ast.Stmt {
	pos := p.at()

	p.expectWord("async")

	t := p.peek()

	switch {
	case t.Word("def"):
		return p.functionDef(nil, true)
	case t.Word("for"):
		if !p.inAsync() {
			p.failAt(pos, "'async for' outside async function")
		}

		return p.forStatement(true)
	case t.Word("with"):
		if !p.inAsync() {
			p.failAt(pos, "'async with' outside async function")
		}

		return p.withStatement(true)
	}

	p.unexpected()

	return nil
}

func (p *parser) decorated() ast.Stmt {
	var decorators []ast.Expr

	for p.peek().Op("@") {
		p.consume()

		decorators = append(decorators, p.namedExpression())

		p.expect(token.Newline)
	}

	t := p.peek()

	switch {
	case t.Word("def"):
		return p.functionDef(decorators, false)
	case t.Word("async") && p.peekAt(1).Word("def"):
		p.consume()

		return p.functionDef(decorators, true)
	case t.Word("class"):
		return p.classDef(decorators)
	}

	p.fail("expected function or class definition after decorator")

	return nil
}

func (p *parser) functionDef(decorators []ast.Expr, async bool) ast.Stmt {
	pos := p.at()

	p.expectWord("def")

	s := &ast.FunctionDef{Pos: pos, Name: p.name(), Decorators: decorators, Async: async}

	if len(decorators) > 0 {
		s.Pos = ast.Pos{At: decorators[0].Position()}
	}

	if p.peek().Op("[") {
		s.TypeParams = p.typeParams()
	}

	p.expectOp("(")
	s.Args = p.parameters(")", true)
	p.expectOp(")")

	if p.peek().Op("->") {
		p.consume()
		s.Returns = p.expression()
	}

	p.funcs = append(p.funcs, &function{async: async})
	s.Body = p.block()
	p.funcs = p.funcs[:len(p.funcs)-1]

	s.Doc = docstring(s.Body)

	return s
}

// parameters parses a parameter list up to (not including) end.
//
//nolint:funlen,gocognit,gocyclo
func (p *parser) parameters(end string, annotations bool) *ast.Arguments {
	a := &ast.Arguments{}

	param := func() *ast.Arg {
		arg := &ast.Arg{Pos: p.at(), Name: p.name()}

		if annotations && p.peek().Op(":") {
			p.consume()

			if p.peek().Op("*") {
				star := p.at()
				p.consume()

				arg.Annotation = &ast.Starred{Pos: star, Value: p.expression()}
			} else {
				arg.Annotation = p.expression()
			}
		}

		return arg
	}

	seen := map[string]bool{}
	check := func(arg *ast.Arg) *ast.Arg {
		if seen[arg.Name] {
			p.failAt(arg, "duplicate argument '%s' in function definition", arg.Name)
		}

		seen[arg.Name] = true

		return arg
	}

	star := false

	for !p.peek().Op(end) {
		t := p.peek()

		switch {
		case t.Op("/"):
			p.consume()

			if star || len(a.PosOnly) > 0 || len(a.Args) == 0 {
				p.failAt(p.at(), "/ must be ahead of *")
			}

			a.PosOnly, a.Args = a.Args, nil
		case t.Op("**"):
			p.consume()

			a.Kwarg = check(param())

			if p.peek().Op(",") {
				p.consume()
			}

			if !p.peek().Op(end) {
				p.failAt(p.at(), "arguments cannot follow var-keyword argument")
			}

			return a
		case t.Op("*"):
			p.consume()

			if star {
				p.failAt(p.at(), "* argument may appear only once")
			}

			star = true

			if p.peek().Is(token.Name) {
				a.Vararg = check(param())
			} else if p.peek().Op(end) || p.peekAt(1).Op(end) && p.peek().Op(",") {
				p.failAt(p.at(), "named arguments must follow bare *")
			}
		default:
			arg := check(param())

			var def ast.Expr

			if p.peek().Op("=") {
				p.consume()
				def = p.expression()
			}

			if star {
				a.KwOnly = append(a.KwOnly, arg)
				a.KwDefaults = append(a.KwDefaults, def)
			} else {
				if def == nil && len(a.Defaults) > 0 {
					p.failAt(arg, "non-default argument follows default argument")
				}

				if def != nil {
					a.Defaults = append(a.Defaults, def)
				}

				a.Args = append(a.Args, arg)
			}
		}

		if !p.peek().Op(",") {
			break
		}

		p.consume()
	}

	return a
}

func (p *parser) classDef(decorators []ast.Expr) ast.Stmt {
	pos := p.at()

	p.expectWord("class")

	s := &ast.ClassDef{Pos: pos, Name: p.name(), Decorators: decorators}

	if len(decorators) > 0 {
		s.Pos = ast.Pos{At: decorators[0].Position()}
	}

	if p.peek().Op("[") {
		s.TypeParams = p.typeParams()
	}

	if p.peek().Op("(") {
		p.consume()
		s.Bases, s.Keywords = p.arguments()
		p.expectOp(")")
	}

	// Class bodies start a new function context for return checks.
	saved := p.funcs
	p.funcs = nil
	loops := p.loops
	p.loops = 0

	s.Body = p.block()

	p.funcs = saved
	p.loops = loops

	s.Doc = docstring(s.Body)

	return s
}

func (p *parser) matchStatement() ast.Stmt {
	pos := p.at()

	var subject ast.Expr

	if !p.speculate(func() {
		p.consume() // match

		subject = p.starNamedExpressions()

		p.expectOp(":")
		p.expect(token.Newline)

		if !p.peek().Is(token.Indent) {
			p.unexpected()
		}
	}) {
		return nil
	}

	p.expect(token.Indent)

	s := &ast.Match{Pos: pos, Subject: subject}

	for !p.peek().Is(token.Dedent, token.EOF) {
		t := p.peek()
		if !t.Is(token.Name) || t.Value() != "case" {
			p.fail("expected 'case'")
		}

		p.consume()

		c := &ast.MatchCase{Pattern: p.patterns()}

		if p.peek().Word("if") {
			p.consume()
			c.Guard = p.namedExpression()
		}

		c.Body = p.block()

		s.Cases = append(s.Cases, c)
	}

	p.expect(token.Dedent)

	if len(s.Cases) == 0 {
		p.failAt(pos, "match statement must have at least one case")
	}

	return s
}

func docstring(body []ast.Stmt) string {
	if len(body) == 0 {
		return ""
	}

	if e, ok := body[0].(*ast.ExprStmt); ok {
		if c, ok := e.Value.(*ast.Constant); ok {
			if s, ok := c.Value.(string); ok {
				return s
			}
		}
	}

	return ""
}

//nolint:gochecknoglobals
var (
	augmented = map[string]bool{
		"+=": true, "-=": true, "*=": true, "/=": true, "//=": true,
		"%=": true, "**=": true, "@=": true, "&=": true, "|=": true,
		"^=": true, "<<=": true, ">>=": true,
	}

	futures = map[string]bool{
		"annotations": true, "generator_stop": true, "generators": true,
		"division": true, "absolute_import": true, "with_statement": true,
		"print_function": true, "unicode_literals": true, "nested_scopes": true,
	}
)
