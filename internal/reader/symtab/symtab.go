// Released under an MIT license. See LICENSE.

// Package symtab decides, for every block in a module, which names are local,
// which are captured from enclosing functions and which are global. It also
// applies private name mangling inside class bodies.
package symtab

import (
	"fmt"
	"strings"

	"github.com/michaelmacinnis/enclave/internal/common/struct/loc"
	"github.com/michaelmacinnis/enclave/internal/reader/ast"
)

// Error is a syntax error detected after parsing.
type Error struct {
	Loc loc.T
	Msg string
}

func (e *Error) Error() string {
	return e.Loc.String() + ": " + e.Msg
}

// ClassCell is the implicit cell that holds a class for zero-argument super().
const ClassCell = "__class__"

type block struct {
	*ast.Scope

	parent   *block
	children []*block

	class string // Name used for private name mangling.

	bound    map[string]bool
	used     map[string]bool
	params   map[string]bool
	global   map[string]bool
	nonlocal map[string]bool
	outer    map[string]bool // Walrus targets owned by an enclosing block.
	iterVars map[string]bool

	where map[string]loc.T
}

type analyzer struct {
	current *block
}

// Analyze annotates m, and every block within it, with a scope.
func Analyze(m *ast.Module) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		if e, ok := r.(*Error); ok {
			err = e

			return
		}

		panic(r)
	}()

	a := &analyzer{}

	root := a.push(ast.ModuleScope, "<module>")
	m.Scope = root.Scope

	a.stmts(m.Body)
	a.pop()

	root.resolve(map[string]bool{})

	return nil
}

func fail(at loc.T, format string, args ...any) {
	panic(&Error{Loc: at, Msg: fmt.Sprintf(format, args...)})
}

func newBlock(k ast.ScopeKind, name string, parent *block) *block {
	b := &block{
		Scope:    ast.NewScope(k, name),
		parent:   parent,
		bound:    map[string]bool{},
		used:     map[string]bool{},
		params:   map[string]bool{},
		global:   map[string]bool{},
		nonlocal: map[string]bool{},
		outer:    map[string]bool{},
		iterVars: map[string]bool{},
		where:    map[string]loc.T{},
	}

	if parent != nil {
		parent.children = append(parent.children, b)
		b.class = parent.class
	}

	return b
}

func (a *analyzer) push(k ast.ScopeKind, name string) *block {
	b := newBlock(k, name, a.current)
	a.current = b

	return b
}

func (a *analyzer) pop() {
	a.current = a.current.parent
}

func (a *analyzer) mangle(name string) string {
	return Mangle(a.current.class, name)
}

// Mangle returns the private form of name inside a class called class.
func Mangle(class, name string) string {
	if class == "" || !strings.HasPrefix(name, "__") ||
		strings.HasSuffix(name, "__") || strings.Contains(name, ".") {
		return name
	}

	stripped := strings.TrimLeft(class, "_")
	if stripped == "" {
		return name
	}

	return "_" + stripped + name
}

func (a *analyzer) bind(name string, at loc.T) {
	b := a.current

	if _, ok := b.where[name]; !ok {
		b.where[name] = at
	}

	b.bound[name] = true
}

func (a *analyzer) use(name string, at loc.T) {
	b := a.current

	if _, ok := b.where[name]; !ok {
		b.where[name] = at
	}

	b.used[name] = true

	if name == "super" && b.FunctionLike() {
		b.used[ClassCell] = true
	}
}

//nolint:cyclop,funlen,gocognit,gocyclo
func (a *analyzer) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.FunctionDef:
		a.exprs(s.Decorators)
		a.functionDef(s)
	case *ast.ClassDef:
		a.exprs(s.Decorators)
		a.classDef(s)
	case *ast.Return:
		a.expr(s.Value)
	case *ast.Delete:
		for _, t := range s.Targets {
			a.target(t)
		}
	case *ast.Assign:
		a.expr(s.Value)

		for _, t := range s.Targets {
			a.target(t)
		}
	case *ast.AugAssign:
		a.expr(s.Value)

		if n, ok := s.Target.(*ast.Name); ok {
			n.ID = a.mangle(n.ID)
			a.use(n.ID, n.At)
		}

		a.target(s.Target)
	case *ast.AnnAssign:
		a.expr(s.Value)
		a.expr(s.Annotation)
		a.target(s.Target)
	case *ast.TypeAlias:
		s.Name = a.mangle(s.Name)
		a.bind(s.Name, s.At)
		a.typeAlias(s)
	case *ast.For:
		a.expr(s.Iter)
		a.target(s.Target)
		a.stmts(s.Body)
		a.stmts(s.Else)
	case *ast.While:
		a.expr(s.Test)
		a.stmts(s.Body)
		a.stmts(s.Else)
	case *ast.If:
		a.expr(s.Test)
		a.stmts(s.Body)
		a.stmts(s.Else)
	case *ast.With:
		for _, item := range s.Items {
			a.expr(item.Context)

			if item.Vars != nil {
				a.target(item.Vars)
			}
		}

		a.stmts(s.Body)
	case *ast.Match:
		a.expr(s.Subject)

		for _, c := range s.Cases {
			a.pattern(c.Pattern)
			a.expr(c.Guard)
			a.stmts(c.Body)
		}
	case *ast.Raise:
		a.expr(s.Exc)
		a.expr(s.Cause)
	case *ast.Try:
		a.stmts(s.Body)

		for _, h := range s.Handlers {
			a.expr(h.Type)

			if h.Name != "" {
				h.Name = a.mangle(h.Name)
				a.bind(h.Name, h.At)
			}

			a.stmts(h.Body)
		}

		a.stmts(s.Else)
		a.stmts(s.Finally)
	case *ast.Assert:
		a.expr(s.Test)
		a.expr(s.Msg)
	case *ast.Import:
		for _, alias := range s.Names {
			name := alias.AsName
			if name == "" {
				name, _, _ = strings.Cut(alias.Name, ".")
			}

			a.bind(name, alias.At)
		}
	case *ast.ImportFrom:
		for _, alias := range s.Names {
			name := alias.AsName
			if name == "" {
				name = alias.Name
			}

			a.bind(name, alias.At)
		}
	case *ast.Global:
		a.declare(s.At, s.Names, true)
	case *ast.Nonlocal:
		a.declare(s.At, s.Names, false)
	case *ast.ExprStmt:
		a.expr(s.Value)
	case *ast.Pass, *ast.Break, *ast.Continue:
	}
}

func (a *analyzer) stmts(ss []ast.Stmt) {
	for _, s := range ss {
		a.stmt(s)
	}
}

func (a *analyzer) declare(at loc.T, names []string, global bool) {
	b := a.current

	kind := "nonlocal"
	if global {
		kind = "global"
	}

	if !global && b.Kind == ast.ModuleScope {
		fail(at, "nonlocal declaration not allowed at module level")
	}

	for i, name := range names {
		name = a.mangle(name)
		names[i] = name

		switch {
		case b.params[name]:
			fail(at, "name '%s' is parameter and %s", name, kind)
		case global && b.nonlocal[name]:
			fail(at, "name '%s' is nonlocal and global", name)
		case !global && b.global[name]:
			fail(at, "name '%s' is nonlocal and global", name)
		case b.bound[name]:
			fail(at, "name '%s' is assigned to before %s declaration", name, kind)
		case b.used[name]:
			fail(at, "name '%s' is used prior to %s declaration", name, kind)
		}

		if global {
			b.global[name] = true
		} else {
			b.nonlocal[name] = true
		}
	}
}

func (a *analyzer) arguments(args *ast.Arguments) {
	if args == nil {
		return
	}

	a.exprs(args.Defaults)
	a.exprs(args.KwDefaults)
}

func (a *analyzer) annotations(args *ast.Arguments) {
	if args == nil {
		return
	}

	for _, arg := range allArgs(args) {
		a.expr(arg.Annotation)
	}
}

func (a *analyzer) parameters(args *ast.Arguments) {
	if args == nil {
		return
	}

	for _, arg := range allArgs(args) {
		arg.Name = a.mangle(arg.Name)
		a.bind(arg.Name, arg.At)
		a.current.params[arg.Name] = true
	}
}

func allArgs(args *ast.Arguments) []*ast.Arg {
	all := make([]*ast.Arg, 0, len(args.PosOnly)+len(args.Args)+len(args.KwOnly)+2)
	all = append(all, args.PosOnly...)
	all = append(all, args.Args...)

	if args.Vararg != nil {
		all = append(all, args.Vararg)
	}

	all = append(all, args.KwOnly...)

	if args.Kwarg != nil {
		all = append(all, args.Kwarg)
	}

	return all
}

func (a *analyzer) functionDef(s *ast.FunctionDef) {
	s.Name = a.mangle(s.Name)
	a.bind(s.Name, s.At)

	a.arguments(s.Args)

	if len(s.TypeParams) > 0 {
		p := a.push(ast.AnnotationScope, "<generic parameters of "+s.Name+">")
		s.ParamScope = p.Scope

		a.typeParams(s.TypeParams)
	}

	a.annotations(s.Args)
	a.expr(s.Returns)

	b := a.push(ast.FunctionScope, s.Name)
	s.Scope = b.Scope
	b.Coroutine = s.Async

	a.parameters(s.Args)
	a.stmts(s.Body)
	a.pop()

	if s.ParamScope != nil {
		a.pop()
	}
}

func (a *analyzer) classDef(s *ast.ClassDef) {
	s.Name = a.mangle(s.Name)
	a.bind(s.Name, s.At)

	if len(s.TypeParams) > 0 {
		p := a.push(ast.AnnotationScope, "<generic parameters of "+s.Name+">")
		s.ParamScope = p.Scope

		a.typeParams(s.TypeParams)
	}

	a.exprs(s.Bases)

	for _, k := range s.Keywords {
		a.expr(k.Value)
	}

	b := a.push(ast.ClassScope, s.Name)
	s.Scope = b.Scope
	b.class = s.Name

	a.stmts(s.Body)
	a.pop()

	if s.ParamScope != nil {
		a.pop()
	}
}

func (a *analyzer) typeAlias(s *ast.TypeAlias) {
	if len(s.TypeParams) > 0 {
		p := a.push(ast.AnnotationScope, "<generic parameters of "+s.Name+">")
		s.ParamScope = p.Scope

		a.typeParams(s.TypeParams)
	}

	b := a.push(ast.AnnotationScope, s.Name)
	s.Scope = b.Scope

	a.expr(s.Value)
	a.pop()

	if s.ParamScope != nil {
		a.pop()
	}
}

func (a *analyzer) typeParams(tps []*ast.TypeParam) {
	for _, tp := range tps {
		tp.Name = a.mangle(tp.Name)
		a.bind(tp.Name, tp.At)
		a.expr(tp.Bound)
		a.expr(tp.Default)
	}
}

// target records the names bound by an assignment target.
func (a *analyzer) target(e ast.Expr) {
	switch e := e.(type) {
	case *ast.Name:
		e.ID = a.mangle(e.ID)
		a.bind(e.ID, e.At)
	case *ast.Tuple:
		for _, elt := range e.Elts {
			a.target(elt)
		}
	case *ast.List:
		for _, elt := range e.Elts {
			a.target(elt)
		}
	case *ast.Starred:
		a.target(e.Value)
	case *ast.Attribute:
		a.expr(e.Value)
		e.Attr = a.mangle(e.Attr)
	case *ast.Subscript:
		a.expr(e.Value)
		a.expr(e.Index)
	default:
		a.expr(e)
	}
}

func (a *analyzer) exprs(es []ast.Expr) {
	for _, e := range es {
		a.expr(e)
	}
}

//nolint:cyclop,funlen,gocognit,gocyclo
func (a *analyzer) expr(e ast.Expr) {
	switch e := e.(type) {
	case nil:
	case *ast.BoolOp:
		a.exprs(e.Values)
	case *ast.NamedExpr:
		a.expr(e.Value)
		a.walrus(e.Target)
	case *ast.BinOp:
		a.expr(e.Left)
		a.expr(e.Right)
	case *ast.UnaryOp:
		a.expr(e.Operand)
	case *ast.Lambda:
		a.arguments(e.Args)
		a.annotations(e.Args)

		b := a.push(ast.FunctionScope, "<lambda>")
		e.Scope = b.Scope

		a.parameters(e.Args)
		a.expr(e.Body)
		a.pop()
	case *ast.IfExp:
		a.expr(e.Test)
		a.expr(e.Body)
		a.expr(e.Else)
	case *ast.Dict:
		a.exprs(e.Keys)
		a.exprs(e.Values)
	case *ast.Set:
		a.exprs(e.Elts)
	case *ast.ListComp:
		e.Scope = a.comprehension("<listcomp>", e.Generators, e.Elt)
	case *ast.SetComp:
		e.Scope = a.comprehension("<setcomp>", e.Generators, e.Elt)
	case *ast.DictComp:
		e.Scope = a.comprehension("<dictcomp>", e.Generators, e.Key, e.Value)
	case *ast.GeneratorExp:
		e.Scope = a.comprehension("<genexpr>", e.Generators, e.Elt)
		e.Scope.Generator = true
	case *ast.Await:
		a.expr(e.Value)

		if b := a.current; b.Kind == ast.ComprehensionScope {
			b.Coroutine = true
		}
	case *ast.Yield:
		a.yield(e.At)
		a.expr(e.Value)
	case *ast.YieldFrom:
		a.yield(e.At)
		a.expr(e.Value)
	case *ast.Compare:
		a.expr(e.Left)
		a.exprs(e.Comparators)
	case *ast.Call:
		a.expr(e.Func)
		a.exprs(e.Args)

		for _, k := range e.Keywords {
			a.expr(k.Value)
		}
	case *ast.FormattedValue:
		a.expr(e.Value)
		a.expr(e.Spec)
	case *ast.JoinedStr:
		a.exprs(e.Values)
	case *ast.Constant:
	case *ast.Attribute:
		a.expr(e.Value)
		e.Attr = a.mangle(e.Attr)
	case *ast.Subscript:
		a.expr(e.Value)
		a.expr(e.Index)
	case *ast.Starred:
		a.expr(e.Value)
	case *ast.Name:
		e.ID = a.mangle(e.ID)
		a.use(e.ID, e.At)
	case *ast.List:
		a.exprs(e.Elts)
	case *ast.Tuple:
		a.exprs(e.Elts)
	case *ast.Slice:
		a.expr(e.Lower)
		a.expr(e.Upper)
		a.expr(e.Step)
	}
}

func (a *analyzer) yield(at loc.T) {
	b := a.current

	switch b.Kind {
	case ast.ComprehensionScope:
		fail(at, "'yield' inside %s", strings.Trim(b.Name, "<>"))
	case ast.FunctionScope:
		b.Generator = true
	case ast.ModuleScope, ast.ClassScope, ast.AnnotationScope:
		fail(at, "'yield' outside function")
	}
}

// comprehension analyzes a comprehension. The first iterable is evaluated in
// the enclosing block; everything else belongs to the new block.
func (a *analyzer) comprehension(name string, gens []*ast.Comprehension, elts ...ast.Expr) *ast.Scope {
	a.expr(gens[0].Iter)

	b := a.push(ast.ComprehensionScope, name)

	for i, g := range gens {
		if i > 0 {
			a.expr(g.Iter)
		}

		a.iterationTarget(g.Target)
		a.exprs(g.Ifs)

		if g.Async {
			b.Coroutine = true
		}
	}

	a.exprs(elts)
	a.pop()

	return b.Scope
}

func (a *analyzer) iterationTarget(e ast.Expr) {
	a.target(e)

	var names func(ast.Expr)

	names = func(e ast.Expr) {
		switch e := e.(type) {
		case *ast.Name:
			a.current.iterVars[e.ID] = true
		case *ast.Tuple:
			for _, elt := range e.Elts {
				names(elt)
			}
		case *ast.List:
			for _, elt := range e.Elts {
				names(elt)
			}
		case *ast.Starred:
			names(e.Value)
		}
	}

	names(e)
}

// walrus binds the target of an assignment expression. Inside a
// comprehension the name belongs to the nearest enclosing block that is not
// a comprehension.
func (a *analyzer) walrus(n *ast.Name) {
	n.ID = a.mangle(n.ID)

	if a.current.Kind != ast.ComprehensionScope {
		a.bind(n.ID, n.At)

		return
	}

	var chain []*block

	b := a.current
	for ; b.Kind == ast.ComprehensionScope; b = b.parent {
		if b.iterVars[n.ID] {
			fail(n.At, "assignment expression cannot rebind comprehension iteration variable '%s'", n.ID)
		}

		chain = append(chain, b)
	}

	if b.Kind == ast.ClassScope {
		fail(n.At, "assignment expression within a comprehension cannot be used in a class body")
	}

	if _, ok := b.where[n.ID]; !ok {
		b.where[n.ID] = n.At
	}

	if !b.global[n.ID] && !b.nonlocal[n.ID] {
		b.bound[n.ID] = true
	}

	for _, c := range chain {
		if b.Kind == ast.ModuleScope || b.global[n.ID] {
			c.global[n.ID] = true
		} else {
			c.outer[n.ID] = true
		}
	}
}

//nolint:cyclop
func (a *analyzer) pattern(p ast.Pattern) {
	switch p := p.(type) {
	case *ast.MatchValue:
		a.expr(p.Value)
	case *ast.MatchSingleton:
	case *ast.MatchSequence:
		for _, sub := range p.Patterns {
			a.pattern(sub)
		}
	case *ast.MatchMapping:
		a.exprs(p.Keys)

		for _, sub := range p.Patterns {
			a.pattern(sub)
		}

		if p.Rest != "" {
			p.Rest = a.mangle(p.Rest)
			a.bind(p.Rest, p.At)
		}
	case *ast.MatchClass:
		a.expr(p.Cls)

		for _, sub := range p.Patterns {
			a.pattern(sub)
		}

		for _, sub := range p.KwdPatterns {
			a.pattern(sub)
		}
	case *ast.MatchStar:
		if p.Name != "" {
			p.Name = a.mangle(p.Name)
			a.bind(p.Name, p.At)
		}
	case *ast.MatchAs:
		if p.Pattern != nil {
			a.pattern(p.Pattern)
		}

		if p.Name != "" {
			p.Name = a.mangle(p.Name)
			a.bind(p.Name, p.At)
		}
	case *ast.MatchOr:
		for _, sub := range p.Patterns {
			a.pattern(sub)
		}
	}
}

// resolve classifies every name in b given the names bound by enclosing
// function-like blocks. It returns the names b needs from those blocks.
//
//nolint:cyclop,funlen
func (b *block) resolve(enclosing map[string]bool) map[string]bool {
	names := map[string]bool{}

	for _, m := range []map[string]bool{b.bound, b.used, b.global, b.nonlocal, b.outer} {
		for name := range m {
			names[name] = true
		}
	}

	for name := range names {
		switch {
		case b.global[name]:
			b.Globals[name] = true

			if !b.outer[name] {
				b.Explicit[name] = true
			}
		case b.nonlocal[name]:
			if !enclosing[name] {
				fail(b.where[name], "no binding for nonlocal '%s' found", name)
			}

			b.Free[name] = true
		case b.outer[name]:
			b.Free[name] = true
		case b.bound[name]:
			b.Locals[name] = true
		case enclosing[name]:
			b.Free[name] = true
		default:
			b.Globals[name] = true
		}
	}

	inner := map[string]bool{}

	switch b.Kind {
	case ast.ModuleScope:
	case ast.ClassScope:
		for name := range enclosing {
			inner[name] = true
		}

		inner[ClassCell] = true
	case ast.FunctionScope, ast.ComprehensionScope, ast.AnnotationScope:
		for name := range enclosing {
			inner[name] = true
		}

		for name := range b.Explicit {
			delete(inner, name)
		}

		for name := range b.Locals {
			inner[name] = true
		}
	}

	for _, c := range b.children {
		for name := range c.resolve(inner) {
			switch {
			case b.Kind == ast.ClassScope && name == ClassCell:
				b.ClassCell = true
			case b.Locals[name] && b.FunctionLike():
				b.Cells[name] = true
			default:
				b.Free[name] = true
			}
		}
	}

	return b.Free
}
