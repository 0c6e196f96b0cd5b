// Released under an MIT license. See LICENSE.

// Package ast defines the syntax tree produced by the parser and consumed by
// the symbol table pass and the evaluator.
package ast

import (
	"github.com/michaelmacinnis/enclave/internal/common/struct/loc"
)

// Node is implemented by every syntax tree node.
type Node interface {
	Position() loc.T
}

// Expr is an expression node.
type Expr interface {
	Node
	expr()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmt()
}

// Pattern is a structural pattern used by match statements.
type Pattern interface {
	Node
	pattern()
}

// Pos records where a node starts.
type Pos struct {
	At loc.T
}

// Position returns the node's source location.
func (p Pos) Position() loc.T {
	return p.At
}

// Module is the root of a parsed source file.
type Module struct {
	Pos

	Body  []Stmt
	Scope *Scope
}

// Statements.
type (
	FunctionDef struct {
		Pos

		Name       string
		Args       *Arguments
		Body       []Stmt
		Decorators []Expr
		Returns    Expr
		TypeParams []*TypeParam
		Async      bool
		Doc        string

		Scope      *Scope // The function body.
		ParamScope *Scope // Generic parameters, if any.
	}

	ClassDef struct {
		Pos

		Name       string
		Bases      []Expr
		Keywords   []*Keyword
		Body       []Stmt
		Decorators []Expr
		TypeParams []*TypeParam
		Doc        string

		Scope      *Scope
		ParamScope *Scope
	}

	Return struct {
		Pos

		Value Expr
	}

	Delete struct {
		Pos

		Targets []Expr
	}

	Assign struct {
		Pos

		Targets []Expr
		Value   Expr
	}

	AugAssign struct {
		Pos

		Target Expr
		Op     string
		Value  Expr
	}

	AnnAssign struct {
		Pos

		Target     Expr
		Annotation Expr
		Value      Expr
		Simple     bool
	}

	TypeAlias struct {
		Pos

		Name       string
		TypeParams []*TypeParam
		Value      Expr

		Scope      *Scope // Lazily evaluated value.
		ParamScope *Scope
	}

	For struct {
		Pos

		Target Expr
		Iter   Expr
		Body   []Stmt
		Else   []Stmt
		Async  bool
	}

	While struct {
		Pos

		Test Expr
		Body []Stmt
		Else []Stmt
	}

	If struct {
		Pos

		Test Expr
		Body []Stmt
		Else []Stmt
	}

	With struct {
		Pos

		Items []*WithItem
		Body  []Stmt
		Async bool
	}

	Match struct {
		Pos

		Subject Expr
		Cases   []*MatchCase
	}

	Raise struct {
		Pos

		Exc   Expr
		Cause Expr
	}

	Try struct {
		Pos

		Body     []Stmt
		Handlers []*ExceptHandler
		Else     []Stmt
		Finally  []Stmt
		Star     bool
	}

	Assert struct {
		Pos

		Test Expr
		Msg  Expr
	}

	Import struct {
		Pos

		Names []*Alias
	}

	ImportFrom struct {
		Pos

		Module string
		Names  []*Alias
		Level  int
	}

	Global struct {
		Pos

		Names []string
	}

	Nonlocal struct {
		Pos

		Names []string
	}

	ExprStmt struct {
		Pos

		Value Expr
	}

	Pass struct {
		Pos
	}

	Break struct {
		Pos
	}

	Continue struct {
		Pos
	}
)

// Expressions.
type (
	BoolOp struct {
		Pos

		Op     string
		Values []Expr
	}

	NamedExpr struct {
		Pos

		Target *Name
		Value  Expr
	}

	BinOp struct {
		Pos

		Left  Expr
		Op    string
		Right Expr
	}

	UnaryOp struct {
		Pos

		Op      string
		Operand Expr
	}

	Lambda struct {
		Pos

		Args *Arguments
		Body Expr

		Scope *Scope
	}

	IfExp struct {
		Pos

		Test Expr
		Body Expr
		Else Expr
	}

	// Dict display. A nil key marks a ** expansion of the matching value.
	Dict struct {
		Pos

		Keys   []Expr
		Values []Expr
	}

	Set struct {
		Pos

		Elts []Expr
	}

	ListComp struct {
		Pos

		Elt        Expr
		Generators []*Comprehension

		Scope *Scope
	}

	SetComp struct {
		Pos

		Elt        Expr
		Generators []*Comprehension

		Scope *Scope
	}

	DictComp struct {
		Pos

		Key        Expr
		Value      Expr
		Generators []*Comprehension

		Scope *Scope
	}

	GeneratorExp struct {
		Pos

		Elt        Expr
		Generators []*Comprehension

		Scope *Scope
	}

	Await struct {
		Pos

		Value Expr
	}

	Yield struct {
		Pos

		Value Expr
	}

	YieldFrom struct {
		Pos

		Value Expr
	}

	Compare struct {
		Pos

		Left        Expr
		Ops         []string
		Comparators []Expr
	}

	Call struct {
		Pos

		Func     Expr
		Args     []Expr
		Keywords []*Keyword
	}

	FormattedValue struct {
		Pos

		Value      Expr
		Conversion rune
		Spec       Expr
	}

	JoinedStr struct {
		Pos

		Values []Expr
	}

	// Constant holds nil (None), bool, int64, float64, string, Bytes,
	// or Ellipsis.
	Constant struct {
		Pos

		Value any
	}

	Attribute struct {
		Pos

		Value Expr
		Attr  string
	}

	Subscript struct {
		Pos

		Value Expr
		Index Expr
	}

	Starred struct {
		Pos

		Value Expr
	}

	Name struct {
		Pos

		ID string
	}

	List struct {
		Pos

		Elts []Expr
	}

	Tuple struct {
		Pos

		Elts []Expr
	}

	Slice struct {
		Pos

		Lower Expr
		Upper Expr
		Step  Expr
	}
)

// Patterns.
type (
	MatchValue struct {
		Pos

		Value Expr
	}

	MatchSingleton struct {
		Pos

		Value any
	}

	MatchSequence struct {
		Pos

		Patterns []Pattern
	}

	MatchMapping struct {
		Pos

		Keys     []Expr
		Patterns []Pattern
		Rest     string
	}

	MatchClass struct {
		Pos

		Cls         Expr
		Patterns    []Pattern
		KwdAttrs    []string
		KwdPatterns []Pattern
	}

	// MatchStar is a starred capture inside a sequence pattern. An empty
	// name is the wildcard.
	MatchStar struct {
		Pos

		Name string
	}

	// MatchAs is a capture, a wildcard (nil pattern and empty name), or
	// "pattern as name".
	MatchAs struct {
		Pos

		Pattern Pattern
		Name    string
	}

	MatchOr struct {
		Pos

		Patterns []Pattern
	}
)

// Supporting nodes.
type (
	Arguments struct {
		PosOnly    []*Arg
		Args       []*Arg
		Vararg     *Arg
		KwOnly     []*Arg
		KwDefaults []Expr // Parallel to KwOnly, nil when there is no default.
		Kwarg      *Arg
		Defaults   []Expr // Right-aligned with PosOnly + Args.
	}

	Arg struct {
		Pos

		Name       string
		Annotation Expr
	}

	// Keyword is a keyword argument. An empty Arg marks a ** expansion.
	Keyword struct {
		Pos

		Arg   string
		Value Expr
	}

	Alias struct {
		Pos

		Name   string
		AsName string
	}

	WithItem struct {
		Context Expr
		Vars    Expr
	}

	ExceptHandler struct {
		Pos

		Type Expr
		Name string
		Body []Stmt
	}

	Comprehension struct {
		Target Expr
		Iter   Expr
		Ifs    []Expr
		Async  bool
	}

	MatchCase struct {
		Pattern Pattern
		Guard   Expr
		Body    []Stmt
	}

	TypeParam struct {
		Pos

		Kind    TypeParamKind
		Name    string
		Bound   Expr
		Default Expr
	}
)

// TypeParamKind distinguishes the three generic parameter forms.
type TypeParamKind int

// Generic parameter forms.
const (
	TypeVar TypeParamKind = iota
	TypeVarTuple
	ParamSpec
)

// Bytes is the value of a bytes literal.
type Bytes string

// EllipsisType is the type of the Ellipsis constant.
type EllipsisType struct{}

// Ellipsis is the value of the "..." literal.
var Ellipsis = EllipsisType{} //nolint:gochecknoglobals

func (*FunctionDef) stmt() {}
func (*ClassDef) stmt()    {}
func (*Return) stmt()      {}
func (*Delete) stmt()      {}
func (*Assign) stmt()      {}
func (*AugAssign) stmt()   {}
func (*AnnAssign) stmt()   {}
func (*TypeAlias) stmt()   {}
func (*For) stmt()         {}
func (*While) stmt()       {}
func (*If) stmt()          {}
func (*With) stmt()        {}
func (*Match) stmt()       {}
func (*Raise) stmt()       {}
func (*Try) stmt()         {}
func (*Assert) stmt()      {}
func (*Import) stmt()      {}
func (*ImportFrom) stmt()  {}
func (*Global) stmt()      {}
func (*Nonlocal) stmt()    {}
func (*ExprStmt) stmt()    {}
func (*Pass) stmt()        {}
func (*Break) stmt()       {}
func (*Continue) stmt()    {}

func (*BoolOp) expr()         {}
func (*NamedExpr) expr()      {}
func (*BinOp) expr()          {}
func (*UnaryOp) expr()        {}
func (*Lambda) expr()         {}
func (*IfExp) expr()          {}
func (*Dict) expr()           {}
func (*Set) expr()            {}
func (*ListComp) expr()       {}
func (*SetComp) expr()        {}
func (*DictComp) expr()       {}
func (*GeneratorExp) expr()   {}
func (*Await) expr()          {}
func (*Yield) expr()          {}
func (*YieldFrom) expr()      {}
func (*Compare) expr()        {}
func (*Call) expr()           {}
func (*FormattedValue) expr() {}
func (*JoinedStr) expr()      {}
func (*Constant) expr()       {}
func (*Attribute) expr()      {}
func (*Subscript) expr()      {}
func (*Starred) expr()        {}
func (*Name) expr()           {}
func (*List) expr()           {}
func (*Tuple) expr()          {}
func (*Slice) expr()          {}

func (*MatchValue) pattern()     {}
func (*MatchSingleton) pattern() {}
func (*MatchSequence) pattern()  {}
func (*MatchMapping) pattern()   {}
func (*MatchClass) pattern()     {}
func (*MatchStar) pattern()      {}
func (*MatchAs) pattern()        {}
func (*MatchOr) pattern()        {}

// Kind returns the name of the node's type, as used in error messages.
func Kind(n Node) string {
	switch n.(type) {
	case *FunctionDef:
		return "FunctionDef"
	case *ClassDef:
		return "ClassDef"
	case *Return:
		return "Return"
	case *Delete:
		return "Delete"
	case *Assign:
		return "Assign"
	case *AugAssign:
		return "AugAssign"
	case *AnnAssign:
		return "AnnAssign"
	case *TypeAlias:
		return "TypeAlias"
	case *For:
		return "For"
	case *While:
		return "While"
	case *If:
		return "If"
	case *With:
		return "With"
	case *Match:
		return "Match"
	case *Raise:
		return "Raise"
	case *Try:
		return "Try"
	case *Assert:
		return "Assert"
	case *Import:
		return "Import"
	case *ImportFrom:
		return "ImportFrom"
	case *Global:
		return "Global"
	case *Nonlocal:
		return "Nonlocal"
	case *ExprStmt:
		return "Expr"
	case *Pass:
		return "Pass"
	case *Break:
		return "Break"
	case *Continue:
		return "Continue"
	case *BoolOp:
		return "BoolOp"
	case *NamedExpr:
		return "NamedExpr"
	case *BinOp:
		return "BinOp"
	case *UnaryOp:
		return "UnaryOp"
	case *Lambda:
		return "Lambda"
	case *IfExp:
		return "IfExp"
	case *Dict:
		return "Dict"
	case *Set:
		return "Set"
	case *ListComp:
		return "ListComp"
	case *SetComp:
		return "SetComp"
	case *DictComp:
		return "DictComp"
	case *GeneratorExp:
		return "GeneratorExp"
	case *Await:
		return "Await"
	case *Yield:
		return "Yield"
	case *YieldFrom:
		return "YieldFrom"
	case *Compare:
		return "Compare"
	case *Call:
		return "Call"
	case *FormattedValue:
		return "FormattedValue"
	case *JoinedStr:
		return "JoinedStr"
	case *Constant:
		return "Constant"
	case *Attribute:
		return "Attribute"
	case *Subscript:
		return "Subscript"
	case *Starred:
		return "Starred"
	case *Name:
		return "Name"
	case *List:
		return "List"
	case *Tuple:
		return "Tuple"
	case *Slice:
		return "Slice"
	}

	return "Node"
}
