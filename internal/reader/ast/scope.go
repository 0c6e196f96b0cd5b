// Released under an MIT license. See LICENSE.

package ast

// ScopeKind identifies the kind of block a Scope describes.
type ScopeKind int

// Scope kinds.
const (
	ModuleScope ScopeKind = iota
	FunctionScope
	ClassScope
	ComprehensionScope
	AnnotationScope
)

func (k ScopeKind) String() string {
	switch k {
	case ModuleScope:
		return "module"
	case FunctionScope:
		return "function"
	case ClassScope:
		return "class"
	case ComprehensionScope:
		return "comprehension"
	case AnnotationScope:
		return "annotation"
	}

	return "unknown"
}

// Scope is the result of symbol table analysis for one block.
type Scope struct {
	Kind ScopeKind
	Name string

	// Locals are the names bound in this block. For function-like blocks
	// these live in cells owned by the block's frame.
	Locals map[string]bool

	// Free names are bound in an enclosing function-like block and reach
	// this block through closure cells.
	Free map[string]bool

	// Cells are locals that some nested block captures.
	Cells map[string]bool

	// Globals are names declared global, or names that resolve to the
	// module namespace because no enclosing block binds them.
	Globals map[string]bool

	// Explicit is true for names declared with a global statement.
	Explicit map[string]bool

	Generator bool // The block contains yield.
	Coroutine bool // The block is an async function.

	// ClassCell is true for class blocks when a method refers to
	// __class__ or calls super().
	ClassCell bool
}

// NewScope creates an empty Scope of kind k.
func NewScope(k ScopeKind, name string) *Scope {
	return &Scope{
		Kind:     k,
		Name:     name,
		Locals:   map[string]bool{},
		Free:     map[string]bool{},
		Cells:    map[string]bool{},
		Globals:  map[string]bool{},
		Explicit: map[string]bool{},
	}
}

// FunctionLike returns true for blocks whose locals live in cells.
func (s *Scope) FunctionLike() bool {
	return s.Kind == FunctionScope ||
		s.Kind == ComprehensionScope ||
		s.Kind == AnnotationScope
}
