// Released under an MIT license. See LICENSE.

package object

import (
	"github.com/michaelmacinnis/enclave/internal/reader/ast"
)

// Instance is an instance of a guest class. Instances of classes derived
// from a builtin type carry a value of that type in Base.
type Instance struct {
	Class *Class
	Dict  *Dict
	Base  Value
}

// NewInstance creates an instance of c.
func NewInstance(c *Class) *Instance {
	return &Instance{Class: c, Dict: NewDict()}
}

// List is a mutable sequence.
type List struct {
	Items []Value
}

// NewList creates a list holding items.
func NewList(items ...Value) *List {
	return &List{Items: items}
}

// Range is an immutable arithmetic sequence.
type Range struct {
	Start, Stop, Step int64
}

// Len returns the number of elements in r.
func (r *Range) Len() int64 {
	switch {
	case r.Step > 0 && r.Start < r.Stop:
		return (r.Stop-r.Start-1)/r.Step + 1
	case r.Step < 0 && r.Start > r.Stop:
		return (r.Start-r.Stop-1)/(-r.Step) + 1
	}

	return 0
}

// At returns the element at index i, which must be in range.
func (r *Range) At(i int64) int64 {
	return r.Start + i*r.Step
}

// Slice is the value of a slice expression.
type Slice struct {
	Start, Stop, Step Value
}

// Code is the executable part of a function.
type Code struct {
	Name     string
	Filename string
	Line     int

	Args  *ast.Arguments
	Body  []ast.Stmt
	Scope *ast.Scope

	// Expr is the body of a lambda.
	Expr ast.Expr

	Generator bool
	Coroutine bool
}

// Function is a guest function.
type Function struct {
	Name     string
	Qualname string
	Module   string
	Doc      Value

	Code     *Code
	Globals  *Dict
	Builtins *Dict
	Closure  map[string]*Cell

	Defaults    Tuple
	KwDefaults  *Dict
	Annotations *Dict
	TypeParams  Tuple

	// Dict holds attributes assigned by guest code.
	Dict *Dict
}

// Method is a function bound to a receiver.
type Method struct {
	Func Value
	Self Value
}

// Property is a data descriptor built from accessor functions.
type Property struct {
	Get, Set, Del Value
	Doc           Value
	Name          string
}

// ClassMethod binds its function to the class.
type ClassMethod struct {
	Func Value
}

// StaticMethod does not bind its function.
type StaticMethod struct {
	Func Value
}

// Super is a proxy that resolves attributes in the MRO of Self's class,
// starting after Class.
type Super struct {
	Class *Class
	Self  Value
	Type  *Class
}

// Module is a namespace created by an import.
type Module struct {
	Name string
	Dict *Dict

	// ReadOnly modules are restricted proxies of host modules.
	ReadOnly bool
}

// NewModule creates a module with __name__ set.
func NewModule(name string) *Module {
	m := &Module{Name: name, Dict: NewDict()}
	m.Dict.SetStr("__name__", name)

	return m
}

// Frame is the line tracking state of an executing guest block.
type Frame struct {
	Name     string
	Filename string
	Line     int
}

// FrameSurrogate is the only view of a frame that guest code gets.
type FrameSurrogate struct {
	Frame *Frame
}

// Traceback is one entry in an exception's traceback chain.
type Traceback struct {
	Frame *Frame
	Line  int
	Next  *Traceback
}

// TypeVar is a generic type parameter.
type TypeVar struct {
	Name    string
	Kind    ast.TypeParamKind
	Bound   Value
	Default Value
}

// TypeAlias is the value bound by a type statement. The aliased value is
// computed on first access.
type TypeAlias struct {
	Name       string
	TypeParams Tuple
	Compute    func(th *Thread) Value

	value Value
}

// Value returns the aliased value, computing it once.
func (a *TypeAlias) Value(th *Thread) Value {
	if a.value == nil {
		a.value = a.Compute(th)
	}

	return a.value
}

// GenericAlias is a subscripted generic class, as in list[int].
type GenericAlias struct {
	Origin Value
	Args   Tuple
}

// Union is the value of X | Y for classes.
type Union struct {
	Args Tuple
}

// Iterator is an iterator implemented by the host. Next returns false when
// the iterator is exhausted.
type Iterator struct {
	Name string
	Next func(th *Thread) (Value, bool)

	done bool
}

// NewIterator creates a host iterator.
func NewIterator(name string, next func(th *Thread) (Value, bool)) *Iterator {
	return &Iterator{Name: name, Next: next}
}

// Step advances it.
func (it *Iterator) Step(th *Thread) (Value, bool) {
	if it.done {
		return nil, false
	}

	v, ok := it.Next(th)
	if !ok {
		it.done = true
	}

	return v, ok
}
