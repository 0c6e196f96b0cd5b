// Released under an MIT license. See LICENSE.

// Package object implements the runtime object model: value
// representations, classes, the attribute protocol (including the guarded
// entry points that every guest attribute operation goes through),
// operators, iteration, exceptions and generators.
//
// Guest values are plain Go values where possible:
//
//	None      NoneType{}
//	bool      bool
//	int       int64
//	float     float64
//	str       string
//	bytes     Bytes
//	tuple     Tuple
//
// Mutable and reference types are pointers (*List, *Dict, *Set, *Class,
// *Instance, ...). A nil Value means "no value" (an unbound cell, a missing
// result) and is never visible to guest code.
package object

import (
	"io"
	"log/slog"

	"github.com/michaelmacinnis/enclave/internal/engine/guard"
)

// Value is a guest value.
type Value = any

// NoneType is the type of None.
type NoneType struct{}

// EllipsisType is the type of Ellipsis.
type EllipsisType struct{}

// NotImplementedType is the type of NotImplemented.
type NotImplementedType struct{}

// Singletons.
//
//nolint:gochecknoglobals
var (
	None           = NoneType{}
	Ellipsis       = EllipsisType{}
	NotImplemented = NotImplementedType{}
)

// Bytes is an immutable byte string.
type Bytes string

// Tuple is an immutable sequence.
type Tuple []Value

// Keyword is a keyword argument.
type Keyword struct {
	Name  string
	Value Value
}

// Native is the signature of functions implemented by the host.
type Native func(th *Thread, args []Value, kw []Keyword) Value

// Builtin is a host function. When Self is not nil the function is bound
// and Self is passed as the first argument.
type Builtin struct {
	Name   string
	Module string
	Fn     Native
	Self   Value
	Owner  *Class // Set for methods of builtin classes.
	Static bool   // Not bound when accessed through an instance.
	Doc    string
}

// NewBuiltin creates a module level host function.
func NewBuiltin(name string, fn Native) *Builtin {
	return &Builtin{Name: name, Fn: fn}
}

// Bind returns a copy of b bound to self.
func (b *Builtin) Bind(self Value) *Builtin {
	c := *b
	c.Self = self

	return &c
}

// Cell holds one binding shared by every closure that captures it. A nil
// Value means the binding is unbound.
type Cell struct {
	Value Value
}

// Invoker calls guest functions. It is implemented by the evaluator.
type Invoker interface {
	Invoke(th *Thread, f *Function, args []Value, kw []Keyword) Value
}

// Importer resolves import statements. Globals are those of the importing
// module and are used to resolve relative imports.
type Importer interface {
	Import(th *Thread, name string, fromlist []string, level int, globals *Dict) Value
}

// DefaultRecursionLimit is the default maximum depth of guest calls.
const DefaultRecursionLimit = 1000

// Thread is the state of one run. Only one goroutine belonging to a thread
// runs at any time.
type Thread struct {
	Guard    *guard.Policy
	Importer Importer
	Invoker  Invoker
	Logger   *slog.Logger
	Stdout   io.Writer

	// Builtins used by code that needs them implicitly (dir, super).
	Builtins *Dict

	// Denied, if set, is called before AttributeBlocked is raised.
	Denied func(k guard.Kind, name string)

	RecursionLimit int

	depth      int
	generators map[*Generator]struct{}
	repr       map[any]bool
}

// NewThread creates a thread with the default policy and limits.
func NewThread() *Thread {
	return &Thread{
		Guard:          guard.Default(),
		Logger:         slog.Default(),
		Stdout:         io.Discard,
		RecursionLimit: DefaultRecursionLimit,
		generators:     map[*Generator]struct{}{},
		repr:           map[any]bool{},
	}
}

// Enter records a guest call. It raises RecursionError when the limit is
// exceeded.
func (th *Thread) Enter() {
	th.depth++

	limit := th.RecursionLimit
	if limit <= 0 {
		limit = DefaultRecursionLimit
	}

	if th.depth > limit {
		th.depth--
		Raise(RecursionError, "maximum recursion depth exceeded")
	}
}

// Leave records the end of a guest call.
func (th *Thread) Leave() {
	th.depth--
}

// Depth returns the current guest call depth.
func (th *Thread) Depth() int {
	return th.depth
}

// Close closes every generator still suspended. It is called at the end of
// a run.
func (th *Thread) Close() {
	for len(th.generators) > 0 {
		for g := range th.generators {
			g.shutdown(th)
		}
	}
}

func (th *Thread) track(g *Generator) {
	if th.generators == nil {
		th.generators = map[*Generator]struct{}{}
	}

	th.generators[g] = struct{}{}
}

func (th *Thread) untrack(g *Generator) {
	delete(th.generators, g)
}

// Live returns the number of generators that have started but not finished.
func (th *Thread) Live() int {
	return len(th.generators)
}

// Prim returns the primitive value underlying v. Instances of guest
// subclasses of builtin types carry one.
func Prim(v Value) Value {
	if i, ok := v.(*Instance); ok && i.Base != nil {
		return i.Base
	}

	return v
}

// Identity returns a value usable as a map key that is unique to v's
// identity.
func Identity(v Value) any {
	switch v := v.(type) {
	case *List, *Dict, *Set, *Class, *Instance, *Exception, *Function,
		*Builtin, *Method, *Module, *Generator, *Property, *ClassMethod,
		*StaticMethod, *Super, *Iterator, *Range, *Slice, *Traceback,
		*FrameSurrogate, *Cell, *TypeVar, *TypeAlias, *GenericAlias, *Union:
		return v
	case Tuple:
		if len(v) == 0 {
			return "()"
		}

		return &v[0]
	}

	return v
}

// Is implements the identity operator.
func Is(a, b Value) bool {
	switch a.(type) {
	case Tuple:
		if _, ok := b.(Tuple); !ok {
			return false
		}
	case float64:
		// Floats compare by value; NaN is never identical to itself here.
		if bf, ok := b.(float64); ok {
			return a.(float64) == bf
		}

		return false
	}

	defer func() {
		_ = recover()
	}()

	return Identity(a) == Identity(b)
}
