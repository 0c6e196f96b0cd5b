// Released under an MIT license. See LICENSE.

// Package scope provides the bindings of an executing guest block.
//
// Function-like blocks (functions, lambdas, comprehensions and the blocks
// that hold generic type parameters) keep every local in a cell. Closures
// capture those cells, never copies of them, so every closure created by
// one call sees the same binding. Module and class blocks keep their
// bindings in a namespace.
package scope

import (
	"github.com/michaelmacinnis/enclave/internal/engine/object"
	"github.com/michaelmacinnis/enclave/internal/reader/ast"
	"github.com/michaelmacinnis/enclave/internal/reader/symtab"
)

// T (scope) holds the bindings of one block.
type T struct {
	Info     *ast.Scope
	Globals  *object.Dict
	Builtins *object.Dict

	// Namespace is the module globals for module blocks and the class
	// namespace for class blocks. It is nil for function-like blocks.
	Namespace object.Value

	cells map[string]*object.Cell
	free  map[string]*object.Cell
}

type scope = T

// Module creates the scope of a module body.
func Module(info *ast.Scope, globals, builtins *object.Dict) *scope {
	return &scope{
		Info:      info,
		Globals:   globals,
		Builtins:  builtins,
		Namespace: globals,
	}
}

// Function creates the scope of a function-like block. Every local gets a
// fresh, unbound cell.
func Function(info *ast.Scope, globals, builtins *object.Dict, closure map[string]*object.Cell) *scope {
	cells := make(map[string]*object.Cell, len(info.Locals))
	for name := range info.Locals {
		cells[name] = &object.Cell{}
	}

	return &scope{
		Info:     info,
		Globals:  globals,
		Builtins: builtins,
		cells:    cells,
		free:     closure,
	}
}

// Class creates the scope of a class body executing in ns.
func Class(info *ast.Scope, globals, builtins *object.Dict, ns object.Value, closure map[string]*object.Cell) *scope {
	s := &scope{
		Info:      info,
		Globals:   globals,
		Builtins:  builtins,
		Namespace: ns,
		cells:     map[string]*object.Cell{},
		free:      closure,
	}

	if info.ClassCell {
		s.cells[symtab.ClassCell] = &object.Cell{}
	}

	return s
}

// Bind sets a local binding without consulting the block's declarations.
// It is used for parameters.
func (s *scope) Bind(name string, v object.Value) {
	if c, ok := s.cells[name]; ok {
		c.Value = v

		return
	}

	s.cells[name] = &object.Cell{Value: v}
}

// Cell returns the cell for name, owned by this block or captured by it.
func (s *scope) Cell(name string) *object.Cell {
	if c, ok := s.cells[name]; ok {
		return c
	}

	return s.free[name]
}

// Capture returns the cells a nested block described by info needs.
func (s *scope) Capture(info *ast.Scope) map[string]*object.Cell {
	if len(info.Free) == 0 {
		return nil
	}

	closure := make(map[string]*object.Cell, len(info.Free))

	if s.cells == nil {
		s.cells = map[string]*object.Cell{}
	}

	for name := range info.Free {
		c := s.Cell(name)
		if c == nil {
			// A name the analyzer routed through this block without a
			// binding here. Give it its own unbound cell.
			c = &object.Cell{}
			s.cells[name] = c
		}

		closure[name] = c
	}

	return closure
}

// FunctionLike returns true if locals live in cells.
func (s *scope) FunctionLike() bool {
	return s.Namespace == nil
}

// Lookup returns the value bound to name.
func (s *scope) Lookup(th *object.Thread, name string) object.Value {
	info := s.Info

	switch {
	case info.Free[name]:
		if !s.FunctionLike() {
			if v, ok := s.fromNamespace(th, name); ok {
				return v
			}
		}

		c := s.free[name]
		if c == nil || c.Value == nil {
			object.Raise(object.NameError, "cannot access free variable '%s' where it is not associated with a value in enclosing scope", name)
		}

		return c.Value
	case s.FunctionLike() && info.Locals[name]:
		c := s.cells[name]
		if c == nil || c.Value == nil {
			object.Raise(object.UnboundLocalError, "cannot access local variable '%s' where it is not associated with a value", name)
		}

		return c.Value
	case !s.FunctionLike() && !info.Explicit[name]:
		if v, ok := s.fromNamespace(th, name); ok {
			return v
		}
	}

	return s.Global(th, name)
}

// Global resolves name in the module namespace and then the builtins.
func (s *scope) Global(th *object.Thread, name string) object.Value {
	if v, ok := s.Globals.GetStr(name); ok {
		return v
	}

	if s.Builtins != nil {
		if v, ok := s.Builtins.GetStr(name); ok {
			return v
		}
	}

	e := object.NewException(object.NameError, "name '"+name+"' is not defined")
	e.Dict.SetStr("name", name)

	panic(e)
}

// Store binds name to v.
func (s *scope) Store(th *object.Thread, name string, v object.Value) {
	info := s.Info

	switch {
	case info.Free[name] && (s.FunctionLike() || s.free[name] != nil && !info.Locals[name]):
		c := s.free[name]
		if c == nil {
			if s.free == nil {
				s.free = map[string]*object.Cell{}
			}

			c = &object.Cell{}
			s.free[name] = c
		}

		c.Value = v
	case info.Explicit[name] || s.FunctionLike() && info.Globals[name]:
		s.Globals.SetStr(name, v)
	case s.FunctionLike():
		s.Bind(name, v)
	default:
		s.toNamespace(th, name, v)
	}
}

// Delete removes the binding of name.
func (s *scope) Delete(th *object.Thread, name string) {
	info := s.Info

	switch {
	case info.Free[name] && s.FunctionLike():
		c := s.free[name]
		if c == nil || c.Value == nil {
			object.Raise(object.NameError, "cannot access free variable '%s' where it is not associated with a value in enclosing scope", name)
		}

		c.Value = nil

		return
	case s.FunctionLike() && info.Locals[name]:
		c := s.cells[name]
		if c == nil || c.Value == nil {
			object.Raise(object.UnboundLocalError, "cannot access local variable '%s' where it is not associated with a value", name)
		}

		c.Value = nil

		return
	case info.Explicit[name] || s.FunctionLike():
		if s.Globals.DelStr(name) {
			return
		}
	default:
		if s.deleteNamespace(th, name) {
			return
		}
	}

	e := object.NewException(object.NameError, "name '"+name+"' is not defined")
	e.Dict.SetStr("name", name)

	panic(e)
}

// Discard removes the binding of name if there is one.
func (s *scope) Discard(th *object.Thread, name string) {
	if s.FunctionLike() || s.Info.Free[name] && !s.Info.Locals[name] {
		if c := s.Cell(name); c != nil {
			c.Value = nil

			return
		}
	}

	if s.Info.Explicit[name] || s.FunctionLike() {
		s.Globals.DelStr(name)

		return
	}

	s.deleteNamespace(th, name)
}

// Locals returns the bindings of the block as a new dict.
func (s *scope) Locals() *object.Dict {
	if d, ok := s.Namespace.(*object.Dict); ok {
		return d.Copy()
	}

	d := object.NewDict()

	for name := range s.Info.Locals {
		if c := s.cells[name]; c != nil && c.Value != nil {
			d.SetStr(name, c.Value)
		}
	}

	return d
}

func (s *scope) fromNamespace(th *object.Thread, name string) (object.Value, bool) {
	if d, ok := s.Namespace.(*object.Dict); ok {
		return d.GetStr(name)
	}

	return lookupItem(th, s.Namespace, name)
}

func (s *scope) toNamespace(th *object.Thread, name string, v object.Value) {
	if d, ok := s.Namespace.(*object.Dict); ok {
		d.SetStr(name, v)

		return
	}

	object.SetItem(th, s.Namespace, name, v)
}

func (s *scope) deleteNamespace(th *object.Thread, name string) (found bool) {
	if d, ok := s.Namespace.(*object.Dict); ok {
		return d.DelStr(name)
	}

	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*object.Exception); ok && e.Matches(object.KeyError) {
				found = false

				return
			}

			panic(r)
		}
	}()

	object.DelItem(th, s.Namespace, name)

	return true
}

// lookupItem reads a key from a mapping returned by __prepare__.
func lookupItem(th *object.Thread, ns object.Value, name string) (v object.Value, found bool) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*object.Exception); ok && e.Matches(object.KeyError) {
				v, found = nil, false

				return
			}

			panic(r)
		}
	}()

	return object.GetItem(th, ns, name), true
}
