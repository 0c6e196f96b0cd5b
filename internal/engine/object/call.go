// Released under an MIT license. See LICENSE.

package object

import (
	"github.com/michaelmacinnis/enclave/internal/common/validate"
)

// Call calls f.
func Call(th *Thread, f Value, args []Value, kw []Keyword) Value {
	switch fn := f.(type) {
	case *Builtin:
		return callBuiltin(th, fn, args, kw)
	case *Function:
		if th.Invoker == nil {
			Raise(SystemError, "no evaluator available to call %s", fn.Qualname)
		}

		return th.Invoker.Invoke(th, fn, args, kw)
	case *Method:
		return Call(th, fn.Func, prepend(fn.Self, args), kw)
	case *Class:
		return CallClass(th, fn, args, kw)
	case *StaticMethod:
		return Call(th, fn.Func, args, kw)
	case *Instance, *Exception:
		t := TypeOf(fn)
		if call, ok := t.Lookup("__call__"); ok {
			return Call(th, bind(th, call, fn, t), args, kw)
		}
	}

	Raise(TypeError, "'%s' object is not callable", TypeName(f))

	return nil
}

// Callable returns true if v can be called.
func Callable(v Value) bool {
	switch v := v.(type) {
	case *Builtin, *Function, *Method, *Class, *StaticMethod:
		return true
	case *Instance, *Exception:
		_, ok := TypeOf(v).Lookup("__call__")

		return ok
	}

	return false
}

func callBuiltin(th *Thread, b *Builtin, args []Value, kw []Keyword) Value {
	if b.Self != nil {
		args = prepend(b.Self, args)
	}

	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*validate.Error); ok {
				Raise(TypeError, "%s() %s", b.Name, e.Msg)
			}

			panic(r)
		}
	}()

	return b.Fn(th, args, kw)
}

func prepend(v Value, args []Value) []Value {
	a := make([]Value, 0, len(args)+1)

	return append(append(a, v), args...)
}

// define adds a host method to a builtin class.
func define(c *Class, name string, fn Native) *Builtin {
	b := &Builtin{Name: name, Module: "builtins", Fn: fn, Owner: c}
	c.Dict.SetStr(name, b)

	return b
}

// method adds a host method that checks its receiver's type.
func method(c *Class, name string, fn func(th *Thread, self Value, args []Value, kw []Keyword) Value) *Builtin {
	return define(c, name, func(th *Thread, args []Value, kw []Keyword) Value {
		if len(args) == 0 {
			Raise(TypeError, "unbound method %s.%s() needs an argument", c.Name, name)
		}

		if !IsInstance(args[0], c) {
			Raise(TypeError, "descriptor '%s' for '%s' objects doesn't apply to a '%s' object", name, c.Name, TypeName(args[0]))
		}

		return fn(th, args[0], args[1:], kw)
	})
}

// NoKeywords raises TypeError if any keyword arguments were passed.
func NoKeywords(name string, kw []Keyword) {
	if len(kw) > 0 {
		Raise(TypeError, "%s() takes no keyword arguments", name)
	}
}

// Args binds positional and keyword arguments to names. The first min
// names are required. Missing optional arguments are nil.
func Args(name string, args []Value, kw []Keyword, min int, names ...string) []Value {
	if len(args) > len(names) {
		Raise(TypeError, "%s() takes at most %s (%d given)", name, validate.Count(len(names), "argument", "s"), len(args))
	}

	bound := make([]Value, len(names))
	copy(bound, args)

	for _, k := range kw {
		found := false

		for i, n := range names {
			if n != k.Name {
				continue
			}

			if bound[i] != nil {
				Raise(TypeError, "argument for %s() given by name ('%s') and position (%d)", name, n, i+1)
			}

			bound[i] = k.Value
			found = true

			break
		}

		if !found {
			Raise(TypeError, "%s() got an unexpected keyword argument '%s'", name, k.Name)
		}
	}

	for i := 0; i < min; i++ {
		if bound[i] == nil {
			Raise(TypeError, "%s() missing required argument '%s' (pos %d)", name, names[i], i+1)
		}
	}

	return bound
}

// Kwargs returns keyword arguments as a dict.
func Kwargs(kw []Keyword) *Dict {
	d := NewDict()
	for _, k := range kw {
		d.SetStr(k.Name, k.Value)
	}

	return d
}

// bind performs descriptor binding of a class attribute v for obj, an
// instance of t.
func bind(th *Thread, v, obj Value, t *Class) Value {
	switch d := v.(type) {
	case *Function:
		return &Method{Func: d, Self: obj}
	case *Builtin:
		if d.Static || d.Self != nil {
			return d
		}

		return d.Bind(obj)
	case *ClassMethod:
		return &Method{Func: d.Func, Self: t}
	case *StaticMethod:
		return d.Func
	case *Property:
		if d.Get == nil {
			Raise(AttributeError, "property '%s' of '%s' object has no getter", d.Name, t.Name)
		}

		return Call(th, d.Get, []Value{obj}, nil)
	case *Instance:
		if get, ok := d.Class.Lookup("__get__"); ok {
			return Call(th, bind(th, get, d, d.Class), []Value{obj, t}, nil)
		}
	}

	return v
}

// bindClass performs descriptor binding of a class attribute v accessed
// through the class c itself.
func bindClass(th *Thread, v Value, c *Class) Value {
	switch d := v.(type) {
	case *ClassMethod:
		return &Method{Func: d.Func, Self: c}
	case *StaticMethod:
		return d.Func
	case *Instance:
		if get, ok := d.Class.Lookup("__get__"); ok {
			return Call(th, bind(th, get, d, d.Class), []Value{None, c}, nil)
		}
	}

	return v
}

// isDataDescriptor returns true if v takes precedence over an instance's
// own attributes.
func isDataDescriptor(v Value) bool {
	switch d := v.(type) {
	case *Property:
		return true
	case *Instance:
		if _, ok := d.Class.Lookup("__set__"); ok {
			return true
		}

		_, ok := d.Class.Lookup("__delete__")

		return ok
	}

	return false
}
