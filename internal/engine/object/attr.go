// Released under an MIT license. See LICENSE.

package object

import (
	"sort"

	"github.com/michaelmacinnis/enclave/internal/engine/guard"
)

// KindOf classifies v for the attribute guard.
func KindOf(v Value) guard.Kind {
	switch v.(type) {
	case *Module:
		return guard.Module
	case *Builtin:
		return guard.Builtin
	case *Function:
		return guard.Function
	case *Method:
		return guard.Method
	case *Class:
		return guard.Class
	case *Exception:
		return guard.Exception
	case *Instance:
		return guard.Instance
	case *Generator, *AsyncStep:
		return guard.Generator
	case *FrameSurrogate:
		return guard.Frame
	case *Traceback:
		return guard.Traceback
	case *Super:
		return guard.Other
	}

	return guard.BuiltinValue
}

// Canonical returns the character content of an attribute name. Instances
// of str subclasses yield their primitive value; their __str__ and __repr__
// are never consulted.
func Canonical(name Value) string {
	switch n := name.(type) {
	case string:
		return n
	case *Instance:
		if s, ok := n.Base.(string); ok {
			return s
		}
	}

	Raise(TypeError, "attribute name must be string, not '%s'", TypeName(name))

	return ""
}

// Check raises AttributeBlocked if the policy denies name on obj.
func (th *Thread) Check(obj Value, name string) {
	p := th.Guard
	if p == nil {
		p = guard.Default()
	}

	k := KindOf(obj)
	if err := p.Check(k, name); err != nil {
		if th.Denied != nil {
			th.Denied(k, name)
		}

		Blocked(name)
	}
}

// GuardedGet is the only way guest code reads attributes.
func GuardedGet(th *Thread, obj, name Value) Value {
	n := Canonical(name)
	th.Check(obj, n)

	return GetAttr(th, obj, n)
}

// GuardedSet is the only way guest code assigns attributes.
func GuardedSet(th *Thread, obj, name, v Value) {
	n := Canonical(name)
	th.Check(obj, n)

	SetAttr(th, obj, n, v)
}

// GuardedDelete is the only way guest code deletes attributes.
func GuardedDelete(th *Thread, obj, name Value) {
	n := Canonical(name)
	th.Check(obj, n)

	DelAttr(th, obj, n)
}

// GuardedHas implements hasattr. A blocked name raises rather than
// reporting false.
func GuardedHas(th *Thread, obj, name Value) bool {
	n := Canonical(name)
	th.Check(obj, n)

	return HasAttr(th, obj, n)
}

// GetAttr resolves an attribute without consulting the guard. Guest code
// reaches it only through the guarded entry points.
func GetAttr(th *Thread, obj Value, name string) Value {
	v, ok := lookupAttr(th, obj, name)
	if !ok {
		missing(obj, name)
	}

	return v
}

// HasAttr returns true if obj has the attribute name.
func HasAttr(th *Thread, obj Value, name string) (found bool) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*Exception); ok && e.Matches(AttributeError) && !e.Matches(AttributeBlocked) {
				found = false

				return
			}

			panic(r)
		}
	}()

	_, found = lookupAttr(th, obj, name)

	return found
}

// LookupAttr returns the attribute or false, without raising AttributeError.
func LookupAttr(th *Thread, obj Value, name string) (v Value, found bool) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*Exception); ok && e.Matches(AttributeError) && !e.Matches(AttributeBlocked) {
				v, found = nil, false

				return
			}

			panic(r)
		}
	}()

	return lookupAttr(th, obj, name)
}

func missing(obj Value, name string) {
	var e *Exception

	switch o := obj.(type) {
	case *Module:
		e = NewException(AttributeError, "module '"+o.Name+"' has no attribute '"+name+"'")
	case *Class:
		e = NewException(AttributeError, "type object '"+o.Name+"' has no attribute '"+name+"'")
	default:
		e = NewException(AttributeError, "'"+TypeName(obj)+"' object has no attribute '"+name+"'")
	}

	e.Dict.SetStr("name", name)

	panic(e)
}

func lookupAttr(th *Thread, obj Value, name string) (Value, bool) {
	switch o := obj.(type) {
	case *Class:
		meta := o.Metaclass()
		if ga, ok := meta.Overrides("__getattribute__"); ok {
			return overridden(th, o, meta, ga, name), true
		}

		if v, ok := typeAttr(th, o, name); ok {
			return v, true
		}

		return getattrHook(th, o, meta, name)
	case *Module, *Super:
		return nativeLookup(th, obj, name)
	}

	t := TypeOf(obj)
	if ga, ok := t.Overrides("__getattribute__"); ok {
		return overridden(th, obj, t, ga, name), true
	}

	if v, ok := genericAttr(th, obj, t, name); ok {
		return v, true
	}

	return getattrHook(th, obj, t, name)
}

// overridden calls a guest __getattribute__, falling back to __getattr__.
func overridden(th *Thread, obj Value, t *Class, ga Value, name string) (v Value) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*Exception)
			if !ok || !e.Matches(AttributeError) || e.Matches(AttributeBlocked) {
				panic(r)
			}

			hook, ok := t.Lookup("__getattr__")
			if !ok {
				panic(r)
			}

			v = Call(th, bind(th, hook, obj, t), []Value{name}, nil)
		}
	}()

	return Call(th, bind(th, ga, obj, t), []Value{name}, nil)
}

func getattrHook(th *Thread, obj Value, t *Class, name string) (Value, bool) {
	hook, ok := t.Lookup("__getattr__")
	if !ok {
		return nil, false
	}

	return Call(th, bind(th, hook, obj, t), []Value{name}, nil), true
}

// nativeLookup resolves name on obj without guest __getattribute__ or
// __getattr__ hooks. It implements object.__getattribute__.
func nativeLookup(th *Thread, obj Value, name string) (Value, bool) {
	switch o := obj.(type) {
	case *Class:
		return typeAttr(th, o, name)
	case *Module:
		if v, ok := o.Dict.GetStr(name); ok {
			return v, true
		}

		return genericAttr(th, o, ModuleType, name)
	case *Super:
		return superAttr(th, o, name)
	}

	return genericAttr(th, obj, TypeOf(obj), name)
}

func genericAttr(th *Thread, obj Value, t *Class, name string) (Value, bool) {
	if name == "__class__" {
		return t, true
	}

	a, found := t.Lookup(name)
	if found && isDataDescriptor(a) {
		return bind(th, a, obj, t), true
	}

	if v, ok := nativeAttr(th, obj, name); ok {
		return v, true
	}

	if d := instanceDict(obj, false); d != nil {
		if v, ok := d.GetStr(name); ok {
			return v, true
		}
	}

	if found {
		return bind(th, a, obj, t), true
	}

	return nil, false
}

func typeAttr(th *Thread, c *Class, name string) (Value, bool) {
	meta := c.Metaclass()

	if name == "__class__" {
		return meta, true
	}

	if v, ok := classNative(c, name); ok {
		return v, true
	}

	ma, mfound := meta.Lookup(name)
	if mfound && isDataDescriptor(ma) {
		return bind(th, ma, c, meta), true
	}

	if v, ok := c.Lookup(name); ok {
		return bindClass(th, v, c), true
	}

	switch name {
	case "__doc__":
		return None, true
	case "__module__":
		return c.Module, true
	}

	if mfound {
		return bind(th, ma, c, meta), true
	}

	return nil, false
}

func superAttr(th *Thread, s *Super, name string) (Value, bool) {
	if name != "__class__" {
		if v, _, ok := s.Type.LookupAfter(s.Class, name); ok {
			if c, ok := s.Self.(*Class); ok && s.Type == c {
				return bindClass(th, v, c), true
			}

			return bind(th, v, s.Self, s.Type), true
		}
	}

	switch name {
	case "__class__":
		return SuperType, true
	case "__thisclass__":
		return s.Class, true
	case "__self__":
		return s.Self, true
	case "__self_class__":
		return s.Type, true
	}

	if v, ok := SuperType.Lookup(name); ok {
		return bind(th, v, s, SuperType), true
	}

	return nil, false
}

func instanceDict(obj Value, create bool) *Dict {
	switch o := obj.(type) {
	case *Instance:
		return o.Dict
	case *Exception:
		return o.Dict
	case *Function:
		if o.Dict == nil && create {
			o.Dict = NewDict()
		}

		return o.Dict
	case *Module:
		return o.Dict
	}

	return nil
}

func classNative(c *Class, name string) (Value, bool) {
	switch name {
	case "__name__":
		return c.Name, true
	case "__qualname__":
		return c.Qualname, true
	case "__type_params__":
		if c.TypeParams == nil {
			return Tuple{}, true
		}

		return c.TypeParams, true
	case "__mro__":
		mro := make(Tuple, len(c.MRO))
		for i, k := range c.MRO {
			mro[i] = k
		}

		return mro, true
	case "__bases__":
		bases := make(Tuple, len(c.Bases))
		for i, k := range c.Bases {
			bases[i] = k
		}

		return bases, true
	case "__base__":
		if len(c.Bases) == 0 {
			return None, true
		}

		return c.Bases[0], true
	}

	return nil, false
}

//nolint:cyclop,funlen,gocyclo
func nativeAttr(th *Thread, obj Value, name string) (Value, bool) {
	switch o := obj.(type) {
	case *Instance:
		if o.Base != nil {
			return nativeAttr(th, o.Base, name)
		}
	case *Function:
		return functionAttr(o, name)
	case *Builtin:
		switch name {
		case "__name__":
			return o.Name, true
		case "__qualname__":
			if o.Owner != nil {
				return o.Owner.Name + "." + o.Name, true
			}

			return o.Name, true
		case "__module__":
			if o.Owner != nil {
				return None, true
			}

			return orDefault(o.Module, "builtins"), true
		case "__doc__":
			if o.Doc == "" {
				return None, true
			}

			return o.Doc, true
		case "__self__":
			if o.Self == nil {
				return None, true
			}

			return o.Self, true
		}
	case *Method:
		switch name {
		case "__func__":
			return o.Func, true
		case "__self__":
			return o.Self, true
		}

		return lookupAttr(th, o.Func, name)
	case *Exception:
		return exceptionAttr(o, name)
	case *Generator:
		return generatorAttr(o, name)
	case *FrameSurrogate:
		switch name {
		case "f_lineno":
			return int64(o.Frame.Line), true
		case "f_code_name":
			return o.Frame.Name, true
		}
	case *Traceback:
		switch name {
		case "tb_next":
			if o.Next == nil {
				return None, true
			}

			return o.Next, true
		case "tb_lineno":
			return int64(o.Line), true
		case "tb_frame":
			return &FrameSurrogate{Frame: o.Frame}, true
		}
	case *Property:
		switch name {
		case "fget":
			return orNoneValue(o.Get), true
		case "fset":
			return orNoneValue(o.Set), true
		case "fdel":
			return orNoneValue(o.Del), true
		case "__doc__":
			return orNoneValue(o.Doc), true
		}
	case *ClassMethod:
		if name == "__func__" || name == "__wrapped__" {
			return o.Func, true
		}
	case *StaticMethod:
		if name == "__func__" || name == "__wrapped__" {
			return o.Func, true
		}
	case *Range:
		switch name {
		case "start":
			return o.Start, true
		case "stop":
			return o.Stop, true
		case "step":
			return o.Step, true
		}
	case *Slice:
		switch name {
		case "start":
			return o.Start, true
		case "stop":
			return o.Stop, true
		case "step":
			return o.Step, true
		}
	case bool:
		return nativeAttr(th, boolInt(o), name)
	case int64:
		switch name {
		case "real", "numerator":
			return o, true
		case "imag":
			return int64(0), true
		case "denominator":
			return int64(1), true
		}
	case float64:
		switch name {
		case "real":
			return o, true
		case "imag":
			return 0.0, true
		}
	case *TypeVar:
		switch name {
		case "__name__":
			return o.Name, true
		case "__bound__":
			return orNoneValue(o.Bound), true
		case "__default__":
			return orNoneValue(o.Default), true
		}
	case *TypeAlias:
		switch name {
		case "__name__":
			return o.Name, true
		case "__value__":
			return o.Value(th), true
		case "__type_params__":
			return o.TypeParams, true
		}
	case *GenericAlias:
		switch name {
		case "__origin__":
			return o.Origin, true
		case "__args__":
			return o.Args, true
		}
	case *Union:
		if name == "__args__" {
			return o.Args, true
		}
	case *Cell:
		if name == "cell_contents" {
			if o.Value == nil {
				Raise(ValueError, "Cell is empty")
			}

			return o.Value, true
		}
	}

	return nil, false
}

func functionAttr(f *Function, name string) (Value, bool) {
	switch name {
	case "__name__":
		return f.Name, true
	case "__qualname__":
		return f.Qualname, true
	case "__module__":
		return f.Module, true
	case "__doc__":
		return orNoneValue(f.Doc), true
	case "__defaults__":
		if len(f.Defaults) == 0 {
			return None, true
		}

		return f.Defaults, true
	case "__kwdefaults__":
		if f.KwDefaults == nil || f.KwDefaults.Len() == 0 {
			return None, true
		}

		return f.KwDefaults, true
	case "__annotations__":
		if f.Annotations == nil {
			f.Annotations = NewDict()
		}

		return f.Annotations, true
	case "__type_params__":
		if f.TypeParams == nil {
			return Tuple{}, true
		}

		return f.TypeParams, true
	}

	return nil, false
}

func exceptionAttr(e *Exception, name string) (Value, bool) {
	switch name {
	case "args":
		return e.Args, true
	case "__traceback__":
		if e.Traceback == nil {
			return None, true
		}

		return e.Traceback, true
	case "__cause__":
		return orNone(e.Cause), true
	case "__context__":
		return orNone(e.Context), true
	case "__suppress_context__":
		return e.Suppress, true
	}

	if e.Exceptions != nil {
		switch name {
		case "message":
			return e.Message, true
		case "exceptions":
			return Tuple(exceptionValues(e.Exceptions)), true
		}
	}

	if name == "value" && e.Matches(StopIteration) {
		if v, ok := e.Dict.GetStr("value"); ok {
			return v, true
		}

		return e.Value(), true
	}

	return nil, false
}

func orNoneValue(v Value) Value {
	if v == nil {
		return None
	}

	return v
}

func orDefault(s, d string) string {
	if s == "" {
		return d
	}

	return s
}

// SetAttr assigns an attribute without consulting the guard.
func SetAttr(th *Thread, obj Value, name string, v Value) {
	switch o := obj.(type) {
	case *Instance, *Exception:
		t := TypeOf(o)
		if sa, ok := t.Overrides("__setattr__"); ok {
			Call(th, bind(th, sa, o, t), []Value{name, v}, nil)

			return
		}
	case *Class:
		meta := o.Metaclass()
		if sa, ok := meta.Overrides("__setattr__"); ok {
			Call(th, bind(th, sa, o, meta), []Value{name, v}, nil)

			return
		}
	}

	nativeSet(th, obj, name, v)
}

// nativeSet implements object.__setattr__ and type.__setattr__.
func nativeSet(th *Thread, obj Value, name string, v Value) {
	switch o := obj.(type) {
	case *Instance:
		if setDescriptor(th, o, o.Class, name, v) {
			return
		}

		if name == "__class__" {
			setClass(o, v)

			return
		}

		o.Dict.SetStr(name, v)
	case *Exception:
		if setDescriptor(th, o, o.Class, name, v) || setException(o, name, v) {
			return
		}

		o.Dict.SetStr(name, v)
	case *Class:
		setClassAttr(th, o, name, v)
	case *Function:
		setFunction(o, name, v)
	case *Module:
		if o.ReadOnly {
			Raise(AttributeError, "cannot assign to attribute '%s' of restricted module '%s'", name, o.Name)
		}

		o.Dict.SetStr(name, v)
	default:
		if _, ok := lookupAttr(th, obj, name); ok {
			Raise(AttributeError, "'%s' object attribute '%s' is read-only", TypeName(obj), name)
		}

		Raise(AttributeError, "'%s' object has no attribute '%s'", TypeName(obj), name)
	}
}

func setDescriptor(th *Thread, obj Value, t *Class, name string, v Value) bool {
	a, ok := t.Lookup(name)
	if !ok {
		return false
	}

	switch d := a.(type) {
	case *Property:
		if d.Set == nil {
			Raise(AttributeError, "property '%s' of '%s' object has no setter", d.Name, t.Name)
		}

		Call(th, d.Set, []Value{obj, v}, nil)

		return true
	case *Instance:
		if set, ok := d.Class.Lookup("__set__"); ok {
			Call(th, bind(th, set, d, d.Class), []Value{obj, v}, nil)

			return true
		}
	}

	return false
}

func setClass(o *Instance, v Value) {
	c, ok := v.(*Class)
	if !ok {
		Raise(TypeError, "__class__ must be set to a class, not '%s' object", TypeName(v))
	}

	if c.Builtin || c.Solid() != o.Class.Solid() {
		Raise(TypeError, "__class__ assignment: '%s' object layout differs from '%s'", c.Name, o.Class.Name)
	}

	o.Class = c
}

func setException(e *Exception, name string, v Value) bool {
	switch name {
	case "args":
		e.Args = Tuple(ToSlice(NewThread(), v))
	case "__traceback__":
		switch tb := v.(type) {
		case NoneType:
			e.Traceback = nil
		case *Traceback:
			e.Traceback = tb
		default:
			Raise(TypeError, "__traceback__ must be a traceback or None")
		}
	case "__cause__", "__context__":
		var x *Exception

		switch c := v.(type) {
		case NoneType:
		case *Exception:
			x = c
		default:
			Raise(TypeError, "exception cause must be None or derive from BaseException")
		}

		if name == "__cause__" {
			e.Cause = x
			e.Suppress = true
		} else {
			e.Context = x
		}
	case "__suppress_context__":
		e.Suppress = Truth(nil, v)
	default:
		return false
	}

	return true
}

func setClassAttr(th *Thread, c *Class, name string, v Value) {
	if c.Builtin {
		Raise(TypeError, "cannot set '%s' attribute of immutable type '%s'", name, c.Name)
	}

	meta := c.Metaclass()
	if setDescriptor(th, c, meta, name, v) {
		return
	}

	switch name {
	case "__name__":
		s, ok := v.(string)
		if !ok {
			Raise(TypeError, "can only assign string to %s.__name__, not '%s'", c.Name, TypeName(v))
		}

		c.Name = s
	case "__qualname__":
		s, ok := v.(string)
		if !ok {
			Raise(TypeError, "can only assign string to %s.__qualname__, not '%s'", c.Name, TypeName(v))
		}

		c.Qualname = s
	case "__mro__", "__bases__", "__base__", "__type_params__":
		Raise(AttributeError, "readonly attribute")
	default:
		if name == "__module__" {
			if s, ok := v.(string); ok {
				c.Module = s
			}
		}

		c.Dict.SetStr(name, v)
	}
}

func setFunction(f *Function, name string, v Value) {
	switch name {
	case "__name__", "__qualname__", "__module__":
		s, ok := v.(string)
		if !ok {
			Raise(TypeError, "%s must be set to a string object", name)
		}

		switch name {
		case "__name__":
			f.Name = s
		case "__qualname__":
			f.Qualname = s
		default:
			f.Module = s
		}
	case "__doc__":
		f.Doc = v
	case "__defaults__":
		switch d := v.(type) {
		case NoneType:
			f.Defaults = nil
		case Tuple:
			f.Defaults = d
		default:
			Raise(TypeError, "__defaults__ must be set to a tuple object")
		}
	case "__kwdefaults__":
		switch d := v.(type) {
		case NoneType:
			f.KwDefaults = nil
		case *Dict:
			f.KwDefaults = d
		default:
			Raise(TypeError, "__kwdefaults__ must be set to a dict object")
		}
	case "__annotations__":
		d, ok := v.(*Dict)
		if !ok {
			Raise(TypeError, "__annotations__ must be set to a dict object")
		}

		f.Annotations = d
	case "__type_params__":
		t, ok := v.(Tuple)
		if !ok {
			Raise(TypeError, "__type_params__ must be set to a tuple")
		}

		f.TypeParams = t
	default:
		instanceDict(f, true).SetStr(name, v)
	}
}

// DelAttr deletes an attribute without consulting the guard.
func DelAttr(th *Thread, obj Value, name string) {
	switch o := obj.(type) {
	case *Instance, *Exception:
		t := TypeOf(o)
		if da, ok := t.Overrides("__delattr__"); ok {
			Call(th, bind(th, da, o, t), []Value{name}, nil)

			return
		}
	case *Class:
		meta := o.Metaclass()
		if da, ok := meta.Overrides("__delattr__"); ok {
			Call(th, bind(th, da, o, meta), []Value{name}, nil)

			return
		}
	}

	nativeDelete(th, obj, name)
}

func nativeDelete(th *Thread, obj Value, name string) {
	var t *Class

	switch o := obj.(type) {
	case *Instance:
		t = o.Class
	case *Exception:
		t = o.Class
	case *Class:
		if o.Builtin {
			Raise(TypeError, "cannot delete '%s' attribute of immutable type '%s'", name, o.Name)
		}

		if !o.Dict.DelStr(name) {
			missing(o, name)
		}

		return
	case *Module:
		if o.ReadOnly {
			Raise(AttributeError, "cannot delete attribute '%s' of restricted module '%s'", name, o.Name)
		}
	}

	if t != nil {
		if a, ok := t.Lookup(name); ok {
			switch d := a.(type) {
			case *Property:
				if d.Del == nil {
					Raise(AttributeError, "property '%s' of '%s' object has no deleter", d.Name, t.Name)
				}

				Call(th, d.Del, []Value{obj}, nil)

				return
			case *Instance:
				if del, ok := d.Class.Lookup("__delete__"); ok {
					Call(th, bind(th, del, d, d.Class), []Value{obj}, nil)

					return
				}
			}
		}
	}

	if d := instanceDict(obj, false); d != nil && d.DelStr(name) {
		return
	}

	missing(obj, name)
}

// Dir returns the sorted attribute names of obj that the guard allows.
func Dir(th *Thread, obj Value) []string {
	seen := map[string]bool{}

	add := func(d *Dict) {
		if d == nil {
			return
		}

		for _, k := range d.Keys() {
			if s, ok := k.(string); ok {
				seen[s] = true
			}
		}
	}

	t := TypeOf(obj)

	if hook, ok := t.Overrides("__dir__"); ok {
		for _, v := range ToSlice(th, Call(th, bind(th, hook, obj, t), nil, nil)) {
			if s, ok := v.(string); ok {
				seen[s] = true
			}
		}
	} else {
		switch o := obj.(type) {
		case *Module:
			add(o.Dict)
		case *Class:
			for _, k := range o.MRO {
				add(k.Dict)
			}

			for _, n := range []string{"__name__", "__qualname__", "__module__", "__doc__", "__type_params__"} {
				seen[n] = true
			}
		default:
			add(instanceDict(obj, false))

			for _, k := range t.MRO {
				add(k.Dict)
			}

			for _, n := range nativeNames(obj) {
				seen[n] = true
			}
		}

		seen["__class__"] = true
	}

	p := th.Guard
	if p == nil {
		p = guard.Default()
	}

	k := KindOf(obj)
	names := make([]string, 0, len(seen))

	for n := range seen {
		if p.Allowed(k, n) {
			names = append(names, n)
		}
	}

	sort.Strings(names)

	return names
}

func nativeNames(obj Value) []string {
	switch o := obj.(type) {
	case *Instance:
		if o.Base != nil {
			return nativeNames(o.Base)
		}
	case *Function:
		return []string{
			"__name__", "__qualname__", "__module__", "__doc__", "__defaults__",
			"__kwdefaults__", "__annotations__", "__type_params__",
		}
	case *Builtin:
		return []string{"__name__", "__qualname__", "__module__", "__doc__", "__self__"}
	case *Method:
		return []string{"__func__", "__self__"}
	case *Exception:
		return []string{"args", "__traceback__", "__cause__", "__context__", "__suppress_context__"}
	case *Generator:
		p := o.prefix()

		return []string{p + "_frame", p + "_running", p + "_suspended", "__name__", "__qualname__"}
	case *FrameSurrogate:
		return []string{"f_lineno", "f_code_name"}
	case *Traceback:
		return []string{"tb_next", "tb_lineno"}
	case *Range, *Slice:
		return []string{"start", "stop", "step"}
	case int64, bool:
		return []string{"real", "imag", "numerator", "denominator"}
	case float64:
		return []string{"real", "imag"}
	}

	return nil
}

// getterArgs unpacks the receiver and name of a __getattribute__ call. The
// name may be passed positionally or by keyword.
func getterArgs(args []Value, kw []Keyword) (Value, Value) {
	a := Args("__getattribute__", args, kw, 2, "self", "name")

	return a[0], a[1]
}

func init() {
	define(ObjectType, "__getattribute__", func(th *Thread, args []Value, kw []Keyword) Value {
		obj, name := getterArgs(args, kw)

		n := Canonical(name)
		th.Check(obj, n)

		v, ok := nativeLookup(th, obj, n)
		if !ok {
			missing(obj, n)
		}

		return v
	})

	define(ObjectType, "__setattr__", func(th *Thread, args []Value, kw []Keyword) Value {
		NoKeywords("__setattr__", kw)

		if len(args) != 3 {
			Raise(TypeError, "expected 2 arguments, got %d", len(args)-1)
		}

		n := Canonical(args[1])
		th.Check(args[0], n)
		nativeSet(th, args[0], n, args[2])

		return None
	})

	define(ObjectType, "__delattr__", func(th *Thread, args []Value, kw []Keyword) Value {
		NoKeywords("__delattr__", kw)

		if len(args) != 2 {
			Raise(TypeError, "expected 1 argument, got %d", len(args)-1)
		}

		n := Canonical(args[1])
		th.Check(args[0], n)
		nativeDelete(th, args[0], n)

		return None
	})

	define(ObjectType, "__dir__", func(th *Thread, args []Value, kw []Keyword) Value {
		if len(args) != 1 {
			Raise(TypeError, "expected 0 arguments, got %d", len(args)-1)
		}

		names := Dir(th, args[0])
		l := NewList()

		for _, n := range names {
			l.Items = append(l.Items, n)
		}

		return l
	})

	define(TypeType, "__getattribute__", func(th *Thread, args []Value, kw []Keyword) Value {
		obj, name := getterArgs(args, kw)

		c, ok := obj.(*Class)
		if !ok {
			Raise(TypeError, "descriptor '__getattribute__' requires a 'type' object but received a '%s'", TypeName(obj))
		}

		n := Canonical(name)
		th.Check(c, n)

		v, ok := typeAttr(th, c, n)
		if !ok {
			missing(c, n)
		}

		return v
	})

	define(TypeType, "__setattr__", func(th *Thread, args []Value, kw []Keyword) Value {
		NoKeywords("__setattr__", kw)

		if len(args) != 3 {
			Raise(TypeError, "expected 2 arguments, got %d", len(args)-1)
		}

		c, ok := args[0].(*Class)
		if !ok {
			Raise(TypeError, "descriptor '__setattr__' requires a 'type' object but received a '%s'", TypeName(args[0]))
		}

		n := Canonical(args[1])
		th.Check(c, n)
		setClassAttr(th, c, n, args[2])

		return None
	})

	define(TypeType, "__delattr__", func(th *Thread, args []Value, kw []Keyword) Value {
		NoKeywords("__delattr__", kw)

		if len(args) != 2 {
			Raise(TypeError, "expected 1 argument, got %d", len(args)-1)
		}

		c, ok := args[0].(*Class)
		if !ok {
			Raise(TypeError, "descriptor '__delattr__' requires a 'type' object but received a '%s'", TypeName(args[0]))
		}

		n := Canonical(args[1])
		th.Check(c, n)
		nativeDelete(th, c, n)

		return None
	})

	define(SuperType, "__getattribute__", func(th *Thread, args []Value, kw []Keyword) Value {
		obj, name := getterArgs(args, kw)

		s, ok := obj.(*Super)
		if !ok {
			Raise(TypeError, "descriptor '__getattribute__' requires a 'super' object but received a '%s'", TypeName(obj))
		}

		n := Canonical(name)
		th.Check(s, n)

		v, ok := superAttr(th, s, n)
		if !ok {
			Raise(AttributeError, "'super' object has no attribute '%s'", n)
		}

		return v
	})
}
