// Released under an MIT license. See LICENSE.

package object

import (
	"fmt"

	"github.com/michaelmacinnis/enclave/internal/common/validate"
)

// Supers is implemented by evaluators that can supply the implicit
// arguments of a zero-argument super() call.
type Supers interface {
	ImplicitSuper(th *Thread) (*Class, Value)
}

// New creates an uninitialized instance of c the way object.__new__ does.
func New(c *Class) Value {
	if c.IsSubclass(BaseExceptionType) {
		return &Exception{Class: c, Dict: NewDict(), Args: Tuple{}}
	}

	return NewInstance(c)
}

// wrap returns base as an instance of c, a subclass of the builtin class
// prim.
func wrap(c *Class, base Value, prim *Class) Value {
	if c == prim {
		return base
	}

	i := NewInstance(c)
	i.Base = base

	return i
}

func isObjectMethod(c *Class, name string) bool {
	f, ok := c.Lookup(name)
	if !ok {
		return true
	}

	b, ok := f.(*Builtin)

	return ok && b.Owner == ObjectType
}

func newMethod(c *Class, fn Native) {
	b := define(c, "__new__", fn)
	b.Static = true
}

func one(args []Value) Value {
	return validate.Fixed(args, 1, 1)[0]
}

func classOf(th *Thread, v Value, name string) *Class {
	c, ok := v.(*Class)
	if !ok {
		Raise(TypeError, "%s(X): X is not a type object (%s)", name, TypeName(v))
	}

	return c
}

//nolint:funlen,cyclop,gocognit
func init() {
	newMethod(ObjectType, func(th *Thread, args []Value, kw []Keyword) Value {
		if len(args) == 0 {
			Raise(TypeError, "object.__new__(): not enough arguments")
		}

		c := classOf(th, args[0], "object.__new__")
		if c.Solid() != ObjectType && !c.IsSubclass(BaseExceptionType) {
			Raise(TypeError, "object.__new__(%s) is not safe, use %s.__new__()", c.Name, c.Solid().Name)
		}

		if (len(args) > 1 || len(kw) > 0) && isObjectMethod(c, "__init__") {
			Raise(TypeError, "%s() takes no arguments", c.Name)
		}

		return New(c)
	})

	method(ObjectType, "__init__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		if len(args) > 0 || len(kw) > 0 {
			t := TypeOf(self)
			if isObjectMethod(t, "__new__") && !isObjectMethod(t, "__init__") {
				Raise(TypeError, "object.__init__() takes exactly one argument (the instance to initialize)")
			}
		}

		return None
	})

	method(ObjectType, "__eq__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		if Is(self, one(args)) {
			return true
		}

		return NotImplemented
	})

	method(ObjectType, "__ne__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		other := one(args)
		t := TypeOf(self)

		eq, _ := t.Lookup("__eq__")

		r := Call(th, bind(th, eq, self, t), []Value{other}, nil)
		if r == NotImplemented {
			return r
		}

		return !Truth(th, r)
	})

	method(ObjectType, "__hash__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		validate.Fixed(args, 0, 0)

		return int64(ID(self))
	})

	method(ObjectType, "__repr__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		validate.Fixed(args, 0, 0)

		c := TypeOf(self)

		return fmt.Sprintf("<%s object at %#x>", c.FullName(), ID(self))
	})

	method(ObjectType, "__str__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		validate.Fixed(args, 0, 0)

		return Repr(th, self)
	})

	method(ObjectType, "__format__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		spec, ok := Prim(one(args)).(string)
		if !ok {
			Raise(TypeError, "__format__() argument must be str, not %s", TypeName(args[0]))
		}

		if spec != "" {
			Raise(TypeError, "unsupported format string passed to %s.__format__", TypeName(self))
		}

		return Str(th, self)
	})

	isc := define(ObjectType, "__init_subclass__", func(th *Thread, args []Value, kw []Keyword) Value {
		if len(kw) > 0 {
			Raise(TypeError, "%s.__init_subclass__() takes no keyword arguments", TypeName(args[0]))
		}

		return None
	})
	ObjectType.Dict.SetStr("__init_subclass__", &ClassMethod{Func: isc})

	newMethod(TypeType, func(th *Thread, args []Value, kw []Keyword) Value {
		if len(args) == 2 && len(kw) == 0 {
			return TypeOf(args[1])
		}

		if len(args) != 4 {
			Raise(TypeError, "type() takes 1 or 3 arguments")
		}

		meta := classOf(th, args[0], "type.__new__")

		name, ok := Prim(args[1]).(string)
		if !ok {
			Raise(TypeError, "type.__new__() argument 1 must be str, not %s", TypeName(args[1]))
		}

		bases := []*Class{}

		for _, b := range ToSlice(th, args[2]) {
			c, ok := b.(*Class)
			if !ok {
				Raise(TypeError, "bases must be types")
			}

			bases = append(bases, c)
		}

		ns, ok := Prim(args[3]).(*Dict)
		if !ok {
			Raise(TypeError, "type.__new__() argument 3 must be dict, not %s", TypeName(args[3]))
		}

		return NewClass(th, meta, name, bases, ns, kw)
	})

	define(TypeType, "__init__", func(th *Thread, args []Value, kw []Keyword) Value {
		return None
	})

	method(TypeType, "__call__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return Construct(th, self.(*Class), args, kw) //nolint:forcetypeassert
	})

	method(TypeType, "__repr__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return "<class '" + self.(*Class).FullName() + "'>" //nolint:forcetypeassert
	})

	prepare := define(TypeType, "__prepare__", func(th *Thread, args []Value, kw []Keyword) Value {
		return NewDict()
	})
	TypeType.Dict.SetStr("__prepare__", &ClassMethod{Func: prepare})

	method(TypeType, "__instancecheck__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return IsInstance(one(args), self.(*Class)) //nolint:forcetypeassert
	})

	method(TypeType, "__subclasscheck__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		c := classOf(th, one(args), "issubclass")

		return c.IsSubclass(self.(*Class)) //nolint:forcetypeassert
	})

	method(TypeType, "__or__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return primBinary(th, "|", self, one(args))
	})

	method(TypeType, "__ror__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return primBinary(th, "|", one(args), self)
	})

	method(FunctionType, "__get__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 1, 2)
		if a[0] == None {
			return self
		}

		return &Method{Func: self, Self: a[0]}
	})

	newMethod(PropertyType, func(th *Thread, args []Value, kw []Keyword) Value {
		a := Args("property", args[1:], kw, 0, "fget", "fset", "fdel", "doc")
		p := &Property{Get: a[0], Set: a[1], Del: a[2], Doc: a[3]}

		for _, v := range []*Value{&p.Get, &p.Set, &p.Del, &p.Doc} {
			if *v == None {
				*v = nil
			}
		}

		if p.Doc == nil && p.Get != nil {
			if f, ok := p.Get.(*Function); ok && f.Doc != nil && f.Doc != None {
				p.Doc = f.Doc
			}
		}

		if f, ok := p.Get.(*Function); ok {
			p.Name = f.Name
		}

		return p
	})

	define(PropertyType, "__init__", func(th *Thread, args []Value, kw []Keyword) Value {
		return None
	})

	for _, accessor := range []string{"getter", "setter", "deleter"} {
		method(PropertyType, accessor, func(th *Thread, self Value, args []Value, kw []Keyword) Value {
			f := one(args)
			p := *self.(*Property) //nolint:forcetypeassert

			switch accessor {
			case "getter":
				p.Get = f
			case "setter":
				p.Set = f
			case "deleter":
				p.Del = f
			}

			return &p
		})
	}

	method(PropertyType, "__get__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 1, 2)
		if a[0] == None {
			return self
		}

		return bind(th, self, a[0], TypeOf(a[0]))
	})

	method(PropertyType, "__set__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 2, 2)
		p := self.(*Property) //nolint:forcetypeassert

		if p.Set == nil {
			Raise(AttributeError, "property '%s' of '%s' object has no setter", p.Name, TypeName(a[0]))
		}

		Call(th, p.Set, []Value{a[0], a[1]}, nil)

		return None
	})

	method(PropertyType, "__delete__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		obj := one(args)
		p := self.(*Property) //nolint:forcetypeassert

		if p.Del == nil {
			Raise(AttributeError, "property '%s' of '%s' object has no deleter", p.Name, TypeName(obj))
		}

		Call(th, p.Del, []Value{obj}, nil)

		return None
	})

	method(PropertyType, "__set_name__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 2, 2)

		if s, ok := Prim(a[1]).(string); ok {
			self.(*Property).Name = s //nolint:forcetypeassert
		}

		return None
	})

	newMethod(ClassMethodType, func(th *Thread, args []Value, kw []Keyword) Value {
		NoKeywords("classmethod", kw)

		f := validate.Fixed(args[1:], 1, 1)[0]

		return &ClassMethod{Func: f}
	})

	method(ClassMethodType, "__get__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 1, 2)

		owner := a[1]
		if owner == nil || owner == None {
			owner = TypeOf(a[0])
		}

		return &Method{Func: self.(*ClassMethod).Func, Self: owner} //nolint:forcetypeassert
	})

	newMethod(StaticMethodType, func(th *Thread, args []Value, kw []Keyword) Value {
		NoKeywords("staticmethod", kw)

		f := validate.Fixed(args[1:], 1, 1)[0]

		return &StaticMethod{Func: f}
	})

	method(StaticMethodType, "__get__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		validate.Fixed(args, 1, 2)

		return self.(*StaticMethod).Func //nolint:forcetypeassert
	})

	method(StaticMethodType, "__call__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return Call(th, self.(*StaticMethod).Func, args, kw) //nolint:forcetypeassert
	})

	newMethod(SuperType, func(th *Thread, args []Value, kw []Keyword) Value {
		NoKeywords("super", kw)

		a := validate.Fixed(args[1:], 0, 2)

		var (
			start *Class
			obj   Value
		)

		switch {
		case a[0] == nil:
			s, ok := th.Invoker.(Supers)
			if !ok {
				Raise(RuntimeError, "super(): no arguments")
			}

			start, obj = s.ImplicitSuper(th)
		case a[1] == nil:
			Raise(TypeError, "super() with a single argument is not supported")
		default:
			start = classOf(th, a[0], "super")
			obj = a[1]
		}

		return NewSuper(start, obj)
	})

	define(SuperType, "__init__", func(th *Thread, args []Value, kw []Keyword) Value {
		return None
	})
}

// NewSuper creates the proxy returned by super(start, obj).
func NewSuper(start *Class, obj Value) *Super {
	if c, ok := obj.(*Class); ok && c.IsSubclass(start) {
		return &Super{Class: start, Self: c, Type: c}
	}

	t := TypeOf(obj)
	if !t.IsSubclass(start) {
		Raise(TypeError, "super(type, obj): obj must be an instance or subtype of type")
	}

	return &Super{Class: start, Self: obj, Type: t}
}
