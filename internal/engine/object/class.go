// Released under an MIT license. See LICENSE.

package object

// Class is a builtin or guest class.
type Class struct {
	Name     string
	Qualname string
	Module   string

	Bases []*Class
	MRO   []*Class
	Dict  *Dict

	// Meta is the metaclass. Nil means type.
	Meta *Class

	Builtin bool // Host defined; attributes are read-only.
	Final   bool // May not be subclassed.

	TypeParams Tuple
}

// Builtin classes.
//
//nolint:gochecknoglobals
var (
	ObjectType = builtin("object")
	TypeType   = builtin("type", ObjectType)

	NoneClass           = final("NoneType")
	EllipsisClass       = final("ellipsis")
	NotImplementedClass = final("NotImplementedType")

	IntType       = builtin("int", ObjectType)
	BoolType      = final("bool", IntType)
	FloatType     = builtin("float", ObjectType)
	StrType       = builtin("str", ObjectType)
	BytesType     = builtin("bytes", ObjectType)
	TupleType     = builtin("tuple", ObjectType)
	ListType      = builtin("list", ObjectType)
	DictType      = builtin("dict", ObjectType)
	SetType       = builtin("set", ObjectType)
	FrozenSetType = builtin("frozenset", ObjectType)
	RangeType     = final("range")
	SliceType     = final("slice")

	FunctionType       = final("function")
	BuiltinType        = final("builtin_function_or_method")
	MethodType         = final("method")
	ModuleType         = final("module")
	GeneratorType      = final("generator")
	CoroutineType      = final("coroutine")
	AsyncGeneratorType = final("async_generator")
	AsyncStepType      = final("async_generator_asend")
	PropertyType       = builtin("property", ObjectType)
	ClassMethodType    = builtin("classmethod", ObjectType)
	StaticMethodType   = builtin("staticmethod", ObjectType)
	SuperType          = builtin("super", ObjectType)
	FrameType          = final("frame")
	TracebackType      = final("traceback")
	IteratorType       = final("iterator")
	CellType           = final("cell")
	TypeVarType        = final("TypeVar")
	TypeAliasType      = final("TypeAliasType")
	GenericAliasType   = final("types.GenericAlias")
	UnionType          = final("types.UnionType")
)

func builtin(name string, bases ...*Class) *Class {
	c := &Class{
		Name:     name,
		Qualname: name,
		Module:   "builtins",
		Bases:    bases,
		Dict:     NewDict(),
		Builtin:  true,
	}

	c.MRO, _ = linearize(c)

	return c
}

func final(name string, bases ...*Class) *Class {
	if len(bases) == 0 {
		bases = []*Class{ObjectType}
	}

	c := builtin(name, bases...)
	c.Final = true

	return c
}

// linearize computes the C3 method resolution order for c. It returns false
// if no consistent order exists.
func linearize(c *Class) ([]*Class, bool) {
	seqs := make([][]*Class, 0, len(c.Bases)+1)

	for _, b := range c.Bases {
		seqs = append(seqs, append([]*Class(nil), b.MRO...))
	}

	seqs = append(seqs, append([]*Class(nil), c.Bases...))

	mro := []*Class{c}

	for {
		empty := true

		for _, s := range seqs {
			if len(s) > 0 {
				empty = false

				break
			}
		}

		if empty {
			return mro, true
		}

		var next *Class

		for _, s := range seqs {
			if len(s) == 0 {
				continue
			}

			candidate := s[0]
			if !inTail(seqs, candidate) {
				next = candidate

				break
			}
		}

		if next == nil {
			return nil, false
		}

		mro = append(mro, next)

		for i, s := range seqs {
			if len(s) > 0 && s[0] == next {
				seqs[i] = s[1:]
			}
		}
	}
}

func inTail(seqs [][]*Class, c *Class) bool {
	for _, s := range seqs {
		for _, t := range s[min(1, len(s)):] {
			if t == c {
				return true
			}
		}
	}

	return false
}

// Metaclass returns c's metaclass.
func (c *Class) Metaclass() *Class {
	if c.Meta == nil {
		return TypeType
	}

	return c.Meta
}

// Lookup searches c's MRO for name.
func (c *Class) Lookup(name string) (Value, bool) {
	for _, k := range c.MRO {
		if v, ok := k.Dict.GetStr(name); ok {
			return v, true
		}
	}

	return nil, false
}

// LookupAfter searches the MRO of c, starting after the class after.
func (c *Class) LookupAfter(after *Class, name string) (Value, *Class, bool) {
	found := false

	for _, k := range c.MRO {
		if !found {
			found = k == after

			continue
		}

		if v, ok := k.Dict.GetStr(name); ok {
			return v, k, true
		}
	}

	return nil, nil, false
}

// Overrides returns the guest definition of name, if a guest class in c's
// MRO defines one before any builtin class does.
func (c *Class) Overrides(name string) (Value, bool) {
	for _, k := range c.MRO {
		if v, ok := k.Dict.GetStr(name); ok {
			if k.Builtin {
				return nil, false
			}

			return v, true
		}
	}

	return nil, false
}

// IsSubclass returns true if c is base or derives from it.
func (c *Class) IsSubclass(base *Class) bool {
	for _, k := range c.MRO {
		if k == base {
			return true
		}
	}

	return false
}

// Solid returns the builtin class that determines the layout of c's
// instances.
func (c *Class) Solid() *Class {
	for _, k := range c.MRO {
		if k.Builtin && k != ObjectType {
			return k
		}
	}

	return ObjectType
}

// FullName returns the name used in reprs.
func (c *Class) FullName() string {
	if c.Module == "builtins" || c.Module == "" {
		return c.Qualname
	}

	return c.Module + "." + c.Qualname
}

// TypeOf returns the class of v.
func TypeOf(v Value) *Class {
	switch v := v.(type) {
	case NoneType:
		return NoneClass
	case EllipsisType:
		return EllipsisClass
	case NotImplementedType:
		return NotImplementedClass
	case bool:
		return BoolType
	case int64:
		return IntType
	case float64:
		return FloatType
	case string:
		return StrType
	case Bytes:
		return BytesType
	case Tuple:
		return TupleType
	case *List:
		return ListType
	case *Dict:
		return DictType
	case *Set:
		if v.Frozen {
			return FrozenSetType
		}

		return SetType
	case *Range:
		return RangeType
	case *Slice:
		return SliceType
	case *Instance:
		return v.Class
	case *Exception:
		return v.Class
	case *Class:
		return v.Metaclass()
	case *Function:
		return FunctionType
	case *Builtin:
		return BuiltinType
	case *Method:
		return MethodType
	case *Module:
		return ModuleType
	case *Generator:
		switch v.Kind {
		case Coroutine:
			return CoroutineType
		case AsyncGenerator:
			return AsyncGeneratorType
		case Plain:
		}

		return GeneratorType
	case *AsyncStep:
		return AsyncStepType
	case *Property:
		return PropertyType
	case *ClassMethod:
		return ClassMethodType
	case *StaticMethod:
		return StaticMethodType
	case *Super:
		return SuperType
	case *FrameSurrogate:
		return FrameType
	case *Traceback:
		return TracebackType
	case *Iterator:
		return IteratorType
	case *Cell:
		return CellType
	case *TypeVar:
		return TypeVarType
	case *TypeAlias:
		return TypeAliasType
	case *GenericAlias:
		return GenericAliasType
	case *Union:
		return UnionType
	case *DictView:
		return v.class()
	}

	return ObjectType
}

// TypeName returns the name of v's class.
func TypeName(v Value) string {
	return TypeOf(v).Name
}

// IsInstance returns true if v is an instance of c.
func IsInstance(v Value, c *Class) bool {
	return TypeOf(v).IsSubclass(c)
}

// NewClass creates a class the way type.__new__ does.
func NewClass(th *Thread, meta *Class, name string, bases []*Class, ns *Dict, kw []Keyword) *Class {
	if len(bases) == 0 {
		bases = []*Class{ObjectType}
	}

	var solid *Class

	for _, b := range bases {
		if b.Final {
			Raise(TypeError, "type '%s' is not an acceptable base type", b.Name)
		}

		s := b.Solid()
		switch {
		case solid == nil || s.IsSubclass(solid):
			solid = s
		case solid.IsSubclass(s):
		default:
			Raise(TypeError, "multiple bases have instance lay-out conflict")
		}
	}

	c := &Class{
		Name:     name,
		Qualname: name,
		Module:   "__main__",
		Bases:    bases,
		Dict:     ns.Copy(),
	}

	if meta != TypeType {
		c.Meta = meta
	}

	if q, ok := c.Dict.GetStr("__qualname__"); ok {
		s, ok := q.(string)
		if !ok {
			Raise(TypeError, "type __qualname__ must be a str, not %s", TypeName(q))
		}

		c.Qualname = s

		c.Dict.DelStr("__qualname__")
	}

	if m, ok := c.Dict.GetStr("__module__"); ok {
		if s, ok := m.(string); ok {
			c.Module = s
		}
	}

	if tp, ok := c.Dict.GetStr("__type_params__"); ok {
		if t, ok := tp.(Tuple); ok {
			c.TypeParams = t
		}
	}

	mro, ok := linearize(c)
	if !ok {
		Raise(TypeError, "Cannot create a consistent method resolution order (MRO) for bases %s", baseNames(bases))
	}

	c.MRO = mro

	if _, ok := c.Dict.GetStr("__eq__"); ok {
		if _, ok := c.Dict.GetStr("__hash__"); !ok {
			c.Dict.SetStr("__hash__", None)
		}
	}

	for _, implicit := range []string{"__init_subclass__", "__class_getitem__"} {
		if f, ok := c.Dict.GetStr(implicit); ok {
			if fn, ok := f.(*Function); ok {
				c.Dict.SetStr(implicit, &ClassMethod{Func: fn})
			}
		}
	}

	if f, ok := c.Dict.GetStr("__new__"); ok {
		if fn, ok := f.(*Function); ok {
			c.Dict.SetStr("__new__", &StaticMethod{Func: fn})
		}
	}

	for _, item := range c.Dict.Items() {
		hook, ok := TypeOf(item.Value).Lookup("__set_name__")
		if !ok {
			continue
		}

		Call(th, bind(th, hook, item.Value, TypeOf(item.Value)), []Value{c, item.Key}, nil)
	}

	if init, _, ok := c.LookupAfter(c, "__init_subclass__"); ok {
		Call(th, bindClass(th, init, c), nil, kw)
	}

	return c
}

func baseNames(bases []*Class) string {
	s := ""

	for i, b := range bases {
		if i > 0 {
			s += ", "
		}

		s += b.Name
	}

	return s
}

// CallClass instantiates c.
func CallClass(th *Thread, c *Class, args []Value, kw []Keyword) Value {
	meta := c.Metaclass()
	if call, ok := meta.Overrides("__call__"); ok {
		return Call(th, bind(th, call, c, meta), args, kw)
	}

	return Construct(th, c, args, kw)
}

// Construct runs c's __new__ and, if it returns an instance of c, its
// __init__. This is type.__call__.
func Construct(th *Thread, c *Class, args []Value, kw []Keyword) Value {
	if c == TypeType && len(args) == 1 && len(kw) == 0 {
		return TypeOf(args[0])
	}

	newer, ok := c.Lookup("__new__")
	if !ok {
		Raise(TypeError, "cannot create '%s' instances", c.Name)
	}

	obj := Call(th, unwrapStatic(newer), append([]Value{c}, args...), kw)

	t := TypeOf(obj)
	if !t.IsSubclass(c) {
		return obj
	}

	if init, ok := t.Lookup("__init__"); ok {
		r := Call(th, bind(th, init, obj, t), args, kw)
		if _, ok := r.(NoneType); !ok {
			Raise(TypeError, "__init__() should return None, not '%s'", TypeName(r))
		}
	}

	return obj
}

func unwrapStatic(v Value) Value {
	if s, ok := v.(*StaticMethod); ok {
		return s.Func
	}

	return v
}
