// Released under an MIT license. See LICENSE.

package object

// Operators supported by each builtin type. The dunders registered here
// make the builtin behavior visible to subclasses and to super().
//
//nolint:gochecknoglobals
var (
	intOps    = []string{"+", "-", "*", "/", "//", "%", "**", "<<", ">>", "&", "|", "^"}
	floatOps  = []string{"+", "-", "*", "/", "//", "%", "**"}
	seqOps    = []string{"+", "*"}
	setOps    = []string{"|", "&", "-", "^"}
	allCmp    = []string{"==", "!=", "<", "<=", ">", ">="}
	equality  = []string{"==", "!="}
	immutable = []*Class{IntType, FloatType, StrType, BytesType, TupleType, FrozenSetType, RangeType}
	unhashed  = []*Class{ListType, DictType, SetType}
)

func operators(c *Class, ops ...string) {
	for _, op := range ops {
		d := binary[op]

		method(c, d.name, func(th *Thread, self Value, args []Value, kw []Keyword) Value {
			return primBinary(th, op, Prim(self), Prim(one(args)))
		})

		method(c, d.reflected, func(th *Thread, self Value, args []Value, kw []Keyword) Value {
			return primBinary(th, op, Prim(one(args)), Prim(self))
		})
	}
}

func comparators(c *Class, ops ...string) {
	for _, op := range ops {
		method(c, comparisons[op].name, func(th *Thread, self Value, args []Value, kw []Keyword) Value {
			return primCompare(th, op, Prim(self), Prim(one(args)))
		})
	}
}

func inplace(c *Class, ops ...string) {
	for _, op := range ops {
		method(c, binary[op].inplace, func(th *Thread, self Value, args []Value, kw []Keyword) Value {
			p := Prim(self)

			r := InplaceOp(th, op, p, Prim(one(args)))
			if Is(r, p) {
				return self
			}

			return r
		})
	}
}

func container(c *Class) {
	method(c, "__len__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return int64(Len(th, Prim(self)))
	})

	method(c, "__iter__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return Iter(th, Prim(self))
	})

	method(c, "__contains__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return Contains(th, Prim(self), one(args))
	})
}

func init() {
	operators(IntType, intOps...)
	operators(FloatType, floatOps...)
	operators(StrType, "+", "*", "%")
	operators(BytesType, "+", "*", "%")
	operators(TupleType, seqOps...)
	operators(ListType, seqOps...)
	operators(SetType, setOps...)
	operators(FrozenSetType, setOps...)
	operators(DictType, "|")

	inplace(ListType, seqOps...)
	inplace(SetType, setOps...)
	inplace(DictType, "|")

	for _, c := range []*Class{IntType, FloatType, StrType, BytesType, TupleType, ListType, SetType, FrozenSetType} {
		comparators(c, allCmp...)
	}

	for _, c := range []*Class{DictType, RangeType, SliceType} {
		comparators(c, equality...)
	}

	for _, c := range []*Class{StrType, BytesType, TupleType, ListType, DictType, SetType, FrozenSetType, RangeType} {
		container(c)
	}

	method(DictType, "__getitem__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		key := one(args)

		if v, ok := selfDict(self).Get(th, key); ok {
			return v
		}

		if t := TypeOf(self); t != DictType {
			if f, ok := t.Lookup("__missing__"); ok {
				return Call(th, bind(th, f, self, t), []Value{key}, nil)
			}
		}

		panic(NewException(KeyError, key))
	})

	for _, c := range []*Class{StrType, BytesType, TupleType, ListType, RangeType} {
		method(c, "__getitem__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
			return GetItem(th, Prim(self), one(args))
		})
	}

	for _, c := range immutable {
		method(c, "__hash__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
			return Hash(th, Prim(self))
		})
	}

	for _, c := range unhashed {
		c.Dict.SetStr("__hash__", None)
	}

	for _, c := range []*Class{
		IntType, FloatType, StrType, BytesType, TupleType, ListType,
		DictType, SetType, FrozenSetType, RangeType, SliceType,
	} {
		method(c, "__repr__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
			return Repr(th, Prim(self))
		})
	}
}
