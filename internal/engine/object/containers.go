// Released under an MIT license. See LICENSE.

package object

import (
	"sort"

	"github.com/michaelmacinnis/enclave/internal/common/validate"
)

// Sort sorts items in place, stably, comparing with < on the results of
// key when it is not nil.
func Sort(th *Thread, items []Value, key Value, reverse bool) {
	keys := items

	if key != nil && key != None {
		keys = make([]Value, len(items))
		for i, v := range items {
			keys[i] = Call(th, key, []Value{v}, nil)
		}
	}

	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}

	less := func(a, b Value) bool {
		return Truth(th, RichCompare(th, "<", a, b))
	}

	sort.SliceStable(idx, func(i, j int) bool {
		if reverse {
			return less(keys[idx[j]], keys[idx[i]])
		}

		return less(keys[idx[i]], keys[idx[j]])
	})

	sorted := make([]Value, len(items))
	for i, k := range idx {
		sorted[i] = items[k]
	}

	copy(items, sorted)
}

func selfList(self Value) *List {
	l, ok := Prim(self).(*List)
	if !ok {
		Raise(TypeError, "descriptor requires a 'list' object but received a '%s'", TypeName(self))
	}

	return l
}

func selfDict(self Value) *Dict {
	d, ok := Prim(self).(*Dict)
	if !ok {
		Raise(TypeError, "descriptor requires a 'dict' object but received a '%s'", TypeName(self))
	}

	return d
}

func selfSet(self Value) *Set {
	s, ok := Prim(self).(*Set)
	if !ok {
		Raise(TypeError, "descriptor requires a 'set' object but received a '%s'", TypeName(self))
	}

	return s
}

func seqIndex(th *Thread, items []Value, args []Value) int64 {
	a := validate.Fixed(args, 1, 3)

	lo, hi, _ := Indices(th, &Slice{Start: a[1], Stop: a[2]}, len(items))
	for i := lo; i < hi; i++ {
		if Eq(th, items[i], a[0]) {
			return int64(i)
		}
	}

	return -1
}

func count(th *Thread, items []Value, v Value) int64 {
	n := int64(0)

	for _, item := range items {
		if Eq(th, item, v) {
			n++
		}
	}

	return n
}

// toSet converts an iterable to a set for the set operation methods.
func toSet(th *Thread, v Value) *Set {
	if s, ok := Prim(v).(*Set); ok {
		return s
	}

	return SetOf(th, false, ToSlice(th, v)...)
}

// UpdateDict adds the items of a mapping or an iterable of pairs to d.
func UpdateDict(th *Thread, d *Dict, other Value) {
	updateDict(th, d, other)
}

//nolint:funlen,gocognit,cyclop,maintidx
func init() {
	newMethod(TupleType, func(th *Thread, args []Value, kw []Keyword) Value {
		c := classOf(th, args[0], "tuple.__new__")
		a := Args("tuple", args[1:], kw, 0, "iterable")

		t := Tuple{}
		if a[0] != nil {
			t = Tuple(ToSlice(th, a[0]))
		}

		return wrap(c, t, TupleType)
	})

	method(TupleType, "index", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		t, _ := Prim(self).(Tuple)

		i := seqIndex(th, t, args)
		if i < 0 {
			Raise(ValueError, "tuple.index(x): x not in tuple")
		}

		return i
	})

	method(TupleType, "count", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		t, _ := Prim(self).(Tuple)

		return count(th, t, one(args))
	})

	newMethod(ListType, func(th *Thread, args []Value, kw []Keyword) Value {
		c := classOf(th, args[0], "list.__new__")

		return wrap(c, NewList(), ListType)
	})

	method(ListType, "__init__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		a := Args("list", args, kw, 0, "iterable")
		l := selfList(self)

		l.Items = l.Items[:0]
		if a[0] != nil {
			l.Items = ToSlice(th, a[0])
		}

		return None
	})

	method(ListType, "append", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		l := selfList(self)
		l.Items = append(l.Items, one(args))

		return None
	})

	method(ListType, "extend", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		l := selfList(self)
		l.Items = append(l.Items, ToSlice(th, one(args))...)

		return None
	})

	method(ListType, "insert", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 2, 2)
		l := selfList(self)

		n := len(l.Items)

		i := toIndex(th, a[0])
		if i < 0 {
			i = max(i+n, 0)
		}

		i = min(i, n)

		l.Items = append(l.Items, nil)
		copy(l.Items[i+1:], l.Items[i:])
		l.Items[i] = a[1]

		return None
	})

	method(ListType, "pop", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 0, 1)
		l := selfList(self)

		if len(l.Items) == 0 {
			Raise(IndexError, "pop from empty list")
		}

		i := len(l.Items) - 1
		if a[0] != nil {
			var ok bool

			i, ok = position(th, "list", a[0], len(l.Items))
			if !ok {
				Raise(IndexError, "pop index out of range")
			}
		}

		v := l.Items[i]
		l.Items = append(l.Items[:i], l.Items[i+1:]...)

		return v
	})

	method(ListType, "remove", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		l := selfList(self)

		i := seqIndex(th, l.Items, args[:min(len(args), 1)])
		if i < 0 {
			Raise(ValueError, "list.remove(x): x not in list")
		}

		l.Items = append(l.Items[:i], l.Items[i+1:]...)

		return None
	})

	method(ListType, "index", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		i := seqIndex(th, selfList(self).Items, args)
		if i < 0 {
			Raise(ValueError, "%s is not in list", Repr(th, args[0]))
		}

		return i
	})

	method(ListType, "count", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return count(th, selfList(self).Items, one(args))
	})

	method(ListType, "clear", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		selfList(self).Items = []Value{}

		return None
	})

	method(ListType, "copy", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return NewList(append([]Value(nil), selfList(self).Items...)...)
	})

	method(ListType, "reverse", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		items := selfList(self).Items
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}

		return None
	})

	method(ListType, "sort", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		if len(args) > 0 {
			Raise(TypeError, "sort() takes no positional arguments")
		}

		a := Args("sort", nil, kw, 0, "key", "reverse")
		l := selfList(self)

		items := l.Items
		l.Items = []Value{}

		defer func() {
			l.Items = items
		}()

		Sort(th, items, a[0], a[1] != nil && Truth(th, a[1]))

		return None
	})

	method(ListType, "__setitem__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 2, 2)
		SetItem(th, selfList(self), a[0], a[1])

		return None
	})

	method(ListType, "__delitem__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		DelItem(th, selfList(self), one(args))

		return None
	})

	method(ListType, "__reversed__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return Reversed(th, selfList(self))
	})

	newMethod(DictType, func(th *Thread, args []Value, kw []Keyword) Value {
		c := classOf(th, args[0], "dict.__new__")

		return wrap(c, NewDict(), DictType)
	})

	method(DictType, "__init__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 0, 1)
		d := selfDict(self)

		if a[0] != nil {
			updateDict(th, d, a[0])
		}

		for _, k := range kw {
			d.SetStr(k.Name, k.Value)
		}

		return None
	})

	method(DictType, "keys", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return &DictView{Dict: selfDict(self), Kind: "keys"}
	})

	method(DictType, "values", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return &DictView{Dict: selfDict(self), Kind: "values"}
	})

	method(DictType, "items", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return &DictView{Dict: selfDict(self), Kind: "items"}
	})

	method(DictType, "get", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 1, 2)

		if v, ok := selfDict(self).Get(th, a[0]); ok {
			return v
		}

		if a[1] == nil {
			return None
		}

		return a[1]
	})

	method(DictType, "pop", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 1, 2)

		if v, ok := selfDict(self).Pop(th, a[0]); ok {
			return v
		}

		if a[1] == nil {
			panic(NewException(KeyError, a[0]))
		}

		return a[1]
	})

	method(DictType, "popitem", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		d := selfDict(self)

		item, ok := d.Last()
		if !ok {
			Raise(KeyError, "popitem(): dictionary is empty")
		}

		d.Delete(th, item.Key)

		return Tuple{item.Key, item.Value}
	})

	method(DictType, "setdefault", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 1, 2)
		d := selfDict(self)

		if v, ok := d.Get(th, a[0]); ok {
			return v
		}

		v := a[1]
		if v == nil {
			v = None
		}

		d.Set(th, a[0], v)

		return v
	})

	method(DictType, "update", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 0, 1)
		d := selfDict(self)

		if a[0] != nil {
			updateDict(th, d, a[0])
		}

		for _, k := range kw {
			d.SetStr(k.Name, k.Value)
		}

		return None
	})

	method(DictType, "clear", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		selfDict(self).Clear()

		return None
	})

	method(DictType, "copy", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return selfDict(self).Copy()
	})

	method(DictType, "__setitem__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 2, 2)
		selfDict(self).Set(th, a[0], a[1])

		return None
	})

	method(DictType, "__delitem__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		DelItem(th, selfDict(self), one(args))

		return None
	})

	fromkeys := define(DictType, "fromkeys", func(th *Thread, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 2, 3)

		v := a[2]
		if v == nil {
			v = None
		}

		r := CallClass(th, classOf(th, a[0], "fromkeys"), nil, nil)
		for _, k := range ToSlice(th, a[1]) {
			SetItem(th, r, k, v)
		}

		return r
	})
	DictType.Dict.SetStr("fromkeys", &ClassMethod{Func: fromkeys})

	for _, c := range []*Class{SetType, FrozenSetType} {
		frozen := c == FrozenSetType

		newMethod(c, func(th *Thread, args []Value, kw []Keyword) Value {
			k := classOf(th, args[0], c.Name+".__new__")
			a := Args(c.Name, args[1:], kw, 0, "iterable")

			s := SetOf(th, frozen)
			if frozen && a[0] != nil {
				s = SetOf(th, true, ToSlice(th, a[0])...)
			}

			return wrap(k, s, c)
		})

		method(c, "copy", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
			return selfSet(self).Copy(frozen)
		})

		for name, op := range map[string]string{
			"union":                "|",
			"intersection":         "&",
			"difference":           "-",
			"symmetric_difference": "^",
		} {
			method(c, name, func(th *Thread, self Value, args []Value, kw []Keyword) Value {
				r := selfSet(self).Copy(frozen)
				for _, other := range args {
					r = setOp(th, op, r, toSet(th, other)).(*Set) //nolint:forcetypeassert
				}

				r.Frozen = frozen

				return r
			})
		}

		method(c, "issubset", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
			return subset(th, selfSet(self), toSet(th, one(args)))
		})

		method(c, "issuperset", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
			return subset(th, toSet(th, one(args)), selfSet(self))
		})

		method(c, "isdisjoint", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
			s := selfSet(self)

			for _, v := range ToSlice(th, one(args)) {
				if s.Contains(th, v) {
					return false
				}
			}

			return true
		})
	}

	method(SetType, "__init__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		a := Args("set", args, kw, 0, "iterable")
		s := selfSet(self)

		s.Clear()

		if a[0] != nil {
			for _, v := range ToSlice(th, a[0]) {
				s.Add(th, v)
			}
		}

		return None
	})

	method(SetType, "add", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		selfSet(self).Add(th, one(args))

		return None
	})

	method(SetType, "discard", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		selfSet(self).Discard(th, one(args))

		return None
	})

	method(SetType, "remove", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		v := one(args)
		if !selfSet(self).Discard(th, v) {
			panic(NewException(KeyError, v))
		}

		return None
	})

	method(SetType, "pop", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		s := selfSet(self)

		items := s.Items()
		if len(items) == 0 {
			Raise(KeyError, "pop from an empty set")
		}

		s.Discard(th, items[0])

		return items[0]
	})

	method(SetType, "clear", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		selfSet(self).Clear()

		return None
	})

	for name, op := range map[string]string{
		"update":                      "|",
		"intersection_update":         "&",
		"difference_update":           "-",
		"symmetric_difference_update": "^",
	} {
		method(SetType, name, func(th *Thread, self Value, args []Value, kw []Keyword) Value {
			s := selfSet(self)

			for _, other := range args {
				r := setOp(th, op, s, toSet(th, other)).(*Set) //nolint:forcetypeassert
				s.d = r.d
			}

			return None
		})
	}

	newMethod(RangeType, func(th *Thread, args []Value, kw []Keyword) Value {
		NoKeywords("range", kw)

		a := validate.Fixed(args[1:], 1, 3)

		bound := func(v Value) int64 {
			n, ok := AsIndex(th, v)
			if !ok {
				Raise(TypeError, "'%s' object cannot be interpreted as an integer", TypeName(v))
			}

			return n
		}

		if a[1] == nil {
			return &Range{Start: 0, Stop: bound(a[0]), Step: 1}
		}

		r := &Range{Start: bound(a[0]), Stop: bound(a[1]), Step: 1}
		if a[2] != nil {
			r.Step = bound(a[2])
			if r.Step == 0 {
				Raise(ValueError, "range() arg 3 must not be zero")
			}
		}

		return r
	})

	method(RangeType, "index", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		r := self.(*Range) //nolint:forcetypeassert
		v := one(args)

		if n, ok := AsIndex(th, v); ok {
			if i := rangeIndex(r, n); i >= 0 {
				return i
			}
		}

		Raise(ValueError, "%s is not in range", Repr(th, v))

		return nil
	})

	method(RangeType, "count", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		if Contains(th, self, one(args)) {
			return int64(1)
		}

		return int64(0)
	})

	method(RangeType, "__reversed__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return Reversed(th, self)
	})

	newMethod(SliceType, func(th *Thread, args []Value, kw []Keyword) Value {
		NoKeywords("slice", kw)

		a := validate.Fixed(args[1:], 1, 3)

		for i := range a {
			if a[i] == nil {
				a[i] = None
			}
		}

		if a[1] == None && a[2] == None {
			return &Slice{Start: None, Stop: a[0], Step: None}
		}

		return &Slice{Start: a[0], Stop: a[1], Step: a[2]}
	})

	method(SliceType, "indices", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		n := toIndex(th, one(args))
		if n < 0 {
			Raise(ValueError, "length should not be negative")
		}

		start, stop, step := Indices(th, self.(*Slice), n) //nolint:forcetypeassert

		return Tuple{int64(start), int64(stop), int64(step)}
	})
}

// Reversed returns a reverse iterator over a sequence.
func Reversed(th *Thread, v Value) Value {
	switch x := Prim(v).(type) {
	case *Range:
		n := x.Len()

		return &Range{Start: x.At(n - 1), Stop: x.At(n - 1) - n*x.Step, Step: -x.Step}
	case *List:
		i := len(x.Items)

		return NewIterator("list_reverseiterator", func(*Thread) (Value, bool) {
			i = min(i, len(x.Items))
			if i <= 0 {
				return nil, false
			}

			i--

			return x.Items[i], true
		})
	case *Dict, *DictView:
		items := ToSlice(th, x)

		return reverseSlice(items)
	}

	if inst, ok := v.(*Instance); ok {
		if f, ok := inst.Class.Overrides("__reversed__"); ok {
			return Call(th, bind(th, f, inst, inst.Class), nil, nil)
		}
	}

	if _, ok := TypeOf(v).Lookup("__getitem__"); !ok {
		Raise(TypeError, "'%s' object is not reversible", TypeName(v))
	}

	n := Len(th, v)

	return NewIterator("reversed", func(*Thread) (Value, bool) {
		if n <= 0 {
			return nil, false
		}

		n--

		return GetItem(th, v, int64(n)), true
	})
}

func reverseSlice(items []Value) *Iterator {
	i := len(items)

	return NewIterator("reversed", func(*Thread) (Value, bool) {
		if i <= 0 {
			return nil, false
		}

		i--

		return items[i], true
	})
}
