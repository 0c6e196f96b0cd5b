// Released under an MIT license. See LICENSE.

package object

import (
	"unicode/utf8"
)

// GetItem implements obj[key].
//
//nolint:cyclop,funlen
func GetItem(th *Thread, obj, key Value) Value {
	switch x := obj.(type) {
	case string:
		if s, ok := key.(*Slice); ok {
			r := []rune(x)
			start, stop, step := Indices(th, s, len(r))

			return string(sliceOf(r, start, stop, step))
		}

		if isASCII(x) {
			i := index(th, "string", key, len(x))

			return x[i : i+1]
		}

		r := []rune(x)

		return string(r[index(th, "string", key, len(r))])
	case Bytes:
		if s, ok := key.(*Slice); ok {
			start, stop, step := Indices(th, s, len(x))

			return Bytes(sliceOf([]byte(x), start, stop, step))
		}

		return int64(x[index(th, "index", key, len(x))])
	case Tuple:
		if s, ok := key.(*Slice); ok {
			start, stop, step := Indices(th, s, len(x))

			return Tuple(sliceOf(x, start, stop, step))
		}

		return x[index(th, "tuple", key, len(x))]
	case *List:
		if s, ok := key.(*Slice); ok {
			start, stop, step := Indices(th, s, len(x.Items))

			return NewList(sliceOf(x.Items, start, stop, step)...)
		}

		return x.Items[index(th, "list", key, len(x.Items))]
	case *Range:
		n := int(x.Len())

		if s, ok := key.(*Slice); ok {
			start, stop, step := Indices(th, s, n)

			return &Range{
				Start: x.Start + int64(start)*x.Step,
				Stop:  x.Start + int64(stop)*x.Step,
				Step:  x.Step * int64(step),
			}
		}

		return x.At(int64(index(th, "range object", key, n)))
	case *Dict:
		if v, ok := x.Get(th, key); ok {
			return v
		}

		panic(NewException(KeyError, key))
	case *Class:
		return classItem(th, x, key)
	case *GenericAlias:
		return &GenericAlias{Origin: x.Origin, Args: typeArgs(key)}
	case *TypeAlias:
		if len(x.TypeParams) == 0 {
			Raise(TypeError, "Only generic type aliases are subscriptable")
		}

		return &GenericAlias{Origin: x, Args: typeArgs(key)}
	case *Instance, *Exception:
		t := TypeOf(x)
		if f, ok := t.Overrides("__getitem__"); ok {
			return Call(th, bind(th, f, x, t), []Value{key}, nil)
		}

		if i, ok := x.(*Instance); ok && i.Base != nil {
			if d, ok := i.Base.(*Dict); ok {
				if v, ok := d.Get(th, key); ok {
					return v
				}

				if f, ok := t.Lookup("__missing__"); ok {
					return Call(th, bind(th, f, x, t), []Value{key}, nil)
				}

				panic(NewException(KeyError, key))
			}

			return GetItem(th, i.Base, key)
		}
	}

	Raise(TypeError, "'%s' object is not subscriptable", TypeName(obj))

	return nil
}

func classItem(th *Thread, c *Class, key Value) Value {
	if f, ok := c.Lookup("__class_getitem__"); ok {
		return Call(th, bindClass(th, f, c), []Value{key}, nil)
	}

	meta := c.Metaclass()
	if f, ok := meta.Overrides("__getitem__"); ok {
		return Call(th, bind(th, f, c, meta), []Value{key}, nil)
	}

	switch c {
	case ListType, DictType, TupleType, SetType, FrozenSetType, TypeType:
		return &GenericAlias{Origin: c, Args: typeArgs(key)}
	}

	if len(c.TypeParams) > 0 {
		return &GenericAlias{Origin: c, Args: typeArgs(key)}
	}

	Raise(TypeError, "type '%s' is not subscriptable", c.Name)

	return nil
}

func typeArgs(key Value) Tuple {
	if t, ok := key.(Tuple); ok {
		return t
	}

	return Tuple{key}
}

// SetItem implements obj[key] = v.
func SetItem(th *Thread, obj, key, v Value) {
	switch x := obj.(type) {
	case *List:
		if s, ok := key.(*Slice); ok {
			assignSlice(th, x, s, v)

			return
		}

		n := len(x.Items)

		i, ok := position(th, "list", key, n)
		if !ok {
			Raise(IndexError, "list assignment index out of range")
		}

		x.Items[i] = v

		return
	case *Dict:
		x.Set(th, key, v)

		return
	case *Instance, *Exception:
		t := TypeOf(x)
		if f, ok := t.Overrides("__setitem__"); ok {
			Call(th, bind(th, f, x, t), []Value{key, v}, nil)

			return
		}

		if i, ok := x.(*Instance); ok && i.Base != nil {
			SetItem(th, i.Base, key, v)

			return
		}
	}

	Raise(TypeError, "'%s' object does not support item assignment", TypeName(obj))
}

func assignSlice(th *Thread, l *List, s *Slice, v Value) {
	items := ToSlice(th, v)
	start, stop, step := Indices(th, s, len(l.Items))

	if step == 1 {
		if stop < start {
			stop = start
		}

		tail := append([]Value(nil), l.Items[stop:]...)
		l.Items = append(append(l.Items[:start], items...), tail...)

		return
	}

	n := sliceLen(start, stop, step)
	if len(items) != n {
		Raise(ValueError, "attempt to assign sequence of size %d to extended slice of size %d", len(items), n)
	}

	for i, item := range items {
		l.Items[start+i*step] = item
	}
}

// DelItem implements del obj[key].
func DelItem(th *Thread, obj, key Value) {
	switch x := obj.(type) {
	case *List:
		if s, ok := key.(*Slice); ok {
			start, stop, step := Indices(th, s, len(x.Items))
			drop := map[int]bool{}

			for i, n := 0, sliceLen(start, stop, step); i < n; i++ {
				drop[start+i*step] = true
			}

			kept := x.Items[:0]

			for i, item := range x.Items {
				if !drop[i] {
					kept = append(kept, item)
				}
			}

			x.Items = kept

			return
		}

		i, ok := position(th, "list", key, len(x.Items))
		if !ok {
			Raise(IndexError, "list assignment index out of range")
		}

		x.Items = append(x.Items[:i], x.Items[i+1:]...)

		return
	case *Dict:
		if !x.Delete(th, key) {
			panic(NewException(KeyError, key))
		}

		return
	case *Instance, *Exception:
		t := TypeOf(x)
		if f, ok := t.Overrides("__delitem__"); ok {
			Call(th, bind(th, f, x, t), []Value{key}, nil)

			return
		}

		if i, ok := x.(*Instance); ok && i.Base != nil {
			DelItem(th, i.Base, key)

			return
		}
	}

	Raise(TypeError, "'%s' object doesn't support item deletion", TypeName(obj))
}

// index converts key to a position in a sequence of length n, raising
// IndexError if it is out of range.
func index(th *Thread, kind string, key Value, n int) int {
	i, ok := position(th, kind, key, n)
	if !ok {
		Raise(IndexError, "%s index out of range", kind)
	}

	return i
}

func position(th *Thread, kind string, key Value, n int) (int, bool) {
	i, ok := AsIndex(th, key)
	if !ok {
		Raise(TypeError, "%s indices must be integers or slices, not %s", kind, TypeName(key))
	}

	if i < 0 {
		i += int64(n)
	}

	if i < 0 || i >= int64(n) {
		return 0, false
	}

	return int(i), true
}

// AsIndex converts v to an integer the way __index__ does.
func AsIndex(th *Thread, v Value) (int64, bool) {
	switch x := v.(type) {
	case bool:
		return boolInt(x), true
	case int64:
		return x, true
	case *Instance:
		if f, ok := x.Class.Overrides("__index__"); ok {
			r := Call(th, bind(th, f, x, x.Class), nil, nil)

			n, ok := Prim(r).(int64)
			if !ok {
				Raise(TypeError, "__index__ returned non-int (type %s)", TypeName(r))
			}

			return n, true
		}

		return AsIndex(th, x.Base)
	}

	return 0, false
}

// toIndex converts v to an int or raises TypeError.
func toIndex(th *Thread, v Value) int {
	n, ok := AsIndex(th, v)
	if !ok {
		Raise(TypeError, "'%s' object cannot be interpreted as an integer", TypeName(v))
	}

	return int(n)
}

// Indices computes the start, stop and step of s applied to a sequence of
// length n.
func Indices(th *Thread, s *Slice, n int) (int, int, int) {
	step := 1

	if s.Step != nil && s.Step != None {
		step = clampIndex(th, s.Step)
		if step == 0 {
			Raise(ValueError, "slice step cannot be zero")
		}
	}

	lower, upper := 0, n
	if step < 0 {
		lower, upper = -1, n-1
	}

	bound := func(v Value, d int) int {
		if v == nil || v == None {
			return d
		}

		i := clampIndex(th, v)
		if i < 0 {
			i += n
			if i < lower {
				i = lower
			}
		} else if i > upper {
			i = upper
		}

		return i
	}

	if step < 0 {
		return bound(s.Start, upper), bound(s.Stop, lower), step
	}

	return bound(s.Start, lower), bound(s.Stop, upper), step
}

func clampIndex(th *Thread, v Value) int {
	i, ok := AsIndex(th, v)
	if !ok {
		Raise(TypeError, "slice indices must be integers or None or have an __index__ method")
	}

	const limit = 1 << 62

	switch {
	case i > limit:
		return limit
	case i < -limit:
		return -limit
	}

	return int(i)
}

func sliceLen(start, stop, step int) int {
	switch {
	case step > 0 && start < stop:
		return (stop - start + step - 1) / step
	case step < 0 && stop < start:
		return (start - stop - step - 1) / -step
	}

	return 0
}

func sliceOf[T any](items []T, start, stop, step int) []T {
	n := sliceLen(start, stop, step)
	r := make([]T, n)

	for i := range r {
		r[i] = items[start+i*step]
	}

	return r
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}

	return true
}

func runeCount(s string) int {
	if isASCII(s) {
		return len(s)
	}

	return utf8.RuneCountInString(s)
}
