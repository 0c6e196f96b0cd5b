// Released under an MIT license. See LICENSE.

package object

import (
	"unicode/utf8"
)

// Iter returns an iterator over v.
//
//nolint:cyclop,funlen
func Iter(th *Thread, v Value) Value {
	switch x := v.(type) {
	case *Iterator:
		return x
	case *Generator:
		if x.Kind == Plain {
			return x
		}
	case string:
		i := 0

		return NewIterator("str_ascii_iterator", func(*Thread) (Value, bool) {
			if i >= len(x) {
				return nil, false
			}

			r, n := utf8.DecodeRuneInString(x[i:])
			i += n

			return string(r), true
		})
	case Bytes:
		i := 0

		return NewIterator("bytes_iterator", func(*Thread) (Value, bool) {
			if i >= len(x) {
				return nil, false
			}

			i++

			return int64(x[i-1]), true
		})
	case Tuple:
		return sequenceIterator("tuple_iterator", func(i int) (Value, bool) {
			if i >= len(x) {
				return nil, false
			}

			return x[i], true
		})
	case *List:
		return sequenceIterator("list_iterator", func(i int) (Value, bool) {
			if i >= len(x.Items) {
				return nil, false
			}

			return x.Items[i], true
		})
	case *Dict:
		return dictIterator("dict_keyiterator", x, func(item Item) Value {
			return item.Key
		})
	case *DictView:
		return x.iter()
	case *Set:
		return dictIterator("set_iterator", x.d, func(item Item) Value {
			return item.Key
		})
	case *Range:
		n := x.Len()

		return sequenceIterator("range_iterator", func(i int) (Value, bool) {
			if int64(i) >= n {
				return nil, false
			}

			return x.At(int64(i)), true
		})
	case *Instance, *Exception:
		t := TypeOf(x)

		if f, ok := t.Overrides("__iter__"); ok {
			it := Call(th, bind(th, f, x, t), nil, nil)
			if !isIterator(it) {
				Raise(TypeError, "iter() returned non-iterator of type '%s'", TypeName(it))
			}

			return it
		}

		if f, ok := t.Overrides("__getitem__"); ok {
			get := bind(th, f, x, t)

			return sequenceIterator("iterator", func(i int) (v Value, ok bool) {
				defer func() {
					if r := recover(); r != nil {
						e, isExc := r.(*Exception)
						if !isExc || !(e.Matches(IndexError) || e.Matches(StopIteration)) {
							panic(r)
						}

						v, ok = nil, false
					}
				}()

				return Call(th, get, []Value{int64(i)}, nil), true
			})
		}

		if i, ok := x.(*Instance); ok && i.Base != nil {
			return Iter(th, i.Base)
		}
	}

	Raise(TypeError, "'%s' object is not iterable", TypeName(v))

	return nil
}

func isIterator(v Value) bool {
	switch x := v.(type) {
	case *Iterator, *AsyncStep:
		return true
	case *Generator:
		return x.Kind != AsyncGenerator
	case *Instance, *Exception:
		_, ok := TypeOf(x).Lookup("__next__")

		return ok
	}

	return false
}

func sequenceIterator(name string, at func(i int) (Value, bool)) *Iterator {
	i := 0

	return NewIterator(name, func(*Thread) (Value, bool) {
		v, ok := at(i)
		if ok {
			i++
		}

		return v, ok
	})
}

func dictIterator(name string, d *Dict, f func(Item) Value) *Iterator {
	pos := 0
	size := d.resized

	return NewIterator(name, func(*Thread) (Value, bool) {
		if d.resized != size {
			if name == "set_iterator" {
				Raise(RuntimeError, "Set changed size during iteration")
			}

			Raise(RuntimeError, "dictionary changed size during iteration")
		}

		item, next, ok := d.at(pos)
		if !ok {
			return nil, false
		}

		pos = next

		return f(item), true
	})
}

// Next advances an iterator, returning false when it is exhausted.
func Next(th *Thread, it Value) (Value, bool) {
	switch x := it.(type) {
	case *Iterator:
		return x.Step(th)
	case *Generator:
		return x.Next(th)
	case *Instance, *Exception:
		t := TypeOf(x)
		if f, ok := t.Lookup("__next__"); ok {
			return callNext(th, bind(th, f, x, t))
		}
	}

	Raise(TypeError, "'%s' object is not an iterator", TypeName(it))

	return nil, false
}

func callNext(th *Thread, f Value) (v Value, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if e, isExc := r.(*Exception); isExc && e.Matches(StopIteration) {
				v, ok = nil, false

				return
			}

			panic(r)
		}
	}()

	return Call(th, f, nil, nil), true
}

// ToSlice collects the items of an iterable.
func ToSlice(th *Thread, v Value) []Value {
	switch x := v.(type) {
	case Tuple:
		return append([]Value(nil), x...)
	case *List:
		return append([]Value(nil), x.Items...)
	}

	it := Iter(th, v)
	items := []Value{}

	for {
		item, ok := Next(th, it)
		if !ok {
			return items
		}

		items = append(items, item)
	}
}

// Each calls f for each item of an iterable until f returns false.
func Each(th *Thread, v Value, f func(Value) bool) {
	it := Iter(th, v)

	for {
		item, ok := Next(th, it)
		if !ok || !f(item) {
			return
		}
	}
}

// DictView is the result of dict.keys, dict.values and dict.items.
type DictView struct {
	Dict *Dict
	Kind string // "keys", "values" or "items".
}

//nolint:gochecknoglobals
var (
	DictKeysType   = final("dict_keys")
	DictValuesType = final("dict_values")
	DictItemsType  = final("dict_items")
)

func (v *DictView) iter() *Iterator {
	switch v.Kind {
	case "values":
		return dictIterator("dict_valueiterator", v.Dict, func(item Item) Value {
			return item.Value
		})
	case "items":
		return dictIterator("dict_itemiterator", v.Dict, func(item Item) Value {
			return Tuple{item.Key, item.Value}
		})
	}

	return dictIterator("dict_keyiterator", v.Dict, func(item Item) Value {
		return item.Key
	})
}

func (v *DictView) class() *Class {
	switch v.Kind {
	case "values":
		return DictValuesType
	case "items":
		return DictItemsType
	}

	return DictKeysType
}

func (v *DictView) contains(th *Thread, item Value) bool {
	switch v.Kind {
	case "values":
		return containsValue(th, v.Dict.Values(), item)
	case "items":
		t, ok := item.(Tuple)
		if !ok || len(t) != 2 {
			return false
		}

		value, ok := v.Dict.Get(th, t[0])

		return ok && Eq(th, value, t[1])
	}

	_, ok := v.Dict.Get(th, item)

	return ok
}

func init() {
	for _, c := range []*Class{DictKeysType, DictValuesType, DictItemsType} {
		method(c, "__len__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
			return int64(self.(*DictView).Dict.Len()) //nolint:forcetypeassert
		})

		method(c, "__iter__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
			return self.(*DictView).iter() //nolint:forcetypeassert
		})

		method(c, "__contains__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
			if len(args) != 1 {
				Raise(TypeError, "expected 1 argument, got %d", len(args))
			}

			return self.(*DictView).contains(th, args[0]) //nolint:forcetypeassert
		})

		method(c, "__repr__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
			v := self.(*DictView) //nolint:forcetypeassert

			return v.class().Name + "(" + Repr(th, NewList(ToSlice(th, v.iter())...)) + ")"
		})
	}

	method(IteratorType, "__iter__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return self
	})

	method(IteratorType, "__next__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		v, ok := self.(*Iterator).Step(th) //nolint:forcetypeassert
		if !ok {
			panic(NewException(StopIteration))
		}

		return v
	})
}
