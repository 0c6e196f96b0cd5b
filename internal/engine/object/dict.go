// Released under an MIT license. See LICENSE.

package object

import (
	"hash/fnv"
	"math"
	"reflect"
)

// Dict is an insertion ordered hash table.
type Dict struct {
	entries []entry
	direct  map[any]int
	hashed  map[int64][]int
	live    int
	dead    int

	// Resized counts insertions and deletions. Iterators use it to detect
	// a change in size.
	resized int
}

type entry struct {
	key, value Value
	hash       int64
	indirect   bool
	dead       bool
}

// Item is a key/value pair.
type Item struct {
	Key   Value
	Value Value
}

// hashed marks keys whose identity is decided by __hash__ and __eq__.
type hashed struct {
	h int64
}

// NewDict creates an empty dict.
func NewDict() *Dict {
	return &Dict{direct: map[any]int{}}
}

// DictOf creates a dict from string keyed pairs.
func DictOf(pairs map[string]Value) *Dict {
	d := NewDict()
	for k, v := range pairs {
		d.SetStr(k, v)
	}

	return d
}

// Len returns the number of live entries.
func (d *Dict) Len() int {
	return d.live
}

// Get returns the value stored under k.
func (d *Dict) Get(th *Thread, k Value) (Value, bool) {
	i := d.find(th, k)
	if i < 0 {
		return nil, false
	}

	return d.entries[i].value, true
}

// GetStr returns the value stored under the string s.
func (d *Dict) GetStr(s string) (Value, bool) {
	if i, ok := d.direct[s]; ok {
		return d.entries[i].value, true
	}

	return nil, false
}

// Set stores v under k.
func (d *Dict) Set(th *Thread, k, v Value) {
	key := keyOf(th, k)

	if h, ok := key.(hashed); ok {
		for _, i := range d.hashed[h.h] {
			if Eq(th, d.entries[i].key, k) {
				d.entries[i].value = v

				return
			}
		}

		if d.hashed == nil {
			d.hashed = map[int64][]int{}
		}

		d.hashed[h.h] = append(d.hashed[h.h], len(d.entries))
		d.entries = append(d.entries, entry{key: k, value: v, hash: h.h, indirect: true})
	} else {
		if i, ok := d.direct[key]; ok {
			d.entries[i].value = v

			return
		}

		d.direct[key] = len(d.entries)
		d.entries = append(d.entries, entry{key: k, value: v})
	}

	d.live++
	d.resized++
}

// SetStr stores v under the string s.
func (d *Dict) SetStr(s string, v Value) {
	if i, ok := d.direct[s]; ok {
		d.entries[i].value = v

		return
	}

	d.direct[s] = len(d.entries)
	d.entries = append(d.entries, entry{key: s, value: v})
	d.live++
	d.resized++
}

// Delete removes k, returning false if it was not present.
func (d *Dict) Delete(th *Thread, k Value) bool {
	i := d.find(th, k)
	if i < 0 {
		return false
	}

	d.remove(th, i)

	return true
}

// DelStr removes the string key s.
func (d *Dict) DelStr(s string) bool {
	i, ok := d.direct[s]
	if !ok {
		return false
	}

	d.remove(nil, i)

	return true
}

// Pop removes k and returns its value.
func (d *Dict) Pop(th *Thread, k Value) (Value, bool) {
	i := d.find(th, k)
	if i < 0 {
		return nil, false
	}

	v := d.entries[i].value
	d.remove(th, i)

	return v, true
}

// Clear removes every entry.
func (d *Dict) Clear() {
	d.entries = nil
	d.direct = map[any]int{}
	d.hashed = nil
	d.live = 0
	d.dead = 0
	d.resized++
}

// Copy returns a shallow copy of d.
func (d *Dict) Copy() *Dict {
	c := NewDict()

	for _, e := range d.entries {
		if e.dead {
			continue
		}

		if e.indirect {
			if c.hashed == nil {
				c.hashed = map[int64][]int{}
			}

			c.hashed[e.hash] = append(c.hashed[e.hash], len(c.entries))
		} else {
			c.direct[keyOf(nil, e.key)] = len(c.entries)
		}

		c.entries = append(c.entries, e)
		c.live++
	}

	return c
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []Value {
	keys := make([]Value, 0, d.live)

	for _, e := range d.entries {
		if !e.dead {
			keys = append(keys, e.key)
		}
	}

	return keys
}

// Values returns the values in insertion order.
func (d *Dict) Values() []Value {
	values := make([]Value, 0, d.live)

	for _, e := range d.entries {
		if !e.dead {
			values = append(values, e.value)
		}
	}

	return values
}

// Items returns the entries in insertion order.
func (d *Dict) Items() []Item {
	items := make([]Item, 0, d.live)

	for _, e := range d.entries {
		if !e.dead {
			items = append(items, Item{e.key, e.value})
		}
	}

	return items
}

// Last returns the most recently inserted entry.
func (d *Dict) Last() (Item, bool) {
	for i := len(d.entries) - 1; i >= 0; i-- {
		if e := d.entries[i]; !e.dead {
			return Item{e.key, e.value}, true
		}
	}

	return Item{}, false
}

// at returns the entry at position i, skipping dead entries. It returns
// the position of the next entry.
func (d *Dict) at(i int) (Item, int, bool) {
	for ; i < len(d.entries); i++ {
		if e := d.entries[i]; !e.dead {
			return Item{e.key, e.value}, i + 1, true
		}
	}

	return Item{}, i, false
}

func (d *Dict) find(th *Thread, k Value) int {
	key := keyOf(th, k)

	if h, ok := key.(hashed); ok {
		for _, i := range d.hashed[h.h] {
			if Eq(th, d.entries[i].key, k) {
				return i
			}
		}

		return -1
	}

	if i, ok := d.direct[key]; ok {
		return i
	}

	return -1
}

func (d *Dict) remove(th *Thread, i int) {
	e := &d.entries[i]

	if e.indirect {
		bucket := d.hashed[e.hash]
		for j, n := range bucket {
			if n == i {
				d.hashed[e.hash] = append(bucket[:j:j], bucket[j+1:]...)

				break
			}
		}
	} else {
		delete(d.direct, keyOf(th, e.key))
	}

	*e = entry{dead: true}

	d.live--
	d.dead++
	d.resized++

	if d.dead > 16 && d.dead > d.live {
		d.compact()
	}
}

func (d *Dict) compact() {
	entries := d.entries

	d.entries = make([]entry, 0, d.live)
	d.direct = map[any]int{}
	d.hashed = nil
	d.dead = 0

	for _, e := range entries {
		if e.dead {
			continue
		}

		if e.indirect {
			if d.hashed == nil {
				d.hashed = map[int64][]int{}
			}

			d.hashed[e.hash] = append(d.hashed[e.hash], len(d.entries))
		} else {
			d.direct[keyOf(nil, e.key)] = len(d.entries)
		}

		d.entries = append(d.entries, e)
	}
}

// keyOf maps a guest value to a Go map key. Values that compare equal in
// the guest language map to equal keys, except for those whose equality is
// decided by guest code, which map to a hashed bucket.
func keyOf(th *Thread, k Value) any {
	switch v := k.(type) {
	case NoneType, EllipsisType, NotImplementedType, string, Bytes, int64:
		return v
	case bool:
		if v {
			return int64(1)
		}

		return int64(0)
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64 {
			return int64(v)
		}

		return v
	case Tuple:
		return hashed{Hash(th, v)}
	case *Set:
		if !v.Frozen {
			Raise(TypeError, "unhashable type: 'set'")
		}

		return hashed{Hash(th, v)}
	case *List:
		Raise(TypeError, "unhashable type: 'list'")
	case *Dict:
		Raise(TypeError, "unhashable type: 'dict'")
	case *Instance:
		return instanceKey(th, v, v.Class)
	case *Exception:
		return instanceKey(th, v, v.Class)
	case *GenericAlias, *Union:
		return hashed{Hash(th, v)}
	}

	return Identity(k)
}

func instanceKey(th *Thread, v Value, c *Class) any {
	h, ok := c.Lookup("__hash__")
	if ok {
		if _, none := h.(NoneType); none {
			Raise(TypeError, "unhashable type: '%s'", c.Name)
		}

		if _, host := h.(*Builtin); !host {
			return hashed{Hash(th, v)}
		}
	}

	if i, ok := v.(*Instance); ok && i.Base != nil {
		return keyOf(th, i.Base)
	}

	return Identity(v)
}

// Hash returns the hash of v.
func Hash(th *Thread, v Value) int64 {
	switch v := v.(type) {
	case NoneType:
		return 0x5f3759df
	case bool:
		if v {
			return 1
		}

		return 0
	case int64:
		if v == -1 {
			return -2
		}

		return v
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64 {
			return Hash(th, int64(v))
		}

		return int64(math.Float64bits(v))
	case string:
		return hashString(v)
	case Bytes:
		return hashString(string(v))
	case Tuple:
		h := int64(0x345678)
		for _, e := range v {
			h = (h ^ Hash(th, e)) * 1000003
		}

		return h
	case *Set:
		if !v.Frozen {
			Raise(TypeError, "unhashable type: 'set'")
		}

		h := int64(1927868237)
		for _, e := range v.d.Keys() {
			h ^= Hash(th, e) * 69069
		}

		return h
	case *List, *Dict:
		Raise(TypeError, "unhashable type: '%s'", TypeName(v))
	case *Instance:
		return hashInstance(th, v, v.Class)
	case *Exception:
		return hashInstance(th, v, v.Class)
	case *GenericAlias:
		return Hash(th, Tuple{v.Origin, v.Args})
	case *Union:
		h := int64(0x7f4a7c15)
		for _, e := range v.Args {
			h ^= Hash(th, e)
		}

		return h
	}

	return int64(ID(v))
}

func hashInstance(th *Thread, v Value, c *Class) int64 {
	h, ok := c.Lookup("__hash__")
	if ok {
		if _, none := h.(NoneType); none {
			Raise(TypeError, "unhashable type: '%s'", c.Name)
		}

		if _, host := h.(*Builtin); !host {
			r := Call(th, bind(th, h, v, c), nil, nil)

			n, ok := Prim(r).(int64)
			if !ok {
				if b, ok := r.(bool); ok {
					return Hash(th, b)
				}

				Raise(TypeError, "__hash__ method should return an integer")
			}

			return n
		}
	}

	if i, ok := v.(*Instance); ok && i.Base != nil {
		return Hash(th, i.Base)
	}

	return int64(ID(v))
}

func hashString(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))

	return int64(h.Sum64() >> 1)
}

// ID returns a number unique to v's identity.
func ID(v Value) uintptr {
	k := Identity(v)

	rv := reflect.ValueOf(k)
	if rv.Kind() == reflect.Pointer {
		return rv.Pointer()
	}

	switch k.(type) {
	case string, int64, float64, bool, Bytes, NoneType, EllipsisType, NotImplementedType:
		return uintptr(Hash(nil, k))
	}

	return 0
}

// Set is a set or frozenset.
type Set struct {
	d      *Dict
	Frozen bool
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{d: NewDict()}
}

// SetOf creates a set holding items.
func SetOf(th *Thread, frozen bool, items ...Value) *Set {
	s := &Set{d: NewDict(), Frozen: frozen}
	for _, v := range items {
		s.d.Set(th, v, None)
	}

	return s
}

// Add inserts v.
func (s *Set) Add(th *Thread, v Value) {
	s.d.Set(th, v, None)
}

// Contains returns true if v is a member.
func (s *Set) Contains(th *Thread, v Value) bool {
	_, ok := s.d.Get(th, v)

	return ok
}

// Discard removes v, returning false if it was not a member.
func (s *Set) Discard(th *Thread, v Value) bool {
	return s.d.Delete(th, v)
}

// Len returns the number of members.
func (s *Set) Len() int {
	return s.d.Len()
}

// Items returns the members in insertion order.
func (s *Set) Items() []Value {
	return s.d.Keys()
}

// Copy returns a shallow copy of s.
func (s *Set) Copy(frozen bool) *Set {
	return &Set{d: s.d.Copy(), Frozen: frozen}
}

// Clear removes every member.
func (s *Set) Clear() {
	s.d.Clear()
}
