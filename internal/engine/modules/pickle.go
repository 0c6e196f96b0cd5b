// Released under an MIT license. See LICENSE.

package modules

import (
	"math"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/michaelmacinnis/enclave/internal/engine/object"
)

// Serialized values are CBOR. Containers other than lists are tagged;
// functions and classes are stored by reference as (module, qualname) and
// resolved again by name when loaded.
const (
	tagTuple uint64 = 27001 + iota
	tagDict
	tagSet
	tagFrozenSet
	tagGlobal
)

// Pickle errors.
//
//nolint:gochecknoglobals
var (
	PickleError     = object.ExceptionClass("pickle", "PickleError", object.ExceptionType)
	PicklingError   = object.ExceptionClass("pickle", "PicklingError", PickleError)
	UnpicklingError = object.ExceptionClass("pickle", "UnpicklingError", PickleError)
)

// Modules is implemented by importers that can find modules that are
// already loaded, including a run's main module.
type Modules interface {
	Loaded(name string) (*object.Module, bool)
}

func init() {
	register("pickle", func() *object.Module {
		m := module("pickle", "Serialization of plain data and named globals.", map[string]object.Native{
			"dumps": pickleDumps,
			"loads": pickleLoads,
		})

		m.Dict.SetStr("PickleError", PickleError)
		m.Dict.SetStr("PicklingError", PicklingError)
		m.Dict.SetStr("UnpicklingError", UnpicklingError)

		return m
	})
}

func pickleDumps(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	a := object.Args("dumps", args, kw, 1, "obj", "protocol")

	p := &pickler{th: th, seen: map[any]bool{}}

	b, err := cbor.Marshal(p.tree(a[0]))
	if err != nil {
		object.Raise(PicklingError, "%s", err.Error())
	}

	return object.Bytes(b)
}

func pickleLoads(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	a := object.Args("loads", args, kw, 1, "data")

	b, ok := object.Prim(a[0]).(object.Bytes)
	if !ok {
		object.Raise(object.TypeError, "a bytes-like object is required, not '%s'", object.TypeName(a[0]))
	}

	var tree any
	if err := cbor.Unmarshal([]byte(b), &tree); err != nil {
		object.Raise(UnpicklingError, "%s", err.Error())
	}

	return (&unpickler{th: th}).value(tree)
}

type pickler struct {
	th   *object.Thread
	seen map[any]bool
}

func (p *pickler) enter(v object.Value) {
	id := object.Identity(v)
	if p.seen[id] {
		object.Raise(PicklingError, "cannot pickle recursive %s object", object.TypeName(v))
	}

	p.seen[id] = true
}

func (p *pickler) leave(v object.Value) {
	delete(p.seen, object.Identity(v))
}

func (p *pickler) items(v object.Value, vs []object.Value) []any {
	p.enter(v)
	defer p.leave(v)

	out := make([]any, len(vs))
	for i, x := range vs {
		out[i] = p.tree(x)
	}

	return out
}

//nolint:cyclop
func (p *pickler) tree(v object.Value) any {
	switch x := v.(type) {
	case object.NoneType:
		return nil
	case bool, int64, float64, string:
		return x
	case object.Bytes:
		return []byte(x)
	case *object.List:
		return p.items(v, x.Items)
	case object.Tuple:
		return cbor.Tag{Number: tagTuple, Content: p.items(v, x)}
	case *object.Dict:
		flat := make([]object.Value, 0, 2*x.Len())
		for _, item := range x.Items() {
			flat = append(flat, item.Key, item.Value)
		}

		return cbor.Tag{Number: tagDict, Content: p.items(v, flat)}
	case *object.Set:
		tag := tagSet
		if x.Frozen {
			tag = tagFrozenSet
		}

		return cbor.Tag{Number: tag, Content: p.items(v, x.Items())}
	case *object.Function:
		return p.global(v, x.Module, x.Qualname)
	case *object.Class:
		return p.global(v, x.Module, x.Qualname)
	case *object.Builtin:
		if x.Self == nil && x.Module != "" {
			return p.global(v, x.Module, x.Name)
		}
	}

	object.Raise(PicklingError, "cannot pickle '%s' object", object.TypeName(v))

	return nil
}

// global stores v by name after checking the name leads back to v.
func (p *pickler) global(v object.Value, module, qualname string) any {
	if strings.Contains(qualname, "<") {
		object.Raise(PicklingError, "Can't pickle local object %s", object.Repr(p.th, v))
	}

	found, ok := lookupGlobal(p.th, module, qualname, PicklingError)
	if !ok || !object.Is(found, v) {
		object.Raise(PicklingError, "Can't pickle %s: it's not the same object as %s.%s", object.Repr(p.th, v), module, qualname)
	}

	return cbor.Tag{Number: tagGlobal, Content: []any{module, qualname}}
}

// lookupGlobal resolves module.qualname. Modules that are not already
// loaded are imported, so the import policy applies, and every attribute
// step is checked by the guard.
func lookupGlobal(th *object.Thread, module, qualname string, fail *object.Class) (object.Value, bool) {
	var v object.Value

	parts := strings.Split(qualname, ".")

	switch {
	case module == "builtins":
		if th.Builtins == nil {
			return nil, false
		}

		b, ok := th.Builtins.GetStr(parts[0])
		if !ok {
			return nil, false
		}

		v = b
	default:
		m, ok := loaded(th, module)
		if !ok {
			if th.Importer == nil {
				object.Raise(fail, "Can't find module %s", module)
			}

			m = th.Importer.Import(th, module, []string{}, 0, nil)
		}

		th.Check(m, parts[0])

		b, ok := object.LookupAttr(th, m, parts[0])
		if !ok {
			return nil, false
		}

		v = b
	}

	for _, part := range parts[1:] {
		th.Check(v, part)

		next, ok := object.LookupAttr(th, v, part)
		if !ok {
			return nil, false
		}

		v = next
	}

	return v, true
}

func loaded(th *object.Thread, name string) (object.Value, bool) {
	ms, ok := th.Importer.(Modules)
	if !ok {
		return nil, false
	}

	return ms.Loaded(name)
}

type unpickler struct {
	th *object.Thread
}

func (u *unpickler) values(content any) []object.Value {
	items, ok := content.([]any)
	if !ok {
		object.Raise(UnpicklingError, "invalid load key")
	}

	vs := make([]object.Value, len(items))
	for i, item := range items {
		vs[i] = u.value(item)
	}

	return vs
}

//nolint:cyclop
func (u *unpickler) value(tree any) object.Value {
	switch x := tree.(type) {
	case nil:
		return object.None
	case bool, int64, float64, string:
		return x
	case uint64:
		if x > math.MaxInt64 {
			object.Raise(object.OverflowError, "int too large to convert")
		}

		return int64(x)
	case []byte:
		return object.Bytes(x)
	case []any:
		return object.NewList(u.values(x)...)
	case cbor.Tag:
		return u.tagged(x)
	}

	object.Raise(UnpicklingError, "invalid load key")

	return nil
}

func (u *unpickler) tagged(t cbor.Tag) object.Value {
	switch t.Number {
	case tagTuple:
		return object.Tuple(u.values(t.Content))
	case tagDict:
		flat := u.values(t.Content)
		if len(flat)%2 != 0 {
			object.Raise(UnpicklingError, "odd number of dict items")
		}

		d := object.NewDict()
		for i := 0; i < len(flat); i += 2 {
			d.Set(u.th, flat[i], flat[i+1])
		}

		return d
	case tagSet, tagFrozenSet:
		return object.SetOf(u.th, t.Number == tagFrozenSet, u.values(t.Content)...)
	case tagGlobal:
		ref, ok := t.Content.([]any)
		if !ok || len(ref) != 2 {
			object.Raise(UnpicklingError, "invalid global reference")
		}

		module, _ := ref[0].(string)
		qualname, _ := ref[1].(string)

		v, ok := lookupGlobal(u.th, module, qualname, UnpicklingError)
		if !ok {
			object.Raise(object.AttributeError, "Can't get attribute '%s' on module '%s'", qualname, module)
		}

		return v
	}

	object.Raise(UnpicklingError, "invalid load key")

	return nil
}
