// Released under an MIT license. See LICENSE.

// Package builtins provides the allowlisted builtin namespace. Only names
// a host asks for are placed in an Environment; nothing here reaches the
// host process.
package builtins

import (
	"sort"

	"github.com/michaelmacinnis/enclave/internal/engine/object"
)

// Default lists the builtins an Environment gets when the host does not
// choose its own set. The exception hierarchy is always added.
//
//nolint:gochecknoglobals
var Default = []string{
	"abs", "aiter", "all", "anext", "any", "bin", "bool", "bytes",
	"callable", "chr", "classmethod", "delattr", "dict", "dir", "divmod",
	"enumerate", "filter", "float", "format", "frozenset", "getattr",
	"hasattr", "hash", "hex", "id", "int", "isinstance", "issubclass",
	"iter", "len", "list", "map", "max", "min", "next", "object", "oct",
	"ord", "pow", "print", "property", "range", "repr", "reversed", "round",
	"set", "setattr", "slice", "sorted", "staticmethod", "str", "sum",
	"super", "tuple", "type", "zip", "__import__",
	"Ellipsis", "False", "None", "NotImplemented", "True",
}

// UnknownError reports a requested builtin that does not exist.
type UnknownError struct {
	Name string
}

func (e *UnknownError) Error() string {
	return "unknown builtin: " + e.Name
}

//nolint:gochecknoglobals
var table = map[string]object.Value{}

func register(name string, fn object.Native) {
	b := object.NewBuiltin(name, fn)
	b.Module = "builtins"

	table[name] = b
}

func init() {
	for name, v := range map[string]object.Value{
		"Ellipsis":       object.Ellipsis,
		"False":          false,
		"None":           object.None,
		"NotImplemented": object.NotImplemented,
		"True":           true,

		"bool":         object.BoolType,
		"bytes":        object.BytesType,
		"classmethod":  object.ClassMethodType,
		"dict":         object.DictType,
		"float":        object.FloatType,
		"frozenset":    object.FrozenSetType,
		"int":          object.IntType,
		"list":         object.ListType,
		"object":       object.ObjectType,
		"property":     object.PropertyType,
		"range":        object.RangeType,
		"set":          object.SetType,
		"slice":        object.SliceType,
		"staticmethod": object.StaticMethodType,
		"str":          object.StrType,
		"super":        object.SuperType,
		"tuple":        object.TupleType,
		"type":         object.TypeType,
	} {
		table[name] = v
	}
}

// Names returns the sorted names of every available builtin, not counting
// exception classes.
func Names() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// New returns a builtins namespace holding names and the exception
// hierarchy.
func New(names []string) (*object.Dict, error) {
	d := object.NewDict()

	for _, name := range names {
		v, ok := table[name]
		if !ok {
			return nil, &UnknownError{Name: name}
		}

		d.SetStr(name, v)
	}

	for _, c := range object.Exceptions() {
		d.SetStr(c.Name, c)
	}

	return d, nil
}
