// Released under an MIT license. See LICENSE.

package builtins

import (
	"github.com/michaelmacinnis/enclave/internal/engine/object"
)

// maxImportLevel bounds the level passed to __import__. No package is
// nested this deeply.
const maxImportLevel = 1 << 10

// The reflective attribute builtins accept their arguments positionally or
// by keyword, which also covers ** expansion. Every form funnels into the
// guarded entry points of the object model.
func init() {
	register("getattr", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		a := object.Args("getattr", args, kw, 2, "object", "name", "default")
		if a[2] == nil {
			return object.GuardedGet(th, a[0], a[1])
		}

		return getattrDefault(th, a[0], a[1], a[2])
	})

	register("setattr", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		a := object.Args("setattr", args, kw, 3, "object", "name", "value")
		object.GuardedSet(th, a[0], a[1], a[2])

		return object.None
	})

	register("delattr", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		a := object.Args("delattr", args, kw, 2, "object", "name")
		object.GuardedDelete(th, a[0], a[1])

		return object.None
	})

	register("hasattr", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		a := object.Args("hasattr", args, kw, 2, "object", "name")

		return object.GuardedHas(th, a[0], a[1])
	})

	register("dir", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		object.NoKeywords("dir", kw)

		if len(args) != 1 {
			object.Raise(object.TypeError, "dir() expected 1 argument, got %d", len(args))
		}

		names := object.Dir(th, args[0])

		l := object.NewList()
		for _, n := range names {
			l.Items = append(l.Items, n)
		}

		return l
	})

	register("__import__", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		a := object.Args("__import__", args, kw, 1, "name", "globals", "locals", "fromlist", "level")

		name := object.StrArg("__import__", a[0])

		globals, _ := a[1].(*object.Dict)

		var fromlist []string

		if a[3] != nil && a[3] != object.None {
			object.Each(th, a[3], func(v object.Value) bool {
				fromlist = append(fromlist, object.StrArg("__import__", v))

				return true
			})
		}

		level := int64(0)

		if a[4] != nil {
			var ok bool

			level, ok = object.AsIndex(th, a[4])
			if !ok || level < 0 {
				object.Raise(object.ValueError, "level must be >= 0")
			}

			// Deeper levels resolve the same way: beyond any package.
			level = min(level, maxImportLevel)
		}

		if th.Importer == nil {
			object.ImportDenied(name)
		}

		return th.Importer.Import(th, name, fromlist, int(level), globals)
	})
}

// getattrDefault returns default when the attribute is missing. A blocked
// name still raises.
func getattrDefault(th *object.Thread, obj, name, dflt object.Value) (v object.Value) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*object.Exception)
			if ok && e.Matches(object.AttributeError) && !e.Matches(object.AttributeBlocked) {
				v = dflt

				return
			}

			panic(r)
		}
	}()

	return object.GuardedGet(th, obj, name)
}
