// Released under an MIT license. See LICENSE.

package modules

import (
	"github.com/michaelmacinnis/enclave/internal/engine/object"
)

// The asyncio module drives coroutines to completion on the calling
// goroutine. There is no event loop and no clock: sleep only yields.
func init() {
	register("asyncio", func() *object.Module {
		return module("asyncio", "Sequential coroutine runner.", map[string]object.Native{
			"gather": gather,
			"run":    run,
			"sleep":  sleep,
		})
	})
}

func run(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	a := object.Args("run", args, kw, 1, "main", "debug")

	c, ok := a[0].(*object.Generator)
	if !ok || c.Kind != object.Coroutine {
		object.Raise(object.ValueError, "a coroutine was expected, got %s", object.Repr(th, a[0]))
	}

	return object.Drive(th, c)
}

func sleep(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	a := object.Args("sleep", args, kw, 1, "delay", "result")

	if _, ok := object.Number(a[0]); !ok {
		object.Raise(object.TypeError, "'%s' object cannot be interpreted as a number", object.TypeName(a[0]))
	}

	result := a[1]
	if result == nil {
		result = object.None
	}

	return object.NewGenerator(object.Coroutine, "sleep", "sleep", nil, func(th *object.Thread, g *object.Generator) object.Value {
		g.Pause(th)

		return result
	})
}

// gather awaits each argument in order and returns their results as a
// list.
func gather(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	exceptions := false

	for _, k := range kw {
		if k.Name != "return_exceptions" {
			object.Raise(object.TypeError, "gather() got an unexpected keyword argument '%s'", k.Name)
		}

		exceptions = object.Truth(th, k.Value)
	}

	aws := append([]object.Value(nil), args...)

	return object.NewGenerator(object.Coroutine, "gather", "gather", nil, func(th *object.Thread, g *object.Generator) object.Value {
		results := object.NewList()

		for _, aw := range aws {
			results.Items = append(results.Items, await(th, g, aw, exceptions))
		}

		return results
	})
}

func await(th *object.Thread, g *object.Generator, aw object.Value, exceptions bool) (v object.Value) {
	if exceptions {
		defer func() {
			if r := recover(); r != nil {
				e, ok := r.(*object.Exception)
				if !ok || !e.Matches(object.ExceptionType) {
					panic(r)
				}

				v = e
			}
		}()
	}

	return g.Await(th, aw)
}
