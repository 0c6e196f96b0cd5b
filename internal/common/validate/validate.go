// Released under an MIT license. See LICENSE.

// Package validate checks the number of arguments passed to host
// functions. Failures panic with an *Error; the object model converts these
// into guest TypeErrors prefixed with the function's name.
package validate

import (
	"fmt"
)

// Error describes an argument count mismatch.
type Error struct {
	Msg string
}

func (e *Error) Error() string {
	return e.Msg
}

// Variadic returns the first max arguments, failing if fewer than min were
// passed, and the remaining arguments.
func Variadic(actual []any, min, max int) ([]any, []any) {
	if len(actual) < min {
		if min == max {
			fail("expected %s, got %d", Count(min, "argument", "s"), len(actual))
		}

		fail("expected at least %s, got %d", Count(min, "argument", "s"), len(actual))
	}

	if len(actual) <= max {
		expected := make([]any, max)
		copy(expected, actual)

		return expected, nil
	}

	return actual[:max], actual[max:]
}

// Fixed returns exactly max arguments, padding optional ones with nil.
func Fixed(actual []any, min, max int) []any {
	expected, rest := Variadic(actual, min, max)
	if len(rest) > 0 {
		if min == max {
			fail("expected %s, got %d", Count(max, "argument", "s"), len(actual))
		}

		fail("expected at most %s, got %d", Count(max, "argument", "s"), len(actual))
	}

	return expected
}

// Count returns n followed by label, pluralized with p unless n is 1.
func Count(n int, label string, p string) string {
	if n == 1 {
		p = ""
	}

	return fmt.Sprintf("%d %s%s", n, label, p)
}

func fail(format string, args ...any) {
	panic(&Error{Msg: fmt.Sprintf(format, args...)})
}
