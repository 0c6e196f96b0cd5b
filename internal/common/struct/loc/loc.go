// Released under an MIT license. See LICENSE.

// Package loc provides the type used to track the source of tokens and
// syntax nodes. The evaluator also uses it to report where guest code was
// executing when an exception was raised.
package loc

import (
	"strconv"
)

// T (loc) is a lexical location.
type T struct {
	Char int    // Character position (column).
	Line int    // Line number (row).
	Name string // Label for the source of this token, usually a file name.
}

type loc = T

// Before returns true if l comes before o in the same source.
func (l loc) Before(o loc) bool {
	return l.Line < o.Line || (l.Line == o.Line && l.Char < o.Char)
}

func (l loc) String() string {
	return l.Name + ":" + strconv.Itoa(l.Line) + ":" + strconv.Itoa(l.Char)
}
