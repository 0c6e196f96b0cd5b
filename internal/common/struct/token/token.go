// Released under an MIT license. See LICENSE.

// Package token is shared by the lexer and parser.
package token

import (
	"strconv"
	"unicode"

	"github.com/michaelmacinnis/enclave/internal/common/struct/loc"
)

// Class is a token's type.
type Class rune

// T (token) is a lexical item returned by the scanner.
type T struct {
	class  Class
	source loc.T
	value  string
}

type token = T

// Token classes.
const (
	Error Class = iota

	Bytes Class = unicode.MaxRune + iota
	Dedent
	EOF
	FString
	Indent
	Keyword
	Name
	Newline
	Number
	Operator
	String
)

// New creates a new token.
func New(class Class, value string, source loc.T) *token {
	return &token{
		class:  class,
		source: source,
		value:  value,
	}
}

// String returns a string representation of Class. Useful for debugging.
func (c Class) String() string {
	switch c {
	case Error:
		return "Error"
	case Bytes:
		return "Bytes"
	case Dedent:
		return "Dedent"
	case EOF:
		return "EOF"
	case FString:
		return "FString"
	case Indent:
		return "Indent"
	case Keyword:
		return "Keyword"
	case Name:
		return "Name"
	case Newline:
		return "Newline"
	case Number:
		return "Number"
	case Operator:
		return "Operator"
	case String:
		return "String"
	}

	return strconv.QuoteRune(rune(c))
}

// Class returns the token's class.
func (t *token) Class() Class {
	return t.class
}

// Is returns true if the token t is any of the classes in cs.
func (t *token) Is(cs ...Class) bool {
	if t == nil {
		return false
	}

	for _, c := range cs {
		if t.class == c {
			return true
		}
	}

	return false
}

// Op returns true if t is an operator or delimiter with one of the values vs.
func (t *token) Op(vs ...string) bool {
	return t.Is(Operator) && t.oneOf(vs)
}

// Word returns true if t is a keyword with one of the values vs.
func (t *token) Word(vs ...string) bool {
	return t.Is(Keyword) && t.oneOf(vs)
}

// Source returns the source location for this token.
func (t *token) Source() loc.T {
	return t.source
}

// String returns the token's string representation. Useful for debugging.
func (t *token) String() string {
	return strconv.Quote(t.value) + "(" +
		t.class.String() + "," +
		t.source.String() + ")"
}

// Value returns the token's string value.
func (t *token) Value() string {
	return t.value
}

func (t *token) oneOf(vs []string) bool {
	for _, v := range vs {
		if t.value == v {
			return true
		}
	}

	return false
}
