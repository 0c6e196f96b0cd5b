// Released under an MIT license. See LICENSE.

// Package reader turns source text into analyzed syntax trees.
package reader

import (
	"strings"

	"github.com/michaelmacinnis/enclave/internal/reader/ast"
	"github.com/michaelmacinnis/enclave/internal/reader/lexer"
	"github.com/michaelmacinnis/enclave/internal/reader/parser"
	"github.com/michaelmacinnis/enclave/internal/reader/symtab"
	"github.com/michaelmacinnis/enclave/internal/system/cache"
)

// Parse lexes, parses and analyzes text. Trees are shared between callers
// that parse identical text under the same label and must not be modified.
func Parse(label, text string) (*ast.Module, error) {
	k := cache.Digest("module", label, text)

	if v, ok := cache.Lookup(k); ok {
		return v.(*ast.Module), nil
	}

	m, err := parser.New(lexer.New(label, text).Token).Parse()
	if err != nil {
		return nil, err
	}

	err = symtab.Analyze(m)
	if err != nil {
		return nil, err
	}

	cache.Store(k, m)

	return m, nil
}

// T (reader) accumulates lines of interactive input until they form a
// complete module.
type T struct {
	label string
	lines []string
	text  string
}

type reader = T

// New creates a new reader for label.
func New(label string) *T {
	return &T{label: label}
}

// Pending returns true if the reader holds an incomplete unit.
func (r *reader) Pending() bool {
	return len(r.lines) > 0
}

// Reset discards any accumulated input.
func (r *reader) Reset() {
	r.lines = nil
}

// Scan adds line to the accumulated input. It returns a module when the
// input is complete, nil when more input is needed, or an error. A unit that
// opens an indented block is only complete once a blank line is entered.
func (r *reader) Scan(line string) (*ast.Module, error) {
	line = strings.TrimRight(line, "\r\n")

	if len(r.lines) == 0 && strings.TrimSpace(line) == "" {
		return nil, nil
	}

	r.lines = append(r.lines, line)

	text := strings.Join(r.lines, "\n") + "\n"

	m, err := Parse(r.label, text)
	if err != nil {
		if e, ok := err.(*parser.Error); ok && e.Incomplete {
			return nil, nil
		}

		r.lines = nil

		return nil, err
	}

	if r.block() && strings.TrimSpace(line) != "" {
		return nil, nil
	}

	r.lines = nil
	r.text = text

	return m, nil
}

// Text returns the source of the last complete unit.
func (r *reader) Text() string {
	return r.text
}

func (r *reader) block() bool {
	for _, l := range r.lines[1:] {
		if l != "" && (l[0] == ' ' || l[0] == '\t') {
			return true
		}
	}

	return strings.HasSuffix(strings.TrimSpace(r.lines[0]), ":")
}
