// Released under an MIT license. See LICENSE.

// Package gate decides which modules guest code may import and resolves
// the imports it allows.
package gate

import (
	"sort"
	"strings"

	"github.com/michaelmacinnis/adapted"
)

// Blocked is the error for a denied import.
type Blocked struct {
	Name string
}

func (e *Blocked) Error() string {
	return "import of '" + e.Name + "' is blocked in this environment"
}

// PatternError reports a malformed glob in an allowlist.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "bad import pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Spec is the serializable form of a Policy.
type Spec struct {
	// Allowed holds dotted module paths or glob patterns.
	Allowed []string `json:"allowed" toml:"allowed" yaml:"allowed"`

	// Submodules maps a module path to the submodules exposed as
	// attributes of that module whenever it is imported.
	Submodules map[string][]string `json:"submodules" toml:"submodules" yaml:"submodules"`

	// Relative permits relative imports between interpreted modules.
	Relative bool `json:"relative" toml:"relative" yaml:"relative"`
}

// Policy is an immutable import allowlist.
type Policy struct {
	exact      map[string]bool
	patterns   []string
	submodules map[string][]string
	relative   bool
}

// Default returns a policy that allows only math.
func Default() *Policy {
	p, _ := NewPolicy(Spec{Allowed: []string{"math"}})

	return p
}

// NewPolicy builds a Policy from s.
func NewPolicy(s Spec) (*Policy, error) {
	p := &Policy{
		exact:      map[string]bool{},
		submodules: map[string][]string{},
		relative:   s.Relative,
	}

	for _, a := range s.Allowed {
		if !glob(a) {
			p.exact[a] = true

			continue
		}

		if _, err := adapted.Match(a, a); err != nil {
			return nil, &PatternError{Pattern: a, Err: err}
		}

		p.patterns = append(p.patterns, a)
	}

	for k, v := range s.Submodules {
		p.submodules[k] = append([]string(nil), v...)
	}

	return p, nil
}

// Allowed returns true if the module called path may be imported.
func (p *Policy) Allowed(path string) bool {
	if p.exact[path] {
		return true
	}

	for _, pattern := range p.patterns {
		if ok, err := adapted.Match(pattern, path); err == nil && ok {
			return true
		}
	}

	return false
}

// Check returns a *Blocked error if path may not be imported.
func (p *Policy) Check(path string) error {
	if !p.Allowed(path) {
		return &Blocked{Name: path}
	}

	return nil
}

// Relative returns true if relative imports are permitted.
func (p *Policy) Relative() bool {
	return p.relative
}

// Submodules returns the submodules exposed on the module called path.
func (p *Policy) Submodules(path string) []string {
	return p.submodules[path]
}

// Spec returns the serializable form of p.
func (p *Policy) Spec() Spec {
	s := Spec{
		Allowed:    make([]string, 0, len(p.exact)+len(p.patterns)),
		Submodules: map[string][]string{},
		Relative:   p.relative,
	}

	for k := range p.exact {
		s.Allowed = append(s.Allowed, k)
	}

	s.Allowed = append(s.Allowed, p.patterns...)
	sort.Strings(s.Allowed)

	for k, v := range p.submodules {
		s.Submodules[k] = append([]string(nil), v...)
	}

	return s
}

func glob(s string) bool {
	return strings.ContainsAny(s, `*?[\`)
}
