// Released under an MIT license. See LICENSE.

// Package guard holds the attribute access policy. A Policy is immutable
// once built and answers one question: may an object of a given kind
// expose an attribute with a given canonical name?
package guard

import (
	"sort"
	"strconv"
)

// Kind classifies the receiver of an attribute operation.
type Kind int

// Receiver kinds.
const (
	Other Kind = iota
	Builtin
	BuiltinValue
	Class
	Exception
	Frame
	Function
	Generator
	Instance
	Method
	Module
	Traceback
)

func (k Kind) String() string {
	switch k {
	case Builtin:
		return "builtin"
	case BuiltinValue:
		return "builtin value"
	case Class:
		return "class"
	case Exception:
		return "exception"
	case Frame:
		return "frame"
	case Function:
		return "function"
	case Generator:
		return "generator"
	case Instance:
		return "instance"
	case Method:
		return "method"
	case Module:
		return "module"
	case Traceback:
		return "traceback"
	case Other:
	}

	return "other"
}

// Foreign returns true for kinds whose attribute surface is implemented by
// the host rather than by guest code.
func (k Kind) Foreign() bool {
	switch k {
	case Builtin, BuiltinValue, Frame, Generator, Module, Traceback:
		return true
	case Other, Class, Exception, Function, Instance, Method:
	}

	return false
}

// Host returns true for kinds that stand for host capabilities.
func (k Kind) Host() bool {
	return k == Builtin || k == Module
}

// Version is the version of the default policy and the newest policy
// document format this package understands.
const Version = 1

// Blocked is the error for a denied attribute operation. It carries only
// the attempted name.
type Blocked struct {
	Name string
}

func (e *Blocked) Error() string {
	return "attribute access to '" + e.Name + "' is blocked in this environment"
}

// Policy is an immutable attribute access policy.
type Policy struct {
	version int

	blocked     map[string]bool
	aliases     map[string]string
	foreignOnly map[string]bool
	hostOnly    map[string]bool
}

// Spec is the serializable form of a Policy.
type Spec struct {
	Version          int               `json:"version"            toml:"version"            yaml:"version"`
	Blocked          []string          `json:"blocked"            toml:"blocked"            yaml:"blocked"`
	Aliases          map[string]string `json:"aliases"            toml:"aliases"            yaml:"aliases"`
	ForeignOnly      []string          `json:"foreign_only"       toml:"foreign_only"       yaml:"foreign_only"`
	HostReceiverOnly []string          `json:"host_receiver_only" toml:"host_receiver_only" yaml:"host_receiver_only"`
}

//nolint:gochecknoglobals
var defaults = Spec{
	Version: Version,
	Blocked: []string{
		// Hierarchy navigation.
		"__base__", "__bases__", "__mro__", "__subclasses__",

		// Frame internals.
		"f_back", "f_builtins", "f_code", "f_globals", "f_locals",
		"tb_frame",

		// Function internals.
		"__builtins__", "__closure__", "__code__", "__globals__",

		// Generator and coroutine code objects.
		"ag_code", "cr_code", "gi_code",

		// Reduction hooks.
		"__reduce__", "__reduce_ex__",

		// Import metadata.
		"__dict__", "__import__", "__loader__", "__spec__",
	},
	Aliases: map[string]string{
		"__dict__": "__loader__",
	},
	ForeignOnly:      []string{"__delattr__", "__getattr__", "__setattr__"},
	HostReceiverOnly: []string{"__func__", "__self__"},
}

// Default returns the built-in policy.
func Default() *Policy {
	p, _ := New(defaults)

	return p
}

// DefaultSpec returns a copy of the built-in policy's serializable form.
func DefaultSpec() Spec {
	s := Spec{
		Version:          defaults.Version,
		Blocked:          append([]string(nil), defaults.Blocked...),
		Aliases:          map[string]string{},
		ForeignOnly:      append([]string(nil), defaults.ForeignOnly...),
		HostReceiverOnly: append([]string(nil), defaults.HostReceiverOnly...),
	}

	for k, v := range defaults.Aliases {
		s.Aliases[k] = v
	}

	return s
}

// New builds a Policy from s.
func New(s Spec) (*Policy, error) {
	if s.Version < 1 || s.Version > Version {
		return nil, &VersionError{Version: s.Version}
	}

	p := &Policy{
		version:     s.Version,
		blocked:     set(s.Blocked),
		aliases:     map[string]string{},
		foreignOnly: set(s.ForeignOnly),
		hostOnly:    set(s.HostReceiverOnly),
	}

	for k, v := range s.Aliases {
		p.aliases[k] = v
	}

	return p, nil
}

// VersionError reports a policy document this package cannot read.
type VersionError struct {
	Version int
}

func (e *VersionError) Error() string {
	return "unsupported policy version " + strconv.Itoa(e.Version)
}

// Version returns the policy's version.
func (p *Policy) Version() int {
	return p.version
}

// Check returns a *Blocked error if an object of kind k may not expose the
// attribute called name. Name must already be canonical.
func (p *Policy) Check(k Kind, name string) error {
	if p.denies(k, name) {
		return &Blocked{Name: name}
	}

	if alias, ok := p.aliases[name]; ok && p.denies(k, alias) {
		return &Blocked{Name: name}
	}

	return nil
}

// Allowed returns true if Check would succeed.
func (p *Policy) Allowed(k Kind, name string) bool {
	return p.Check(k, name) == nil
}

// Blocked returns the sorted list of universally blocked names.
func (p *Policy) Blocked() []string {
	return keys(p.blocked)
}

// Spec returns the serializable form of p.
func (p *Policy) Spec() Spec {
	s := Spec{
		Version:          p.version,
		Blocked:          keys(p.blocked),
		Aliases:          map[string]string{},
		ForeignOnly:      keys(p.foreignOnly),
		HostReceiverOnly: keys(p.hostOnly),
	}

	for k, v := range p.aliases {
		s.Aliases[k] = v
	}

	return s
}

func (p *Policy) denies(k Kind, name string) bool {
	switch {
	case p.blocked[name]:
		return true
	case p.foreignOnly[name]:
		return k.Foreign()
	case p.hostOnly[name]:
		return k.Host()
	}

	return false
}

func keys(m map[string]bool) []string {
	s := make([]string, 0, len(m))
	for k := range m {
		s = append(s, k)
	}

	sort.Strings(s)

	return s
}

func set(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}

	return m
}
