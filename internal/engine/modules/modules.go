// Released under an MIT license. See LICENSE.

// Package modules implements the host modules guest code can import when
// an Environment allows them. Each module is built once per process and
// shared, read-only, by every run.
package modules

import (
	"sort"
	"sync"

	"github.com/michaelmacinnis/enclave/internal/engine/object"
)

type builder func() *object.Module

//nolint:gochecknoglobals
var (
	builders = map[string]builder{}

	mu    sync.Mutex
	built = map[string]*object.Module{}
)

func register(name string, b builder) {
	builders[name] = b
}

// T (registry) is the host module source for the import gate.
type T struct{}

type registry = T

// New returns the host module registry.
func New() *registry {
	return &registry{}
}

// Exists returns true if name is a host module.
func (*registry) Exists(name string) bool {
	_, ok := builders[name]

	return ok
}

// Load returns the shared host module called name.
func (*registry) Load(th *object.Thread, name string, _ func(*object.Module)) (*object.Module, bool) {
	b, ok := builders[name]
	if !ok {
		return nil, false
	}

	mu.Lock()
	defer mu.Unlock()

	m, ok := built[name]
	if !ok {
		m = b()
		m.ReadOnly = true
		built[name] = m

		if th != nil && th.Logger != nil {
			th.Logger.Debug("host module built", "module", name)
		}
	}

	return m, true
}

// Names returns the sorted names of the host modules.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func module(name, doc string, fns map[string]object.Native) *object.Module {
	m := object.NewModule(name)
	m.Dict.SetStr("__doc__", doc)

	keys := make([]string, 0, len(fns))
	for k := range fns {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		b := object.NewBuiltin(k, fns[k])
		b.Module = name

		m.Dict.SetStr(k, b)
	}

	return m
}
