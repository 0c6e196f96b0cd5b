// Released under an MIT license. See LICENSE.

package gate

import (
	"log/slog"
	"strings"

	"github.com/michaelmacinnis/enclave/internal/engine/object"
)

// Source supplies modules. Host module registries and the interpreted
// source loader are sources.
type Source interface {
	// Exists returns true if the source can load the module called name.
	Exists(name string) bool

	// Load creates the module called name. It passes the module to
	// register before running any code that could import it again.
	Load(th *object.Thread, name string, register func(*object.Module)) (*object.Module, bool)
}

// T (importer) resolves the imports of one Environment. It implements
// object.Importer.
type T struct {
	// Denied, if set, is called before ImportBlocked is raised.
	Denied func(name string)

	logger  *slog.Logger
	modules map[string]*object.Module
	policy  *Policy
	sources []Source
}

type importer = T

// New creates an importer that gates imports with p and loads modules
// from sources, first match wins.
func New(p *Policy, logger *slog.Logger, sources ...Source) *importer {
	if p == nil {
		p = Default()
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &importer{
		logger:  logger,
		modules: map[string]*object.Module{},
		policy:  p,
		sources: sources,
	}
}

// Policy returns the allowlist used by i.
func (i *importer) Policy() *Policy {
	return i.policy
}

// Register makes m known under name without going through the allowlist.
// A run registers its main module this way so that objects defined in it
// can be found by name.
func (i *importer) Register(name string, m *object.Module) {
	i.modules[name] = m
}

// Loaded returns the module called name if it has already been loaded.
func (i *importer) Loaded(name string) (*object.Module, bool) {
	m, ok := i.modules[name]

	return m, ok
}

// Import implements object.Importer. A nil fromlist is the plain form
// "import a.b.c", which binds the top-level package. An empty fromlist is
// "import a.b.c as x". Otherwise, it is "from a.b import c".
func (i *importer) Import(th *object.Thread, name string, fromlist []string, level int, globals *object.Dict) object.Value {
	if level > 0 {
		name = i.absolute(name, level, globals)
	}

	if fromlist == nil {
		return i.chain(th, name)
	}

	i.check(name)

	m := i.module(th, name)

	for _, attr := range fromlist {
		if attr == "*" {
			continue
		}

		if _, ok := m.Dict.GetStr(attr); ok {
			continue
		}

		sub := name + "." + attr
		if !i.exists(sub) {
			continue
		}

		i.check(sub)
		i.bind(m, attr, i.module(th, sub))
	}

	return m
}

// absolute resolves a relative import against the package of the
// importing module.
func (i *importer) absolute(name string, level int, globals *object.Dict) string {
	if !i.policy.Relative() {
		i.deny(relative(name, level))
	}

	pkg := ""

	if globals != nil {
		if v, ok := globals.GetStr("__package__"); ok {
			pkg, _ = v.(string)
		}
	}

	if pkg == "" {
		object.Raise(object.ImportError, "attempted relative import with no known parent package")
	}

	parts := strings.Split(pkg, ".")
	if level > len(parts) {
		object.Raise(object.ImportError, "attempted relative import beyond top-level package")
	}

	base := strings.Join(parts[:len(parts)-level+1], ".")
	if name == "" {
		return base
	}

	return base + "." + name
}

// maxDots is the longest run of leading dots written when naming a
// relative import.
const maxDots = 8

// relative names the relative import of name at level for messages.
func relative(name string, level int) string {
	if level > maxDots {
		return strings.Repeat(".", maxDots) + "..." + name
	}

	return strings.Repeat(".", level) + name
}

// chain imports every package on the way to name and returns the first.
// Each one must be allowed.
func (i *importer) chain(th *object.Thread, name string) object.Value {
	parts := strings.Split(name, ".")

	for n := range parts {
		i.check(strings.Join(parts[:n+1], "."))
	}

	var top, parent *object.Module

	for n, part := range parts {
		m := i.module(th, strings.Join(parts[:n+1], "."))

		if parent != nil {
			i.bind(parent, part, m)
		} else {
			top = m
		}

		parent = m
	}

	return top
}

func (i *importer) check(name string) {
	if i.policy.Check(name) != nil {
		i.deny(name)
	}
}

func (i *importer) deny(name string) {
	if i.Denied != nil {
		i.Denied(name)
	}

	i.logger.Debug("import blocked", "module", name)

	object.ImportDenied(name)
}

func (i *importer) exists(name string) bool {
	if _, ok := i.modules[name]; ok {
		return true
	}

	for _, s := range i.sources {
		if s.Exists(name) {
			return true
		}
	}

	return false
}

// module returns the module called name, loading it on first use. It does
// not consult the allowlist.
func (i *importer) module(th *object.Thread, name string) *object.Module {
	if m, ok := i.modules[name]; ok {
		return m
	}

	for _, s := range i.sources {
		if !s.Exists(name) {
			continue
		}

		m := i.load(th, s, name)
		i.expose(th, name, m)

		return m
	}

	e := object.NewException(object.ModuleNotFoundError, "No module named '"+name+"'")
	e.Dict.SetStr("name", name)

	panic(e)
}

func (i *importer) load(th *object.Thread, s Source, name string) (m *object.Module) {
	defer func() {
		if r := recover(); r != nil {
			delete(i.modules, name)

			panic(r)
		}
	}()

	m, ok := s.Load(th, name, func(m *object.Module) {
		i.modules[name] = m
	})
	if !ok {
		object.Raise(object.ModuleNotFoundError, "No module named '%s'", name)
	}

	if m.ReadOnly {
		m = restrict(m)
	}

	i.modules[name] = m

	return m
}

// expose binds the submodules the policy exposes on the module called
// name.
func (i *importer) expose(th *object.Thread, name string, m *object.Module) {
	for _, sub := range i.policy.Submodules(name) {
		i.bind(m, sub, i.module(th, name+"."+sub))
	}
}

func (i *importer) bind(parent *object.Module, name string, child *object.Module) {
	parent.Dict.SetStr(name, child)
}

// restrict returns a read-only proxy for the host module m that holds
// only its public members.
func restrict(m *object.Module) *object.Module {
	p := &object.Module{Name: m.Name, Dict: object.NewDict(), ReadOnly: true}

	for _, item := range m.Dict.Items() {
		k, ok := item.Key.(string)
		if !ok {
			continue
		}

		if strings.HasPrefix(k, "_") && k != "__name__" && k != "__doc__" {
			continue
		}

		p.Dict.SetStr(k, item.Value)
	}

	return p
}
