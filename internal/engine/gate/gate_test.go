// Released under an MIT license. See LICENSE.

package gate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/michaelmacinnis/enclave/internal/engine/object"
)

type source map[string]bool

func (s source) Exists(name string) bool {
	_, ok := s[name]

	return ok
}

func (s source) Load(_ *object.Thread, name string, register func(*object.Module)) (*object.Module, bool) {
	readOnly, ok := s[name]
	if !ok {
		return nil, false
	}

	m := object.NewModule(name)
	m.Dict.SetStr("__name__", name)
	m.Dict.SetStr("_private", int64(1))
	m.Dict.SetStr("public", int64(2))
	m.ReadOnly = readOnly

	register(m)

	return m, true
}

func setup(t *testing.T, s Spec) *importer {
	t.Helper()

	p, err := NewPolicy(s)
	require.NoError(t, err)

	return New(p, nil, source{
		"a": false, "a.b": false, "a.b.c": false,
		"host": true, "host.sub": true,
		"pkg": false, "pkg.mod": false,
	})
}

func raises(t *testing.T, c *object.Class, f func()) *object.Exception {
	t.Helper()

	var e *object.Exception

	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r)

			var ok bool

			e, ok = r.(*object.Exception)
			require.True(t, ok, "%v", r)
		}()

		f()
	}()

	require.True(t, e.Matches(c), e.Error())

	return e
}

func TestPolicy(t *testing.T) {
	p, err := NewPolicy(Spec{Allowed: []string{"math", "encoding.*", "pkg?"}})
	require.NoError(t, err)

	for path, allowed := range map[string]bool{
		"math":          true,
		"math.extra":    false,
		"encoding.hex":  true,
		"encoding":      false,
		"pkg1":          true,
		"pkg":           false,
		"os":            false,
		"os.path":       false,
		"mathematics":   false,
		"encoding.b64x": true,
	} {
		require.Equal(t, allowed, p.Allowed(path), path)
	}

	var b *Blocked

	require.True(t, errors.As(p.Check("os"), &b))
	require.Equal(t, "os", b.Name)
	require.Equal(t, "import of 'os' is blocked in this environment", b.Error())
	require.NoError(t, p.Check("math"))
}

func TestPolicyRejectsBadPattern(t *testing.T) {
	_, err := NewPolicy(Spec{Allowed: []string{"mod["}})

	var pe *PatternError

	require.True(t, errors.As(err, &pe))
	require.Equal(t, "mod[", pe.Pattern)
}

func TestPolicySpec(t *testing.T) {
	s := Spec{
		Allowed:    []string{"b", "a", "c.*"},
		Submodules: map[string][]string{"a": {"x"}},
		Relative:   true,
	}

	p, err := NewPolicy(s)
	require.NoError(t, err)

	require.Equal(t, Spec{
		Allowed:    []string{"a", "b", "c.*"},
		Submodules: map[string][]string{"a": {"x"}},
		Relative:   true,
	}, p.Spec())
	require.Equal(t, []string{"x"}, p.Submodules("a"))
	require.True(t, p.Relative())
}

func TestDefault(t *testing.T) {
	p := Default()

	require.True(t, p.Allowed("math"))
	require.False(t, p.Allowed("json"))
	require.False(t, p.Relative())
}

func TestImportChain(t *testing.T) {
	th := object.NewThread()

	i := setup(t, Spec{Allowed: []string{"a", "a.b", "a.b.c"}})

	top := i.Import(th, "a.b.c", nil, 0, nil)
	a, ok := i.Loaded("a")
	require.True(t, ok)
	require.Same(t, a, top)

	b, ok := a.Dict.GetStr("b")
	require.True(t, ok)

	c, ok := b.(*object.Module).Dict.GetStr("c")
	require.True(t, ok)
	require.Equal(t, "a.b.c", c.(*object.Module).Name)

	leaf := i.Import(th, "a.b.c", []string{}, 0, nil)
	require.Same(t, c, leaf)
}

func TestImportChainChecksAncestors(t *testing.T) {
	th := object.NewThread()

	i := setup(t, Spec{Allowed: []string{"a.b.c"}})

	e := raises(t, object.ImportBlocked, func() {
		i.Import(th, "a.b.c", nil, 0, nil)
	})
	require.Equal(t, "ImportBlocked: import of 'a' is blocked in this environment", e.Error())

	_, ok := i.Loaded("a.b.c")
	require.False(t, ok)

	m := i.Import(th, "a.b.c", []string{}, 0, nil)
	require.Equal(t, "a.b.c", m.(*object.Module).Name)
}

func TestImportFromSubmodule(t *testing.T) {
	th := object.NewThread()

	i := setup(t, Spec{Allowed: []string{"a", "a.b"}})

	m := i.Import(th, "a", []string{"b", "missing"}, 0, nil).(*object.Module)

	b, ok := m.Dict.GetStr("b")
	require.True(t, ok)
	require.Equal(t, "a.b", b.(*object.Module).Name)

	_, ok = m.Dict.GetStr("missing")
	require.False(t, ok)

	raises(t, object.ImportBlocked, func() {
		i.Import(th, "a.b", []string{"c"}, 0, nil)
	})
}

func TestDenied(t *testing.T) {
	th := object.NewThread()

	i := setup(t, Spec{Allowed: []string{"a"}})

	var denied []string

	i.Denied = func(name string) {
		denied = append(denied, name)
	}

	for range 2 {
		raises(t, object.ImportBlocked, func() {
			i.Import(th, "os", []string{"path"}, 0, nil)
		})
	}

	require.Equal(t, []string{"os", "os"}, denied)
}

func TestMissingModule(t *testing.T) {
	th := object.NewThread()

	i := setup(t, Spec{Allowed: []string{"*"}})

	e := raises(t, object.ModuleNotFoundError, func() {
		i.Import(th, "nowhere", []string{}, 0, nil)
	})

	name, ok := e.Dict.GetStr("name")
	require.True(t, ok)
	require.Equal(t, "nowhere", name)
}

func TestRestrictedProxy(t *testing.T) {
	th := object.NewThread()

	i := setup(t, Spec{
		Allowed:    []string{"host"},
		Submodules: map[string][]string{"host": {"sub"}},
	})

	m := i.Import(th, "host", []string{}, 0, nil).(*object.Module)
	require.True(t, m.ReadOnly)

	_, ok := m.Dict.GetStr("_private")
	require.False(t, ok)

	v, ok := m.Dict.GetStr("public")
	require.True(t, ok)
	require.Equal(t, int64(2), v)

	sub, ok := m.Dict.GetStr("sub")
	require.True(t, ok)
	require.Equal(t, "host.sub", sub.(*object.Module).Name)

	require.Same(t, m, i.Import(th, "host", []string{}, 0, nil))
}

func TestRelativeImports(t *testing.T) {
	th := object.NewThread()

	globals := object.NewDict()
	globals.SetStr("__package__", "pkg")

	i := setup(t, Spec{Allowed: []string{"pkg", "pkg.mod"}})

	raises(t, object.ImportBlocked, func() {
		i.Import(th, "mod", []string{"public"}, 1, globals)
	})

	i = setup(t, Spec{Allowed: []string{"pkg", "pkg.mod"}, Relative: true})

	m := i.Import(th, "mod", []string{"public"}, 1, globals).(*object.Module)
	require.Equal(t, "pkg.mod", m.Name)

	p := i.Import(th, "", []string{"mod"}, 1, globals).(*object.Module)
	require.Equal(t, "pkg", p.Name)

	e := raises(t, object.ImportError, func() {
		i.Import(th, "x", []string{"y"}, 2, globals)
	})
	require.Equal(t, "ImportError: attempted relative import beyond top-level package", e.Error())

	raises(t, object.ImportError, func() {
		i.Import(th, "x", []string{"y"}, 1, object.NewDict())
	})
}

func TestDeepRelativeImport(t *testing.T) {
	th := object.NewThread()

	globals := object.NewDict()
	globals.SetStr("__package__", "pkg")

	i := setup(t, Spec{Allowed: []string{"*"}})

	e := raises(t, object.ImportBlocked, func() {
		i.Import(th, "x", []string{}, 1<<40, globals)
	})

	name, ok := e.Dict.GetStr("name")
	require.True(t, ok)
	require.Equal(t, "...........x", name)

	i = setup(t, Spec{Allowed: []string{"*"}, Relative: true})

	raises(t, object.ImportError, func() {
		i.Import(th, "x", []string{}, 1<<40, globals)
	})
}

func TestRegister(t *testing.T) {
	i := setup(t, Spec{})

	main := object.NewModule("__main__")
	i.Register("__main__", main)

	m, ok := i.Loaded("__main__")
	require.True(t, ok)
	require.Same(t, main, m)
}
