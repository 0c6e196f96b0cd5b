// Released under an MIT license. See LICENSE.

package guard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var kinds = []Kind{ //nolint:gochecknoglobals
	Other, Builtin, BuiltinValue, Class, Exception, Frame,
	Function, Generator, Instance, Method, Module, Traceback,
}

// The default table is pinned here; any change to it is a policy change.
func TestDefaultTable(t *testing.T) {
	p := Default()

	require.Equal(t, Version, p.Version())
	require.Equal(t, []string{
		"__base__", "__bases__", "__builtins__", "__closure__", "__code__",
		"__dict__", "__globals__", "__import__", "__loader__", "__mro__",
		"__reduce__", "__reduce_ex__", "__spec__", "__subclasses__",
		"ag_code", "cr_code", "f_back", "f_builtins", "f_code", "f_globals",
		"f_locals", "gi_code", "tb_frame",
	}, p.Blocked())
}

func TestBlockedEverywhere(t *testing.T) {
	p := Default()

	for _, name := range p.Blocked() {
		for _, k := range kinds {
			err := p.Check(k, name)
			require.Error(t, err, "%s on %s", name, k)

			var b *Blocked
			require.True(t, errors.As(err, &b))
			require.Equal(t, name, b.Name)
			require.Equal(t, "attribute access to '"+name+"' is blocked in this environment", err.Error())
		}
	}
}

func TestForeignOnly(t *testing.T) {
	p := Default()

	for _, name := range []string{"__setattr__", "__delattr__", "__getattr__"} {
		for _, k := range kinds {
			require.Equal(t, k.Foreign(), !p.Allowed(k, name), "%s on %s", name, k)
		}
	}

	require.False(t, p.Allowed(Module, "__getattr__"))
	require.False(t, p.Allowed(Frame, "__setattr__"))
	require.True(t, p.Allowed(Instance, "__setattr__"))
}

func TestHostReceiverOnly(t *testing.T) {
	p := Default()

	require.False(t, p.Allowed(Builtin, "__self__"))
	require.False(t, p.Allowed(Module, "__func__"))
	require.True(t, p.Allowed(Method, "__self__"))
	require.True(t, p.Allowed(Method, "__func__"))
}

func TestAllowedPivots(t *testing.T) {
	p := Default()

	for _, name := range []string{
		"tb_next", "__traceback__", "gi_frame", "cr_frame", "ag_frame",
		"__getattribute__", "__class__", "__name__", "f_lineno",
	} {
		for _, k := range kinds {
			require.True(t, p.Allowed(k, name), "%s on %s", name, k)
		}
	}
}

func TestAliases(t *testing.T) {
	s := DefaultSpec()
	s.Blocked = []string{"__loader__"}
	s.Aliases = map[string]string{"vars": "__loader__"}

	p, err := New(s)
	require.NoError(t, err)

	err = p.Check(Module, "vars")
	require.EqualError(t, err, "attribute access to 'vars' is blocked in this environment")
}

func TestVersions(t *testing.T) {
	s := DefaultSpec()

	s.Version = Version + 1
	_, err := New(s)

	var v *VersionError
	require.True(t, errors.As(err, &v))
	require.Equal(t, Version+1, v.Version)

	s.Version = 0
	_, err = New(s)
	require.Error(t, err)
}

func TestSpecRoundTrip(t *testing.T) {
	p := Default()

	q, err := New(p.Spec())
	require.NoError(t, err)
	require.Equal(t, p.Spec(), q.Spec())
}

func TestDefaultSpecIsACopy(t *testing.T) {
	s := DefaultSpec()
	s.Blocked[0] = "changed"
	s.Aliases["x"] = "y"

	require.NotEqual(t, "changed", DefaultSpec().Blocked[0])
	require.NotContains(t, DefaultSpec().Aliases, "x")
}
