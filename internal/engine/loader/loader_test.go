// Released under an MIT license. See LICENSE.

package loader_test

import (
	"bytes"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/michaelmacinnis/enclave/internal/engine/builtins"
	"github.com/michaelmacinnis/enclave/internal/engine/eval"
	"github.com/michaelmacinnis/enclave/internal/engine/gate"
	"github.com/michaelmacinnis/enclave/internal/engine/loader"
	"github.com/michaelmacinnis/enclave/internal/engine/object"
	"github.com/michaelmacinnis/enclave/internal/reader"
)

//nolint:gochecknoglobals
var files = fstest.MapFS{
	"shapes/__init__.py": {Data: []byte("from .square import area\nkind = 'package'\n")},
	"shapes/square.py":   {Data: []byte("from . import units\n\ndef area(n):\n    return n * n * units.scale\n")},
	"shapes/units.py":    {Data: []byte("scale = 1\nprint('units loaded')\n")},
	"greeting.py":        {Data: []byte("def hello(name):\n    return 'hello ' + name\n")},
	"broken.py":          {Data: []byte("def (:\n")},
	"sneaky.py":          {Data: []byte("import os\n")},
	"cycle_a.py":         {Data: []byte("import cycle_b\nvalue = 'a'\n")},
	"cycle_b.py":         {Data: []byte("import cycle_a\nvalue = 'b'\n")},
	"folder/notes.txt":   {Data: []byte("not a module\n")},
}

func run(t *testing.T, src string, relative bool, allowed ...string) (string, *object.Exception) {
	t.Helper()

	m, err := reader.Parse("<test>", strings.TrimLeft(src, "\n"))
	require.NoError(t, err)

	b, err := builtins.New(builtins.Default)
	require.NoError(t, err)

	p, err := gate.NewPolicy(gate.Spec{Allowed: allowed, Relative: relative})
	require.NoError(t, err)

	ev := eval.New()

	out := &bytes.Buffer{}

	th := object.NewThread()
	th.Builtins = b
	th.Stdout = out
	th.Importer = gate.New(p, nil, loader.New(files, ev, b, nil))
	th.Invoker = ev

	defer th.Close()

	globals := object.NewDict()
	globals.SetStr("__name__", "__main__")

	var e *object.Exception

	func() {
		defer func() {
			if r := recover(); r != nil {
				var ok bool

				e, ok = r.(*object.Exception)
				require.True(t, ok, "%v", r)
			}
		}()

		ev.Exec(th, m, "<test>", globals, b)
	}()

	return out.String(), e
}

func TestModule(t *testing.T) {
	out, e := run(t, `
import greeting
print(greeting.hello("world"), greeting.__name__, greeting.__package__)
`, false, "greeting")

	require.Nil(t, e)
	require.Equal(t, "hello world greeting \n", out)
}

func TestPackageWithRelativeImports(t *testing.T) {
	out, e := run(t, `
import shapes
from shapes import square
print(shapes.kind, shapes.area(3), square.__package__)
import shapes.units
print(shapes.units.scale)
`, true, "shapes", "shapes.*")

	require.Nil(t, e)
	require.Equal(t, "units loaded\npackage 9 shapes\n1\n", out)
}

func TestRelativeImportsNeedPermission(t *testing.T) {
	_, e := run(t, "import shapes", false, "shapes", "shapes.*")

	require.NotNil(t, e)
	require.True(t, e.Matches(object.ImportBlocked))
}

func TestModulesAreGated(t *testing.T) {
	_, e := run(t, "import sneaky", false, "sneaky")

	require.NotNil(t, e)
	require.True(t, e.Matches(object.ImportBlocked))
	require.Equal(t, "ImportBlocked: import of 'os' is blocked in this environment", e.Error())

	_, e = run(t, "import greeting", false, "math")

	require.NotNil(t, e)
	require.True(t, e.Matches(object.ImportBlocked))
}

func TestSyntaxError(t *testing.T) {
	_, e := run(t, "import broken", false, "broken")

	require.NotNil(t, e)
	require.True(t, e.Matches(object.SyntaxError))
}

func TestMissing(t *testing.T) {
	for _, name := range []string{"absent", "folder", "folder.notes"} {
		_, e := run(t, "import "+name, false, "*", "folder.*")

		require.NotNil(t, e, name)
		require.True(t, e.Matches(object.ModuleNotFoundError), name)
	}
}

func TestCycle(t *testing.T) {
	out, e := run(t, `
import cycle_a
print(cycle_a.value, cycle_a.cycle_b.value, cycle_a.cycle_b.cycle_a is cycle_a)
`, false, "cycle_a", "cycle_b")

	require.Nil(t, e)
	require.Equal(t, "a b True\n", out)
}

func TestExists(t *testing.T) {
	l := loader.New(files, eval.New(), nil, nil)

	require.True(t, l.Exists("shapes"))
	require.True(t, l.Exists("shapes.square"))
	require.False(t, l.Exists("folder"))
	require.False(t, l.Exists("../greeting"))
	require.False(t, l.Exists(""))

	require.False(t, loader.New(nil, eval.New(), nil, nil).Exists("greeting"))
}
