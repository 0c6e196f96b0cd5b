// Released under an MIT license. See LICENSE.

package enclave_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/michaelmacinnis/enclave/internal/engine/guard"
	"github.com/michaelmacinnis/enclave/internal/system/metrics"
	"github.com/michaelmacinnis/enclave/pkg/enclave"
)

func setup(t *testing.T, o enclave.Options) (*enclave.Environment, *bytes.Buffer) {
	t.Helper()

	out := &bytes.Buffer{}
	o.Stdout = out

	env, err := enclave.MakeDefaultEnv(o)
	require.NoError(t, err)

	return env, out
}

func run(t *testing.T, src string, o enclave.Options) (*enclave.RunResult, string) {
	t.Helper()

	env, out := setup(t, o)

	r := enclave.Run(strings.TrimLeft(src, "\n"), env)
	require.NoError(t, r.Err)

	return r, out.String()
}

func output(t *testing.T, src string, o enclave.Options) string {
	t.Helper()

	r, out := run(t, src, o)
	if r.Exception != nil {
		require.FailNow(t, r.Exception.Formatted)
	}

	return out
}

func TestImportBlocked(t *testing.T) {
	r, _ := run(t, "import os", enclave.Options{})

	require.NotNil(t, r.Exception)
	require.Equal(t, "ImportBlocked", r.Exception.Class)
	require.Equal(t, "os", r.Exception.Name)
	require.Equal(t, "import of 'os' is blocked in this environment", r.Exception.Message)

	_, ok := r.Globals.GetStr("os")
	require.False(t, ok)

	for _, src := range []string{
		"import os.path",
		"from os import path",
		"import os as o",
		"__import__('os')",
		"__import__(name='os')",
		"__import__(**{'name': 'os'})",
	} {
		r, _ := run(t, src, enclave.Options{})

		require.NotNil(t, r.Exception, src)
		require.Equal(t, "ImportBlocked", r.Exception.Class, src)
		require.Equal(t, "os", r.Exception.Name, src)
	}
}

func TestDeepRelativeImportIsBlocked(t *testing.T) {
	r, _ := run(t, "__import__('x', {'__package__': 'a'}, None, [], 1 << 40)", enclave.Options{})

	require.NotNil(t, r.Exception)
	require.Equal(t, "ImportBlocked", r.Exception.Class)

	r, _ = run(t, "__import__('x', {'__package__': 'a'}, None, [], 1 << 40)", enclave.Options{
		AllowedImports:       []string{"*"},
		AllowRelativeImports: true,
	})

	require.NotNil(t, r.Exception)
	require.Equal(t, "ImportError", r.Exception.Class)
}

func TestAllowedModuleMetadataIsBlocked(t *testing.T) {
	out := output(t, `
import math
for name in ["__loader__", "__spec__", "__dict__"]:
    try:
        getattr(math, name)
    except AttributeBlocked as e:
        print(e.name)
print(math.sqrt(4))
`, enclave.Options{})

	require.Equal(t, "__loader__\n__spec__\n__dict__\n2.0\n", out)
}

func TestAccessPatterns(t *testing.T) {
	out := output(t, `
def f():
    pass

class S(str):
    def __str__(self):
        return "visible"

get = object.__getattribute__

forms = [
    lambda n: f.__globals__,
    lambda n: getattr(f, n),
    lambda n: getattr(f, name=n),
    lambda n: getattr(f, **{"name": n}),
    lambda n: type(f).__getattribute__(f, n),
    lambda n: object.__getattribute__(f, n),
    lambda n: get(f, n),
    lambda n: getattr(f, S(n)),
    lambda n: hasattr(f, n),
]

seen = []
for form in forms:
    for attempt in range(2):
        try:
            form("__globals__")
            seen.append("leaked")
        except AttributeBlocked as e:
            seen.append(e.name)

print(len(seen), set(seen))
`, enclave.Options{})

	require.Equal(t, "18 {'__globals__'}\n", out)
}

// getters are the reflective ways to read an attribute of o called n.
//
//nolint:gochecknoglobals
var getters = []string{
	`getattr(o, n)`,
	`getattr(o, name=n)`,
	`getattr(o, **{"name": n})`,
	`getattr(o, S(n))`,
	`getattr(o, n, None)`,
	`hasattr(o, n)`,
	`setattr(o, n, None)`,
	`delattr(o, n)`,
	`type(o).__getattribute__(o, n)`,
	`type(o).__getattribute__(o, name=n)`,
	`type(o).__getattribute__(o, **{"name": n})`,
	`object.__getattribute__(o, n)`,
	`object.__getattribute__(o, name=n)`,
	`object.__getattribute__(o, **{"name": n})`,
	`get(o, n)`,
	`super(type(o), o).__getattribute__(n)`,
	`super(type(o), o).__getattribute__(name=n)`,
	`super(type(o), o).__getattribute__(**{"name": n})`,
}

//nolint:gochecknoglobals
var receivers = []struct {
	name string
	kind guard.Kind
}{
	{"builtin", guard.Builtin},
	{"class", guard.Class},
	{"exception", guard.Exception},
	{"frame", guard.Frame},
	{"function", guard.Function},
	{"generator", guard.Generator},
	{"instance", guard.Instance},
	{"method", guard.Method},
	{"module", guard.Module},
	{"super", guard.Other},
	{"traceback", guard.Traceback},
	{"value", guard.BuiltinValue},
}

const matrixSetup = `
import math

class S(str):
    def __str__(self):
        return "visible"

get = object.__getattribute__

def f():
    pass

class A:
    def m(self):
        pass

a = A()

def g():
    yield 1

gen = g()
next(gen)

try:
    1 / 0
except ZeroDivisionError as exc:
    tb = exc.__traceback__

receivers = {
    "builtin": len,
    "class": A,
    "exception": ValueError("x"),
    "frame": gen.gi_frame,
    "function": f,
    "generator": gen,
    "instance": a,
    "method": a.m,
    "module": math,
    "super": super(A, a),
    "traceback": tb,
    "value": 1,
}

attempts = 0
failures = []

def attempt(label, form, o, n):
    global attempts
    attempts += 1
    try:
        form(o, n)
    except AttributeBlocked as e:
        if e.name != n:
            failures.append((label, n, e.name))
        return
    except Exception as e:
        failures.append((label, n, type(e).__name__))
        return
    failures.append((label, n, "leaked"))

def check(r, n, direct):
    for label, form in forms:
        attempt(r + ": " + label, form, receivers[r], n)
    attempt(r + ": direct", lambda o, n: direct(o), receivers[r], n)
`

// matrix returns a program that tries every name the default policy
// denies on every receiver kind through every access path. It prints the
// number of attempts and the ones that were not blocked.
func matrix(t *testing.T) (string, int) {
	t.Helper()

	p := guard.Default()
	spec := guard.DefaultSpec()

	candidates := map[string]bool{}

	for _, names := range [][]string{spec.Blocked, spec.ForeignOnly, spec.HostReceiverOnly} {
		for _, n := range names {
			candidates[n] = true
		}
	}

	for n := range spec.Aliases {
		candidates[n] = true
	}

	names := make([]string, 0, len(candidates))
	for n := range candidates {
		names = append(names, n)
	}

	sort.Strings(names)

	var b strings.Builder

	b.WriteString(matrixSetup)
	b.WriteString("\nforms = [\n")

	for _, g := range getters {
		fmt.Fprintf(&b, "    (%q, lambda o, n: %s),\n", g, g)
	}

	b.WriteString("]\n\n")

	count := 0

	for _, r := range receivers {
		for _, n := range names {
			if p.Check(r.kind, n) == nil {
				continue
			}

			fmt.Fprintf(&b, "check(%q, %q, lambda o: o.%s)\n", r.name, n, n)

			count += len(getters) + 1
		}
	}

	b.WriteString("\nprint(attempts, failures[:5])\n")

	require.Positive(t, count)

	return b.String(), count
}

func denials() float64 {
	total := 0.0

	for k := guard.Other; k <= guard.Traceback; k++ {
		total += testutil.ToFloat64(metrics.Metrics.AttributeDenials.WithLabelValues(k.String()))
	}

	return total
}

func keys(env *enclave.Environment) []string {
	var ks []string

	for _, k := range env.Globals.Keys() {
		ks = append(ks, fmt.Sprint(k))
	}

	sort.Strings(ks)

	return ks
}

func TestBlockedNamesOnEveryPath(t *testing.T) {
	src, count := matrix(t)

	env, out := setup(t, enclave.Options{AllowedImports: []string{"math"}})

	before := denials()

	r := enclave.Run(src, env)
	require.NoError(t, r.Err)
	require.Nil(t, r.Exception)
	require.Equal(t, fmt.Sprintf("%d []\n", count), out.String())

	first := denials() - before
	require.GreaterOrEqual(t, first, float64(count))

	globals := keys(env)

	out.Reset()

	before = denials()

	r = enclave.Run(src, env)
	require.NoError(t, r.Err)
	require.Nil(t, r.Exception)
	require.Equal(t, fmt.Sprintf("%d []\n", count), out.String())

	require.InDelta(t, first, denials()-before, 0)
	require.Equal(t, globals, keys(env))
}

func TestHierarchyIsBlocked(t *testing.T) {
	r, _ := run(t, `
class A:
    def probe(self):
        return type(self).__getattribute__(self, "__subclasses__")

A().probe()
`, enclave.Options{})

	require.NotNil(t, r.Exception)
	require.Equal(t, "AttributeBlocked", r.Exception.Class)
	require.Equal(t, "__subclasses__", r.Exception.Name)
	require.Equal(t, "attribute access to '__subclasses__' is blocked in this environment", r.Exception.Message)

	r, _ = run(t, `
class Meta(type):
    def __getattribute__(cls, name):
        return type.__getattribute__(cls, name)

class C(metaclass=Meta):
    pass

C.__mro__
`, enclave.Options{})

	require.NotNil(t, r.Exception)
	require.Equal(t, "__mro__", r.Exception.Name)
}

func TestClosureCells(t *testing.T) {
	out := output(t, `
def outer():
    n = 0
    def inc():
        nonlocal n
        n += 1
    def get():
        return n
    return inc, get

i1, g1 = outer()
i2, g2 = outer()
i1()
i1()
i2()
print(g1(), g2())
`, enclave.Options{})

	require.Equal(t, "2 1\n", out)
}

func TestTraceback(t *testing.T) {
	out := output(t, `
def fail():
    raise ValueError("x")
try:
    fail()
except ValueError as e:
    tb = e.__traceback__
    print(tb.tb_lineno, tb.tb_next.tb_lineno, tb.tb_next.tb_next)
    try:
        tb.tb_frame
    except AttributeBlocked as b:
        print("blocked", b.name)
`, enclave.Options{})

	require.Equal(t, "4 2 None\nblocked tb_frame\n", out)
}

func TestUncaughtException(t *testing.T) {
	env, _ := setup(t, enclave.Options{})

	r := enclave.RunFile("script.py", "def f():\n    return 1 / 0\n\nf()\n", env)

	require.NoError(t, r.Err)
	require.NotNil(t, r.Exception)
	require.Equal(t, "ZeroDivisionError", r.Exception.Class)
	require.Equal(t, []string{
		`  File "script.py", line 4, in <module>`,
		`  File "script.py", line 2, in f`,
	}, r.Exception.Traceback)
	require.True(t, strings.HasPrefix(r.Exception.Formatted, "Traceback (most recent call last):\n"))
	require.NotEqual(t, "00000000-0000-0000-0000-000000000000", r.ID.String())
}

func TestPickleRoundTrip(t *testing.T) {
	out := output(t, `
import pickle

def handler(x):
    return x + 1

data = pickle.dumps(handler)
restored = pickle.loads(data)
print(type(data).__name__, restored is handler, restored(1))
`, enclave.Options{AllowedImports: []string{"pickle"}})

	require.Equal(t, "bytes True 2\n", out)
}

func TestRunDoesNotPopulateEnvironment(t *testing.T) {
	env, _ := setup(t, enclave.Options{Builtins: []string{}})

	r := enclave.Run("print('hi')", env)

	require.NotNil(t, r.Exception)
	require.Equal(t, "NameError", r.Exception.Class)

	_, ok := env.Globals.GetStr("__builtins__")
	require.False(t, ok)

	r = enclave.Run("x = 1", &enclave.Environment{})
	require.ErrorIs(t, r.Err, enclave.ErrNoGlobals)
}

func TestValue(t *testing.T) {
	r, _ := run(t, "x = 20\nx * 2 + 2\n", enclave.Options{})

	require.Nil(t, r.Exception)
	require.Equal(t, int64(42), r.Value)
	require.Equal(t, "42", r.Repr)

	v, ok := r.Globals.GetStr("x")
	require.True(t, ok)
	require.Equal(t, int64(20), v)
}

func TestParseError(t *testing.T) {
	env, _ := setup(t, enclave.Options{})

	r := enclave.RunFile("bad.py", "def (:\n", env)

	var pe *enclave.ParseError

	require.True(t, errors.As(r.Err, &pe))
	require.Equal(t, "bad.py", pe.Loc.Name)
	require.Equal(t, 1, pe.Loc.Line)
	require.Nil(t, r.Exception)
}

func TestRecursionLimit(t *testing.T) {
	r, _ := run(t, "def f(n):\n    return f(n + 1)\n\nf(0)\n", enclave.Options{RecursionLimit: 50})

	require.NotNil(t, r.Exception)
	require.Equal(t, "RecursionError", r.Exception.Class)
}

func TestGeneratorsClosedAtEnd(t *testing.T) {
	out := output(t, `
def g():
    try:
        yield 1
        yield 2
    finally:
        print("closed")

it = g()
next(it)
print("end")
`, enclave.Options{})

	require.Equal(t, "end\nclosed\n", out)
}

func TestDeletedGeneratorsCloseAtEnd(t *testing.T) {
	out := output(t, `
def g():
    try:
        yield 1
    finally:
        print("fin")

x = g()
next(x)
del x
print("end")
`, enclave.Options{})

	require.Equal(t, "end\nfin\n", out)
}

func TestModules(t *testing.T) {
	out := output(t, `
from lib import tools
print(tools.double(21))
`, enclave.Options{
		AllowedImports:       []string{"lib", "lib.*"},
		AllowRelativeImports: true,
		Modules: fstest.MapFS{
			"lib/__init__.py": {Data: []byte("")},
			"lib/tools.py":    {Data: []byte("from .base import factor\n\ndef double(n):\n    return n * factor\n")},
			"lib/base.py":     {Data: []byte("factor = 2\n")},
		},
	})

	require.Equal(t, "42\n", out)
}

func TestLoadPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\nimports:\n  allowed: [json]\n"), 0o600))

	p, err := enclave.LoadPolicy(path)
	require.NoError(t, err)

	out := output(t, "import json\nprint(json.dumps([1]))\n", enclave.Options{Policy: p})
	require.Equal(t, "[1]\n", out)

	r, _ := run(t, "import math", enclave.Options{Policy: p})
	require.NotNil(t, r.Exception)
	require.Equal(t, "ImportBlocked", r.Exception.Class)
}

func TestMakeDefaultEnvRejectsUnknownBuiltins(t *testing.T) {
	_, err := enclave.MakeDefaultEnv(enclave.Options{Builtins: []string{"open"}})
	require.Error(t, err)
}

func TestMetrics(t *testing.T) {
	require.NoError(t, enclave.RegisterMetrics(prometheus.NewRegistry()))

	before := testutil.ToFloat64(metrics.Metrics.RunsTotal.WithLabelValues(metrics.Exception))
	denied := testutil.ToFloat64(metrics.Metrics.ImportDenials)

	run(t, "import os", enclave.Options{})

	require.InDelta(t, before+1, testutil.ToFloat64(metrics.Metrics.RunsTotal.WithLabelValues(metrics.Exception)), 0)
	require.InDelta(t, denied+1, testutil.ToFloat64(metrics.Metrics.ImportDenials), 0)
}
