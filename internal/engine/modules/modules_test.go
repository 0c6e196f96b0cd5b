// Released under an MIT license. See LICENSE.

package modules_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"github.com/michaelmacinnis/enclave/internal/engine/builtins"
	"github.com/michaelmacinnis/enclave/internal/engine/eval"
	"github.com/michaelmacinnis/enclave/internal/engine/gate"
	"github.com/michaelmacinnis/enclave/internal/engine/modules"
	"github.com/michaelmacinnis/enclave/internal/engine/object"
	"github.com/michaelmacinnis/enclave/internal/reader"
)

func run(t *testing.T, src string, allowed ...string) (string, *object.Exception) {
	t.Helper()

	m, err := reader.Parse("<test>", strings.TrimLeft(src, "\n"))
	require.NoError(t, err)

	b, err := builtins.New(builtins.Default)
	require.NoError(t, err)

	p, err := gate.NewPolicy(gate.Spec{
		Allowed:    allowed,
		Submodules: map[string][]string{"encoding": {"base64"}},
	})
	require.NoError(t, err)

	main := object.NewModule("__main__")
	main.Dict.SetStr("__name__", "__main__")

	g := gate.New(p, nil, modules.New())
	g.Register("__main__", main)

	out := &bytes.Buffer{}

	th := object.NewThread()
	th.Builtins = b
	th.Stdout = out
	th.Importer = g
	th.Invoker = eval.New()

	defer th.Close()

	var e *object.Exception

	func() {
		defer func() {
			if r := recover(); r != nil {
				var ok bool

				e, ok = r.(*object.Exception)
				require.True(t, ok, "%v", r)
			}
		}()

		eval.New().Exec(th, m, "<test>", main.Dict, b)
	}()

	return out.String(), e
}

func output(t *testing.T, src string, allowed ...string) string {
	t.Helper()

	out, e := run(t, src, allowed...)
	if e != nil {
		require.FailNow(t, e.Error())
	}

	return out
}

func TestNames(t *testing.T) {
	require.Equal(t, []string{
		"asyncio", "encoding", "encoding.base64", "encoding.hex",
		"functools", "itertools", "json", "math", "pickle", "string",
	}, modules.Names())
}

func TestMath(t *testing.T) {
	out := output(t, `
import math
print(math.sqrt(16), math.floor(2.5), math.ceil(2.1))
print(math.gcd(12, 18), math.lcm(4, 6), math.factorial(5), math.comb(5, 2))
print(math.isqrt(17), math.fsum([0.1] * 10), math.prod([1, 2, 3, 4]))
print(math.isclose(1.0, 1.0 + 1e-10), math.isinf(math.inf), math.isnan(math.nan))
try:
    math.sqrt(-1)
except ValueError as e:
    print(e)
`, "math")

	require.Equal(t, "4.0 2 3\n6 12 120 10\n4 1.0 24\nTrue True True\nmath domain error\n", out)
}

func TestHostModulesAreReadOnly(t *testing.T) {
	_, e := run(t, `
import math
math.pi = 3
`, "math")

	require.NotNil(t, e)
	require.True(t, e.Matches(object.AttributeError))
}

func TestJSON(t *testing.T) {
	out := output(t, `
import json
s = json.dumps({"b": [1, 2.5, None], "a": True})
print(s)
print(json.dumps({"b": 1, "a": 2}, sort_keys=True))
d = json.loads('{"x": [1, 2, {"y": null}], "z": "\\u00e9"}')
print(d["x"][2], d["z"], list(d))
try:
    json.loads("{")
except json.JSONDecodeError:
    print("bad")
try:
    json.dumps({1, 2})
except TypeError as e:
    print(e)
`, "json")

	require.Equal(t, `{"b": [1, 2.5, null], "a": true}
{"a": 2, "b": 1}
{'y': None} é ['x', 'z']
bad
Object of type set is not JSON serializable
`, out)
}

func TestString(t *testing.T) {
	out := output(t, `
import string
print(string.ascii_lowercase[:3], string.digits, string.capwords("hello  world"))
`, "string")

	require.Equal(t, "abc 0123456789 Hello World\n", out)
}

func TestFunctools(t *testing.T) {
	out := output(t, `
from functools import reduce, partial, wraps, cache

print(reduce(lambda a, b: a + b, [1, 2, 3], 10))

def power(base, exp):
    return base ** exp

square = partial(power, exp=2)
print(square(7), square(2, exp=3))

def logged(f):
    @wraps(f)
    def inner(*args):
        return f(*args)
    return inner

@logged
def named():
    "Documented."

print(named.__name__, named.__doc__)

calls = []

@cache
def slow(n):
    calls.append(n)
    return n * 2

print(slow(2), slow(2), calls)
`, "functools")

	require.Equal(t, "16\n49 8\nnamed Documented.\n4 4 [2]\n", out)
}

func TestItertools(t *testing.T) {
	out := output(t, `
import itertools as it
print(list(it.islice(it.count(5, 2), 3)))
print(list(it.chain([1], (2, 3))))
print(list(it.product("ab", repeat=2)))
print(list(it.repeat(0, 3)), list(it.accumulate([1, 2, 3])))
print(list(it.islice(range(10), 2, 8, 3)))
`, "itertools")

	require.Equal(t, `[5, 7, 9]
[1, 2, 3]
[('a', 'a'), ('a', 'b'), ('b', 'a'), ('b', 'b')]
[0, 0, 0] [1, 3, 6]
[2, 5]
`, out)
}

func TestAsyncio(t *testing.T) {
	out := output(t, `
import asyncio

async def work(n):
    await asyncio.sleep(0)
    return n * n

async def fail():
    raise ValueError("nope")

async def main():
    a = await work(3)
    rs = await asyncio.gather(work(1), work(2))
    es = await asyncio.gather(fail(), work(4), return_exceptions=True)
    return a, rs, type(es[0]).__name__, es[1]

print(asyncio.run(main()))
`, "asyncio")

	require.Equal(t, "(9, [1, 4], 'ValueError', 16)\n", out)
}

func TestEncoding(t *testing.T) {
	out := output(t, `
import encoding
from encoding import hex
print(encoding.base64.b64encode(b"hi"), encoding.base64.b64decode("aGk="))
print(hex.encode(b"\x01\xff"), hex.decode("01ff"))
`, "encoding", "encoding.hex")

	require.Equal(t, "b'aGk=' b'hi'\n01ff b'\\x01\\xff'\n", out)
}

func TestSubmoduleNotAllowed(t *testing.T) {
	_, e := run(t, "import encoding.hex", "encoding")

	require.NotNil(t, e)
	require.True(t, e.Matches(object.ImportBlocked))
}

func TestPickleData(t *testing.T) {
	out := output(t, `
import pickle
v = [None, True, 1, 2.5, "s", b"b", (1, 2), {"k": [3]}, {4}, frozenset([5])]
w = pickle.loads(pickle.dumps(v))
print(w == v, type(w[6]).__name__, type(w[9]).__name__)
`, "pickle")

	require.Equal(t, "True tuple frozenset\n", out)
}

func TestPickleGlobals(t *testing.T) {
	out := output(t, `
import pickle
import math

def handler():
    return "handled"

class Point:
    pass

f = pickle.loads(pickle.dumps(handler))
print(f is handler, f())
print(pickle.loads(pickle.dumps(Point)) is Point)
print(pickle.loads(pickle.dumps(len)) is len)
print(pickle.loads(pickle.dumps(math.sqrt))(9))
`, "pickle", "math")

	require.Equal(t, "True handled\nTrue\nTrue\n3.0\n", out)
}

func TestPickleFailures(t *testing.T) {
	out := output(t, `
import pickle

def outer():
    def inner():
        pass
    return inner

for v in [outer(), object(), lambda: 0]:
    try:
        pickle.dumps(v)
    except pickle.PicklingError:
        print("refused")

l = []
l.append(l)
try:
    pickle.dumps(l)
except pickle.PicklingError as e:
    print(e)
`, "pickle")

	require.Equal(t, "refused\nrefused\nrefused\ncannot pickle recursive list object\n", out)
}

// literal encodes a global reference the way pickle.dumps would, as a guest
// bytes literal.
func literal(t *testing.T, module, qualname string) string {
	t.Helper()

	data, err := cbor.Marshal(cbor.Tag{Number: 27005, Content: []any{module, qualname}})
	require.NoError(t, err)

	var b strings.Builder

	b.WriteString("b'")

	for _, c := range data {
		fmt.Fprintf(&b, "\\x%02x", c)
	}

	b.WriteString("'")

	return b.String()
}

func TestPickleGlobalsAreGuarded(t *testing.T) {
	out := output(t, fmt.Sprintf(`
import pickle

def f():
    pass

print(pickle.loads(%s) is len)

for blob in [%s, %s, %s, %s]:
    try:
        pickle.loads(blob)
        print("leaked")
    except AttributeBlocked as e:
        print("blocked", e.name)
`,
		literal(t, "builtins", "len"),
		literal(t, "builtins", "int.__mro__"),
		literal(t, "builtins", "int.__subclasses__"),
		literal(t, "__main__", "f.__globals__"),
		literal(t, "math", "__loader__"),
	), "pickle", "math")

	require.Equal(t, strings.Join([]string{
		"True",
		"blocked __mro__",
		"blocked __subclasses__",
		"blocked __globals__",
		"blocked __loader__",
	}, "\n")+"\n", out)
}
