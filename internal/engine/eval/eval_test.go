// Released under an MIT license. See LICENSE.

package eval

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/michaelmacinnis/enclave/internal/engine/builtins"
	"github.com/michaelmacinnis/enclave/internal/engine/object"
	"github.com/michaelmacinnis/enclave/internal/reader"
)

type modules map[string]*object.Module

func (m modules) Import(th *object.Thread, name string, fromlist []string, level int, globals *object.Dict) object.Value {
	if mod, ok := m[name]; ok {
		return mod
	}

	object.Raise(object.ModuleNotFoundError, "No module named '%s'", name)

	return nil
}

func mathModule() *object.Module {
	m := object.NewModule("math")
	m.Dict.SetStr("sqrt", object.NewBuiltin("sqrt", func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		return math.Sqrt(object.ToFloat(th, args[0]))
	}))

	return m
}

type result struct {
	globals *object.Dict
	out     string
	err     *object.Exception
}

func execute(t *testing.T, src string) result {
	t.Helper()

	m, err := reader.Parse("<test>", strings.TrimLeft(src, "\n"))
	require.NoError(t, err)

	b, err := builtins.New(builtins.Default)
	require.NoError(t, err)

	out := &bytes.Buffer{}

	th := object.NewThread()
	th.Builtins = b
	th.Stdout = out
	th.Importer = modules{"math": mathModule()}
	th.Invoker = New()

	defer th.Close()

	globals := object.NewDict()
	globals.SetStr("__name__", "__main__")

	r := result{globals: globals}

	func() {
		defer func() {
			if v := recover(); v != nil {
				e, ok := v.(*object.Exception)
				require.True(t, ok, "%v", v)

				r.err = e
			}
		}()

		New().Exec(th, m, "<test>", globals, b)
	}()

	r.out = out.String()

	return r
}

func run(t *testing.T, src string) string {
	t.Helper()

	r := execute(t, src)
	if r.err != nil {
		require.FailNow(t, "unexpected exception", "%s", r.err.Error())
	}

	return r.out
}

func fails(t *testing.T, c *object.Class, src string) *object.Exception {
	t.Helper()

	r := execute(t, src)
	require.NotNil(t, r.err, "expected %s", c.Name)
	require.True(t, r.err.Matches(c), "got %s", r.err.Error())

	return r.err
}

func TestKitchenSink(t *testing.T) {
	out := run(t, `
import math

def make_counter(start):
    value = start
    def inc(step=1):
        nonlocal value
        value = value + step
        return value
    return inc

counter = make_counter(10)
print([counter(), counter(2), counter()])

class Box:
    factor = 3
    def __init__(self, value):
        self.value = value
    def scaled(self):
        return self.value * self.factor

print(Box(7).scaled())

class TraceCtx:
    def __init__(self, trace):
        self.trace = trace
    def __enter__(self):
        self.trace.append("enter")
        return 7
    def __exit__(self, exc_type, exc, tb):
        self.trace.append("exit")
        return False

trace = []
with TraceCtx(trace) as token:
    total = token + 5
print(trace, total)

print([(i, j) for i in range(4) if i % 2 == 0 for j in range(3) if j > 0])
print({i: i * i for i in range(5) if i != 3})
print(sorted({i % 3 for i in range(10)}))
print(list(i + 100 for i in range(4)))

loop_total = 0
for n in range(6):
    if n == 1:
        continue
    if n == 5:
        break
    loop_total += n
else:
    loop_total = -1
print(loop_total)

tmp = 99
def read_tmp():
    return tmp
del tmp
try:
    read_tmp()
except Exception as e:
    print(type(e).__name__)

try:
    1 / 0
except Exception as e:
    print(type(e).__name__)
finally:
    print("finally")

def counting(n):
    i = 0
    while i < n:
        yield i
        i = i + 1
    return "done"

def cascade(n):
    marker = yield from counting(n)
    yield marker

print(list(cascade(3)))
print(math.sqrt(81))
`)

	require.Equal(t, strings.Join([]string{
		"[11, 13, 14]",
		"21",
		"['enter', 'exit'] 12",
		"[(0, 1), (0, 2), (2, 1), (2, 2)]",
		"{0: 0, 1: 1, 2: 4, 4: 16}",
		"[0, 1, 2]",
		"[100, 101, 102, 103]",
		"9",
		"NameError",
		"ZeroDivisionError",
		"finally",
		"[0, 1, 2, 'done']",
		"9.0",
	}, "\n")+"\n", out)
}

func TestLastExpressionValue(t *testing.T) {
	m, err := reader.Parse("<test>", "x = 2\nx * 21\n")
	require.NoError(t, err)

	b, err := builtins.New(nil)
	require.NoError(t, err)

	th := object.NewThread()
	th.Builtins = b
	th.Invoker = New()

	require.Equal(t, int64(42), New().Exec(th, m, "<test>", object.NewDict(), b))
}

func TestClosuresShareCells(t *testing.T) {
	out := run(t, `
def outer():
    x = 0
    def get():
        return x
    def inc():
        nonlocal x
        x += 1
    return get, inc

g1, i1 = outer()
g2, i2 = outer()
i1()
i1()
i2()
print(g1(), g2())

fs = [lambda: n for n in range(3)]
print([f() for f in fs])
`)
	require.Equal(t, "2 1\n[2, 2, 2]\n", out)
}

func TestGlobalDeclaration(t *testing.T) {
	out := run(t, `
count = 0
def bump():
    global count
    count += 1
bump()
bump()
print(count)
`)
	require.Equal(t, "2\n", out)
}

func TestComprehensionTargetsDoNotLeak(t *testing.T) {
	out := run(t, `
x = "outer"
l = [x for x in range(3)]
print(x, l)
`)
	require.Equal(t, "outer [0, 1, 2]\n", out)
}

func TestSuper(t *testing.T) {
	out := run(t, `
class A:
    def __init__(self, x):
        self.x = x
    def who(self):
        return "A"

class B(A):
    def __init__(self, x, y):
        super().__init__(x)
        self.y = y
    def who(self):
        return "B" + super().who()

b = B(1, 2)
print(b.x, b.y, b.who())
print(isinstance(b, A))
`)
	require.Equal(t, "1 2 BA\nTrue\n", out)
}

func TestArgumentBinding(t *testing.T) {
	out := run(t, `
def f(a, /, b, *args, c, d=4, **kw):
    return [a, b, args, c, d, kw]

print(f(1, 2, 3, c=5))
print(f(1, b=2, c=3, e=6))

def g(a, *, b, c=3):
    return a + b + c

print(g(1, b=2))
`)
	require.Equal(t, "[1, 2, (3,), 5, 4, {}]\n[1, 2, (), 3, 4, {'e': 6}]\n6\n", out)

	e := fails(t, object.TypeError, `
def g(a, *, b, c=3):
    return a + b + c
g(1, 2)
`)
	require.Equal(t, "g() takes 1 positional argument but 2 were given", e.Text(nil))

	e = fails(t, object.TypeError, `
def g(**kw):
    pass
g(a=1, **{"a": 2})
`)
	require.Equal(t, "g() got multiple values for keyword argument 'a'", e.Text(nil))

	e = fails(t, object.TypeError, `
def g(a, *, b):
    pass
g(1)
`)
	require.Equal(t, "g() missing 1 required keyword-only argument: 'b'", e.Text(nil))
}

func TestUnboundNames(t *testing.T) {
	e := fails(t, object.UnboundLocalError, `
def f():
    print(y)
    y = 1
f()
`)
	require.Equal(t, "cannot access local variable 'y' where it is not associated with a value", e.Text(nil))

	e = fails(t, object.NameError, `
print(undefined_name)
`)
	require.Equal(t, "name 'undefined_name' is not defined", e.Text(nil))
}

func TestMatch(t *testing.T) {
	out := run(t, `
class Point:
    __match_args__ = ("x", "y")
    def __init__(self, x, y):
        self.x = x
        self.y = y

def describe(v):
    match v:
        case 0 | 1:
            return "small"
        case [first, *rest]:
            return f"seq {first} {rest}"
        case {"k": value, **others}:
            return f"map {value} {others}"
        case Point(0, y=yy):
            return f"on axis {yy}"
        case Point(x, y) if x == y:
            return "diagonal"
        case str() as s:
            return "str " + s
        case _:
            return "other"

for v in [1, [1, 2, 3], {"k": 1, "j": 2}, Point(0, 5), Point(2, 2), "hi", 3.5]:
    print(describe(v))
`)
	require.Equal(t, strings.Join([]string{
		"small",
		"seq 1 [2, 3]",
		"map 1 {'j': 2}",
		"on axis 5",
		"diagonal",
		"str hi",
		"other",
	}, "\n")+"\n", out)
}

func TestExceptionChaining(t *testing.T) {
	out := run(t, `
try:
    try:
        raise KeyError("k")
    except KeyError:
        raise ValueError("v")
except ValueError as e:
    print(type(e.__context__).__name__, e.__suppress_context__)

try:
    try:
        raise KeyError("k")
    except KeyError as k:
        raise ValueError("v") from k
except ValueError as e:
    print(type(e.__cause__).__name__, e.__suppress_context__)

try:
    raise ValueError("v") from None
except ValueError as e:
    print(e.__cause__, e.__suppress_context__)
`)
	require.Equal(t, "KeyError False\nKeyError True\nNone True\n", out)

	e := fails(t, object.RuntimeError, `
raise
`)
	require.Equal(t, "No active exception to reraise", e.Text(nil))
}

func TestFinallyOverrides(t *testing.T) {
	out := run(t, `
def f():
    try:
        return 1
    finally:
        print("cleanup")

def g():
    for i in range(3):
        try:
            raise ValueError(i)
        finally:
            break
    return "swallowed"

print(f(), g())
`)
	require.Equal(t, "cleanup\n1 swallowed\n", out)
}

func TestExceptStar(t *testing.T) {
	out := run(t, `
try:
    raise ExceptionGroup("eg", [ValueError(1), TypeError(2), ValueError(3)])
except* ValueError as g:
    print("values", len(g.exceptions))
except* TypeError as g:
    print("types", len(g.exceptions))
`)
	require.Equal(t, "values 2\ntypes 1\n", out)

	e := fails(t, object.ExceptionGroupType, `
try:
    raise ExceptionGroup("eg", [ValueError(1), KeyError(2)])
except* ValueError:
    pass
`)
	require.Len(t, e.Exceptions, 1)
	require.True(t, e.Exceptions[0].Matches(object.KeyError))

	fails(t, object.TypeError, `
try:
    raise ValueError(1)
except* ExceptionGroup:
    pass
`)
}

func TestGenerators(t *testing.T) {
	out := run(t, `
def gen():
    x = yield 1
    print("got", x)
    try:
        yield 2
    finally:
        print("closing")

g = gen()
print(next(g))
print(g.send("hi"))
g.close()
print(list(g))
`)
	require.Equal(t, "1\ngot hi\n2\nclosing\n[]\n", out)
}

func TestCoroutines(t *testing.T) {
	out := run(t, `
async def inner():
    return 5

async def agen():
    for i in range(3):
        yield i

async def main():
    v = await inner()
    total = []
    async for x in agen():
        total.append(x)
    return v * 2, total, [x async for x in agen()]

c = main()
try:
    c.send(None)
except StopIteration as e:
    print(e.value)
`)
	require.Equal(t, "(10, [0, 1, 2], [0, 1, 2])\n", out)
}

func TestTraceback(t *testing.T) {
	e := fails(t, object.ValueError, `
def f():
    raise ValueError("boom")
def g():
    f()
g()
`)
	require.Equal(t, []string{
		`  File "<test>", line 5, in <module>`,
		`  File "<test>", line 4, in g`,
		`  File "<test>", line 2, in f`,
	}, e.TracebackLines())
}

func TestTracebackOfHandledException(t *testing.T) {
	out := run(t, `
def f():
    raise ValueError("boom")

def lines(tb):
    found = []
    while tb is not None:
        found.append(tb.tb_lineno)
        tb = tb.tb_next
    return found

try:
    raise KeyError("here")
except KeyError as e:
    print(lines(e.__traceback__))

try:
    f()
except ValueError as e:
    print(lines(e.__traceback__))

def g():
    try:
        f()
    except ValueError:
        raise

try:
    g()
except ValueError as e:
    print(lines(e.__traceback__))
`)
	require.Equal(t, "[12]\n[17, 2]\n[28, 23, 2]\n", out)
}

func TestTypeParameters(t *testing.T) {
	out := run(t, `
type Pair[T] = tuple[T, T]
print(Pair.__name__)

def first[T](xs: list[T]) -> T:
    return xs[0]

print(first([4, 5]), len(first.__type_params__))

class Box[T]:
    def get(self) -> T:
        return 1

print(len(Box.__type_params__), Box().get())
`)
	require.Equal(t, "Pair\n4 1\n1 1\n", out)
}

func TestImportWithoutImporter(t *testing.T) {
	m, err := reader.Parse("<test>", "import os\n")
	require.NoError(t, err)

	b, err := builtins.New(nil)
	require.NoError(t, err)

	th := object.NewThread()
	th.Builtins = b
	th.Invoker = New()

	require.PanicsWithError(t, "ImportBlocked: import of 'os' is blocked in this environment", func() {
		New().Exec(th, m, "<test>", object.NewDict(), b)
	})
}

func TestImportFrom(t *testing.T) {
	out := run(t, `
from math import sqrt
print(sqrt(16))
`)
	require.Equal(t, "4.0\n", out)

	e := fails(t, object.ImportError, `
from math import tau
`)
	require.Equal(t, "cannot import name 'tau' from 'math'", e.Text(nil))
}
