// Released under an MIT license. See LICENSE.

package object

import (
	"math"
	"strings"
)

type dunder struct {
	name, reflected, inplace string
}

//nolint:gochecknoglobals
var binary = map[string]dunder{
	"+":  {"__add__", "__radd__", "__iadd__"},
	"-":  {"__sub__", "__rsub__", "__isub__"},
	"*":  {"__mul__", "__rmul__", "__imul__"},
	"/":  {"__truediv__", "__rtruediv__", "__itruediv__"},
	"//": {"__floordiv__", "__rfloordiv__", "__ifloordiv__"},
	"%":  {"__mod__", "__rmod__", "__imod__"},
	"**": {"__pow__", "__rpow__", "__ipow__"},
	"@":  {"__matmul__", "__rmatmul__", "__imatmul__"},
	"<<": {"__lshift__", "__rlshift__", "__ilshift__"},
	">>": {"__rshift__", "__rrshift__", "__irshift__"},
	"&":  {"__and__", "__rand__", "__iand__"},
	"|":  {"__or__", "__ror__", "__ior__"},
	"^":  {"__xor__", "__rxor__", "__ixor__"},
}

//nolint:gochecknoglobals
var comparisons = map[string]dunder{
	"==": {"__eq__", "__eq__", ""},
	"!=": {"__ne__", "__ne__", ""},
	"<":  {"__lt__", "__gt__", ""},
	"<=": {"__le__", "__ge__", ""},
	">":  {"__gt__", "__lt__", ""},
	">=": {"__ge__", "__le__", ""},
}

// guest returns true if v's behavior may be defined by guest code.
func guest(v Value) bool {
	switch v.(type) {
	case *Instance, *Exception:
		return true
	}

	return false
}

// BinaryOp applies a binary operator.
func BinaryOp(th *Thread, op string, a, b Value) Value {
	if !guest(a) && !guest(b) {
		if r := primBinary(th, op, a, b); r != NotImplemented {
			return r
		}
	} else if r := dispatchBinary(th, op, a, b); r != NotImplemented {
		return r
	}

	Raise(TypeError, "unsupported operand type(s) for %s: '%s' and '%s'", op, TypeName(a), TypeName(b))

	return nil
}

// InplaceOp applies an augmented assignment operator.
func InplaceOp(th *Thread, op string, a, b Value) Value {
	d := binary[op]

	switch x := a.(type) {
	case *List:
		switch op {
		case "+":
			x.Items = append(x.Items, ToSlice(th, b)...)

			return x
		case "*":
			n := toIndex(th, b)
			x.Items = repeat(x.Items, n)

			return x
		}
	case *Set:
		if y, ok := b.(*Set); ok && !x.Frozen {
			if r := setOp(th, op, x, y); r != NotImplemented {
				rs := r.(*Set) //nolint:forcetypeassert
				x.d = rs.d

				return x
			}
		}
	case *Dict:
		if op == "|" {
			updateDict(th, x, b)

			return x
		}
	case *Instance, *Exception:
		t := TypeOf(x)
		if f, ok := t.Lookup(d.inplace); ok {
			if r := Call(th, bind(th, f, x, t), []Value{b}, nil); r != NotImplemented {
				return r
			}
		}
	}

	return BinaryOp(th, op, a, b)
}

func dispatchBinary(th *Thread, op string, a, b Value) Value {
	d, ok := binary[op]
	if !ok {
		Raise(SystemError, "unknown operator %s", op)
	}

	ta, tb := TypeOf(a), TypeOf(b)

	fa, hasA := ta.Lookup(d.name)

	var (
		fb   Value
		hasB bool
	)

	if ta != tb {
		fb, hasB = tb.Lookup(d.reflected)
	}

	if hasB && tb.IsSubclass(ta) {
		if r := Call(th, bind(th, fb, b, tb), []Value{a}, nil); r != NotImplemented {
			return r
		}

		hasB = false
	}

	if hasA {
		if r := Call(th, bind(th, fa, a, ta), []Value{b}, nil); r != NotImplemented {
			return r
		}
	}

	if hasB {
		return Call(th, bind(th, fb, b, tb), []Value{a}, nil)
	}

	return NotImplemented
}

//nolint:cyclop,funlen,gocyclo
func primBinary(th *Thread, op string, a, b Value) Value {
	if x, ok := a.(bool); ok {
		if y, ok := b.(bool); ok {
			switch op {
			case "&":
				return x && y
			case "|":
				return x || y
			case "^":
				return x != y
			}
		}

		a = boolInt(x)
	}

	if y, ok := b.(bool); ok {
		b = boolInt(y)
	}

	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return intOp(op, x, y)
		case float64:
			return floatOp(op, float64(x), y)
		case string, Bytes, Tuple, *List:
			if op == "*" {
				return primBinary(th, op, b, a)
			}
		}
	case float64:
		switch y := b.(type) {
		case int64:
			return floatOp(op, x, float64(y))
		case float64:
			return floatOp(op, x, y)
		}
	case string:
		switch op {
		case "+":
			if y, ok := b.(string); ok {
				return x + y
			}
		case "*":
			if n, ok := b.(int64); ok {
				checkRepeat(len(x), n)

				return strings.Repeat(x, int(max(n, 0)))
			}
		case "%":
			return PercentFormat(th, x, b)
		}
	case Bytes:
		switch op {
		case "+":
			if y, ok := b.(Bytes); ok {
				return x + y
			}
		case "*":
			if n, ok := b.(int64); ok {
				checkRepeat(len(x), n)

				return Bytes(strings.Repeat(string(x), int(max(n, 0))))
			}
		case "%":
			return Bytes(PercentFormat(th, string(x), b))
		}
	case Tuple:
		switch op {
		case "+":
			if y, ok := b.(Tuple); ok {
				r := make(Tuple, 0, len(x)+len(y))

				return append(append(r, x...), y...)
			}
		case "*":
			if n, ok := b.(int64); ok {
				checkRepeat(len(x), n)

				return Tuple(repeat(x, int(max(n, 0))))
			}
		}
	case *List:
		switch op {
		case "+":
			if y, ok := b.(*List); ok {
				r := make([]Value, 0, len(x.Items)+len(y.Items))

				return NewList(append(append(r, x.Items...), y.Items...)...)
			}
		case "*":
			if n, ok := b.(int64); ok {
				checkRepeat(len(x.Items), n)

				return NewList(repeat(x.Items, int(max(n, 0)))...)
			}
		}
	case *Dict:
		if y, ok := b.(*Dict); ok && op == "|" {
			r := x.Copy()
			updateDict(th, r, y)

			return r
		}
	case *Set:
		if y, ok := b.(*Set); ok {
			return setOp(th, op, x, y)
		}
	}

	if op == "|" && isTypeForm(a) && isTypeForm(b) {
		return union(a, b)
	}

	return NotImplemented
}

func checkRepeat(n int, times int64) {
	if times > 0 && n > 0 && int64(n) > (1<<31)/times {
		Raise(OverflowError, "repeated sequence is too long")
	}
}

func repeat(items []Value, n int) []Value {
	if n <= 0 {
		return []Value{}
	}

	r := make([]Value, 0, len(items)*n)
	for i := 0; i < n; i++ {
		r = append(r, items...)
	}

	return r
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}

	return 0
}

func overflow() {
	Raise(OverflowError, "integer overflow")
}

// AddInt adds with overflow detection.
func AddInt(a, b int64) int64 {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		overflow()
	}

	return a + b
}

// SubInt subtracts with overflow detection.
func SubInt(a, b int64) int64 {
	if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
		overflow()
	}

	return a - b
}

// MulInt multiplies with overflow detection.
func MulInt(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}

	c := a * b
	if c/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		overflow()
	}

	return c
}

// FloorDivInt divides rounding toward negative infinity.
func FloorDivInt(a, b int64) int64 {
	if b == 0 {
		Raise(ZeroDivisionError, "integer division or modulo by zero")
	}

	if a == math.MinInt64 && b == -1 {
		overflow()
	}

	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}

	return q
}

// ModInt returns a remainder with the sign of the divisor.
func ModInt(a, b int64) int64 {
	if b == 0 {
		Raise(ZeroDivisionError, "integer division or modulo by zero")
	}

	if b == -1 {
		return 0
	}

	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}

	return r
}

// PowInt raises a to a non-negative power with overflow detection.
func PowInt(a, b int64) int64 {
	r := int64(1)

	for b > 0 {
		if b&1 == 1 {
			r = MulInt(r, a)
		}

		b >>= 1
		if b > 0 {
			a = MulInt(a, a)
		}
	}

	return r
}

//nolint:cyclop
func intOp(op string, a, b int64) Value {
	switch op {
	case "+":
		return AddInt(a, b)
	case "-":
		return SubInt(a, b)
	case "*":
		return MulInt(a, b)
	case "/":
		if b == 0 {
			Raise(ZeroDivisionError, "division by zero")
		}

		return float64(a) / float64(b)
	case "//":
		return FloorDivInt(a, b)
	case "%":
		return ModInt(a, b)
	case "**":
		if b < 0 {
			return floatOp(op, float64(a), float64(b))
		}

		return PowInt(a, b)
	case "<<":
		if b < 0 {
			Raise(ValueError, "negative shift count")
		}

		if a == 0 {
			return int64(0)
		}

		if b >= 63 || (a<<b)>>b != a {
			overflow()
		}

		return a << b
	case ">>":
		if b < 0 {
			Raise(ValueError, "negative shift count")
		}

		if b >= 63 {
			if a < 0 {
				return int64(-1)
			}

			return int64(0)
		}

		return a >> b
	case "&":
		return a & b
	case "|":
		return a | b
	case "^":
		return a ^ b
	}

	return NotImplemented
}

// FloatDivmod returns the floor quotient and remainder of a and b.
func FloatDivmod(a, b float64) (float64, float64) {
	mod := math.Mod(a, b)
	div := (a - mod) / b

	if mod != 0 {
		if (b < 0) != (mod < 0) {
			mod += b
			div--
		}
	} else {
		mod = math.Copysign(0, b)
	}

	var floor float64

	if div != 0 {
		floor = math.Floor(div)
		if div-floor > 0.5 {
			floor++
		}
	} else {
		floor = math.Copysign(0, a/b)
	}

	return floor, mod
}

func floatOp(op string, a, b float64) Value {
	switch op {
	case "+":
		return a + b
	case "-":
		return a - b
	case "*":
		return a * b
	case "/":
		if b == 0 {
			Raise(ZeroDivisionError, "float division by zero")
		}

		return a / b
	case "//":
		if b == 0 {
			Raise(ZeroDivisionError, "float floor division by zero")
		}

		q, _ := FloatDivmod(a, b)

		return q
	case "%":
		if b == 0 {
			Raise(ZeroDivisionError, "float modulo by zero")
		}

		_, r := FloatDivmod(a, b)

		return r
	case "**":
		return PowFloat(a, b)
	}

	return NotImplemented
}

// PowFloat raises a to the power b.
func PowFloat(a, b float64) float64 {
	if a == 0 && b < 0 {
		Raise(ZeroDivisionError, "zero to a negative power")
	}

	if a < 0 && b != math.Trunc(b) {
		Raise(ValueError, "negative number cannot be raised to a fractional power")
	}

	r := math.Pow(a, b)
	if math.IsInf(r, 0) && !math.IsInf(a, 0) && !math.IsInf(b, 0) {
		Raise(OverflowError, "Numerical result out of range")
	}

	return r
}

func setOp(th *Thread, op string, x, y *Set) Value {
	r := &Set{d: NewDict(), Frozen: x.Frozen}

	switch op {
	case "|":
		for _, v := range x.Items() {
			r.Add(th, v)
		}

		for _, v := range y.Items() {
			r.Add(th, v)
		}
	case "&":
		for _, v := range x.Items() {
			if y.Contains(th, v) {
				r.Add(th, v)
			}
		}
	case "-":
		for _, v := range x.Items() {
			if !y.Contains(th, v) {
				r.Add(th, v)
			}
		}
	case "^":
		for _, v := range x.Items() {
			if !y.Contains(th, v) {
				r.Add(th, v)
			}
		}

		for _, v := range y.Items() {
			if !x.Contains(th, v) {
				r.Add(th, v)
			}
		}
	default:
		return NotImplemented
	}

	return r
}

func updateDict(th *Thread, d *Dict, other Value) {
	if o, ok := Prim(other).(*Dict); ok {
		for _, item := range o.Items() {
			d.Set(th, item.Key, item.Value)
		}

		return
	}

	if keys, ok := LookupAttr(th, other, "keys"); ok {
		for _, k := range ToSlice(th, Call(th, keys, nil, nil)) {
			d.Set(th, k, GetItem(th, other, k))
		}

		return
	}

	for i, item := range ToSlice(th, other) {
		pair := ToSlice(th, item)
		if len(pair) != 2 {
			Raise(ValueError, "dictionary update sequence element #%d has length %d; 2 is required", i, len(pair))
		}

		d.Set(th, pair[0], pair[1])
	}
}

// UnaryOp applies a unary operator: "-", "+", "~" or "not".
func UnaryOp(th *Thread, op string, v Value) Value {
	if op == "not" {
		return !Truth(th, v)
	}

	switch x := v.(type) {
	case bool:
		return UnaryOp(th, op, boolInt(x))
	case int64:
		switch op {
		case "-":
			return SubInt(0, x)
		case "+":
			return x
		case "~":
			return ^x
		}
	case float64:
		switch op {
		case "-":
			return -x
		case "+":
			return x
		}
	case *Instance, *Exception:
		name := map[string]string{"-": "__neg__", "+": "__pos__", "~": "__invert__"}[op]

		t := TypeOf(x)
		if f, ok := t.Lookup(name); ok {
			return Call(th, bind(th, f, x, t), nil, nil)
		}
	}

	Raise(TypeError, "bad operand type for unary %s: '%s'", op, TypeName(v))

	return nil
}

// Truth returns the truth value of v.
func Truth(th *Thread, v Value) bool {
	switch x := v.(type) {
	case NoneType:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != ""
	case Bytes:
		return x != ""
	case Tuple:
		return len(x) > 0
	case *List:
		return len(x.Items) > 0
	case *Dict:
		return x.Len() > 0
	case *Set:
		return x.Len() > 0
	case *Range:
		return x.Len() > 0
	case *DictView:
		return x.Dict.Len() > 0
	case *Instance, *Exception:
		t := TypeOf(x)
		if f, ok := t.Overrides("__bool__"); ok {
			r := Call(th, bind(th, f, x, t), nil, nil)

			b, ok := r.(bool)
			if !ok {
				Raise(TypeError, "__bool__ should return bool, returned %s", TypeName(r))
			}

			return b
		}

		if f, ok := t.Overrides("__len__"); ok {
			return lenResult(Call(th, bind(th, f, x, t), nil, nil)) > 0
		}

		if i, ok := x.(*Instance); ok && i.Base != nil {
			return Truth(th, i.Base)
		}
	}

	return true
}

func lenResult(r Value) int {
	n, ok := Prim(r).(int64)
	if !ok {
		if b, ok := r.(bool); ok {
			return int(boolInt(b))
		}

		Raise(TypeError, "'%s' object cannot be interpreted as an integer", TypeName(r))
	}

	if n < 0 {
		Raise(ValueError, "__len__() should return >= 0")
	}

	return int(n)
}

// Len returns the length of v.
func Len(th *Thread, v Value) int {
	switch x := v.(type) {
	case string:
		return runeCount(x)
	case Bytes:
		return len(x)
	case Tuple:
		return len(x)
	case *List:
		return len(x.Items)
	case *Dict:
		return x.Len()
	case *Set:
		return x.Len()
	case *Range:
		return int(x.Len())
	case *DictView:
		return x.Dict.Len()
	case *Instance, *Exception:
		t := TypeOf(x)
		if f, ok := t.Overrides("__len__"); ok {
			return lenResult(Call(th, bind(th, f, x, t), nil, nil))
		}

		if i, ok := x.(*Instance); ok && i.Base != nil {
			return Len(th, i.Base)
		}
	}

	Raise(TypeError, "object of type '%s' has no len()", TypeName(v))

	return 0
}

// Eq compares for equality the way containers do: identity implies
// equality.
func Eq(th *Thread, a, b Value) bool {
	if Is(a, b) {
		return true
	}

	return Truth(th, RichCompare(th, "==", a, b))
}

// RichCompare applies a comparison operator.
func RichCompare(th *Thread, op string, a, b Value) Value {
	if !guest(a) && !guest(b) {
		if r := primCompare(th, op, a, b); r != NotImplemented {
			return r
		}
	} else if r := dispatchCompare(th, op, a, b); r != NotImplemented {
		return r
	}

	switch op {
	case "==":
		return Is(a, b)
	case "!=":
		return !Is(a, b)
	}

	Raise(TypeError, "'%s' not supported between instances of '%s' and '%s'", op, TypeName(a), TypeName(b))

	return nil
}

func dispatchCompare(th *Thread, op string, a, b Value) Value {
	d := comparisons[op]
	ta, tb := TypeOf(a), TypeOf(b)

	fa, hasA := ta.Lookup(d.name)
	fb, hasB := tb.Lookup(d.reflected)

	if hasB && ta != tb && tb.IsSubclass(ta) {
		if r := Call(th, bind(th, fb, b, tb), []Value{a}, nil); r != NotImplemented {
			return r
		}

		hasB = false
	}

	if hasA {
		if r := Call(th, bind(th, fa, a, ta), []Value{b}, nil); r != NotImplemented {
			return r
		}
	}

	if hasB {
		return Call(th, bind(th, fb, b, tb), []Value{a}, nil)
	}

	return NotImplemented
}

func cmpResult(op string, c int) bool {
	switch op {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	}

	return c >= 0
}

func compareNumbers(a, b Value) (int, bool) {
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmp3(x < y, x > y), true
		case float64:
			if math.IsNaN(y) {
				return 2, true
			}

			return cmp3(float64(x) < y, float64(x) > y), true
		}
	case float64:
		if math.IsNaN(x) {
			if _, ok := b.(int64); ok {
				return 2, true
			}

			if _, ok := b.(float64); ok {
				return 2, true
			}

			return 0, false
		}

		switch y := b.(type) {
		case int64:
			return cmp3(x < float64(y), x > float64(y)), true
		case float64:
			if math.IsNaN(y) {
				return 2, true
			}

			return cmp3(x < y, x > y), true
		}
	}

	return 0, false
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}

	return 0
}

//nolint:cyclop,funlen,gocyclo
func primCompare(th *Thread, op string, a, b Value) Value {
	if x, ok := a.(bool); ok {
		a = boolInt(x)
	}

	if y, ok := b.(bool); ok {
		b = boolInt(y)
	}

	if c, ok := compareNumbers(a, b); ok {
		if c == 2 {
			return op == "!="
		}

		return cmpResult(op, c)
	}

	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return cmpResult(op, strings.Compare(x, y))
		}
	case Bytes:
		if y, ok := b.(Bytes); ok {
			return cmpResult(op, strings.Compare(string(x), string(y)))
		}
	case Tuple:
		if y, ok := b.(Tuple); ok {
			return compareSequences(th, op, x, y)
		}
	case *List:
		if y, ok := b.(*List); ok {
			return compareSequences(th, op, x.Items, y.Items)
		}
	case NoneType, EllipsisType, NotImplementedType:
		if op == "==" || op == "!=" {
			return cmpResult(op, cmp3(a != b, false))
		}
	case *Dict:
		if y, ok := b.(*Dict); ok && (op == "==" || op == "!=") {
			return cmpResult(op, cmp3(!dictsEqual(th, x, y), false))
		}
	case *Set:
		if y, ok := b.(*Set); ok {
			return compareSets(th, op, x, y)
		}
	case *Range:
		if y, ok := b.(*Range); ok && (op == "==" || op == "!=") {
			return cmpResult(op, cmp3(!rangesEqual(x, y), false))
		}
	case *GenericAlias:
		if y, ok := b.(*GenericAlias); ok && (op == "==" || op == "!=") {
			eq := Eq(th, x.Origin, y.Origin) && Eq(th, x.Args, y.Args)

			return cmpResult(op, cmp3(!eq, false))
		}
	}

	return NotImplemented
}

func compareSequences(th *Thread, op string, x, y []Value) Value {
	n := min(len(x), len(y))

	for i := 0; i < n; i++ {
		if Eq(th, x[i], y[i]) {
			continue
		}

		switch op {
		case "==":
			return false
		case "!=":
			return true
		}

		return RichCompare(th, op, x[i], y[i])
	}

	return cmpResult(op, cmp3(len(x) < len(y), len(x) > len(y)))
}

func dictsEqual(th *Thread, x, y *Dict) bool {
	if x.Len() != y.Len() {
		return false
	}

	for _, item := range x.Items() {
		v, ok := y.Get(th, item.Key)
		if !ok || !Eq(th, item.Value, v) {
			return false
		}
	}

	return true
}

func rangesEqual(x, y *Range) bool {
	n := x.Len()
	if n != y.Len() {
		return false
	}

	switch n {
	case 0:
		return true
	case 1:
		return x.Start == y.Start
	}

	return x.Start == y.Start && x.Step == y.Step
}

func subset(th *Thread, x, y *Set) bool {
	for _, v := range x.Items() {
		if !y.Contains(th, v) {
			return false
		}
	}

	return true
}

func compareSets(th *Thread, op string, x, y *Set) Value {
	switch op {
	case "==":
		return x.Len() == y.Len() && subset(th, x, y)
	case "!=":
		return x.Len() != y.Len() || !subset(th, x, y)
	case "<=":
		return subset(th, x, y)
	case "<":
		return x.Len() < y.Len() && subset(th, x, y)
	case ">=":
		return subset(th, y, x)
	case ">":
		return y.Len() < x.Len() && subset(th, y, x)
	}

	return NotImplemented
}

// Compare applies any comparison operator, including membership and
// identity tests.
func Compare(th *Thread, op string, a, b Value) Value {
	switch op {
	case "in":
		return Contains(th, b, a)
	case "not in":
		return !Contains(th, b, a)
	case "is":
		return Is(a, b)
	case "is not":
		return !Is(a, b)
	}

	return RichCompare(th, op, a, b)
}

// Contains implements the membership test item in container.
func Contains(th *Thread, container, item Value) bool {
	switch c := container.(type) {
	case string:
		s, ok := Prim(item).(string)
		if !ok {
			Raise(TypeError, "'in <string>' requires string as left operand, not %s", TypeName(item))
		}

		return strings.Contains(c, s)
	case Bytes:
		switch x := Prim(item).(type) {
		case Bytes:
			return strings.Contains(string(c), string(x))
		case int64:
			if x < 0 || x > 255 {
				Raise(ValueError, "byte must be in range(0, 256)")
			}

			return strings.IndexByte(string(c), byte(x)) >= 0
		}

		Raise(TypeError, "a bytes-like object is required, not '%s'", TypeName(item))
	case Tuple:
		return containsValue(th, c, item)
	case *List:
		return containsValue(th, c.Items, item)
	case *Dict:
		_, ok := c.Get(th, item)

		return ok
	case *Set:
		if s, ok := item.(*Set); ok && !s.Frozen {
			item = s.Copy(true)
		}

		return c.Contains(th, item)
	case *Range:
		n, ok := Prim(item).(int64)
		if !ok {
			if b, ok := item.(bool); ok {
				n = boolInt(b)
			} else {
				return containsIter(th, c, item)
			}
		}

		return rangeIndex(c, n) >= 0
	case *DictView:
		return c.contains(th, item)
	case *Instance, *Exception:
		t := TypeOf(c)
		if f, ok := t.Overrides("__contains__"); ok {
			return Truth(th, Call(th, bind(th, f, c, t), []Value{item}, nil))
		}

		if i, ok := c.(*Instance); ok && i.Base != nil {
			if _, ok := t.Overrides("__iter__"); !ok {
				return Contains(th, i.Base, item)
			}
		}
	}

	return containsIter(th, container, item)
}

func containsValue(th *Thread, items []Value, item Value) bool {
	for _, v := range items {
		if Eq(th, v, item) {
			return true
		}
	}

	return false
}

func containsIter(th *Thread, container, item Value) bool {
	it := Iter(th, container)

	for {
		v, ok := Next(th, it)
		if !ok {
			return false
		}

		if Eq(th, v, item) {
			return true
		}
	}
}

func rangeIndex(r *Range, n int64) int64 {
	if r.Step > 0 && (n < r.Start || n >= r.Stop) {
		return -1
	}

	if r.Step < 0 && (n > r.Start || n <= r.Stop) {
		return -1
	}

	if (n-r.Start)%r.Step != 0 {
		return -1
	}

	return (n - r.Start) / r.Step
}

func isTypeForm(v Value) bool {
	switch v.(type) {
	case *Class, NoneType, *GenericAlias, *Union, *TypeVar, *TypeAlias:
		return true
	}

	return false
}

func union(a, b Value) Value {
	args := Tuple{}

	add := func(v Value) {
		if u, ok := v.(*Union); ok {
			for _, x := range u.Args {
				args = appendUnique(args, x)
			}

			return
		}

		if _, ok := v.(NoneType); ok {
			v = NoneClass
		}

		args = appendUnique(args, v)
	}

	add(a)
	add(b)

	return &Union{Args: args}
}

func appendUnique(args Tuple, v Value) Tuple {
	for _, x := range args {
		if x == v {
			return args
		}
	}

	return append(args, v)
}
