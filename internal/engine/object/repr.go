// Released under an MIT license. See LICENSE.

package object

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/michaelmacinnis/enclave/internal/reader/ast"
)

// Repr returns the printable representation of v.
//
//nolint:cyclop,funlen,gocyclo
func Repr(th *Thread, v Value) string {
	switch x := v.(type) {
	case NoneType:
		return "None"
	case EllipsisType:
		return "Ellipsis"
	case NotImplementedType:
		return "NotImplemented"
	case bool:
		if x {
			return "True"
		}

		return "False"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return FloatRepr(x)
	case string:
		return QuoteString(x)
	case Bytes:
		return QuoteBytes(x)
	case Tuple:
		if len(x) == 1 {
			return "(" + Repr(th, x[0]) + ",)"
		}

		return reprSeq(th, x, "(", ")", x)
	case *List:
		return reprSeq(th, x, "[", "]", x.Items)
	case *Dict:
		return reprDict(th, x)
	case *Set:
		return reprSet(th, x)
	case *Range:
		if x.Step == 1 {
			return fmt.Sprintf("range(%d, %d)", x.Start, x.Stop)
		}

		return fmt.Sprintf("range(%d, %d, %d)", x.Start, x.Stop, x.Step)
	case *Slice:
		return "slice(" + Repr(th, x.Start) + ", " + Repr(th, x.Stop) + ", " + Repr(th, x.Step) + ")"
	case *Class:
		meta := x.Metaclass()
		if f, ok := meta.Overrides("__repr__"); ok {
			return reprResult(Call(th, bind(th, f, x, meta), nil, nil))
		}

		return "<class '" + x.FullName() + "'>"
	case *Function:
		return fmt.Sprintf("<function %s at %#x>", x.Qualname, ID(x))
	case *Builtin:
		switch {
		case x.Self != nil && x.Owner != nil:
			return fmt.Sprintf("<built-in method %s of %s object at %#x>", x.Name, TypeName(x.Self), ID(x.Self))
		case x.Owner != nil:
			return fmt.Sprintf("<method '%s' of '%s' objects>", x.Name, x.Owner.Name)
		}

		return "<built-in function " + x.Name + ">"
	case *Method:
		return "<bound method " + methodName(x.Func) + " of " + Repr(th, x.Self) + ">"
	case *Module:
		return "<module '" + x.Name + "'>"
	case *Generator:
		return fmt.Sprintf("<%s object %s at %#x>", TypeName(x), x.Qualname, ID(x))
	case *Property:
		return fmt.Sprintf("<property object at %#x>", ID(x))
	case *ClassMethod:
		return "<classmethod(" + Repr(th, x.Func) + ")>"
	case *StaticMethod:
		return "<staticmethod(" + Repr(th, x.Func) + ")>"
	case *Super:
		return "<super: <class '" + x.Class.Name + "'>, <" + x.Type.Name + " object>>"
	case *FrameSurrogate:
		return fmt.Sprintf("<frame at %#x, line %d, code %s>", ID(x), x.Frame.Line, x.Frame.Name)
	case *Traceback:
		return fmt.Sprintf("<traceback object at %#x>", ID(x))
	case *TypeVar:
		switch x.Kind {
		case ast.TypeVarTuple:
			return "*" + x.Name
		case ast.ParamSpec:
			return "**" + x.Name
		case ast.TypeVar:
		}

		return "~" + x.Name
	case *TypeAlias:
		return x.Name
	case *GenericAlias:
		parts := make([]string, len(x.Args))
		for i, a := range x.Args {
			parts[i] = typeRepr(th, a)
		}

		return typeRepr(th, x.Origin) + "[" + strings.Join(parts, ", ") + "]"
	case *Union:
		parts := make([]string, len(x.Args))
		for i, a := range x.Args {
			parts[i] = typeRepr(th, a)
		}

		return strings.Join(parts, " | ")
	case *Iterator:
		return fmt.Sprintf("<%s object at %#x>", x.Name, ID(x))
	case *Cell:
		return fmt.Sprintf("<cell at %#x>", ID(x))
	case *DictView:
		return x.class().Name + "(" + Repr(th, NewList(ToSlice(th, x.iter())...)) + ")"
	case *AsyncStep:
		return fmt.Sprintf("<async_generator_asend object at %#x>", ID(x))
	case *Exception:
		return reprInstance(th, x, x.Class)
	case *Instance:
		return reprInstance(th, x, x.Class)
	}

	return fmt.Sprintf("<%T>", v)
}

func reprInstance(th *Thread, v Value, c *Class) string {
	f, ok := c.Lookup("__repr__")
	if !ok {
		return fmt.Sprintf("<%s object at %#x>", c.FullName(), ID(v))
	}

	if b, ok := f.(*Builtin); ok && b.Owner == ObjectType {
		return fmt.Sprintf("<%s object at %#x>", c.FullName(), ID(v))
	}

	if !th.enter(v) {
		return "..."
	}

	defer th.leave(v)

	return reprResult(Call(th, bind(th, f, v, c), nil, nil))
}

func reprResult(r Value) string {
	s, ok := Prim(r).(string)
	if !ok {
		Raise(TypeError, "__repr__ returned non-string (type %s)", TypeName(r))
	}

	return s
}

func typeRepr(th *Thread, v Value) string {
	switch x := v.(type) {
	case *Class:
		if x == NoneClass {
			return "None"
		}

		return x.FullName()
	case EllipsisType:
		return "..."
	}

	return Repr(th, v)
}

func methodName(f Value) string {
	switch fn := f.(type) {
	case *Function:
		return fn.Qualname
	case *Builtin:
		return fn.Name
	}

	return "?"
}

func reprSeq(th *Thread, key any, open, closed string, items []Value) string {
	if len(items) == 0 {
		return open + closed
	}

	id := Identity(key)
	if !th.enter(id) {
		return open + "..." + closed
	}

	defer th.leave(id)

	parts := make([]string, len(items))
	for i, v := range items {
		parts[i] = Repr(th, v)
	}

	return open + strings.Join(parts, ", ") + closed
}

func reprDict(th *Thread, d *Dict) string {
	if d.Len() == 0 {
		return "{}"
	}

	if !th.enter(d) {
		return "{...}"
	}

	defer th.leave(d)

	parts := make([]string, 0, d.Len())
	for _, item := range d.Items() {
		parts = append(parts, Repr(th, item.Key)+": "+Repr(th, item.Value))
	}

	return "{" + strings.Join(parts, ", ") + "}"
}

func reprSet(th *Thread, s *Set) string {
	name := "set"
	if s.Frozen {
		name = "frozenset"
	}

	if s.Len() == 0 {
		return name + "()"
	}

	parts := make([]string, 0, s.Len())
	for _, v := range s.Items() {
		parts = append(parts, Repr(th, v))
	}

	body := "{" + strings.Join(parts, ", ") + "}"
	if s.Frozen {
		return name + "(" + body + ")"
	}

	return body
}

// enter marks k as being formatted, returning false if it already is.
func (th *Thread) enter(k any) bool {
	if th.repr == nil {
		th.repr = map[any]bool{}
	}

	if th.repr[k] {
		return false
	}

	th.repr[k] = true

	return true
}

func (th *Thread) leave(k any) {
	delete(th.repr, k)
}

// Str returns the informal string representation of v.
func Str(th *Thread, v Value) string {
	switch x := v.(type) {
	case string:
		return x
	case *Exception:
		if f, ok := x.Class.Overrides("__str__"); ok {
			return strResult(Call(th, bind(th, f, x, x.Class), nil, nil))
		}

		return x.text(th)
	case *Instance:
		if f, ok := x.Class.Lookup("__str__"); ok {
			if b, ok := f.(*Builtin); !ok || b.Owner != ObjectType {
				return strResult(Call(th, bind(th, f, x, x.Class), nil, nil))
			}
		}

		return Repr(th, x)
	case *Class:
		meta := x.Metaclass()
		if f, ok := meta.Overrides("__str__"); ok {
			return strResult(Call(th, bind(th, f, x, meta), nil, nil))
		}
	}

	return Repr(th, v)
}

func strResult(r Value) string {
	s, ok := Prim(r).(string)
	if !ok {
		Raise(TypeError, "__str__ returned non-string (type %s)", TypeName(r))
	}

	return s
}

// FloatRepr formats f the way repr does: the shortest string that round
// trips, in positional notation for moderate exponents.
func FloatRepr(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}

	e := strconv.FormatFloat(f, 'e', -1, 64)

	mantissa, exp, _ := strings.Cut(e, "e")

	n, _ := strconv.Atoi(exp)
	if n >= -4 && n < 16 {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.ContainsAny(s, ".") {
			s += ".0"
		}

		return s
	}

	sign := "+"
	if n < 0 {
		sign = "-"
		n = -n
	}

	return fmt.Sprintf("%se%s%02d", mantissa, sign, n)
}

// QuoteString returns s quoted the way repr quotes strings.
func QuoteString(s string) string {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	var b strings.Builder

	b.WriteByte(quote)

	for _, r := range s {
		switch {
		case r == rune(quote) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		case r > 0x7f && !unicode.IsPrint(r):
			switch {
			case r <= 0xff:
				fmt.Fprintf(&b, `\x%02x`, r)
			case r <= 0xffff:
				fmt.Fprintf(&b, `\u%04x`, r)
			default:
				fmt.Fprintf(&b, `\U%08x`, r)
			}
		default:
			b.WriteRune(r)
		}
	}

	b.WriteByte(quote)

	return b.String()
}

// QuoteBytes returns s quoted the way repr quotes bytes.
func QuoteBytes(s Bytes) string {
	quote := byte('\'')
	if strings.IndexByte(string(s), '\'') >= 0 && strings.IndexByte(string(s), '"') < 0 {
		quote = '"'
	}

	var b strings.Builder

	b.WriteString("b")
	b.WriteByte(quote)

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case c == quote || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&b, `\x%02x`, c)
		default:
			b.WriteByte(c)
		}
	}

	b.WriteByte(quote)

	return b.String()
}
