// Released under an MIT license. See LICENSE.

package modules

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/michaelmacinnis/enclave/internal/engine/object"
)

// JSONDecodeError is raised by json.loads for malformed documents.
//
//nolint:gochecknoglobals
var JSONDecodeError = object.ExceptionClass("json", "JSONDecodeError", object.ValueError)

func init() {
	register("json", func() *object.Module {
		m := module("json", "JSON encoding and decoding.", map[string]object.Native{
			"dumps": dumps,
			"loads": loads,
		})

		m.Dict.SetStr("JSONDecodeError", JSONDecodeError)

		return m
	})
}

type encoder struct {
	th *object.Thread
	b  strings.Builder

	indent    string
	item      string
	key       string
	sortKeys  bool
	seen      map[any]bool
	ascii     bool
	allowNaN  bool
	fallback  object.Value
	multiline bool
}

func dumps(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	a := object.Args("dumps", args, kw, 1,
		"obj", "indent", "sort_keys", "separators", "default", "ensure_ascii", "allow_nan")

	e := &encoder{
		th:       th,
		item:     ", ",
		key:      ": ",
		seen:     map[any]bool{},
		ascii:    true,
		allowNaN: true,
	}

	if a[1] != nil && a[1] != object.None {
		e.multiline = true
		e.item = ","

		switch v := object.Prim(a[1]).(type) {
		case string:
			e.indent = v
		default:
			n, ok := object.AsIndex(th, v)
			if !ok {
				object.Raise(object.TypeError, "indent must be an int or a str, not %s", object.TypeName(v))
			}

			e.indent = strings.Repeat(" ", int(max(n, 0)))
		}
	}

	if a[2] != nil {
		e.sortKeys = object.Truth(th, a[2])
	}

	if a[3] != nil && a[3] != object.None {
		seps := object.ToSlice(th, a[3])
		if len(seps) != 2 {
			object.Raise(object.ValueError, "separators must be a (item_separator, key_separator) pair")
		}

		e.item = object.StrArg("dumps", seps[0])
		e.key = object.StrArg("dumps", seps[1])
	}

	if a[4] != nil && a[4] != object.None {
		e.fallback = a[4]
	}

	if a[5] != nil {
		e.ascii = object.Truth(th, a[5])
	}

	if a[6] != nil {
		e.allowNaN = object.Truth(th, a[6])
	}

	e.value(a[0], 0)

	return e.b.String()
}

func (e *encoder) newline(depth int) {
	if e.multiline {
		e.b.WriteByte('\n')
		e.b.WriteString(strings.Repeat(e.indent, depth))
	}
}

func (e *encoder) enter(v object.Value) {
	id := object.Identity(v)
	if e.seen[id] {
		object.Raise(object.ValueError, "Circular reference detected")
	}

	e.seen[id] = true
}

func (e *encoder) leave(v object.Value) {
	delete(e.seen, object.Identity(v))
}

//nolint:cyclop
func (e *encoder) value(v object.Value, depth int) {
	switch x := object.Prim(v).(type) {
	case object.NoneType:
		e.b.WriteString("null")
	case bool:
		e.b.WriteString(strconv.FormatBool(x))
	case int64:
		e.b.WriteString(strconv.FormatInt(x, 10))
	case float64:
		e.b.WriteString(e.float(x))
	case string:
		e.str(x)
	case *object.List:
		e.array(v, x.Items, depth)
	case object.Tuple:
		e.array(v, x, depth)
	case *object.Dict:
		e.object(v, x, depth)
	default:
		if e.fallback == nil {
			object.Raise(object.TypeError, "Object of type %s is not JSON serializable", object.TypeName(v))
		}

		e.enter(v)
		e.value(object.Call(e.th, e.fallback, []object.Value{v}, nil), depth)
		e.leave(v)
	}
}

func (e *encoder) float(f float64) string {
	switch {
	case math.IsNaN(f):
		e.finite(f)

		return "NaN"
	case math.IsInf(f, 1):
		e.finite(f)

		return "Infinity"
	case math.IsInf(f, -1):
		e.finite(f)

		return "-Infinity"
	}

	return object.FloatRepr(f)
}

func (e *encoder) finite(f float64) {
	if !e.allowNaN {
		object.Raise(object.ValueError, "Out of range float values are not JSON compliant: %s", object.FloatRepr(f))
	}
}

func (e *encoder) array(v object.Value, items []object.Value, depth int) {
	if len(items) == 0 {
		e.b.WriteString("[]")

		return
	}

	e.enter(v)

	e.b.WriteByte('[')

	for i, item := range items {
		if i > 0 {
			e.b.WriteString(e.item)
		}

		e.newline(depth + 1)
		e.value(item, depth+1)
	}

	e.newline(depth)
	e.b.WriteByte(']')

	e.leave(v)
}

func (e *encoder) object(v object.Value, d *object.Dict, depth int) {
	if d.Len() == 0 {
		e.b.WriteString("{}")

		return
	}

	e.enter(v)

	type pair struct {
		key   string
		value object.Value
	}

	pairs := make([]pair, 0, d.Len())
	for _, item := range d.Items() {
		pairs = append(pairs, pair{e.keyString(item.Key), item.Value})
	}

	if e.sortKeys {
		keys := make([]object.Value, len(pairs))
		index := make(map[string]object.Value, len(pairs))

		for i, p := range pairs {
			keys[i] = p.key
			index[p.key] = p.value
		}

		object.Sort(e.th, keys, nil, false)

		for i, k := range keys {
			s, _ := k.(string)
			pairs[i] = pair{s, index[s]}
		}
	}

	e.b.WriteByte('{')

	for i, p := range pairs {
		if i > 0 {
			e.b.WriteString(e.item)
		}

		e.newline(depth + 1)
		e.str(p.key)
		e.b.WriteString(e.key)
		e.value(p.value, depth+1)
	}

	e.newline(depth)
	e.b.WriteByte('}')

	e.leave(v)
}

func (e *encoder) keyString(k object.Value) string {
	switch x := object.Prim(k).(type) {
	case string:
		return x
	case object.NoneType:
		return "null"
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return e.float(x)
	}

	object.Raise(object.TypeError, "keys must be str, int, float, bool or None, not %s", object.TypeName(k))

	return ""
}

func (e *encoder) str(s string) {
	e.b.WriteByte('"')

	for _, r := range s {
		switch {
		case r == '"':
			e.b.WriteString(`\"`)
		case r == '\\':
			e.b.WriteString(`\\`)
		case r == '\n':
			e.b.WriteString(`\n`)
		case r == '\r':
			e.b.WriteString(`\r`)
		case r == '\t':
			e.b.WriteString(`\t`)
		case r == '\b':
			e.b.WriteString(`\b`)
		case r == '\f':
			e.b.WriteString(`\f`)
		case r < 0x20:
			fmt.Fprintf(&e.b, `\u%04x`, r)
		case r < 0x80 || !e.ascii:
			e.b.WriteRune(r)
		case r > 0xffff:
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(&e.b, `\u%04x\u%04x`, r1, r2)
		default:
			fmt.Fprintf(&e.b, `\u%04x`, r)
		}
	}

	e.b.WriteByte('"')
}

func loads(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	a := object.Args("loads", args, kw, 1, "s")

	var text string

	switch s := object.Prim(a[0]).(type) {
	case string:
		text = s
	case object.Bytes:
		text = string(s)
	default:
		object.Raise(object.TypeError, "the JSON object must be str or bytes, not %s", object.TypeName(a[0]))
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	v := decode(th, dec)

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		malformed("Extra data")
	}

	return v
}

func malformed(msg string) {
	panic(object.NewException(JSONDecodeError, msg))
}

func token(dec *json.Decoder) json.Token {
	t, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			malformed("Expecting value")
		}

		malformed(err.Error())
	}

	return t
}

func decode(th *object.Thread, dec *json.Decoder) object.Value {
	switch t := token(dec).(type) {
	case json.Delim:
		switch t {
		case '[':
			l := object.NewList()
			for dec.More() {
				l.Items = append(l.Items, decode(th, dec))
			}

			token(dec)

			return l
		case '{':
			d := object.NewDict()

			for dec.More() {
				k, _ := token(dec).(string)
				d.Set(th, k, decode(th, dec))
			}

			token(dec)

			return d
		}

		malformed("Unexpected " + t.String())
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}

		f, err := t.Float64()
		if err != nil {
			malformed("Number out of range: " + t.String())
		}

		return f
	case string:
		return t
	case bool:
		return t
	case nil:
		return object.None
	}

	return object.None
}
