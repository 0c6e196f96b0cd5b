// Released under an MIT license. See LICENSE.

package object

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

type formatSpec struct {
	fill  string
	align byte
	sign  byte
	group byte
	typ   byte
	alt   bool
	zero  bool
	z     bool
	width int
	prec  int
}

//nolint:cyclop
func parseSpec(s string) formatSpec {
	sp := formatSpec{fill: " ", prec: -1}

	isAlign := func(b byte) bool {
		return b == '<' || b == '>' || b == '^' || b == '='
	}

	if r, n := utf8.DecodeRuneInString(s); n > 0 && n < len(s) && isAlign(s[n]) {
		sp.fill, sp.align = string(r), s[n]
		s = s[n+1:]
	} else if s != "" && isAlign(s[0]) {
		sp.align = s[0]
		s = s[1:]
	}

	if s != "" && (s[0] == '+' || s[0] == '-' || s[0] == ' ') {
		sp.sign = s[0]
		s = s[1:]
	}

	if s != "" && s[0] == 'z' {
		sp.z = true
		s = s[1:]
	}

	if s != "" && s[0] == '#' {
		sp.alt = true
		s = s[1:]
	}

	if s != "" && s[0] == '0' {
		sp.zero = true
		s = s[1:]
	}

	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}

	if i > 0 {
		sp.width, _ = strconv.Atoi(s[:i])
		s = s[i:]
	}

	if s != "" && (s[0] == ',' || s[0] == '_') {
		sp.group = s[0]
		s = s[1:]
	}

	if s != "" && s[0] == '.' {
		i = 1
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}

		if i == 1 {
			Raise(ValueError, "Format specifier missing precision")
		}

		sp.prec, _ = strconv.Atoi(s[1:i])
		s = s[i:]
	}

	switch len(s) {
	case 0:
	case 1:
		sp.typ = s[0]
	default:
		Raise(ValueError, "Invalid format specifier '%s'", s)
	}

	if sp.zero && sp.align == 0 {
		sp.fill, sp.align = "0", '='
	}

	return sp
}

// Format implements format(v, spec), dispatching to a guest __format__.
func Format(th *Thread, v Value, spec string) string {
	if _, ok := v.(*Instance); ok {
		if f, ok := TypeOf(v).Overrides("__format__"); ok {
			return strResult(Call(th, bind(th, f, v, TypeOf(v)), []Value{spec}, nil))
		}
	}

	if _, ok := v.(*Exception); ok {
		if f, ok := TypeOf(v).Overrides("__format__"); ok {
			return strResult(Call(th, bind(th, f, v, TypeOf(v)), []Value{spec}, nil))
		}
	}

	return FormatSpec(th, v, spec)
}

// FormatSpec formats a builtin value according to the format specification
// mini-language.
func FormatSpec(th *Thread, v Value, spec string) string {
	p := Prim(v)

	if spec == "" {
		return Str(th, v)
	}

	sp := parseSpec(spec)

	switch x := p.(type) {
	case bool:
		if sp.typ == 0 {
			return formatStr(Str(th, x), sp)
		}

		return formatInt(boolInt(x), sp)
	case int64:
		return formatInt(x, sp)
	case float64:
		return formatFloat(x, sp)
	case string:
		return formatStr(x, sp)
	}

	Raise(TypeError, "unsupported format string passed to %s.__format__", TypeName(v))

	return ""
}

func formatStr(s string, sp formatSpec) string {
	switch sp.typ {
	case 0, 's':
	default:
		Raise(ValueError, "Unknown format code '%c' for object of type 'str'", sp.typ)
	}

	if sp.sign != 0 {
		Raise(ValueError, "Sign not allowed in string format specifier")
	}

	if sp.align == '=' {
		Raise(ValueError, "'=' alignment not allowed in string format specifier")
	}

	if sp.prec >= 0 && runeCount(s) > sp.prec {
		s = string([]rune(s)[:sp.prec])
	}

	return align(s, "", sp, '<')
}

func formatInt(n int64, sp formatSpec) string {
	var digits, prefix string

	u := uint64(n)
	if n < 0 {
		u = uint64(-n)
	}

	switch sp.typ {
	case 0, 'd', 'n':
		digits = strconv.FormatUint(u, 10)
	case 'b':
		digits, prefix = strconv.FormatUint(u, 2), "0b"
	case 'o':
		digits, prefix = strconv.FormatUint(u, 8), "0o"
	case 'x':
		digits, prefix = strconv.FormatUint(u, 16), "0x"
	case 'X':
		digits, prefix = strings.ToUpper(strconv.FormatUint(u, 16)), "0X"
	case 'c':
		if sp.sign != 0 {
			Raise(ValueError, "Sign not allowed with integer format specifier 'c'")
		}

		if n < 0 || n > utf8.MaxRune {
			Raise(OverflowError, "%%c arg not in range(0x110000)")
		}

		return align(string(rune(n)), "", sp, '<')
	case 'e', 'E', 'f', 'F', 'g', 'G', '%':
		return formatFloat(float64(n), sp)
	default:
		Raise(ValueError, "Unknown format code '%c' for object of type 'int'", sp.typ)
	}

	if sp.prec >= 0 {
		Raise(ValueError, "Precision not allowed in integer format specifier")
	}

	if sp.group != 0 {
		size := 3
		if sp.typ != 0 && sp.typ != 'd' && sp.typ != 'n' {
			if sp.group == ',' {
				Raise(ValueError, "Cannot specify ',' with '%c'.", sp.typ)
			}

			size = 4
		}

		digits = group(digits, sp.group, size)
	}

	if !sp.alt {
		prefix = ""
	}

	return align(digits, sign(n < 0, sp)+prefix, sp, '>')
}

//nolint:cyclop
func formatFloat(f float64, sp formatSpec) string {
	neg := math.Signbit(f) && !math.IsNaN(f)
	if neg {
		f = -f

		if sp.z && f == 0 {
			neg = false
		}
	}

	prec := sp.prec

	var body string

	switch typ := sp.typ; typ {
	case 'e', 'E', 'f', 'F', '%':
		if prec < 0 {
			prec = 6
		}

		g := byte('f')
		if typ == 'e' || typ == 'E' {
			g = 'e'
		}

		if typ == '%' {
			f *= 100
		}

		body = strconv.FormatFloat(f, g, prec, 64)
		if sp.alt && prec == 0 {
			body = altPoint(body)
		}

		if typ == '%' {
			body += "%"
		}
	case 'g', 'G', 'n':
		if prec < 0 {
			prec = 6
		}

		body = formatG(f, max(prec, 1), sp.alt)
	case 0:
		if prec < 0 {
			body = FloatRepr(f)
		} else {
			body = formatG(f, max(prec, 1), sp.alt)
			if !strings.ContainsAny(body, ".e") && !math.IsInf(f, 0) && !math.IsNaN(f) {
				body += ".0"
			}
		}
	default:
		Raise(ValueError, "Unknown format code '%c' for object of type 'float'", sp.typ)
	}

	switch {
	case math.IsInf(f, 0):
		body = strings.Replace(body, "+Inf", "inf", 1)
	case math.IsNaN(f):
		body = strings.Replace(body, "NaN", "nan", 1)
	}

	if sp.typ == 'E' || sp.typ == 'F' || sp.typ == 'G' {
		body = strings.ToUpper(body)
	}

	if sp.group != 0 {
		whole, frac := body, ""
		if i := strings.IndexAny(body, ".e%"); i >= 0 {
			whole, frac = body[:i], body[i:]
		}

		if whole != "inf" && whole != "nan" {
			body = group(whole, sp.group, 3) + frac
		}
	}

	return align(body, sign(neg, sp), sp, '>')
}

func formatG(f float64, prec int, alt bool) string {
	if alt {
		return fmt.Sprintf("%#.*g", prec, f)
	}

	return strconv.FormatFloat(f, 'g', prec, 64)
}

func altPoint(s string) string {
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		return s[:i] + "." + s[i:]
	}

	return s + "."
}

func group(digits string, sep byte, size int) string {
	if len(digits) <= size {
		return digits
	}

	var b strings.Builder

	head := len(digits) % size
	if head > 0 {
		b.WriteString(digits[:head])
	}

	for i := head; i < len(digits); i += size {
		if b.Len() > 0 {
			b.WriteByte(sep)
		}

		b.WriteString(digits[i : i+size])
	}

	return b.String()
}

func sign(neg bool, sp formatSpec) string {
	switch {
	case neg:
		return "-"
	case sp.sign == '+':
		return "+"
	case sp.sign == ' ':
		return " "
	}

	return ""
}

func align(body, prefix string, sp formatSpec, def byte) string {
	a := sp.align
	if a == 0 {
		a = def
	}

	n := sp.width - runeCount(prefix) - runeCount(body)
	if n <= 0 {
		return prefix + body
	}

	fill := strings.Repeat(sp.fill, n)

	switch a {
	case '<':
		return prefix + body + fill
	case '>':
		return fill + prefix + body
	case '=':
		return prefix + fill + body
	}

	left := strings.Repeat(sp.fill, n/2)

	return left + prefix + body + strings.Repeat(sp.fill, n-n/2)
}

// FormatString implements str.format. Positional fields index args and
// named fields are looked up in mapping.
func FormatString(th *Thread, s string, args []Value, mapping Value) string {
	f := &formatter{th: th, args: args, mapping: mapping}

	return f.expand(s, 2)
}

type formatter struct {
	th      *Thread
	args    []Value
	mapping Value
	next    int
	manual  bool
	auto    bool
}

//nolint:cyclop
func (f *formatter) expand(s string, depth int) string {
	if depth == 0 {
		Raise(ValueError, "Max string recursion exceeded")
	}

	var b strings.Builder

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch c {
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				b.WriteByte('{')
				i++

				continue
			}

			end := matching(s, i)
			if end < 0 {
				Raise(ValueError, "expected '}' before end of string")
			}

			b.WriteString(f.field(s[i+1:end], depth))
			i = end
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				b.WriteByte('}')
				i++

				continue
			}

			Raise(ValueError, "Single '}' encountered in format string")
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

func matching(s string, start int) int {
	level := 0

	for i := start; i < len(s); i++ {
		switch s[i] {
		case '[':
			for i < len(s) && s[i] != ']' {
				i++
			}
		case '{':
			level++
		case '}':
			level--
			if level == 0 {
				return i
			}
		}
	}

	return -1
}

func (f *formatter) field(s string, depth int) string {
	name, spec := s, ""
	conv := byte(0)

	bracket := false

	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '[':
			bracket = true
		case c == ']':
			bracket = false
		case bracket:
		case c == '!':
			name = s[:i]
			rest := s[i+1:]

			if rest == "" || (len(rest) > 1 && rest[1] != ':') {
				Raise(ValueError, "expected ':' after conversion specifier")
			}

			conv = rest[0]
			if len(rest) > 1 {
				spec = rest[2:]
			}

			i = len(s)
		case c == ':':
			name, spec = s[:i], s[i+1:]
			i = len(s)
		}
	}

	v := f.resolve(name)

	switch conv {
	case 0:
	case 'r':
		v = Repr(f.th, v)
	case 's':
		v = Str(f.th, v)
	case 'a':
		v = ASCII(f.th, v)
	default:
		Raise(ValueError, "Unknown conversion specifier %c", conv)
	}

	if strings.Contains(spec, "{") {
		spec = f.expand(spec, depth-1)
	}

	return Format(f.th, v, spec)
}

//nolint:cyclop
func (f *formatter) resolve(field string) Value {
	i := strings.IndexAny(field, ".[")

	first, rest := field, ""
	if i >= 0 {
		first, rest = field[:i], field[i:]
	}

	var v Value

	if first == "" {
		if f.manual {
			Raise(ValueError, "cannot switch from manual field specification to automatic field numbering")
		}

		f.auto = true
		v = f.positional(f.next)
		f.next++
	} else if n, err := strconv.Atoi(first); err == nil {
		if f.auto {
			Raise(ValueError, "cannot switch from automatic field numbering to manual field specification")
		}

		f.manual = true
		v = f.positional(n)
	} else {
		if f.mapping == nil {
			panic(NewException(KeyError, first))
		}

		v = GetItem(f.th, f.mapping, first)
	}

	for rest != "" {
		switch rest[0] {
		case '.':
			j := strings.IndexAny(rest[1:], ".[")
			if j < 0 {
				j = len(rest) - 1
			}

			name := rest[1 : j+1]
			if name == "" {
				Raise(ValueError, "Empty attribute in format string")
			}

			v = GuardedGet(f.th, v, name)
			rest = rest[j+1:]
		case '[':
			j := strings.IndexByte(rest, ']')
			if j < 0 {
				Raise(ValueError, "Missing ']' in format string")
			}

			key := rest[1:j]
			if key == "" {
				Raise(ValueError, "Empty attribute in format string")
			}

			if n, err := strconv.Atoi(key); err == nil {
				v = GetItem(f.th, v, int64(n))
			} else {
				v = GetItem(f.th, v, key)
			}

			rest = rest[j+1:]
		default:
			Raise(ValueError, "Only '.' or '[' may follow ']' in format field specifier")
		}
	}

	return v
}

func (f *formatter) positional(n int) Value {
	if n >= len(f.args) {
		Raise(IndexError, "Replacement index %d out of range for positional args tuple", n)
	}

	return f.args[n]
}

// ASCII is repr with non-ASCII characters escaped.
func ASCII(th *Thread, v Value) string {
	s := Repr(th, v)
	if isASCII(s) {
		return s
	}

	var b strings.Builder

	for _, r := range s {
		switch {
		case r < utf8.RuneSelf:
			b.WriteRune(r)
		case r <= 0xff:
			fmt.Fprintf(&b, "\\x%02x", r)
		case r <= 0xffff:
			fmt.Fprintf(&b, "\\u%04x", r)
		default:
			fmt.Fprintf(&b, "\\U%08x", r)
		}
	}

	return b.String()
}

// PercentFormat implements printf-style formatting with the % operator.
//
//nolint:funlen,gocognit,cyclop
func PercentFormat(th *Thread, s string, v Value) string {
	var args []Value

	mapping := false

	switch x := Prim(v).(type) {
	case Tuple:
		args = x
	case string, Bytes:
		args = []Value{v}
	default:
		args = []Value{v}

		if _, ok := TypeOf(v).Lookup("__getitem__"); ok {
			mapping = true
		}
	}

	next := 0
	arg := func() Value {
		if next >= len(args) {
			Raise(TypeError, "not enough arguments for format string")
		}

		next++

		return args[next-1]
	}

	var b strings.Builder

	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			b.WriteByte(s[i])

			continue
		}

		start := i
		i++

		if i >= len(s) {
			Raise(ValueError, "incomplete format")
		}

		var item Value

		if s[i] == '(' {
			j := strings.IndexByte(s[i:], ')')
			if j < 0 {
				Raise(ValueError, "incomplete format key")
			}

			if !mapping {
				Raise(TypeError, "format requires a mapping")
			}

			item = GetItem(th, v, s[i+1:i+j])
			i += j + 1
		}

		sp := formatSpec{fill: " ", prec: -1}
		left := false

	flags:
		for ; i < len(s); i++ {
			switch s[i] {
			case '-':
				left = true
			case '+':
				sp.sign = '+'
			case ' ':
				if sp.sign == 0 {
					sp.sign = ' '
				}
			case '#':
				sp.alt = true
			case '0':
				sp.zero = true
			default:
				break flags
			}
		}

		if i < len(s) && s[i] == '*' {
			sp.width = toIndex(th, arg())
			if sp.width < 0 {
				left = true
				sp.width = -sp.width
			}
			i++
		} else {
			for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
				sp.width = sp.width*10 + int(s[i]-'0')
			}
		}

		if i < len(s) && s[i] == '.' {
			i++
			sp.prec = 0

			if i < len(s) && s[i] == '*' {
				sp.prec = max(toIndex(th, arg()), 0)
				i++
			} else {
				for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
					sp.prec = sp.prec*10 + int(s[i]-'0')
				}
			}
		}

		for i < len(s) && (s[i] == 'h' || s[i] == 'l' || s[i] == 'L') {
			i++
		}

		if i >= len(s) {
			Raise(ValueError, "incomplete format")
		}

		c := s[i]
		if c == '%' && i == start+1 {
			b.WriteByte('%')

			continue
		}

		if item == nil {
			item = arg()
		}

		switch {
		case left:
			sp.align = '<'
		case sp.zero && strings.IndexByte("diouxXeEfFgG", c) >= 0:
			sp.fill, sp.align = "0", '='
		default:
			sp.align = '>'
		}

		switch c {
		case 'd', 'i', 'u':
			sp.typ = 'd'
			b.WriteString(percentInt(th, item, sp, c))
		case 'o', 'x', 'X':
			sp.typ = c
			b.WriteString(percentInt(th, item, sp, c))
		case 'e', 'E', 'f', 'F', 'g', 'G':
			sp.typ = c

			f, ok := Number(item)
			if !ok {
				Raise(TypeError, "must be real number, not %s", TypeName(item))
			}

			b.WriteString(formatFloat(toFloat64(f), sp))
		case 'c':
			var r string

			switch x := Prim(item).(type) {
			case int64:
				if x < 0 || x > utf8.MaxRune {
					Raise(OverflowError, "%%c arg not in range(0x110000)")
				}

				r = string(rune(x))
			case string:
				if runeCount(x) != 1 {
					Raise(TypeError, "%%c requires an int or a unicode character, not a string of length %d", runeCount(x))
				}

				r = x
			default:
				Raise(TypeError, "%%c requires an int or a unicode character, not %s", TypeName(item))
			}

			b.WriteString(align(r, "", sp, '>'))
		case 's', 'r', 'a':
			var str string

			switch c {
			case 's':
				if x, ok := Prim(item).(Bytes); ok {
					str = string(x)
				} else {
					str = Str(th, item)
				}
			case 'r':
				str = Repr(th, item)
			default:
				str = ASCII(th, item)
			}

			if sp.prec >= 0 && runeCount(str) > sp.prec {
				str = string([]rune(str)[:sp.prec])
			}

			b.WriteString(align(str, "", sp, '>'))
		default:
			Raise(ValueError, "unsupported format character '%c' (0x%x) at index %d", c, c, i)
		}
	}

	if next < len(args) && !mapping {
		Raise(TypeError, "not all arguments converted during string formatting")
	}

	return b.String()
}

func percentInt(th *Thread, v Value, sp formatSpec, c byte) string {
	n, ok := Number(v)
	if !ok {
		i, ok := AsIndex(th, v)
		if !ok {
			Raise(TypeError, "%%%c format: a real number is required, not %s", c, TypeName(v))
		}

		n = i
	}

	var i int64

	switch x := n.(type) {
	case int64:
		i = x
	case float64:
		if c != 'd' {
			Raise(TypeError, "%%%c format: an integer is required, not float", c)
		}

		i = FloatToInt(x)
	}

	if sp.prec < 0 {
		return formatInt(i, sp)
	}

	digits := strings.TrimPrefix(formatInt(i, formatSpec{fill: " ", prec: -1, typ: sp.typ}), "-")
	if len(digits) < sp.prec {
		digits = strings.Repeat("0", sp.prec-len(digits)) + digits
	}

	prefix := ""
	if sp.alt && c != 'd' {
		prefix = "0" + string(c)
	}

	sp.prec = -1

	return align(digits, sign(i < 0, sp)+prefix, sp, '>')
}

func toFloat64(v Value) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case float64:
		return x
	}

	return 0
}
