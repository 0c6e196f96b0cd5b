// Released under an MIT license. See LICENSE.

package object

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/michaelmacinnis/enclave/internal/common/validate"
)

func selfStr(self Value) string {
	s, ok := Prim(self).(string)
	if !ok {
		Raise(TypeError, "descriptor requires a 'str' object but received a '%s'", TypeName(self))
	}

	return s
}

// StrArg returns v as a string or raises TypeError.
func StrArg(name string, v Value) string {
	s, ok := Prim(v).(string)
	if !ok {
		Raise(TypeError, "%s() argument must be str, not %s", name, TypeName(v))
	}

	return s
}

func strMethod(name string, fn func(th *Thread, s string, args []Value, kw []Keyword) Value) {
	method(StrType, name, func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return fn(th, selfStr(self), args, kw)
	})
}

// window returns the part of s between the optional start and end
// positions, counted in code points, and the offset of its first rune.
func window(th *Thread, s string, start, end Value) ([]rune, int) {
	r := []rune(s)
	lo, hi, _ := Indices(th, &Slice{Start: start, Stop: end}, len(r))

	if hi < lo {
		return nil, lo
	}

	return r[lo:hi], lo
}

func runeIndex(r []rune, sub []rune, last bool) int {
	n, m := len(r), len(sub)
	if m > n {
		return -1
	}

	match := func(i int) bool {
		for j := range sub {
			if r[i+j] != sub[j] {
				return false
			}
		}

		return true
	}

	if last {
		for i := n - m; i >= 0; i-- {
			if match(i) {
				return i
			}
		}

		return -1
	}

	for i := 0; i <= n-m; i++ {
		if match(i) {
			return i
		}
	}

	return -1
}

func find(th *Thread, s string, args []Value, name string, last bool) int {
	a := validate.Fixed(args, 1, 3)
	sub := StrArg(name, a[0])

	if a[1] != nil && a[1] != None && toIndex(th, a[1]) > runeCount(s) {
		return -1
	}

	w, off := window(th, s, a[1], a[2])
	if w == nil && sub != "" {
		return -1
	}

	i := runeIndex(w, []rune(sub), last)
	if i < 0 {
		return -1
	}

	return i + off
}

func splitWhitespace(s string, limit int, right bool) []Value {
	fields := []Value{}

	if right {
		for {
			s = strings.TrimRightFunc(s, unicode.IsSpace)
			if s == "" {
				return fields
			}

			i := strings.LastIndexFunc(s, unicode.IsSpace)
			if limit == 0 || i < 0 {
				return append([]Value{s}, fields...)
			}

			_, n := utf8.DecodeRuneInString(s[i:])
			fields = append([]Value{s[i+n:]}, fields...)
			s = s[:i]
			limit--
		}
	}

	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if s == "" {
			return fields
		}

		i := strings.IndexFunc(s, unicode.IsSpace)
		if limit == 0 || i < 0 {
			return append(fields, s)
		}

		fields = append(fields, s[:i])
		s = s[i:]
		limit--
	}
}

func split(th *Thread, s string, args []Value, kw []Keyword, right bool) Value {
	a := Args("split", args, kw, 0, "sep", "maxsplit")

	limit := -1
	if a[1] != nil {
		limit = toIndex(th, a[1])
	}

	if a[0] == nil || a[0] == None {
		return NewList(splitWhitespace(s, limit, right)...)
	}

	sep := StrArg("split", a[0])
	if sep == "" {
		Raise(ValueError, "empty separator")
	}

	var parts []string

	switch {
	case limit < 0:
		parts = strings.Split(s, sep)
	case right:
		parts = rsplitN(s, sep, limit+1)
	default:
		parts = strings.SplitN(s, sep, limit+1)
	}

	items := make([]Value, len(parts))
	for i, p := range parts {
		items[i] = p
	}

	return NewList(items...)
}

func rsplitN(s, sep string, n int) []string {
	parts := []string{}

	for len(parts) < n-1 {
		i := strings.LastIndex(s, sep)
		if i < 0 {
			break
		}

		parts = append([]string{s[i+len(sep):]}, parts...)
		s = s[:i]
	}

	return append([]string{s}, parts...)
}

func affix(th *Thread, s string, args []Value, name string, test func(string, string) bool) Value {
	a := validate.Fixed(args, 1, 3)

	w, _ := window(th, s, a[1], a[2])
	if w == nil {
		w = []rune{}
	}

	sub := string(w)

	if t, ok := a[0].(Tuple); ok {
		for _, p := range t {
			if test(sub, StrArg(name, p)) {
				return true
			}
		}

		return false
	}

	p, ok := Prim(a[0]).(string)
	if !ok {
		Raise(TypeError, "%s first arg must be str or a tuple of str, not %s", name, TypeName(a[0]))
	}

	return test(sub, p)
}

func strip(s string, args []Value, name string, left, right bool) Value {
	a := validate.Fixed(args, 0, 1)

	f := unicode.IsSpace
	if a[0] != nil && a[0] != None {
		chars := StrArg(name, a[0])
		f = func(r rune) bool {
			return strings.ContainsRune(chars, r)
		}
	}

	if left {
		s = strings.TrimLeftFunc(s, f)
	}

	if right {
		s = strings.TrimRightFunc(s, f)
	}

	return s
}

func pad(th *Thread, s string, args []Value, name string, align byte) Value {
	a := validate.Fixed(args, 1, 2)
	width := toIndex(th, a[0])

	fill := " "
	if a[1] != nil {
		fill = StrArg(name, a[1])
		if runeCount(fill) != 1 {
			Raise(TypeError, "The fill character must be exactly one character long")
		}
	}

	return Align(s, width, fill, align)
}

// Align pads s to width with fill. Align is '<', '>' or '^'.
func Align(s string, width int, fill string, align byte) string {
	n := width - runeCount(s)
	if n <= 0 {
		return s
	}

	switch align {
	case '<':
		return s + strings.Repeat(fill, n)
	case '>':
		return strings.Repeat(fill, n) + s
	}

	left := n / 2
	if n%2 == 1 && width%2 == 1 {
		left++
	}

	return strings.Repeat(fill, left) + s + strings.Repeat(fill, n-left)
}

func predicate(name string, empty bool, f func(rune) bool) {
	strMethod(name, func(th *Thread, s string, args []Value, kw []Keyword) Value {
		validate.Fixed(args, 0, 0)

		if s == "" {
			return empty
		}

		for _, r := range s {
			if !f(r) {
				return false
			}
		}

		return true
	})
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
		return true
	}

	return false
}

func title(s string) string {
	var b strings.Builder

	prev := false

	for _, r := range s {
		switch {
		case unicode.IsLetter(r) && !prev:
			b.WriteRune(unicode.ToTitle(r))
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}

		prev = unicode.IsLetter(r)
	}

	return b.String()
}

func isIdentifier(s string) bool {
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}

		if i > 0 && (unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r)) {
			continue
		}

		return false
	}

	return s != ""
}

// Encode encodes s with the named codec.
func Encode(s, encoding string) Bytes {
	switch strings.ReplaceAll(strings.ToLower(encoding), "_", "-") {
	case "utf-8", "utf8", "":
		return Bytes(s)
	case "ascii":
		for i, r := range s {
			if r >= 0x80 {
				Raise(ValueError, "'ascii' codec can't encode character %s in position %d: ordinal not in range(128)", QuoteString(string(r)), utf8.RuneCountInString(s[:i]))
			}
		}

		return Bytes(s)
	case "latin-1", "latin1", "iso-8859-1":
		b := make([]byte, 0, len(s))

		for i, r := range s {
			if r > 0xff {
				Raise(ValueError, "'latin-1' codec can't encode character %s in position %d: ordinal not in range(256)", QuoteString(string(r)), utf8.RuneCountInString(s[:i]))
			}

			b = append(b, byte(r))
		}

		return Bytes(b)
	}

	Raise(LookupError, "unknown encoding: %s", encoding)

	return ""
}

// Decode decodes b with the named codec.
func Decode(b Bytes, encoding string) string {
	switch strings.ReplaceAll(strings.ToLower(encoding), "_", "-") {
	case "utf-8", "utf8", "":
		if !utf8.ValidString(string(b)) {
			Raise(ValueError, "'utf-8' codec can't decode bytes: invalid utf-8")
		}

		return string(b)
	case "ascii":
		for i := 0; i < len(b); i++ {
			if b[i] >= 0x80 {
				Raise(ValueError, "'ascii' codec can't decode byte %#x in position %d: ordinal not in range(128)", b[i], i)
			}
		}

		return string(b)
	case "latin-1", "latin1", "iso-8859-1":
		r := make([]rune, len(b))
		for i := 0; i < len(b); i++ {
			r[i] = rune(b[i])
		}

		return string(r)
	}

	Raise(LookupError, "unknown encoding: %s", encoding)

	return ""
}

func expandTabs(s string, size int) string {
	var b strings.Builder

	col := 0

	for _, r := range s {
		switch r {
		case '\t':
			if size > 0 {
				n := size - col%size
				b.WriteString(strings.Repeat(" ", n))
				col += n
			}
		case '\n', '\r':
			b.WriteRune(r)

			col = 0
		default:
			b.WriteRune(r)

			col++
		}
	}

	return b.String()
}

//nolint:funlen,gocognit,cyclop,maintidx
func init() {
	newMethod(StrType, func(th *Thread, args []Value, kw []Keyword) Value {
		c := classOf(th, args[0], "str.__new__")
		a := Args("str", args[1:], kw, 0, "object", "encoding", "errors")

		s := ""

		switch {
		case a[0] == nil:
		case a[1] != nil:
			b, ok := Prim(a[0]).(Bytes)
			if !ok {
				Raise(TypeError, "decoding to str: need a bytes-like object, %s found", TypeName(a[0]))
			}

			s = Decode(b, StrArg("str", a[1]))
		default:
			s = Str(th, a[0])
		}

		return wrap(c, s, StrType)
	})

	strMethod("__str__", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return s
	})

	strMethod("join", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		items := ToSlice(th, one(args))
		parts := make([]string, len(items))

		for i, v := range items {
			p, ok := Prim(v).(string)
			if !ok {
				Raise(TypeError, "sequence item %d: expected str instance, %s found", i, TypeName(v))
			}

			parts[i] = p
		}

		return strings.Join(parts, s)
	})

	strMethod("split", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return split(th, s, args, kw, false)
	})

	strMethod("rsplit", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return split(th, s, args, kw, true)
	})

	strMethod("splitlines", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		a := Args("splitlines", args, kw, 0, "keepends")
		keep := a[0] != nil && Truth(th, a[0])

		lines := []Value{}

		for s != "" {
			i := strings.IndexFunc(s, isLineBreak)
			if i < 0 {
				lines = append(lines, s)

				break
			}

			_, n := utf8.DecodeRuneInString(s[i:])
			if s[i] == '\r' && strings.HasPrefix(s[i:], "\r\n") {
				n = 2
			}

			if keep {
				lines = append(lines, s[:i+n])
			} else {
				lines = append(lines, s[:i])
			}

			s = s[i+n:]
		}

		return NewList(lines...)
	})

	strMethod("strip", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return strip(s, args, "strip", true, true)
	})

	strMethod("lstrip", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return strip(s, args, "lstrip", true, false)
	})

	strMethod("rstrip", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return strip(s, args, "rstrip", false, true)
	})

	strMethod("startswith", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return affix(th, s, args, "startswith", strings.HasPrefix)
	})

	strMethod("endswith", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return affix(th, s, args, "endswith", strings.HasSuffix)
	})

	strMethod("find", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return int64(find(th, s, args, "find", false))
	})

	strMethod("rfind", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return int64(find(th, s, args, "rfind", true))
	})

	strMethod("index", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		i := find(th, s, args, "index", false)
		if i < 0 {
			Raise(ValueError, "substring not found")
		}

		return int64(i)
	})

	strMethod("rindex", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		i := find(th, s, args, "rindex", true)
		if i < 0 {
			Raise(ValueError, "substring not found")
		}

		return int64(i)
	})

	strMethod("count", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 1, 3)
		sub := StrArg("count", a[0])

		w, _ := window(th, s, a[1], a[2])

		return int64(strings.Count(string(w), sub))
	})

	strMethod("replace", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		a := Args("replace", args, kw, 2, "old", "new", "count")

		n := -1
		if a[2] != nil {
			n = toIndex(th, a[2])
		}

		return strings.Replace(s, StrArg("replace", a[0]), StrArg("replace", a[1]), n)
	})

	strMethod("upper", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return strings.ToUpper(s)
	})

	strMethod("lower", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return strings.ToLower(s)
	})

	strMethod("casefold", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return strings.ToLower(strings.ReplaceAll(s, "ß", "ss"))
	})

	strMethod("title", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return title(s)
	})

	strMethod("capitalize", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		if s == "" {
			return s
		}

		r, n := utf8.DecodeRuneInString(s)

		return string(unicode.ToTitle(r)) + strings.ToLower(s[n:])
	})

	strMethod("swapcase", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return strings.Map(func(r rune) rune {
			if unicode.IsUpper(r) {
				return unicode.ToLower(r)
			}

			return unicode.ToUpper(r)
		}, s)
	})

	predicate("isdigit", false, unicode.IsDigit)
	predicate("isdecimal", false, unicode.IsDigit)
	predicate("isnumeric", false, unicode.IsNumber)
	predicate("isalpha", false, unicode.IsLetter)
	predicate("isspace", false, unicode.IsSpace)
	predicate("isprintable", true, unicode.IsPrint)
	predicate("isascii", true, func(r rune) bool {
		return r < utf8.RuneSelf
	})
	predicate("isalnum", false, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsNumber(r)
	})

	strMethod("isupper", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return strings.ToUpper(s) == s && strings.ToLower(s) != s
	})

	strMethod("islower", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return strings.ToLower(s) == s && strings.ToUpper(s) != s
	})

	strMethod("istitle", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return title(s) == s && strings.ToLower(s) != s
	})

	strMethod("isidentifier", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return isIdentifier(s)
	})

	strMethod("center", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return pad(th, s, args, "center", '^')
	})

	strMethod("ljust", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return pad(th, s, args, "ljust", '<')
	})

	strMethod("rjust", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return pad(th, s, args, "rjust", '>')
	})

	strMethod("zfill", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		width := toIndex(th, one(args))

		sign := ""
		if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
			sign, s = s[:1], s[1:]
		}

		return sign + Align(s, width-len(sign), "0", '>')
	})

	strMethod("partition", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		sep := StrArg("partition", one(args))
		if sep == "" {
			Raise(ValueError, "empty separator")
		}

		before, after, ok := strings.Cut(s, sep)
		if !ok {
			return Tuple{s, "", ""}
		}

		return Tuple{before, sep, after}
	})

	strMethod("rpartition", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		sep := StrArg("rpartition", one(args))
		if sep == "" {
			Raise(ValueError, "empty separator")
		}

		i := strings.LastIndex(s, sep)
		if i < 0 {
			return Tuple{"", "", s}
		}

		return Tuple{s[:i], sep, s[i+len(sep):]}
	})

	strMethod("removeprefix", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return strings.TrimPrefix(s, StrArg("removeprefix", one(args)))
	})

	strMethod("removesuffix", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return strings.TrimSuffix(s, StrArg("removesuffix", one(args)))
	})

	strMethod("expandtabs", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		a := Args("expandtabs", args, kw, 0, "tabsize")

		size := 8
		if a[0] != nil {
			size = toIndex(th, a[0])
		}

		return expandTabs(s, size)
	})

	strMethod("encode", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		a := Args("encode", args, kw, 0, "encoding", "errors")

		encoding := "utf-8"
		if a[0] != nil {
			encoding = StrArg("encode", a[0])
		}

		return Encode(s, encoding)
	})

	strMethod("format", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return FormatString(th, s, args, Kwargs(kw))
	})

	strMethod("format_map", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return FormatString(th, s, nil, one(args))
	})

	strMethod("__format__", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		return FormatSpec(th, s, StrArg("format", one(args)))
	})

	strMethod("translate", func(th *Thread, s string, args []Value, kw []Keyword) Value {
		table := one(args)

		var b strings.Builder

		for _, r := range s {
			v, ok := lookupTable(th, table, int64(r))
			if !ok {
				b.WriteRune(r)

				continue
			}

			switch x := Prim(v).(type) {
			case NoneType:
			case string:
				b.WriteString(x)
			case int64:
				b.WriteRune(rune(x))
			default:
				Raise(TypeError, "character mapping must return integer, None or str")
			}
		}

		return b.String()
	})

	maketrans := define(StrType, "maketrans", func(th *Thread, args []Value, kw []Keyword) Value {
		a := validate.Fixed(args, 1, 3)
		d := NewDict()

		if a[1] == nil {
			src, ok := Prim(a[0]).(*Dict)
			if !ok {
				Raise(TypeError, "if you give only one argument to maketrans it must be a dict")
			}

			for _, item := range src.Items() {
				k := item.Key
				if s, ok := k.(string); ok && runeCount(s) == 1 {
					k = int64([]rune(s)[0])
				}

				d.Set(th, k, item.Value)
			}

			return d
		}

		from, to := []rune(StrArg("maketrans", a[0])), []rune(StrArg("maketrans", a[1]))
		if len(from) != len(to) {
			Raise(ValueError, "the first two maketrans arguments must have equal length")
		}

		for i := range from {
			d.Set(th, int64(from[i]), int64(to[i]))
		}

		if a[2] != nil {
			for _, r := range StrArg("maketrans", a[2]) {
				d.Set(th, int64(r), None)
			}
		}

		return d
	})
	maketrans.Static = true
	StrType.Dict.SetStr("maketrans", &StaticMethod{Func: maketrans})
}

func lookupTable(th *Thread, table, key Value) (v Value, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if e, isExc := r.(*Exception); isExc && e.Matches(LookupError) {
				v, ok = nil, false

				return
			}

			panic(r)
		}
	}()

	return GetItem(th, table, key), true
}
