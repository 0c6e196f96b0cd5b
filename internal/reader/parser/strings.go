// Released under an MIT license. See LICENSE.

package parser

import (
	"strconv"
	"strings"

	"github.com/michaelmacinnis/adapted"
	"github.com/michaelmacinnis/enclave/internal/common/struct/loc"
	"github.com/michaelmacinnis/enclave/internal/common/struct/token"
	"github.com/michaelmacinnis/enclave/internal/reader/ast"
	"github.com/michaelmacinnis/enclave/internal/reader/lexer"
)

// strings parses one or more adjacent string literals. Adjacent literals are
// concatenated; any f-string in the run makes the result a JoinedStr.
func (p *parser) strings() ast.Expr {
	pos := p.at()

	var (
		bytes  bool
		format bool
		parts  []ast.Expr
		text   strings.Builder
	)

	flush := func() {
		if text.Len() > 0 {
			parts = append(parts, &ast.Constant{Pos: pos, Value: text.String()})
			text.Reset()
		}
	}

	first := true

	for p.peek().Is(token.String, token.Bytes, token.FString) {
		t := p.consume()

		isBytes := t.Is(token.Bytes)
		if !first && isBytes != bytes {
			p.failAt(pos, "cannot mix bytes and nonbytes literals")
		}

		first = false
		bytes = isBytes

		body, raw := split(t.Value())

		if !t.Is(token.FString) {
			s, err := decode(body, raw, isBytes)
			if err != nil {
				p.failAt(ast.Pos{At: t.Source()}, "%s", err.Error())
			}

			text.WriteString(s)

			continue
		}

		format = true

		for _, part := range p.fstring(t.Source(), body, raw) {
			if c, ok := part.(*ast.Constant); ok {
				text.WriteString(c.Value.(string))

				continue
			}

			flush()

			parts = append(parts, part)
		}
	}

	if bytes {
		return &ast.Constant{Pos: pos, Value: ast.Bytes(text.String())}
	}

	if !format {
		return &ast.Constant{Pos: pos, Value: text.String()}
	}

	flush()

	return &ast.JoinedStr{Pos: pos, Values: parts}
}

// fstring splits the body of an f-string into literal text and replacement
// fields.
//
//nolint:funlen,gocognit,gocyclo
func (p *parser) fstring(at loc.T, body string, raw bool) []ast.Expr {
	pos := ast.Pos{At: at}

	var (
		parts []ast.Expr
		text  strings.Builder
	)

	literal := func() {
		if text.Len() == 0 {
			return
		}

		s, err := decode(text.String(), raw, false)
		if err != nil {
			p.failAt(pos, "%s", err.Error())
		}

		parts = append(parts, &ast.Constant{Pos: pos, Value: s})
		text.Reset()
	}

	for i := 0; i < len(body); i++ {
		c := body[i]

		switch {
		case c == '\\' && i+1 < len(body):
			text.WriteByte(c)
			text.WriteByte(body[i+1])
			i++
		case c == '{' && i+1 < len(body) && body[i+1] == '{':
			text.WriteByte('{')
			i++
		case c == '}' && i+1 < len(body) && body[i+1] == '}':
			text.WriteByte('}')
			i++
		case c == '}':
			p.failAt(pos, "f-string: single '}' is not allowed")
		case c == '{':
			literal()

			end, field := p.replacementField(pos, body, i+1, raw)

			parts = append(parts, field...)
			i = end
		default:
			text.WriteByte(c)
		}
	}

	literal()

	return parts
}

// replacementField parses the field starting at body[start] and returns the
// index of its closing brace along with the nodes it produces.
//
//nolint:funlen,gocognit,gocyclo
func (p *parser) replacementField(pos ast.Pos, body string, start int, raw bool) (int, []ast.Expr) {
	depth := 0
	i := start

	var quote byte

	end := -1

	for ; i < len(body) && end < 0; i++ {
		c := body[i]

		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == '}' && depth > 0:
			depth--
		case depth == 0 && (c == '}' || c == ':'):
			end = i
		case depth == 0 && c == '!' && i+1 < len(body) && body[i+1] != '=':
			end = i
		case depth == 0 && c == '=' && i+1 < len(body) && strings.IndexByte("!:}", body[i+1]) >= 0 &&
			i > start && strings.IndexByte("=!<>", body[i-1]) < 0:
			end = i
		}
	}

	if end < 0 {
		p.failAt(pos, "f-string: expecting '}'")
	}

	source := body[start:end]
	if strings.TrimSpace(source) == "" {
		p.failAt(pos, "f-string: empty expression not allowed")
	}

	var parts []ast.Expr

	i = end

	field := &ast.FormattedValue{Pos: pos, Value: p.subexpression(pos, source)}

	// Self-documenting expressions emit their text verbatim and default
	// to repr unless a format spec is given.
	debug := body[i] == '='
	if debug {
		parts = append(parts, &ast.Constant{Pos: pos, Value: source + "="})
		i++
	}

	if body[i] == '!' {
		if i+1 >= len(body) || strings.IndexByte("rsa", body[i+1]) < 0 {
			p.failAt(pos, "f-string: invalid conversion character")
		}

		field.Conversion = rune(body[i+1])
		i += 2
	}

	if i < len(body) && body[i] == ':' {
		depth = 0
		j := i + 1

		for ; j < len(body); j++ {
			if body[j] == '{' {
				depth++
			} else if body[j] == '}' {
				if depth == 0 {
					break
				}

				depth--
			}
		}

		spec := p.fstring(pos.At, body[i+1:j], raw)
		field.Spec = &ast.JoinedStr{Pos: pos, Values: spec}

		i = j
	} else if debug && field.Conversion == 0 {
		field.Conversion = 'r'
	}

	if i >= len(body) || body[i] != '}' {
		p.failAt(pos, "f-string: expecting '}'")
	}

	return i, append(parts, field)
}

// subexpression parses the expression inside a replacement field.
func (p *parser) subexpression(pos ast.Pos, source string) ast.Expr {
	l := lexer.New(pos.At.Name, "("+source+")")

	sub := New(l.Token)
	sub.funcs = p.funcs

	e, err := sub.ParseExpression()
	if err != nil {
		msg := err.Error()
		if pe, ok := err.(*Error); ok {
			msg = pe.Msg
		}

		p.failAt(pos, "f-string: %s", msg)
	}

	return e
}

// split separates a string token's body from its prefix and quotes.
func split(s string) (body string, raw bool) {
	i := strings.IndexAny(s, `'"`)
	prefix := strings.ToLower(s[:i])
	s = s[i:]

	n := 1
	if len(s) >= 6 && (strings.HasPrefix(s, `"""`) || strings.HasPrefix(s, `'''`)) {
		n = 3
	}

	return s[n : len(s)-n], strings.Contains(prefix, "r")
}

// decode interprets the escape sequences in a string literal body.
// Sequences the language does not define are kept verbatim.
//
//nolint:funlen,gocognit
func decode(body string, raw, bytes bool) (string, error) {
	if raw || !strings.Contains(body, `\`) {
		return body, nil
	}

	var b strings.Builder

	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)

			continue
		}

		i++
		c = body[i]

		switch {
		case c == '\n':
			// Line continuation inside a literal.
		case c == '\r':
			if i+1 < len(body) && body[i+1] == '\n' {
				i++
			}
		case strings.IndexByte(`abfnrtv\'"`, c) >= 0:
			b.WriteByte('\\')
			b.WriteByte(c)
		case c >= '0' && c <= '7':
			j := i
			for j < len(body) && j < i+3 && body[j] >= '0' && body[j] <= '7' {
				j++
			}

			v, _ := strconv.ParseUint(body[i:j], 8, 32)

			if bytes {
				if v > 255 {
					return "", errorString("invalid octal escape in bytes literal")
				}

				b.WriteString(`\` + strconv.FormatUint(v+0o1000, 8)[1:])
			} else {
				b.WriteString(`\u` + hex4(v))
			}

			i = j - 1
		case c == 'x':
			if i+2 >= len(body) {
				return "", errorString("truncated \\xXX escape")
			}

			if bytes {
				b.WriteString(`\x` + body[i+1:i+3])
			} else {
				b.WriteString(`\u00` + body[i+1:i+3])
			}

			i += 2
		case (c == 'u' || c == 'U') && !bytes:
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == 'N' && !bytes:
			return "", errorString("named unicode escapes are not supported")
		default:
			b.WriteString(`\\`)
			b.WriteByte(c)
		}
	}

	s, err := adapted.ActualBytes(b.String())
	if err != nil {
		return "", errorString("invalid escape sequence")
	}

	return s, nil
}

func hex4(v uint64) string {
	s := strconv.FormatUint(v, 16)

	return strings.Repeat("0", 4-len(s)) + s
}

type errorString string

func (e errorString) Error() string {
	return string(e)
}
