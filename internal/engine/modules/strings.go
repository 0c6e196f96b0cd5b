// Released under an MIT license. See LICENSE.

package modules

import (
	"strings"

	"github.com/michaelmacinnis/enclave/internal/engine/object"
)

const (
	lowercase   = "abcdefghijklmnopqrstuvwxyz"
	uppercase   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits      = "0123456789"
	punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
	whitespace  = " \t\n\r\v\f"
)

func init() {
	register("string", func() *object.Module {
		m := module("string", "Common string constants.", map[string]object.Native{
			"capwords": capwords,
		})

		for k, v := range map[string]string{
			"ascii_letters":   lowercase + uppercase,
			"ascii_lowercase": lowercase,
			"ascii_uppercase": uppercase,
			"digits":          digits,
			"hexdigits":       digits + "abcdefABCDEF",
			"octdigits":       "01234567",
			"punctuation":     punctuation,
			"printable":       digits + lowercase + uppercase + punctuation + whitespace,
			"whitespace":      whitespace,
		} {
			m.Dict.SetStr(k, v)
		}

		return m
	})
}

func capwords(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	a := object.Args("capwords", args, kw, 1, "s", "sep")

	s := object.StrArg("capwords", a[0])

	var words []string

	sep := " "

	if a[1] == nil || a[1] == object.None {
		words = strings.Fields(s)
	} else {
		sep = object.StrArg("capwords", a[1])
		words = strings.Split(s, sep)
	}

	for i, w := range words {
		if w == "" {
			continue
		}

		r := []rune(strings.ToLower(w))
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}

	return strings.Join(words, sep)
}
