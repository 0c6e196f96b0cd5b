// Released under an MIT license. See LICENSE.

package modules

import (
	"encoding/base64"
	"encoding/hex"

	"github.com/michaelmacinnis/enclave/internal/engine/object"
)

// The encoding package holds its codecs in submodules. A policy exposes
// them on the package with a submodule entry, or they are imported by
// their full path.
func init() {
	register("encoding", func() *object.Module {
		return module("encoding", "Binary-to-text codecs.", nil)
	})

	register("encoding.base64", func() *object.Module {
		return module("encoding.base64", "Base64 codecs.", map[string]object.Native{
			"b64decode":         decoder("b64decode", base64.StdEncoding),
			"b64encode":         encoder64("b64encode", base64.StdEncoding),
			"urlsafe_b64decode": decoder("urlsafe_b64decode", base64.URLEncoding),
			"urlsafe_b64encode": encoder64("urlsafe_b64encode", base64.URLEncoding),
		})
	})

	register("encoding.hex", func() *object.Module {
		return module("encoding.hex", "Hexadecimal codecs.", map[string]object.Native{
			"decode": hexDecode,
			"encode": hexEncode,
		})
	})
}

// octets accepts bytes or an ASCII str.
func octets(th *object.Thread, name string, v object.Value) []byte {
	switch s := object.Prim(v).(type) {
	case object.Bytes:
		return []byte(s)
	case string:
		for _, r := range s {
			if r > 0x7f {
				object.Raise(object.ValueError, "string argument should contain only ASCII characters")
			}
		}

		return []byte(s)
	}

	object.Raise(object.TypeError, "%s() argument must be bytes or ASCII str, not %s", name, object.TypeName(v))

	return nil
}

func encoder64(name string, enc *base64.Encoding) object.Native {
	return func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		a := object.Args(name, args, kw, 1, "s")

		return object.Bytes(enc.EncodeToString(octets(th, name, a[0])))
	}
}

func decoder(name string, enc *base64.Encoding) object.Native {
	return func(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
		a := object.Args(name, args, kw, 1, "s")

		b, err := enc.DecodeString(string(octets(th, name, a[0])))
		if err != nil {
			object.Raise(object.ValueError, "Invalid base64-encoded string: %s", err.Error())
		}

		return object.Bytes(b)
	}
}

func hexEncode(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	a := object.Args("encode", args, kw, 1, "data")

	b, ok := object.Prim(a[0]).(object.Bytes)
	if !ok {
		object.Raise(object.TypeError, "encode() argument must be bytes, not %s", object.TypeName(a[0]))
	}

	return hex.EncodeToString([]byte(b))
}

func hexDecode(th *object.Thread, args []object.Value, kw []object.Keyword) object.Value {
	a := object.Args("decode", args, kw, 1, "s")

	b, err := hex.DecodeString(string(octets(th, "decode", a[0])))
	if err != nil {
		object.Raise(object.ValueError, "non-hexadecimal number found in decode() arg: %s", err.Error())
	}

	return object.Bytes(b)
}
