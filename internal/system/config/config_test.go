// Released under an MIT license. See LICENSE.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/michaelmacinnis/enclave/internal/engine/gate"
	"github.com/michaelmacinnis/enclave/internal/engine/guard"
)

const yamlPolicy = `
version: 1
guard:
  blocked: [__mro__, __loader__, secret]
  aliases: {__dict__: __loader__}
imports:
  allowed: [math, "encoding.*"]
  submodules: {encoding: [base64]}
  relative: true
`

const tomlPolicy = `
version = 1

[guard]
blocked = ["__mro__", "__loader__", "secret"]

[guard.aliases]
__dict__ = "__loader__"

[imports]
allowed = ["math", "encoding.*"]
relative = true

[imports.submodules]
encoding = ["base64"]
`

func TestParse(t *testing.T) {
	for name, tc := range map[string]struct {
		data   string
		format Format
	}{
		"yaml": {yamlPolicy, YAML},
		"toml": {tomlPolicy, TOML},
	} {
		t.Run(name, func(t *testing.T) {
			p, err := Parse([]byte(tc.data), tc.format)
			require.NoError(t, err)

			require.Equal(t, 1, p.Guard.Version())
			require.Error(t, p.Guard.Check(guard.Instance, "secret"))
			require.Error(t, p.Guard.Check(guard.Module, "__dict__"))
			require.NoError(t, p.Guard.Check(guard.Instance, "__globals__"))

			require.ElementsMatch(t, guard.DefaultSpec().ForeignOnly, p.Guard.Spec().ForeignOnly)

			require.True(t, p.Imports.Allowed("encoding.hex"))
			require.False(t, p.Imports.Allowed("os"))
			require.True(t, p.Imports.Relative())
			require.Equal(t, []string{"base64"}, p.Imports.Submodules("encoding"))
		})
	}
}

func TestDefaults(t *testing.T) {
	p, err := Parse([]byte("version: 1\n"), YAML)
	require.NoError(t, err)

	require.ElementsMatch(t, guard.DefaultSpec().Blocked, p.Guard.Spec().Blocked)
	require.Equal(t, gate.Default().Spec(), p.Imports.Spec())
}

func TestRejects(t *testing.T) {
	_, err := Parse([]byte("version: 2\n"), YAML)

	var v *guard.VersionError

	require.True(t, errors.As(err, &v))
	require.Equal(t, 2, v.Version)

	_, err = Parse([]byte("version = 1\nextra = true\n"), TOML)
	require.ErrorContains(t, err, `unknown key "extra"`)

	_, err = Parse([]byte("version: 1\nextra: true\n"), YAML)
	require.Error(t, err)

	_, err = Parse([]byte("version: 1\nimports:\n  allowed: ['a[']\n"), YAML)

	var pe *gate.PatternError

	require.True(t, errors.As(err, &pe))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	for file, data := range map[string]string{
		"policy.yml":  yamlPolicy,
		"policy.TOML": tomlPolicy,
	} {
		path := filepath.Join(dir, file)
		require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

		p, err := Load(path)
		require.NoError(t, err, file)
		require.True(t, p.Imports.Allowed("math"), file)
	}

	_, err := Load(filepath.Join(dir, "policy.json"))
	require.ErrorIs(t, err, ErrFormat)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
