// Released under an MIT license. See LICENSE.

package options

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, tty bool) (*int, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	code := -1
	out := &bytes.Buffer{}
	errs := &bytes.Buffer{}

	exit = func(c int) { code = c }
	terminal = func() bool { return tty }
	stdout = out
	stderr = errs

	reset()

	return &code, out, errs
}

func TestScript(t *testing.T) {
	code, _, _ := setup(t, true)

	Parse([]string{"-a", "math, json", "-d", "--cpu", "5", "-m", "lib", "-p", "policy.yaml", "main.py", "x", "y"}, "v1")

	require.Equal(t, -1, *code)
	require.Equal(t, "main.py", Script())
	require.Equal(t, []string{"main.py", "x", "y"}, Args())
	require.Equal(t, []string{"math", "json"}, Allowed())
	require.Equal(t, uint64(5), CPU())
	require.True(t, Debug())
	require.Equal(t, "lib", Modules())
	require.Equal(t, "policy.yaml", Policy())
	require.False(t, Interactive())
	require.Empty(t, Command())
}

func TestCommand(t *testing.T) {
	code, _, _ := setup(t, true)

	Parse([]string{"-c", "print(1)", "a"}, "v1")

	require.Equal(t, -1, *code)
	require.Equal(t, "print(1)", Command())
	require.Equal(t, []string{"-c", "a"}, Args())
	require.False(t, Interactive())
	require.Empty(t, Script())
}

func TestInteractive(t *testing.T) {
	setup(t, true)
	Parse([]string{}, "v1")
	require.True(t, Interactive())

	setup(t, false)
	Parse([]string{}, "v1")
	require.False(t, Interactive())
	require.Equal(t, []string{""}, Args())
}

func TestUsageError(t *testing.T) {
	code, _, errs := setup(t, false)

	Parse([]string{"--bogus"}, "v1")

	require.Equal(t, 2, *code)
	require.Contains(t, errs.String(), "Usage:")
}

func TestInvalidCPU(t *testing.T) {
	code, _, errs := setup(t, false)

	Parse([]string{"--cpu", "soon", "main.py"}, "v1")

	require.Equal(t, 2, *code)
	require.Contains(t, errs.String(), `invalid CPU limit: "soon"`)
}

func TestVersion(t *testing.T) {
	code, out, _ := setup(t, false)

	Parse([]string{"-v"}, "v1.2.3")

	require.Equal(t, 0, *code)
	require.Equal(t, "v1.2.3\n", out.String())
}
