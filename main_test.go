// Released under an MIT license. See LICENSE.

package main

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelmacinnis/enclave/pkg/enclave"
)

// expected returns the lines of the comment block after "# Output:".
func expected(t *testing.T, path string) string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)

	defer f.Close()

	var b strings.Builder

	found := false

	s := bufio.NewScanner(f)
	for s.Scan() {
		line := s.Text()

		if !found {
			found = line == "# Output:"

			continue
		}

		line = strings.TrimPrefix(line, "#")
		line = strings.TrimPrefix(line, " ")

		b.WriteString(line + "\n")
	}

	require.NoError(t, s.Err())
	require.True(t, found, "%s has no output block", path)

	return b.String()
}

func execute(argv ...string) (int, string, string) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	status := run(argv, strings.NewReader(""), stdout, stderr)

	return status, stdout.String(), stderr.String()
}

func TestExamples(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("examples", "*.py"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			status, stdout, stderr := execute("-a", "json", path)

			require.Equal(t, 0, status, stderr)
			assert.Equal(t, expected(t, path), stdout)
		})
	}
}

func TestCommand(t *testing.T) {
	status, stdout, _ := execute("-c", "print(argv)", "x", "y")

	require.Equal(t, 0, status)
	require.Equal(t, "['-c', 'x', 'y']\n", stdout)
}

func TestUncaughtException(t *testing.T) {
	status, stdout, stderr := execute("-c", "def f():\n    raise ValueError('nope')\nf()\n")

	require.Equal(t, 1, status)
	require.Empty(t, stdout)
	require.True(t, strings.HasPrefix(stderr, "Traceback (most recent call last):\n"), stderr)
	require.Contains(t, stderr, `File "<string>", line 2, in f`)
	require.True(t, strings.HasSuffix(stderr, "ValueError: nope\n"), stderr)
}

func TestParseFailure(t *testing.T) {
	status, _, stderr := execute("-c", "def (:")

	require.Equal(t, 1, status)
	require.Contains(t, stderr, "<string>")
}

func TestMissingScript(t *testing.T) {
	status, _, stderr := execute(filepath.Join(t.TempDir(), "missing.py"))

	require.Equal(t, 2, status)
	require.Contains(t, stderr, "missing.py")
	require.Contains(t, stderr, "Usage:")
}

func TestAllowAndPolicy(t *testing.T) {
	dir := t.TempDir()

	policy := filepath.Join(dir, "policy.toml")
	require.NoError(t, os.WriteFile(policy, []byte("version = 1\n\n[imports]\nallowed = [\"string\"]\n"), 0o600))

	status, stdout, stderr := execute("-p", policy, "-c", "import string\nprint(string.digits)")
	require.Equal(t, 0, status, stderr)
	require.Equal(t, "0123456789\n", stdout)

	status, _, stderr = execute("-p", policy, "-a", "math", "-c", "import string")
	require.Equal(t, 1, status)
	require.Contains(t, stderr, "ImportBlocked")
}

func TestModules(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "shapes"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shapes", "__init__.py"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shapes", "square.py"), []byte("def area(n):\n    return n * n\n"), 0o600))

	status, stdout, stderr := execute("-m", dir, "-a", "shapes,shapes.*", "-c", "from shapes import square\nprint(square.area(5))")

	require.Equal(t, 0, status, stderr)
	require.Equal(t, "25\n", stdout)
}

func TestREPL(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	env, err := enclave.MakeDefaultEnv(enclave.Options{Stdout: stdout})
	require.NoError(t, err)

	e := &repl{env: env, stdout: stdout, stderr: stderr}

	e.Evaluate("x = 41\n")
	e.Evaluate("x + 1\n")
	e.Evaluate("None\n")
	e.Evaluate("print('hi')\n")
	e.Evaluate("1 / 0\n")

	require.Equal(t, "42\nhi\n", stdout.String())
	require.Contains(t, stderr.String(), "ZeroDivisionError")

	names := e.Names()
	require.Contains(t, names, "x")
	require.Contains(t, names, "print")
	require.Contains(t, names, "__name__")
}
