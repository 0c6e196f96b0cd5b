// Released under an MIT license. See LICENSE.

/*
Enclave runs guest scripts in a restricted environment. Guest code sees only
the builtins and modules the host grants, and attribute access that could
reach interpreter internals is blocked:

	enclave script.py one two
	enclave -a json,itertools -c 'import json; print(json.dumps([1, 2]))'
	enclave -p policy.yaml -m lib/ script.py

With no script or command, enclave reads stdin, or starts an interactive
session if stdin is a terminal.
*/
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/michaelmacinnis/enclave/internal/engine/object"
	"github.com/michaelmacinnis/enclave/internal/system/limit"
	"github.com/michaelmacinnis/enclave/internal/system/options"
	"github.com/michaelmacinnis/enclave/internal/ui"
	"github.com/michaelmacinnis/enclave/pkg/enclave"
)

//nolint:gochecknoglobals
var version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	options.Parse(argv, version)

	level := slog.LevelWarn
	if options.Debug() {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if s := options.CPU(); s > 0 {
		err := limit.CPU(s)
		if err != nil {
			fmt.Fprintln(stderr, err.Error())

			return 2
		}
	}

	env, err := environment(logger, stdout)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())

		return 2
	}

	switch {
	case options.Interactive():
		err = ui.Run(&repl{env: env, stdout: stdout, stderr: stderr}, stderr)
		if err != nil {
			fmt.Fprintln(stderr, err.Error())

			return 1
		}

		return 0

	case options.Command() != "":
		return report(enclave.RunFile("<string>", options.Command(), env), stderr)

	case options.Script() != "":
		b, err := os.ReadFile(options.Script())
		if err != nil {
			fmt.Fprintln(stderr, err.Error())
			fmt.Fprint(stderr, options.Usage())

			return 2
		}

		return report(enclave.RunFile(options.Script(), string(b), env), stderr)
	}

	b, err := io.ReadAll(stdin)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())

		return 1
	}

	return report(enclave.RunFile("<stdin>", string(b), env), stderr)
}

func environment(logger *slog.Logger, stdout io.Writer) (*enclave.Environment, error) {
	o := enclave.Options{
		AllowedImports: options.Allowed(),
		Logger:         logger,
		Stdout:         stdout,
	}

	if path := options.Policy(); path != "" {
		p, err := enclave.LoadPolicy(path)
		if err != nil {
			return nil, err
		}

		logger.Debug("policy loaded", "path", path)

		if o.AllowedImports == nil {
			o.Policy = p
		} else {
			o.Guard = p.Guard
		}
	}

	if dir := options.Modules(); dir != "" {
		o.Modules = os.DirFS(dir)
		o.AllowRelativeImports = true
	}

	env, err := enclave.MakeDefaultEnv(o)
	if err != nil {
		return nil, err
	}

	args := options.Args()

	argv := make([]object.Value, len(args))
	for i, a := range args {
		argv[i] = a
	}

	env.Globals.SetStr("argv", object.NewList(argv...))

	return env, nil
}

// report writes an uncaught exception or run failure and returns the exit
// status.
func report(r *enclave.RunResult, stderr io.Writer) int {
	switch {
	case r.Exception != nil:
		fmt.Fprint(stderr, r.Exception.Formatted)

		return 1

	case r.Err != nil:
		fmt.Fprintln(stderr, r.Err.Error())

		return 1
	}

	return 0
}

type repl struct {
	env    *enclave.Environment
	stdout io.Writer
	stderr io.Writer
}

func (e *repl) Evaluate(source string) {
	r := enclave.RunFile("<stdin>", source, e.env)

	if report(r, e.stderr) == 0 && r.Repr != "" {
		fmt.Fprintln(e.stdout, r.Repr)
	}
}

func (e *repl) Names() []string {
	seen := map[string]bool{}

	for _, d := range []*object.Dict{e.env.Globals, e.env.Builtins} {
		if d == nil {
			continue
		}

		for _, k := range d.Keys() {
			if s, ok := k.(string); ok {
				seen[s] = true
			}
		}
	}

	names := make([]string, 0, len(seen))
	for s := range seen {
		names = append(names, s)
	}

	sort.Strings(names)

	return names
}
