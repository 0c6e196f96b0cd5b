// Released under an MIT license. See LICENSE.

// Package options parses the enclave command line.
package options

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/docopt/docopt-go"
	"github.com/mattn/go-isatty"
)

//nolint:gochecknoglobals
var (
	allowed     []string
	args        []string
	command     string
	cpu         uint64
	debug       bool
	interactive bool
	modules     string
	policy      string
	script      string
)

// Replaced in tests.
//
//nolint:gochecknoglobals
var (
	exit     = os.Exit
	terminal = func() bool { return isatty.IsTerminal(os.Stdin.Fd()) }

	stderr io.Writer = os.Stderr
	stdout io.Writer = os.Stdout
)

//nolint:gochecknoglobals
var usage = `enclave

Usage:
  enclave [options] SCRIPT [ARGUMENTS...]
  enclave [options] -c COMMAND [ARGUMENTS...]
  enclave [options]
  enclave -h
  enclave -v

Arguments:
  ARGUMENTS  Values bound to the guest global argv, after the script name.
  SCRIPT     Path to the script to run.

Options:
  -c, --command=COMMAND  Run the specified command.
  -a, --allow=MODULES    Comma separated modules guest code may import.
  -p, --policy=POLICY    Read the guard and import policy from a YAML or TOML file.
  -m, --modules=DIR      Import interpreted modules from DIR.
  --cpu=SECONDS          Limit the CPU time of the process.
  -d, --debug            Log at debug level.
  -h, --help             Display this help.
  -v, --version          Print enclave version.

If no script or command is given, enclave reads from stdin. If stdin is a
TTY, enclave starts an interactive session.
`

// Allowed returns the modules named with --allow.
func Allowed() []string {
	return allowed
}

// Args returns the script or command name followed by its arguments.
func Args() []string {
	return args
}

// Command returns the command given with -c.
func Command() string {
	return command
}

// CPU returns the CPU limit in seconds. Zero means no limit.
func CPU() uint64 {
	return cpu
}

// Debug returns true if debug logging was requested.
func Debug() bool {
	return debug
}

// Interactive returns true if enclave should start a REPL.
func Interactive() bool {
	return interactive
}

// Modules returns the directory holding interpreted modules.
func Modules() string {
	return modules
}

// Policy returns the path of the policy file.
func Policy() string {
	return policy
}

// Parse parses argv, which does not include the program name. On a usage
// error it prints the usage and exits with status 2. Help and version
// requests exit with status 0.
func Parse(argv []string, version string) {
	handled := false

	p := &docopt.Parser{
		HelpHandler: func(err error, text string) {
			handled = true

			handler(err, text)
		},
		OptionsFirst: true,
	}

	opts, err := p.ParseArgs(usage, argv, version)
	if err != nil || handled {
		return
	}

	reset()

	command, _ = opts.String("--command")
	modules, _ = opts.String("--modules")
	policy, _ = opts.String("--policy")
	debug, _ = opts.Bool("--debug")

	if s, _ := opts.String("--allow"); s != "" {
		for _, name := range strings.Split(s, ",") {
			if name = strings.TrimSpace(name); name != "" {
				allowed = append(allowed, name)
			}
		}
	}

	if s, _ := opts.String("--cpu"); s != "" {
		cpu, err = strconv.ParseUint(s, 10, 64)
		if err != nil || cpu == 0 {
			fail(fmt.Sprintf("invalid CPU limit: %q", s))

			return
		}
	}

	name := "-c"

	path, _ := opts.String("SCRIPT")
	if path != "" {
		name = path
		script = path
	} else if command == "" {
		name = ""
		interactive = terminal()
	}

	rest, _ := opts["ARGUMENTS"].([]string)
	args = append([]string{name}, rest...)
}

// Usage returns the usage message.
func Usage() string {
	return usage
}

// Script returns the path of the script to run.
func Script() string {
	return script
}

func fail(msg string) {
	fmt.Fprintln(stderr, msg)
	fmt.Fprint(stderr, usage)
	exit(2)
}

func handler(err error, text string) {
	if err != nil {
		fmt.Fprint(stderr, usage)
		exit(2)

		return
	}

	fmt.Fprintln(stdout, strings.TrimSpace(text))
	exit(0)
}

func reset() {
	allowed = nil
	args = nil
	command = ""
	cpu = 0
	debug = false
	interactive = false
	modules = ""
	policy = ""
	script = ""
}
