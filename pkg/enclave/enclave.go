// Released under an MIT license. See LICENSE.

// Package enclave runs guest scripts in an explicit Environment. Guest
// code sees only the globals, builtins and modules the host grants, and
// every attribute access and import it performs is checked against the
// Environment's policies.
package enclave

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/michaelmacinnis/enclave/internal/engine/builtins"
	"github.com/michaelmacinnis/enclave/internal/engine/eval"
	"github.com/michaelmacinnis/enclave/internal/engine/gate"
	"github.com/michaelmacinnis/enclave/internal/engine/guard"
	"github.com/michaelmacinnis/enclave/internal/engine/loader"
	"github.com/michaelmacinnis/enclave/internal/engine/modules"
	"github.com/michaelmacinnis/enclave/internal/engine/object"
	"github.com/michaelmacinnis/enclave/internal/reader"
	"github.com/michaelmacinnis/enclave/internal/reader/parser"
	"github.com/michaelmacinnis/enclave/internal/system/config"
	"github.com/michaelmacinnis/enclave/internal/system/metrics"
)

type (
	// ParseError reports invalid syntax. It carries the file, line and
	// column of the problem.
	ParseError = parser.Error

	// UnsupportedError reports a construct outside the supported subset.
	UnsupportedError = eval.UnsupportedError

	// Policy is a guard and import policy read from a file.
	Policy = config.Policy
)

// ErrNoGlobals is reported for an Environment without a globals namespace.
var ErrNoGlobals = errors.New("environment has no globals")

// Environment is everything a run can reach. Globals is the namespace of
// the main module; nothing is added to it by Run.
type Environment struct {
	Globals  *object.Dict
	Builtins *object.Dict
	Imports  *gate.Policy
	Guard    *guard.Policy

	// Modules, if set, holds interpreted modules importable by the run.
	Modules fs.FS

	Logger         *slog.Logger
	RecursionLimit int
	Stdout         io.Writer
}

// Options configure MakeDefaultEnv. The zero value gives the default
// builtins, allows only math, and discards output.
type Options struct {
	// Builtins names the builtins to provide. Nil means builtins.Default.
	Builtins []string

	// AllowedImports lists module paths or glob patterns. Nil means math.
	AllowedImports       []string
	AllowRelativeImports bool
	Submodules           map[string][]string

	// Policy, if set, replaces Guard and the import options above.
	Policy *Policy
	Guard  *guard.Policy

	Logger         *slog.Logger
	Modules        fs.FS
	RecursionLimit int
	Stdout         io.Writer
}

// MakeDefaultEnv builds an Environment from o. The main module's globals
// hold only __name__.
func MakeDefaultEnv(o Options) (*Environment, error) {
	names := o.Builtins
	if names == nil {
		names = builtins.Default
	}

	b, err := builtins.New(names)
	if err != nil {
		return nil, err
	}

	g, imports := o.Guard, (*gate.Policy)(nil)

	if o.Policy != nil {
		g, imports = o.Policy.Guard, o.Policy.Imports
	}

	if g == nil {
		g = guard.Default()
	}

	if imports == nil {
		allowed := o.AllowedImports
		if allowed == nil {
			allowed = []string{"math"}
		}

		imports, err = gate.NewPolicy(gate.Spec{
			Allowed:    allowed,
			Submodules: o.Submodules,
			Relative:   o.AllowRelativeImports,
		})
		if err != nil {
			return nil, err
		}
	}

	globals := object.NewDict()
	globals.SetStr("__name__", "__main__")

	return &Environment{
		Globals:        globals,
		Builtins:       b,
		Imports:        imports,
		Guard:          g,
		Modules:        o.Modules,
		Logger:         o.Logger,
		RecursionLimit: o.RecursionLimit,
		Stdout:         o.Stdout,
	}, nil
}

// LoadPolicy reads a versioned policy from a YAML or TOML file.
func LoadPolicy(path string) (*Policy, error) {
	return config.Load(path)
}

// RegisterMetrics registers the run collectors with r.
func RegisterMetrics(r prometheus.Registerer) error {
	return metrics.Register(r)
}

// Exception describes a guest exception that ended a run.
type Exception struct {
	Class   string
	Message string

	// Name is the blocked attribute or module for AttributeBlocked and
	// ImportBlocked, and the missing module for ModuleNotFoundError.
	Name string

	// Traceback holds one line per frame, outermost first.
	Traceback []string

	// Formatted is the report printed for an uncaught exception.
	Formatted string

	// Value is the exception object itself.
	Value *object.Exception
}

func (e *Exception) Error() string {
	if e.Message == "" {
		return e.Class
	}

	return e.Class + ": " + e.Message
}

// RunResult is the outcome of a run. At most one of Exception and Err is
// set. Err is a *ParseError, an *UnsupportedError, or a host error.
type RunResult struct {
	ID      uuid.UUID
	Globals *object.Dict
	Value   object.Value

	// Repr is repr(Value). It is empty when Value is nil or None.
	Repr string

	Exception *Exception
	Err       error
}

// Run runs source as the main module of env.
func Run(source string, env *Environment) *RunResult {
	return RunFile("<string>", source, env)
}

// RunFile runs source as the main module of env. Name is used in
// tracebacks.
func RunFile(name, source string, env *Environment) (r *RunResult) {
	r = &RunResult{ID: uuid.New(), Globals: env.Globals}

	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With("run", r.ID.String())
	logger.Debug("run started", "file", name)

	start := time.Now()

	defer func() {
		outcome := metrics.OK

		switch {
		case r.Err != nil:
			outcome = metrics.Fatal
		case r.Exception != nil:
			outcome = metrics.Exception
		}

		metrics.Run(outcome, time.Since(start).Seconds())
		logger.Debug("run finished", "outcome", outcome, "elapsed", time.Since(start))
	}()

	if env.Globals == nil {
		r.Err = ErrNoGlobals

		return r
	}

	m, err := reader.Parse(name, source)
	if err != nil {
		r.Err = err

		return r
	}

	b := env.Builtins
	if b == nil {
		b = object.NewDict()
	}

	ev := eval.New()
	th := thread(env, b, ev, logger)

	r.Value, r.Exception, r.Err = execute(th, func() object.Value {
		return ev.Exec(th, m, name, env.Globals, b)
	})

	if r.Exception == nil && r.Err == nil && r.Value != nil && r.Value != object.None {
		_, r.Exception, _ = execute(th, func() object.Value {
			r.Repr = object.Repr(th, r.Value)

			return nil
		})
	}

	if _, closing, _ := execute(th, func() object.Value {
		th.Close()

		return nil
	}); closing != nil {
		logger.Debug("generator failed to close", "exception", closing.Error())
	}

	return r
}

func thread(env *Environment, b *object.Dict, ev *eval.T, logger *slog.Logger) *object.Thread {
	th := object.NewThread()

	if env.Guard != nil {
		th.Guard = env.Guard
	}

	if env.Stdout != nil {
		th.Stdout = env.Stdout
	}

	if env.RecursionLimit > 0 {
		th.RecursionLimit = env.RecursionLimit
	}

	th.Builtins = b
	th.Invoker = ev
	th.Logger = logger
	th.Denied = func(k guard.Kind, name string) {
		metrics.AttributeDenied(k.String())
		logger.Debug("attribute blocked", "kind", k.String(), "name", name)
	}

	sources := []gate.Source{modules.New()}
	if env.Modules != nil {
		sources = append(sources, loader.New(env.Modules, ev, b, logger))
	}

	g := gate.New(env.Imports, logger, sources...)
	g.Denied = func(string) {
		metrics.ImportDenied()
	}

	name, ok := env.Globals.GetStr("__name__")
	if s, isStr := name.(string); ok && isStr {
		g.Register(s, &object.Module{Name: s, Dict: env.Globals})
	}

	th.Importer = g

	return th
}

// execute calls f, turning a guest exception into a descriptor and an
// evaluator failure into an error.
func execute(th *object.Thread, f func() object.Value) (v object.Value, exc *Exception, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		switch x := r.(type) {
		case *object.Exception:
			exc = describe(th, x)
		case *UnsupportedError:
			err = x
		default:
			exc = describe(th, object.NewException(object.SystemError, fmt.Sprint(x)))
		}
	}()

	return f(), nil, nil
}

func describe(th *object.Thread, e *object.Exception) *Exception {
	d := &Exception{
		Class:     e.Class.Name,
		Traceback: e.TracebackLines(),
		Value:     e,
	}

	// Rendering can run guest code, which can fail in turn.
	func() {
		defer func() {
			if recover() != nil {
				d.Message = e.Text(nil)
				d.Formatted = e.Error() + "\n"
			}
		}()

		d.Message = e.Text(th)
		d.Formatted = e.Format(th)
	}()

	if e.Matches(object.AttributeBlocked) || e.Matches(object.ImportError) {
		if v, ok := e.Dict.GetStr("name"); ok {
			d.Name, _ = v.(string)
		}
	}

	return d
}
