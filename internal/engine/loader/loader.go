// Released under an MIT license. See LICENSE.

// Package loader imports interpreted modules from a file system. A module
// called a.b is read from a/b.py or, for a package, a/b/__init__.py.
package loader

import (
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/michaelmacinnis/enclave/internal/engine/object"
	"github.com/michaelmacinnis/enclave/internal/reader"
	"github.com/michaelmacinnis/enclave/internal/reader/ast"
)

// Executor runs the body of a parsed module.
type Executor interface {
	Exec(th *object.Thread, m *ast.Module, filename string, globals, builtins *object.Dict) object.Value
}

// T (loader) is an import gate source for interpreted modules.
type T struct {
	builtins *object.Dict
	executor Executor
	fsys     fs.FS
	logger   *slog.Logger
}

type loader = T

// New creates a loader for the modules under fsys. Module bodies are run
// by executor with builtins.
func New(fsys fs.FS, executor Executor, builtins *object.Dict, logger *slog.Logger) *loader {
	if logger == nil {
		logger = slog.Default()
	}

	return &loader{
		builtins: builtins,
		executor: executor,
		fsys:     fsys,
		logger:   logger,
	}
}

// Exists returns true if there is source for the module called name.
func (l *loader) Exists(name string) bool {
	_, _, ok := l.find(name)

	return ok
}

// Load runs the source for the module called name in a new module.
func (l *loader) Load(th *object.Thread, name string, register func(*object.Module)) (*object.Module, bool) {
	file, pkg, ok := l.find(name)
	if !ok {
		return nil, false
	}

	b, err := fs.ReadFile(l.fsys, file)
	if err != nil {
		object.Raise(object.ImportError, "cannot read module '%s': %s", name, err.Error())
	}

	tree, err := reader.Parse(file, string(b))
	if err != nil {
		object.Raise(object.SyntaxError, "%s", err.Error())
	}

	m := object.NewModule(name)
	m.Dict.SetStr("__name__", name)
	m.Dict.SetStr("__file__", file)
	m.Dict.SetStr("__package__", pkg)

	register(m)

	l.logger.Debug("module loaded", "module", name, "file", file)

	l.executor.Exec(th, tree, file, m.Dict, l.builtins)

	return m, true
}

// find returns the file holding the module called name and the package
// that relative imports in it resolve against.
func (l *loader) find(name string) (string, string, bool) {
	if l.fsys == nil || name == "" {
		return "", "", false
	}

	dir := strings.ReplaceAll(name, ".", "/")
	if !fs.ValidPath(dir) {
		return "", "", false
	}

	if file := path.Join(dir, "__init__.py"); l.regular(file) {
		return file, name, true
	}

	file := dir + ".py"
	if !l.regular(file) {
		return "", "", false
	}

	pkg := ""
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		pkg = name[:i]
	}

	return file, pkg, true
}

func (l *loader) regular(file string) bool {
	info, err := fs.Stat(l.fsys, file)

	return err == nil && info.Mode().IsRegular()
}
