// Released under an MIT license. See LICENSE.

package object

import (
	"fmt"
	"strings"

	"github.com/michaelmacinnis/enclave/internal/common/validate"
)

// Exception is an instance of BaseException or a subclass.
type Exception struct {
	Class *Class
	Dict  *Dict
	Args  Tuple

	Cause     *Exception
	Context   *Exception
	Suppress  bool
	Traceback *Traceback

	// Groups.
	Message    string
	Exceptions []*Exception
}

// The exception hierarchy.
//
//nolint:gochecknoglobals
var (
	BaseExceptionType      = builtin("BaseException", ObjectType)
	BaseExceptionGroupType = builtin("BaseExceptionGroup", BaseExceptionType)
	GeneratorExit          = builtin("GeneratorExit", BaseExceptionType)
	ExceptionType          = builtin("Exception", BaseExceptionType)
	ExceptionGroupType     = builtin("ExceptionGroup", BaseExceptionGroupType, ExceptionType)

	ArithmeticError     = builtin("ArithmeticError", ExceptionType)
	OverflowError       = builtin("OverflowError", ArithmeticError)
	ZeroDivisionError   = builtin("ZeroDivisionError", ArithmeticError)
	AssertionError      = builtin("AssertionError", ExceptionType)
	AttributeError      = builtin("AttributeError", ExceptionType)
	AttributeBlocked    = builtin("AttributeBlocked", AttributeError)
	ImportError         = builtin("ImportError", ExceptionType)
	ImportBlocked       = builtin("ImportBlocked", ImportError)
	ModuleNotFoundError = builtin("ModuleNotFoundError", ImportError)
	LookupError         = builtin("LookupError", ExceptionType)
	IndexError          = builtin("IndexError", LookupError)
	KeyError            = builtin("KeyError", LookupError)
	NameError           = builtin("NameError", ExceptionType)
	UnboundLocalError   = builtin("UnboundLocalError", NameError)
	RuntimeError        = builtin("RuntimeError", ExceptionType)
	NotImplementedError = builtin("NotImplementedError", RuntimeError)
	RecursionError      = builtin("RecursionError", RuntimeError)
	StopIteration       = builtin("StopIteration", ExceptionType)
	StopAsyncIteration  = builtin("StopAsyncIteration", ExceptionType)
	SyntaxError         = builtin("SyntaxError", ExceptionType)
	SystemError         = builtin("SystemError", ExceptionType)
	TypeError           = builtin("TypeError", ExceptionType)
	ValueError          = builtin("ValueError", ExceptionType)
)

// Exceptions returns the builtin exception classes.
func Exceptions() []*Class {
	return []*Class{
		BaseExceptionType, BaseExceptionGroupType, GeneratorExit,
		ExceptionType, ExceptionGroupType, ArithmeticError, OverflowError,
		ZeroDivisionError, AssertionError, AttributeError, AttributeBlocked,
		ImportError, ImportBlocked, ModuleNotFoundError, LookupError,
		IndexError, KeyError, NameError, UnboundLocalError, RuntimeError,
		NotImplementedError, RecursionError, StopIteration,
		StopAsyncIteration, SyntaxError, SystemError, TypeError, ValueError,
	}
}

// ExceptionClass creates an exception class defined by a host module.
func ExceptionClass(module, name string, base *Class) *Class {
	c := builtin(name, base)
	c.Module = module

	return c
}

// NewException creates an exception of class c.
func NewException(c *Class, args ...Value) *Exception {
	return &Exception{Class: c, Dict: NewDict(), Args: args}
}

// Raise panics with a new exception of class c.
func Raise(c *Class, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	panic(NewException(c, msg))
}

// Throw panics with e.
func Throw(e *Exception) {
	panic(e)
}

// Blocked raises AttributeBlocked for name.
func Blocked(name string) {
	e := NewException(AttributeBlocked, "attribute access to '"+name+"' is blocked in this environment")
	e.Dict.SetStr("name", name)

	panic(e)
}

// ImportDenied raises ImportBlocked for the module called name.
func ImportDenied(name string) {
	e := NewException(ImportBlocked, "import of '"+name+"' is blocked in this environment")
	e.Dict.SetStr("name", name)

	panic(e)
}

// Matches returns true if e is an instance of c.
func (e *Exception) Matches(c *Class) bool {
	return e.Class.IsSubclass(c)
}

// Value returns the value carried by StopIteration.
func (e *Exception) Value() Value {
	if len(e.Args) > 0 {
		return e.Args[0]
	}

	return None
}

// Error implements the error interface for host code.
func (e *Exception) Error() string {
	msg := e.message(nil)
	if msg == "" {
		return e.Class.Name
	}

	return e.Class.Name + ": " + msg
}

// Text returns the exception's message, as str() would.
func (e *Exception) Text(th *Thread) string {
	return e.message(th)
}

func (e *Exception) message(th *Thread) string {
	if th != nil {
		if _, ok := e.Class.Overrides("__str__"); ok {
			return safeStr(th, e)
		}
	}

	return e.text(th)
}

func (e *Exception) text(th *Thread) string {
	switch {
	case e.Exceptions != nil:
		return fmt.Sprintf("%s (%d sub-exception%s)", e.Message, len(e.Exceptions), plural(len(e.Exceptions)))
	case len(e.Args) == 0:
		return ""
	case len(e.Args) == 1 && e.Matches(KeyError):
		return reprOrDefault(th, e.Args[0])
	case len(e.Args) == 1:
		return strOrDefault(th, e.Args[0])
	}

	return reprOrDefault(th, e.Args)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}

	return "s"
}

func safeStr(th *Thread, v Value) (s string) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*Exception); !ok {
				panic(r)
			}

			s = "<exception str() failed>"
		}
	}()

	return Str(th, v)
}

func strOrDefault(th *Thread, v Value) string {
	if th == nil {
		if s, ok := v.(string); ok {
			return s
		}

		th = NewThread()
	}

	return safeStr(th, v)
}

func reprOrDefault(th *Thread, v Value) (s string) {
	if th == nil {
		th = NewThread()
	}

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*Exception); !ok {
				panic(r)
			}

			s = "<exception repr() failed>"
		}
	}()

	return Repr(th, v)
}

// Chain sets the implicit context of e, avoiding cycles.
func (e *Exception) Chain(context *Exception) {
	if context == nil || context == e {
		return
	}

	for c := context; c != nil; c = c.Context {
		if c.Context == e {
			c.Context = nil

			break
		}
	}

	e.Context = context
}

// AddFrame records that e reached the frame f, which is executing
// f.Line. A frame already at the head of the chain is not added again.
func (e *Exception) AddFrame(f *Frame) {
	if e.Traceback != nil && e.Traceback.Frame == f {
		return
	}

	e.Traceback = &Traceback{Frame: f, Line: f.Line, Next: e.Traceback}
}

// TracebackLines formats e's traceback chain, innermost call last.
func (e *Exception) TracebackLines() []string {
	lines := []string{}

	for tb := e.Traceback; tb != nil; tb = tb.Next {
		lines = append(lines, fmt.Sprintf("  File %q, line %d, in %s", tb.Frame.Filename, tb.Line, tb.Frame.Name))
	}

	return lines
}

// Format renders e with its traceback and chained exceptions.
func (e *Exception) Format(th *Thread) string {
	var b strings.Builder

	e.format(th, &b, map[*Exception]bool{})

	return b.String()
}

func (e *Exception) format(th *Thread, b *strings.Builder, seen map[*Exception]bool) {
	seen[e] = true

	switch {
	case e.Cause != nil && !seen[e.Cause]:
		e.Cause.format(th, b, seen)
		b.WriteString("\nThe above exception was the direct cause of the following exception:\n\n")
	case e.Context != nil && !e.Suppress && !seen[e.Context]:
		e.Context.format(th, b, seen)
		b.WriteString("\nDuring handling of the above exception, another exception occurred:\n\n")
	}

	if e.Traceback != nil {
		b.WriteString("Traceback (most recent call last):\n")

		for _, line := range e.TracebackLines() {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString(e.Class.Name)

	if msg := e.message(th); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}

	b.WriteString("\n")

	for _, note := range e.Notes() {
		b.WriteString(note)
		b.WriteString("\n")
	}
}

// Notes returns the notes added with add_note.
func (e *Exception) Notes() []string {
	v, ok := e.Dict.GetStr("__notes__")
	if !ok {
		return nil
	}

	l, ok := v.(*List)
	if !ok {
		return nil
	}

	notes := make([]string, 0, len(l.Items))

	for _, n := range l.Items {
		if s, ok := n.(string); ok {
			notes = append(notes, s)
		}
	}

	return notes
}

// AsException converts v, the operand of a raise statement, into an
// exception.
func AsException(th *Thread, v Value) *Exception {
	switch v := v.(type) {
	case *Exception:
		return v
	case *Class:
		if v.IsSubclass(BaseExceptionType) {
			if e, ok := CallClass(th, v, nil, nil).(*Exception); ok {
				return e
			}
		}
	}

	Raise(TypeError, "exceptions must derive from BaseException")

	return nil
}

// NewGroup creates an exception group of class c.
func NewGroup(c *Class, message string, excs []*Exception) *Exception {
	e := NewException(c, message, NewList(exceptionValues(excs)...))
	e.Message = message
	e.Exceptions = excs

	return e
}

func exceptionValues(excs []*Exception) []Value {
	values := make([]Value, len(excs))
	for i, e := range excs {
		values[i] = e
	}

	return values
}

// Split partitions the leaves of group e by match, preserving nesting.
// Either result may be nil.
func (e *Exception) Split(th *Thread, match func(*Exception) bool) (*Exception, *Exception) {
	if match(e) {
		return e, nil
	}

	if e.Exceptions == nil {
		return nil, e
	}

	var matched, rest []*Exception

	for _, sub := range e.Exceptions {
		m, r := sub.Split(th, match)
		if m != nil {
			matched = append(matched, m)
		}

		if r != nil {
			rest = append(rest, r)
		}
	}

	return e.derive(th, matched), e.derive(th, rest)
}

func (e *Exception) derive(th *Thread, excs []*Exception) *Exception {
	if len(excs) == 0 {
		return nil
	}

	if len(excs) == len(e.Exceptions) {
		same := true

		for i := range excs {
			if excs[i] != e.Exceptions[i] {
				same = false

				break
			}
		}

		if same {
			return e
		}
	}

	var g *Exception

	if derive, ok := e.Class.Overrides("derive"); ok {
		r := Call(th, bind(th, derive, e, e.Class), []Value{NewList(exceptionValues(excs)...)}, nil)

		x, ok := r.(*Exception)
		if !ok || x.Exceptions == nil {
			Raise(TypeError, "derive must return an instance of BaseExceptionGroup")
		}

		g = x
	} else {
		g = newGroup(e.Message, excs)
	}

	g.Cause = e.Cause
	g.Context = e.Context
	g.Suppress = e.Suppress
	g.Traceback = e.Traceback

	if notes, ok := e.Dict.GetStr("__notes__"); ok {
		g.Dict.SetStr("__notes__", notes)
	}

	return g
}

func newGroup(message string, excs []*Exception) *Exception {
	c := ExceptionGroupType

	for _, x := range excs {
		if !x.Matches(ExceptionType) {
			c = BaseExceptionGroupType

			break
		}
	}

	return NewGroup(c, message, excs)
}

// ExceptionMatcher returns a predicate for the operand of an except clause.
func ExceptionMatcher(spec Value) func(*Exception) bool {
	var classes []*Class

	switch s := spec.(type) {
	case *Class:
		classes = []*Class{s}
	case Tuple:
		for _, v := range s {
			c, ok := v.(*Class)
			if !ok || !c.IsSubclass(BaseExceptionType) {
				Raise(TypeError, "catching classes that do not inherit from BaseException is not allowed")
			}

			classes = append(classes, c)
		}
	default:
		Raise(TypeError, "catching classes that do not inherit from BaseException is not allowed")
	}

	for _, c := range classes {
		if !c.IsSubclass(BaseExceptionType) {
			Raise(TypeError, "catching classes that do not inherit from BaseException is not allowed")
		}
	}

	return func(e *Exception) bool {
		for _, c := range classes {
			if e.Matches(c) {
				return true
			}
		}

		return false
	}
}

func exceptionSelf(args []Value) *Exception {
	if len(args) == 0 {
		Raise(TypeError, "descriptor requires a 'BaseException' object but received no arguments")
	}

	e, ok := args[0].(*Exception)
	if !ok {
		Raise(TypeError, "descriptor requires a 'BaseException' object but received a '%s'", TypeName(args[0]))
	}

	return e
}

//nolint:funlen
func init() {
	define(BaseExceptionType, "__new__", func(th *Thread, args []Value, kw []Keyword) Value {
		c := classArg(args, "BaseException.__new__")

		return NewException(c, args[1:]...)
	}).Static = true

	define(BaseExceptionType, "__init__", func(th *Thread, args []Value, kw []Keyword) Value {
		e := exceptionSelf(args)
		if e.Exceptions == nil {
			e.Args = append(Tuple(nil), args[1:]...)
		}

		return None
	})

	define(BaseExceptionType, "__str__", func(th *Thread, args []Value, kw []Keyword) Value {
		return exceptionSelf(args).text(th)
	})

	define(BaseExceptionType, "__repr__", func(th *Thread, args []Value, kw []Keyword) Value {
		e := exceptionSelf(args)
		if e.Exceptions != nil {
			return fmt.Sprintf("%s(%s, %s)", e.Class.Name, Repr(th, e.Message), Repr(th, NewList(exceptionValues(e.Exceptions)...)))
		}

		if len(e.Args) == 1 {
			return e.Class.Name + "(" + Repr(th, e.Args[0]) + ")"
		}

		return e.Class.Name + Repr(th, e.Args)
	})

	define(BaseExceptionType, "with_traceback", func(th *Thread, args []Value, kw []Keyword) Value {
		e := exceptionSelf(args)
		a := validate.Fixed(args[1:], 1, 1)

		switch tb := a[0].(type) {
		case NoneType:
			e.Traceback = nil
		case *Traceback:
			e.Traceback = tb
		default:
			Raise(TypeError, "__traceback__ must be a traceback or None")
		}

		return e
	})

	define(BaseExceptionType, "add_note", func(th *Thread, args []Value, kw []Keyword) Value {
		e := exceptionSelf(args)
		a := validate.Fixed(args[1:], 1, 1)

		if _, ok := a[0].(string); !ok {
			Raise(TypeError, "note must be a str, not '%s'", TypeName(a[0]))
		}

		v, ok := e.Dict.GetStr("__notes__")
		if !ok {
			v = NewList()
			e.Dict.SetStr("__notes__", v)
		}

		l, ok := v.(*List)
		if !ok {
			Raise(TypeError, "Cannot add note: __notes__ is not a list")
		}

		l.Items = append(l.Items, a[0])

		return None
	})

	define(BaseExceptionGroupType, "__new__", func(th *Thread, args []Value, kw []Keyword) Value {
		c := classArg(args, "BaseExceptionGroup.__new__")
		a := validate.Fixed(args[1:], 2, 2)

		msg, ok := a[0].(string)
		if !ok {
			Raise(TypeError, "argument 1 must be str, not %s", TypeName(a[0]))
		}

		items := groupItems(th, a[1])
		if len(items) == 0 {
			Raise(ValueError, "second argument (exceptions) must be a non-empty sequence")
		}

		excs := make([]*Exception, len(items))
		nested := false

		for i, v := range items {
			x, ok := v.(*Exception)
			if !ok {
				Raise(ValueError, "Item %d of second argument (exceptions) is not an exception", i)
			}

			if !x.Matches(ExceptionType) {
				nested = true
			}

			excs[i] = x
		}

		switch {
		case c == BaseExceptionGroupType && !nested:
			c = ExceptionGroupType
		case nested && c.IsSubclass(ExceptionGroupType):
			Raise(TypeError, "Cannot nest BaseExceptions in an ExceptionGroup")
		}

		return NewGroup(c, msg, excs)
	}).Static = true

	define(BaseExceptionGroupType, "__init__", func(th *Thread, args []Value, kw []Keyword) Value {
		exceptionSelf(args)

		return None
	})

	define(BaseExceptionGroupType, "derive", func(th *Thread, args []Value, kw []Keyword) Value {
		e := exceptionSelf(args)
		a := validate.Fixed(args[1:], 1, 1)

		items := groupItems(th, a[0])
		excs := make([]*Exception, 0, len(items))

		for _, v := range items {
			if x, ok := v.(*Exception); ok {
				excs = append(excs, x)
			}
		}

		return newGroup(e.Message, excs)
	})

	split := func(th *Thread, args []Value) (*Exception, *Exception) {
		e := exceptionSelf(args)
		a := validate.Fixed(args[1:], 1, 1)

		var match func(*Exception) bool

		switch a[0].(type) {
		case *Class, Tuple:
			match = ExceptionMatcher(a[0])
		default:
			match = func(x *Exception) bool {
				return Truth(th, Call(th, a[0], []Value{x}, nil))
			}
		}

		return e.Split(th, match)
	}

	define(BaseExceptionGroupType, "split", func(th *Thread, args []Value, kw []Keyword) Value {
		m, r := split(th, args)

		return Tuple{orNone(m), orNone(r)}
	})

	define(BaseExceptionGroupType, "subgroup", func(th *Thread, args []Value, kw []Keyword) Value {
		m, _ := split(th, args)

		return orNone(m)
	})
}

func orNone(e *Exception) Value {
	if e == nil {
		return None
	}

	return e
}

func groupItems(th *Thread, v Value) []Value {
	switch v.(type) {
	case *List, Tuple:
		return ToSlice(th, v)
	}

	Raise(TypeError, "second argument (exceptions) must be a sequence")

	return nil
}

func classArg(args []Value, name string) *Class {
	if len(args) == 0 {
		Raise(TypeError, "%s(): not enough arguments", name)
	}

	c, ok := args[0].(*Class)
	if !ok {
		Raise(TypeError, "%s(X): X is not a type object (%s)", name, TypeName(args[0]))
	}

	return c
}
