// Released under an MIT license. See LICENSE.

package eval

import (
	"github.com/michaelmacinnis/enclave/internal/engine/object"
	"github.com/michaelmacinnis/enclave/internal/reader/ast"
)

// throw raises e from the code running in fr.
func (i *interpreter) throw(fr *frame, e *object.Exception) {
	if n := len(fr.handling); n > 0 && fr.handling[n-1] != e {
		e.Chain(fr.handling[n-1])
	}

	panic(e)
}

func (i *interpreter) raise(th *object.Thread, fr *frame, s *ast.Raise) {
	if s.Exc == nil {
		n := len(fr.handling)
		if n == 0 {
			object.Raise(object.RuntimeError, "No active exception to reraise")
		}

		panic(fr.handling[n-1])
	}

	e := object.AsException(th, i.eval(th, fr, s.Exc))

	if s.Cause != nil {
		c := i.eval(th, fr, s.Cause)
		if c == object.None {
			e.Cause = nil
		} else {
			e.Cause = object.AsException(th, c)
		}

		e.Suppress = true
	}

	i.throw(fr, e)
}

// catch runs body and returns the guest exception it raised, if any.
// Anything else keeps unwinding.
func catch(body func()) (e *object.Exception) {
	defer func() {
		if r := recover(); r != nil {
			x, ok := r.(*object.Exception)
			if !ok {
				panic(r)
			}

			e = x
		}
	}()

	body()

	return nil
}

// during runs body while e is being handled. Exceptions escaping body
// without an implicit context get e.
func (i *interpreter) during(fr *frame, e *object.Exception, body func()) {
	fr.handling = append(fr.handling, e)

	defer func() {
		fr.handling = fr.handling[:len(fr.handling)-1]

		if r := recover(); r != nil {
			if x, ok := r.(*object.Exception); ok && x != e && x.Context == nil {
				x.Chain(e)
			}

			panic(r)
		}
	}()

	body()
}

func (i *interpreter) try(th *object.Thread, fr *frame, s *ast.Try) (f flow) {
	if len(s.Finally) == 0 {
		return i.protect(th, fr, s)
	}

	pending := catch(func() {
		f = i.protect(th, fr, s)
	})

	var last flow

	if pending != nil {
		i.during(fr, pending, func() {
			last = i.exec(th, fr, s.Finally)
		})
	} else {
		last = i.exec(th, fr, s.Finally)
	}

	if last != normal {
		return last
	}

	if pending != nil {
		panic(pending)
	}

	return f
}

// protect runs the body, handlers and else clause of s.
func (i *interpreter) protect(th *object.Thread, fr *frame, s *ast.Try) flow {
	var f flow

	e := catch(func() {
		f = i.exec(th, fr, s.Body)
	})
	if e == nil {
		if f != normal {
			return f
		}

		return i.exec(th, fr, s.Else)
	}

	e.AddFrame(fr.code)

	if s.Star {
		return i.exceptStar(th, fr, s, e)
	}

	for _, h := range s.Handlers {
		if h.Type != nil && !i.matches(th, fr, h.Type, e) {
			continue
		}

		return i.handle(th, fr, h, e)
	}

	panic(e)
}

func (i *interpreter) matches(th *object.Thread, fr *frame, spec ast.Expr, e *object.Exception) (ok bool) {
	i.during(fr, e, func() {
		ok = object.ExceptionMatcher(i.eval(th, fr, spec))(e)
	})

	return ok
}

func (i *interpreter) handle(th *object.Thread, fr *frame, h *ast.ExceptHandler, e *object.Exception) (f flow) {
	if h.Name != "" {
		fr.scope.Store(th, h.Name, e)

		defer fr.scope.Discard(th, h.Name)
	}

	i.during(fr, e, func() {
		f = i.exec(th, fr, h.Body)
	})

	return f
}

//nolint:cyclop,funlen
func (i *interpreter) exceptStar(th *object.Thread, fr *frame, s *ast.Try, e *object.Exception) flow {
	naked := e.Exceptions == nil

	group := e
	if naked {
		group = object.NewGroup(groupClass([]*object.Exception{e}), "", []*object.Exception{e})
		group.Traceback = e.Traceback
	}

	rest := group
	handled := false

	var raised []*object.Exception

	for _, h := range s.Handlers {
		if rest == nil {
			break
		}

		var match func(*object.Exception) bool

		i.during(fr, e, func() {
			spec := i.eval(th, fr, h.Type)
			if isGroupClass(spec) {
				object.Raise(object.TypeError, "catching ExceptionGroup with except* is not allowed. Use except instead.")
			}

			match = object.ExceptionMatcher(spec)
		})

		matched, r := rest.Split(th, match)
		if matched == nil {
			continue
		}

		handled = true
		rest = r

		x := catch(func() {
			if i.handle(th, fr, h, matched) != normal {
				object.Raise(object.SyntaxError, "'break', 'continue' and 'return' cannot appear in an except* block")
			}
		})
		if x != nil {
			raised = append(raised, x)
		}
	}

	if naked {
		switch {
		case len(raised) > 0:
			if raised[0] == group {
				panic(e)
			}

			panic(raised[0])
		case !handled:
			panic(e)
		}

		return normal
	}

	original := map[*object.Exception]bool{}
	for _, x := range leaves(group) {
		original[x] = true
	}

	keep := map[*object.Exception]bool{}

	if rest != nil {
		for _, x := range leaves(rest) {
			keep[x] = true
		}
	}

	var fresh []*object.Exception

	for _, x := range raised {
		ls := leaves(x)

		reraised := true

		for _, l := range ls {
			if !original[l] {
				reraised = false

				break
			}
		}

		if !reraised {
			fresh = append(fresh, x)

			continue
		}

		for _, l := range ls {
			keep[l] = true
		}
	}

	var kept *object.Exception
	if len(keep) > 0 {
		kept, _ = group.Split(th, func(x *object.Exception) bool {
			return x.Exceptions == nil && keep[x]
		})
	}

	if len(fresh) == 0 {
		if kept != nil {
			panic(kept)
		}

		return normal
	}

	if kept != nil {
		fresh = append(fresh, kept)
	}

	panic(object.NewGroup(groupClass(fresh), "", fresh))
}

func groupClass(excs []*object.Exception) *object.Class {
	for _, x := range excs {
		if !x.Matches(object.ExceptionType) {
			return object.BaseExceptionGroupType
		}
	}

	return object.ExceptionGroupType
}

func isGroupClass(spec object.Value) bool {
	specs := []object.Value{spec}
	if t, ok := spec.(object.Tuple); ok {
		specs = t
	}

	for _, v := range specs {
		if c, ok := v.(*object.Class); ok && c.IsSubclass(object.BaseExceptionGroupType) {
			return true
		}
	}

	return false
}

// leaves returns the exceptions in e that are not groups.
func leaves(e *object.Exception) []*object.Exception {
	if e.Exceptions == nil {
		return []*object.Exception{e}
	}

	var all []*object.Exception
	for _, x := range e.Exceptions {
		all = append(all, leaves(x)...)
	}

	return all
}

//nolint:cyclop,funlen
func (i *interpreter) with(th *object.Thread, fr *frame, s *ast.With, k int) flow {
	if k == len(s.Items) {
		return i.exec(th, fr, s.Body)
	}

	item := s.Items[k]
	mgr := i.eval(th, fr, item.Context)

	enterName, exitName := "__enter__", "__exit__"
	protocol := "the context manager protocol"

	var g *object.Generator

	if s.Async {
		g = i.coroutine(fr, "'async with'")
		enterName, exitName = "__aenter__", "__aexit__"
		protocol = "the asynchronous context manager protocol"
	}

	enter, ok := object.LookupAttr(th, mgr, enterName)
	if !ok {
		object.Raise(object.TypeError, "'%s' object does not support %s", object.TypeName(mgr), protocol)
	}

	exit, ok := object.LookupAttr(th, mgr, exitName)
	if !ok {
		object.Raise(object.TypeError, "'%s' object does not support %s (missed %s method)", object.TypeName(mgr), protocol, exitName)
	}

	finish := func(args []object.Value) object.Value {
		r := object.Call(th, exit, args, nil)
		if g != nil {
			r = g.Await(th, r)
		}

		return r
	}

	v := object.Call(th, enter, nil, nil)
	if g != nil {
		v = g.Await(th, v)
	}

	var f flow

	e := catch(func() {
		if item.Vars != nil {
			i.assign(th, fr, item.Vars, v)
		}

		f = i.with(th, fr, s, k+1)
	})
	if e == nil {
		finish([]object.Value{object.None, object.None, object.None})

		return f
	}

	e.AddFrame(fr.code)

	var tb object.Value = object.None
	if e.Traceback != nil {
		tb = e.Traceback
	}

	var swallow bool

	i.during(fr, e, func() {
		swallow = object.Truth(th, finish([]object.Value{e.Class, e, tb}))
	})

	if swallow {
		return normal
	}

	panic(e)
}
