// Released under an MIT license. See LICENSE.

package object

// GeneratorKind distinguishes generators, coroutines and async generators.
type GeneratorKind int

// Generator kinds.
const (
	Plain GeneratorKind = iota
	Coroutine
	AsyncGenerator
)

type state int

const (
	created state = iota
	suspended
	running
	completed
	closed
)

type outcome int

const (
	yielded outcome = iota
	paused
	returned
)

type message struct {
	value Value
	exc   *Exception
	fatal any
	out   outcome
	kill  bool
}

type killed struct{}

// Body is the code a generator runs. It executes on its own goroutine but
// only while the generator's resumer is blocked waiting for it.
type Body func(th *Thread, g *Generator) Value

// Generator is a suspended computation: a generator, coroutine or async
// generator.
type Generator struct {
	Kind     GeneratorKind
	Name     string
	Qualname string
	Frame    *Frame

	body   Body
	state  state
	dead   bool
	resume chan message
	reply  chan message
}

// NewGenerator creates a generator that will run body when first resumed.
func NewGenerator(kind GeneratorKind, name, qualname string, frame *Frame, body Body) *Generator {
	return &Generator{
		Kind:     kind,
		Name:     name,
		Qualname: qualname,
		Frame:    frame,
		body:     body,
	}
}

func (g *Generator) noun() string {
	switch g.Kind {
	case Coroutine:
		return "coroutine"
	case AsyncGenerator:
		return "async generator"
	case Plain:
	}

	return "generator"
}

func (g *Generator) prefix() string {
	switch g.Kind {
	case Coroutine:
		return "cr"
	case AsyncGenerator:
		return "ag"
	case Plain:
	}

	return "gi"
}

// Running returns true while the generator's body is executing.
func (g *Generator) Running() bool {
	return g.state == running
}

// Done returns true once the generator has finished or been closed.
func (g *Generator) Done() bool {
	return g.state == completed || g.state == closed
}

// Send resumes g with v. It returns the next suspension value and true, or
// the return value and false when the body finishes.
func (g *Generator) Send(th *Thread, v Value) (Value, bool) {
	if g.Done() && g.Kind == Coroutine {
		Raise(RuntimeError, "cannot reuse already awaited coroutine")
	}

	if g.state == created && v != nil && v != None {
		Raise(TypeError, "can't send non-None value to a just-started %s", g.noun())
	}

	r, out := g.step(th, message{value: v})

	return r, out != returned
}

// Next resumes g with None.
func (g *Generator) Next(th *Thread) (Value, bool) {
	v, ok := g.Send(th, None)
	if !ok {
		return nil, false
	}

	return v, true
}

// Throw raises e inside g at its suspension point.
func (g *Generator) Throw(th *Thread, e *Exception) (Value, bool) {
	r, out := g.step(th, message{exc: e})

	return r, out != returned
}

// Close throws GeneratorExit into a suspended generator. A generator that
// exits is left closed.
func (g *Generator) Close(th *Thread) {
	switch g.state {
	case created, completed:
		g.state = closed

		return
	case closed:
		return
	case running, suspended:
	}

	ignored := func() bool {
		defer func() {
			if r := recover(); r != nil {
				e, ok := r.(*Exception)
				if !ok || !(e.Matches(GeneratorExit) || e.Matches(StopIteration)) {
					panic(r)
				}
			}
		}()

		_, out := g.step(th, message{exc: NewException(GeneratorExit)})

		return out != returned
	}()

	if ignored {
		Raise(RuntimeError, "%s ignored GeneratorExit", g.noun())
	}

	g.state = closed
}

func (g *Generator) step(th *Thread, m message) (Value, outcome) {
	switch g.state {
	case running:
		Raise(ValueError, "%s already executing", g.noun())
	case completed, closed:
		if m.exc != nil {
			panic(m.exc)
		}

		return None, returned
	case created:
		if m.exc != nil {
			g.state = completed
			panic(m.exc)
		}
	case suspended:
	}

	th.Enter()
	defer th.Leave()

	if g.state == created {
		g.start(th)
	}

	g.state = running
	g.resume <- m
	r := <-g.reply

	switch {
	case r.fatal != nil:
		g.finish(th)
		panic(r.fatal)
	case r.exc != nil:
		g.finish(th)
		panic(r.exc)
	case r.out == returned:
		g.finish(th)

		return r.value, returned
	}

	g.state = suspended

	return r.value, r.out
}

func (g *Generator) finish(th *Thread) {
	g.state = completed
	th.untrack(g)
}

func (g *Generator) start(th *Thread) {
	g.resume = make(chan message)
	g.reply = make(chan message)

	th.track(g)

	go func() {
		<-g.resume

		out := message{out: returned, value: None}

		defer func() {
			if r := recover(); r != nil {
				switch e := r.(type) {
				case killed:
				case *Exception:
					out = message{exc: g.escaped(e)}
				default:
					out = message{fatal: r}
				}
			}

			g.reply <- out
		}()

		v := g.body(th, g)
		if v == nil {
			v = None
		}

		out.value = v
	}()
}

// escaped converts iteration-ending exceptions that leave the body.
func (g *Generator) escaped(e *Exception) *Exception {
	switch {
	case e.Matches(StopIteration):
	case g.Kind == AsyncGenerator && e.Matches(StopAsyncIteration):
	default:
		return e
	}

	r := NewException(RuntimeError, g.noun()+" raised "+e.Class.Name)
	r.Cause = e
	r.Context = e
	r.Suppress = true

	return r
}

func (g *Generator) suspend(v Value, out outcome) message {
	if g.dead {
		panic(killed{})
	}

	g.reply <- message{value: v, out: out}

	m := <-g.resume
	if m.kill {
		g.dead = true
		panic(killed{})
	}

	return m
}

// Yield suspends the body of g, producing v. It returns the value sent by
// the next resumption.
func (g *Generator) Yield(th *Thread, v Value) Value {
	m := g.suspend(v, yielded)
	if m.exc != nil {
		panic(m.exc)
	}

	if m.value == nil {
		return None
	}

	return m.value
}

// Pause suspends the coroutine g without producing a value, the way a bare
// yield to an event loop does.
func (g *Generator) Pause(th *Thread) {
	if m := g.suspend(None, paused); m.exc != nil {
		panic(m.exc)
	}
}

// YieldFrom delegates to the iterable v from inside the body of g and
// returns the delegate's return value.
func (g *Generator) YieldFrom(th *Thread, v Value) Value {
	if c, ok := v.(*Generator); ok && c.Kind == Coroutine {
		if g.Kind == Plain {
			Raise(TypeError, "cannot 'yield from' a coroutine object in a non-coroutine generator")
		}

		return g.delegate(th, c, yielded)
	}

	return g.delegate(th, Iter(th, v), yielded)
}

// Await drives the awaitable v from inside the body of g, passing its
// suspensions on to g's resumer.
func (g *Generator) Await(th *Thread, v Value) Value {
	return g.delegate(th, Awaitable(th, v), paused)
}

func (g *Generator) delegate(th *Thread, it Value, out outcome) Value {
	var (
		sent   Value = None
		thrown *Exception
	)

	for {
		var (
			v    Value
			more bool
		)

		if thrown != nil {
			v, more = throwInto(th, it, thrown)
		} else {
			v, more = sendInto(th, it, sent)
		}

		if !more {
			if v == nil {
				return None
			}

			return v
		}

		m := g.suspend(v, out)

		sent, thrown = m.value, m.exc
		if thrown != nil && thrown.Matches(GeneratorExit) {
			closeInner(th, it)
			panic(thrown)
		}
	}
}

// shutdown closes a generator at the end of a run. A generator that
// refuses to close is abandoned.
func (g *Generator) shutdown(th *Thread) {
	defer th.untrack(g)

	if g.state != suspended {
		return
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				th.Logger.Debug("generator did not close cleanly", "name", g.Qualname, "error", r)
			}
		}()

		g.Close(th)
	}()

	if g.state == suspended {
		g.resume <- message{kill: true}
		<-g.reply

		g.state = closed
	}
}

type resumable interface {
	Send(th *Thread, v Value) (Value, bool)
	Throw(th *Thread, e *Exception) (Value, bool)
	Close(th *Thread)
}

func sendInto(th *Thread, it, v Value) (Value, bool) {
	switch x := it.(type) {
	case resumable:
		return x.Send(th, v)
	case *Iterator:
		if v != None {
			Raise(AttributeError, "'%s' object has no attribute 'send'", x.Name)
		}

		return x.Step(th)
	}

	if v == None {
		return callStop(th, GetAttr(th, it, "__next__"), nil)
	}

	return callStop(th, GetAttr(th, it, "send"), []Value{v})
}

func throwInto(th *Thread, it Value, e *Exception) (Value, bool) {
	if x, ok := it.(resumable); ok {
		return x.Throw(th, e)
	}

	f, ok := LookupAttr(th, it, "throw")
	if !ok {
		panic(e)
	}

	return callStop(th, f, []Value{e})
}

func closeInner(th *Thread, it Value) {
	if x, ok := it.(resumable); ok {
		x.Close(th)

		return
	}

	if f, ok := LookupAttr(th, it, "close"); ok {
		Call(th, f, nil, nil)
	}
}

// callStop calls f, treating StopIteration as the end of iteration.
func callStop(th *Thread, f Value, args []Value) (v Value, more bool) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*Exception); ok && e.Matches(StopIteration) {
				v, more = e.Value(), false

				return
			}

			panic(r)
		}
	}()

	return Call(th, f, args, nil), true
}

// Awaitable returns the iterator that drives v in an await expression.
func Awaitable(th *Thread, v Value) Value {
	switch x := v.(type) {
	case *Generator:
		if x.Kind == Coroutine {
			return x
		}
	case *AsyncStep:
		return x
	case *Instance, *Exception:
		t := TypeOf(x)
		if f, ok := t.Lookup("__await__"); ok {
			it := Call(th, bind(th, f, x, t), nil, nil)
			if !isIterator(it) {
				Raise(TypeError, "__await__() returned non-iterator of type '%s'", TypeName(it))
			}

			return it
		}
	}

	Raise(TypeError, "object %s can't be used in 'await' expression", TypeName(v))

	return nil
}

// Drive runs the awaitable v to completion from the host, discarding its
// suspension values.
func Drive(th *Thread, v Value) Value {
	it := Awaitable(th, v)

	for {
		r, more := sendInto(th, it, None)
		if !more {
			return r
		}
	}
}

// AsyncStep is the awaitable returned by the __anext__, asend, athrow and
// aclose methods of an async generator.
type AsyncStep struct {
	Gen   *Generator
	Mode  string
	Value Value
	Exc   *Exception

	started bool
	done    bool
}

// Send resumes the step.
func (s *AsyncStep) Send(th *Thread, v Value) (Value, bool) {
	if s.done {
		Raise(RuntimeError, "cannot reuse already awaited %s()", s.Mode)
	}

	m := message{value: v}

	if !s.started {
		s.started = true

		switch s.Mode {
		case "athrow":
			m = message{exc: s.Exc}
		case "aclose":
			m = message{exc: NewException(GeneratorExit)}
		default:
			m = message{value: s.Value}
			if s.Gen.state == created && s.Value != nil && s.Value != None {
				Raise(TypeError, "can't send non-None value to a just-started async generator")
			}
		}
	}

	return s.advance(th, m)
}

// Throw raises e inside the async generator.
func (s *AsyncStep) Throw(th *Thread, e *Exception) (Value, bool) {
	if s.done {
		Raise(RuntimeError, "cannot reuse already awaited %s()", s.Mode)
	}

	s.started = true

	return s.advance(th, message{exc: e})
}

// Close marks the step as finished.
func (s *AsyncStep) Close(*Thread) {
	s.done = true
}

func (s *AsyncStep) advance(th *Thread, m message) (v Value, more bool) {
	if s.Mode == "aclose" {
		defer func() {
			if r := recover(); r != nil {
				e, ok := r.(*Exception)
				if !ok || !(e.Matches(GeneratorExit) || e.Matches(StopAsyncIteration)) {
					panic(r)
				}

				s.done = true
				v, more = None, false
			}
		}()
	}

	r, out := s.Gen.step(th, m)

	switch out {
	case paused:
		return r, true
	case yielded:
		s.done = true

		if s.Mode == "aclose" {
			Raise(RuntimeError, "async generator ignored GeneratorExit")
		}

		return r, false
	case returned:
	}

	s.done = true

	if s.Mode == "aclose" {
		return None, false
	}

	panic(NewException(StopAsyncIteration))
}

func generatorAttr(g *Generator, name string) (Value, bool) {
	p := g.prefix()

	switch name {
	case "__name__":
		return g.Name, true
	case "__qualname__":
		return g.Qualname, true
	case p + "_frame":
		if g.Done() || g.Frame == nil {
			return None, true
		}

		return &FrameSurrogate{Frame: g.Frame}, true
	case p + "_running":
		return g.state == running, true
	case p + "_suspended":
		return g.state == suspended, true
	}

	return nil, false
}

func stepMethod(c *Class, mode string) {
	method(c, mode, func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		g := self.(*Generator) //nolint:forcetypeassert
		s := &AsyncStep{Gen: g, Mode: mode, Value: None}

		switch mode {
		case "asend":
			a := Args(mode, args, kw, 1, "value")
			s.Value = a[0]
		case "athrow":
			a := Args(mode, args, kw, 1, "typ", "val", "tb")
			s.Exc = thrownException(th, a[0], a[1])
		}

		return s
	})
}

func thrownException(th *Thread, typ, val Value) *Exception {
	if c, ok := typ.(*Class); ok && val != nil && val != None {
		if e, ok := val.(*Exception); ok && e.Matches(c) {
			return e
		}

		return AsException(th, Call(th, c, []Value{val}, nil))
	}

	return AsException(th, typ)
}

func stopWith(v Value) {
	if v == nil || v == None {
		panic(NewException(StopIteration))
	}

	panic(NewException(StopIteration, v))
}

//nolint:funlen
func init() {
	for _, c := range []*Class{GeneratorType, CoroutineType} {
		method(c, "send", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
			a := Args("send", args, kw, 1, "value")

			v, more := self.(*Generator).Send(th, a[0]) //nolint:forcetypeassert
			if !more {
				stopWith(v)
			}

			return v
		})

		method(c, "throw", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
			a := Args("throw", args, kw, 1, "typ", "val", "tb")

			v, more := self.(*Generator).Throw(th, thrownException(th, a[0], a[1])) //nolint:forcetypeassert
			if !more {
				stopWith(v)
			}

			return v
		})

		method(c, "close", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
			NoKeywords("close", kw)
			self.(*Generator).Close(th) //nolint:forcetypeassert

			return None
		})
	}

	method(GeneratorType, "__iter__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return self
	})

	method(GeneratorType, "__next__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		v, more := self.(*Generator).Send(th, None) //nolint:forcetypeassert
		if !more {
			stopWith(v)
		}

		return v
	})

	method(CoroutineType, "__await__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return self
	})

	method(AsyncGeneratorType, "__aiter__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return self
	})

	method(AsyncGeneratorType, "__anext__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return &AsyncStep{Gen: self.(*Generator), Mode: "__anext__", Value: None} //nolint:forcetypeassert
	})

	stepMethod(AsyncGeneratorType, "asend")
	stepMethod(AsyncGeneratorType, "athrow")
	stepMethod(AsyncGeneratorType, "aclose")

	method(AsyncStepType, "__await__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return self
	})

	method(AsyncStepType, "__iter__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		return self
	})

	method(AsyncStepType, "__next__", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		v, more := self.(*AsyncStep).Send(th, None) //nolint:forcetypeassert
		if !more {
			stopWith(v)
		}

		return v
	})

	method(AsyncStepType, "send", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		a := Args("send", args, kw, 1, "value")

		v, more := self.(*AsyncStep).Send(th, a[0]) //nolint:forcetypeassert
		if !more {
			stopWith(v)
		}

		return v
	})

	method(AsyncStepType, "close", func(th *Thread, self Value, args []Value, kw []Keyword) Value {
		self.(*AsyncStep).Close(th) //nolint:forcetypeassert

		return None
	})
}
