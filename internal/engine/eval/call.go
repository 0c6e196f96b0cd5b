// Released under an MIT license. See LICENSE.

package eval

import (
	"strconv"
	"strings"

	"github.com/michaelmacinnis/enclave/internal/engine/object"
	"github.com/michaelmacinnis/enclave/internal/engine/scope"
	"github.com/michaelmacinnis/enclave/internal/reader/ast"
)

func (i *interpreter) call(th *object.Thread, fr *frame, e *ast.Call) object.Value {
	f := i.eval(th, fr, e.Func)
	args := i.elements(th, fr, e.Args)
	kw := i.keywords(th, fr, f, e.Keywords)

	if c, ok := f.(*object.Class); ok && c == object.SuperType && len(args) == 0 && len(kw) == 0 {
		i.supers = append(i.supers, fr)

		defer func() {
			i.supers = i.supers[:len(i.supers)-1]
		}()
	}

	return object.Call(th, f, args, kw)
}

// keywords evaluates keyword arguments, expanding ** mappings. A name may
// only be supplied once.
func (i *interpreter) keywords(th *object.Thread, fr *frame, f object.Value, kws []*ast.Keyword) []object.Keyword {
	if len(kws) == 0 {
		return nil
	}

	kw := make([]object.Keyword, 0, len(kws))
	seen := make(map[string]bool, len(kws))

	add := func(name string, v object.Value) {
		if seen[name] {
			object.Raise(object.TypeError, "%s() got multiple values for keyword argument '%s'", callableName(f), name)
		}

		seen[name] = true

		kw = append(kw, object.Keyword{Name: name, Value: v})
	}

	for _, k := range kws {
		if k.Arg != "" {
			add(k.Arg, i.eval(th, fr, k.Value))

			continue
		}

		m := i.eval(th, fr, k.Value)
		if !isMapping(th, m) {
			object.Raise(object.TypeError, "%s() argument after ** must be a mapping, not %s", callableName(f), object.TypeName(m))
		}

		d := object.NewDict()
		object.UpdateDict(th, d, m)

		for _, item := range d.Items() {
			name, ok := object.Prim(item.Key).(string)
			if !ok {
				object.Raise(object.TypeError, "keywords must be strings")
			}

			add(name, item.Value)
		}
	}

	return kw
}

func callableName(f object.Value) string {
	switch f := f.(type) {
	case string:
		return f
	case *object.Function:
		return f.Qualname
	case *object.Builtin:
		return f.Name
	case *object.Method:
		return callableName(f.Func)
	case *object.Class:
		return f.Name
	}

	return object.TypeName(f)
}

// bindArguments binds args and kw to the parameters of f in s. It returns
// the name of the first parameter, if there is one.
//
//nolint:cyclop,funlen,gocognit
func bindArguments(th *object.Thread, f *object.Function, s *scope.T, args []object.Value, kw []object.Keyword) string {
	a := f.Code.Args
	if a == nil {
		a = &ast.Arguments{}
	}

	name := f.Qualname

	positional := make([]*ast.Arg, 0, len(a.PosOnly)+len(a.Args))
	positional = append(positional, a.PosOnly...)
	positional = append(positional, a.Args...)

	first := ""
	if len(positional) > 0 {
		first = positional[0].Name
	} else if a.Vararg != nil {
		first = a.Vararg.Name
	}

	n := len(positional)
	bound := make([]bool, n)

	for j := 0; j < len(args) && j < n; j++ {
		s.Bind(positional[j].Name, args[j])
		bound[j] = true
	}

	switch {
	case len(args) > n && a.Vararg == nil:
		tooMany(name, n, len(f.Defaults), len(args))
	case a.Vararg != nil:
		rest := object.Tuple{}
		if len(args) > n {
			rest = append(rest, args[n:]...)
		}

		s.Bind(a.Vararg.Name, rest)
	}

	var extra *object.Dict
	if a.Kwarg != nil {
		extra = object.NewDict()
	}

	kwonly := make(map[string]bool, len(a.KwOnly))

	for _, k := range kw {
		found := false

		for j := len(a.PosOnly); j < n; j++ {
			if positional[j].Name != k.Name {
				continue
			}

			if bound[j] {
				object.Raise(object.TypeError, "%s() got multiple values for argument '%s'", name, k.Name)
			}

			s.Bind(k.Name, k.Value)
			bound[j] = true
			found = true

			break
		}

		if found {
			continue
		}

		for _, p := range a.KwOnly {
			if p.Name == k.Name {
				if kwonly[k.Name] {
					object.Raise(object.TypeError, "%s() got multiple values for argument '%s'", name, k.Name)
				}

				s.Bind(k.Name, k.Value)
				kwonly[k.Name] = true
				found = true

				break
			}
		}

		if found {
			continue
		}

		if extra != nil {
			if _, ok := extra.GetStr(k.Name); ok {
				object.Raise(object.TypeError, "%s() got multiple values for keyword argument '%s'", name, k.Name)
			}

			extra.SetStr(k.Name, k.Value)

			continue
		}

		for _, p := range a.PosOnly {
			if p.Name == k.Name {
				object.Raise(object.TypeError, "%s() got some positional-only arguments passed as keyword arguments: '%s'", name, k.Name)
			}
		}

		object.Raise(object.TypeError, "%s() got an unexpected keyword argument '%s'", name, k.Name)
	}

	missing := []string{}
	offset := n - len(f.Defaults)

	for j, p := range positional {
		if bound[j] {
			continue
		}

		if d := j - offset; d >= 0 {
			s.Bind(p.Name, f.Defaults[d])

			continue
		}

		missing = append(missing, p.Name)
	}

	if len(missing) > 0 {
		object.Raise(object.TypeError, "%s() missing %d required positional %s: %s", name, len(missing), plural(len(missing), "argument"), quoted(missing))
	}

	for _, p := range a.KwOnly {
		if kwonly[p.Name] {
			continue
		}

		if f.KwDefaults != nil {
			if v, ok := f.KwDefaults.GetStr(p.Name); ok {
				s.Bind(p.Name, v)

				continue
			}
		}

		missing = append(missing, p.Name)
	}

	if len(missing) > 0 {
		object.Raise(object.TypeError, "%s() missing %d required keyword-only %s: %s", name, len(missing), plural(len(missing), "argument"), quoted(missing))
	}

	if extra != nil {
		s.Bind(a.Kwarg.Name, extra)
	}

	return first
}

func tooMany(name string, max, defaults, given int) {
	takes := strconv.Itoa(max)
	if defaults > 0 {
		takes = "from " + strconv.Itoa(max-defaults) + " to " + takes
	}

	word := "were"
	if given == 1 {
		word = "was"
	}

	object.Raise(object.TypeError, "%s() takes %s positional %s but %d %s given", name, takes, plural(max, "argument"), given, word)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}

	return word + "s"
}

// quoted renders names the way argument errors list them.
func quoted(names []string) string {
	q := make([]string, len(names))
	for j, n := range names {
		q[j] = "'" + n + "'"
	}

	switch len(q) {
	case 1:
		return q[0]
	case 2:
		return q[0] + " and " + q[1]
	}

	return strings.Join(q[:len(q)-1], ", ") + ", and " + q[len(q)-1]
}
