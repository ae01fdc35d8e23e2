package manifest

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
)

// Param is one keyword argument of a manifest builtin. Kind is the
// Starlark type name the value must have ("string", "dict"). Optional
// arguments also accept None.
type Param struct {
	Name     string
	Kind     string
	Doc      string
	Optional bool
}

// Builtin describes a keyword-only manifest function.
type Builtin struct {
	Name   string
	Doc    string
	Params []Param
}

// Args holds the validated arguments of one call. Omitted optional
// arguments and explicit None are both absent.
type Args map[string]starlark.Value

// String returns the named argument, or "" when absent.
func (a Args) String(name string) string {
	s, _ := starlark.AsString(a[name])
	return s
}

// Action implements a Builtin once its arguments have been checked.
type Action func(thread *starlark.Thread, args Args) (starlark.Value, error)

// Make returns the Starlark function for b. Bad calls fail with the
// problem followed by the declaration's usage.
func (b Builtin) Make(action Action) *starlark.Builtin {
	return starlark.NewBuiltin(b.Name, func(thread *starlark.Thread, _ *starlark.Builtin, pos starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		args, err := b.bind(pos, kwargs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w\n%s", b.Name, err, b.Usage())
		}
		return action(thread, args)
	})
}

func (b Builtin) bind(pos starlark.Tuple, kwargs []starlark.Tuple) (Args, error) {
	if len(pos) > 0 {
		return nil, fmt.Errorf("got %d positional arguments, declarations take name = value pairs only", len(pos))
	}
	args := make(Args, len(kwargs))
	for _, kv := range kwargs {
		name := string(kv[0].(starlark.String))
		p, ok := b.param(name)
		if !ok {
			return nil, fmt.Errorf("unknown argument %q (accepted: %s)", name, strings.Join(b.names(), ", "))
		}
		v := kv[1]
		if v == starlark.None && p.Optional {
			continue
		}
		if v.Type() != p.Kind {
			return nil, fmt.Errorf("argument %q must be a %s, got %s", name, p.Kind, v.Type())
		}
		args[name] = v
	}
	for _, p := range b.Params {
		if _, ok := args[p.Name]; !ok && !p.Optional {
			return nil, fmt.Errorf("missing required argument %q", p.Name)
		}
	}
	return args, nil
}

func (b Builtin) param(name string) (Param, bool) {
	for _, p := range b.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

func (b Builtin) names() []string {
	out := make([]string, len(b.Params))
	for i, p := range b.Params {
		out[i] = p.Name
	}
	return out
}

// Usage renders the declaration signature and its arguments.
//
//	item(src, type = None, id = None, data = None)
//	  Declares one asset to preload
//	    src   string  URI of the asset
func (b Builtin) Usage() string {
	sig := make([]string, len(b.Params))
	width := 0
	for i, p := range b.Params {
		sig[i] = p.Name
		if p.Optional {
			sig[i] += " = None"
		}
		width = max(width, len(p.Name))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s(%s)\n  %s\n", b.Name, strings.Join(sig, ", "), b.Doc)
	for _, p := range b.Params {
		fmt.Fprintf(&sb, "    %-*s  %-6s  %s\n", width, p.Name, p.Kind, p.Doc)
	}
	return sb.String()
}
