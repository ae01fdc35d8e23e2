// Package manifest reads asset manifests: Starlark files that declare the
// items to preload.
//
//	origin = "https://app.example"
//	item(src = "/img/logo.png")
//	item(src = "/data/config.json", id = "config", data = {"critical": True})
//	for name in ["a", "b"]:
//	    item(src = "/css/" + name + ".css", type = "css")
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"

	"preload/pkg/common"
	"preload/pkg/loader"
)

// Manifest is the evaluated form of a manifest file.
// Immutable
type Manifest struct {
	Name string
	// Origin is the value of the top-level origin variable, if set.
	Origin string
	Items  []common.Item
}

const keyCollector = "manifest.items"

var itemBuiltin = Builtin{
	Name: "item",
	Doc:  "Declares one asset to preload",
	Params: []Param{
		{Name: "src", Kind: "string", Doc: "URI of the asset"},
		{Name: "type", Kind: "string", Doc: "image, javascript, css, xml, svg, json, text or binary; inferred from the extension when omitted", Optional: true},
		{Name: "id", Kind: "string", Doc: "Identifier passed through to the result", Optional: true},
		{Name: "data", Kind: "dict", Doc: "Metadata passed through to the result", Optional: true},
	},
}

// Load reads and evaluates the manifest at path.
func Load(path string) (*Manifest, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(filepath.Base(path), string(source))
}

// Parse evaluates source as a manifest named name.
func Parse(name, source string) (*Manifest, error) {
	var items []common.Item
	thread := &starlark.Thread{
		Name: name,
		Print: func(thread *starlark.Thread, msg string) {
			slog.Info(msg, "manifest", thread.Name)
		},
	}
	thread.SetLocal(keyCollector, &items)

	builtins := starlark.StringDict{
		"item":   itemBuiltin.Make(addItem),
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
		"json":   starlarkstruct.FromStringDict(starlark.String("json"), jsonBuiltins()),
	}

	opts := &syntax.FileOptions{TopLevelControl: true, GlobalReassign: true}
	globals, err := starlark.ExecFileOptions(opts, thread, name, source, builtins)
	if err != nil {
		return nil, mungeEvalError(name, err)
	}

	m := &Manifest{Name: name, Items: items}
	if v, ok := globals["origin"]; ok {
		s, ok := v.(starlark.String)
		if !ok {
			return nil, fmt.Errorf("manifest %s: origin must be a string, got %s", name, v.Type())
		}
		m.Origin = string(s)
	}
	return m, nil
}

func addItem(thread *starlark.Thread, args Args) (starlark.Value, error) {
	items, ok := thread.Local(keyCollector).(*[]common.Item)
	if !ok {
		return nil, errors.New("item: called outside a manifest")
	}

	src := args.String("src")
	if src == "" {
		return nil, errors.New("item: src must not be empty")
	}
	it := common.Item{Src: src, Type: loader.InferType(src), ID: args.String("id")}

	if name := args.String("type"); name != "" {
		t, err := common.ParseItemType(name)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", src, err)
		}
		it.Type = t
	}
	if d, ok := args["data"]; ok {
		data, err := fromStarlark(d)
		if err != nil {
			return nil, fmt.Errorf("item %s: data: %w", src, err)
		}
		it.Data = data.(map[string]any)
	}

	*items = append(*items, it)
	return starlark.None, nil
}

func jsonBuiltins() starlark.StringDict {
	return starlark.StringDict{
		"decode": starlark.NewBuiltin("decode", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var s string
			if err := starlark.UnpackArgs("decode", args, kwargs, "data", &s); err != nil {
				return nil, err
			}
			var data any
			if err := json.Unmarshal([]byte(s), &data); err != nil {
				return nil, err
			}
			return toStarlark(data), nil
		}),
	}
}

func mungeEvalError(name string, err error) error {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return fmt.Errorf("manifest error in %s:\n%s", name, evalErr.Backtrace())
	}
	return fmt.Errorf("manifest error in %s: %w", name, err)
}
