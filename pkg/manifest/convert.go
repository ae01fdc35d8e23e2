package manifest

import (
	"fmt"

	"go.starlark.net/starlark"
)

// fromStarlark converts a Starlark value to a plain Go value.
func fromStarlark(v starlark.Value) (any, error) {
	switch x := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(x), nil
	case starlark.String:
		return string(x), nil
	case starlark.Int:
		i, ok := x.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %s out of range", x)
		}
		return i, nil
	case starlark.Float:
		return float64(x), nil
	case *starlark.List:
		list := make([]any, 0, x.Len())
		for i := 0; i < x.Len(); i++ {
			val, err := fromStarlark(x.Index(i))
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		return list, nil
	case *starlark.Dict:
		dict := make(map[string]any, x.Len())
		for _, key := range x.Keys() {
			k, ok := key.(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict keys must be strings, got %s", key.Type())
			}
			val, _, _ := x.Get(key)
			v, err := fromStarlark(val)
			if err != nil {
				return nil, err
			}
			dict[string(k)] = v
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("cannot convert %s to go", v.Type())
	}
}

// toStarlark converts decoded JSON to a Starlark value.
func toStarlark(v any) starlark.Value {
	switch x := v.(type) {
	case bool:
		return starlark.Bool(x)
	case string:
		return starlark.String(x)
	case float64:
		if x == float64(int64(x)) {
			return starlark.MakeInt64(int64(x))
		}
		return starlark.Float(x)
	case []any:
		list := make([]starlark.Value, 0, len(x))
		for _, item := range x {
			list = append(list, toStarlark(item))
		}
		return starlark.NewList(list)
	case map[string]any:
		dict := starlark.NewDict(len(x))
		for k, v := range x {
			dict.SetKey(starlark.String(k), toStarlark(v))
		}
		return dict
	default:
		return starlark.None
	}
}
