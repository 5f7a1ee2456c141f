package vm

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/dop251/goja"
	"github.com/google/uuid"

	"github.com/pagebridge/pagebridge/internal/marshal"
)

// export converts a VM value into a marshal.Value. JSON-shaped data is
// copied; functions, symbols, promises and non-plain objects stay in
// the VM behind a handle. seen tracks the object spine of the current
// export so cycles degrade to handles instead of recursing forever.
func (c *Context) export(rt *goja.Runtime, v goja.Value, seen map[*goja.Object]bool) (marshal.Value, error) {
	if v == nil || goja.IsUndefined(v) {
		return marshal.Undefined(), nil
	}
	if goja.IsNull(v) {
		return marshal.Null(), nil
	}

	if _, ok := v.(*goja.Symbol); ok {
		return c.remote(v, marshal.HandleSymbol, "", "Symbol"), nil
	}

	switch exported := v.Export().(type) {
	case bool:
		return marshal.Bool(exported), nil
	case int64:
		return marshal.Number(float64(exported)), nil
	case float64:
		return marshal.Number(exported), nil
	case string:
		return marshal.String(exported), nil
	case *big.Int:
		return marshal.BigInt(exported.String()), nil
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		return marshal.Value{}, fmt.Errorf("unsupported value type %T", v.Export())
	}

	if _, ok := goja.AssertFunction(v); ok {
		return c.remote(v, marshal.HandleFunction, "", "Function"), nil
	}
	if _, ok := obj.Export().(*goja.Promise); ok {
		return c.remote(v, marshal.HandleObject, "promise", "Promise"), nil
	}

	if seen[obj] {
		return c.remote(v, marshal.HandleObject, "", obj.ClassName()), nil
	}
	if seen == nil {
		seen = make(map[*goja.Object]bool)
	}
	seen[obj] = true
	defer delete(seen, obj)

	switch class := obj.ClassName(); class {
	case "Array":
		length := int(obj.Get("length").ToInteger())
		items := make([]marshal.Value, length)
		for i := 0; i < length; i++ {
			item, err := c.export(rt, obj.Get(fmt.Sprintf("%d", i)), seen)
			if err != nil {
				return marshal.Value{}, err
			}
			items[i] = item
		}
		return marshal.Array(items...), nil
	case "Object":
		keys := obj.Keys()
		sort.Strings(keys)
		fields := make(map[string]marshal.Value, len(keys))
		for _, key := range keys {
			field, err := c.export(rt, obj.Get(key), seen)
			if err != nil {
				return marshal.Value{}, err
			}
			fields[key] = field
		}
		return marshal.Object(fields), nil
	default:
		// Dates, regexps, maps, errors and other exotic objects have
		// no faithful JSON shape; keep them remote.
		return c.remote(v, marshal.HandleObject, subtypeFor(class), class), nil
	}
}

// remote registers v in the handle table and returns the referencing
// value.
func (c *Context) remote(v goja.Value, t marshal.HandleType, subtype, class string) marshal.Value {
	id := uuid.NewString()
	c.mu.Lock()
	c.handles[id] = v
	c.mu.Unlock()
	return marshal.Remote(marshal.Handle{ID: id, Type: t, Subtype: subtype, Class: class})
}

func subtypeFor(class string) string {
	switch class {
	case "Date":
		return "date"
	case "RegExp":
		return "regexp"
	case "Error", "TypeError", "RangeError", "SyntaxError", "ReferenceError", "EvalError", "URIError":
		return "error"
	case "Map":
		return "map"
	case "Set":
		return "set"
	case "WeakMap":
		return "weakmap"
	case "WeakSet":
		return "weakset"
	case "Proxy":
		return "proxy"
	default:
		return ""
	}
}
