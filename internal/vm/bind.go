package vm

import (
	"fmt"
	"math/big"

	"github.com/dop251/goja"

	"github.com/pagebridge/pagebridge/internal/marshal"
)

// bind converts a marshal.Value into a VM value. Remote values resolve
// through the handle table; everything else is materialized fresh.
// Must run on the loop goroutine.
func (c *Context) bind(rt *goja.Runtime, v marshal.Value) (goja.Value, error) {
	switch v.Kind() {
	case marshal.KindNull:
		return goja.Null(), nil
	case marshal.KindUndefined:
		return goja.Undefined(), nil
	case marshal.KindBool:
		return rt.ToValue(v.Bool()), nil
	case marshal.KindNumber:
		return rt.ToValue(v.Number()), nil
	case marshal.KindString:
		return rt.ToValue(v.Str()), nil
	case marshal.KindBigInt:
		n, ok := new(big.Int).SetString(v.Digits(), 10)
		if !ok {
			return nil, fmt.Errorf("malformed bigint %q", v.Digits())
		}
		return rt.ToValue(n), nil
	case marshal.KindArray:
		items := make([]interface{}, v.Len())
		for i := 0; i < v.Len(); i++ {
			bound, err := c.bind(rt, v.Items()[i])
			if err != nil {
				return nil, err
			}
			items[i] = bound
		}
		return rt.NewArray(items...), nil
	case marshal.KindObject:
		obj := rt.NewObject()
		for _, name := range v.FieldNames() {
			field, _ := v.Field(name)
			bound, err := c.bind(rt, field)
			if err != nil {
				return nil, err
			}
			if err := obj.Set(name, bound); err != nil {
				return nil, fmt.Errorf("set %q: %w", name, err)
			}
		}
		return obj, nil
	case marshal.KindRemote:
		return c.lookup(v.Handle().ID)
	default:
		return nil, fmt.Errorf("cannot bind value of kind %s", v.Kind())
	}
}
