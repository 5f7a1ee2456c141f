package eval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagebridge/pagebridge/internal/marshal"
)

// fakeInvoker scripts the execution context: operands resolve through a
// lookup table, invocations run a callback, and promise handles are
// awaited through another callback.
type fakeInvoker struct {
	operands map[string]marshal.Value
	invoke   func(expr string, this marshal.Value, args []marshal.Value) (marshal.Value, error)
	await    func(v marshal.Value) (marshal.Value, error)

	gotOperandThis []marshal.Value
}

func (f *fakeInvoker) Invoke(_ context.Context, expr string, this marshal.Value, args []marshal.Value) (marshal.Value, error) {
	return f.invoke(expr, this, args)
}

func (f *fakeInvoker) EvalOperand(_ context.Context, src string, this marshal.Value) (marshal.Value, error) {
	f.gotOperandThis = append(f.gotOperandThis, this)
	v, ok := f.operands[src]
	if !ok {
		return marshal.Value{}, errors.New("unknown operand " + src)
	}
	return v, nil
}

func (f *fakeInvoker) IsThenable(v marshal.Value) bool {
	return v.Kind() == marshal.KindRemote && v.Handle().Subtype == "promise"
}

func (f *fakeInvoker) Await(_ context.Context, v marshal.Value) (marshal.Value, error) {
	return f.await(v)
}

func value(t *testing.T, doc string) marshal.Value {
	t.Helper()
	v, err := marshal.FromJSON([]byte(doc))
	require.NoError(t, err)
	return v
}

// buildArgs assembles the positional wire order: special slots first,
// then descriptors, funcThis, exprThis, awaitPromise and the result
// schema.
func buildArgs(slots []marshal.Value, descriptors, funcThis, exprThis marshal.Value, await bool, schema marshal.Value) []marshal.Value {
	args := append([]marshal.Value{}, slots...)
	return append(args, descriptors, funcThis, exprThis, marshal.Bool(await), schema)
}

func TestEvaluateSynchronous(t *testing.T) {
	var gotExpr string
	var gotThis marshal.Value
	var gotArgs []marshal.Value

	inv := &fakeInvoker{
		invoke: func(expr string, this marshal.Value, args []marshal.Value) (marshal.Value, error) {
			gotExpr, gotThis, gotArgs = expr, this, args
			return marshal.String("ok"), nil
		},
	}
	o := New(inv, nil, nil)

	descriptors := value(t, `[{"value":{"n":1},"paths":[]}]`)
	funcThis := value(t, `{"role":"func"}`)
	exprThis := value(t, `{"role":"expr"}`)
	schema := value(t, `{"type":"string"}`)

	args := buildArgs(nil, descriptors, funcThis, exprThis, false, schema)
	outcome, err := o.Evaluate(context.Background(), "(x) => x.n", args, nil)
	require.NoError(t, err)

	require.NotNil(t, outcome.Result)
	assert.Nil(t, outcome.Pending)
	assert.Equal(t, "(x) => x.n", gotExpr)
	assert.True(t, gotThis.Equal(exprThis))
	require.Len(t, gotArgs, 1)
	assert.True(t, gotArgs[0].Equal(value(t, `{"n":1}`)))
	assert.True(t, outcome.Result.Descriptor.Value.Equal(marshal.String("ok")))
	assert.Empty(t, outcome.Result.Specials)
}

func TestEvaluateMergesSpecialSlots(t *testing.T) {
	var gotArgs []marshal.Value
	inv := &fakeInvoker{
		invoke: func(_ string, _ marshal.Value, args []marshal.Value) (marshal.Value, error) {
			gotArgs = args
			return marshal.Null(), nil
		},
	}
	o := New(inv, nil, nil)

	handle := marshal.Remote(marshal.Handle{ID: "h-1", Type: marshal.HandleFunction})
	descriptors := value(t, `[{"value":{"cb":{}},"paths":[["cb"]]}]`)

	args := buildArgs(
		[]marshal.Value{handle},
		descriptors,
		marshal.Null(), marshal.Null(),
		false,
		value(t, `{"type":"null"}`),
	)
	_, err := o.Evaluate(context.Background(), "fn", args, nil)
	require.NoError(t, err)

	require.Len(t, gotArgs, 1)
	cb, ok := gotArgs[0].Field("cb")
	require.True(t, ok)
	assert.True(t, cb.Equal(handle))
}

func TestEvaluateResolvesOperands(t *testing.T) {
	funcThis := value(t, `{"role":"func"}`)
	var gotArgs []marshal.Value

	inv := &fakeInvoker{
		operands: map[string]marshal.Value{
			"window.top": marshal.String("resolved"),
		},
		invoke: func(_ string, _ marshal.Value, args []marshal.Value) (marshal.Value, error) {
			gotArgs = args
			return marshal.Null(), nil
		},
	}
	o := New(inv, nil, nil)

	// The slot holds index 0, selecting the first operand.
	descriptors := value(t, `[{"value":{},"paths":[["arg"]]}]`)
	args := buildArgs(
		[]marshal.Value{marshal.Int(0)},
		descriptors,
		funcThis, marshal.Null(),
		false,
		value(t, `{"type":"null"}`),
	)

	_, err := o.Evaluate(context.Background(), "fn", args, []string{"window.top"})
	require.NoError(t, err)

	// Operands evaluate under funcThis, not exprThis.
	require.Len(t, inv.gotOperandThis, 1)
	assert.True(t, inv.gotOperandThis[0].Equal(funcThis))

	arg, ok := gotArgs[0].Field("arg")
	require.True(t, ok)
	assert.True(t, arg.Equal(marshal.String("resolved")))
}

func TestEvaluateAwaitsPromise(t *testing.T) {
	promise := marshal.Remote(marshal.Handle{ID: "p-1", Type: marshal.HandleObject, Subtype: "promise"})

	inv := &fakeInvoker{
		invoke: func(string, marshal.Value, []marshal.Value) (marshal.Value, error) {
			return promise, nil
		},
		await: func(v marshal.Value) (marshal.Value, error) {
			return marshal.Int(7), nil
		},
	}
	o := New(inv, nil, nil)

	args := buildArgs(nil, value(t, `[]`), marshal.Null(), marshal.Null(), true, value(t, `{"type":"integer"}`))
	outcome, err := o.Evaluate(context.Background(), "async fn", args, nil)
	require.NoError(t, err)

	require.Nil(t, outcome.Result)
	require.NotNil(t, outcome.Pending)

	select {
	case settled := <-outcome.Pending:
		require.NoError(t, settled.Err)
		assert.True(t, settled.Result.Descriptor.Value.Equal(marshal.Int(7)))
	case <-time.After(time.Second):
		t.Fatal("awaited evaluation never settled")
	}
}

func TestEvaluateAwaitRejection(t *testing.T) {
	promise := marshal.Remote(marshal.Handle{ID: "p-2", Type: marshal.HandleObject, Subtype: "promise"})

	inv := &fakeInvoker{
		invoke: func(string, marshal.Value, []marshal.Value) (marshal.Value, error) {
			return promise, nil
		},
		await: func(marshal.Value) (marshal.Value, error) {
			return marshal.Value{}, errors.New("promise rejected: nope")
		},
	}
	o := New(inv, nil, nil)

	args := buildArgs(nil, value(t, `[]`), marshal.Null(), marshal.Null(), true, value(t, `true`))
	outcome, err := o.Evaluate(context.Background(), "async fn", args, nil)
	require.NoError(t, err)

	settled := <-outcome.Pending
	require.Error(t, settled.Err)
	assert.Contains(t, settled.Err.Error(), "promise rejected")
}

func TestEvaluateNonThenableIgnoresAwaitFlag(t *testing.T) {
	inv := &fakeInvoker{
		invoke: func(string, marshal.Value, []marshal.Value) (marshal.Value, error) {
			return marshal.String("plain"), nil
		},
	}
	o := New(inv, nil, nil)

	args := buildArgs(nil, value(t, `[]`), marshal.Null(), marshal.Null(), true, value(t, `{"type":"string"}`))
	outcome, err := o.Evaluate(context.Background(), "fn", args, nil)
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)
	assert.Nil(t, outcome.Pending)
}

func TestEvaluateResultSchemaExtractsSpecials(t *testing.T) {
	handle := marshal.Remote(marshal.Handle{ID: "r-1", Type: marshal.HandleObject})
	inv := &fakeInvoker{
		invoke: func(string, marshal.Value, []marshal.Value) (marshal.Value, error) {
			return marshal.Object(map[string]marshal.Value{"node": handle}), nil
		},
	}
	o := New(inv, nil, nil)

	schema := value(t, `{
		"type": "object",
		"properties": {"node": {"type": "object", "properties": {"$pagebridge::remote": {}}}},
		"required": ["node"]
	}`)
	args := buildArgs(nil, value(t, `[]`), marshal.Null(), marshal.Null(), false, schema)

	outcome, err := o.Evaluate(context.Background(), "fn", args, nil)
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)

	require.Len(t, outcome.Result.Specials, 1)
	assert.True(t, outcome.Result.Specials[0].Equal(handle))
	require.Len(t, outcome.Result.Descriptor.Paths, 1)
	assert.Equal(t, "$.node", outcome.Result.Descriptor.Paths[0].String())
}

func TestEvaluateDecodeErrors(t *testing.T) {
	o := New(&fakeInvoker{}, nil, nil)
	ctx := context.Background()

	// Too few positional arguments.
	_, err := o.Evaluate(ctx, "fn", []marshal.Value{marshal.Null(), marshal.Null()}, nil)
	assert.Error(t, err)

	// awaitPromise must be a boolean.
	bad := []marshal.Value{value(t, `[]`), marshal.Null(), marshal.Null(), marshal.Int(1), value(t, `true`)}
	_, err = o.Evaluate(ctx, "fn", bad, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "awaitPromise")

	// Descriptors must be an array.
	bad = []marshal.Value{marshal.Null(), marshal.Null(), marshal.Null(), marshal.Bool(false), value(t, `true`)}
	_, err = o.Evaluate(ctx, "fn", bad, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "descriptors")

	// The result schema must parse.
	bad = []marshal.Value{value(t, `[]`), marshal.Null(), marshal.Null(), marshal.Bool(false), marshal.Int(3)}
	_, err = o.Evaluate(ctx, "fn", bad, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestEvaluateInvocationError(t *testing.T) {
	inv := &fakeInvoker{
		invoke: func(string, marshal.Value, []marshal.Value) (marshal.Value, error) {
			return marshal.Value{}, errors.New("expression threw")
		},
	}
	o := New(inv, nil, nil)

	args := buildArgs(nil, value(t, `[]`), marshal.Null(), marshal.Null(), false, value(t, `true`))
	_, err := o.Evaluate(context.Background(), "fn", args, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expression threw")
}
