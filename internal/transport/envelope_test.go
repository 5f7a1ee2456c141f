package transport

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagebridge/pagebridge/internal/marshal"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	handle := marshal.Remote(marshal.Handle{ID: "h-1", Type: marshal.HandleFunction})
	env := Envelope{
		Type:       TypeEvaluate,
		ID:         "req-1",
		Expression: "(a) => a.cb",
		Args:       []marshal.Value{handle, marshal.Bool(true)},
		Operands:   []string{"window.top"},
	}

	data, err := sonic.Marshal(env)
	require.NoError(t, err)

	var back Envelope
	require.NoError(t, sonic.Unmarshal(data, &back))

	assert.Equal(t, env.Type, back.Type)
	assert.Equal(t, env.ID, back.ID)
	assert.Equal(t, env.Expression, back.Expression)
	assert.Equal(t, env.Operands, back.Operands)
	require.Len(t, back.Args, 2)
	assert.True(t, back.Args[0].Equal(handle))
	assert.True(t, back.Args[1].Equal(marshal.Bool(true)))
}

func TestEnvelopeOmitsEmptyFields(t *testing.T) {
	data, err := sonic.Marshal(Envelope{Type: TypePong, ID: "1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong","id":"1"}`, string(data))
}

func TestResultEnvelopeCarriesSpecials(t *testing.T) {
	desc := marshal.Descriptor{
		Value: marshal.Object(map[string]marshal.Value{"h": marshal.Object(nil)}),
		Paths: []marshal.Path{{marshal.Key("h")}},
	}
	specials := []marshal.Value{marshal.Remote(marshal.Handle{ID: "x", Type: marshal.HandleObject})}

	env := ResultEnvelope("req-2", desc, specials)
	data, err := sonic.Marshal(env)
	require.NoError(t, err)

	var back Envelope
	require.NoError(t, sonic.Unmarshal(data, &back))
	require.NotNil(t, back.Result)
	require.Len(t, back.Result.Paths, 1)
	assert.Equal(t, "$.h", back.Result.Paths[0].String())
	require.Len(t, back.Specials, 1)
	assert.Equal(t, marshal.KindRemote, back.Specials[0].Kind())
}

func TestSettleEnvelopeValuePointer(t *testing.T) {
	v := marshal.BigInt("7")
	env := Envelope{Type: TypeSettle, Name: "cb", Seq: 3, Value: &v}

	data, err := sonic.Marshal(env)
	require.NoError(t, err)

	var back Envelope
	require.NoError(t, sonic.Unmarshal(data, &back))
	assert.Equal(t, uint64(3), back.Seq)
	require.NotNil(t, back.Value)
	assert.True(t, back.Value.Equal(v))
}

func TestErrorEnvelope(t *testing.T) {
	env := ErrorEnvelope("req-3", "bad request")
	assert.Equal(t, TypeError, env.Type)
	assert.Equal(t, "bad request", env.Message)

	b := BindingEnvelope("cb", 9)
	assert.Equal(t, TypeBindingCalled, b.Type)
	assert.Equal(t, "cb", b.Name)
	assert.Equal(t, uint64(9), b.Seq)
}
