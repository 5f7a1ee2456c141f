package marshal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlainValueIsNoOp(t *testing.T) {
	value := Object(map[string]Value{
		"a": Int(1),
		"b": Array(String("x"), Null()),
	})

	desc, specials, err := Extract(value, TrueSchema())
	require.NoError(t, err)

	assert.Empty(t, specials)
	assert.Empty(t, desc.Paths)
	assert.True(t, desc.Value.Equal(value))
}

func TestExtractMarkedSubtree(t *testing.T) {
	schema := mustSchema(t, `{
		"type": "object",
		"properties": {
			"h": {"type": "object", "properties": {"$pagebridge::remote": {}}},
			"x": {"type": "integer"}
		},
		"required": ["h", "x"]
	}`)

	handle := remoteFn("h-9")
	value := Object(map[string]Value{"h": handle, "x": Int(1)})

	desc, specials, err := Extract(value, schema)
	require.NoError(t, err)

	require.Len(t, specials, 1)
	assert.True(t, specials[0].Equal(handle))
	require.Len(t, desc.Paths, 1)
	assert.Equal(t, "$.h", desc.Paths[0].String())

	// The skeleton replaces the marked subtree with an empty object
	// and keeps everything else.
	want := Object(map[string]Value{"h": Object(nil), "x": Int(1)})
	assert.True(t, desc.Value.Equal(want), "got %s", desc.Value)
	assert.True(t, desc.Value.IsJSON())
}

func TestExtractRootSpecial(t *testing.T) {
	schema := mustSchema(t, `{"type":"object","properties":{"$pagebridge::remote":{}}}`)

	desc, specials, err := Extract(remoteObj("root"), schema)
	require.NoError(t, err)

	require.Len(t, specials, 1)
	require.Len(t, desc.Paths, 1)
	assert.Empty(t, desc.Paths[0])
	assert.True(t, desc.Value.Equal(Object(nil)))
}

func TestExtractOrdersSpecialsByPath(t *testing.T) {
	schema := mustSchema(t, `{
		"type": "object",
		"properties": {
			"z": {"type": "object", "properties": {"$pagebridge::remote": {}}},
			"a": {"type": "object", "properties": {"$pagebridge::remote": {}}},
			"list": {"type": "array", "items": {"type": "object", "properties": {"$pagebridge::undefined": {}}}}
		},
		"required": ["z", "a", "list"]
	}`)

	value := Object(map[string]Value{
		"z":    remoteFn("z"),
		"a":    remoteFn("a"),
		"list": Array(Undefined(), Undefined()),
	})

	desc, specials, err := Extract(value, schema)
	require.NoError(t, err)

	require.Len(t, specials, 4)
	paths := make([]string, len(desc.Paths))
	for i, p := range desc.Paths {
		paths[i] = p.String()
	}
	assert.Equal(t, []string{"$.a", "$.z", "$.list[0]", "$.list[1]"}, paths)
}

func TestExtractArrayCarving(t *testing.T) {
	schema := mustSchema(t, `{
		"type": "array",
		"items": {
			"type": ["integer", "object"],
			"properties": {"$pagebridge::bigint": {}}
		}
	}`)

	value := Array(Int(1), BigInt("99"), Int(3))
	desc, specials, err := Extract(value, schema)
	require.NoError(t, err)

	require.Len(t, specials, 1)
	assert.True(t, specials[0].Equal(BigInt("99")))
	want := Array(Int(1), Object(nil), Int(3))
	assert.True(t, desc.Value.Equal(want), "got %s", desc.Value)
}

func TestExtractDoesNotMutateInput(t *testing.T) {
	schema := mustSchema(t, `{
		"type": "object",
		"properties": {"h": {"type": "object", "properties": {"$pagebridge::remote": {}}}},
		"required": ["h"]
	}`)

	handle := remoteFn("keep")
	value := Object(map[string]Value{"h": handle})
	desc, _, err := Extract(value, schema)
	require.NoError(t, err)

	// Original still holds the handle; only the skeleton carries the
	// placeholder.
	got, _ := value.Field("h")
	assert.Equal(t, KindRemote, got.Kind())
	carved, _ := desc.Value.Field("h")
	assert.Equal(t, KindObject, carved.Kind())
}

func TestPruneDominated(t *testing.T) {
	root := Special{Path: Path{Key("a")}, Value: String("anc")}
	child := Special{Path: Path{Key("a"), Key("b")}, Value: String("desc")}
	sibling := Special{Path: Path{Key("c")}, Value: String("side")}

	kept := pruneDominated([]Special{root, child, sibling})
	require.Len(t, kept, 2)
	assert.Equal(t, "$.a", kept[0].Path.String())
	assert.Equal(t, "$.c", kept[1].Path.String())
}

func TestExtractFailsOnInvalidValue(t *testing.T) {
	schema := mustSchema(t, `{"type":"integer"}`)
	_, _, err := Extract(String("nope"), schema)
	assert.Error(t, err)
}

func TestDescriptorFromValue(t *testing.T) {
	raw, err := FromJSON([]byte(`{
		"value": {"h": {}, "x": 1},
		"paths": [["h"], ["list", 0]]
	}`))
	require.NoError(t, err)

	d, err := DescriptorFromValue(raw)
	require.NoError(t, err)
	require.Len(t, d.Paths, 2)
	assert.Equal(t, "$.h", d.Paths[0].String())
	assert.Equal(t, "$.list[0]", d.Paths[1].String())
}

func TestDescriptorFromValueRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not an object", `[1]`},
		{"paths not array", `{"value":1,"paths":{}}`},
		{"path not array", `{"value":1,"paths":["h"]}`},
		{"segment wrong kind", `{"value":1,"paths":[[true]]}`},
		{"negative index", `{"value":1,"paths":[[-1]]}`},
		{"fractional index", `{"value":1,"paths":[[0.5]]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := FromJSON([]byte(tt.doc))
			require.NoError(t, err)
			_, err = DescriptorFromValue(raw)
			assert.Error(t, err)
		})
	}
}
