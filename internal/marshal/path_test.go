package marshal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathString(t *testing.T) {
	tests := []struct {
		path Path
		want string
	}{
		{nil, "$"},
		{Path{Key("a")}, "$.a"},
		{Path{Key("a"), Index(0), Key("b")}, "$.a[0].b"},
		{Path{Index(2)}, "$[2]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.path.String())
	}
}

func TestPathChildDoesNotAlias(t *testing.T) {
	base := make(Path, 1, 4)
	base[0] = Key("a")

	left := base.Child(Key("b"))
	right := base.Child(Key("c"))

	assert.Equal(t, "$.a.b", left.String())
	assert.Equal(t, "$.a.c", right.String())
}

func TestPathHasPrefix(t *testing.T) {
	p := Path{Key("a"), Index(1), Key("b")}

	assert.True(t, p.HasPrefix(nil))
	assert.True(t, p.HasPrefix(Path{Key("a")}))
	assert.True(t, p.HasPrefix(Path{Key("a"), Index(1)}))
	assert.True(t, p.HasPrefix(p))
	assert.False(t, p.HasPrefix(Path{Key("a"), Index(2)}))
	assert.False(t, p.HasPrefix(Path{Key("b")}))
	assert.False(t, Path{Key("a")}.HasPrefix(p))
}

func TestComparePaths(t *testing.T) {
	tests := []struct {
		name string
		a, b Path
		want int
	}{
		{"equal empty", nil, nil, 0},
		{"shorter first", Path{Key("a")}, Path{Key("a"), Key("b")}, -1},
		{"index before key", Path{Index(0)}, Path{Key("a")}, -1},
		{"numeric index order", Path{Index(2)}, Path{Index(10)}, -1},
		{"lexicographic keys", Path{Key("a")}, Path{Key("b")}, -1},
		{"equal mixed", Path{Key("a"), Index(1)}, Path{Key("a"), Index(1)}, 0},
		{"first difference decides", Path{Key("a"), Key("z")}, Path{Key("b"), Key("a")}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComparePaths(tt.a, tt.b))
			assert.Equal(t, -tt.want, ComparePaths(tt.b, tt.a))
		})
	}
}

func TestSegmentJSONRoundTrip(t *testing.T) {
	p := Path{Key("items"), Index(3), Key("x")}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `["items",3,"x"]`, string(data))

	var back Path
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Equal(p))
}

func TestSegmentUnmarshalRejectsBadInput(t *testing.T) {
	var p Path
	assert.Error(t, json.Unmarshal([]byte(`[true]`), &p))
	assert.Error(t, json.Unmarshal([]byte(`[1.5]`), &p))
}
