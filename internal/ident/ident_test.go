package ident

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionID(t *testing.T) {
	id := NewSessionID()

	assert.True(t, strings.HasPrefix(id.String(), "sess_"))
	assert.True(t, IsValid(id.String()))
}

func TestSessionIDsSortByCreation(t *testing.T) {
	a := NewSessionID()
	time.Sleep(2 * time.Millisecond)
	b := NewSessionID()

	assert.Less(t, a.String(), b.String())
}

func TestSessionIDsUnique(t *testing.T) {
	seen := make(map[SessionID]bool)
	for i := 0; i < 1000; i++ {
		id := NewSessionID()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"generated id", NewSessionID().String(), true},
		{"missing prefix", "01HZY3T4N9QK4R8W2M5X7C6B1D", false},
		{"wrong prefix", "app_01HZY3T4N9QK4R8W2M5X7C6B1D", false},
		{"garbage", "sess_not-a-ulid", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.id))
		})
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id := NewSessionID()
	after := time.Now().Add(time.Second)

	ts, err := Timestamp(id.String())
	require.NoError(t, err)
	assert.True(t, ts.After(before) && ts.Before(after))

	_, err = Timestamp("bogus")
	assert.Error(t, err)
}
