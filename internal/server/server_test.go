package server

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pagebridge/pagebridge/internal/config"
)

func TestAddSessionEnforcesCap(t *testing.T) {
	cfg := config.Default()
	cfg.Session.MaxSessions = 1
	srv := New(cfg, nil)

	a := &Session{id: "sess_a"}
	b := &Session{id: "sess_b"}

	assert.True(t, srv.addSession(a))
	assert.False(t, srv.addSession(b))
	assert.Equal(t, 1, srv.Count())

	srv.removeSession(a)
	assert.True(t, srv.addSession(b))
}

func TestAddSessionCapUnderContention(t *testing.T) {
	cfg := config.Default()
	cfg.Session.MaxSessions = 4
	srv := New(cfg, nil)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if srv.addSession(&Session{id: fmt.Sprintf("sess_%d", i)}) {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, admitted)
	assert.Equal(t, 4, srv.Count())
}

func TestAddSessionUnlimitedByDefault(t *testing.T) {
	srv := New(config.Default(), nil)

	for i := 0; i < 10; i++ {
		assert.True(t, srv.addSession(&Session{id: fmt.Sprintf("sess_%d", i)}))
	}
	assert.Equal(t, 10, srv.Count())
}
