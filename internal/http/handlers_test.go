package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStats struct {
	ids []string
}

func (f *fakeStats) Count() int    { return len(f.ids) }
func (f *fakeStats) IDs() []string { return f.ids }

func setupRouter(stats SessionStats, started time.Time) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandlers(stats, started)
	r := gin.New()
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/sessions", h.ListSessions)
	return r
}

func get(t *testing.T, r *gin.Engine, path string) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", path, nil))

	var body map[string]any
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestRoot(t *testing.T) {
	r := setupRouter(&fakeStats{}, time.Now())

	code, body := get(t, r, "/")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "online", body["status"])
	assert.Equal(t, "pagebridge", body["service"])
}

func TestHealth(t *testing.T) {
	r := setupRouter(&fakeStats{ids: []string{"a", "b"}}, time.Now().Add(-3*time.Second))

	code, body := get(t, r, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(2), body["sessions"])
	assert.GreaterOrEqual(t, body["uptime_seconds"], float64(2))
}

func TestListSessions(t *testing.T) {
	stats := &fakeStats{ids: []string{"sess_a", "sess_b", "sess_c"}}
	r := setupRouter(stats, time.Now())

	code, body := get(t, r, "/sessions")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), body["count"])
	assert.ElementsMatch(t, []any{"sess_a", "sess_b", "sess_c"}, body["sessions"])
}
