package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionStats exposes the live-session view the handlers report on.
type SessionStats interface {
	Count() int
	IDs() []string
}

// Handlers contains all HTTP handlers
type Handlers struct {
	sessions SessionStats
	started  time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(sessions SessionStats, started time.Time) *Handlers {
	return &Handlers{sessions: sessions, started: started}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "pagebridge",
		"version": "0.1.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"sessions":       h.sessions.Count(),
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

// ListSessions lists active session identifiers
func (h *Handlers) ListSessions(c *gin.Context) {
	ids := h.sessions.IDs()
	c.JSON(http.StatusOK, gin.H{
		"sessions": ids,
		"count":    len(ids),
	})
}
