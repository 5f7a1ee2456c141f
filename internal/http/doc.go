// Package http provides the REST surface next to the session
// WebSocket: service identity, health and active-session listing.
//
// Endpoints:
//   - Health: / and /health
//   - Sessions: /sessions
//
// Example Usage:
//
//	handlers := http.NewHandlers(server, time.Now())
//	router.GET("/health", handlers.Health)
package http
