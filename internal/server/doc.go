// Package server provides HTTP server setup and session hosting.
//
// This package orchestrates all components:
//   - HTTP routing with Gin framework
//   - Middleware stack (CORS, rate limiting, recovery)
//   - WebSocket session acceptance and tracking
//   - Per-session VM, bridge registry and orchestrator wiring
//   - Prometheus metrics exposure
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Initialize logger (production or development)
//  3. Setup HTTP routes and middleware
//  4. Accept session connections on /ws
//  5. Graceful shutdown on signal
//
// Each accepted connection becomes a Session with its own JavaScript
// execution context; sessions share nothing but the metrics registry.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv := server.New(cfg, logger)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
