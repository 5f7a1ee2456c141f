// Package config provides 12-factor configuration for the session
// server.
//
// Configuration is loaded from PAGEBRIDGE-prefixed environment
// variables with sensible defaults; CLI flags in cmd/server can
// override individual values for development.
//
// Configuration Sections:
//   - Server: HTTP listener settings (host, port, shutdown timeout)
//   - Session: per-session limits (count cap, evaluation timeout)
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("listening on %s\n", cfg.Server.Addr())
package config
