// Package main is the entry point for the pagebridge session server.
//
// The server hosts isolated JavaScript execution contexts behind a
// WebSocket protocol: clients evaluate expressions with structured
// argument descriptors, receive JSON-safe result descriptors with
// remote handles split out, and expose callback functions that the
// contexts can invoke back over the same connection.
//
// Configuration:
//   - Environment variables (12-factor, PAGEBRIDGE prefix)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 8600
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
