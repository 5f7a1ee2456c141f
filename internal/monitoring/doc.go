// Package monitoring exposes Prometheus metrics for evaluations, the
// exposed-function bridge, and WebSocket sessions. Collectors are
// created on an explicit registerer so tests can use isolated
// registries.
package monitoring
