// Package metrics provides Prometheus metrics for monitoring freight
// uploads.
//
// The metrics are organized into logical modules:
//
//   - chunks.go: per-chunk persistence outcomes and throughput
//   - assembly.go: finalize/assembly performance and outcomes
//   - http.go: HTTP request performance, backpressure, and WebSocket streaming
//
// All metrics are registered through promauto and exposed via the /metrics
// endpoint when the server starts.
package metrics
