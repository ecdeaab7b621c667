package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
//
// These metrics track the transport layer: request latency, the concurrent
// upload ceiling, and WebSocket progress streaming.

var (
	// RequestDuration tracks handler latency by endpoint and status class.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freight_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"endpoint", "status"},
	)

	// ActiveChunkUploads tracks chunk requests currently holding a slot
	// under the max-concurrent-uploads ceiling.
	ActiveChunkUploads = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "freight_active_chunk_uploads",
			Help: "Chunk uploads currently in flight",
		},
	)

	// RequestsShed counts chunk requests rejected by backpressure.
	RequestsShed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "freight_requests_shed_total",
			Help: "Chunk requests rejected because the server was at capacity",
		},
	)

	// ActiveWebSocketConnections tracks live progress-stream subscribers.
	ActiveWebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "freight_websocket_connections",
			Help: "Active WebSocket progress connections",
		},
	)

	// WebSocketMessagesTotal counts progress messages pushed to subscribers.
	WebSocketMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "freight_websocket_messages_total",
			Help: "Total WebSocket progress messages sent",
		},
	)
)
