package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chunk Metrics
//
// These metrics track individual chunk persistence. Use them to tune chunk
// size and spot slow disks or unreliable clients.

var (
	// ChunkWriteDuration tracks the time to validate and persist one chunk.
	ChunkWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "freight_chunk_write_duration_seconds",
			Help:    "Individual chunk write duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	// ChunkBytesReceived counts accepted chunk payload bytes.
	ChunkBytesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "freight_chunk_bytes_received_total",
			Help: "Total chunk payload bytes accepted",
		},
	)

	// ChunksTotal counts chunk submissions by outcome.
	// Labels: status (success, replay, error)
	ChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freight_chunks_total",
			Help: "Total number of chunk submissions",
		},
		[]string{"status"},
	)
)

// RecordChunkSuccess records a newly persisted chunk.
func RecordChunkSuccess() {
	ChunksTotal.WithLabelValues("success").Inc()
}

// RecordChunkReplay records an idempotent replay of an existing chunk.
func RecordChunkReplay() {
	ChunksTotal.WithLabelValues("replay").Inc()
}

// RecordChunkError records a rejected or failed chunk submission.
func RecordChunkError() {
	ChunksTotal.WithLabelValues("error").Inc()
}
