package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Assembly Metrics
//
// These metrics track the finalize path: streaming a complete chunk set
// into the destination file.

var (
	// AssemblyDuration tracks end-to-end assembly time per session.
	AssemblyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "freight_assembly_duration_seconds",
			Help:    "File assembly duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s to ~7min
		},
	)

	// AssembliesTotal counts finalize outcomes.
	// Labels: status (success, error)
	AssembliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freight_assemblies_total",
			Help: "Total number of assembly attempts",
		},
		[]string{"status"},
	)

	// SessionsCleaned counts sessions removed by the periodic cleanup loop.
	SessionsCleaned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "freight_sessions_cleaned_total",
			Help: "Total number of stale sessions cleaned up",
		},
	)
)

// RecordAssembly records one finalize attempt by outcome.
func RecordAssembly(status string) {
	AssembliesTotal.WithLabelValues(status).Inc()
}
