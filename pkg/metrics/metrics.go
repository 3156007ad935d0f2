package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors are registered on the default registry through promauto.

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracekit_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracekit_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "path"},
	)

	// OperationsTotal counts trace operations by name and outcome
	// ("ok" or the error kind, e.g. "OutOfBounds").
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracekit_operations_total",
			Help: "Trace operations applied or rejected",
		},
		[]string{"op", "outcome"},
	)

	// RedrawsTotal counts redraw notifications, one per successful change.
	RedrawsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracekit_redraws_total",
			Help: "Number of document redraws triggered",
		},
	)

	Documents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracekit_documents",
			Help: "Number of graph documents held by the engine",
		},
	)

	Traces = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tracekit_traces",
			Help: "Number of traces per document",
		},
		[]string{"document"},
	)

	JournalBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracekit_journal_bytes",
			Help: "Current size of the append-only journal",
		},
	)
)
