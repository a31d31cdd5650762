// Package metrics defines the Prometheus metric collectors used by the file
// indexer and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the indexer.
type Metrics struct {
	FilesIndexedTotal   *prometheus.CounterVec
	BytesReadTotal      prometheus.Counter
	ChunksReadTotal     prometheus.Counter
	WordsCountedTotal   prometheus.Counter
	FileIndexDuration   prometheus.Histogram
	ReductionsTotal     prometheus.Counter
	DistinctWords       prometheus.Gauge
	RunDuration         prometheus.Histogram
	SinkMessagesTotal   *prometheus.CounterVec
	CircuitBreakerState *prometheus.GaugeVec
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all collectors and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FilesIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexer_files_total",
				Help: "Files processed by status (ok, open_failed, read_failed).",
			},
			[]string{"status"},
		),
		BytesReadTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "indexer_bytes_read_total",
				Help: "Total bytes read from input files.",
			},
		),
		ChunksReadTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "indexer_chunks_read_total",
				Help: "Total chunk reads that returned data.",
			},
		),
		WordsCountedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "indexer_words_counted_total",
				Help: "Total word occurrences counted across all files.",
			},
		),
		FileIndexDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "indexer_file_duration_seconds",
				Help:    "Time spent indexing a single file.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		ReductionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "indexer_reductions_total",
				Help: "Per-file word sets merged into the global word set.",
			},
		),
		DistinctWords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "indexer_distinct_words",
				Help: "Distinct words in the global word set of the last run.",
			},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "indexer_run_duration_seconds",
				Help:    "Wall time of a full indexing run.",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
		),
		SinkMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexer_log_sink_messages_total",
				Help: "Log messages handled per sink by status (written, failed, dropped).",
			},
			[]string{"sink", "status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.FilesIndexedTotal,
		m.BytesReadTotal,
		m.ChunksReadTotal,
		m.WordsCountedTotal,
		m.FileIndexDuration,
		m.ReductionsTotal,
		m.DistinctWords,
		m.RunDuration,
		m.SinkMessagesTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
