// Package metrics provides Prometheus-compatible metrics collection.
// A CLI run is too short-lived to be scraped, so metrics are kept in a
// private registry and can be flushed to a node-exporter textfile at exit.
package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements types.Metrics using the Prometheus client library.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	processedTotal  *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	durationSeconds *prometheus.HistogramVec
	fileSizeBytes   *prometheus.HistogramVec
	inProgress      *prometheus.GaugeVec
}

// New creates a PrometheusMetrics instance whose metric names are
// prefixed with the sanitised service name:
//   - {prefix}_processed_total{status,type}
//   - {prefix}_errors_total{error_type,operation}
//   - {prefix}_duration_seconds{operation}
//   - {prefix}_file_size_bytes{file_type}
//   - {prefix}_in_progress{operation}
func New(serviceName string) *PrometheusMetrics {
	prefix := sanitize(serviceName)
	m := &PrometheusMetrics{registry: prometheus.NewRegistry()}

	m.processedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_processed_total", prefix),
			Help: "Total processed operations by status and type.",
		},
		[]string{"status", "type"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_errors_total", prefix),
			Help: "Total errors by error type and operation.",
		},
		[]string{"error_type", "operation"},
	)

	// Downloads run from sub-second to tens of minutes.
	m.durationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_duration_seconds", prefix),
			Help:    "Operation duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 4, 9),
		},
		[]string{"operation"},
	)

	m.fileSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: fmt.Sprintf("%s_file_size_bytes", prefix),
			Help: "Sizes of downloaded files in bytes.",
			Buckets: []float64{
				1024,       // 1KB
				102400,     // 100KB
				1048576,    // 1MB
				10485760,   // 10MB
				104857600,  // 100MB
				1073741824, // 1GB
				4294967296, // 4GB
			},
		},
		[]string{"file_type"},
	)

	m.inProgress = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_in_progress", prefix),
			Help: "Operations in progress.",
		},
		[]string{"operation"},
	)

	m.registry.MustRegister(
		m.processedTotal,
		m.errorsTotal,
		m.durationSeconds,
		m.fileSizeBytes,
		m.inProgress,
	)

	return m
}

func (m *PrometheusMetrics) RecordSuccess(operation string) {
	m.processedTotal.WithLabelValues("success", operation).Inc()
}

// RecordError increments both the processed counter (status="error") and
// the detailed error counter.
func (m *PrometheusMetrics) RecordError(operation string, errorType string) {
	m.processedTotal.WithLabelValues("error", operation).Inc()
	m.errorsTotal.WithLabelValues(errorType, operation).Inc()
}

func (m *PrometheusMetrics) RecordDuration(operation string, seconds float64) {
	m.durationSeconds.WithLabelValues(operation).Observe(seconds)
}

func (m *PrometheusMetrics) RecordFileSize(fileType string, bytes int64) {
	m.fileSizeBytes.WithLabelValues(fileType).Observe(float64(bytes))
}

func (m *PrometheusMetrics) StartOperation(operation string) {
	m.inProgress.WithLabelValues(operation).Inc()
}

func (m *PrometheusMetrics) EndOperation(operation string) {
	m.inProgress.WithLabelValues(operation).Dec()
}

// Registry exposes the underlying registry as a Gatherer.
func (m *PrometheusMetrics) Registry() prometheus.Gatherer {
	return m.registry
}

// Flush writes all metrics to path in the text exposition format.
// An empty path is a no-op.
func (m *PrometheusMetrics) Flush(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

func sanitize(name string) string {
	if name == "" {
		return "yadisk"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
