// Package metrics implements pgload.MetricsReporter on Prometheus.
//
// Batch loads are short-lived processes, so instead of serving /metrics the
// CLI writes the registry to a node-exporter textfile when a run ends.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/framework-cg/pgload/pkg/pgload"
)

// Namespace prefixes every metric name.
const Namespace = "pgload"

// PrometheusReporter records writer activity in its own registry.
//
// Thread-Safety: safe for concurrent use.
type PrometheusReporter struct {
	registry *prometheus.Registry

	batchDuration *prometheus.HistogramVec
	batchTotal    *prometheus.CounterVec
	batchSize     *prometheus.HistogramVec
	rowsWritten   *prometheus.CounterVec
	writesTotal   *prometheus.CounterVec
	lastWrite     *prometheus.GaugeVec
}

// NewPrometheusReporter creates a reporter with a fresh registry.
// database is attached to every series as a const label when non-empty.
func NewPrometheusReporter(database string) *PrometheusReporter {
	var constLabels prometheus.Labels
	if database != "" {
		constLabels = prometheus.Labels{"database": database}
	}

	r := &PrometheusReporter{
		registry: prometheus.NewRegistry(),
		batchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   Namespace,
				Name:        "batch_execution_duration_seconds",
				Help:        "Duration of one chunk submission in seconds",
				Buckets:     prometheus.ExponentialBuckets(0.001, 2, 15),
				ConstLabels: constLabels,
			},
			[]string{"table", "status"},
		),
		batchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   Namespace,
				Name:        "batch_execution_total",
				Help:        "Total number of chunk submissions",
				ConstLabels: constLabels,
			},
			[]string{"table", "status"},
		),
		batchSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   Namespace,
				Name:        "batch_size_rows",
				Help:        "Rows per chunk",
				Buckets:     prometheus.ExponentialBuckets(1, 2, 15),
				ConstLabels: constLabels,
			},
			[]string{"table"},
		),
		rowsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   Namespace,
				Name:        "rows_total",
				Help:        "Rows handled by completed writes",
				ConstLabels: constLabels,
			},
			[]string{"operation", "table", "status"},
		),
		writesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   Namespace,
				Name:        "writes_total",
				Help:        "Insert and upsert calls by outcome",
				ConstLabels: constLabels,
			},
			[]string{"operation", "table", "status"},
		),
		lastWrite: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   Namespace,
				Name:        "last_write_timestamp_seconds",
				Help:        "Unix time of the last write by outcome",
				ConstLabels: constLabels,
			},
			[]string{"table", "status"},
		),
	}

	r.registry.MustRegister(
		r.batchDuration,
		r.batchTotal,
		r.batchSize,
		r.rowsWritten,
		r.writesTotal,
		r.lastWrite,
	)
	return r
}

// Registry exposes the underlying registry, e.g. for promhttp or tests.
func (r *PrometheusReporter) Registry() *prometheus.Registry {
	return r.registry
}

func (r *PrometheusReporter) RecordBatchExecution(table string, batchSize int, duration time.Duration, status string) {
	r.batchDuration.WithLabelValues(table, status).Observe(duration.Seconds())
	r.batchTotal.WithLabelValues(table, status).Inc()
	r.batchSize.WithLabelValues(table).Observe(float64(batchSize))
}

func (r *PrometheusReporter) RecordWrite(operation, table string, rows int, status string) {
	r.writesTotal.WithLabelValues(operation, table, status).Inc()
	r.rowsWritten.WithLabelValues(operation, table, status).Add(float64(rows))
	r.lastWrite.WithLabelValues(table, status).SetToCurrentTime()
}

// WriteTextfile writes the registry in the text exposition format to path.
// The file is replaced atomically so node-exporter never reads a partial file.
func (r *PrometheusReporter) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}

var _ pgload.MetricsReporter = (*PrometheusReporter)(nil)
