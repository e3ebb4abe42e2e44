package pgload

import "time"

// MetricsReporter receives write statistics from the batch writer.
// Implementations must be safe for concurrent use.
type MetricsReporter interface {
	// RecordBatchExecution is called once per executed chunk.
	RecordBatchExecution(table string, batchSize int, duration time.Duration, status string)

	// RecordWrite is called once per Insert or Upsert call that reached the database
	// or failed trying to.
	RecordWrite(operation, table string, rows int, status string)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) RecordBatchExecution(string, int, time.Duration, string) {}
func (NoopMetrics) RecordWrite(string, string, int, string)                 {}
