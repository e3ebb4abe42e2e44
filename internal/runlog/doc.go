// Package runlog records pipeline executions in the tracking tables
// processamento (one row per run) and processamento_log (one row per
// persisted event).
//
// A Tracker is also a pgload.Logger: every line passes through a bounded
// in-memory buffer that becomes the run summary, and lines at or above the
// configured levels are persisted while a run is active.
//
// Tracking never breaks the pipeline. Persistence failures are reported
// through the wrapped logger and otherwise ignored.
package runlog
