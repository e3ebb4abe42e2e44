// Package services wires extraction, transformation and loading into jobs.
//
// A JobRunner takes one Job from source to destination table: it builds the
// transform pipeline first so configuration mistakes fail before any I/O,
// then loads the CSV file or query result, applies the pipeline and writes
// the rows with Insert or Upsert. When a run tracker is configured the whole
// job is recorded as one tracked run.
package services
