// Package extract gets tabular data into a pgload.Dataset: it moves
// downloaded files into a dated archive, reads ;-separated CSV exports
// with per-column type inference, and runs SELECT queries built from
// caller-trusted SQL fragments.
package extract
