// Package logging provides concrete implementations of the pgload.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: writes prefixed lines to stderr or any io.Writer
//   - NullLogger: discards all messages (useful for testing)
//   - PrefixLogger: prepends a fixed tag, such as a job id, to another logger's lines
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
