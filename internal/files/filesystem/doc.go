// Package filesystem abstracts the few file operations the extract stage
// needs, so file discovery and moves can be tested against memory.
//
// Implementations:
//   - OSFileSystem: the real filesystem
//   - MemoryFileSystem: in-memory, for tests
package filesystem
