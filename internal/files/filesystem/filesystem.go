package filesystem

import (
	"io"
	"io/fs"
)

// FileInfo is an alias for fs.FileInfo from the standard library.
type FileInfo = fs.FileInfo

// FileSystemProvider is the file access used by extract.
// Missing paths produce errors that satisfy errors.Is(err, fs.ErrNotExist).
type FileSystemProvider interface {
	// ReadDir lists the direct entries of dir, sorted by name.
	ReadDir(dir string) ([]FileInfo, error)

	// ReadFile reads a whole file.
	ReadFile(path string) ([]byte, error)

	// Open opens a file for streaming reads. The caller closes it.
	Open(path string) (io.ReadCloser, error)

	// Stat returns file information for path.
	Stat(path string) (FileInfo, error)

	// Rename moves oldPath to newPath, replacing newPath if it exists.
	Rename(oldPath, newPath string) error
}
