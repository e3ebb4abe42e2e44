package extract

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/framework-cg/pgload/internal/files/filesystem"
	"github.com/framework-cg/pgload/pkg/pgload"
)

// MovableExtensions are the file types Move looks for.
var MovableExtensions = []string{".csv", ".xlsx", ".xls"}

// Mover archives downloaded exports under a dated name.
type Mover struct {
	fs     filesystem.FileSystemProvider
	logger pgload.Logger
}

// NewMover creates a Mover. Panics if fs or logger is nil.
func NewMover(fs filesystem.FileSystemProvider, logger pgload.Logger) *Mover {
	if fs == nil {
		panic("filesystem cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Mover{fs: fs, logger: logger}
}

// Move finds the file in sourceDir whose name matches name ignoring case,
// Unicode normalization and extension, and renames it into destDir as
// <name>_<date><ext>, lowercased with spaces turned into underscores.
// When name has no extension the found file's extension is kept.
// It returns the new path.
func (m *Mover) Move(sourceDir, name, destDir, date string) (string, error) {
	entries, err := m.fs.ReadDir(sourceDir)
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", sourceDir, err)
	}

	wanted := matchKey(name)
	var found string
	for _, entry := range entries {
		if entry.IsDir() || !movable(entry.Name()) {
			continue
		}
		if matchKey(entry.Name()) == wanted {
			found = entry.Name()
			break
		}
	}
	if found == "" {
		return "", fmt.Errorf("no file like %q in %s: %w", name, sourceDir, pgload.ErrFileNotFound)
	}

	formatted := strings.ReplaceAll(strings.ToLower(name), " ", "_")
	ext := path.Ext(formatted)
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(found))
	}
	base := strings.TrimSuffix(formatted, path.Ext(formatted))
	target := filepath.Join(destDir, fmt.Sprintf("%s_%s%s", base, date, ext))

	if err := m.fs.Rename(filepath.Join(sourceDir, found), target); err != nil {
		return "", fmt.Errorf("failed to move %s: %w", found, err)
	}
	m.logger.Info("File moved to: %s", target)
	return target, nil
}

// matchKey is the comparable form of a file name: NFC, lowercase, no extension.
func matchKey(name string) string {
	lower := strings.ToLower(norm.NFC.String(name))
	return strings.TrimSuffix(lower, filepath.Ext(lower))
}

func movable(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range MovableExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
