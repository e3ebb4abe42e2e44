package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OpenLogFile opens <dir>/<name>.log for writing, creating dir if needed.
// With overwrite the file is truncated, otherwise new lines are appended.
// The caller closes the returned file.
func OpenLogFile(dir, name string, overwrite bool) (*os.File, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("log file name is empty")
	}
	if dir == "" {
		dir = "."
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", dir, err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}

	path := filepath.Join(dir, strings.TrimSuffix(name, ".log")+".log")
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return f, nil
}
