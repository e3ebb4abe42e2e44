package filesystem

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// memoryFileInfo implements fs.FileInfo for in-memory entries.
type memoryFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func (f *memoryFileInfo) Name() string       { return f.name }
func (f *memoryFileInfo) Size() int64        { return f.size }
func (f *memoryFileInfo) Mode() fs.FileMode  { return f.mode }
func (f *memoryFileInfo) ModTime() time.Time { return f.modTime }
func (f *memoryFileInfo) IsDir() bool        { return f.mode.IsDir() }
func (f *memoryFileInfo) Sys() interface{}   { return nil }

type memoryEntry struct {
	content []byte
	info    *memoryFileInfo
}

// MemoryFileSystem implements FileSystemProvider in memory.
// Paths use forward slashes; relative paths are resolved against "/".
//
// Thread-Safety: safe for concurrent use.
type MemoryFileSystem struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

// NewMemoryFileSystem creates an empty filesystem holding only "/".
func NewMemoryFileSystem() *MemoryFileSystem {
	mfs := &MemoryFileSystem{entries: make(map[string]*memoryEntry)}
	mfs.entries["/"] = newDirEntry("/")
	return mfs
}

func newDirEntry(p string) *memoryEntry {
	return &memoryEntry{info: &memoryFileInfo{
		name:    path.Base(p),
		mode:    0o755 | fs.ModeDir,
		modTime: time.Now(),
	}}
}

func clean(p string) string {
	p = filepath.ToSlash(p)
	if !path.IsAbs(p) {
		p = "/" + p
	}
	return path.Clean(p)
}

// AddFile adds a file, creating parent directories.
func (mfs *MemoryFileSystem) AddFile(filePath, content string) {
	mfs.AddFileWithTime(filePath, content, time.Now())
}

// AddFileWithTime adds a file with a specific modification time.
func (mfs *MemoryFileSystem) AddFileWithTime(filePath, content string, modTime time.Time) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	p := clean(filePath)
	mfs.entries[p] = &memoryEntry{
		content: []byte(content),
		info: &memoryFileInfo{
			name:    path.Base(p),
			size:    int64(len(content)),
			mode:    0o644,
			modTime: modTime,
		},
	}
	mfs.ensureDirs(path.Dir(p))
}

// AddDir adds an empty directory and its parents.
func (mfs *MemoryFileSystem) AddDir(dir string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.ensureDirs(clean(dir))
}

// ensureDirs creates dir and its parents. Caller holds mu.
func (mfs *MemoryFileSystem) ensureDirs(dir string) {
	for {
		if _, ok := mfs.entries[dir]; ok {
			return
		}
		mfs.entries[dir] = newDirEntry(dir)
		dir = path.Dir(dir)
	}
}

func (mfs *MemoryFileSystem) lookup(op, p string) (*memoryEntry, error) {
	entry, ok := mfs.entries[clean(p)]
	if !ok {
		return nil, &fs.PathError{Op: op, Path: p, Err: fs.ErrNotExist}
	}
	return entry, nil
}

func (mfs *MemoryFileSystem) ReadDir(dir string) ([]FileInfo, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	entry, err := mfs.lookup("readdir", dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	if !entry.info.IsDir() {
		return nil, fmt.Errorf("failed to read directory: %s is not a directory", dir)
	}

	parent := clean(dir)
	var result []FileInfo
	for p, e := range mfs.entries {
		if p != "/" && path.Dir(p) == parent {
			result = append(result, e.info)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result, nil
}

func (mfs *MemoryFileSystem) ReadFile(filePath string) ([]byte, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	entry, err := mfs.lookup("open", filePath)
	if err != nil {
		return nil, err
	}
	if entry.info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", filePath)
	}
	return append([]byte(nil), entry.content...), nil
}

func (mfs *MemoryFileSystem) Open(filePath string) (io.ReadCloser, error) {
	content, err := mfs.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (mfs *MemoryFileSystem) Stat(statPath string) (FileInfo, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	entry, err := mfs.lookup("stat", statPath)
	if err != nil {
		return nil, err
	}
	return entry.info, nil
}

// Rename moves a file. The destination directory must exist, as on disk.
func (mfs *MemoryFileSystem) Rename(oldPath, newPath string) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	entry, err := mfs.lookup("rename", oldPath)
	if err != nil {
		return err
	}
	if entry.info.IsDir() {
		return fmt.Errorf("rename %s: directories cannot be moved", oldPath)
	}
	if _, err := mfs.lookup("rename", path.Dir(clean(newPath))); err != nil {
		return err
	}

	src, dst := clean(oldPath), clean(newPath)
	delete(mfs.entries, src)
	info := *entry.info
	info.name = path.Base(dst)
	mfs.entries[dst] = &memoryEntry{content: entry.content, info: &info}
	return nil
}
