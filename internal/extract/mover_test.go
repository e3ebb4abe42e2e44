package extract

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framework-cg/pgload/internal/files/filesystem"
	"github.com/framework-cg/pgload/pkg/pgload"
)

func newDownloads() *filesystem.MemoryFileSystem {
	mfs := filesystem.NewMemoryFileSystem()
	mfs.AddFile("/downloads/Relatorio Vendas.CSV", "a;b\n1;2\n")
	mfs.AddFile("/downloads/notes.txt", "ignore")
	mfs.AddFile("/downloads/relatorio vendas.pdf", "%PDF")
	mfs.AddDir("/archive")
	return mfs
}

func TestMover_Move(t *testing.T) {
	mfs := newDownloads()
	logger := &recordingLogger{}
	m := NewMover(mfs, logger)

	target, err := m.Move("/downloads", "Relatorio Vendas.csv", "/archive", "20240131")
	require.NoError(t, err)
	assert.Equal(t, "/archive/relatorio_vendas_20240131.csv", target)

	data, err := mfs.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "a;b\n1;2\n", string(data))

	_, err = mfs.Stat("/downloads/Relatorio Vendas.CSV")
	assert.True(t, errors.Is(err, fs.ErrNotExist), "source should be gone")

	_, err = mfs.Stat("/downloads/relatorio vendas.pdf")
	assert.NoError(t, err, "files with other extensions stay")

	require.Len(t, logger.info, 1)
	assert.Contains(t, logger.info[0], target)
}

func TestMover_NameWithoutExtensionKeepsFound(t *testing.T) {
	mfs := filesystem.NewMemoryFileSystem()
	mfs.AddFile("/in/Estoque.XLSX", "bin")
	mfs.AddDir("/out")

	target, err := NewMover(mfs, &recordingLogger{}).Move("/in", "Estoque", "/out", "20240201")
	require.NoError(t, err)
	assert.Equal(t, "/out/estoque_20240201.xlsx", target)
}

func TestMover_MatchesDecomposedNames(t *testing.T) {
	mfs := filesystem.NewMemoryFileSystem()
	mfs.AddFile("/in/Prec\u0327os.csv", "x")
	mfs.AddDir("/out")

	target, err := NewMover(mfs, &recordingLogger{}).Move("/in", "Pre\u00e7os.csv", "/out", "d")
	require.NoError(t, err)
	assert.Equal(t, "/out/pre\u00e7os_d.csv", target)
}

func TestMover_NotFound(t *testing.T) {
	mfs := newDownloads()
	m := NewMover(mfs, &recordingLogger{})

	tests := []struct {
		name string
		file string
	}{
		{"no such file", "missing.csv"},
		{"only a disallowed extension", "notes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Move("/downloads", tt.file, "/archive", "20240131")
			if !errors.Is(err, pgload.ErrFileNotFound) {
				t.Errorf("expected ErrFileNotFound, got %v", err)
			}
		})
	}
}

func TestMover_MissingSourceDir(t *testing.T) {
	m := NewMover(filesystem.NewMemoryFileSystem(), &recordingLogger{})
	_, err := m.Move("/nope", "a.csv", "/out", "d")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestNewMover_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewMover(nil, &recordingLogger{}) })
	assert.Panics(t, func() { NewMover(filesystem.NewMemoryFileSystem(), nil) })
}
