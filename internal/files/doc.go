// Package files groups file access used by pgload.
//
// The filesystem sub-package abstracts directory listing, streaming reads
// and renames so the extract package can move and read exports on disk or,
// in tests, in memory:
//
//	fsys := filesystem.NewOSFileSystem()
//	mover := extract.NewMover(fsys, logger)
//	path, err := mover.Move("/downloads", "Relatorio Vendas.csv", "./data", "20240131")
package files
