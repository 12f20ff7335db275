package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"sweep-go/internal/sweep"
)

// OSFilesystemManager is the real filesystem implementation of
// sweep.FilesystemManager. It performs actual filesystem operations
// using the os package.
type OSFilesystemManager struct{}

// NewOSFilesystemManager creates a manager that operates on the real
// filesystem.
func NewOSFilesystemManager() *OSFilesystemManager {
	return &OSFilesystemManager{}
}

// Exists reports whether the path exists.
func (m *OSFilesystemManager) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Stat returns fresh file info for a path.
func (m *OSFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// ListDir returns the depth-1 entries of a directory. Entries whose
// info cannot be read (vanished mid-listing, permission) are skipped.
func (m *OSFilesystemManager) ListDir(path string) ([]sweep.Entry, error) {
	dirents, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	entries := make([]sweep.Entry, 0, len(dirents))
	for _, de := range dirents {
		if !de.IsDir() && !de.Type().IsRegular() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, sweep.Entry{
			Path:    filepath.Join(path, de.Name()),
			Name:    de.Name(),
			IsDir:   de.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return entries, nil
}

// WalkFiles calls fn for every regular file under root, recursively.
func (m *OSFilesystemManager) WalkFiles(root string, fn func(path string, info fs.FileInfo) error) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		return fn(p, info)
	})
}

// TreeSize returns the number of regular files and their total size
// under path. A regular file counts as itself.
func (m *OSFilesystemManager) TreeSize(path string) (int, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, err
	}
	if !info.IsDir() {
		return 1, info.Size(), nil
	}

	files := 0
	var bytes int64
	err = m.WalkFiles(path, func(_ string, info fs.FileInfo) error {
		files++
		bytes += info.Size()
		return nil
	})
	if err != nil {
		return files, bytes, err
	}
	return files, bytes, nil
}

// Remove deletes a single file.
func (m *OSFilesystemManager) Remove(path string) error {
	return os.Remove(path)
}

// RemoveAll deletes a directory tree (or file) permanently.
func (m *OSFilesystemManager) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// Compile-time check that OSFilesystemManager implements the interface.
var _ sweep.FilesystemManager = (*OSFilesystemManager)(nil)
