package testutil

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sweep-go/internal/sweep"
)

// MockFile represents a file or directory in the mock filesystem.
type MockFile struct {
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// MockFilesystemManager is an in-memory filesystem for testing the
// retention and sync engines. Paths are plain map keys; callers use
// consistent absolute paths.
type MockFilesystemManager struct {
	files map[string]*MockFile

	// Removed records every path deleted via Remove or RemoveAll,
	// in call order.
	Removed []string

	// RemoveErrs injects failures: Remove and RemoveAll return the
	// mapped error for that path and leave it in place.
	RemoveErrs map[string]error
}

// NewMockFilesystemManager creates an empty mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files:      make(map[string]*MockFile),
		RemoveErrs: make(map[string]error),
	}
}

// AddFile adds a regular file with the given size and mtime. Parent
// directories are created implicitly.
func (m *MockFilesystemManager) AddFile(path string, size int64, modTime time.Time) {
	m.ensureParents(path, modTime)
	m.files[path] = &MockFile{Size: size, ModTime: modTime}
}

// AddDir adds a directory. Parent directories are created implicitly.
func (m *MockFilesystemManager) AddDir(path string, modTime time.Time) {
	m.ensureParents(path, modTime)
	m.files[path] = &MockFile{IsDir: true, ModTime: modTime}
}

func (m *MockFilesystemManager) ensureParents(path string, modTime time.Time) {
	for dir := filepath.Dir(path); dir != "/" && dir != "."; dir = filepath.Dir(dir) {
		if _, ok := m.files[dir]; !ok {
			m.files[dir] = &MockFile{IsDir: true, ModTime: modTime}
		}
	}
}

func (m *MockFilesystemManager) Exists(path string) bool {
	_, ok := m.files[path]
	return ok
}

func (m *MockFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	f, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return &mockFileInfo{name: filepath.Base(path), file: f}, nil
}

func (m *MockFilesystemManager) ListDir(path string) ([]sweep.Entry, error) {
	d, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("directory not found: %s", path)
	}
	if !d.IsDir {
		return nil, fmt.Errorf("not a directory: %s", path)
	}

	var entries []sweep.Entry
	for p, f := range m.files {
		if filepath.Dir(p) != path || p == path {
			continue
		}
		entries = append(entries, sweep.Entry{
			Path:    p,
			Name:    filepath.Base(p),
			IsDir:   f.IsDir,
			Size:    f.Size,
			ModTime: f.ModTime,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (m *MockFilesystemManager) WalkFiles(root string, fn func(path string, info fs.FileInfo) error) error {
	if _, ok := m.files[root]; !ok {
		return fmt.Errorf("directory not found: %s", root)
	}

	var paths []string
	prefix := root + string(filepath.Separator)
	for p, f := range m.files {
		if f.IsDir {
			continue
		}
		if p == root || strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	for _, p := range paths {
		if err := fn(p, &mockFileInfo{name: filepath.Base(p), file: m.files[p]}); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockFilesystemManager) TreeSize(path string) (int, int64, error) {
	f, ok := m.files[path]
	if !ok {
		return 0, 0, fmt.Errorf("file not found: %s", path)
	}
	if !f.IsDir {
		return 1, f.Size, nil
	}

	var files int
	var bytes int64
	prefix := path + string(filepath.Separator)
	for p, sub := range m.files {
		if sub.IsDir || !strings.HasPrefix(p, prefix) {
			continue
		}
		files++
		bytes += sub.Size
	}
	return files, bytes, nil
}

func (m *MockFilesystemManager) Remove(path string) error {
	if err := m.RemoveErrs[path]; err != nil {
		return err
	}
	f, ok := m.files[path]
	if !ok {
		return fmt.Errorf("file not found: %s", path)
	}
	if f.IsDir {
		return fmt.Errorf("is a directory: %s", path)
	}
	delete(m.files, path)
	m.Removed = append(m.Removed, path)
	return nil
}

func (m *MockFilesystemManager) RemoveAll(path string) error {
	if err := m.RemoveErrs[path]; err != nil {
		return err
	}
	if _, ok := m.files[path]; !ok {
		return nil
	}
	prefix := path + string(filepath.Separator)
	for p := range m.files {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(m.files, p)
		}
	}
	m.Removed = append(m.Removed, path)
	return nil
}

type mockFileInfo struct {
	name string
	file *MockFile
}

func (m *mockFileInfo) Name() string { return m.name }
func (m *mockFileInfo) Size() int64  { return m.file.Size }
func (m *mockFileInfo) Mode() fs.FileMode {
	if m.file.IsDir {
		return fs.ModeDir | 0755
	}
	return 0644
}
func (m *mockFileInfo) ModTime() time.Time { return m.file.ModTime }
func (m *mockFileInfo) IsDir() bool        { return m.file.IsDir }
func (m *mockFileInfo) Sys() any           { return m.file }

// Compile-time check
var _ sweep.FilesystemManager = (*MockFilesystemManager)(nil)
