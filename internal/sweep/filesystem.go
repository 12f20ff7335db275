package sweep

import (
	"io/fs"
	"time"
)

// Entry is one depth-1 directory entry as seen by a retention scan.
type Entry struct {
	Path    string
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// FilesystemManager provides the filesystem operations used by the
// retention and sync engines. All paths are absolute.
type FilesystemManager interface {
	// Exists reports whether the path exists.
	Exists(path string) bool

	// Stat returns fresh file info for a path.
	Stat(path string) (fs.FileInfo, error)

	// ListDir returns the depth-1 entries of a directory (files and
	// subdirectories). Retention never recurses past this level.
	ListDir(path string) ([]Entry, error)

	// WalkFiles calls fn for every regular file under root, recursively,
	// in filesystem walk order.
	WalkFiles(root string, fn func(path string, info fs.FileInfo) error) error

	// TreeSize returns the number of regular files and their total size
	// under path. A regular file counts as itself.
	TreeSize(path string) (files int, bytes int64, err error)

	// Remove deletes a single file.
	Remove(path string) error

	// RemoveAll deletes a directory tree (or file) permanently.
	RemoveAll(path string) error
}

// Trash sends paths to the OS trash facility so deletions are
// recoverable. Availability is a detectable condition: when the facility
// is absent, trash-mode deletions must fail and leave the path intact.
type Trash interface {
	// Available reports whether a trash facility exists on this system.
	Available() bool

	// Send moves the path (file or directory) to the trash.
	Send(path string) error
}
