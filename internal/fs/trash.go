package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sweep-go/internal/sweep"
)

// XDGTrash implements sweep.Trash against the freedesktop.org trash
// layout: files move into $XDG_DATA_HOME/Trash/files with a matching
// .trashinfo record, so desktop environments can list and restore them.
type XDGTrash struct {
	root string // Trash directory, empty when unavailable
}

// NewXDGTrash locates the user trash directory. The returned facility
// reports unavailable when no home directory can be resolved; it never
// fails construction, so callers can still ask Available.
func NewXDGTrash() *XDGTrash {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return &XDGTrash{}
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return &XDGTrash{root: filepath.Join(dataHome, "Trash")}
}

// Available reports whether the trash directories exist or can be
// created.
func (t *XDGTrash) Available() bool {
	if t.root == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Join(t.root, "files"), 0700); err != nil {
		return false
	}
	if err := os.MkdirAll(filepath.Join(t.root, "info"), 0700); err != nil {
		return false
	}
	return true
}

// Send moves the path into the trash and writes its .trashinfo record.
// The original is left untouched on any failure.
func (t *XDGTrash) Send(path string) error {
	if !t.Available() {
		return fmt.Errorf("trash directory unavailable")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("stat %s: %w", abs, err)
	}

	name := t.freeName(filepath.Base(abs))
	target := filepath.Join(t.root, "files", name)
	infoPath := filepath.Join(t.root, "info", name+".trashinfo")

	// Write the info record first: a trashed file without a record is
	// invisible to restore tools.
	info := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n", abs, time.Now().Format("2006-01-02T15:04:05"))
	if err := os.WriteFile(infoPath, []byte(info), 0600); err != nil {
		return fmt.Errorf("writing trash info: %w", err)
	}

	if err := os.Rename(abs, target); err != nil {
		os.Remove(infoPath)
		return fmt.Errorf("moving %s to trash: %w", abs, err)
	}
	return nil
}

// freeName picks a name not yet used inside the trash, suffixing with a
// counter on collision.
func (t *XDGTrash) freeName(base string) string {
	candidate := base
	for i := 2; ; i++ {
		if _, err := os.Stat(filepath.Join(t.root, "files", candidate)); os.IsNotExist(err) {
			return candidate
		}
		ext := filepath.Ext(base)
		candidate = fmt.Sprintf("%s.%d%s", base[:len(base)-len(ext)], i, ext)
	}
}

// Compile-time check that XDGTrash implements the interface.
var _ sweep.Trash = (*XDGTrash)(nil)
