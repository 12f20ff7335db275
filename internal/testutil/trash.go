package testutil

import (
	"sweep-go/internal/sweep"
)

// FakeTrash records trash sends. When FS is set, a successful Send also
// removes the path from the mock filesystem, mirroring how a real trash
// move makes the path disappear.
type FakeTrash struct {
	Unavailable bool
	SendErr     error
	Sent        []string
	FS          *MockFilesystemManager
}

// NewFakeTrash creates an available, empty trash over the given mock
// filesystem. FS may be nil.
func NewFakeTrash(fs *MockFilesystemManager) *FakeTrash {
	return &FakeTrash{FS: fs}
}

func (t *FakeTrash) Available() bool {
	return !t.Unavailable
}

func (t *FakeTrash) Send(path string) error {
	if t.SendErr != nil {
		return t.SendErr
	}
	t.Sent = append(t.Sent, path)
	if t.FS != nil {
		// Bypass Remove so trashed paths do not show up in Removed.
		prefix := path + "/"
		for p := range t.FS.files {
			if p == path || len(p) > len(prefix) && p[:len(prefix)] == prefix {
				delete(t.FS.files, p)
			}
		}
	}
	return nil
}

// Compile-time check
var _ sweep.Trash = (*FakeTrash)(nil)
