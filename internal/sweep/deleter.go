package sweep

import "fmt"

// SafeDeleter performs one deletion, to trash or permanently.
//
// Safety invariant: when trash is requested and the trash facility is
// unavailable or fails, the path is left untouched and an error is
// returned. There is no fallback to permanent deletion.
type SafeDeleter struct {
	fsmgr  FilesystemManager
	trash  Trash
	logger Logger
}

// NewSafeDeleter creates a deleter over the given filesystem and trash
// facility.
func NewSafeDeleter(fsmgr FilesystemManager, trash Trash, logger Logger) *SafeDeleter {
	return &SafeDeleter{fsmgr: fsmgr, trash: trash, logger: logger}
}

// Delete removes path. When permanent is true, files are unlinked and
// directories removed recursively. Otherwise the path is sent to the
// trash. A path that no longer exists is a successful no-op.
//
// On success the returned record is a human-readable description of
// what happened ("<path> (permanently)" and friends); on failure the
// record is empty and the error describes the cause.
func (d *SafeDeleter) Delete(path string, permanent bool) (string, error) {
	if !d.fsmgr.Exists(path) {
		return "", nil
	}

	info, err := d.fsmgr.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	isDir := info.IsDir()

	if permanent {
		if isDir {
			if err := d.fsmgr.RemoveAll(path); err != nil {
				return "", fmt.Errorf("deleting folder %s: %w", path, err)
			}
			d.logger.Info("deleted permanently", "path", path, "folder", true)
			return path + " (folder, permanently)", nil
		}
		if err := d.fsmgr.Remove(path); err != nil {
			return "", fmt.Errorf("deleting %s: %w", path, err)
		}
		d.logger.Info("deleted permanently", "path", path)
		return path + " (permanently)", nil
	}

	if !d.trash.Available() {
		// The file must stay. Falling back to permanent deletion here
		// would destroy data the user expected to be recoverable.
		return "", fmt.Errorf("trash facility unavailable, %s not deleted", path)
	}

	if err := d.trash.Send(path); err != nil {
		return "", fmt.Errorf("sending %s to trash (file left in place): %w", path, err)
	}

	if isDir {
		d.logger.Info("sent to trash", "path", path, "folder", true)
		return path + " (folder, trash)", nil
	}
	d.logger.Info("sent to trash", "path", path)
	return path + " (file, trash)", nil
}
