package sweep

import "path/filepath"

// VersionStampLayout is the timestamp component of versioned object
// keys. Its shape is a wire contract: external tooling matches bucket
// keys against `^<folder>_(\d{4}-\d{2}-\d{2}_\d{2}-\d{2})/`.
const VersionStampLayout = "2006-01-02_15-04"

// BuildObjectKey maps a local file to its object-storage key.
//
// Without versioning:  <baseFolder>/<relPath>
// With versioning:     <baseFolder>_<stamp>/<relPath>
//
// Path separators are normalized to forward slashes. All files of one
// sync run share a single stamp, computed once at run start.
func BuildObjectKey(baseFolder, relPath string, versioned bool, stamp string) string {
	rel := filepath.ToSlash(relPath)
	if versioned {
		return baseFolder + "_" + stamp + "/" + rel
	}
	return baseFolder + "/" + rel
}
