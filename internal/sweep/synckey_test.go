package sweep_test

import (
	"testing"
	"time"

	"sweep-go/internal/sweep"
)

func TestBuildObjectKey(t *testing.T) {
	t.Run("versioned key carries the run stamp", func(t *testing.T) {
		stamp := time.Date(2026, 1, 16, 14, 30, 0, 0, time.UTC).Format(sweep.VersionStampLayout)
		got := sweep.BuildObjectKey("backups", "a/b.txt", true, stamp)
		want := "backups_2026-01-16_14-30/a/b.txt"
		if got != want {
			t.Errorf("BuildObjectKey() = %q, want %q", got, want)
		}
	})

	t.Run("unversioned key is folder slash relative path", func(t *testing.T) {
		got := sweep.BuildObjectKey("backups", "a/b.txt", false, "ignored")
		if got != "backups/a/b.txt" {
			t.Errorf("BuildObjectKey() = %q, want %q", got, "backups/a/b.txt")
		}
	})

	t.Run("top level file", func(t *testing.T) {
		got := sweep.BuildObjectKey("docs", "readme.md", false, "")
		if got != "docs/readme.md" {
			t.Errorf("BuildObjectKey() = %q, want %q", got, "docs/readme.md")
		}
	})
}
