package sweep_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sweep-go/internal/config"
	"sweep-go/internal/fs"
	"sweep-go/internal/objectstore"
	"sweep-go/internal/sweep"
	"sweep-go/internal/testutil"
)

func newSyncEngine(cfg *config.Config, store sweep.ObjectStore, clock sweep.Clock) *sweep.SyncEngine {
	cfgStore := config.NewStoreFromConfig(cfg)
	matcher := sweep.NewRuleMatcher(clock)
	rotator := sweep.NewVersionRotator(sweep.NewNopLogger(), clock, sweep.NewNopMetrics())
	return sweep.NewSyncEngine(cfgStore, &objectstore.StaticPool{Store: store}, fs.NewOSFilesystemManager(), matcher,
		sweep.NewProgressTracker(), rotator, sweep.NewNopLogger(), clock, testutil.NewStubIDGenerator(), sweep.NewNopMetrics())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestSyncEngine_SyncRule(t *testing.T) {
	ctx := context.Background()
	bucketCfg := config.S3Bucket{Name: "bkt", AccessKey: "k", SecretKey: "s"}

	t.Run("uploads matching files under one version stamp", func(t *testing.T) {
		dir := t.TempDir()
		docs := filepath.Join(dir, "docs")
		writeFile(t, filepath.Join(docs, "a.txt"), "aaa")
		writeFile(t, filepath.Join(docs, "sub", "b.txt"), "bbbb")
		writeFile(t, filepath.Join(docs, "skip.log"), "nope")

		clock := testutil.FixedClock()
		remote := objectstore.NewMemoryStore()
		cfg := &config.Config{Buckets: []config.S3Bucket{bucketCfg}}
		engine := newSyncEngine(cfg, remote, clock)

		rule := config.SyncRule{
			Name:              "docs to bkt",
			BucketName:        "bkt",
			Folders:           []string{docs},
			Pattern:           "*.txt",
			PatternType:       config.PatternWildcard,
			VersioningEnabled: true,
		}

		result := engine.SyncRule(ctx, rule)

		if len(result.Errors) != 0 {
			t.Fatalf("Errors = %v, want none", result.Errors)
		}
		if result.Total != 2 || result.Synced != 2 {
			t.Errorf("Total = %d, Synced = %d, want 2 and 2", result.Total, result.Synced)
		}
		if result.Bytes != 7 {
			t.Errorf("Bytes = %d, want 7", result.Bytes)
		}

		stamp := clock.Now().Format(sweep.VersionStampLayout)
		wantKeys := []string{
			"docs_" + stamp + "/a.txt",
			"docs_" + stamp + "/sub/b.txt",
		}
		keys := remote.Keys("bkt")
		if len(keys) != len(wantKeys) {
			t.Fatalf("remote keys = %v, want %v", keys, wantKeys)
		}
		for i := range wantKeys {
			if keys[i] != wantKeys[i] {
				t.Errorf("remote key[%d] = %q, want %q", i, keys[i], wantKeys[i])
			}
		}
	})

	t.Run("unversioned upload keys have no stamp", func(t *testing.T) {
		dir := t.TempDir()
		docs := filepath.Join(dir, "docs")
		writeFile(t, filepath.Join(docs, "a.txt"), "aaa")

		remote := objectstore.NewMemoryStore()
		cfg := &config.Config{Buckets: []config.S3Bucket{bucketCfg}}
		engine := newSyncEngine(cfg, remote, testutil.FixedClock())

		rule := config.SyncRule{Name: "plain", BucketName: "bkt", Folders: []string{docs}, Pattern: "*"}
		if result := engine.SyncRule(ctx, rule); result.Synced != 1 {
			t.Fatalf("Synced = %d, want 1", result.Synced)
		}

		keys := remote.Keys("bkt")
		if len(keys) != 1 || keys[0] != "docs/a.txt" {
			t.Errorf("remote keys = %v, want [docs/a.txt]", keys)
		}
	})

	t.Run("unknown bucket aborts the run", func(t *testing.T) {
		engine := newSyncEngine(&config.Config{}, objectstore.NewMemoryStore(), testutil.FixedClock())

		rule := config.SyncRule{Name: "broken", BucketName: "missing", Folders: []string{"/nowhere"}}
		result := engine.SyncRule(ctx, rule)
		if len(result.Errors) != 1 {
			t.Fatalf("Errors = %v, want one entry", result.Errors)
		}
		if result.Synced != 0 {
			t.Errorf("Synced = %d, want 0", result.Synced)
		}
	})

	t.Run("missing folder is skipped, run continues", func(t *testing.T) {
		dir := t.TempDir()
		docs := filepath.Join(dir, "docs")
		writeFile(t, filepath.Join(docs, "a.txt"), "aaa")

		remote := objectstore.NewMemoryStore()
		cfg := &config.Config{Buckets: []config.S3Bucket{bucketCfg}}
		engine := newSyncEngine(cfg, remote, testutil.FixedClock())

		rule := config.SyncRule{
			Name:       "partial",
			BucketName: "bkt",
			Folders:    []string{filepath.Join(dir, "gone"), docs},
			Pattern:    "*",
		}
		result := engine.SyncRule(ctx, rule)
		if len(result.Errors) != 0 {
			t.Fatalf("Errors = %v, want none", result.Errors)
		}
		if result.Synced != 1 {
			t.Errorf("Synced = %d, want 1", result.Synced)
		}
	})

	t.Run("upload failures are counted per file", func(t *testing.T) {
		dir := t.TempDir()
		docs := filepath.Join(dir, "docs")
		writeFile(t, filepath.Join(docs, "a.txt"), "aaa")
		writeFile(t, filepath.Join(docs, "b.txt"), "bbb")

		remote := objectstore.NewMemoryStore()
		remote.UploadErr = errors.New("bucket gone")
		cfg := &config.Config{Buckets: []config.S3Bucket{bucketCfg}}
		engine := newSyncEngine(cfg, remote, testutil.FixedClock())

		rule := config.SyncRule{Name: "failing", BucketName: "bkt", Folders: []string{docs}, Pattern: "*"}
		result := engine.SyncRule(ctx, rule)
		if result.Synced != 0 {
			t.Errorf("Synced = %d, want 0", result.Synced)
		}
		if len(result.Errors) != 2 {
			t.Errorf("Errors = %v, want two entries", result.Errors)
		}
	})

	t.Run("delete after sync removes the local file", func(t *testing.T) {
		dir := t.TempDir()
		docs := filepath.Join(dir, "docs")
		local := filepath.Join(docs, "a.txt")
		writeFile(t, local, "aaa")

		remote := objectstore.NewMemoryStore()
		cfg := &config.Config{Buckets: []config.S3Bucket{bucketCfg}}
		engine := newSyncEngine(cfg, remote, testutil.FixedClock())

		rule := config.SyncRule{Name: "move", BucketName: "bkt", Folders: []string{docs}, Pattern: "*", DeleteAfterSync: true}
		if result := engine.SyncRule(ctx, rule); result.Synced != 1 {
			t.Fatalf("Synced = %d, want 1", result.Synced)
		}
		if _, err := os.Stat(local); !os.IsNotExist(err) {
			t.Error("local file still exists after delete_after_sync run")
		}
	})

	t.Run("versioned run rotates old versions afterwards", func(t *testing.T) {
		dir := t.TempDir()
		docs := filepath.Join(dir, "docs")
		writeFile(t, filepath.Join(docs, "a.txt"), "aaa")

		clock := testutil.FixedClock()
		remote := objectstore.NewMemoryStore()
		oldStamp := clock.Now().AddDate(0, 0, -40).Format(sweep.VersionStampLayout)
		remote.Put("bkt", "docs_"+oldStamp+"/a.txt", []byte("stale"), clock.Now().AddDate(0, 0, -40))

		cfg := &config.Config{Buckets: []config.S3Bucket{bucketCfg}}
		engine := newSyncEngine(cfg, remote, clock)

		rule := config.SyncRule{
			Name:              "rotating",
			BucketName:        "bkt",
			Folders:           []string{docs},
			Pattern:           "*",
			VersioningEnabled: true,
			MaxVersionAgeDays: 30,
		}
		if result := engine.SyncRule(ctx, rule); result.Synced != 1 {
			t.Fatalf("Synced = %d, want 1", result.Synced)
		}

		keys := remote.Keys("bkt")
		want := "docs_" + clock.Now().Format(sweep.VersionStampLayout) + "/a.txt"
		if len(keys) != 1 || keys[0] != want {
			t.Errorf("remote keys = %v, want [%s]", keys, want)
		}
	})

	t.Run("stopped engine uploads nothing", func(t *testing.T) {
		dir := t.TempDir()
		docs := filepath.Join(dir, "docs")
		writeFile(t, filepath.Join(docs, "a.txt"), "aaa")

		remote := objectstore.NewMemoryStore()
		cfg := &config.Config{Buckets: []config.S3Bucket{bucketCfg}}
		engine := newSyncEngine(cfg, remote, testutil.FixedClock())
		engine.Stop()

		rule := config.SyncRule{Name: "halted", BucketName: "bkt", Folders: []string{docs}, Pattern: "*"}
		result := engine.SyncRule(ctx, rule)
		if result.Synced != 0 {
			t.Errorf("Synced = %d, want 0", result.Synced)
		}

		engine.Resume()
		if result := engine.SyncRule(ctx, rule); result.Synced != 1 {
			t.Errorf("Synced after Resume = %d, want 1", result.Synced)
		}
	})
}
