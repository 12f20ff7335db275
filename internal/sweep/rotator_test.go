package sweep_test

import (
	"context"
	"testing"
	"time"

	"sweep-go/internal/config"
	"sweep-go/internal/objectstore"
	"sweep-go/internal/sweep"
	"sweep-go/internal/testutil"
)

func seedVersion(store *objectstore.MemoryStore, bucket, folder string, at time.Time, files ...string) {
	stamp := at.Format(sweep.VersionStampLayout)
	for _, f := range files {
		store.Put(bucket, folder+"_"+stamp+"/"+f, []byte("x"), at)
	}
}

func TestVersionRotator_Rotate(t *testing.T) {
	ctx := context.Background()

	t.Run("count limit keeps the newest versions", func(t *testing.T) {
		clock := testutil.FixedClock()
		store := objectstore.NewMemoryStore()
		for day := 1; day <= 5; day++ {
			seedVersion(store, "bkt", "backups", clock.Now().AddDate(0, 0, -day), "a.txt", "b.txt")
		}

		rot := sweep.NewVersionRotator(sweep.NewNopLogger(), clock, sweep.NewNopMetrics())
		rule := config.SyncRule{MaxVersions: 2}

		deleted := rot.Rotate(ctx, store, "bkt", "backups", rule)
		if deleted != 6 {
			t.Errorf("Rotate() deleted %d objects, want 6", deleted)
		}

		keys := store.Keys("bkt")
		if len(keys) != 4 {
			t.Fatalf("remaining keys = %v, want 4", keys)
		}
		newest := "backups_" + clock.Now().AddDate(0, 0, -1).Format(sweep.VersionStampLayout) + "/"
		secondNewest := "backups_" + clock.Now().AddDate(0, 0, -2).Format(sweep.VersionStampLayout) + "/"
		for _, k := range keys {
			if len(k) < len(newest) || (k[:len(newest)] != newest && k[:len(secondNewest)] != secondNewest) {
				t.Errorf("unexpected surviving key %q", k)
			}
		}
	})

	t.Run("age limit removes old versions only", func(t *testing.T) {
		clock := testutil.FixedClock()
		store := objectstore.NewMemoryStore()
		seedVersion(store, "bkt", "backups", clock.Now().AddDate(0, 0, -40), "old.txt")
		seedVersion(store, "bkt", "backups", clock.Now().AddDate(0, 0, -10), "fresh.txt")

		rot := sweep.NewVersionRotator(sweep.NewNopLogger(), clock, sweep.NewNopMetrics())
		rule := config.SyncRule{MaxVersionAgeDays: 30}

		deleted := rot.Rotate(ctx, store, "bkt", "backups", rule)
		if deleted != 1 {
			t.Errorf("Rotate() deleted %d objects, want 1", deleted)
		}

		keys := store.Keys("bkt")
		want := "backups_" + clock.Now().AddDate(0, 0, -10).Format(sweep.VersionStampLayout) + "/fresh.txt"
		if len(keys) != 1 || keys[0] != want {
			t.Errorf("remaining keys = %v, want [%s]", keys, want)
		}
	})

	t.Run("no limits means no-op", func(t *testing.T) {
		clock := testutil.FixedClock()
		store := objectstore.NewMemoryStore()
		seedVersion(store, "bkt", "backups", clock.Now().AddDate(0, 0, -100), "a.txt")

		rot := sweep.NewVersionRotator(sweep.NewNopLogger(), clock, sweep.NewNopMetrics())
		if deleted := rot.Rotate(ctx, store, "bkt", "backups", config.SyncRule{}); deleted != 0 {
			t.Errorf("Rotate() deleted %d objects, want 0", deleted)
		}
	})

	t.Run("objects of other folders are untouched", func(t *testing.T) {
		clock := testutil.FixedClock()
		store := objectstore.NewMemoryStore()
		seedVersion(store, "bkt", "backups", clock.Now().AddDate(0, 0, -40), "a.txt")
		seedVersion(store, "bkt", "photos", clock.Now().AddDate(0, 0, -40), "p.jpg")
		store.Put("bkt", "backups/plain.txt", []byte("x"), clock.Now())

		rot := sweep.NewVersionRotator(sweep.NewNopLogger(), clock, sweep.NewNopMetrics())
		rule := config.SyncRule{MaxVersionAgeDays: 30}

		if deleted := rot.Rotate(ctx, store, "bkt", "backups", rule); deleted != 1 {
			t.Fatalf("Rotate() deleted %d objects, want 1", deleted)
		}

		keys := store.Keys("bkt")
		if len(keys) != 2 {
			t.Errorf("remaining keys = %v, want the photo version and the unversioned key", keys)
		}
	})
}
