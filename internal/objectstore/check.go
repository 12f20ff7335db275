package objectstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"sweep-go/internal/sweep"
)

const probeKey = "__sweep_probe__"

// CheckBucket verifies that a bucket is reachable with the configured
// credentials: it uploads a small probe object, reads its metadata back,
// and deletes it. Any failing step is returned with its cause.
func CheckBucket(ctx context.Context, store sweep.ObjectStore, bucket string) error {
	dir, err := os.MkdirTemp("", "sweep-probe")
	if err != nil {
		return fmt.Errorf("creating probe file: %w", err)
	}
	defer os.RemoveAll(dir)

	probe := filepath.Join(dir, "probe")
	if err := os.WriteFile(probe, []byte("sweep probe"), 0600); err != nil {
		return fmt.Errorf("creating probe file: %w", err)
	}

	if err := store.UploadFile(ctx, probe, bucket, probeKey, nil); err != nil {
		return fmt.Errorf("probe upload failed: %w", err)
	}

	info, err := store.HeadObject(ctx, bucket, probeKey)
	if err != nil {
		return fmt.Errorf("probe readback failed: %w", err)
	}
	if info == nil {
		return fmt.Errorf("probe object not visible after upload")
	}

	if err := store.DeleteObject(ctx, bucket, probeKey); err != nil {
		return fmt.Errorf("probe cleanup failed: %w", err)
	}
	return nil
}
