package sweep

import (
	"context"
	"time"

	"sweep-go/internal/config"
)

// ObjectInfo describes one remote object.
type ObjectInfo struct {
	Key          string
	LastModified time.Time
	Size         int64
}

// UploadProgress is called during an upload with the number of bytes
// sent so far and the total size of the file.
type UploadProgress func(uploaded, total int64)

// ObjectStore is the S3-compatible storage collaborator. Every method
// operates on one bucket; per-object failures are returned, never
// panicked, so batches can continue.
type ObjectStore interface {
	// ListObjects returns all objects under prefix. An empty prefix
	// lists the whole bucket.
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)

	// HeadObject returns metadata for one object, or nil if it does not
	// exist.
	HeadObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)

	// UploadFile uploads a local file to bucket/key, reporting progress
	// through the optional callback.
	UploadFile(ctx context.Context, localPath, bucket, key string, progress UploadProgress) error

	// DeleteObject removes one object.
	DeleteObject(ctx context.Context, bucket, key string) error
}

// ObjectStorePool resolves bucket credential bundles to live clients.
// Implementations cache clients per bucket and own their shutdown.
type ObjectStorePool interface {
	Get(bucket config.S3Bucket) (ObjectStore, error)
}
