package objectstore

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"sweep-go/internal/sweep"
)

// MemoryStore is an in-memory sweep.ObjectStore. Used in tests and as a
// stand-in backend when no real bucket is reachable.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]map[string]memObject

	// UploadErr, when set, fails every upload. Tests use it to exercise
	// partial-failure accounting.
	UploadErr error
}

type memObject struct {
	data         []byte
	lastModified time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string]memObject)}
}

// Put seeds an object directly, bypassing the upload path.
func (s *MemoryStore) Put(bucket, key string, data []byte, lastModified time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buckets[bucket] == nil {
		s.buckets[bucket] = make(map[string]memObject)
	}
	s.buckets[bucket][key] = memObject{data: data, lastModified: lastModified}
}

// Keys returns the sorted keys currently stored in bucket.
func (s *MemoryStore) Keys(bucket string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.buckets[bucket]))
	for k := range s.buckets[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *MemoryStore) ListObjects(_ context.Context, bucket, prefix string) ([]sweep.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sweep.ObjectInfo
	for k, obj := range s.buckets[bucket] {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		out = append(out, sweep.ObjectInfo{Key: k, Size: int64(len(obj.data)), LastModified: obj.lastModified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *MemoryStore) HeadObject(_ context.Context, bucket, key string) (*sweep.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.buckets[bucket][key]
	if !ok {
		return nil, nil
	}
	return &sweep.ObjectInfo{Key: key, Size: int64(len(obj.data)), LastModified: obj.lastModified}, nil
}

func (s *MemoryStore) UploadFile(_ context.Context, localPath, bucket, key string, progress sweep.UploadProgress) error {
	if s.UploadErr != nil {
		return s.UploadErr
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", localPath, err)
	}
	if progress != nil {
		progress(int64(len(data)), int64(len(data)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buckets[bucket] == nil {
		s.buckets[bucket] = make(map[string]memObject)
	}
	s.buckets[bucket][key] = memObject{data: data, lastModified: time.Now()}
	return nil
}

func (s *MemoryStore) DeleteObject(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket][key]; !ok {
		return fmt.Errorf("no such object: %s/%s", bucket, key)
	}
	delete(s.buckets[bucket], key)
	return nil
}

// Compile-time check that MemoryStore implements the interface.
var _ sweep.ObjectStore = (*MemoryStore)(nil)
