package objectstore

import (
	"context"
	"sync"

	"sweep-go/internal/config"
	"sweep-go/internal/sweep"
)

// Pool caches one client per bucket name. It is owned by the process
// root and passed by reference into the sync engine, with an explicit
// shutdown instead of relying on process-exit cleanup.
type Pool struct {
	mu      sync.Mutex
	clients map[string]sweep.ObjectStore
	closed  bool
}

// NewPool creates an empty client pool.
func NewPool() *Pool {
	return &Pool{clients: make(map[string]sweep.ObjectStore)}
}

// Get returns the cached client for the bucket, creating it on first
// use. Credential changes take effect after a process restart; the
// cache is keyed by name only.
func (p *Pool) Get(bucket config.S3Bucket) (sweep.ObjectStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errPoolClosed
	}
	if c, ok := p.clients[bucket.Name]; ok {
		return c, nil
	}
	c, err := NewS3Store(context.Background(), bucket)
	if err != nil {
		return nil, err
	}
	p.clients[bucket.Name] = c
	return c, nil
}

// Close drops all cached clients and refuses further use.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.clients = nil
}

var errPoolClosed = poolClosedError{}

type poolClosedError struct{}

func (poolClosedError) Error() string { return "object store pool is closed" }

// Compile-time check that Pool implements the interface.
var _ sweep.ObjectStorePool = (*Pool)(nil)

// StaticPool returns the same store for every bucket. Used in tests.
type StaticPool struct {
	Store sweep.ObjectStore
}

func (p *StaticPool) Get(config.S3Bucket) (sweep.ObjectStore, error) {
	return p.Store, nil
}

var _ sweep.ObjectStorePool = (*StaticPool)(nil)
