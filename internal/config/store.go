package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Logger is the subset of structured logging the store needs.
// The args follow slog conventions: alternating key/value pairs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Store holds the live configuration for a running process. Readers get
// copies, mutators persist to disk, and an optional fsnotify watcher
// picks up external edits so interval/schedule changes take effect
// without a restart.
type Store struct {
	path string

	mu  sync.RWMutex
	cfg *Config

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStore loads the config file at path and returns a live store over it.
func NewStore(path string) (*Store, error) {
	cfg, err := ReadFromFile(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, cfg: cfg}, nil
}

// NewStoreFromConfig wraps an already-loaded config. Mutations are not
// persisted when path is empty. Used in tests.
func NewStoreFromConfig(cfg *Config) *Store {
	cfg.Normalize()
	return &Store{cfg: cfg}
}

// Watch starts reloading the store whenever the config file changes on
// disk. Editors often replace the file rather than write in place, so
// the watch is on the parent directory.
func (s *Store) Watch(logger Logger) error {
	if s.path == "" {
		return fmt.Errorf("store has no backing file to watch")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("watching config directory: %w", err)
	}

	s.watcher = w
	s.done = make(chan struct{})

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name != s.path {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				// Editors fire several events per save; the reload is
				// idempotent so just reload on each.
				if err := s.Reload(); err != nil {
					logger.Warn("config reload failed, keeping previous config", "path", s.path, "error", err)
					continue
				}
				logger.Info("config reloaded", "path", s.path)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("config watcher error", "error", err)
			case <-s.done:
				return
			}
		}
	}()

	return nil
}

// Reload re-reads the config file and swaps it in.
func (s *Store) Reload() error {
	cfg, err := ReadFromFile(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

// Close stops the watcher, if any.
func (s *Store) Close() error {
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	return s.watcher.Close()
}

// save writes the current config back to disk. Callers hold s.mu.
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	return writeToFile(s.path, s.cfg)
}

// WatchFolders returns the configured watched folders.
func (s *Store) WatchFolders() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.cfg.WatchFolders))
	copy(out, s.cfg.WatchFolders)
	return out
}

// Rules returns a copy of the retention rules, in list order.
func (s *Store) Rules() []RetentionRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RetentionRule, len(s.cfg.Rules))
	copy(out, s.cfg.Rules)
	return out
}

// SyncRules returns a copy of the sync rules, in list order.
func (s *Store) SyncRules() []SyncRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SyncRule, len(s.cfg.SyncRules))
	copy(out, s.cfg.SyncRules)
	return out
}

// BucketByName looks up a bucket credential bundle by its name.
func (s *Store) BucketByName(name string) (S3Bucket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.cfg.Buckets {
		if b.Name == name {
			return b, true
		}
	}
	return S3Bucket{}, false
}

// Buckets returns a copy of the configured buckets.
func (s *Store) Buckets() []S3Bucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]S3Bucket, len(s.cfg.Buckets))
	copy(out, s.cfg.Buckets)
	return out
}

// ScheduleEnabled reports whether the retention monitor is gated by a
// day/time schedule.
func (s *Store) ScheduleEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.ScheduleEnabled
}

// Schedules returns a copy of the retention schedule entries.
func (s *Store) Schedules() []ScheduleEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ScheduleEntry, len(s.cfg.Schedules))
	copy(out, s.cfg.Schedules)
	return out
}

// CheckInterval returns the monitor poll interval.
func (s *Store) CheckInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.cfg.CheckIntervalMinutes) * time.Minute
}

// ScheduleWindow returns the grace window for schedule-mode sync rules
// with no recorded last sync.
func (s *Store) ScheduleWindow() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.cfg.ScheduleWindowMinutes) * time.Minute
}

// LogDir returns the configured log directory.
func (s *Store) LogDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.LogDir
}

// DataDir returns the configured data directory.
func (s *Store) DataDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.DataDir
}

// AddWatchFolder appends a watched folder and persists the change.
// Adding a folder twice is a no-op.
func (s *Store) AddWatchFolder(folder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.cfg.WatchFolders {
		if f == folder {
			return nil
		}
	}
	s.cfg.WatchFolders = append(s.cfg.WatchFolders, folder)
	return s.save()
}

// RemoveWatchFolder removes a watched folder and persists the change.
func (s *Store) RemoveWatchFolder(folder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.cfg.WatchFolders[:0]
	for _, f := range s.cfg.WatchFolders {
		if f != folder {
			kept = append(kept, f)
		}
	}
	s.cfg.WatchFolders = kept
	return s.save()
}

// AddRule appends a retention rule and persists the change.
func (s *Store) AddRule(rule RetentionRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Rules = append(s.cfg.Rules, rule)
	s.cfg.Normalize()
	return s.save()
}

// UpdateRule replaces the retention rule at index and persists the change.
func (s *Store) UpdateRule(index int, rule RetentionRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.cfg.Rules) {
		return fmt.Errorf("rule index out of range: %d", index)
	}
	s.cfg.Rules[index] = rule
	s.cfg.Normalize()
	return s.save()
}

// RemoveRule deletes the retention rule at index and persists the change.
func (s *Store) RemoveRule(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.cfg.Rules) {
		return fmt.Errorf("rule index out of range: %d", index)
	}
	s.cfg.Rules = append(s.cfg.Rules[:index], s.cfg.Rules[index+1:]...)
	return s.save()
}

// AddBucket appends a bucket credential bundle and persists the change.
func (s *Store) AddBucket(bucket S3Bucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.cfg.Buckets {
		if b.Name == bucket.Name {
			return fmt.Errorf("bucket already exists: %s", bucket.Name)
		}
	}
	s.cfg.Buckets = append(s.cfg.Buckets, bucket)
	s.cfg.Normalize()
	return s.save()
}

// SetSyncRuleLastSync records the last scheduler-triggered run time for
// the sync rule at index and persists it. The update happens under one
// lock with the read that decided to run, so a rule cannot fire twice in
// one evaluation tick.
func (s *Store) SetSyncRuleLastSync(index int, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.cfg.SyncRules) {
		return fmt.Errorf("sync rule index out of range: %d", index)
	}
	s.cfg.SyncRules[index].LastSync = t.Format(time.RFC3339)
	return s.save()
}
