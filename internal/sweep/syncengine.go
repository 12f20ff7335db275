package sweep

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync/atomic"

	"sweep-go/internal/config"
)

// SyncResult summarizes one sync run for one rule.
type SyncResult struct {
	Total  int
	Synced int
	Errors []string
	Bytes  int64
}

// syncFile is one local file selected for upload.
type syncFile struct {
	path       string
	key        string
	folderName string
	size       int64
}

// SyncEngine runs one synchronization pass for one rule: enumerate
// matching local files, upload them under a shared version stamp, then
// rotate old versions. Failures are accumulated, never raised; a sync
// run is best-effort across its whole batch.
type SyncEngine struct {
	store   ConfigStore
	pool    ObjectStorePool
	fsmgr   FilesystemManager
	matcher *RuleMatcher
	tracker *ProgressTracker
	rotator *VersionRotator
	logger  Logger
	clock   Clock
	idgen   IDGenerator
	metrics Metrics

	stopped atomic.Bool
}

// NewSyncEngine creates a sync engine with the provided dependencies.
func NewSyncEngine(store ConfigStore, pool ObjectStorePool, fsmgr FilesystemManager, matcher *RuleMatcher, tracker *ProgressTracker, rotator *VersionRotator, logger Logger, clock Clock, idgen IDGenerator, metrics Metrics) *SyncEngine {
	return &SyncEngine{
		store:   store,
		pool:    pool,
		fsmgr:   fsmgr,
		matcher: matcher,
		tracker: tracker,
		rotator: rotator,
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
		metrics: metrics,
	}
}

// Tracker returns the engine's progress tracker, for external polling.
func (e *SyncEngine) Tracker() *ProgressTracker { return e.tracker }

// Stop interrupts in-flight sync runs between files. Best-effort: the
// current upload finishes.
func (e *SyncEngine) Stop() { e.stopped.Store(true) }

// Resume clears a previous Stop so new runs may proceed.
func (e *SyncEngine) Resume() { e.stopped.Store(false) }

// SyncRule runs one sync pass for the rule. The returned result lists
// per-file errors; only a configuration problem that prevents the run
// from starting at all (unknown bucket, unreachable store) is also
// logged as an error with an empty task.
func (e *SyncEngine) SyncRule(ctx context.Context, rule config.SyncRule) *SyncResult {
	result := &SyncResult{}

	bucket, ok := e.store.BucketByName(rule.BucketName)
	if !ok {
		msg := fmt.Sprintf("sync rule %q: bucket %q is not configured", rule.Name, rule.BucketName)
		e.logger.Error("sync aborted", "rule", rule.Name, "reason", msg)
		result.Errors = append(result.Errors, msg)
		e.metrics.SyncError()
		return result
	}

	objects, err := e.pool.Get(bucket)
	if err != nil {
		msg := fmt.Sprintf("sync rule %q: creating client for bucket %q: %v", rule.Name, rule.BucketName, err)
		e.logger.Error("sync aborted", "rule", rule.Name, "error", err)
		result.Errors = append(result.Errors, msg)
		e.metrics.SyncError()
		return result
	}

	taskID := e.idgen.New()
	e.tracker.Create(taskID, TaskSync, "Sync: "+rule.Name, e.clock.Now())
	defer e.tracker.Complete(taskID)

	// One stamp for the whole run: every file of this pass lands under
	// the same version prefix.
	stamp := e.clock.Now().Format(VersionStampLayout)

	files, enumErrs := e.enumerate(rule, stamp)
	result.Errors = append(result.Errors, enumErrs...)
	result.Total = len(files)

	var totalBytes int64
	for _, f := range files {
		totalBytes += f.size
	}

	e.tracker.Update(taskID, func(s *TaskState) {
		s.TotalFiles = len(files)
		s.TotalBytes = totalBytes
		s.Status = fmt.Sprintf("uploading %d files (%s)", len(files), formatSize(totalBytes))
	})
	e.logger.Info("sync run starting", "rule", rule.Name, "files", len(files), "bytes", totalBytes)

	var uploadedBytes int64
	for _, f := range files {
		if e.stopped.Load() || ctx.Err() != nil {
			e.logger.Warn("sync interrupted", "rule", rule.Name, "synced", result.Synced, "total", result.Total)
			break
		}

		f := f
		progress := func(uploaded, total int64) {
			e.tracker.Update(taskID, func(s *TaskState) {
				current := uploadedBytes + uploaded
				if totalBytes > 0 {
					s.Progress = int(float64(current) / float64(totalBytes) * 100)
				}
				s.Status = fmt.Sprintf("uploading %s (%s/%s)", filepath.Base(f.path), formatSize(uploaded), formatSize(total))
			})
		}

		if err := objects.UploadFile(ctx, f.path, bucket.Name, f.key, progress); err != nil {
			msg := fmt.Sprintf("uploading %s: %v", f.key, err)
			result.Errors = append(result.Errors, msg)
			e.logger.Error("upload failed", "rule", rule.Name, "key", f.key, "error", err)
			e.metrics.SyncError()
			continue
		}

		result.Synced++
		result.Bytes += f.size
		uploadedBytes += f.size
		e.metrics.FileUploaded(f.size)
		e.logger.Debug("uploaded", "key", f.key)

		if rule.DeleteAfterSync {
			if err := e.fsmgr.Remove(f.path); err != nil {
				msg := fmt.Sprintf("removing synced file %s: %v", f.path, err)
				result.Errors = append(result.Errors, msg)
				e.logger.Error("post-sync delete failed", "path", f.path, "error", err)
			} else {
				e.logger.Debug("removed local file after sync", "path", f.path)
			}
		}

		e.tracker.Update(taskID, func(s *TaskState) {
			s.ProcessedFiles = result.Synced
			s.ProcessedBytes = uploadedBytes
			if totalBytes > 0 {
				s.Progress = int(float64(uploadedBytes) / float64(totalBytes) * 100)
			}
			s.Status = fmt.Sprintf("uploaded %d of %d files (%s/%s)", result.Synced, result.Total, formatSize(uploadedBytes), formatSize(totalBytes))
		})
	}

	if rule.VersioningEnabled {
		for _, name := range e.localFolderNames(rule) {
			e.rotator.Rotate(ctx, objects, bucket.Name, name, rule)
		}
	}

	e.logger.Info("sync run finished", "rule", rule.Name, "synced", result.Synced, "total", result.Total, "errors", len(result.Errors))
	return result
}

// enumerate walks the rule's folders and collects matching files with
// their object keys. Missing folders are skipped with a warning.
func (e *SyncEngine) enumerate(rule config.SyncRule, stamp string) ([]syncFile, []string) {
	var files []syncFile
	var errs []string

	for _, folderPath := range rule.Folders {
		if !e.fsmgr.Exists(folderPath) {
			e.logger.Warn("sync folder does not exist", "rule", rule.Name, "path", folderPath)
			continue
		}
		base := filepath.Base(folderPath)

		err := e.fsmgr.WalkFiles(folderPath, func(path string, info fs.FileInfo) error {
			if !e.matcher.MatchesPattern(info.Name(), rule.Pattern, rule.PatternType) {
				return nil
			}
			rel, err := filepath.Rel(folderPath, path)
			if err != nil {
				return nil
			}
			files = append(files, syncFile{
				path:       path,
				key:        BuildObjectKey(base, rel, rule.VersioningEnabled, stamp),
				folderName: base,
				size:       info.Size(),
			})
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Sprintf("walking %s: %v", folderPath, err))
		}
	}
	return files, errs
}

// localFolderNames returns the distinct base names of the rule's
// folders that still exist locally, in stable order. Rotation only runs
// for these.
func (e *SyncEngine) localFolderNames(rule config.SyncRule) []string {
	seen := make(map[string]bool)
	var names []string
	for _, folderPath := range rule.Folders {
		if !e.fsmgr.Exists(folderPath) {
			continue
		}
		name := filepath.Base(folderPath)
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
