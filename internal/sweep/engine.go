package sweep

import (
	"fmt"
	"sort"
	"time"

	"sweep-go/internal/config"
)

// ScanResult aggregates one full scan-and-clean pass. Deleted holds
// human-readable records for every removed path, Errors every per-item
// failure. A scan is never all-or-nothing: both lists can be non-empty.
type ScanResult struct {
	Deleted      []string
	Errors       []string
	TotalScanned int
}

// RetentionEngine orchestrates one full scan: for every watched folder,
// for every applicable rule, it computes the delete-set (respecting
// keep-latest), deletes it, and aggregates results.
type RetentionEngine struct {
	store   ConfigStore
	fsmgr   FilesystemManager
	matcher *RuleMatcher
	deleter *SafeDeleter
	tracker *ProgressTracker
	logger  Logger
	clock   Clock
	idgen   IDGenerator
	metrics Metrics
}

// NewRetentionEngine creates an engine with the provided dependencies.
func NewRetentionEngine(store ConfigStore, fsmgr FilesystemManager, matcher *RuleMatcher, deleter *SafeDeleter, tracker *ProgressTracker, logger Logger, clock Clock, idgen IDGenerator, metrics Metrics) *RetentionEngine {
	return &RetentionEngine{
		store:   store,
		fsmgr:   fsmgr,
		matcher: matcher,
		deleter: deleter,
		tracker: tracker,
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
		metrics: metrics,
	}
}

// Tracker returns the engine's progress tracker, for external polling.
func (e *RetentionEngine) Tracker() *ProgressTracker { return e.tracker }

// candidate is one matched depth-1 entry while a rule is evaluated.
type candidate struct {
	path    string
	isDir   bool
	modTime time.Time
}

// ScanAndClean runs one full retention pass over all watched folders.
// Per-item failures go into the result's error list; nothing is raised
// past the scan boundary.
func (e *RetentionEngine) ScanAndClean() *ScanResult {
	e.logger.Info("scan started")
	e.metrics.ScanRun()

	result := &ScanResult{}

	folders := e.store.WatchFolders()
	rules := make([]config.RetentionRule, 0)
	for _, r := range e.store.Rules() {
		if r.IsEnabled() {
			rules = append(rules, r)
		}
	}
	e.logger.Info("scan config", "folders", len(folders), "rules", len(rules))

	for _, folder := range folders {
		if !e.fsmgr.Exists(folder) {
			msg := fmt.Sprintf("watched folder does not exist: %s", folder)
			result.Errors = append(result.Errors, msg)
			e.logger.Warn("skipping folder", "path", folder, "reason", "missing")
			continue
		}

		fr := e.processFolder(folder, rules)
		result.Deleted = append(result.Deleted, fr.Deleted...)
		result.Errors = append(result.Errors, fr.Errors...)
		result.TotalScanned += fr.TotalScanned

		if len(fr.Deleted) > 0 {
			e.logger.Info("folder cleaned", "path", folder, "deleted", len(fr.Deleted))
		}
		if len(fr.Errors) > 0 {
			e.logger.Warn("folder had errors", "path", folder, "errors", len(fr.Errors))
		}
	}

	// Any delete task still registered at this point is stale.
	e.tracker.Clear()

	e.logger.Info("scan finished",
		"deleted", len(result.Deleted),
		"errors", len(result.Errors),
		"scanned", result.TotalScanned)
	return result
}

// processFolder applies every applicable rule to one watched folder.
// Rules run in list order; a path claimed by one rule (kept or deleted)
// is never reconsidered by a later one.
func (e *RetentionEngine) processFolder(folder string, rules []config.RetentionRule) *ScanResult {
	result := &ScanResult{}

	applicable := make([]config.RetentionRule, 0, len(rules))
	for _, r := range rules {
		if e.matcher.AppliesToFolder(folder, r) {
			applicable = append(applicable, r)
		}
	}
	if len(applicable) == 0 {
		return result
	}

	entries, err := e.fsmgr.ListDir(folder)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("listing folder %s: %v", folder, err))
		return result
	}

	claimed := make(map[string]bool)

	for _, rule := range applicable {
		var matches []candidate
		for _, entry := range entries {
			if claimed[entry.Path] {
				continue
			}
			if !entry.IsDir {
				result.TotalScanned++
			}
			if !e.matcher.MatchesPattern(entry.Name, rule.Pattern, rule.PatternType) {
				continue
			}
			if !e.matcher.IsExpired(entry.ModTime, rule) {
				continue
			}
			matches = append(matches, candidate{path: entry.Path, isDir: entry.IsDir, modTime: entry.ModTime})
		}
		if len(matches) == 0 {
			continue
		}

		var toDelete []candidate
		if rule.KeepLatest > 0 {
			// Spare the N most recently modified; they stay claimed so
			// no later rule can touch them either.
			sort.Slice(matches, func(i, j int) bool {
				return matches[i].modTime.After(matches[j].modTime)
			})
			keep := rule.KeepLatest
			if keep > len(matches) {
				keep = len(matches)
			}
			for _, c := range matches[:keep] {
				claimed[c.path] = true
			}
			toDelete = matches[keep:]
		} else {
			// Oldest first. Order does not change the outcome here but
			// keeps deletion logs deterministic.
			sort.Slice(matches, func(i, j int) bool {
				return matches[i].modTime.Before(matches[j].modTime)
			})
			toDelete = matches
		}

		if len(toDelete) == 0 {
			continue
		}

		e.deleteBatch(rule, toDelete, claimed, result)
	}

	return result
}

// deleteBatch deletes one rule's claim within one folder, tracking
// progress as a delete task.
func (e *RetentionEngine) deleteBatch(rule config.RetentionRule, batch []candidate, claimed map[string]bool, result *ScanResult) {
	totalFiles := 0
	var totalBytes int64
	for _, c := range batch {
		files, bytes, err := e.fsmgr.TreeSize(c.path)
		if err != nil {
			continue
		}
		totalFiles += files
		totalBytes += bytes
	}

	taskID := e.idgen.New()
	name := rule.Name
	if name == "" {
		name = rule.Pattern
	}
	e.tracker.Create(taskID, TaskDelete, "Cleanup: "+name, e.clock.Now())
	e.tracker.Update(taskID, func(s *TaskState) {
		s.TotalFiles = totalFiles
		s.TotalBytes = totalBytes
		s.Status = fmt.Sprintf("deleting %d items (%s)", len(batch), formatSize(totalBytes))
	})

	deleted := 0
	for _, c := range batch {
		claimed[c.path] = true

		files, bytes, _ := e.fsmgr.TreeSize(c.path)

		record, err := e.deleter.Delete(c.path, rule.PermanentDelete)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			e.metrics.DeleteError()
			continue
		}
		if record == "" {
			// Path vanished between listing and deletion.
			continue
		}
		result.Deleted = append(result.Deleted, record)
		deleted++

		e.tracker.Update(taskID, func(s *TaskState) {
			s.ProcessedFiles += files
			s.ProcessedBytes += bytes
			s.Progress = batchProgress(s.ProcessedFiles, s.TotalFiles, s.ProcessedBytes, s.TotalBytes)
			s.Status = fmt.Sprintf("deleted %d of %d items", s.ProcessedFiles, s.TotalFiles)
		})
	}
	e.metrics.FilesDeleted(deleted)
	e.tracker.Complete(taskID)
}

// batchProgress averages the file-count fraction and the byte fraction.
// A zero total counts as fully done on that axis.
func batchProgress(files, totalFiles int, bytes, totalBytes int64) int {
	fileFrac := 100.0
	if totalFiles > 0 {
		fileFrac = float64(files) / float64(totalFiles) * 100
		if fileFrac > 100 {
			fileFrac = 100
		}
	}
	byteFrac := 100.0
	if totalBytes > 0 {
		byteFrac = float64(bytes) / float64(totalBytes) * 100
		if byteFrac > 100 {
			byteFrac = 100
		}
	}
	return int((fileFrac + byteFrac) / 2)
}
