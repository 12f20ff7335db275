package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"sweep-go/internal/config"
	"sweep-go/internal/fs"
	"sweep-go/internal/history"
	"sweep-go/internal/metrics"
	"sweep-go/internal/objectstore"
	"sweep-go/internal/sweep"
)

// App is the application layer between the CLI and the engines. It
// constructs all dependencies from config, exposes the operations the
// CLI (or a tray frontend built on top) needs, and owns shutdown.
type App struct {
	Store  *config.Store
	Logger sweep.Logger

	fsmgr     sweep.FilesystemManager
	trash     sweep.Trash
	pool      *objectstore.Pool
	engine    *sweep.RetentionEngine
	syncEng   *sweep.SyncEngine
	monitor   *sweep.Monitor
	syncSched *sweep.SyncScheduler
	hist      *history.SQLiteHistory
	metrics   *metrics.Metrics

	logFile   *os.File
	metricSrv *http.Server
}

// NewApp creates a fully wired App from the config file at configPath.
// operation identifies the CLI command being run (e.g. "Scan", "Run").
// The caller must call Close when done.
func NewApp(configPath string, operation string) (*App, error) {
	store, err := config.NewStore(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(store.LogDir(), runID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger.With("op", operation)}

	dataDir := store.DataDir()
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	hist, err := history.Open(filepath.Join(dataDir, "history.db"))
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	m := metrics.New()
	clock := sweep.RealClock{}
	idgen := sweep.UUIDGenerator{}
	fsmgr := fs.NewOSFilesystemManager()
	trash := fs.NewXDGTrash()
	pool := objectstore.NewPool()

	matcher := sweep.NewRuleMatcher(clock)
	deleter := sweep.NewSafeDeleter(fsmgr, trash, logger)
	gate := sweep.NewScheduleGate(clock)

	engine := sweep.NewRetentionEngine(store, fsmgr, matcher, deleter,
		sweep.NewProgressTracker(), logger, clock, idgen, m)
	monitor := sweep.NewMonitor(engine, gate, store, hist, logger, clock)

	rotator := sweep.NewVersionRotator(logger, clock, m)
	syncEng := sweep.NewSyncEngine(store, pool, fsmgr, matcher,
		sweep.NewProgressTracker(), rotator, logger, clock, idgen, m)
	syncSched := sweep.NewSyncScheduler(store, syncEng, hist, logger, clock)
	syncSched.SetScheduleWindow(store.ScheduleWindow())

	return &App{
		Store:     store,
		Logger:    logger,
		fsmgr:     fsmgr,
		trash:     trash,
		pool:      pool,
		engine:    engine,
		syncEng:   syncEng,
		monitor:   monitor,
		syncSched: syncSched,
		hist:      hist,
		metrics:   m,
		logFile:   logFile,
	}, nil
}

// ScanAndClean runs one retention pass immediately.
func (a *App) ScanAndClean() *sweep.ScanResult {
	return a.engine.ScanAndClean()
}

// StartMonitoring starts the retention monitor, the sync scheduler, and
// the config file watcher.
func (a *App) StartMonitoring() error {
	if err := a.Store.Watch(a.Logger); err != nil {
		return fmt.Errorf("watching config: %w", err)
	}
	a.monitor.Start()
	a.syncSched.Start()
	return nil
}

// StopMonitoring stops both background loops.
func (a *App) StopMonitoring() {
	a.monitor.Stop()
	a.syncSched.Stop()
}

// ActiveTasks returns a merged snapshot of retention and sync tasks.
func (a *App) ActiveTasks() []sweep.TaskSnapshot {
	tasks := a.engine.Tracker().List()
	return append(tasks, a.syncEng.Tracker().List()...)
}

// RunSyncNow launches the sync rule at index immediately. It reports
// whether the index named a configured rule.
func (a *App) RunSyncNow(index int) bool {
	return a.syncSched.RunNow(index)
}

// RecentRuns returns the most recent recorded runs, newest first.
func (a *App) RecentRuns(limit int) ([]sweep.RunRecord, error) {
	return a.hist.RecentRuns(limit)
}

// CheckBucket probes the named bucket end to end: upload a marker
// object, head it, delete it.
func (a *App) CheckBucket(ctx context.Context, name string) error {
	bucket, ok := a.Store.BucketByName(name)
	if !ok {
		return fmt.Errorf("bucket not configured: %s", name)
	}
	store, err := a.pool.Get(bucket)
	if err != nil {
		return fmt.Errorf("creating client for %s: %w", name, err)
	}
	return objectstore.CheckBucket(ctx, store, bucket.Name)
}

// ServeMetrics exposes /metrics on addr in the background.
func (a *App) ServeMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	a.metricSrv = &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := a.metricSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
}

// Close stops the loops and releases every resource the app owns.
func (a *App) Close() error {
	a.StopMonitoring()
	if a.metricSrv != nil {
		a.metricSrv.Close()
	}
	a.pool.Close()
	a.Store.Close()

	var firstErr error
	if err := a.hist.Close(); err != nil {
		firstErr = err
	}
	if err := a.logFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
