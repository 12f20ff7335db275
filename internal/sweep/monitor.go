package sweep

import (
	"sync/atomic"
	"time"
)

// Monitor is the retention background loop: each tick it re-reads the
// poll interval from live config, asks the schedule gate, and runs a
// scan when due. A failed tick never kills the loop.
type Monitor struct {
	engine  *RetentionEngine
	gate    *ScheduleGate
	store   ConfigStore
	history History
	logger  Logger
	clock   Clock

	running  atomic.Bool
	stopc    chan struct{}
	loopDone chan struct{}
}

// NewMonitor creates a monitor over the given engine and gate.
func NewMonitor(engine *RetentionEngine, gate *ScheduleGate, store ConfigStore, history History, logger Logger, clock Clock) *Monitor {
	return &Monitor{
		engine:  engine,
		gate:    gate,
		store:   store,
		history: history,
		logger:  logger,
		clock:   clock,
	}
}

// Running reports whether the loop is active.
func (m *Monitor) Running() bool { return m.running.Load() }

// Start launches the background loop. Starting a running monitor is a
// no-op.
func (m *Monitor) Start() {
	if m.running.Swap(true) {
		return
	}
	m.stopc = make(chan struct{})
	m.loopDone = make(chan struct{})
	m.logger.Info("monitor started", "interval", m.store.CheckInterval())
	go m.loop()
}

// Stop requests the loop to exit and waits briefly for it. The stop is
// best-effort: a scan already in flight runs to completion.
func (m *Monitor) Stop() {
	if !m.running.Swap(false) {
		return
	}
	close(m.stopc)
	select {
	case <-m.loopDone:
	case <-time.After(500 * time.Millisecond):
	}
	m.logger.Info("monitor stopped")
}

func (m *Monitor) loop() {
	defer close(m.loopDone)

	iteration := 0
	for m.running.Load() {
		iteration++
		// Re-read each tick so config edits apply without restart.
		interval := m.store.CheckInterval()

		m.tick(iteration, interval)

		select {
		case <-time.After(interval):
		case <-m.stopc:
			return
		}
	}
}

// tick runs one scheduled check. Unexpected panics are contained here
// so the next tick proceeds normally.
func (m *Monitor) tick(iteration int, interval time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("scan tick panicked", "iteration", iteration, "panic", r)
		}
	}()

	if !m.gate.IsDue(m.store.ScheduleEnabled(), m.store.Schedules(), interval) {
		m.logger.Info("check skipped, outside schedule", "iteration", iteration)
		return
	}

	started := m.clock.Now()
	result := m.engine.ScanAndClean()
	m.logger.Info("check finished",
		"iteration", iteration,
		"deleted", len(result.Deleted),
		"errors", len(result.Errors),
		"scanned", result.TotalScanned)

	rec := RunRecord{
		Kind:       RunKindScan,
		StartedAt:  started,
		FinishedAt: m.clock.Now(),
		Scanned:    result.TotalScanned,
		Deleted:    len(result.Deleted),
		Errors:     len(result.Errors),
	}
	if err := m.history.RecordRun(rec); err != nil {
		m.logger.Warn("recording scan run failed", "error", err)
	}
}
