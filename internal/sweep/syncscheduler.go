package sweep

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"sweep-go/internal/config"
)

// DefaultSyncPollInterval is how often the sync scheduler re-evaluates
// every rule.
const DefaultSyncPollInterval = time.Minute

// DefaultScheduleWindow is how long after its scheduled time a
// schedule-mode rule with no recorded run may still fire. It keeps a
// freshly saved rule from firing the moment it is created, hours past
// its window. The exact post-outage behavior of this heuristic is a
// documented quirk, so the window is policy, not load-bearing logic.
const DefaultScheduleWindow = 5 * time.Minute

var weekdayTokens = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// SyncScheduler polls every sync rule once a minute and launches due
// rules on their own workers, so one long-running sync cannot block the
// evaluation of the others.
type SyncScheduler struct {
	store   ConfigStore
	engine  *SyncEngine
	history History
	logger  Logger
	clock   Clock

	pollInterval time.Duration
	window       time.Duration

	running  atomic.Bool
	stopc    chan struct{}
	loopDone chan struct{}
}

// NewSyncScheduler creates a scheduler with the default poll interval
// and schedule window.
func NewSyncScheduler(store ConfigStore, engine *SyncEngine, history History, logger Logger, clock Clock) *SyncScheduler {
	return &SyncScheduler{
		store:        store,
		engine:       engine,
		history:      history,
		logger:       logger,
		clock:        clock,
		pollInterval: DefaultSyncPollInterval,
		window:       DefaultScheduleWindow,
	}
}

// SetScheduleWindow overrides the schedule-mode firing window.
func (s *SyncScheduler) SetScheduleWindow(d time.Duration) { s.window = d }

// Running reports whether the evaluation loop is active.
func (s *SyncScheduler) Running() bool { return s.running.Load() }

// Start launches the evaluation loop. Starting a running scheduler is a
// no-op.
func (s *SyncScheduler) Start() {
	if s.running.Swap(true) {
		return
	}
	s.engine.Resume()
	s.stopc = make(chan struct{})
	s.loopDone = make(chan struct{})
	s.logger.Info("sync scheduler started", "poll", s.pollInterval)
	go s.loop()
}

// Stop requests the loop to exit and interrupts in-flight runs between
// files. Best-effort, like the retention monitor.
func (s *SyncScheduler) Stop() {
	if !s.running.Swap(false) {
		return
	}
	s.engine.Stop()
	close(s.stopc)
	select {
	case <-s.loopDone:
	case <-time.After(500 * time.Millisecond):
	}
	s.logger.Info("sync scheduler stopped")
}

func (s *SyncScheduler) loop() {
	defer close(s.loopDone)

	for s.running.Load() {
		s.tick()
		select {
		case <-time.After(s.pollInterval):
		case <-s.stopc:
			return
		}
	}
}

// tick evaluates every enabled rule once. A panic in evaluation is
// contained so the next tick proceeds.
func (s *SyncScheduler) tick() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sync tick panicked", "panic", r)
		}
	}()

	now := s.clock.Now()
	for i, rule := range s.store.SyncRules() {
		if !rule.IsEnabled() {
			continue
		}
		if !s.shouldSync(rule, now) {
			continue
		}

		// last_sync is written before the worker starts, so the next
		// tick sees the rule as already triggered.
		if err := s.store.SetSyncRuleLastSync(i, now); err != nil {
			s.logger.Error("persisting last_sync failed", "rule", rule.Name, "error", err)
		}

		r := rule
		go s.runRule(r)
	}
}

// shouldSync decides whether a rule is due at the instant now.
func (s *SyncScheduler) shouldSync(rule config.SyncRule, now time.Time) bool {
	lastSync, hasLast := rule.LastSyncTime()

	if rule.ScheduleType == config.ScheduleByDay {
		return s.dueBySchedule(rule, lastSync, hasLast, now)
	}

	// Interval mode: run immediately when never synced, then every
	// interval_minutes.
	if !hasLast {
		return true
	}
	return now.Sub(lastSync) >= time.Duration(rule.IntervalMinutes)*time.Minute
}

// dueBySchedule implements schedule mode: at most one run per day, only
// after the configured time has passed on a configured weekday.
func (s *SyncScheduler) dueBySchedule(rule config.SyncRule, lastSync time.Time, hasLast bool, now time.Time) bool {
	if len(rule.ScheduleDays) == 0 {
		return false
	}

	today := weekdayTokens[int(now.Weekday())]
	if !containsToken(rule.ScheduleDays, today) {
		return false
	}

	hour, minute, ok := parseHHMM(rule.ScheduleTime)
	if !ok {
		hour, minute = 3, 0
	}
	scheduledToday := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())

	if now.Before(scheduledToday) {
		return false
	}

	// A rule with no recorded run whose scheduled time is long past was
	// most likely just created; suppress it until its next window.
	if !hasLast && now.After(scheduledToday.Add(s.window)) {
		return false
	}

	// Already ran at or after today's scheduled time.
	if hasLast && !lastSync.Before(scheduledToday) {
		return false
	}

	return true
}

// runRule executes one sync run on its own worker and records it.
func (s *SyncScheduler) runRule(rule config.SyncRule) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sync run panicked", "rule", rule.Name, "panic", r)
		}
	}()

	started := s.clock.Now()
	result := s.engine.SyncRule(context.Background(), rule)

	rec := RunRecord{
		Kind:       RunKindSync,
		Rule:       rule.Name,
		StartedAt:  started,
		FinishedAt: s.clock.Now(),
		Synced:     result.Synced,
		Scanned:    result.Total,
		Errors:     len(result.Errors),
		Bytes:      result.Bytes,
	}
	if err := s.history.RecordRun(rec); err != nil {
		s.logger.Warn("recording sync run failed", "rule", rule.Name, "error", err)
	}
}

// RunNow launches the rule at index immediately, out of band. Manual
// runs do not touch last_sync, so the regular cadence is unaffected.
func (s *SyncScheduler) RunNow(index int) bool {
	rules := s.store.SyncRules()
	if index < 0 || index >= len(rules) {
		return false
	}
	s.logger.Info("manual sync requested", "rule", rules[index].Name)
	go s.runRule(rules[index])
	return true
}

func containsToken(tokens []string, tok string) bool {
	for _, t := range tokens {
		if t == tok {
			return true
		}
	}
	return false
}

func parseHHMM(v string) (hour, minute int, ok bool) {
	var h, m int
	if _, err := fmt.Sscanf(v, "%d:%d", &h, &m); err != nil {
		return 0, 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}
