package sweep

import (
	"time"

	"sweep-go/internal/config"
)

// ConfigStore is the engine's view of the live configuration. The store
// is read on every tick so external edits take effect without a restart.
// Implementations must be safe for concurrent use.
type ConfigStore interface {
	// WatchFolders returns the absolute paths of the watched folders.
	WatchFolders() []string

	// Rules returns the retention rules in list order. Rule order is
	// significant: during a scan the first rule to claim a path wins.
	Rules() []config.RetentionRule

	// SyncRules returns the sync rules in list order.
	SyncRules() []config.SyncRule

	// BucketByName looks up a bucket credential bundle.
	BucketByName(name string) (config.S3Bucket, bool)

	// ScheduleEnabled reports whether retention scans are gated by the
	// day/time schedule list.
	ScheduleEnabled() bool

	// Schedules returns the retention schedule entries.
	Schedules() []config.ScheduleEntry

	// CheckInterval returns the retention monitor poll interval.
	CheckInterval() time.Duration

	// SetSyncRuleLastSync persists the last scheduler-triggered run time
	// for the sync rule at index. Must be atomic with respect to
	// SyncRules so one evaluation tick cannot fire a rule twice.
	SetSyncRuleLastSync(index int, t time.Time) error
}
