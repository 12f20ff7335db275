package sweep

import "time"

// Run kinds recorded in history.
const (
	RunKindScan = "scan"
	RunKindSync = "sync"
)

// RunRecord is one completed scan or sync run.
type RunRecord struct {
	ID         string
	Kind       string // RunKindScan or RunKindSync
	Rule       string // sync rule name; empty for scans
	StartedAt  time.Time
	FinishedAt time.Time
	Scanned    int
	Deleted    int
	Synced     int
	Errors     int
	Bytes      int64
}

// History persists completed runs for later inspection.
type History interface {
	RecordRun(rec RunRecord) error
	RecentRuns(limit int) ([]RunRecord, error)
}

// NopHistory discards all records. Use in tests.
type NopHistory struct{}

func NewNopHistory() *NopHistory { return &NopHistory{} }

func (*NopHistory) RecordRun(RunRecord) error            { return nil }
func (*NopHistory) RecentRuns(int) ([]RunRecord, error)  { return nil, nil }
