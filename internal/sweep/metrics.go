package sweep

// Metrics receives counter events from the engines. The prometheus
// implementation lives in internal/metrics; tests use NopMetrics.
type Metrics interface {
	ScanRun()
	FilesDeleted(n int)
	DeleteError()
	FileUploaded(bytes int64)
	SyncError()
	VersionRotated()
}

// NopMetrics discards all events.
type NopMetrics struct{}

func NewNopMetrics() *NopMetrics { return &NopMetrics{} }

func (*NopMetrics) ScanRun()            {}
func (*NopMetrics) FilesDeleted(int)    {}
func (*NopMetrics) DeleteError()        {}
func (*NopMetrics) FileUploaded(int64)  {}
func (*NopMetrics) SyncError()          {}
func (*NopMetrics) VersionRotated()     {}
