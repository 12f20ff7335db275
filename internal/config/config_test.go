package config_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"sweep-go/internal/config"
)

func TestConfig_Normalize(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		cfg := &config.Config{
			Rules:     []config.RetentionRule{{Name: "r"}},
			SyncRules: []config.SyncRule{{Name: "s", BucketName: "bkt"}},
			Buckets:   []config.S3Bucket{{Name: "bkt"}},
		}
		cfg.Normalize()

		if cfg.CheckIntervalMinutes != 60 {
			t.Errorf("CheckIntervalMinutes = %d, want 60", cfg.CheckIntervalMinutes)
		}
		if cfg.ScheduleWindowMinutes != 5 {
			t.Errorf("ScheduleWindowMinutes = %d, want 5", cfg.ScheduleWindowMinutes)
		}

		r := cfg.Rules[0]
		if r.Pattern != "*" || r.PatternType != config.PatternWildcard {
			t.Errorf("rule pattern = %q/%q, want */wildcard", r.Pattern, r.PatternType)
		}
		if !r.IsEnabled() {
			t.Error("rule not enabled by default")
		}
		if r.MaxAge() != config.DefaultMaxAgeMinutes*time.Minute {
			t.Errorf("MaxAge() = %s, want 30 days", r.MaxAge())
		}

		s := cfg.SyncRules[0]
		if s.ScheduleType != config.ScheduleInterval {
			t.Errorf("ScheduleType = %q, want interval", s.ScheduleType)
		}
		if s.IntervalMinutes != 60 {
			t.Errorf("IntervalMinutes = %d, want 60", s.IntervalMinutes)
		}
		if s.ScheduleTime != "03:00" {
			t.Errorf("ScheduleTime = %q, want 03:00", s.ScheduleTime)
		}

		if cfg.Buckets[0].Region != "us-east-1" {
			t.Errorf("Region = %q, want us-east-1", cfg.Buckets[0].Region)
		}
	})

	t.Run("folds legacy check_interval_seconds into minutes", func(t *testing.T) {
		cfg := &config.Config{CheckIntervalSeconds: 300}
		cfg.Normalize()
		if cfg.CheckIntervalMinutes != 5 {
			t.Errorf("CheckIntervalMinutes = %d, want 5", cfg.CheckIntervalMinutes)
		}
		if cfg.CheckIntervalSeconds != 0 {
			t.Errorf("CheckIntervalSeconds = %d, want 0 after folding", cfg.CheckIntervalSeconds)
		}
	})

	t.Run("sub-minute legacy interval rounds up to one minute", func(t *testing.T) {
		cfg := &config.Config{CheckIntervalSeconds: 30}
		cfg.Normalize()
		if cfg.CheckIntervalMinutes != 1 {
			t.Errorf("CheckIntervalMinutes = %d, want 1", cfg.CheckIntervalMinutes)
		}
	})

	t.Run("explicit minutes win over legacy seconds", func(t *testing.T) {
		cfg := &config.Config{CheckIntervalMinutes: 15, CheckIntervalSeconds: 7200}
		cfg.Normalize()
		if cfg.CheckIntervalMinutes != 15 {
			t.Errorf("CheckIntervalMinutes = %d, want 15", cfg.CheckIntervalMinutes)
		}
	})

	t.Run("folds legacy max_age_days into minutes", func(t *testing.T) {
		days := 2
		minutes := 10
		cfg := &config.Config{
			Rules: []config.RetentionRule{{MaxAgeDays: &days, MaxAgeMinutes: &minutes}},
		}
		cfg.Normalize()

		r := cfg.Rules[0]
		if r.MaxAgeDays != nil {
			t.Error("MaxAgeDays still set after folding")
		}
		if r.MaxAgeMinutes == nil || *r.MaxAgeMinutes != 2*24*60 {
			t.Errorf("MaxAgeMinutes = %v, want %d (legacy days win)", r.MaxAgeMinutes, 2*24*60)
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *config.Config {
		cfg := &config.Config{
			WatchFolders: []string{"/data/downloads"},
			Rules:        []config.RetentionRule{{Name: "r", Folders: []string{"*"}}},
			SyncRules:    []config.SyncRule{{Name: "s", BucketName: "bkt"}},
			Buckets:      []config.S3Bucket{{Name: "bkt"}},
		}
		cfg.Normalize()
		return cfg
	}

	t.Run("accepts a normalized config", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("rejects relative watch folders", func(t *testing.T) {
		cfg := valid()
		cfg.WatchFolders = []string{"downloads"}
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() = nil for relative watch folder, want error")
		}
	})

	t.Run("rejects unknown pattern types", func(t *testing.T) {
		cfg := valid()
		cfg.Rules[0].PatternType = "glob"
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() = nil for unknown pattern type, want error")
		}
	})

	t.Run("rejects negative keep_latest", func(t *testing.T) {
		cfg := valid()
		cfg.Rules[0].KeepLatest = -1
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() = nil for negative keep_latest, want error")
		}
	})

	t.Run("rejects sync rules without a bucket", func(t *testing.T) {
		cfg := valid()
		cfg.SyncRules[0].BucketName = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() = nil for sync rule without bucket, want error")
		}
	})

	t.Run("rejects duplicate bucket names", func(t *testing.T) {
		cfg := valid()
		cfg.Buckets = append(cfg.Buckets, config.S3Bucket{Name: "bkt"})
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() = nil for duplicate bucket, want error")
		}
	})
}

func TestManager_ReadWrite(t *testing.T) {
	t.Run("reads a toml config with normalization", func(t *testing.T) {
		input := `
log_dir = "/var/log/sweep"
data_dir = "/var/lib/sweep"
check_interval_seconds = 120
watch_folders = ["/data/downloads"]

[[rules]]
name = "old archives"
pattern = "*.zip"
max_age_days = 7
folders = ["*"]
permanent_delete = true
`
		m := &config.Manager{}
		cfg, err := m.Read(strings.NewReader(input))
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}

		if cfg.CheckIntervalMinutes != 2 {
			t.Errorf("CheckIntervalMinutes = %d, want 2", cfg.CheckIntervalMinutes)
		}
		if len(cfg.Rules) != 1 {
			t.Fatalf("len(Rules) = %d, want 1", len(cfg.Rules))
		}
		if got := cfg.Rules[0].MaxAge(); got != 7*24*time.Hour {
			t.Errorf("MaxAge() = %s, want 168h", got)
		}
	})

	t.Run("rejects invalid configs on read", func(t *testing.T) {
		input := `
watch_folders = ["relative/path"]
`
		m := &config.Manager{}
		if _, err := m.Read(strings.NewReader(input)); err == nil {
			t.Error("Read() = nil error for invalid config, want error")
		}
	})

	t.Run("round trips through write and read", func(t *testing.T) {
		enabled := false
		maxAge := 90
		orig := &config.Config{
			LogDir:               "/var/log/sweep",
			DataDir:              "/var/lib/sweep",
			CheckIntervalMinutes: 30,
			WatchFolders:         []string{"/data/downloads"},
			Rules: []config.RetentionRule{{
				Name:          "zips",
				Pattern:       "*.zip",
				PatternType:   config.PatternWildcard,
				MaxAgeMinutes: &maxAge,
				Enabled:       &enabled,
				Folders:       []string{"/data/downloads"},
				KeepLatest:    3,
			}},
			Buckets: []config.S3Bucket{{Name: "bkt", AccessKey: "k", SecretKey: "s", Region: "us-east-1"}},
		}

		m := &config.Manager{}
		var buf bytes.Buffer
		if err := m.Write(&buf, orig); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		got, err := m.Read(&buf)
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if got.Rules[0].Name != "zips" || got.Rules[0].KeepLatest != 3 {
			t.Errorf("rule after round trip = %+v", got.Rules[0])
		}
		if got.Rules[0].IsEnabled() {
			t.Error("disabled rule came back enabled")
		}
		if got.Buckets[0].SecretKey != "s" {
			t.Errorf("bucket after round trip = %+v", got.Buckets[0])
		}
	})
}
