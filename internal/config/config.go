package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Pattern types accepted by retention and sync rules.
const (
	PatternWildcard = "wildcard"
	PatternRegex    = "regex"
)

// Schedule types accepted by sync rules.
const (
	ScheduleInterval = "interval"
	ScheduleByDay    = "schedule"
)

// DefaultMaxAgeMinutes is the retention threshold applied when a rule
// specifies neither max_age_minutes nor the legacy max_age_days (30 days).
const DefaultMaxAgeMinutes = 43200

// Config is the on-disk configuration for sweep.
//
// Optional fields whose absence is meaningful (enabled flags, age
// thresholds) are pointers so Normalize can tell "not set" from the zero
// value. After Normalize returns, every pointer field is non-nil and the
// legacy keys (max_age_days, check_interval_seconds) have been folded
// into their replacements.
type Config struct {
	LogDir  string `toml:"log_dir"`
	DataDir string `toml:"data_dir"`

	CheckIntervalMinutes int `toml:"check_interval_minutes"`
	// CheckIntervalSeconds is the legacy interval key. Converted to
	// minutes by Normalize.
	CheckIntervalSeconds int `toml:"check_interval_seconds,omitempty"`

	ScheduleEnabled bool            `toml:"schedule_enabled"`
	Schedules       []ScheduleEntry `toml:"schedules"`

	// ScheduleWindowMinutes is how long past its scheduled time a
	// schedule-mode sync rule with no recorded last sync is still
	// launched instead of suppressed until the next occurrence.
	ScheduleWindowMinutes int `toml:"schedule_window_minutes"`

	WatchFolders []string        `toml:"watch_folders"`
	Rules        []RetentionRule `toml:"rules"`
	SyncRules    []SyncRule      `toml:"sync_rules"`
	Buckets      []S3Bucket      `toml:"s3_buckets"`
}

// ScheduleEntry is one (weekday-set, time-of-day) window for the
// retention monitor. Days are 0=Monday through 6=Sunday.
type ScheduleEntry struct {
	Days []int  `toml:"days"`
	Time string `toml:"time"`
}

// RetentionRule describes which files in which watched folders are
// eligible for deletion.
type RetentionRule struct {
	Name        string `toml:"name"`
	Pattern     string `toml:"pattern"`
	PatternType string `toml:"pattern_type"`

	MaxAgeMinutes *int `toml:"max_age_minutes"`
	// MaxAgeDays is the legacy day-based threshold. When present it
	// takes precedence over max_age_minutes (x1440 conversion).
	MaxAgeDays *int `toml:"max_age_days,omitempty"`

	Enabled *bool `toml:"enabled"`

	// Folders lists the watched folders this rule applies to. The
	// sentinel "*" means every watched folder. An empty list applies
	// to nothing.
	Folders []string `toml:"folders"`

	// KeepLatest exempts the N most recently modified matches from
	// deletion. 0 means no exemption.
	KeepLatest int `toml:"keep_latest"`

	PermanentDelete bool `toml:"permanent_delete"`
}

// IsEnabled reports whether the rule is active. A rule with no explicit
// enabled key is active.
func (r *RetentionRule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// MaxAge returns the effective age threshold. The legacy day-based key
// wins when both are present; when neither is set the 30-day default
// applies.
func (r *RetentionRule) MaxAge() time.Duration {
	if r.MaxAgeDays != nil {
		return time.Duration(*r.MaxAgeDays) * 24 * time.Hour
	}
	if r.MaxAgeMinutes != nil {
		return time.Duration(*r.MaxAgeMinutes) * time.Minute
	}
	return DefaultMaxAgeMinutes * time.Minute
}

// SyncRule describes which local folders are mirrored to which S3
// bucket, on what cadence.
type SyncRule struct {
	Name       string `toml:"name"`
	BucketName string `toml:"bucket_name"`

	Enabled *bool    `toml:"enabled"`
	Folders []string `toml:"folders"`

	ScheduleType    string   `toml:"schedule_type"`
	IntervalMinutes int      `toml:"interval_minutes"`
	ScheduleDays    []string `toml:"schedule_days"`
	ScheduleTime    string   `toml:"schedule_time"`

	VersioningEnabled bool `toml:"versioning_enabled"`
	MaxVersions       int  `toml:"max_versions"`
	MaxVersionAgeDays int  `toml:"max_version_age_days"`

	DeleteAfterSync bool `toml:"delete_after_sync"`
	// SyncDeletions is accepted but currently advisory.
	SyncDeletions bool `toml:"sync_deletions"`

	Pattern     string `toml:"pattern"`
	PatternType string `toml:"pattern_type"`

	// LastSync is the RFC 3339 timestamp of the last scheduler-triggered
	// run. Written back after every run.
	LastSync string `toml:"last_sync,omitempty"`
}

// IsEnabled reports whether the rule is active. A rule with no explicit
// enabled key is active.
func (r *SyncRule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// LastSyncTime parses the persisted last_sync timestamp.
// ok is false when no run has been recorded or the value is unparseable.
func (r *SyncRule) LastSyncTime() (t time.Time, ok bool) {
	if r.LastSync == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, r.LastSync)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// S3Bucket is a credential bundle for one S3-compatible bucket.
type S3Bucket struct {
	Name      string `toml:"name"`
	Endpoint  string `toml:"endpoint,omitempty"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Region    string `toml:"region"`
}

// Normalize applies defaults and folds legacy keys into their
// replacements. It runs once at load; the rest of the program may assume
// a normalized config.
func (c *Config) Normalize() {
	if c.CheckIntervalSeconds > 0 && c.CheckIntervalMinutes == 0 {
		c.CheckIntervalMinutes = c.CheckIntervalSeconds / 60
		if c.CheckIntervalMinutes == 0 {
			c.CheckIntervalMinutes = 1
		}
	}
	c.CheckIntervalSeconds = 0
	if c.CheckIntervalMinutes <= 0 {
		c.CheckIntervalMinutes = 60
	}
	if c.ScheduleWindowMinutes <= 0 {
		c.ScheduleWindowMinutes = 5
	}

	for i := range c.Rules {
		r := &c.Rules[i]
		if r.Pattern == "" {
			r.Pattern = "*"
		}
		if r.PatternType == "" {
			r.PatternType = PatternWildcard
		}
		if r.MaxAgeDays != nil {
			minutes := *r.MaxAgeDays * 24 * 60
			r.MaxAgeMinutes = &minutes
			r.MaxAgeDays = nil
		}
		if r.MaxAgeMinutes == nil {
			minutes := DefaultMaxAgeMinutes
			r.MaxAgeMinutes = &minutes
		}
		if r.Enabled == nil {
			enabled := true
			r.Enabled = &enabled
		}
	}

	for i := range c.SyncRules {
		r := &c.SyncRules[i]
		if r.Pattern == "" {
			r.Pattern = "*"
		}
		if r.PatternType == "" {
			r.PatternType = PatternWildcard
		}
		if r.ScheduleType == "" {
			r.ScheduleType = ScheduleInterval
		}
		if r.IntervalMinutes <= 0 {
			r.IntervalMinutes = 60
		}
		if r.ScheduleTime == "" {
			r.ScheduleTime = "03:00"
		}
		if r.Enabled == nil {
			enabled := true
			r.Enabled = &enabled
		}
	}

	for i := range c.Buckets {
		if c.Buckets[i].Region == "" {
			c.Buckets[i].Region = "us-east-1"
		}
	}
}

// Validate reports configuration problems that would make a scan or sync
// misbehave. It assumes the config has been normalized.
func (c *Config) Validate() error {
	for _, f := range c.WatchFolders {
		if !filepath.IsAbs(f) {
			return fmt.Errorf("watch folder is not an absolute path: %s", f)
		}
	}
	for _, r := range c.Rules {
		if r.PatternType != PatternWildcard && r.PatternType != PatternRegex {
			return fmt.Errorf("rule %q: unknown pattern type %q", r.Name, r.PatternType)
		}
		if r.KeepLatest < 0 {
			return fmt.Errorf("rule %q: keep_latest must not be negative", r.Name)
		}
	}
	for _, r := range c.SyncRules {
		if r.ScheduleType != ScheduleInterval && r.ScheduleType != ScheduleByDay {
			return fmt.Errorf("sync rule %q: unknown schedule type %q", r.Name, r.ScheduleType)
		}
		if r.BucketName == "" {
			return fmt.Errorf("sync rule %q: bucket_name is required", r.Name)
		}
	}
	seen := make(map[string]bool, len(c.Buckets))
	for _, b := range c.Buckets {
		if b.Name == "" {
			return fmt.Errorf("bucket with empty name")
		}
		if seen[b.Name] {
			return fmt.Errorf("duplicate bucket name: %s", b.Name)
		}
		seen[b.Name] = true
	}
	return nil
}

// NewConfig creates a Config with sensible defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		LogDir:               filepath.Join(baseDir, "log"),
		DataDir:              filepath.Join(baseDir, "data"),
		CheckIntervalMinutes: 60,
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader and normalizes it.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
