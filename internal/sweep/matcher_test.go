package sweep_test

import (
	"testing"
	"time"

	"sweep-go/internal/config"
	"sweep-go/internal/sweep"
	"sweep-go/internal/testutil"
)

func intPtr(v int) *int { return &v }

func TestRuleMatcher_AppliesToFolder(t *testing.T) {
	m := sweep.NewRuleMatcher(testutil.FixedClock())

	tests := []struct {
		name    string
		folder  string
		folders []string
		want    bool
	}{
		{"wildcard covers everything", "/data/downloads", []string{"*"}, true},
		{"exact match", "/data/downloads", []string{"/data/downloads"}, true},
		{"subfolder of listed folder", "/data/downloads/iso", []string{"/data/downloads"}, true},
		{"unrelated folder", "/data/music", []string{"/data/downloads"}, false},
		{"prefix without separator boundary", "/data/downloads2", []string{"/data/downloads"}, false},
		{"empty list covers nothing", "/data/downloads", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := config.RetentionRule{Folders: tt.folders}
			if got := m.AppliesToFolder(tt.folder, rule); got != tt.want {
				t.Errorf("AppliesToFolder(%q, %v) = %v, want %v", tt.folder, tt.folders, got, tt.want)
			}
		})
	}
}

func TestRuleMatcher_MatchesPattern(t *testing.T) {
	m := sweep.NewRuleMatcher(testutil.FixedClock())

	tests := []struct {
		name        string
		filename    string
		pattern     string
		patternType string
		want        bool
	}{
		{"star matches everything", "anything.txt", "*", config.PatternWildcard, true},
		{"star matches under regex type too", "anything.txt", "*", config.PatternRegex, true},
		{"glob extension match", "backup.bak", "*.bak", config.PatternWildcard, true},
		{"glob extension mismatch", "backup.txt", "*.bak", config.PatternWildcard, false},
		{"glob matches filename only", "report-2026.pdf", "report-*.pdf", config.PatternWildcard, true},
		{"invalid glob never matches", "a.txt", "[", config.PatternWildcard, false},
		{"regex full match", "report_123", `report_\d+`, config.PatternRegex, true},
		{"regex is not a substring match", "xreport_123x", `report_\d+`, config.PatternRegex, false},
		{"regex with alternation stays anchored", "old.log", `tmp|log`, config.PatternRegex, false},
		{"invalid regex never matches", "a.txt", `(`, config.PatternRegex, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.MatchesPattern(tt.filename, tt.pattern, tt.patternType); got != tt.want {
				t.Errorf("MatchesPattern(%q, %q, %q) = %v, want %v", tt.filename, tt.pattern, tt.patternType, got, tt.want)
			}
		})
	}
}

func TestRuleMatcher_IsExpired(t *testing.T) {
	clock := testutil.FixedClock()
	m := sweep.NewRuleMatcher(clock)
	rule := config.RetentionRule{MaxAgeMinutes: intPtr(60)}

	t.Run("file exactly at max age is expired", func(t *testing.T) {
		modTime := clock.Now().Add(-60 * time.Minute)
		if !m.IsExpired(modTime, rule) {
			t.Error("IsExpired() = false for file exactly at max age, want true")
		}
	})

	t.Run("file younger than max age is not expired", func(t *testing.T) {
		modTime := clock.Now().Add(-59 * time.Minute)
		if m.IsExpired(modTime, rule) {
			t.Error("IsExpired() = true for file younger than max age, want false")
		}
	})

	t.Run("file older than max age is expired", func(t *testing.T) {
		modTime := clock.Now().Add(-61 * time.Minute)
		if !m.IsExpired(modTime, rule) {
			t.Error("IsExpired() = false for file older than max age, want true")
		}
	})

	t.Run("legacy day threshold wins over minutes", func(t *testing.T) {
		r := config.RetentionRule{MaxAgeMinutes: intPtr(1), MaxAgeDays: intPtr(2)}
		modTime := clock.Now().Add(-24 * time.Hour)
		if m.IsExpired(modTime, r) {
			t.Error("IsExpired() = true for file inside the day threshold, want false")
		}
	})
}
