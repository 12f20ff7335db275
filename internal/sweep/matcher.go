package sweep

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"sweep-go/internal/config"
)

// RuleMatcher holds the pure predicate logic of retention scanning:
// folder applicability, filename pattern matching, and age expiry.
type RuleMatcher struct {
	clock Clock
}

// NewRuleMatcher creates a matcher using the given clock for expiry checks.
func NewRuleMatcher(clock Clock) *RuleMatcher {
	return &RuleMatcher{clock: clock}
}

// AppliesToFolder reports whether a rule covers the given watched
// folder: the rule lists "*", the folder itself, or an ancestor of it.
// A rule with an empty folder list covers nothing.
func (m *RuleMatcher) AppliesToFolder(folder string, rule config.RetentionRule) bool {
	if len(rule.Folders) == 0 {
		return false
	}

	for _, rf := range rule.Folders {
		if rf == "*" {
			return true
		}
	}

	abs, err := filepath.Abs(folder)
	if err != nil {
		return false
	}

	for _, rf := range rule.Folders {
		ruleFolder, err := filepath.Abs(rf)
		if err != nil {
			continue
		}
		if abs == ruleFolder {
			return true
		}
		if strings.HasPrefix(abs, ruleFolder+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// MatchesPattern reports whether a filename matches the pattern.
// Wildcard patterns use shell-glob semantics against the filename only.
// Regex patterns must match the entire filename, not a substring.
// An invalid pattern never matches.
func (m *RuleMatcher) MatchesPattern(filename, pattern, patternType string) bool {
	if pattern == "*" {
		return true
	}

	if patternType == config.PatternRegex {
		re, err := regexp.Compile(`^(?:` + pattern + `)$`)
		if err != nil {
			return false
		}
		return re.MatchString(filename)
	}

	ok, err := path.Match(pattern, filename)
	if err != nil {
		return false
	}
	return ok
}

// IsExpired reports whether something last modified at modTime is at
// least as old as the rule's age threshold. The boundary is inclusive:
// a file exactly max-age old is expired.
func (m *RuleMatcher) IsExpired(modTime time.Time, rule config.RetentionRule) bool {
	return m.clock.Now().Sub(modTime) >= rule.MaxAge()
}
