package scanner

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// PatternMatcher decides which keys a scan keeps.
type PatternMatcher struct{}

// NewPatternMatcher creates a new pattern matcher.
func NewPatternMatcher() *PatternMatcher {
	return &PatternMatcher{}
}

// ShouldIncludeFile reports whether key passes the filters. Excludes take
// precedence; with include patterns present a key must match at least one.
func (pm *PatternMatcher) ShouldIncludeFile(key string, includePatterns, excludePatterns []string) bool {
	for _, pattern := range excludePatterns {
		if pm.matchesPattern(key, pattern) {
			return false
		}
	}

	if len(includePatterns) == 0 {
		return true
	}
	for _, pattern := range includePatterns {
		if pm.matchesPattern(key, pattern) {
			return true
		}
	}
	return false
}

// matchesPattern matches key against a doublestar pattern. A trailing slash
// selects everything below a directory and a pattern without a slash also
// matches the basename at any depth, as gitignore does.
func (pm *PatternMatcher) matchesPattern(key, pattern string) bool {
	if dir, ok := strings.CutSuffix(pattern, "/"); ok {
		pattern = dir + "/**"
	}
	if doublestar.MatchUnvalidated(pattern, key) {
		return true
	}
	if !strings.Contains(pattern, "/") {
		return doublestar.MatchUnvalidated(pattern, path.Base(key))
	}
	return false
}

// ValidatePatterns returns an error for every syntactically invalid pattern.
func (pm *PatternMatcher) ValidatePatterns(patterns []string) []error {
	var errs []error
	for i, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, &PatternError{Pattern: pattern, Index: i, Err: doublestar.ErrBadPattern})
		}
	}
	return errs
}

// PatternError represents an error with a pattern.
type PatternError struct {
	Pattern string
	Index   int
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern at index %d '%s': %v", e.Index, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}
