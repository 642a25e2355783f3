package store

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	slugStripRe   = regexp.MustCompile(`[^a-z0-9]+`)
	taskFileRe    = regexp.MustCompile(`^task-(\d+)\.md$`)
	validStatuses = map[string]bool{"todo": true, "in-progress": true, "done": true, "archived": true}
	validPriority = map[string]bool{"low": true, "medium": true, "high": true}
)

// slugify derives a filesystem- and URL-safe identifier from a
// human-readable name: lowercase, non-alphanumeric runs collapsed to
// single hyphens, leading and trailing hyphens trimmed.
func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugStripRe.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// taskFileName renders a counter as the deterministic task filename,
// zero-padded to three digits (task-001.md). Counters past 999 simply
// grow wider.
func taskFileName(counter int) string {
	return fmt.Sprintf("task-%03d.md", counter)
}

// taskID renders a counter as a task identifier (task-001).
func taskID(counter int) string {
	return fmt.Sprintf("task-%03d", counter)
}

// todayStr returns the current date as an ISO YYYY-MM-DD string, the
// format used for every date field in the headers.
func todayStr() string {
	return time.Now().Format("2006-01-02")
}

// safeChild joins path elements under a base directory and verifies the
// result stays inside it. Returns an empty string when an element is
// empty or the joined path escapes the base.
func safeChild(base string, elems ...string) string {
	for _, e := range elems {
		if e == "" {
			return ""
		}
	}
	joined := filepath.Join(append([]string{base}, elems...)...)
	cleaned := filepath.Clean(joined)
	if cleaned != base && !strings.HasPrefix(cleaned, base+string(filepath.Separator)) {
		return ""
	}
	return cleaned
}

// toStringSlice normalizes the slice shapes that filters and update
// maps can carry.
func toStringSlice(v any) []string {
	switch s := v.(type) {
	case nil:
		return nil
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	case string:
		if s == "" {
			return nil
		}
		return []string{s}
	default:
		return []string{fmt.Sprintf("%v", v)}
	}
}
