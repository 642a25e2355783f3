package store

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Body section markers. Entity bodies are markdown with "## " headings;
// each section runs from its marker to the next heading or end of text.
const (
	sectionSubtasks    = "## Subtasks"
	sectionAttachments = "## Attachments"
	sectionAgentTips   = "## Agent Tips"
)

// sectionContent returns the text between marker and the next heading
// (or end of body). The bool reports whether the section exists.
func sectionContent(body, marker string) (string, bool) {
	if !strings.Contains(body, marker) {
		return "", false
	}
	rest := strings.SplitN(body, marker, 2)[1]
	if idx := strings.Index(rest, "\n## "); idx >= 0 {
		rest = rest[:idx]
	}
	return rest, true
}

// spliceSection rewrites the named section's content, keeping everything
// around it. A missing section is inserted immediately before the
// insertBefore marker when that section exists, otherwise appended at
// the end of the body. Pass insertBefore == "" to always append.
func spliceSection(body, marker, content, insertBefore string) string {
	if strings.Contains(body, marker) {
		parts := strings.SplitN(body, marker, 2)
		after := ""
		if idx := strings.Index(parts[1], "\n## "); idx >= 0 {
			after = parts[1][idx:]
		}
		return parts[0] + marker + "\n" + content + after
	}

	if insertBefore != "" && strings.Contains(body, insertBefore) {
		parts := strings.SplitN(body, insertBefore, 2)
		return parts[0] + marker + "\n" + content + "\n\n" + insertBefore + parts[1]
	}

	return strings.TrimRight(body, " \t\r\n") + "\n\n" + marker + "\n" + content
}

// bulletItems parses "- item" lines out of a section's text.
func bulletItems(section string) []string {
	var items []string
	for _, line := range strings.Split(strings.TrimSpace(section), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "- ") {
			items = append(items, trimmed[2:])
		}
	}
	return items
}

// renderBullets renders strings as "- item" lines.
func renderBullets(items []string) string {
	if len(items) == 0 {
		return ""
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

var imageLinkRe = regexp.MustCompile(`(?i)\[([^\]]*)\]\(([^)]+\.(?:png|jpe?g|gif|webp|svg|bmp))\)`)

// firstImage extracts the filename of the first image link in a body,
// basename only so callers cannot be steered outside the attachments
// directory.
func firstImage(body string) string {
	m := imageLinkRe.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return filepath.Base(m[2])
}
