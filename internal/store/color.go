package store

import (
	"path/filepath"
	"sort"
	"strings"
)

// ProjectColorPalette is the ordered set of accent colours assigned to
// new projects. The hues are curated to stay legible in both light and
// dark mode; users can override the assignment afterwards.
var ProjectColorPalette = []string{
	"#84cc16", // lime
	"#ef4444", // red
	"#38bdf8", // sky
	"#a78bfa", // purple
	"#eab308", // yellow
	"#ec4899", // pink
	"#14b8a6", // teal
	"#f97316", // orange
	"#6366f1", // indigo
	"#06b6d4", // cyan
	"#f43f5e", // rose
	"#10b981", // emerald
}

// nextProjectColor picks the first palette entry not already used by an
// active project. Once every entry is taken it cycles deterministically
// on the count of distinct colours in use.
func (s *Store) nextProjectColor() string {
	used := make(map[string]bool)

	readmes, _ := filepath.Glob(filepath.Join(s.root, "projects", "*", "README.md"))
	sort.Strings(readmes)
	for _, readme := range readmes {
		fields, _, err := s.readEntity(readme)
		if err != nil {
			continue
		}
		if c := fields.GetString("color"); c != "" {
			used[strings.ToLower(c)] = true
		}
	}

	for _, color := range ProjectColorPalette {
		if !used[strings.ToLower(color)] {
			return color
		}
	}

	return ProjectColorPalette[len(used)%len(ProjectColorPalette)]
}
