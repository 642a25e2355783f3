package store

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// findTaskFile resolves a task id to its backing file by scanning every
// active project's tasks/ directory, then the archive zone. First match
// wins; ids are workspace-unique so the order only decides which zone
// answers when both somehow hold a copy.
//
// This is a full directory walk, O(total tasks) per lookup. The store
// deliberately maintains no index; the index package layers fast lookup
// on top without changing this contract.
func (s *Store) findTaskFile(id string) string {
	name := id + ".md"
	if !taskFileRe.MatchString(name) {
		return ""
	}

	for _, zone := range []string{"projects", "archive"} {
		matches, err := filepath.Glob(filepath.Join(s.root, zone, "*", "tasks", name))
		if err != nil || len(matches) == 0 {
			continue
		}
		sort.Strings(matches)
		return matches[0]
	}
	return ""
}

// nextTaskCounter scans every tasks/ directory in both zones for the
// highest existing task number and returns one past it. The counter is
// always derived from the filenames, never from a separate counter
// file, so archived tasks keep their numbers reserved forever.
func (s *Store) nextTaskCounter() int {
	maxCounter := 0

	for _, zone := range []string{"projects", "archive"} {
		matches, err := filepath.Glob(filepath.Join(s.root, zone, "*", "tasks", "task-*.md"))
		if err != nil {
			continue
		}
		for _, match := range matches {
			m := taskFileRe.FindStringSubmatch(filepath.Base(match))
			if m == nil {
				continue
			}
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if n > maxCounter {
				maxCounter = n
			}
		}
	}

	return maxCounter + 1
}

// taskDirs lists the tasks/ directories to scan for a listing request.
func (s *Store) taskDirs(projectID string, includeArchived bool) []string {
	var dirs []string

	if projectID != "" {
		dirs = append(dirs, filepath.Join(s.root, "projects", projectID, "tasks"))
	} else {
		matches, _ := filepath.Glob(filepath.Join(s.root, "projects", "*", "tasks"))
		sort.Strings(matches)
		dirs = append(dirs, matches...)
	}

	if includeArchived {
		if projectID != "" {
			archived := filepath.Join(s.root, "archive", projectID, "tasks")
			if info, err := os.Stat(archived); err == nil && info.IsDir() {
				dirs = append(dirs, archived)
			}
		} else {
			matches, _ := filepath.Glob(filepath.Join(s.root, "archive", "*", "tasks"))
			sort.Strings(matches)
			dirs = append(dirs, matches...)
		}
	}

	return dirs
}
