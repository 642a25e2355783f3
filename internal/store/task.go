package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nlplanner/nlplanner/internal/frontmatter"
)

// TaskOptions carries the optional fields of CreateTask.
type TaskOptions struct {
	Description  string
	Context      string
	Priority     string
	Status       string
	Due          string
	Tags         []string
	Dependencies []string
	Progress     int
	Notes        []string

	// Subtasks are checklist item titles; all start unchecked, so a
	// task created with subtasks always starts at progress 0.
	Subtasks []string

	// AgentTips seed the Agent Tips section, kept apart from
	// user-authored notes.
	AgentTips []string
}

// TaskFilter selects tasks for ListTasks.
type TaskFilter struct {
	// Project limits the scan to one project's tasks/ directory.
	Project string

	// IncludeArchived also scans the archive zone.
	IncludeArchived bool

	// Fields filters on header values: exact equality for every key
	// except "tags", which matches when any requested tag is present.
	Fields map[string]any
}

// CreateTask creates a task file in the project's tasks/ directory and
// returns the minted workspace-wide sequential id. Invalid priority,
// status, or progress values fall back to their defaults (medium, todo,
// 0) rather than failing the create.
func (s *Store) CreateTask(title, projectID string, opts TaskOptions) (string, error) {
	if projectID == "" {
		projectID = "inbox"
	}

	taskDir := safeChild(s.root, "projects", projectID, "tasks")
	if taskDir == "" {
		return "", fmt.Errorf("project %q: %w", projectID, ErrInvalidID)
	}
	if info, err := os.Stat(taskDir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("project %q: %w", projectID, ErrNotFound)
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	counter := s.nextTaskCounter()
	id := taskID(counter)

	priority := opts.Priority
	if !validPriority[priority] {
		priority = "medium"
	}
	status := opts.Status
	if !validStatuses[status] {
		status = "todo"
	}
	progress := opts.Progress
	if progress < 0 || progress > 100 {
		progress = 0
	}

	fields := frontmatter.New()
	fields.Set("id", id)
	fields.Set("title", title)
	fields.Set("project", projectID)
	fields.Set("status", status)
	fields.Set("priority", priority)
	fields.Set("created", todayStr())
	fields.Set("due", opts.Due)
	fields.Set("last_checkin", todayStr())
	fields.Set("tags", tagsOrEmpty(opts.Tags))
	fields.Set("dependencies", tagsOrEmpty(opts.Dependencies))
	fields.Set("progress", progress)

	var parts []string
	desc := opts.Description
	if desc == "" {
		desc = "No description yet."
	}
	parts = append(parts, "## Description\n"+desc)
	if opts.Context != "" {
		parts = append(parts, "## Context\n"+opts.Context)
	}
	if len(opts.Notes) > 0 {
		parts = append(parts, "## Notes\n"+renderBullets(opts.Notes))
	} else {
		parts = append(parts, "## Notes\n")
	}
	if len(opts.Subtasks) > 0 {
		items := make([]Subtask, len(opts.Subtasks))
		for i, t := range opts.Subtasks {
			items[i] = Subtask{Title: t}
		}
		parts = append(parts, sectionSubtasks+"\n"+renderSubtasks(items))
		fields.Set("progress", 0)
	} else {
		parts = append(parts, sectionSubtasks+"\n")
	}
	parts = append(parts, sectionAttachments+"\n")
	if len(opts.AgentTips) > 0 {
		parts = append(parts, sectionAgentTips+"\n"+renderBullets(opts.AgentTips))
	} else {
		parts = append(parts, sectionAgentTips+"\n")
	}

	path := filepath.Join(taskDir, taskFileName(counter))
	if err := s.writeEntity(path, fields, strings.Join(parts, "\n\n")); err != nil {
		return "", err
	}

	s.logger.Printf("created task %q (%s) in project %q", title, id, projectID)
	return id, nil
}

// GetTask finds and reads a task by id, searching active projects first
// and then the archive.
func (s *Store) GetTask(id string) (*Record, error) {
	path := s.findTaskFile(id)
	if path == "" {
		return nil, fmt.Errorf("task %q: %w", id, ErrNotFound)
	}

	fields, body, err := s.readEntity(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task %q: %w", id, err)
	}

	return &Record{
		Fields:   fields,
		Body:     body,
		Path:     path,
		Archived: s.inArchive(path),
	}, nil
}

// UpdateTask merges partial fields into a task's header. Invalid
// status, priority, or progress values are dropped with a warning while
// the rest of the update proceeds. Aliased fields are reconciled before
// the merge, and when the resulting body carries a non-empty checklist
// the progress field is recomputed from it, overriding any progress
// supplied in the same call.
func (s *Store) UpdateTask(id string, updates map[string]any) error {
	path := s.findTaskFile(id)
	if path == "" {
		return fmt.Errorf("task %q: %w", id, ErrNotFound)
	}

	unlock := s.lockPath(path)
	defer unlock()

	fields, body, err := s.readEntity(path)
	if err != nil {
		return fmt.Errorf("failed to read task %q: %w", id, err)
	}

	merged := make(map[string]any, len(updates))
	for k, v := range updates {
		merged[k] = v
	}

	if newBody, ok := merged["body"]; ok {
		delete(merged, "body")
		body = fmt.Sprintf("%v", newBody)
	}

	if v, ok := merged["status"]; ok && !validStatuses[fmt.Sprintf("%v", v)] {
		s.logger.Printf("invalid status %q; ignoring", v)
		delete(merged, "status")
	}
	if v, ok := merged["priority"]; ok && !validPriority[fmt.Sprintf("%v", v)] {
		s.logger.Printf("invalid priority %q; ignoring", v)
		delete(merged, "priority")
	}
	if v, ok := merged["progress"]; ok {
		if p, isInt := asInt(v); !isInt || p < 0 || p > 100 {
			s.logger.Printf("invalid progress %v; ignoring", v)
			delete(merged, "progress")
		}
	}

	syncFieldAliases(merged, fields)

	for k, v := range merged {
		fields.Set(k, v)
	}

	// A non-empty checklist always wins over a directly supplied
	// progress value.
	if subtasks := parseSubtasks(body); len(subtasks) > 0 {
		fields.Set("progress", subtaskProgress(subtasks))
	}

	return s.writeEntity(path, fields, body)
}

// ListTasks scans the selected tasks/ directories and returns each
// decoded task, enriched with a thumbnail (first image link in the
// body, basename only) and checklist counts when present. Results are
// ordered by project slug, then task filename.
func (s *Store) ListTasks(filter TaskFilter) ([]*Record, error) {
	var records []*Record

	for _, dir := range s.taskDirs(filter.Project, filter.IncludeArchived) {
		matches, err := filepath.Glob(filepath.Join(dir, "task-*.md"))
		if err != nil {
			continue
		}
		sort.Strings(matches)
		for _, path := range matches {
			fields, body, err := s.readEntity(path)
			if err != nil {
				s.logger.Printf("skipping unreadable task file %s: %v", path, err)
				continue
			}

			rec := &Record{
				Fields:    fields,
				Body:      body,
				Path:      path,
				Archived:  s.inArchive(path),
				Thumbnail: firstImage(body),
			}
			if subtasks := parseSubtasks(body); len(subtasks) > 0 {
				rec.SubtaskCount = len(subtasks)
				for _, st := range subtasks {
					if st.Done {
						rec.SubtaskDone++
					}
				}
			}

			if matchesFilter(rec, filter.Fields) {
				records = append(records, rec)
			}
		}
	}

	return records, nil
}

// ArchiveTask sets a task's status to archived and relocates its file
// under the archive zone's matching project directory, creating that
// directory when needed. The task id survives unchanged. A failure to
// remove the original after a successful copy is logged, not fatal;
// the archived copy stands either way.
func (s *Store) ArchiveTask(id string) error {
	path := s.findTaskFile(id)
	if path == "" {
		return fmt.Errorf("task %q: %w", id, ErrNotFound)
	}

	unlock := s.lockPath(path)
	defer unlock()

	fields, body, err := s.readEntity(path)
	if err != nil {
		return fmt.Errorf("failed to read task %q: %w", id, err)
	}
	fields.Set("status", "archived")

	projectID := fields.GetString("project")
	if projectID == "" {
		projectID = "inbox"
	}
	archiveDir := safeChild(s.root, "archive", projectID, "tasks")
	if archiveDir == "" {
		return fmt.Errorf("project %q in task header: %w", projectID, ErrInvalidID)
	}
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := s.writeEntity(filepath.Join(archiveDir, filepath.Base(path)), fields, body); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		s.logger.Printf("could not remove original task file: %v", err)
	}

	s.logger.Printf("archived task %q", id)
	return nil
}

// MoveTask refiles a task into another active project: the project
// reference (and its legacy alias, when present) is rewritten and the
// file relocated. The id does not change.
func (s *Store) MoveTask(id, targetProjectID string) error {
	path := s.findTaskFile(id)
	if path == "" {
		return fmt.Errorf("task %q: %w", id, ErrNotFound)
	}

	targetDir := safeChild(s.root, "projects", targetProjectID, "tasks")
	if targetDir == "" {
		return fmt.Errorf("project %q: %w", targetProjectID, ErrInvalidID)
	}
	if info, err := os.Stat(targetDir); err != nil || !info.IsDir() {
		return fmt.Errorf("project %q: %w", targetProjectID, ErrNotFound)
	}

	unlock := s.lockPath(path)
	defer unlock()

	fields, body, err := s.readEntity(path)
	if err != nil {
		return fmt.Errorf("failed to read task %q: %w", id, err)
	}

	updates := map[string]any{"project": targetProjectID}
	syncFieldAliases(updates, fields)
	for k, v := range updates {
		fields.Set(k, v)
	}

	if err := s.writeEntity(filepath.Join(targetDir, filepath.Base(path)), fields, body); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		s.logger.Printf("could not remove original task file after move: %v", err)
	}

	s.logger.Printf("moved task %q to project %q", id, targetProjectID)
	return nil
}

// LinkTasks records that taskA depends on taskB. Linking an existing
// dependency is a no-op success; a link that would make the two tasks
// directly depend on each other is rejected.
func (s *Store) LinkTasks(taskA, taskB, relationship string) error {
	rec, err := s.GetTask(taskA)
	if err != nil {
		return err
	}

	deps := rec.Dependencies()
	for _, d := range deps {
		if d == taskB {
			s.logger.Printf("link already exists: %s -> %s", taskA, taskB)
			return nil
		}
	}

	if other, err := s.GetTask(taskB); err == nil {
		for _, d := range other.Dependencies() {
			if d == taskA {
				return fmt.Errorf("%s and %s: %w", taskA, taskB, ErrMutualDependency)
			}
		}
	}

	if relationship != "" && relationship != "depends-on" {
		s.logger.Printf("linking %s -> %s as %q", taskA, taskB, relationship)
	}

	return s.UpdateTask(taskA, map[string]any{"dependencies": append(deps, taskB)})
}

// AddAttachment copies a file into a project's attachments directory
// and returns the attachment reference relative to the project's tasks/
// directory ("../attachments/<name>").
func (s *Store) AddAttachment(projectID, sourcePath, newName string) (string, error) {
	src, err := filepath.Abs(sourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve attachment source: %w", err)
	}
	info, err := os.Stat(src)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("attachment source %q: %w", sourcePath, ErrNotFound)
	}

	attachmentsDir := safeChild(s.root, "projects", projectID, "attachments")
	if attachmentsDir == "" {
		return "", fmt.Errorf("project %q: %w", projectID, ErrInvalidID)
	}
	if err := os.MkdirAll(attachmentsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create attachments directory: %w", err)
	}

	name := newName
	if name == "" {
		name = filepath.Base(src)
	}
	dest := safeChild(attachmentsDir, name)
	if dest == "" {
		return "", fmt.Errorf("attachment name %q: %w", name, ErrInvalidID)
	}

	if err := copyFile(src, dest); err != nil {
		return "", fmt.Errorf("failed to copy attachment: %w", err)
	}

	s.logger.Printf("added attachment %q to project %q", name, projectID)
	return "../attachments/" + name, nil
}

// inArchive reports whether a path lies in the archive zone.
func (s *Store) inArchive(path string) bool {
	return strings.HasPrefix(path, filepath.Join(s.root, "archive")+string(filepath.Separator))
}

// matchesFilter checks a record against header filters: "tags" matches
// when any requested tag is present, everything else on exact equality.
// A filtered key missing from the header never matches.
func matchesFilter(rec *Record, filter map[string]any) bool {
	for key, want := range filter {
		if key == "tags" {
			wantTags := toStringSlice(want)
			have := rec.Tags()
			matched := false
			for _, w := range wantTags {
				for _, h := range have {
					if w == h {
						matched = true
						break
					}
				}
			}
			if !matched {
				return false
			}
			continue
		}

		v, ok := rec.Fields.Get(key)
		if !ok {
			return false
		}
		switch w := want.(type) {
		case string:
			if rec.Fields.GetString(key) != w {
				return false
			}
		case int:
			n, isInt := rec.Fields.GetInt(key)
			if !isInt || n != w {
				return false
			}
		case bool:
			b, isBool := v.(bool)
			if !isBool || b != w {
				return false
			}
		default:
			if fmt.Sprintf("%v", v) != fmt.Sprintf("%v", want) {
				return false
			}
		}
	}
	return true
}

// asInt accepts the integer shapes an update map can carry.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// copyFile copies src to dest, truncating any existing file.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
