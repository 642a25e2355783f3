package store

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/nlplanner/nlplanner/internal/frontmatter"
)

// Subtask is one checklist item in a task's Subtasks section.
type Subtask struct {
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

// GitHub-flavoured markdown checkbox lines.
var subtaskRe = regexp.MustCompile(`(?m)^- \[([ xX])\] (.+)$`)

// parseSubtasks reads the checklist out of the Subtasks section.
// Insertion order is preserved; a missing or empty section yields nil.
func parseSubtasks(body string) []Subtask {
	section, ok := sectionContent(body, sectionSubtasks)
	if !ok {
		return nil
	}
	var items []Subtask
	for _, m := range subtaskRe.FindAllStringSubmatch(section, -1) {
		items = append(items, Subtask{
			Title: strings.TrimSpace(m[2]),
			Done:  m[1] == "x" || m[1] == "X",
		})
	}
	return items
}

// renderSubtasks is the exact inverse of parseSubtasks.
func renderSubtasks(subtasks []Subtask) string {
	if len(subtasks) == 0 {
		return ""
	}
	lines := make([]string, len(subtasks))
	for i, st := range subtasks {
		mark := " "
		if st.Done {
			mark = "x"
		}
		lines[i] = fmt.Sprintf("- [%s] %s", mark, st.Title)
	}
	return strings.Join(lines, "\n")
}

// replaceSubtasksSection rewrites the checklist, inserting the section
// before Attachments when it does not exist yet.
func replaceSubtasksSection(body string, subtasks []Subtask) string {
	return spliceSection(body, sectionSubtasks, renderSubtasks(subtasks), sectionAttachments)
}

// subtaskProgress derives the completion percentage from a checklist.
func subtaskProgress(subtasks []Subtask) int {
	if len(subtasks) == 0 {
		return 0
	}
	done := 0
	for _, st := range subtasks {
		if st.Done {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(subtasks)) * 100))
}

// syncSubtaskMeta recomputes progress from the checklist and advances
// status: todo becomes in-progress once anything is done, and any status
// becomes done when everything is. Status never regresses here, and only
// the checklist path advances it; direct status edits are left alone.
// advanceToDone is false for additive operations, which can start work
// but never finish it.
func syncSubtaskMeta(fields *frontmatter.Fields, subtasks []Subtask, advanceToDone bool) {
	if len(subtasks) == 0 {
		fields.Set("progress", 0)
		return
	}

	done := 0
	for _, st := range subtasks {
		if st.Done {
			done++
		}
	}
	fields.Set("progress", subtaskProgress(subtasks))

	if advanceToDone && done == len(subtasks) {
		fields.Set("status", "done")
	} else if done > 0 && fields.GetString("status") == "todo" {
		fields.Set("status", "in-progress")
	}
}

// Subtasks reads the checklist of a task.
func (s *Store) Subtasks(id string) ([]Subtask, error) {
	rec, err := s.GetTask(id)
	if err != nil {
		return nil, err
	}
	return parseSubtasks(rec.Body), nil
}

// SetSubtasks replaces the task's checklist wholesale. Progress is
// recomputed and status advanced from the submitted list; an empty list
// clears the section and resets progress to zero.
func (s *Store) SetSubtasks(id string, subtasks []Subtask) error {
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

	body = replaceSubtasksSection(body, subtasks)
	syncSubtaskMeta(fields, subtasks, true)

	return s.writeEntity(path, fields, body)
}

// ToggleSubtask flips one checklist item by its zero-based index.
// An out-of-range index aborts without touching the file.
func (s *Store) ToggleSubtask(id string, index int) error {
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

	subtasks := parseSubtasks(body)
	if index < 0 || index >= len(subtasks) {
		return fmt.Errorf("index %d of %d subtasks: %w", index, len(subtasks), ErrSubtaskIndex)
	}

	subtasks[index].Done = !subtasks[index].Done
	body = replaceSubtasksSection(body, subtasks)
	syncSubtaskMeta(fields, subtasks, true)

	return s.writeEntity(path, fields, body)
}

// AddSubtasks appends unchecked items to the checklist, creating the
// section when absent. Progress is recomputed; a task that was todo and
// already has done items moves to in-progress, but adding can never
// complete a task.
func (s *Store) AddSubtasks(id string, titles []string) error {
	if len(titles) == 0 {
		return nil
	}

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

	subtasks := parseSubtasks(body)
	for _, title := range titles {
		subtasks = append(subtasks, Subtask{Title: title})
	}

	body = replaceSubtasksSection(body, subtasks)
	syncSubtaskMeta(fields, subtasks, false)

	return s.writeEntity(path, fields, body)
}
