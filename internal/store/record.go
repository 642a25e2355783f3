package store

import (
	"encoding/json"

	"github.com/nlplanner/nlplanner/internal/frontmatter"
)

// Record is one decoded entity file: the ordered open header mapping,
// the markdown body, and where it came from. Project and task records
// share the shape; the typed accessors read the well-known keys and
// tolerate anything else the header carries.
type Record struct {
	Fields   *frontmatter.Fields
	Body     string
	Path     string
	Archived bool

	// Listing enrichment, populated by ListTasks.
	Thumbnail    string
	SubtaskCount int
	SubtaskDone  int
}

// ID returns the entity identifier (project slug or task id).
func (r *Record) ID() string { return r.Fields.GetString("id") }

// Title returns the display title.
func (r *Record) Title() string { return r.Fields.GetString("title") }

// Status returns the lifecycle status.
func (r *Record) Status() string { return r.Fields.GetString("status") }

// Priority returns the task priority.
func (r *Record) Priority() string { return r.Fields.GetString("priority") }

// Project returns the owning project slug of a task.
func (r *Record) Project() string { return r.Fields.GetString("project") }

// Created returns the creation date string.
func (r *Record) Created() string { return r.Fields.GetString("created") }

// Due returns the due date string, empty when unset.
func (r *Record) Due() string { return r.Fields.GetString("due") }

// LastCheckin returns the last check-in date string.
func (r *Record) LastCheckin() string { return r.Fields.GetString("last_checkin") }

// Color returns the project accent colour hex string.
func (r *Record) Color() string { return r.Fields.GetString("color") }

// Tags returns the tag list.
func (r *Record) Tags() []string { return r.Fields.GetStrings("tags") }

// Dependencies returns the dependency task ids.
func (r *Record) Dependencies() []string { return r.Fields.GetStrings("dependencies") }

// Progress returns the completion percentage, zero when unset.
func (r *Record) Progress() int {
	p, _ := r.Fields.GetInt("progress")
	return p
}

// MarshalJSON flattens the record for the HTTP layer: header fields at
// the top level plus body, the backing path, the archive flag, and any
// listing enrichment.
func (r *Record) MarshalJSON() ([]byte, error) {
	m := r.Fields.Map()
	m["body"] = r.Body
	m["_path"] = r.Path
	m["_archived"] = r.Archived
	if r.Thumbnail != "" {
		m["thumbnail"] = r.Thumbnail
	}
	if r.SubtaskCount > 0 {
		m["subtask_count"] = r.SubtaskCount
		m["subtask_done"] = r.SubtaskDone
	}
	return json.Marshal(m)
}
