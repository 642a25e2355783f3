package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TaskRow is one indexed task. The JSON field names match the shape the
// dashboard serves, including the underscore-prefixed bookkeeping keys.
type TaskRow struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Project     string   `json:"project"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	Created     string   `json:"created,omitempty"`
	Due         string   `json:"due,omitempty"`
	LastCheckin string   `json:"last_checkin,omitempty"`
	Tags        []string `json:"tags"`
	Progress    int      `json:"progress"`
	Body        string   `json:"body,omitempty"`
	Archived    bool     `json:"_archived"`
	Path        string   `json:"_path,omitempty"`
}

// ProjectRow is one indexed project.
type ProjectRow struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Status   string   `json:"status"`
	Created  string   `json:"created,omitempty"`
	Color    string   `json:"color,omitempty"`
	Tags     []string `json:"tags"`
	Archived bool     `json:"_archived"`
	Path     string   `json:"_path,omitempty"`
}

// Stats summarises the indexed workspace.
type Stats struct {
	TotalProjects  int            `json:"total_projects"`
	ActiveProjects int            `json:"active_projects"`
	TotalTasks     int            `json:"total_tasks"`
	TasksByStatus  map[string]int `json:"tasks_by_status"`
	DueSoon        int            `json:"due_soon"`
	Overdue        int            `json:"overdue"`
}

// Filter specifies the criteria for listing indexed tasks.
// Zero values mean "no constraint".
type Filter struct {
	Project         string
	Status          string
	Priority        string
	Tag             string
	IncludeArchived bool
	Limit           int
	Offset          int
}

// ListTasks returns indexed tasks matching the filter, ordered by
// project then id to mirror a directory scan.
func (db *DB) ListTasks(filter Filter) ([]*TaskRow, error) {
	return db.ListTasksContext(context.Background(), filter)
}

// ListTasksContext returns indexed tasks with context support.
func (db *DB) ListTasksContext(ctx context.Context, filter Filter) ([]*TaskRow, error) {
	query := `SELECT DISTINCT t.id, t.title, t.project, t.status, t.priority,
		t.created, t.due, t.last_checkin, t.tags, t.progress, t.archived, t.path
		FROM tasks t`

	var conditions []string
	var args []interface{}

	if filter.Tag != "" {
		query += `, json_each(t.tags)`
		conditions = append(conditions, "json_each.value = ?")
		args = append(args, filter.Tag)
	}
	if !filter.IncludeArchived {
		conditions = append(conditions, "t.archived = 0")
	}
	if filter.Project != "" {
		conditions = append(conditions, "t.project = ?")
		args = append(args, filter.Project)
	}
	if filter.Status != "" {
		conditions = append(conditions, "t.status = ?")
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		conditions = append(conditions, "t.priority = ?")
		args = append(args, filter.Priority)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY t.project, t.id"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	return scanTaskRows(rows)
}

// ListProjects returns indexed projects ordered by id.
func (db *DB) ListProjects(includeArchived bool) ([]*ProjectRow, error) {
	return db.ListProjectsContext(context.Background(), includeArchived)
}

// ListProjectsContext returns indexed projects with context support.
func (db *DB) ListProjectsContext(ctx context.Context, includeArchived bool) ([]*ProjectRow, error) {
	query := `SELECT id, title, status, created, color, tags, archived, path
		FROM projects`
	if !includeArchived {
		query += ` WHERE archived = 0`
	}
	query += ` ORDER BY id`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []*ProjectRow
	for rows.Next() {
		var p ProjectRow
		var created, color, tags sql.NullString
		var archived int
		if err := rows.Scan(&p.ID, &p.Title, &p.Status, &created, &color,
			&tags, &archived, &p.Path); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.Created = created.String
		p.Color = color.String
		p.Tags = decodeTags(tags)
		p.Archived = archived != 0
		projects = append(projects, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return projects, nil
}

// SearchTasks matches the query case-insensitively against task ids,
// titles, bodies, and tags. An empty query returns no results. Archived
// tasks are not searched.
func (db *DB) SearchTasks(ctx context.Context, q string) ([]*TaskRow, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}

	pattern := "%" + escapeLike(q) + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, project, status, priority, created, due,
			last_checkin, tags, progress, archived, path
		FROM tasks
		WHERE archived = 0
			AND (id LIKE ? ESCAPE '\'
				OR title LIKE ? ESCAPE '\'
				OR body LIKE ? ESCAPE '\'
				OR tags LIKE ? ESCAPE '\')
		ORDER BY project, id`,
		pattern, pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search tasks: %w", err)
	}
	defer rows.Close()

	return scanTaskRows(rows)
}

// DueSoon returns active tasks due within the next N days, today
// included, soonest first. Done tasks never count as due.
func (db *DB) DueSoon(ctx context.Context, days int) ([]*TaskRow, error) {
	today := time.Now().Format("2006-01-02")
	horizon := time.Now().AddDate(0, 0, days).Format("2006-01-02")

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, project, status, priority, created, due,
			last_checkin, tags, progress, archived, path
		FROM tasks
		WHERE archived = 0
			AND status NOT IN ('done', 'archived')
			AND due != ''
			AND due >= ?
			AND due <= ?
		ORDER BY due, id`,
		today, horizon)
	if err != nil {
		return nil, fmt.Errorf("failed to query due tasks: %w", err)
	}
	defer rows.Close()

	return scanTaskRows(rows)
}

// Overdue returns active tasks whose due date has passed, oldest first.
func (db *DB) Overdue(ctx context.Context) ([]*TaskRow, error) {
	today := time.Now().Format("2006-01-02")

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, project, status, priority, created, due,
			last_checkin, tags, progress, archived, path
		FROM tasks
		WHERE archived = 0
			AND status NOT IN ('done', 'archived')
			AND due != ''
			AND due < ?
		ORDER BY due, id`,
		today)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue tasks: %w", err)
	}
	defer rows.Close()

	return scanTaskRows(rows)
}

// Dependents returns the ids of tasks that list the given task as a
// dependency.
func (db *DB) Dependents(ctx context.Context, id string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT from_id FROM deps WHERE to_id = ? ORDER BY from_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var from string
		if err := rows.Scan(&from); err != nil {
			return nil, fmt.Errorf("failed to scan dependent: %w", err)
		}
		ids = append(ids, from)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dependents: %w", err)
	}
	return ids, nil
}

// Stats computes workspace statistics from the index.
func (db *DB) Stats(ctx context.Context) (*Stats, error) {
	s := &Stats{TasksByStatus: make(map[string]int)}

	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN archived = 0 AND status = 'active' THEN 1 ELSE 0 END), 0)
		 FROM projects`).Scan(&s.TotalProjects, &s.ActiveProjects)
	if err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM tasks WHERE archived = 0 GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		s.TasksByStatus[status] = count
		s.TotalTasks += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}

	today := time.Now().Format("2006-01-02")
	horizon := time.Now().AddDate(0, 0, 7).Format("2006-01-02")

	err = db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tasks
		WHERE archived = 0
			AND status NOT IN ('done', 'archived')
			AND due != '' AND due >= ? AND due <= ?`,
		today, horizon).Scan(&s.DueSoon)
	if err != nil {
		return nil, fmt.Errorf("failed to count due-soon tasks: %w", err)
	}

	err = db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tasks
		WHERE archived = 0
			AND status NOT IN ('done', 'archived')
			AND due != '' AND due < ?`,
		today).Scan(&s.Overdue)
	if err != nil {
		return nil, fmt.Errorf("failed to count overdue tasks: %w", err)
	}

	return s, nil
}

// scanTaskRows converts database rows into task rows. The column order
// must match the SELECT lists above.
func scanTaskRows(rows *sql.Rows) ([]*TaskRow, error) {
	var tasks []*TaskRow
	for rows.Next() {
		var t TaskRow
		var created, due, lastCheckin, tags sql.NullString
		var archived int

		if err := rows.Scan(&t.ID, &t.Title, &t.Project, &t.Status,
			&t.Priority, &created, &due, &lastCheckin, &tags,
			&t.Progress, &archived, &t.Path); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		t.Created = created.String
		t.Due = due.String
		t.LastCheckin = lastCheckin.String
		t.Tags = decodeTags(tags)
		t.Archived = archived != 0
		tasks = append(tasks, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// decodeTags unpacks the JSON tag array stored in a row. Always returns
// a non-nil slice so JSON payloads carry [] rather than null.
func decodeTags(s sql.NullString) []string {
	tags := []string{}
	if s.Valid && s.String != "" && s.String != "null" {
		if err := json.Unmarshal([]byte(s.String), &tags); err != nil {
			return []string{}
		}
	}
	return tags
}

// escapeLike escapes the SQL LIKE wildcards in a search term.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
