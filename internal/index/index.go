// Package index provides the SQLite search index for planner workspaces.
//
// The markdown files under projects/ and archive/ stay the source of
// truth; the index is a disposable query cache that can be rebuilt from
// them at any time. It exists so that search, due-date scans, and the
// dashboard's statistics do not have to re-read every task file on each
// request.
//
// The database runs embedded (ncruces/go-sqlite3, no cgo) with WAL mode
// for concurrent readers.
//
// Architecture:
//   - Database file: .nlplanner/index.db
//   - Tables: tasks, projects, deps
//   - Dates are stored as ISO YYYY-MM-DD strings, so lexicographic
//     comparison is date comparison.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/nlplanner/nlplanner/internal/store"
)

// DB wraps the index database connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens the index database at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent
// reads. The caller must Close() when done.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path}

	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Path returns the database file location.
func (db *DB) Path() string {
	return db.path
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the tables and indexes if they do not exist.
// Idempotent, safe to call on every open.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the database schema with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created TEXT,
		color TEXT,
		tags TEXT,  -- JSON array
		archived INTEGER NOT NULL DEFAULT 0,
		path TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		project TEXT NOT NULL DEFAULT 'inbox',
		status TEXT NOT NULL DEFAULT 'todo',
		priority TEXT NOT NULL DEFAULT 'medium',
		created TEXT,
		due TEXT,
		last_checkin TEXT,
		tags TEXT,  -- JSON array
		progress INTEGER NOT NULL DEFAULT 0,
		body TEXT,
		archived INTEGER NOT NULL DEFAULT 0,
		path TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS deps (
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		PRIMARY KEY (from_id, to_id),
		FOREIGN KEY (from_id) REFERENCES tasks(id) ON DELETE CASCADE
	);

	-- Indexes for common queries
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project);
	CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(due);
	CREATE INDEX IF NOT EXISTS idx_tasks_archived ON tasks(archived);

	-- Composite index for the due-date scans
	CREATE INDEX IF NOT EXISTS idx_tasks_due_scan
	    ON tasks(archived, status, due);

	CREATE INDEX IF NOT EXISTS idx_deps_to ON deps(to_id);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

const upsertTaskSQL = `
INSERT INTO tasks (
	id, title, project, status, priority, created,
	due, last_checkin, tags, progress, body, archived, path
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	project = excluded.project,
	status = excluded.status,
	priority = excluded.priority,
	created = excluded.created,
	due = excluded.due,
	last_checkin = excluded.last_checkin,
	tags = excluded.tags,
	progress = excluded.progress,
	body = excluded.body,
	archived = excluded.archived,
	path = excluded.path
`

const upsertProjectSQL = `
INSERT INTO projects (
	id, title, status, created, color, tags, archived, path
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	status = excluded.status,
	created = excluded.created,
	color = excluded.color,
	tags = excluded.tags,
	archived = excluded.archived,
	path = excluded.path
`

// taskArgs flattens a task record into the upsert parameter list.
func taskArgs(rec *store.Record) ([]any, error) {
	tagsJSON, err := json.Marshal(rec.Tags())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}
	return []any{
		rec.ID(),
		rec.Title(),
		rec.Project(),
		rec.Status(),
		rec.Priority(),
		rec.Created(),
		rec.Due(),
		rec.LastCheckin(),
		string(tagsJSON),
		rec.Progress(),
		rec.Body,
		boolToInt(rec.Archived),
		rec.Path,
	}, nil
}

// projectArgs flattens a project record into the upsert parameter list.
func projectArgs(rec *store.Record) ([]any, error) {
	tagsJSON, err := json.Marshal(rec.Tags())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}
	return []any{
		rec.ID(),
		rec.Title(),
		rec.Status(),
		rec.Created(),
		rec.Color(),
		string(tagsJSON),
		boolToInt(rec.Archived),
		rec.Path,
	}, nil
}

// UpsertTask inserts or refreshes one task row, replacing its recorded
// dependencies as well.
func (db *DB) UpsertTask(ctx context.Context, rec *store.Record) error {
	args, err := taskArgs(rec)
	if err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, upsertTaskSQL, args...); err != nil {
		return fmt.Errorf("failed to upsert task %s: %w", rec.ID(), err)
	}
	if err := replaceDeps(ctx, tx, rec); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpsertProject inserts or refreshes one project row.
func (db *DB) UpsertProject(ctx context.Context, rec *store.Record) error {
	args, err := projectArgs(rec)
	if err != nil {
		return err
	}
	if _, err := db.conn.ExecContext(ctx, upsertProjectSQL, args...); err != nil {
		return fmt.Errorf("failed to upsert project %s: %w", rec.ID(), err)
	}
	return nil
}

// DeleteTask removes a task row. Idempotent.
func (db *DB) DeleteTask(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	return nil
}

// DeleteByPath removes whichever row (task or project) is backed by the
// given file. Used when a watcher only knows the path that disappeared.
func (db *DB) DeleteByPath(ctx context.Context, path string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM tasks WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete task row for %s: %w", path, err)
	}
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM projects WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete project row for %s: %w", path, err)
	}
	return nil
}

// Rebuild drops every row and re-indexes the whole workspace from the
// store. Returns the number of projects and tasks indexed.
func (db *DB) Rebuild(ctx context.Context, s *store.Store) (projects, tasks int, err error) {
	projectRecs, err := s.ListProjects(true)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	taskRecs, err := s.ListTasks(store.TaskFilter{IncludeArchived: true})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"deps", "tasks", "projects"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return 0, 0, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, rec := range projectRecs {
		args, err := projectArgs(rec)
		if err != nil {
			return 0, 0, err
		}
		if _, err := tx.ExecContext(ctx, upsertProjectSQL, args...); err != nil {
			return 0, 0, fmt.Errorf("failed to index project %s: %w", rec.ID(), err)
		}
		projects++
	}

	for _, rec := range taskRecs {
		args, err := taskArgs(rec)
		if err != nil {
			return 0, 0, err
		}
		if _, err := tx.ExecContext(ctx, upsertTaskSQL, args...); err != nil {
			return 0, 0, fmt.Errorf("failed to index task %s: %w", rec.ID(), err)
		}
		if err := replaceDeps(ctx, tx, rec); err != nil {
			return 0, 0, err
		}
		tasks++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return projects, tasks, nil
}

// replaceDeps rewrites the dependency rows originating from one task.
func replaceDeps(ctx context.Context, tx *sql.Tx, rec *store.Record) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM deps WHERE from_id = ?`, rec.ID()); err != nil {
		return fmt.Errorf("failed to clear deps for %s: %w", rec.ID(), err)
	}
	for _, dep := range rec.Dependencies() {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO deps (from_id, to_id) VALUES (?, ?)`,
			rec.ID(), dep); err != nil {
			return fmt.Errorf("failed to insert dep %s -> %s: %w", rec.ID(), dep, err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
