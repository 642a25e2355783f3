package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nlplanner/nlplanner/internal/frontmatter"
)

// ProjectOptions carries the optional fields of CreateProject.
type ProjectOptions struct {
	Description string
	Tags        []string
	Goals       []string

	// Color is a hex accent colour (e.g. "#84cc16"). Empty picks the
	// next unused palette entry.
	Color string
}

// CreateProject creates a project directory with its README, tasks/ and
// attachments/ subdirectories, and returns the project id (the slug
// derived from name). Creation is idempotent by slug: when the
// directory already exists the existing id is returned unchanged.
func (s *Store) CreateProject(name string, opts ProjectOptions) (string, error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	id := slugify(name)
	if id == "" {
		return "", fmt.Errorf("project name %q: %w", name, ErrInvalidID)
	}
	dir := safeChild(s.root, "projects", id)
	if dir == "" {
		return "", fmt.Errorf("project slug %q: %w", id, ErrInvalidID)
	}

	if _, err := os.Stat(dir); err == nil {
		s.logger.Printf("project directory %q already exists", id)
		return id, nil
	}

	for _, sub := range []string{"tasks", "attachments"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return "", fmt.Errorf("failed to create project %q: %w", id, err)
		}
	}

	color := opts.Color
	if color == "" {
		color = s.nextProjectColor()
	}

	fields := frontmatter.New()
	fields.Set("id", id)
	fields.Set("title", name)
	fields.Set("created", todayStr())
	fields.Set("status", "active")
	fields.Set("tags", tagsOrEmpty(opts.Tags))
	fields.Set("color", color)

	var parts []string
	desc := opts.Description
	if desc == "" {
		desc = "No description yet."
	}
	parts = append(parts, "## Description\n"+desc)
	if len(opts.Goals) > 0 {
		parts = append(parts, "## Goals\n"+renderBullets(opts.Goals))
	}
	parts = append(parts, "## Notes\n")

	if err := s.writeEntity(filepath.Join(dir, "README.md"), fields, strings.Join(parts, "\n\n")); err != nil {
		return "", err
	}

	s.logger.Printf("created project %q (%s)", name, id)
	return id, nil
}

// GetProject reads an active project's header and body. Archived
// projects are not visible here; list with ListProjects(true) instead.
func (s *Store) GetProject(id string) (*Record, error) {
	readme := safeChild(s.root, "projects", id, "README.md")
	if readme == "" {
		return nil, fmt.Errorf("project %q: %w", id, ErrInvalidID)
	}

	fields, body, err := s.readEntity(readme)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("project %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read project %q: %w", id, err)
	}

	return &Record{Fields: fields, Body: body, Path: readme}, nil
}

// ListProjects returns every active project ordered by slug, optionally
// followed by the archive zone's projects (flagged as archived).
func (s *Store) ListProjects(includeArchived bool) ([]*Record, error) {
	var records []*Record

	zones := []struct {
		dir      string
		archived bool
	}{
		{"projects", false},
	}
	if includeArchived {
		zones = append(zones, struct {
			dir      string
			archived bool
		}{"archive", true})
	}

	for _, zone := range zones {
		readmes, err := filepath.Glob(filepath.Join(s.root, zone.dir, "*", "README.md"))
		if err != nil {
			continue
		}
		sort.Strings(readmes)
		for _, readme := range readmes {
			fields, body, err := s.readEntity(readme)
			if err != nil {
				s.logger.Printf("skipping unreadable project file %s: %v", readme, err)
				continue
			}
			records = append(records, &Record{
				Fields:   fields,
				Body:     body,
				Path:     readme,
				Archived: zone.archived,
			})
		}
	}

	return records, nil
}

// UpdateProject merges partial fields into a project's header. The
// header is an open mapping, so unknown keys are stored verbatim. A
// "body" key replaces the markdown body wholesale instead of touching
// the header.
func (s *Store) UpdateProject(id string, updates map[string]any) error {
	readme := safeChild(s.root, "projects", id, "README.md")
	if readme == "" {
		return fmt.Errorf("project %q: %w", id, ErrInvalidID)
	}

	unlock := s.lockPath(readme)
	defer unlock()

	fields, body, err := s.readEntity(readme)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("project %q: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to read project %q: %w", id, err)
	}

	merged := make(map[string]any, len(updates))
	for k, v := range updates {
		merged[k] = v
	}
	if newBody, ok := merged["body"]; ok {
		delete(merged, "body")
		body = fmt.Sprintf("%v", newBody)
	}
	for k, v := range merged {
		fields.Set(k, v)
	}

	return s.writeEntity(readme, fields, body)
}

// ArchiveProject moves the whole project directory, tasks and
// attachments included, into the archive zone and marks it archived.
// The project's tasks keep their ids and files.
func (s *Store) ArchiveProject(id string) error {
	src := safeChild(s.root, "projects", id)
	dst := safeChild(s.root, "archive", id)
	if src == "" || dst == "" {
		return fmt.Errorf("project %q: %w", id, ErrInvalidID)
	}

	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("project %q: %w", id, ErrNotFound)
	}

	readme := filepath.Join(src, "README.md")
	unlock := s.lockPath(readme)
	defer unlock()

	if err := os.MkdirAll(filepath.Join(s.root, "archive"), 0755); err != nil {
		return fmt.Errorf("failed to create archive zone: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to archive project %q: %w", id, err)
	}

	archivedReadme := filepath.Join(dst, "README.md")
	fields, body, err := s.readEntity(archivedReadme)
	if err != nil {
		s.logger.Printf("archived project %q but could not update status: %v", id, err)
		return nil
	}
	fields.Set("status", "archived")
	if err := s.writeEntity(archivedReadme, fields, body); err != nil {
		s.logger.Printf("archived project %q but could not update status: %v", id, err)
	}

	s.logger.Printf("archived project %q", id)
	return nil
}

// tagsOrEmpty keeps created headers carrying an explicit empty list
// rather than a null.
func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
