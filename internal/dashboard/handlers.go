package dashboard

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nlplanner/nlplanner/internal/index"
	"github.com/nlplanner/nlplanner/internal/store"
)

// writeJSON writes a JSON response. Every API response allows
// cross-origin reads so that locally served pages and editor plugins
// can talk to the dashboard.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// rebuildIndex refreshes the index before index-backed queries. Local
// workspaces are small, and rebuilding keeps results honest even when
// no watcher daemon is running.
func (s *Server) rebuildIndex(r *http.Request) error {
	_, _, err := s.db.Rebuild(r.Context(), s.store)
	return err
}

// handleStats returns workspace statistics from a fresh index.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if err := s.rebuildIndex(r); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	stats, err := s.db.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// handleProjects lists projects straight from the store. Archived
// projects join the response with ?include_archived=1.
func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("include_archived") == "1"

	recs, err := s.store.ListProjects(includeArchived)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []*store.Record{}
	}
	s.writeJSON(w, http.StatusOK, recs)
}

// handleTasks lists tasks straight from the store, honouring the
// project, status, and priority query parameters.
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.TaskFilter{Project: q.Get("project")}
	fields := make(map[string]any)
	if status := q.Get("status"); status != "" {
		fields["status"] = status
	}
	if priority := q.Get("priority"); priority != "" {
		fields["priority"] = priority
	}
	if len(fields) > 0 {
		filter.Fields = fields
	}

	recs, err := s.store.ListTasks(filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []*store.Record{}
	}
	s.writeJSON(w, http.StatusOK, recs)
}

// handleSearch searches the index. A blank query returns an empty
// result set without touching the index.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeJSON(w, http.StatusOK, []*index.TaskRow{})
		return
	}

	if err := s.rebuildIndex(r); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rows, err := s.db.SearchTasks(r.Context(), query)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []*index.TaskRow{}
	}
	s.writeJSON(w, http.StatusOK, rows)
}

// handleDueSoon lists tasks due within the requested window
// (default 7 days).
func (s *Server) handleDueSoon(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			days = n
		}
	}

	if err := s.rebuildIndex(r); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rows, err := s.db.DueSoon(r.Context(), days)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []*index.TaskRow{}
	}
	s.writeJSON(w, http.StatusOK, rows)
}

// handleOverdue lists tasks whose due date has passed.
func (s *Server) handleOverdue(w http.ResponseWriter, r *http.Request) {
	if err := s.rebuildIndex(r); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rows, err := s.db.Overdue(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []*index.TaskRow{}
	}
	s.writeJSON(w, http.StatusOK, rows)
}

// handleProject returns one project's header and body.
func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetProject(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
			s.writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// handleTask returns one task, searching both workspace zones.
func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetTask(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
			s.writeError(w, http.StatusNotFound, "Task not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// handleAttachment serves one file from a project's attachments
// directory. Only bare file names are accepted; anything resembling a
// path is rejected before it touches the filesystem.
func (s *Server) handleAttachment(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project")
	name := r.PathValue("file")

	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		s.writeError(w, http.StatusNotFound, "Attachment not found")
		return
	}
	if strings.ContainsAny(projectID, `/\`) || strings.HasPrefix(projectID, ".") {
		s.writeError(w, http.StatusNotFound, "Attachment not found")
		return
	}

	path := filepath.Join(s.store.Root(), "projects", projectID, "attachments", name)
	f, err := os.Open(path)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Attachment not found")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		s.writeError(w, http.StatusNotFound, "Attachment not found")
		return
	}

	ctype := mime.TypeByExtension(filepath.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}

	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "public, max-age=300")

	if _, err := io.Copy(w, f); err != nil {
		s.logger.Printf("Failed to stream attachment %s: %v", path, err)
	}
}
