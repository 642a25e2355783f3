package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/nlplanner/nlplanner/internal/index"
	"github.com/nlplanner/nlplanner/internal/store"
)

// newTestServer starts a dashboard on a random port over a fresh
// workspace and returns the server plus its store for seeding.
func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	s, err := store.NewWithConfig(store.Config{
		Root:   t.TempDir(),
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("NewWithConfig() failed: %v", err)
	}
	if err := s.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.InitSchema(); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}

	server := NewServer(s, db, &Config{
		Port:   0, // Use random available port
		Logger: log.New(io.Discard, "", 0),
	})
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { server.Stop() })

	return server, s
}

// getJSON fetches a URL and decodes the JSON body into out.
func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()

	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer res.Body.Close()

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("Failed to decode %s response: %v", url, err)
		}
	}
	return res
}

func TestServerStartStop(t *testing.T) {
	server, _ := newTestServer(t)

	if !server.Running() {
		t.Error("Running() = false after Start()")
	}
	if server.Addr() == "" {
		t.Fatal("Server address is empty")
	}
	if !strings.HasPrefix(server.URL(), "http://localhost:") {
		t.Errorf("URL() = %q, want http://localhost:<port>", server.URL())
	}

	if err := server.Stop(); err != nil {
		t.Fatalf("Failed to stop server: %v", err)
	}
	if server.Running() {
		t.Error("Running() = true after Stop()")
	}

	// Stopping again is a no-op
	if err := server.Stop(); err != nil {
		t.Errorf("Second Stop() failed: %v", err)
	}
}

func TestAPIStats(t *testing.T) {
	server, s := newTestServer(t)

	if _, err := s.CreateTask("Count me", "", store.TaskOptions{}); err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}
	if _, err := s.CreateTask("Me too", "", store.TaskOptions{Status: "in-progress"}); err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}

	var stats index.Stats
	res := getJSON(t, server.URL()+"/api/stats", &stats)

	if res.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/stats = %d, want 200", res.StatusCode)
	}
	if res.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header on API response")
	}
	if stats.TotalTasks != 2 {
		t.Errorf("TotalTasks = %d, want 2", stats.TotalTasks)
	}
	if stats.TasksByStatus["in-progress"] != 1 {
		t.Errorf("TasksByStatus[in-progress] = %d, want 1", stats.TasksByStatus["in-progress"])
	}
	if stats.TotalProjects != 1 {
		t.Errorf("TotalProjects = %d, want 1 (inbox)", stats.TotalProjects)
	}
}

func TestAPIProjects(t *testing.T) {
	server, s := newTestServer(t)

	if _, err := s.CreateProject("Garden", store.ProjectOptions{}); err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}

	var projects []map[string]interface{}
	res := getJSON(t, server.URL()+"/api/projects", &projects)

	if res.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/projects = %d, want 200", res.StatusCode)
	}
	if len(projects) != 2 {
		t.Fatalf("got %d projects, want 2", len(projects))
	}

	ids := []string{projects[0]["id"].(string), projects[1]["id"].(string)}
	if ids[0] != "garden" || ids[1] != "inbox" {
		t.Errorf("project ids = %v, want [garden inbox]", ids)
	}
}

func TestAPIProjects_IncludeArchived(t *testing.T) {
	server, s := newTestServer(t)

	if _, err := s.CreateProject("Garden", store.ProjectOptions{}); err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}
	if err := s.ArchiveProject("garden"); err != nil {
		t.Fatalf("ArchiveProject() failed: %v", err)
	}

	var active []map[string]interface{}
	getJSON(t, server.URL()+"/api/projects", &active)
	if len(active) != 1 {
		t.Errorf("GET /api/projects returned %d projects, want 1 (inbox)", len(active))
	}

	var all []map[string]interface{}
	getJSON(t, server.URL()+"/api/projects?include_archived=1", &all)
	if len(all) != 2 {
		t.Errorf("GET /api/projects?include_archived=1 returned %d projects, want 2", len(all))
	}
}

func TestAPITasks_Filtering(t *testing.T) {
	server, s := newTestServer(t)

	if _, err := s.CreateProject("Garden", store.ProjectOptions{}); err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}
	if _, err := s.CreateTask("Weed the beds", "garden", store.TaskOptions{}); err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}
	if _, err := s.CreateTask("Inbox chore", "", store.TaskOptions{Status: "in-progress"}); err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}

	var all []map[string]interface{}
	getJSON(t, server.URL()+"/api/tasks", &all)
	if len(all) != 2 {
		t.Errorf("GET /api/tasks returned %d tasks, want 2", len(all))
	}

	var garden []map[string]interface{}
	getJSON(t, server.URL()+"/api/tasks?project=garden", &garden)
	if len(garden) != 1 || garden[0]["title"] != "Weed the beds" {
		t.Errorf("project filter returned %d tasks", len(garden))
	}

	var started []map[string]interface{}
	getJSON(t, server.URL()+"/api/tasks?status=in-progress", &started)
	if len(started) != 1 || started[0]["title"] != "Inbox chore" {
		t.Errorf("status filter returned %d tasks", len(started))
	}
}

func TestAPITask_NotFound(t *testing.T) {
	server, _ := newTestServer(t)

	var body map[string]string
	res := getJSON(t, server.URL()+"/api/task/task-999", &body)

	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("GET /api/task/task-999 = %d, want 404", res.StatusCode)
	}
	if body["error"] != "Task not found" {
		t.Errorf("error = %q, want 'Task not found'", body["error"])
	}
}

func TestAPIProject_NotFound(t *testing.T) {
	server, _ := newTestServer(t)

	var body map[string]string
	res := getJSON(t, server.URL()+"/api/project/nope", &body)

	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("GET /api/project/nope = %d, want 404", res.StatusCode)
	}
	if body["error"] != "Project not found" {
		t.Errorf("error = %q, want 'Project not found'", body["error"])
	}
}

func TestAPISearch(t *testing.T) {
	server, s := newTestServer(t)

	if _, err := s.CreateTask("Fix the leaking tap", "", store.TaskOptions{}); err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}

	var empty []map[string]interface{}
	res := getJSON(t, server.URL()+"/api/search?q=", &empty)
	if res.StatusCode != http.StatusOK || len(empty) != 0 {
		t.Errorf("blank search = %d with %d rows, want 200 with 0", res.StatusCode, len(empty))
	}

	var hits []map[string]interface{}
	getJSON(t, server.URL()+"/api/search?q=leaking", &hits)
	if len(hits) != 1 || hits[0]["title"] != "Fix the leaking tap" {
		t.Errorf("search returned %d rows", len(hits))
	}
}

func TestAPIDueSoonAndOverdue(t *testing.T) {
	server, s := newTestServer(t)

	day := func(offset int) string {
		return time.Now().AddDate(0, 0, offset).Format("2006-01-02")
	}

	if _, err := s.CreateTask("Due tomorrow", "", store.TaskOptions{Due: day(1)}); err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}
	if _, err := s.CreateTask("Late already", "", store.TaskOptions{Due: day(-2)}); err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}
	if _, err := s.CreateTask("Far future", "", store.TaskOptions{Due: day(30)}); err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}

	var due []map[string]interface{}
	getJSON(t, server.URL()+"/api/due-soon", &due)
	if len(due) != 1 || due[0]["title"] != "Due tomorrow" {
		t.Errorf("due-soon returned %d rows", len(due))
	}

	var wide []map[string]interface{}
	getJSON(t, server.URL()+"/api/due-soon?days=60", &wide)
	if len(wide) != 2 {
		t.Errorf("due-soon?days=60 returned %d rows, want 2", len(wide))
	}

	var overdue []map[string]interface{}
	getJSON(t, server.URL()+"/api/overdue", &overdue)
	if len(overdue) != 1 || overdue[0]["title"] != "Late already" {
		t.Errorf("overdue returned %d rows", len(overdue))
	}
}

func TestAPIAttachment(t *testing.T) {
	server, s := newTestServer(t)

	src := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(src, []byte("png bytes"), 0644); err != nil {
		t.Fatalf("Failed to write source file: %v", err)
	}
	if _, err := s.AddAttachment("inbox", src, ""); err != nil {
		t.Fatalf("AddAttachment() failed: %v", err)
	}

	res, err := http.Get(server.URL() + "/api/attachment/inbox/photo.png")
	if err != nil {
		t.Fatalf("GET attachment failed: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("GET attachment = %d, want 200", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if cc := res.Header.Get("Cache-Control"); !strings.Contains(cc, "max-age=300") {
		t.Errorf("Cache-Control = %q, want max-age=300", cc)
	}
	body, _ := io.ReadAll(res.Body)
	if string(body) != "png bytes" {
		t.Errorf("attachment body = %q", body)
	}
}

func TestAPIAttachment_RejectsDotfiles(t *testing.T) {
	server, s := newTestServer(t)

	hidden := filepath.Join(s.Root(), "projects", "inbox", "attachments", ".secret")
	if err := os.MkdirAll(filepath.Dir(hidden), 0755); err != nil {
		t.Fatalf("Failed to create attachments dir: %v", err)
	}
	if err := os.WriteFile(hidden, []byte("keep out"), 0644); err != nil {
		t.Fatalf("Failed to write hidden file: %v", err)
	}

	res, err := http.Get(server.URL() + "/api/attachment/inbox/.secret")
	if err != nil {
		t.Fatalf("GET attachment failed: %v", err)
	}
	res.Body.Close()

	if res.StatusCode != http.StatusNotFound {
		t.Errorf("GET dotfile attachment = %d, want 404", res.StatusCode)
	}
}

func TestStaticIndexPage(t *testing.T) {
	server, _ := newTestServer(t)

	res, err := http.Get(server.URL() + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("GET / = %d, want 200", res.StatusCode)
	}
	body, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(body), "Planner Dashboard") {
		t.Error("index page does not look like the dashboard")
	}
}

func TestWebSocketConnection(t *testing.T) {
	server, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws://" + server.Addr() + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if count := server.ClientCount(); count != 1 {
		t.Errorf("Expected 1 client, got %d", count)
	}

	// Read welcome message
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read welcome message: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	if msg.Type != MessageTypeStats {
		t.Errorf("Expected welcome message type %s, got %s", MessageTypeStats, msg.Type)
	}
}

func TestNotifyChangeBroadcast(t *testing.T) {
	server, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws://" + server.Addr() + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Drain the welcome message
	if _, _, err := conn.Read(ctx); err != nil {
		t.Fatalf("Failed to read welcome message: %v", err)
	}

	server.NotifyChange()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read refresh message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	if msg.Type != MessageTypeRefresh {
		t.Errorf("first broadcast type = %s, want %s", msg.Type, MessageTypeRefresh)
	}

	_, data, err = conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read stats message: %v", err)
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	if msg.Type != MessageTypeStats {
		t.Errorf("second broadcast type = %s, want %s", msg.Type, MessageTypeStats)
	}
}

func TestMultipleClients(t *testing.T) {
	server, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws://" + server.Addr() + "/ws"

	numClients := 3
	for i := 0; i < numClients; i++ {
		conn, _, err := websocket.Dial(ctx, wsURL, nil)
		if err != nil {
			t.Fatalf("Failed to connect client %d: %v", i, err)
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		if _, _, err := conn.Read(ctx); err != nil {
			t.Fatalf("Failed to read welcome message for client %d: %v", i, err)
		}
	}

	if count := server.ClientCount(); count != numClients {
		t.Errorf("Expected %d clients, got %d", numClients, count)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	var health map[string]interface{}
	res := getJSON(t, server.URL()+"/health", &health)

	if res.StatusCode != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200", res.StatusCode)
	}
	if health["status"] != "ok" {
		t.Errorf("status = %v, want ok", health["status"])
	}
	if fmt.Sprintf("%v", health["clients"]) != "0" {
		t.Errorf("clients = %v, want 0", health["clients"])
	}
}
