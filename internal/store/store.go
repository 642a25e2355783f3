package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/nlplanner/nlplanner/internal/frontmatter"
)

// Config holds the store's construction parameters.
type Config struct {
	// Root is the workspace root directory.
	Root string

	// Logger receives warnings about dropped fields and non-fatal
	// filesystem problems. Defaults to a "[store]" stderr logger.
	Logger *log.Logger
}

// Store reads and mutates the project and task files of one workspace.
type Store struct {
	root   string
	logger *log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// createMu serializes task id minting and project colour
	// allocation, both of which scan before writing.
	createMu sync.Mutex
}

// New creates a store rooted at the given workspace directory.
func New(root string) (*Store, error) {
	return NewWithConfig(Config{Root: root})
}

// NewWithConfig creates a store with explicit configuration.
func NewWithConfig(cfg Config) (*Store, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("workspace root is required")
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}

	return &Store{
		root:   root,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// Root returns the absolute workspace root directory.
func (s *Store) Root() string {
	return s.root
}

// Init seeds the workspace directory structure: the hidden config area,
// the projects/ and archive/ zones, and an "inbox" project for tasks
// that have not been filed anywhere yet. Existing files are left alone.
func (s *Store) Init() error {
	dirs := []string{
		filepath.Join(s.root, ".nlplanner"),
		filepath.Join(s.root, ".nlplanner", "dashboard"),
		filepath.Join(s.root, "projects"),
		filepath.Join(s.root, "projects", "inbox", "tasks"),
		filepath.Join(s.root, "archive"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	readme := filepath.Join(s.root, "projects", "inbox", "README.md")
	if _, err := os.Stat(readme); err == nil {
		return nil
	}

	fields := frontmatter.New()
	fields.Set("id", "inbox")
	fields.Set("title", "Inbox")
	fields.Set("created", todayStr())
	fields.Set("status", "active")
	fields.Set("tags", []string{})
	fields.Set("color", s.nextProjectColor())
	body := "## Description\n" +
		"Default project for uncategorized tasks.\n\n" +
		"## Notes\n" +
		"Tasks here haven't been assigned to a specific project yet."

	if err := s.writeEntity(readme, fields, body); err != nil {
		return fmt.Errorf("failed to create inbox project: %w", err)
	}

	s.logger.Printf("workspace initialized at %s", s.root)
	return nil
}

// lockPath takes the mutex for one entity file and returns its unlock
// function. Locks are created on first use and live for the store's
// lifetime.
func (s *Store) lockPath(path string) func() {
	path = filepath.Clean(path)

	s.mu.Lock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// ReadRecord reads a single entity file (project README or task file)
// into a Record. Callers that already know the file's location, like
// the watcher daemon, use this instead of an id lookup.
func (s *Store) ReadRecord(path string) (*Record, error) {
	fields, body, err := s.readEntity(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("entity %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return &Record{
		Fields:   fields,
		Body:     body,
		Path:     path,
		Archived: s.inArchive(path),
	}, nil
}

// readEntity loads and decodes one entity file.
func (s *Store) readEntity(path string) (*frontmatter.Fields, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	fields, body, err := frontmatter.Decode(string(raw))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return fields, body, nil
}

// writeEntity encodes and writes one entity file, creating parent
// directories as needed.
func (s *Store) writeEntity(path string, fields *frontmatter.Fields, body string) error {
	raw, err := frontmatter.Encode(fields, body)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
