// Package daemon keeps the search index in step with the workspace's
// markdown files.
//
// The daemon:
// 1. Watches the projects/ and archive/ trees for markdown changes
// 2. Re-indexes changed files after a short debounce
// 3. Periodically rebuilds the whole index as a safety net
// 4. Handles graceful shutdown
//
// Files are the source of truth: the daemon only ever reads markdown
// and writes index rows, never the other way around.
package daemon

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nlplanner/nlplanner/internal/index"
	"github.com/nlplanner/nlplanner/internal/store"
)

// Config holds configuration for the daemon.
type Config struct {
	// RescanInterval is how often to rebuild the full index. The rescan
	// catches anything the watcher missed (editor swap-file dances,
	// changes made while the daemon was starting).
	RescanInterval time.Duration

	// DebounceInterval is how long to wait before processing file
	// changes. This batches rapid saves together.
	DebounceInterval time.Duration

	// Logger for daemon activity
	Logger *log.Logger

	// OnChange, if set, runs after each batch of applied changes.
	// The dashboard uses it to push refresh notifications.
	OnChange func()
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RescanInterval:   5 * time.Minute,
		DebounceInterval: 500 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon watches the workspace and synchronizes the index.
type Daemon struct {
	store  *store.Store
	db     *index.DB
	config *Config

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time // filepath -> timestamp
	changeQueueMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Daemon instance.
//
// Use Start() to begin watching and indexing.
func New(s *store.Store, db *index.DB) (*Daemon, error) {
	return NewWithConfig(s, db, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(s *store.Store, db *index.DB, config *Config) (*Daemon, error) {
	if s == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if db == nil {
		return nil, fmt.Errorf("index cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		store:       s,
		db:          db,
		config:      config,
		watcher:     watcher,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// The daemon will:
// 1. Perform an initial full index rebuild
// 2. Start watching both workspace zones for markdown changes
// 3. Process changes with debouncing
// 4. Rebuild the full index on the rescan interval
//
// This blocks until ctx is cancelled or an error occurs.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	projects, tasks, err := d.db.Rebuild(d.ctx, d.store)
	if err != nil {
		return fmt.Errorf("initial index rebuild failed: %w", err)
	}
	d.config.Logger.Printf("Indexed %d projects, %d tasks", projects, tasks)

	activeDir := filepath.Join(d.store.Root(), "projects")
	archiveDir := filepath.Join(d.store.Root(), "archive")

	if err := d.addWatchTree(activeDir); err != nil {
		return fmt.Errorf("failed to watch projects directory: %w", err)
	}
	if err := d.addWatchTree(archiveDir); err != nil {
		// The archive may not exist yet in half-initialised workspaces
		d.config.Logger.Printf("Warning: not watching archive: %v", err)
	}

	d.config.Logger.Printf("Watching: %s, %s", activeDir, archiveDir)

	d.wg.Add(3)
	go d.watchFileEvents()
	go d.processChangeQueue()
	go d.rescanLoop()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()

	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}

	d.wg.Wait()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// addWatchTree registers the directory and all of its subdirectories
// with the watcher. fsnotify watches are not recursive on their own.
func (d *Daemon) addWatchTree(root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if err := d.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// queueDirContents queues every markdown file already present under a
// newly watched directory. Files written between the directory's
// creation and the watch registration would otherwise be missed.
func (d *Daemon) queueDirContents(root string) {
	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		if filepath.Ext(path) == ".md" {
			d.queueChange(path)
		}
		return nil
	})
}

// watchFileEvents monitors filesystem events and queues changes.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			// New directories need their own watches
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := d.addWatchTree(event.Name); err != nil {
						d.config.Logger.Printf("Error watching new directory %s: %v", event.Name, err)
					}
					d.queueDirContents(event.Name)
					continue
				}
			}

			if filepath.Ext(event.Name) != ".md" {
				continue
			}

			d.config.Logger.Printf("File event: %s %s", event.Op, event.Name)
			d.queueChange(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueChange adds a file to the change queue with debouncing.
func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[path] = time.Now()
}

// processChangeQueue processes queued file changes with debouncing.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.processPendingChanges()
		}
	}
}

// processPendingChanges indexes files that have been queued for long
// enough and fires the OnChange hook if anything was applied.
func (d *Daemon) processPendingChanges() {
	d.changeQueueMu.Lock()

	now := time.Now()
	applied := 0

	for path, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			continue
		}

		if err := d.syncPath(path); err != nil {
			d.config.Logger.Printf("Error indexing %s: %v", path, err)
		} else {
			applied++
		}

		delete(d.changeQueue, path)
	}

	d.changeQueueMu.Unlock()

	if applied > 0 && d.config.OnChange != nil {
		d.config.OnChange()
	}
}

type entityKind int

const (
	kindIgnore entityKind = iota
	kindProject
	kindTask
)

// classify decides what an event path refers to. Project headers are
// README.md files sitting directly inside a zone's project directory;
// task files live in a tasks/ directory. Markdown attachments and any
// other strays are ignored.
func classify(path string) entityKind {
	dir := filepath.Dir(path)
	if filepath.Base(path) == "README.md" {
		zone := filepath.Base(filepath.Dir(dir))
		if zone == "projects" || zone == "archive" {
			return kindProject
		}
		return kindIgnore
	}
	if filepath.Base(dir) == "tasks" {
		return kindTask
	}
	return kindIgnore
}

// syncPath brings the index row for one file up to date with the disk.
func (d *Daemon) syncPath(path string) error {
	kind := classify(path)
	if kind == kindIgnore {
		return nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		d.config.Logger.Printf("Removing index rows for %s", path)
		return d.db.DeleteByPath(d.ctx, path)
	}

	rec, err := d.store.ReadRecord(path)
	if err != nil {
		return err
	}

	switch kind {
	case kindProject:
		return d.db.UpsertProject(d.ctx, rec)
	default:
		return d.db.UpsertTask(d.ctx, rec)
	}
}

// rescanLoop periodically rebuilds the full index.
func (d *Daemon) rescanLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.RescanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			projects, tasks, err := d.db.Rebuild(d.ctx, d.store)
			if err != nil {
				d.config.Logger.Printf("Error during full rescan: %v", err)
				continue
			}
			d.config.Logger.Printf("Rescan indexed %d projects, %d tasks", projects, tasks)
		}
	}
}
