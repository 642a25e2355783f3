// Package loadtest provides load testing utilities for the workspace
// store and its search index.
//
// The harness seeds a synthetic workspace on disk, indexes it, and
// measures query latency under concurrent readers. Running the same
// workload against the raw directory scan and against the SQLite index
// shows what the index actually buys on a given machine.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/nlplanner/nlplanner/internal/index"
	"github.com/nlplanner/nlplanner/internal/store"
)

// TestWorkspace represents a populated workspace for load testing.
type TestWorkspace struct {
	Store      *store.Store
	DB         *index.DB
	ProjectIDs []string
	TaskIDs    []string
	TotalTasks int
}

// LatencyStats captures performance metrics from load tests.
type LatencyStats struct {
	Min          time.Duration
	Max          time.Duration
	Mean         time.Duration
	P50          time.Duration // Median
	P95          time.Duration
	P99          time.Duration
	TotalQueries int
	Errors       int
	Durations    []time.Duration
}

// CreateTestWorkspace builds a workspace of numProjects projects with
// tasksPerProject tasks each, then indexes it.
//
// Tasks get a realistic spread of statuses, priorities, due dates, and
// tags. Generation is deterministic, so repeated runs measure the same
// workload.
func CreateTestWorkspace(root, dbPath string, numProjects, tasksPerProject int) (*TestWorkspace, error) {
	s, err := store.NewWithConfig(store.Config{
		Root:   root,
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise workspace: %w", err)
	}

	tw := &TestWorkspace{
		Store:      s,
		ProjectIDs: make([]string, 0, numProjects),
		TaskIDs:    make([]string, 0, numProjects*tasksPerProject),
	}

	rng := rand.New(rand.NewSource(42))

	statuses := []string{"todo", "todo", "todo", "in-progress", "in-progress", "done"}
	priorities := []string{"low", "medium", "medium", "medium", "high"}

	for p := 0; p < numProjects; p++ {
		name := fmt.Sprintf("Load Project %02d", p)
		id, err := s.CreateProject(name, store.ProjectOptions{
			Description: "Synthetic project for load testing",
			Tags:        []string{"loadtest"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create project %s: %w", name, err)
		}
		tw.ProjectIDs = append(tw.ProjectIDs, id)

		for i := 0; i < tasksPerProject; i++ {
			opts := store.TaskOptions{
				Description: fmt.Sprintf("Synthetic workload task %d in %s", i, id),
				Status:      statuses[rng.Intn(len(statuses))],
				Priority:    priorities[rng.Intn(len(priorities))],
				Tags:        []string{"loadtest", fmt.Sprintf("batch-%d", i/10)},
			}
			// Roughly a third of tasks carry a due date
			if rng.Intn(3) == 0 {
				offset := rng.Intn(30) - 5
				opts.Due = time.Now().AddDate(0, 0, offset).Format("2006-01-02")
			}

			title := fmt.Sprintf("Load task %02d-%03d", p, i)
			taskID, err := s.CreateTask(title, id, opts)
			if err != nil {
				return nil, fmt.Errorf("failed to create task %s: %w", title, err)
			}
			tw.TaskIDs = append(tw.TaskIDs, taskID)
		}
	}
	tw.TotalTasks = len(tw.TaskIDs)

	db, err := index.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	if err := db.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, _, err := db.Rebuild(context.Background(), s); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to build index: %w", err)
	}
	tw.DB = db

	return tw, nil
}

// Close closes the test workspace's index.
func (tw *TestWorkspace) Close() error {
	if tw.DB != nil {
		return tw.DB.Close()
	}
	return nil
}

// RunIndexQueries simulates N concurrent readers hitting the index.
//
// Each reader performs queriesPerReader queries cycling through task
// listing, search, and due-date scans. Returns aggregated latency
// statistics.
func (tw *TestWorkspace) RunIndexQueries(numReaders, queriesPerReader int) (*LatencyStats, error) {
	return tw.runQueries(numReaders, queriesPerReader, func(ctx context.Context, reader, q int) error {
		switch q % 3 {
		case 0:
			project := tw.ProjectIDs[reader%len(tw.ProjectIDs)]
			_, err := tw.DB.ListTasksContext(ctx, index.Filter{Project: project})
			return err
		case 1:
			_, err := tw.DB.SearchTasks(ctx, "workload")
			return err
		default:
			_, err := tw.DB.DueSoon(ctx, 7)
			return err
		}
	})
}

// RunScanQueries runs the listing workload against the raw directory
// scan instead of the index, for comparison.
func (tw *TestWorkspace) RunScanQueries(numReaders, queriesPerReader int) (*LatencyStats, error) {
	return tw.runQueries(numReaders, queriesPerReader, func(ctx context.Context, reader, q int) error {
		project := tw.ProjectIDs[(reader+q)%len(tw.ProjectIDs)]
		_, err := tw.Store.ListTasks(store.TaskFilter{Project: project})
		return err
	})
}

// runQueries fans out the query function across concurrent readers and
// collects per-query latencies.
func (tw *TestWorkspace) runQueries(numReaders, queriesPerReader int, query func(ctx context.Context, reader, q int) error) (*LatencyStats, error) {
	var wg sync.WaitGroup

	resultsChan := make(chan []time.Duration, numReaders)
	errorsChan := make(chan error, numReaders)

	for i := 0; i < numReaders; i++ {
		wg.Add(1)
		go func(readerID int) {
			defer wg.Done()

			durations := make([]time.Duration, 0, queriesPerReader)
			ctx := context.Background()

			for j := 0; j < queriesPerReader; j++ {
				start := time.Now()
				err := query(ctx, readerID, j)
				elapsed := time.Since(start)

				durations = append(durations, elapsed)

				if err != nil {
					errorsChan <- fmt.Errorf("reader %d query %d failed: %w", readerID, j, err)
					return
				}
			}

			resultsChan <- durations
		}(i)
	}

	wg.Wait()
	close(resultsChan)
	close(errorsChan)

	errorCount := 0
	for err := range errorsChan {
		if err != nil {
			errorCount++
			fmt.Printf("Error: %v\n", err)
		}
	}

	var allDurations []time.Duration
	for durations := range resultsChan {
		allDurations = append(allDurations, durations...)
	}

	if len(allDurations) == 0 {
		return nil, fmt.Errorf("no successful queries completed")
	}

	stats := computeLatencyStats(allDurations)
	stats.Errors = errorCount

	return stats, nil
}

// computeLatencyStats calculates statistics from a slice of durations.
func computeLatencyStats(durations []time.Duration) *LatencyStats {
	if len(durations) == 0 {
		return &LatencyStats{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}
	mean := sum / time.Duration(len(durations))

	p50 := sorted[len(sorted)*50/100]
	p95 := sorted[len(sorted)*95/100]
	p99 := sorted[len(sorted)*99/100]

	return &LatencyStats{
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		Mean:         mean,
		P50:          p50,
		P95:          p95,
		P99:          p99,
		TotalQueries: len(durations),
		Durations:    sorted,
	}
}

// PrintStats formats and prints latency statistics.
func (s *LatencyStats) PrintStats() {
	fmt.Printf("Latency Statistics:\n")
	fmt.Printf("  Total Queries: %d\n", s.TotalQueries)
	fmt.Printf("  Errors:        %d\n", s.Errors)
	fmt.Printf("  Min:           %v\n", s.Min)
	fmt.Printf("  P50 (Median):  %v\n", s.P50)
	fmt.Printf("  Mean:          %v\n", s.Mean)
	fmt.Printf("  P95:           %v\n", s.P95)
	fmt.Printf("  P99:           %v\n", s.P99)
	fmt.Printf("  Max:           %v\n", s.Max)
}

// GetStats returns statistics about the seeded workspace.
func (tw *TestWorkspace) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"projects":    len(tw.ProjectIDs),
		"total_tasks": tw.TotalTasks,
	}
}
