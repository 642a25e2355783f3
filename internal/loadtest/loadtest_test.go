package loadtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nlplanner/nlplanner/internal/index"
	"github.com/nlplanner/nlplanner/internal/store"
)

func createWorkspace(t testing.TB, numProjects, tasksPerProject int) *TestWorkspace {
	t.Helper()

	root := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "index.db")

	tw, err := CreateTestWorkspace(root, dbPath, numProjects, tasksPerProject)
	if err != nil {
		t.Fatalf("Failed to create test workspace: %v", err)
	}
	t.Cleanup(func() {
		if err := tw.Close(); err != nil {
			t.Errorf("Failed to close workspace: %v", err)
		}
	})
	return tw
}

// TestCreateTestWorkspace verifies that seeding produces the expected files
// and index rows.
func TestCreateTestWorkspace(t *testing.T) {
	tw := createWorkspace(t, 3, 8)

	if len(tw.ProjectIDs) != 3 {
		t.Errorf("Expected 3 projects, got %d", len(tw.ProjectIDs))
	}
	if tw.TotalTasks != 24 {
		t.Errorf("Expected 24 tasks, got %d", tw.TotalTasks)
	}

	// Seeded tasks must be readable from the files
	tasks, err := tw.Store.ListTasks(store.TaskFilter{})
	if err != nil {
		t.Fatalf("ListTasks() failed: %v", err)
	}
	if len(tasks) != 24 {
		t.Errorf("Store holds %d tasks, want 24", len(tasks))
	}

	// And from the index
	rows, err := tw.DB.ListTasks(index.Filter{})
	if err != nil {
		t.Fatalf("index ListTasks() failed: %v", err)
	}
	if len(rows) != 24 {
		t.Errorf("Index holds %d tasks, want 24", len(rows))
	}

	t.Logf("Workspace stats: %+v", tw.GetStats())
}

// TestDeterministicSeeding verifies that two workspaces seeded with the
// same parameters get identical task attributes.
func TestDeterministicSeeding(t *testing.T) {
	a := createWorkspace(t, 2, 10)
	b := createWorkspace(t, 2, 10)

	tasksA, err := a.Store.ListTasks(store.TaskFilter{})
	if err != nil {
		t.Fatalf("ListTasks() failed: %v", err)
	}
	tasksB, err := b.Store.ListTasks(store.TaskFilter{})
	if err != nil {
		t.Fatalf("ListTasks() failed: %v", err)
	}

	if len(tasksA) != len(tasksB) {
		t.Fatalf("Task counts differ: %d vs %d", len(tasksA), len(tasksB))
	}
	for i := range tasksA {
		for _, key := range []string{"id", "title", "status", "priority", "due"} {
			got, want := tasksA[i].Fields.GetString(key), tasksB[i].Fields.GetString(key)
			if got != want {
				t.Errorf("Task %d field %s differs: %q vs %q", i, key, got, want)
			}
		}
	}
}

// TestIndexQueries_Small verifies basic concurrent query functionality
// against the index.
func TestIndexQueries_Small(t *testing.T) {
	tw := createWorkspace(t, 3, 10)

	stats, err := tw.RunIndexQueries(5, 6)
	if err != nil {
		t.Fatalf("Concurrent index queries failed: %v", err)
	}

	if stats.Errors > 0 {
		t.Errorf("Got %d errors during queries", stats.Errors)
	}
	if stats.TotalQueries != 30 {
		t.Errorf("Expected 30 total queries, got %d", stats.TotalQueries)
	}
	if stats.Min <= 0 {
		t.Errorf("Min latency %v should be positive", stats.Min)
	}
	if stats.Max < stats.Min {
		t.Errorf("Max %v < Min %v", stats.Max, stats.Min)
	}

	stats.PrintStats()
}

// TestScanQueries_Small runs the same workload against the raw
// directory scan.
func TestScanQueries_Small(t *testing.T) {
	tw := createWorkspace(t, 3, 10)

	stats, err := tw.RunScanQueries(5, 6)
	if err != nil {
		t.Fatalf("Concurrent scan queries failed: %v", err)
	}

	if stats.Errors > 0 {
		t.Errorf("Got %d errors during queries", stats.Errors)
	}
	if stats.TotalQueries != 30 {
		t.Errorf("Expected 30 total queries, got %d", stats.TotalQueries)
	}

	stats.PrintStats()
}

// TestComputeLatencyStats verifies the percentile math on a known
// distribution.
func TestComputeLatencyStats(t *testing.T) {
	durations := make([]time.Duration, 10)
	for i := range durations {
		durations[i] = time.Duration(i+1) * time.Millisecond
	}

	stats := computeLatencyStats(durations)

	if stats.TotalQueries != 10 {
		t.Errorf("TotalQueries = %d, want 10", stats.TotalQueries)
	}
	if stats.Min != 1*time.Millisecond {
		t.Errorf("Min = %v, want 1ms", stats.Min)
	}
	if stats.Max != 10*time.Millisecond {
		t.Errorf("Max = %v, want 10ms", stats.Max)
	}
	if stats.Mean != 5500*time.Microsecond {
		t.Errorf("Mean = %v, want 5.5ms", stats.Mean)
	}
	if stats.P50 != 6*time.Millisecond {
		t.Errorf("P50 = %v, want 6ms", stats.P50)
	}
	if stats.P95 != 10*time.Millisecond {
		t.Errorf("P95 = %v, want 10ms", stats.P95)
	}
}

func TestComputeLatencyStats_Empty(t *testing.T) {
	stats := computeLatencyStats(nil)
	if stats.TotalQueries != 0 {
		t.Errorf("TotalQueries = %d, want 0", stats.TotalQueries)
	}
}

// TestIndexVsScan compares the two paths on a larger workspace. The
// index should not lose to the scan once the workspace has a few
// hundred files.
func TestIndexVsScan(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping comparison test in short mode")
	}

	tw := createWorkspace(t, 8, 40)

	indexStats, err := tw.RunIndexQueries(10, 10)
	if err != nil {
		t.Fatalf("Index queries failed: %v", err)
	}
	scanStats, err := tw.RunScanQueries(10, 10)
	if err != nil {
		t.Fatalf("Scan queries failed: %v", err)
	}

	t.Logf("\n=== INDEX (10 readers, 10 queries each) ===")
	indexStats.PrintStats()
	t.Logf("\n=== DIRECTORY SCAN (10 readers, 10 queries each) ===")
	scanStats.PrintStats()

	if indexStats.Errors > 0 || scanStats.Errors > 0 {
		t.Errorf("Got errors: index=%d scan=%d", indexStats.Errors, scanStats.Errors)
	}
}

// Benchmark functions

func BenchmarkIndexListTasks(b *testing.B) {
	tw := createWorkspace(b, 5, 40)
	project := tw.ProjectIDs[0]

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := tw.DB.ListTasks(index.Filter{Project: project})
		if err != nil {
			b.Fatalf("Query failed: %v", err)
		}
	}
}

func BenchmarkScanListTasks(b *testing.B) {
	tw := createWorkspace(b, 5, 40)
	project := tw.ProjectIDs[0]

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := tw.Store.ListTasks(store.TaskFilter{Project: project})
		if err != nil {
			b.Fatalf("Scan failed: %v", err)
		}
	}
}

func BenchmarkSearchTasks(b *testing.B) {
	tw := createWorkspace(b, 5, 40)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := tw.DB.SearchTasks(ctx, "workload")
		if err != nil {
			b.Fatalf("Search failed: %v", err)
		}
	}
}
