package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nlplanner/nlplanner/internal/loadtest"
)

var benchCmd = &cobra.Command{
	Use:     "bench",
	GroupID: groupIndex,
	Short:   "Benchmark index queries against raw directory scans",
	Long: `Seed a throwaway workspace, then run the same read workload twice:
once against the SQLite index and once against the raw directory scan.
Prints latency statistics for both so the index win is measurable on
this machine.

Examples:
  nlp bench
  nlp bench --projects 10 --tasks 100 --readers 25
  nlp bench --json`,
	Run: runBench,
}

func init() {
	benchCmd.Flags().Int("projects", 5, "Number of projects to seed")
	benchCmd.Flags().Int("tasks", 40, "Tasks per seeded project")
	benchCmd.Flags().Int("readers", 10, "Number of concurrent readers")
	benchCmd.Flags().Int("queries", 10, "Queries per reader")
	benchCmd.Flags().Bool("json", false, "Output results as JSON")
	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) {
	projects, _ := cmd.Flags().GetInt("projects")
	tasks, _ := cmd.Flags().GetInt("tasks")
	readers, _ := cmd.Flags().GetInt("readers")
	queries, _ := cmd.Flags().GetInt("queries")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if projects <= 0 {
		fmt.Fprintf(os.Stderr, "Error: --projects must be positive\n")
		os.Exit(1)
	}
	if tasks <= 0 {
		fmt.Fprintf(os.Stderr, "Error: --tasks must be positive\n")
		os.Exit(1)
	}
	if readers <= 0 {
		fmt.Fprintf(os.Stderr, "Error: --readers must be positive\n")
		os.Exit(1)
	}
	if queries <= 0 {
		fmt.Fprintf(os.Stderr, "Error: --queries must be positive\n")
		os.Exit(1)
	}

	tmp, err := os.MkdirTemp("", "nlp-bench-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(tmp)

	if !jsonOutput {
		fmt.Printf("Seeding workspace: %d projects, %d tasks...\n", projects, projects*tasks)
	}

	tw, err := loadtest.CreateTestWorkspace(
		filepath.Join(tmp, "workspace"),
		filepath.Join(tmp, "index.db"),
		projects, tasks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to seed workspace: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = tw.Close() }()

	indexStats, err := tw.RunIndexQueries(readers, queries)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: index benchmark failed: %v\n", err)
		os.Exit(1)
	}
	scanStats, err := tw.RunScanQueries(readers, queries)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: scan benchmark failed: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		outputBenchJSON(tw, indexStats, scanStats, readers, queries)
		return
	}

	fmt.Printf("\n=== Index queries (%d readers, %d queries each) ===\n", readers, queries)
	indexStats.PrintStats()

	fmt.Printf("\n=== Directory scans (%d readers, %d queries each) ===\n", readers, queries)
	scanStats.PrintStats()

	if scanStats.P50 > 0 && indexStats.P50 > 0 {
		ratio := float64(scanStats.P50) / float64(indexStats.P50)
		fmt.Printf("\nMedian speedup: %.1fx\n", ratio)
	}
}

func outputBenchJSON(tw *loadtest.TestWorkspace, indexStats, scanStats *loadtest.LatencyStats, readers, queries int) {
	output := map[string]interface{}{
		"config": map[string]interface{}{
			"projects": len(tw.ProjectIDs),
			"tasks":    tw.TotalTasks,
			"readers":  readers,
			"queries":  queries,
		},
		"index": latencyJSON(indexStats),
		"scan":  latencyJSON(scanStats),
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

func latencyJSON(s *loadtest.LatencyStats) map[string]interface{} {
	return map[string]interface{}{
		"min_us":  s.Min.Microseconds(),
		"p50_us":  s.P50.Microseconds(),
		"mean_us": s.Mean.Microseconds(),
		"p95_us":  s.P95.Microseconds(),
		"p99_us":  s.P99.Microseconds(),
		"max_us":  s.Max.Microseconds(),
		"queries": s.TotalQueries,
		"errors":  s.Errors,
	}
}
