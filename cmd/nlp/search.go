package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nlplanner/nlplanner/internal/ui"
)

var searchCmd = &cobra.Command{
	Use:     "search QUERY",
	GroupID: groupIndex,
	Short:   "Search tasks by id, title, body, and tags",
	Long: `Case-insensitive substring search over active tasks. The index is
rebuilt from the files first, so results never lag behind edits made
outside the daemon.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		query := strings.Join(args, " ")

		root := mustWorkspace()
		s := mustStore()
		db := mustIndex(root)
		defer func() { _ = db.Close() }()

		ctx := context.Background()
		if _, _, err := db.Rebuild(ctx, s); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to rebuild index: %v\n", err)
			os.Exit(1)
		}

		results, err := db.SearchTasks(ctx, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if limit > 0 && len(results) > limit {
			results = results[:limit]
		}

		if len(results) == 0 {
			fmt.Println("No results.")
			return
		}
		for _, t := range results {
			fmt.Printf("  %s  %s  %s\n", t.ID, t.Title, ui.Status(t.Status))
		}
	},
}

func init() {
	searchCmd.Flags().Int("limit", 0, "Maximum number of results (0 = all)")
	rootCmd.AddCommand(searchCmd)
}
