package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	GroupID: groupIndex,
	Short:   "Show workspace statistics as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		root := mustWorkspace()
		s := mustStore()
		db := mustIndex(root)
		defer func() { _ = db.Close() }()

		ctx := context.Background()
		if _, _, err := db.Rebuild(ctx, s); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to rebuild index: %v\n", err)
			os.Exit(1)
		}

		stats, err := db.Stats(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
