package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:     "reindex",
	GroupID: groupIndex,
	Short:   "Rebuild the search index from the files",
	Long: `Drop and repopulate the SQLite index from the markdown files. The
index is a disposable cache; reindex fixes any drift after edits made
while the daemon was not running.`,
	Run: func(cmd *cobra.Command, args []string) {
		root := mustWorkspace()
		s := mustStore()
		db := mustIndex(root)
		defer func() { _ = db.Close() }()

		if _, _, err := db.Rebuild(context.Background(), s); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to rebuild index: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Index rebuilt.")
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
