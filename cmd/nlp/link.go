package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var linkCmd = &cobra.Command{
	Use:     "link TASK DEPENDS_ON",
	GroupID: groupEntities,
	Short:   "Record that one task depends on another",
	Long: `Record a dependency between two tasks. The link is stored in the
first task's dependencies header field. Linking the same pair twice is
a no-op; a link that would make two tasks depend on each other is
refused.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		relationship, _ := cmd.Flags().GetString("type")

		s := mustStore()
		if err := s.LinkTasks(args[0], args[1], relationship); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Linked %s -> %s\n", args[0], args[1])
	},
}

func init() {
	linkCmd.Flags().String("type", "depends-on", "Relationship type")
	rootCmd.AddCommand(linkCmd)
}
