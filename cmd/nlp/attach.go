package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var attachCmd = &cobra.Command{
	Use:     "attach PROJECT FILE",
	GroupID: groupEntities,
	Short:   "Copy a file into a project's attachments directory",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")

		s := mustStore()
		ref, err := s.AddAttachment(args[0], args[1], name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Attached to %s: %s\n", args[0], ref)
	},
}

func init() {
	attachCmd.Flags().String("name", "", "Stored file name (default: source basename)")
	rootCmd.AddCommand(attachCmd)
}
