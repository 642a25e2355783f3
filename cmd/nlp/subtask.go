package main

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nlplanner/nlplanner/internal/store"
	"github.com/nlplanner/nlplanner/internal/ui"
)

var subtaskCmd = &cobra.Command{
	Use:     "subtask",
	GroupID: groupEntities,
	Short:   "Manage a task's checklist",
	Long: `Read and edit the checklist under a task's Subtasks section.

Every checklist change recomputes the task's progress percentage and
may advance its status: to in-progress once any item is done, to done
once every item is.`,
}

var subtaskListCmd = &cobra.Command{
	Use:   "list ID",
	Short: "List a task's checklist items",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := mustStore()
		items, err := s.Subtasks(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(items) == 0 {
			fmt.Println("No subtasks.")
			return
		}
		for i, item := range items {
			box := "[ ]"
			if item.Done {
				box = ui.Pass("[x]")
			}
			fmt.Printf("  %d. %s %s\n", i+1, box, item.Title)
		}
	},
}

var subtaskAddCmd = &cobra.Command{
	Use:   "add ID TITLE...",
	Short: "Append unchecked items to a task's checklist",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		s := mustStore()
		titles := args[1:]
		if err := s.AddSubtasks(args[0], titles); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added %d subtask(s) to %s\n", len(titles), args[0])
	},
}

var subtaskToggleCmd = &cobra.Command{
	Use:   "toggle ID INDEX",
	Short: "Flip one checklist item (INDEX as shown by list, starting at 1)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			fmt.Fprintf(os.Stderr, "Error: INDEX must be a number starting at 1\n")
			os.Exit(1)
		}

		s := mustStore()
		if err := s.ToggleSubtask(args[0], n-1); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Toggled subtask %d of %s\n", n, args[0])
	},
}

var subtaskSetCmd = &cobra.Command{
	Use:   "set ID --item \"[x] title\"",
	Short: "Replace the whole checklist",
	Long: `Replace a task's checklist with the given items. Each --item is a
checkbox line without the leading dash: "[x] done title" or
"[ ] open title"; a bare title counts as unchecked. No --item at all
clears the checklist and resets progress to 0.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, _ := cmd.Flags().GetStringArray("item")

		items := make([]store.Subtask, 0, len(raw))
		for _, r := range raw {
			items = append(items, parseSubtaskItem(r))
		}

		s := mustStore()
		if err := s.SetSubtasks(args[0], items); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Replaced subtasks of %s (%d items)\n", args[0], len(items))
	},
}

func init() {
	subtaskSetCmd.Flags().StringArray("item", nil, "Checklist item (repeatable)")

	subtaskCmd.AddCommand(subtaskListCmd)
	subtaskCmd.AddCommand(subtaskAddCmd)
	subtaskCmd.AddCommand(subtaskToggleCmd)
	subtaskCmd.AddCommand(subtaskSetCmd)
	rootCmd.AddCommand(subtaskCmd)
}

var subtaskItemRe = regexp.MustCompile(`^\[([ xX])\]\s*(.+)$`)

// parseSubtaskItem reads "[x] title" / "[ ] title" item syntax; a bare
// string is an unchecked item.
func parseSubtaskItem(raw string) store.Subtask {
	raw = strings.TrimSpace(raw)
	if m := subtaskItemRe.FindStringSubmatch(raw); m != nil {
		return store.Subtask{Title: m[2], Done: m[1] != " "}
	}
	return store.Subtask{Title: raw}
}
