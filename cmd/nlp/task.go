package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/nlplanner/nlplanner/internal/store"
	"github.com/nlplanner/nlplanner/internal/ui"
)

var taskCmd = &cobra.Command{
	Use:     "task",
	GroupID: groupEntities,
	Short:   "Manage tasks",
	Long: `Create, list, inspect, update, move, and archive tasks.

A task is a single markdown file under its project's tasks/ directory.
Due dates accept ISO form (2026-09-01) or natural language ("friday",
"in 2 weeks", "next month").`,
}

var taskCreateCmd = &cobra.Command{
	Use:   "create TITLE",
	Short: "Create a new task",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		title := strings.Join(args, " ")
		project, _ := cmd.Flags().GetString("project")
		priority, _ := cmd.Flags().GetString("priority")
		status, _ := cmd.Flags().GetString("status")
		dueRaw, _ := cmd.Flags().GetString("due")
		tags, _ := cmd.Flags().GetStringSlice("tags")
		desc, _ := cmd.Flags().GetString("desc")
		taskContext, _ := cmd.Flags().GetString("context")
		deps, _ := cmd.Flags().GetStringSlice("depends-on")

		due, err := parseDue(dueRaw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		s := mustStore()
		id, err := s.CreateTask(title, project, store.TaskOptions{
			Description:  desc,
			Context:      taskContext,
			Priority:     priority,
			Status:       status,
			Due:          due,
			Tags:         tags,
			Dependencies: deps,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created task: %s\n", id)
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Run: func(cmd *cobra.Command, args []string) {
		project, _ := cmd.Flags().GetString("project")
		status, _ := cmd.Flags().GetString("status")
		priority, _ := cmd.Flags().GetString("priority")
		tag, _ := cmd.Flags().GetString("tag")
		archived, _ := cmd.Flags().GetBool("archived")

		fields := map[string]any{}
		if status != "" {
			fields["status"] = status
		}
		if priority != "" {
			fields["priority"] = priority
		}
		if tag != "" {
			fields["tags"] = []string{tag}
		}

		s := mustStore()
		tasks, err := s.ListTasks(store.TaskFilter{
			Project:         project,
			IncludeArchived: archived,
			Fields:          fields,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
			return
		}
		for _, t := range tasks {
			printTaskLine(t)
		}
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one task's header and body",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := mustStore()
		rec, err := s.GetTask(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s  %s  %s %s\n",
			ui.Accent(rec.ID()),
			rec.Fields.GetString("title"),
			ui.Status(rec.Fields.GetString("status")),
			ui.Priority(rec.Fields.GetString("priority")))
		fmt.Printf("project:  %s\n", rec.Fields.GetString("project"))
		if due := rec.Fields.GetString("due"); due != "" {
			fmt.Printf("due:      %s\n", due)
		}
		if checkin := rec.Fields.GetString("last_checkin"); checkin != "" {
			fmt.Printf("checkin:  %s\n", checkin)
		}
		if tags := rec.Fields.GetStrings("tags"); len(tags) > 0 {
			fmt.Printf("tags:     %s\n", strings.Join(tags, ", "))
		}
		if deps := rec.Dependencies(); len(deps) > 0 {
			fmt.Printf("depends:  %s\n", strings.Join(deps, ", "))
		}
		if progress, ok := rec.Fields.GetInt("progress"); ok && progress > 0 {
			fmt.Printf("progress: %d%%\n", progress)
		}
		if body := strings.TrimSpace(rec.Body); body != "" {
			fmt.Printf("\n%s\n", body)
		}
	},
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update a task's header fields",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		updates := map[string]any{}
		if cmd.Flags().Changed("title") {
			title, _ := cmd.Flags().GetString("title")
			updates["title"] = title
		}
		if cmd.Flags().Changed("status") {
			status, _ := cmd.Flags().GetString("status")
			updates["status"] = status
		}
		if cmd.Flags().Changed("priority") {
			priority, _ := cmd.Flags().GetString("priority")
			updates["priority"] = priority
		}
		if cmd.Flags().Changed("due") {
			dueRaw, _ := cmd.Flags().GetString("due")
			due, err := parseDue(dueRaw)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			updates["due"] = due
		}
		if cmd.Flags().Changed("tags") {
			tags, _ := cmd.Flags().GetStringSlice("tags")
			updates["tags"] = tags
		}
		if len(updates) == 0 {
			fmt.Fprintf(os.Stderr, "Error: nothing to update; pass at least one of --title, --status, --priority, --due, --tags\n")
			os.Exit(1)
		}

		s := mustStore()
		if err := s.UpdateTask(args[0], updates); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated task: %s\n", args[0])
	},
}

var taskArchiveCmd = &cobra.Command{
	Use:   "archive ID",
	Short: "Move a task into its project's archive",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := mustStore()
		if err := s.ArchiveTask(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Archived task: %s\n", args[0])
	},
}

var taskMoveCmd = &cobra.Command{
	Use:   "move ID --to PROJECT",
	Short: "Move a task to another project",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		target, _ := cmd.Flags().GetString("to")
		if target == "" {
			fmt.Fprintf(os.Stderr, "Error: --to is required\n")
			os.Exit(1)
		}

		s := mustStore()
		if err := s.MoveTask(args[0], target); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Moved task %s to %s\n", args[0], target)
	},
}

var taskCheckinCmd = &cobra.Command{
	Use:   "checkin ID",
	Short: "Stamp a task's last_checkin with today",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		today := time.Now().Format("2006-01-02")

		s := mustStore()
		if err := s.UpdateTask(args[0], map[string]any{"last_checkin": today}); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Checked in %s on %s\n", args[0], today)
	},
}

func init() {
	taskCreateCmd.Flags().String("project", "inbox", "Project the task belongs to")
	taskCreateCmd.Flags().String("priority", "", "Priority: low, medium, high")
	taskCreateCmd.Flags().String("status", "", "Status: todo, in-progress, done")
	taskCreateCmd.Flags().String("due", "", "Due date (ISO or natural language)")
	taskCreateCmd.Flags().StringSlice("tags", nil, "Comma-separated tags")
	taskCreateCmd.Flags().String("desc", "", "Description section text")
	taskCreateCmd.Flags().String("context", "", "Context section text")
	taskCreateCmd.Flags().StringSlice("depends-on", nil, "Task ids this task depends on")

	taskListCmd.Flags().String("project", "", "Filter by project ID")
	taskListCmd.Flags().String("status", "", "Filter by status")
	taskListCmd.Flags().String("priority", "", "Filter by priority")
	taskListCmd.Flags().String("tag", "", "Filter by tag")
	taskListCmd.Flags().Bool("archived", false, "Include archived tasks")

	taskUpdateCmd.Flags().String("title", "", "New title")
	taskUpdateCmd.Flags().String("status", "", "New status")
	taskUpdateCmd.Flags().String("priority", "", "New priority")
	taskUpdateCmd.Flags().String("due", "", "New due date (ISO or natural language)")
	taskUpdateCmd.Flags().StringSlice("tags", nil, "Replacement tag list")

	taskMoveCmd.Flags().String("to", "", "Target project ID")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskArchiveCmd)
	taskCmd.AddCommand(taskMoveCmd)
	taskCmd.AddCommand(taskCheckinCmd)
	rootCmd.AddCommand(taskCmd)
}

// parseDue normalises a due date to YYYY-MM-DD. ISO input passes
// through; anything else goes to the natural-language parser.
func parseDue(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if _, err := time.Parse("2006-01-02", raw); err == nil {
		return raw, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	result, err := w.Parse(raw, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to parse due date %q: %w", raw, err)
	}
	if result == nil {
		return "", fmt.Errorf("due date %q not understood; use YYYY-MM-DD or phrases like \"friday\" or \"in 2 weeks\"", raw)
	}
	return result.Time.Format("2006-01-02"), nil
}
