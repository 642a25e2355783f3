package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nlplanner/nlplanner/internal/store"
	"github.com/nlplanner/nlplanner/internal/ui"
)

var projectCmd = &cobra.Command{
	Use:     "project",
	GroupID: groupEntities,
	Short:   "Manage projects",
	Long: `Create, list, inspect, update, and archive projects.

A project is a directory under projects/ holding a README.md header
file, a tasks/ directory, and an attachments/ directory. Archiving
moves the whole directory into archive/ with its tasks intact.`,
}

var projectCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a new project",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := strings.Join(args, " ")
		desc, _ := cmd.Flags().GetString("desc")
		tags, _ := cmd.Flags().GetStringSlice("tags")
		goals, _ := cmd.Flags().GetStringArray("goal")
		colour, _ := cmd.Flags().GetString("colour")

		s := mustStore()
		id, err := s.CreateProject(name, store.ProjectOptions{
			Description: desc,
			Tags:        tags,
			Goals:       goals,
			Color:       colour,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created project: %s\n", id)
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Run: func(cmd *cobra.Command, args []string) {
		archived, _ := cmd.Flags().GetBool("archived")

		s := mustStore()
		projects, err := s.ListProjects(archived)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(projects) == 0 {
			fmt.Println("No projects found.")
			return
		}
		for _, p := range projects {
			printProjectLine(p)
		}
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one project's header and body",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := mustStore()
		rec, err := s.GetProject(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s  %s  %s\n",
			ui.Accent(rec.ID()),
			rec.Fields.GetString("title"),
			ui.Status(rec.Fields.GetString("status")))
		if colour := rec.Fields.GetString("color"); colour != "" {
			fmt.Printf("colour:  %s %s\n", ui.Swatch(colour), colour)
		}
		fmt.Printf("created: %s\n", rec.Fields.GetString("created"))
		if tags := rec.Fields.GetStrings("tags"); len(tags) > 0 {
			fmt.Printf("tags:    %s\n", strings.Join(tags, ", "))
		}
		if body := strings.TrimSpace(rec.Body); body != "" {
			fmt.Printf("\n%s\n", body)
		}
	},
}

var projectUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update a project's header fields or body",
	Long: `Update a project's header fields. Only the flags you pass change;
everything else, unknown header keys included, stays as written.
--body-file replaces the whole markdown body below the header.`,
	Args: cobra.ExactArgs(1),
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
		if cmd.Flags().Changed("tags") {
			tags, _ := cmd.Flags().GetStringSlice("tags")
			updates["tags"] = tags
		}
		if cmd.Flags().Changed("colour") {
			colour, _ := cmd.Flags().GetString("colour")
			updates["color"] = colour
		}
		if cmd.Flags().Changed("body-file") {
			path, _ := cmd.Flags().GetString("body-file")
			body, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to read body file: %v\n", err)
				os.Exit(1)
			}
			updates["body"] = string(body)
		}
		if len(updates) == 0 {
			fmt.Fprintf(os.Stderr, "Error: nothing to update; pass at least one of --title, --status, --tags, --colour, --body-file\n")
			os.Exit(1)
		}

		s := mustStore()
		if err := s.UpdateProject(args[0], updates); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated project: %s\n", args[0])
	},
}

var projectArchiveCmd = &cobra.Command{
	Use:   "archive ID",
	Short: "Move a project and its tasks to the archive",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := mustStore()
		if err := s.ArchiveProject(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Archived project: %s\n", args[0])
	},
}

func init() {
	projectCreateCmd.Flags().String("desc", "", "Description section text")
	projectCreateCmd.Flags().StringSlice("tags", nil, "Comma-separated tags")
	projectCreateCmd.Flags().StringArray("goal", nil, "Goal bullet (repeatable)")
	projectCreateCmd.Flags().String("colour", "", "Accent colour hex (default: next free palette entry)")

	projectListCmd.Flags().Bool("archived", false, "Include archived projects")

	projectUpdateCmd.Flags().String("title", "", "New title")
	projectUpdateCmd.Flags().String("status", "", "New status")
	projectUpdateCmd.Flags().StringSlice("tags", nil, "Replacement tag list")
	projectUpdateCmd.Flags().String("colour", "", "New accent colour hex")
	projectUpdateCmd.Flags().String("body-file", "", "File whose contents replace the body")

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectUpdateCmd)
	projectCmd.AddCommand(projectArchiveCmd)
	rootCmd.AddCommand(projectCmd)
}
