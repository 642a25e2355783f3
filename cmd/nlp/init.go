package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nlplanner/nlplanner/internal/store"
	"github.com/nlplanner/nlplanner/internal/workspace"
)

var initCmd = &cobra.Command{
	Use:     "init [path]",
	GroupID: groupWorkspace,
	Short:   "Initialise a new workspace",
	Long: `Initialise a planner workspace: the projects/ and archive/ zones, the
inbox project, and the .nlplanner configuration directory.

Run interactively on a terminal, init asks for the workspace directory
and an optional first project. Pass a path (or --yes) to skip the
prompts.

Examples:
  nlp init                   # Wizard in the current directory
  nlp init ~/planner         # Initialise ~/planner without prompts
  nlp init --project Garden  # Seed a first project`,
	Args: cobra.MaximumNArgs(1),
	Run:  runInit,
}

func init() {
	initCmd.Flags().String("project", "", "Create a first project after initialising")
	initCmd.Flags().Int("port", 8080, "Dashboard port to record in the config")
	initCmd.Flags().BoolP("yes", "y", false, "Skip the interactive wizard")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) {
	path := resolveWorkspace()
	skipWizard, _ := cmd.Flags().GetBool("yes")
	firstProject, _ := cmd.Flags().GetString("project")
	port, _ := cmd.Flags().GetInt("port")

	if len(args) > 0 {
		path = args[0]
		skipWizard = true
	}

	if !skipWizard && term.IsTerminal(int(os.Stdin.Fd())) {
		confirmed := true
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Workspace directory").
					Description("Projects and tasks live here as markdown files.").
					Value(&path),
				huh.NewInput().
					Title("First project").
					Description("Optional; the inbox is always created.").
					Value(&firstProject),
				huh.NewConfirm().
					Title("Create workspace?").
					Affirmative("Create").
					Negative("Cancel").
					Value(&confirmed),
			),
		)
		if err := form.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !confirmed {
			fmt.Println("Cancelled.")
			return
		}
	}

	abs, err := filepath.Abs(strings.TrimSpace(path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	s, err := store.New(abs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := s.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialise workspace: %v\n", err)
		os.Exit(1)
	}

	cfg := workspace.Default(abs)
	cfg.Settings.DashboardPort = port
	if err := workspace.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to write config: %v\n", err)
		os.Exit(1)
	}

	// Build the initial index so search works before the daemon runs
	db := mustIndex(abs)
	defer func() { _ = db.Close() }()
	if _, _, err := db.Rebuild(context.Background(), s); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to build index: %v\n", err)
	}

	fmt.Printf("Workspace initialised at: %s\n", abs)

	if name := strings.TrimSpace(firstProject); name != "" {
		id, err := s.CreateProject(name, store.ProjectOptions{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create project: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created project: %s\n", id)
	}
}
