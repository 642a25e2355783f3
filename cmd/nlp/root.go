package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nlplanner/nlplanner/internal/index"
	"github.com/nlplanner/nlplanner/internal/store"
	"github.com/nlplanner/nlplanner/internal/ui"
	"github.com/nlplanner/nlplanner/internal/workspace"
)

// Version is overridden at link time for release builds.
var Version = "dev"

// Command groups for organized help output.
const (
	groupWorkspace = "workspace"
	groupEntities  = "entities"
	groupIndex     = "index"
	groupDashboard = "dashboard"
)

var (
	workspaceFlag string
	noColorFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "nlp",
	Short: "nlp - Markdown-first project and task planner",
	Long: `A local planner that keeps projects and tasks as plain markdown files
with YAML headers. The files are the source of truth; a SQLite index
serves search, statistics, and the dashboard, and can be rebuilt from
the files at any time.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		// No subcommand - show help
		_ = cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColorFlag {
			ui.SetEnabled(false)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "",
		"Workspace root (default: $NLPLANNER_WORKSPACE or nearest .nlplanner)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false,
		"Disable styled output")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupWorkspace, Title: "Workspace:"},
		&cobra.Group{ID: groupEntities, Title: "Projects & Tasks:"},
		&cobra.Group{ID: groupIndex, Title: "Search & Index:"},
		&cobra.Group{ID: groupDashboard, Title: "Dashboard:"},
	)
}

// resolveWorkspace picks the active workspace root: the --workspace
// flag, then $NLPLANNER_WORKSPACE, then the nearest ancestor directory
// holding a .nlplanner marker, then the working directory.
func resolveWorkspace() string {
	if workspaceFlag != "" {
		if abs, err := filepath.Abs(workspaceFlag); err == nil {
			return abs
		}
		return workspaceFlag
	}
	if env := os.Getenv("NLPLANNER_WORKSPACE"); env != "" {
		return env
	}
	if root := workspace.Find(""); root != "" {
		return root
	}
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return wd
}

// mustWorkspace resolves the workspace root and refuses to continue
// when it has not been initialised.
func mustWorkspace() string {
	root := resolveWorkspace()
	info, err := os.Stat(filepath.Join(root, workspace.DirName))
	if err != nil || !info.IsDir() {
		fmt.Fprintf(os.Stderr, "Error: no workspace found at %s\n", root)
		fmt.Fprintf(os.Stderr, "Hint: pass --workspace, set NLPLANNER_WORKSPACE, or run 'nlp init' first\n")
		os.Exit(1)
	}
	return root
}

func mustStore() *store.Store {
	s, err := store.New(mustWorkspace())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return s
}

// mustIndex opens the workspace's index database, creating the schema
// when missing. The caller owns the returned handle.
func mustIndex(root string) *index.DB {
	db, err := index.Open(workspace.IndexPath(root))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open index: %v\n", err)
		os.Exit(1)
	}
	if err := db.InitSchema(); err != nil {
		_ = db.Close()
		fmt.Fprintf(os.Stderr, "Error: failed to initialize index schema: %v\n", err)
		os.Exit(1)
	}
	return db
}

// printTaskLine renders one task as a listing row.
func printTaskLine(rec *store.Record) {
	due := rec.Fields.GetString("due")
	dueStr := ""
	if due != "" {
		dueStr = "  due " + due
	}
	fmt.Printf("  %s %s  %s  %s%s\n",
		ui.Status(rec.Fields.GetString("status")),
		rec.ID(),
		rec.Fields.GetString("title"),
		ui.Priority(rec.Fields.GetString("priority")),
		dueStr)
}

// printProjectLine renders one project as a listing row.
func printProjectLine(rec *store.Record) {
	fmt.Printf("  %s  —  %s  %s\n",
		rec.ID(),
		rec.Fields.GetString("title"),
		ui.Status(rec.Fields.GetString("status")))
}
