package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nlplanner/nlplanner/internal/daemon"
	"github.com/nlplanner/nlplanner/internal/workspace"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: groupDashboard,
	Short:   "Run the file watcher in the foreground",
	Long: `Watch the workspace and keep the search index synchronized with the
markdown files. Runs until interrupted. The dashboard command starts
the same watcher itself; run this alone when the index should stay
fresh without serving HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		root := mustWorkspace()
		s := mustStore()
		db := mustIndex(root)
		defer func() { _ = db.Close() }()

		cfg := daemon.DefaultConfig()
		cfg.Logger = newDaemonLogger(root)

		d, err := daemon.NewWithConfig(s, db, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create watcher: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Watching %s\n", root)
		fmt.Println("Press Ctrl+C to stop.")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: watcher failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("\nStopping daemon.")
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

// newDaemonLogger logs to stderr and to a rotated file under the
// workspace's .nlplanner/logs directory.
func newDaemonLogger(root string) *log.Logger {
	logPath := workspace.LogPath(root)
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create log directory: %v\n", err)
		return log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}

	rotator := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
	}
	return log.New(io.MultiWriter(os.Stderr, rotator), "[daemon] ", log.LstdFlags)
}
