package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nlplanner/nlplanner/internal/daemon"
	"github.com/nlplanner/nlplanner/internal/dashboard"
	"github.com/nlplanner/nlplanner/internal/workspace"
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	GroupID: groupDashboard,
	Short:   "Start the web dashboard and the watcher daemon",
	Long: `Start the dashboard server with a file watcher keeping the index in
sync. Connected browsers refresh live as files change.

The dashboard binds to loopback; --network exposes it on every
interface. --no-watch serves without the watcher, rebuilding the index
only on demand.

Example usage:
  nlp dashboard                  # Port from config (default 8080)
  nlp dashboard --port 9000      # Custom port
  nlp dashboard --network        # Reachable from other machines`,
	Run: runDashboard,
}

func init() {
	dashboardCmd.Flags().IntP("port", "p", 0, "Port to listen on (default: config setting)")
	dashboardCmd.Flags().Bool("network", false, "Bind to 0.0.0.0 instead of loopback")
	dashboardCmd.Flags().Bool("no-watch", false, "Serve without the file watcher")
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) {
	root := mustWorkspace()
	cfg, err := workspace.Load(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	port := cfg.Settings.DashboardPort
	if cmd.Flags().Changed("port") {
		port, _ = cmd.Flags().GetInt("port")
	}
	network, _ := cmd.Flags().GetBool("network")
	noWatch, _ := cmd.Flags().GetBool("no-watch")

	s := mustStore()
	db := mustIndex(root)
	defer func() { _ = db.Close() }()

	logger := newDaemonLogger(root)

	server := dashboard.NewServer(s, db, &dashboard.Config{
		Port:    port,
		Network: network,
		Logger:  logger,
	})
	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start dashboard: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Dashboard running at %s\n", server.URL())
	fmt.Println("Press Ctrl+C to stop.")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if noWatch {
		// No watcher: one upfront rebuild so the index reflects the files
		if _, _, err := db.Rebuild(ctx, s); err != nil {
			logger.Printf("Failed to rebuild index: %v", err)
		}
		<-ctx.Done()
	} else {
		dcfg := daemon.DefaultConfig()
		dcfg.Logger = logger
		dcfg.OnChange = server.NotifyChange

		d, err := daemon.NewWithConfig(s, db, dcfg)
		if err != nil {
			_ = server.Stop()
			fmt.Fprintf(os.Stderr, "Error: failed to create watcher: %v\n", err)
			os.Exit(1)
		}
		if err := d.Start(ctx); err != nil {
			_ = server.Stop()
			fmt.Fprintf(os.Stderr, "Error: watcher failed: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("\nStopping dashboard.")
	if err := server.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		os.Exit(1)
	}
}
