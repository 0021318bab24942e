package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// ServeCmd runs the scheduler daemon in the foreground.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler daemon",
	Long: `Run the scheduler daemon in foreground mode.

The daemon polls for due jobs at the configured interval, dispatches each
due job concurrently, and records an execution history entry per run.
It runs until interrupted (Ctrl+C) and finishes in-flight job executions
before exiting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		a, err := buildApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		a.scheduler.Start()

		fmt.Println("quotron daemon started")
		fmt.Printf("  Redis: %s (db %d)\n", a.cfg.Redis.Addr, a.cfg.Redis.DB)
		fmt.Printf("  Poll interval: %v\n", a.cfg.Scheduler.CheckInterval())
		fmt.Printf("  Default lookback: %d days\n", a.cfg.Scheduler.DefaultLookbackDays)
		fmt.Printf("  History retention: %v, %d records per job\n", a.cfg.History.TTL(), a.cfg.History.MaxPerJob)
		fmt.Println("\nPress Ctrl+C to shut down")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		fmt.Println("\nShutting down...")

		// Stop the polling loop first, then wait for dispatched jobs to
		// finish so no execution is cut off mid-run.
		a.scheduler.Stop()

		drainCtx, drainCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer drainCancel()
		if err := a.scheduler.Drain(drainCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: gave up waiting for in-flight jobs: %v\n", err)
		}

		fmt.Println("quotron daemon stopped")
		return nil
	},
}
