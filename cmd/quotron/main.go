package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quotron/quotron/cmd/quotron/commands"
	"github.com/quotron/quotron/logger"
)

var rootCmd = &cobra.Command{
	Use:   "quotron",
	Short: "Quotron - scheduled market data collection",
	Long: `Quotron - daily market data collection on a schedule.

Quotron manages fetch jobs that pull daily bars for a set of symbols at a
configured time of day and persist the results in Redis, together with an
execution history for each job.

Available commands:
  serve   - Run the scheduler daemon in the foreground
  jobs    - Manage fetch jobs (list, create, run, ...)
  version - Show version information

Examples:
  quotron serve                         # Start the daemon
  quotron jobs ls                       # List all jobs
  quotron jobs create "Tech daily" --items AAPL,MSFT --at 17:30
  quotron jobs run <job-id>             # Trigger a job immediately`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("log-json")
		if err := logger.Initialize(jsonOutput); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: quotron.toml, env QUOTRON_*)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit logs as JSON")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.JobsCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
