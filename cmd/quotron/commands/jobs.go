package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quotron/quotron/schedule"
)

// JobsCmd groups the job management subcommands.
var JobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage scheduled fetch jobs",
	Long: `Manage scheduled fetch jobs.

Job management commands:
  quotron jobs ls                 # List all jobs
  quotron jobs show <id>          # Show job details
  quotron jobs create <name>      # Create a new job
  quotron jobs rm <id>            # Delete a job
  quotron jobs run <id>           # Trigger a job immediately
  quotron jobs start <id>         # Activate a paused job
  quotron jobs stop <id>          # Deactivate a job
  quotron jobs history <id>       # Show execution history`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var jobsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List jobs",
	Long: `List jobs with their schedule and last/next run times.

Examples:
  quotron jobs ls            # All jobs
  quotron jobs ls --active   # Only active jobs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		activeOnly, _ := cmd.Flags().GetBool("active")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			jobs, err := a.service.ListJobs(ctx, activeOnly)
			if err != nil {
				return fmt.Errorf("failed to list jobs: %w", err)
			}
			if len(jobs) == 0 {
				fmt.Println("No jobs found")
				return nil
			}

			fmt.Printf("%-36s %-20s %-7s %-9s %-8s %-17s %s\n", "JOB ID", "NAME", "TIME", "STATUS", "ACTIVE", "NEXT RUN", "ITEMS")
			for _, job := range jobs {
				fmt.Printf("%-36s %-20s %-7s %-9s %-8t %-17s %s\n",
					job.ID,
					truncate(job.Name, 20),
					job.ScheduleTime,
					job.Status,
					job.IsActive,
					formatTime(job.NextRun),
					strings.Join(job.ItemIDs, ","))
			}
			return nil
		})
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show job details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			job, err := a.service.GetJob(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get job: %w", err)
			}

			fmt.Printf("Job:           %s\n", job.ID)
			fmt.Printf("Name:          %s\n", job.Name)
			fmt.Printf("Items:         %s\n", strings.Join(job.ItemIDs, ", "))
			fmt.Printf("Schedule time: %s\n", job.ScheduleTime)
			fmt.Printf("Status:        %s\n", job.Status)
			fmt.Printf("Active:        %t\n", job.IsActive)
			fmt.Printf("Namespace:     %s\n", job.Namespace)
			if job.DurationDays != nil {
				fmt.Printf("Window:        last %d days\n", *job.DurationDays)
			} else if job.StartDate != "" {
				end := job.EndDate
				if end == "" {
					end = "(execution date)"
				}
				fmt.Printf("Window:        %s to %s\n", job.StartDate, end)
			} else {
				fmt.Printf("Window:        default lookback\n")
			}
			fmt.Printf("Created:       %s\n", job.CreatedAt.Format(time.RFC3339))
			fmt.Printf("Last run:      %s\n", formatTime(job.LastRun))
			fmt.Printf("Next run:      %s\n", formatTime(job.NextRun))
			return nil
		})
	},
}

var jobsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a job",
	Long: `Create a scheduled fetch job.

Examples:
  quotron jobs create "Tech daily" --items AAPL,MSFT,GOOG
  quotron jobs create "Close audit" --items SPY --at 22:15 --duration 7
  quotron jobs create "Backfill" --items TSLA --start-date 2024-01-01 --end-date 2024-06-30`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, _ := cmd.Flags().GetStringSlice("items")
		at, _ := cmd.Flags().GetString("at")
		startDate, _ := cmd.Flags().GetString("start-date")
		endDate, _ := cmd.Flags().GetString("end-date")
		duration, _ := cmd.Flags().GetInt("duration")
		namespace, _ := cmd.Flags().GetString("namespace")
		inactive, _ := cmd.Flags().GetBool("inactive")

		return withApp(cmd, func(ctx context.Context, a *app) error {
			job := schedule.NewJob(args[0], items)
			if at != "" {
				job.ScheduleTime = at
			}
			job.StartDate = startDate
			job.EndDate = endDate
			if duration > 0 {
				job.DurationDays = &duration
			}
			if namespace != "" {
				job.Namespace = namespace
			}
			if inactive {
				job.IsActive = false
				job.Status = schedule.StatusPaused
			}

			id, err := a.service.CreateJob(ctx, job)
			if err != nil {
				return fmt.Errorf("failed to create job: %w", err)
			}
			fmt.Printf("Created job %s\n", id)
			return nil
		})
	},
}

var jobsRmCmd = &cobra.Command{
	Use:   "rm <job-id>",
	Short: "Delete a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.service.DeleteJob(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete job: %w", err)
			}
			fmt.Printf("Deleted job %s\n", args[0])
			return nil
		})
	},
}

var jobsRunCmd = &cobra.Command{
	Use:   "run <job-id>",
	Short: "Trigger a job immediately",
	Long: `Execute a job right now, outside its schedule.

The run is recorded in the job's execution history with a manual trigger
marker, and the job's last/next run times are updated the same way a
scheduled run would update them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			record, err := a.service.RunJobNow(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to run job: %w", err)
			}
			printExecution(record)
			return nil
		})
	},
}

var jobsStartCmd = &cobra.Command{
	Use:   "start <job-id>",
	Short: "Activate a paused job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.service.StartJob(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to start job: %w", err)
			}
			fmt.Printf("Job %s activated\n", args[0])
			return nil
		})
	},
}

var jobsStopCmd = &cobra.Command{
	Use:   "stop <job-id>",
	Short: "Deactivate a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.service.StopJob(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to stop job: %w", err)
			}
			fmt.Printf("Job %s deactivated\n", args[0])
			return nil
		})
	},
}

var jobsHistoryCmd = &cobra.Command{
	Use:   "history <job-id>",
	Short: "Show execution history for a job",
	Long: `Show execution history for a job, newest first.

Examples:
  quotron jobs history <id>
  quotron jobs history <id> --limit 5
  quotron jobs history <id> --status failed`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		statusFilter, _ := cmd.Flags().GetString("status")

		return withApp(cmd, func(ctx context.Context, a *app) error {
			records, err := a.service.JobHistory(ctx, args[0], limit, schedule.ExecutionStatus(statusFilter))
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}
			if len(records) == 0 {
				fmt.Println("No executions found")
				return nil
			}

			fmt.Printf("%-36s %-16s %-20s %-10s %s\n", "EXECUTION ID", "STATUS", "STARTED", "DURATION", "ITEMS OK/TOTAL")
			for _, record := range records {
				fmt.Printf("%-36s %-16s %-20s %-10s %d/%d\n",
					record.ID,
					record.Status,
					record.StartTime.Format("2006-01-02 15:04:05"),
					fmt.Sprintf("%.1fs", record.DurationSeconds),
					len(record.FetchedItems),
					record.TotalItems)
			}
			return nil
		})
	},
}

func init() {
	jobsLsCmd.Flags().Bool("active", false, "Only list active jobs")

	jobsCreateCmd.Flags().StringSlice("items", nil, "Symbols to fetch (comma separated)")
	jobsCreateCmd.Flags().String("at", "", "Daily execution time as HH:MM (default 17:00)")
	jobsCreateCmd.Flags().String("start-date", "", "Fixed range start date (YYYY-MM-DD)")
	jobsCreateCmd.Flags().String("end-date", "", "Fixed range end date (YYYY-MM-DD)")
	jobsCreateCmd.Flags().Int("duration", 0, "Sliding window in days, counted back from each run")
	jobsCreateCmd.Flags().String("namespace", "", "Storage namespace for fetched data")
	jobsCreateCmd.Flags().Bool("inactive", false, "Create the job paused")

	jobsHistoryCmd.Flags().Int("limit", 20, "Maximum number of records to display")
	jobsHistoryCmd.Flags().String("status", "", "Filter by status (success, partial_success, failed)")

	JobsCmd.AddCommand(jobsLsCmd)
	JobsCmd.AddCommand(jobsShowCmd)
	JobsCmd.AddCommand(jobsCreateCmd)
	JobsCmd.AddCommand(jobsRmCmd)
	JobsCmd.AddCommand(jobsRunCmd)
	JobsCmd.AddCommand(jobsStartCmd)
	JobsCmd.AddCommand(jobsStopCmd)
	JobsCmd.AddCommand(jobsHistoryCmd)
}

// withApp wires the components, runs fn, and closes the Redis connection.
func withApp(cmd *cobra.Command, fn func(context.Context, *app) error) error {
	ctx := context.Background()
	a, err := buildApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printExecution(record *schedule.Execution) {
	fmt.Printf("Execution %s finished: %s\n", record.ID, record.Status)
	fmt.Printf("  Fetched: %d/%d items in %.1fs\n", len(record.FetchedItems), record.TotalItems, record.DurationSeconds)
	for _, e := range record.Errors {
		fmt.Printf("  Error: %s\n", e)
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
