package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quantward/featurepipe/internal/scheduler"
	"github.com/quantward/featurepipe/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run and inspect scheduled refresh jobs",
	Long: `Runs the refresh scheduler or inspects its jobs.

Registered jobs:
- commodity_refresh: daily at 6 AM (extract + transform commodities)
- economic_refresh: daily at 6:30 AM (extract + transform indicators)
- income_statement_refresh: Mondays at 7 AM (extract + transform fundamentals)

Subcommands:
  start   - run the scheduler until interrupted
  list    - list registered jobs
  run     - run one job immediately
  status  - show per-job run statistics

Example:
  go run ./cmd/featurepipe scheduler start
  go run ./cmd/featurepipe scheduler run commodity_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Run the scheduler until interrupted",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show per-job run statistics",
		RunE:  showJobStats,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	sched, a, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	sched.Start()

	fmt.Println("Scheduler started")
	fmt.Println("Registered jobs:")
	for _, jobName := range sched.JobNames() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("Shutting down scheduler...")
	sched.Stop()

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, a, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.JobNames() {
		fmt.Printf("  - %s\n", jobName)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	sched, a, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	jobName := args[0]
	fmt.Printf("Running job: %s\n", jobName)
	if err := sched.RunJobNow(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	fmt.Println("Job completed")
	return nil
}

func showJobStats(cmd *cobra.Command, args []string) error {
	sched, a, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	fmt.Println("Job Statistics:")
	fmt.Println()
	for jobName, stat := range sched.Stats() {
		fmt.Printf("%s\n", jobName)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("   Failures: %d\n", stat.FailureCount)
		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}
	return nil
}

func initScheduler() (*scheduler.Scheduler, *app, error) {
	a, err := initApp(context.Background())
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(a.log)

	if err := sched.AddJob(jobs.NewCommodityRefreshJob(a.extractor, a.pipeline, a.log)); err != nil {
		a.close()
		return nil, nil, err
	}
	if err := sched.AddJob(jobs.NewEconomicRefreshJob(a.extractor, a.pipeline, a.log)); err != nil {
		a.close()
		return nil, nil, err
	}
	if err := sched.AddJob(jobs.NewIncomeStatementRefreshJob(a.extractor, a.pipeline, a.cfg.AlphaVantage.Symbols, a.log)); err != nil {
		a.close()
		return nil, nil, err
	}

	return sched, a, nil
}
