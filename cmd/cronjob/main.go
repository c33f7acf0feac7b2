package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"astroconsult-backend/internal/app"
	"astroconsult-backend/internal/config"
	"astroconsult-backend/internal/jobs"
	"astroconsult-backend/internal/logger"
	"astroconsult-backend/internal/scheduler"
)

var jobNames = []string{
	jobs.JobExpireUnansweredSessions,
	jobs.JobBillActiveSessions,
	jobs.JobCloseAbandonedSessions,
	jobs.JobExpirePendingRecharges,
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:          "cronjob",
		Short:        "Runs the session and recharge maintenance jobs",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.dev.yaml", "Path to configuration file")

	root.AddCommand(&cobra.Command{
		Use:       "run [job|all]",
		Short:     "Run one job, or all of them, once and exit",
		Long:      "Available jobs:\n  " + strings.Join(jobNames, "\n  ") + "\n  all",
		Args:      cobra.ExactArgs(1),
		ValidArgs: append(append([]string{}, jobNames...), "all"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), configPath, func(ctx context.Context, a *app.App, runner *jobs.JobRunner) error {
				// Deliver what the job queues while it runs; drained on exit.
				dispatchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
				done := make(chan struct{})
				go func() {
					a.Dispatcher.Run(dispatchCtx)
					close(done)
				}()
				defer func() {
					cancel()
					<-done
				}()

				logger.Info("Running job once", "job", args[0])
				if args[0] == "all" {
					return runner.RunAll(ctx)
				}
				return runner.Run(ctx, args[0])
			})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "daemon",
		Short: "Run jobs on their cron schedules until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), configPath, func(ctx context.Context, a *app.App, runner *jobs.JobRunner) error {
				go a.Dispatcher.Run(ctx)

				sched, err := scheduler.NewScheduler(ctx, runner)
				if err != nil {
					return err
				}
				sched.Start()
				logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

				<-ctx.Done()
				logger.Info("Shutting down cronjob scheduler...")
				sched.Stop()
				logger.Info("Cronjob scheduler stopped. Goodbye!")
				return nil
			})
		},
	})
	return root
}

func withApp(parent context.Context, configPath string, fn func(ctx context.Context, a *app.App, runner *jobs.JobRunner) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return err
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting AstroConsult cronjob runner...", "log_level", cfg.Log.Level)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	return fn(ctx, a, jobs.NewJobRunner(a.JobServices(), cfg))
}
