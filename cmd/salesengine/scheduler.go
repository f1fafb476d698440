package main

import (
	"context"
	"time"

	"github.com/smallbiznis/salesengine/internal/config"
	"github.com/smallbiznis/salesengine/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the background jobs without the HTTP API",
	Example: `  # Run forever on SCHEDULER_RUN_INTERVAL
  salesengine scheduler

  # Run every enabled job once and exit
  salesengine scheduler --once`,
	RunE: func(cmd *cobra.Command, args []string) error {
		once, _ := cmd.Flags().GetBool("once")

		if !once {
			app := fx.New(
				infraModules(),
				domainModules(),
				fx.Decorate(func(cfg config.Config) config.Config {
					cfg.Scheduler.Enabled = true
					return cfg
				}),
				scheduler.Module,
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		}

		var sched *scheduler.Scheduler
		app := fx.New(
			infraModules(),
			domainModules(),
			fx.Provide(scheduler.ProvideConfig, scheduler.New),
			fx.Populate(&sched),
		)
		return runOnce(cmd.Context(), app, func(ctx context.Context) error {
			return sched.RunOnce(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(schedulerCmd)

	schedulerCmd.Flags().Bool("once", false, "Run every enabled job once and exit")
}

// runOnce starts app, runs fn and stops app regardless of fn's result.
func runOnce(parent context.Context, app *fx.App, fn func(ctx context.Context) error) error {
	if err := app.Err(); err != nil {
		return err
	}
	if parent == nil {
		parent = context.Background()
	}

	startCtx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	runErr := fn(parent)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}
