package main

import (
	"github.com/smallbiznis/salesengine/internal/migration"
	"github.com/smallbiznis/salesengine/internal/scheduler"
	"github.com/smallbiznis/salesengine/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background scheduler",
	Long: `serve applies pending migrations, starts the HTTP API and, unless
SCHEDULER_ENABLED=false, runs the overdue invoice and usage rollover jobs in
the same process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		skipMigrate, _ := cmd.Flags().GetBool("skip-migrate")

		opts := []fx.Option{
			infraModules(),
			domainModules(),
			server.Module,
			scheduler.Module,
		}
		if !skipMigrate {
			opts = append(opts, migration.Module)
		}
		app := fx.New(opts...)
		if err := app.Err(); err != nil {
			return err
		}
		app.Run()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("skip-migrate", false, "Do not apply migrations on start")
}
