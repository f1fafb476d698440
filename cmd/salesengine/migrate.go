package main

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/salesengine/internal/config"
	"github.com/smallbiznis/salesengine/internal/migration"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations",
	Example: `  salesengine migrate
  salesengine migrate --down`,
	RunE: func(cmd *cobra.Command, args []string) error {
		down, _ := cmd.Flags().GetBool("down")

		var (
			conn *gorm.DB
			cfg  config.Config
			log  *zap.Logger
		)
		app := fx.New(
			infraModules(),
			fx.Populate(&conn, &cfg, &log),
			fx.NopLogger,
		)
		return runOnce(cmd.Context(), app, func(context.Context) error {
			if !down {
				if err := migration.Migrate(conn, cfg.DBType); err != nil {
					return err
				}
				log.Info("migration.applied", zap.String("db_type", cfg.DBType))
				return nil
			}

			if !strings.EqualFold(cfg.DBType, "postgres") {
				return errors.New("rollback is only supported on postgres")
			}
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RollbackLast(sqlDB); err != nil {
				return err
			}
			log.Info("migration.rolled_back")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().Bool("down", false, "Roll back the most recent migration")
}
