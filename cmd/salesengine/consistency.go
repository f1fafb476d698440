package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/bwmarrin/snowflake"
	consistencydomain "github.com/smallbiznis/salesengine/internal/consistency/domain"
	"github.com/smallbiznis/salesengine/internal/ownercontext"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var consistencyCmd = &cobra.Command{
	Use:   "consistency",
	Short: "Check or repair referential and balance integrity for an owner",
}

var consistencyAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Report integrity issues as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConsistency(cmd, func(ctx context.Context, svc consistencydomain.Service, ownerID string) (any, error) {
			return svc.Audit(ctx, ownerID)
		})
	},
}

var consistencyRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Clear dangling references and delete orphan rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConsistency(cmd, func(ctx context.Context, svc consistencydomain.Service, ownerID string) (any, error) {
			return svc.Repair(ctx, ownerID)
		})
	},
}

func init() {
	rootCmd.AddCommand(consistencyCmd)
	consistencyCmd.AddCommand(consistencyAuditCmd, consistencyRepairCmd)

	consistencyCmd.PersistentFlags().String("owner", "", "Owner id to check (required)")
	_ = consistencyCmd.MarkPersistentFlagRequired("owner")
}

func withConsistency(cmd *cobra.Command, fn func(ctx context.Context, svc consistencydomain.Service, ownerID string) (any, error)) error {
	ownerRaw, _ := cmd.Flags().GetString("owner")
	ownerID, err := snowflake.ParseString(strings.TrimSpace(ownerRaw))
	if err != nil {
		return err
	}

	var svc consistencydomain.Service
	app := fx.New(
		infraModules(),
		domainModules(),
		fx.Populate(&svc),
		fx.NopLogger,
	)
	return runOnce(cmd.Context(), app, func(ctx context.Context) error {
		ctx = ownercontext.WithOwnerID(ctx, ownerID)
		result, err := fn(ctx, svc, ownerID.String())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	})
}
