package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/audit"
	"github.com/smallbiznis/salesengine/internal/clock"
	"github.com/smallbiznis/salesengine/internal/config"
	"github.com/smallbiznis/salesengine/internal/consistency"
	"github.com/smallbiznis/salesengine/internal/customer"
	"github.com/smallbiznis/salesengine/internal/invoice"
	"github.com/smallbiznis/salesengine/internal/ledger"
	"github.com/smallbiznis/salesengine/internal/notification"
	"github.com/smallbiznis/salesengine/internal/observability"
	"github.com/smallbiznis/salesengine/internal/paymentmethod"
	"github.com/smallbiznis/salesengine/internal/product"
	"github.com/smallbiznis/salesengine/internal/ratelimit"
	"github.com/smallbiznis/salesengine/internal/receivable"
	"github.com/smallbiznis/salesengine/internal/revenue"
	"github.com/smallbiznis/salesengine/internal/sale"
	"github.com/smallbiznis/salesengine/internal/usage"
	"github.com/smallbiznis/salesengine/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "salesengine",
	Short: "Transactional sales, payment recognition and usage limits",
	Long: `salesengine records sales against inventory, tracks credit and partial
payments, recognizes revenue when a sale is settled and enforces plan usage
limits.

Configuration is read from the environment and an optional .env file. Plan and
aging settings come from billing.yml.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// infraModules opens config, logging, metrics and the database.
func infraModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
	)
}

// domainModules provides every service the commands can reach.
func domainModules() fx.Option {
	return fx.Options(
		audit.Module,
		ledger.Module,
		product.Module,
		customer.Module,
		paymentmethod.Module,
		usage.Module,
		notification.Module,
		ratelimit.Module,
		sale.Module,
		revenue.Module,
		receivable.Module,
		invoice.Module,
		consistency.Module,
	)
}

// RegisterSnowflake builds the id generator. SNOWFLAKE_NODE_ID must differ per
// replica.
func RegisterSnowflake() (*snowflake.Node, error) {
	nodeID := int64(1)
	if raw := strings.TrimSpace(os.Getenv("SNOWFLAKE_NODE_ID")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		nodeID = parsed
	}
	return snowflake.NewNode(nodeID)
}
