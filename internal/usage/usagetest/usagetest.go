// Package usagetest wires a real usage service against a test database.
package usagetest

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesengine/internal/clock"
	"github.com/smallbiznis/salesengine/internal/config"
	"github.com/smallbiznis/salesengine/internal/usage/domain"
	"github.com/smallbiznis/salesengine/internal/usage/repository"
	"github.com/smallbiznis/salesengine/internal/usage/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models lists the tables the usage service needs migrated.
var Models = []any{&domain.FeatureUsage{}, &domain.User{}, &domain.Subscription{}}

func New(db *gorm.DB, node *snowflake.Node, clk clock.Clock) domain.Service {
	return service.New(service.Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Repo:    repository.Provide(),
		Billing: config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		Clock:   clk,
	})
}

// SeedOwner inserts a top-level account and returns its id.
func SeedOwner(t testing.TB, db *gorm.DB, node *snowflake.Node) snowflake.ID {
	t.Helper()
	user := domain.User{ID: node.Generate(), Name: "Owner", Email: "owner@example.com"}
	require.NoError(t, db.Create(&user).Error)
	return user.ID
}

// SeedPlan subscribes owner to plan starting now.
func SeedPlan(t testing.TB, svc domain.Service, owner snowflake.ID, plan string) {
	t.Helper()
	require.NoError(t, svc.ResetUsageForPlan(t.Context(), owner.String(), plan))
}
