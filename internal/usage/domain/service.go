package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Feature string

const (
	FeatureInvoices Feature = "invoices"
	FeatureExpenses Feature = "expenses"
	FeatureSales    Feature = "sales"
	FeatureProducts Feature = "products"
)

var Features = []Feature{FeatureInvoices, FeatureExpenses, FeatureSales, FeatureProducts}

func ParseFeature(raw string) (Feature, error) {
	value := Feature(strings.ToLower(strings.TrimSpace(raw)))
	for _, feature := range Features {
		if feature == value {
			return feature, nil
		}
	}
	return "", ErrInvalidFeature
}

type UsageStatus struct {
	Feature          Feature   `json:"feature"`
	OwnerID          string    `json:"owner_id"`
	CurrentCount     int64     `json:"current_count"`
	LimitCount       int64     `json:"limit_count"`
	Unlimited        bool      `json:"unlimited"`
	UsagePercentage  float64   `json:"usage_percentage"`
	LimitReached     bool      `json:"limit_reached"`
	WarningThreshold bool      `json:"warning_threshold"`
	PeriodStart      time.Time `json:"period_start"`
	PeriodEnd        time.Time `json:"period_end"`
}

type ProrationInput struct {
	CurrentPlanPrice    decimal.Decimal
	CurrentDurationDays int
	CurrentEnd          time.Time
	NewPlanPrice        decimal.Decimal
	Now                 time.Time
}

type ProrationQuote struct {
	CurrentPlan      string          `json:"current_plan"`
	NewPlan          string          `json:"new_plan"`
	RemainingDays    int             `json:"remaining_days"`
	CurrentDailyRate decimal.Decimal `json:"current_daily_rate"`
	UnusedAmount     decimal.Decimal `json:"unused_amount"`
	NewPlanPrice     decimal.Decimal `json:"new_plan_price"`
	ProrataAmount    decimal.Decimal `json:"prorata_amount"`
}

type Service interface {
	ResolveBillingOwner(ctx context.Context, userID snowflake.ID) (snowflake.ID, error)
	CheckUsageLimit(ctx context.Context, userID string, feature Feature) (UsageStatus, error)
	IncrementUsage(ctx context.Context, userID string, feature Feature) (UsageStatus, error)
	DecrementUsage(ctx context.Context, userID string, feature Feature) (UsageStatus, error)
	ResetUsageForPlan(ctx context.Context, userID string, planCode string) error
	CalculateProrataUpgrade(ctx context.Context, userID string, newPlan string) (ProrationQuote, error)
	SyncTeamUsage(ctx context.Context, ownerID string) (int, error)
	// RolloverExpired deletes up to limit counters whose period ended before now.
	RolloverExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

var (
	ErrInvalidFeature = errors.New("invalid_feature")
	ErrInvalidUser    = errors.New("invalid_user")
	ErrUnknownPlan    = errors.New("unknown_plan")
	ErrLimitReached   = errors.New("usage_limit_reached")
)
