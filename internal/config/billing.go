package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type BillingConfig struct {
	AgingBuckets          []AgingBucket `mapstructure:"agingBuckets"`
	UsageWarningThreshold float64       `mapstructure:"usageWarningThreshold"`
	DefaultPlan           string        `mapstructure:"defaultPlan"`
	Plans                 []PlanConfig  `mapstructure:"plans"`
}

// AgingBucket covers sales whose age in days is within [MinDays, MaxDays].
// A nil MaxDays is open ended.
type AgingBucket struct {
	Label   string `mapstructure:"label"`
	MinDays int    `mapstructure:"minDays"`
	MaxDays *int   `mapstructure:"maxDays"`
}

func (b AgingBucket) Contains(days int) bool {
	if days < b.MinDays {
		return false
	}
	return b.MaxDays == nil || days <= *b.MaxDays
}

type PlanConfig struct {
	Code         string           `mapstructure:"code"`
	Name         string           `mapstructure:"name"`
	Price        float64          `mapstructure:"price"`
	Cadence      string           `mapstructure:"cadence"`
	DurationDays int              `mapstructure:"durationDays"`
	Limits       map[string]int64 `mapstructure:"limits"`
}

const (
	CadenceWeekly  = "weekly"
	CadenceMonthly = "monthly"
	CadenceYearly  = "yearly"

	UnlimitedUsage int64 = -1
)

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		AgingBuckets: []AgingBucket{
			{Label: "current", MinDays: 0, MaxDays: intPtr(30)},
			{Label: "30_days", MinDays: 31, MaxDays: intPtr(60)},
			{Label: "60_days", MinDays: 61, MaxDays: intPtr(90)},
			{Label: "90_plus_days", MinDays: 91, MaxDays: nil},
		},
		UsageWarningThreshold: 80,
		DefaultPlan:           "free",
		Plans: []PlanConfig{
			{
				Code:         "free",
				Name:         "Free",
				Price:        0,
				Cadence:      CadenceMonthly,
				DurationDays: 30,
				Limits: map[string]int64{
					"invoices": 5,
					"expenses": 5,
					"sales":    5,
					"products": 5,
				},
			},
			{
				Code:         "weekly",
				Name:         "Silver Weekly",
				Price:        1400,
				Cadence:      CadenceWeekly,
				DurationDays: 7,
				Limits: map[string]int64{
					"invoices": 100,
					"expenses": 100,
					"sales":    250,
					"products": 100,
				},
			},
			{
				Code:         "monthly",
				Name:         "Silver Monthly",
				Price:        4500,
				Cadence:      CadenceMonthly,
				DurationDays: 30,
				Limits: map[string]int64{
					"invoices": 450,
					"expenses": 500,
					"sales":    1500,
					"products": 500,
				},
			},
			{
				Code:         "yearly",
				Name:         "Silver Yearly",
				Price:        50000,
				Cadence:      CadenceYearly,
				DurationDays: 365,
				Limits: map[string]int64{
					"invoices": UnlimitedUsage,
					"expenses": UnlimitedUsage,
					"sales":    UnlimitedUsage,
					"products": UnlimitedUsage,
				},
			},
		},
	}
}

func intPtr(v int) *int { return &v }

// FindPlan returns the plan with the given code.
func (c BillingConfig) FindPlan(code string) (PlanConfig, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, plan := range c.Plans {
		if strings.EqualFold(plan.Code, code) {
			return plan, true
		}
	}
	return PlanConfig{}, false
}

// BucketFor returns the label of the first bucket containing days.
func (c BillingConfig) BucketFor(days int) string {
	if days < 0 {
		days = 0
	}
	for _, bucket := range c.AgingBuckets {
		if bucket.Contains(days) {
			return bucket.Label
		}
	}
	return c.AgingBuckets[len(c.AgingBuckets)-1].Label
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

// NewStaticBillingConfigHolder wraps a fixed config without watching files.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/salesengine")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SALESENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		return NewStaticBillingConfigHolder(defaults), nil
	}

	cfg, err := decodeBillingConfig(v, defaults)
	if err != nil {
		return nil, err
	}

	holder := NewStaticBillingConfigHolder(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeBillingConfig(v, defaults)
		if err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func decodeBillingConfig(v *viper.Viper, defaults BillingConfig) (BillingConfig, error) {
	cfg := defaults
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return BillingConfig{}, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return BillingConfig{}, err
	}
	return cfg, nil
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	if len(cfg.AgingBuckets) == 0 {
		return errors.New("billing.agingBuckets cannot be empty")
	}
	if cfg.UsageWarningThreshold <= 0 || cfg.UsageWarningThreshold > 100 {
		return errors.New("billing.usageWarningThreshold must be within (0, 100]")
	}
	if len(cfg.Plans) == 0 {
		return errors.New("billing.plans cannot be empty")
	}
	if _, ok := cfg.FindPlan(cfg.DefaultPlan); !ok {
		return fmt.Errorf("billing.defaultPlan %q is not a configured plan", cfg.DefaultPlan)
	}
	for _, plan := range cfg.Plans {
		if plan.DurationDays <= 0 {
			return fmt.Errorf("billing.plans[%s].durationDays must be positive", plan.Code)
		}
		switch plan.Cadence {
		case CadenceWeekly, CadenceMonthly, CadenceYearly:
		default:
			return fmt.Errorf("billing.plans[%s].cadence %q is not supported", plan.Code, plan.Cadence)
		}
	}
	return nil
}
