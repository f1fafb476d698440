package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBillingConfig_IsValid(t *testing.T) {
	require.NoError(t, validateBillingConfig(DefaultBillingConfig()))
}

func TestBucketFor_DefaultEdges(t *testing.T) {
	cfg := DefaultBillingConfig()

	cases := map[int]string{
		-3:  "current",
		0:   "current",
		15:  "current",
		30:  "current",
		31:  "30_days",
		45:  "30_days",
		60:  "30_days",
		61:  "60_days",
		90:  "60_days",
		91:  "90_plus_days",
		100: "90_plus_days",
	}
	for days, want := range cases {
		assert.Equal(t, want, cfg.BucketFor(days), "days=%d", days)
	}
}

func TestFindPlan_CaseInsensitive(t *testing.T) {
	cfg := DefaultBillingConfig()

	plan, ok := cfg.FindPlan(" FREE ")
	require.True(t, ok)
	assert.Equal(t, int64(5), plan.Limits["sales"])

	_, ok = cfg.FindPlan("platinum")
	assert.False(t, ok)
}

func TestValidateBillingConfig_RejectsUnknownDefaultPlan(t *testing.T) {
	cfg := DefaultBillingConfig()
	cfg.DefaultPlan = "missing"
	assert.Error(t, validateBillingConfig(cfg))

	cfg = DefaultBillingConfig()
	cfg.Plans[0].Cadence = "daily"
	assert.Error(t, validateBillingConfig(cfg))
}
