package domain

import (
	"testing"
	"time"

	"github.com/smallbiznis/salesengine/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestPeriodFor(t *testing.T) {
	now := time.Date(2024, time.February, 14, 15, 30, 0, 0, time.UTC)

	start, end := PeriodFor(config.CadenceWeekly, now)
	assert.Equal(t, time.Date(2024, time.February, 14, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, time.February, 21, 0, 0, 0, 0, time.UTC), end)

	start, end = PeriodFor(config.CadenceMonthly, now)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), end)

	start, end = PeriodFor(config.CadenceYearly, now)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestParseFeature(t *testing.T) {
	feature, err := ParseFeature(" Sales ")
	assert.NoError(t, err)
	assert.Equal(t, FeatureSales, feature)

	_, err = ParseFeature("payroll")
	assert.ErrorIs(t, err, ErrInvalidFeature)
}
