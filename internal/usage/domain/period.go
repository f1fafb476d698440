package domain

import (
	"time"

	"github.com/smallbiznis/salesengine/internal/config"
)

// PeriodFor returns the billing period containing now for cadence. Weekly
// periods roll seven days from the start of today; monthly and yearly
// periods follow the calendar.
func PeriodFor(cadence string, now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch cadence {
	case config.CadenceWeekly:
		return today, today.AddDate(0, 0, 7)
	case config.CadenceYearly:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0)
	default:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}
}
