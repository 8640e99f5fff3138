package subscriptions

import (
	"fmt"
	"time"
)

// EndDate returns when a subscription of plan started at start stops
// granting access. Monthly plans add one calendar month and annual plans one
// calendar year; in both cases the day is clamped to the last day of the
// resulting month, so Jan 31 + 1 month is the end of February.
func EndDate(start time.Time, plan Plan) (time.Time, error) {
	switch plan {
	case PlanBasic, PlanPro:
		return AddMonthsClamped(start, 1), nil
	case PlanAnnual:
		return AddMonthsClamped(start, 12), nil
	default:
		return time.Time{}, fmt.Errorf("unknown plan %q", plan)
	}
}

// AddMonthsClamped adds months to t keeping the time of day and location.
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(target.Year(), target.Month()); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
