package subscriptions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 30, 0, 0, time.UTC)
}

func TestEndDate(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		plan  Plan
		want  time.Time
	}{
		{"basic mid month", date(2024, 3, 15), PlanBasic, date(2024, 4, 15)},
		{"basic jan 31 leap year", date(2024, 1, 31), PlanBasic, date(2024, 2, 29)},
		{"pro jan 31 common year", date(2023, 1, 31), PlanPro, date(2023, 2, 28)},
		{"basic mar 31 to apr 30", date(2024, 3, 31), PlanBasic, date(2024, 4, 30)},
		{"basic dec rolls year", date(2024, 12, 31), PlanBasic, date(2025, 1, 31)},
		{"basic feb 29 keeps day", date(2024, 2, 29), PlanBasic, date(2024, 3, 29)},
		{"annual plain", date(2024, 6, 1), PlanAnnual, date(2025, 6, 1)},
		{"annual from feb 29", date(2024, 2, 29), PlanAnnual, date(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EndDate(tt.start, tt.plan)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestEndDate_UnknownPlan(t *testing.T) {
	_, err := EndDate(date(2024, 1, 1), Plan("LIFETIME"))
	assert.Error(t, err)
}

func TestAddMonthsClamped_KeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*60*60)
	start := time.Date(2024, 1, 31, 23, 15, 0, 0, loc)

	got := AddMonthsClamped(start, 1)

	assert.Equal(t, loc, got.Location())
	assert.Equal(t, time.Date(2024, 2, 29, 23, 15, 0, 0, loc), got)
}

func TestAddMonthsClamped_NeverRollsIntoNextMonth(t *testing.T) {
	for d := 1; d <= 31; d++ {
		start := time.Date(2023, time.January, d, 0, 0, 0, 0, time.UTC)
		got := AddMonthsClamped(start, 1)
		assert.Equal(t, time.February, got.Month(), "start day %d", d)
	}
}
