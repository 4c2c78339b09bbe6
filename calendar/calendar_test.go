package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestAdjust_ModifiedFollowing(t *testing.T) {
	t.Parallel()

	// Saturday 2025-05-31 rolls forward into June, so it rolls back to Friday.
	assert.Equal(t, d(2025, 5, 30), Adjust(WeekendsOnly, d(2025, 5, 31)))
	// Saturday 2025-03-15 rolls forward to Monday.
	assert.Equal(t, d(2025, 3, 17), Adjust(WeekendsOnly, d(2025, 3, 15)))
}

func TestTargetHolidays(t *testing.T) {
	t.Parallel()

	assert.False(t, IsBusinessDay(TARGET, d(2025, 12, 25)))
	assert.True(t, IsBusinessDay(WeekendsOnly, d(2025, 12, 25)))
	assert.Equal(t, d(2025, 12, 29), AdjustFollowing(TARGET, d(2025, 12, 25)))
}

func TestAddBusinessDays(t *testing.T) {
	t.Parallel()

	assert.Equal(t, d(2025, 3, 18), AddBusinessDays(WeekendsOnly, d(2025, 3, 14), 2))
	assert.Equal(t, d(2025, 3, 14), AddBusinessDays(WeekendsOnly, d(2025, 3, 18), -2))
	assert.Equal(t, 2, BusinessDaysBetween(WeekendsOnly, d(2025, 3, 14), d(2025, 3, 18)))
}

func TestRegisterHolidays(t *testing.T) {
	custom := CalendarID("TEST-REGISTER")
	RegisterHolidays(custom, []time.Time{d(2025, 3, 17)})
	assert.Equal(t, d(2025, 3, 18), Adjust(custom, d(2025, 3, 15)))
}
