package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetkit/booking/internal/model"
)

func TestRuleSetOrdersWindowsByStartTime(t *testing.T) {
	rs := NewRuleSet([]model.AvailabilityRule{
		rule(1, "14:00", "16:00", 0, nil),
		rule(1, "09:00", "11:00", 0, nil),
		rule(2, "08:00", "12:00", 0, nil),
	})

	mon, err := rs.RulesFor(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, mon, 2)
	assert.Equal(t, "09:00", mon[0].StartTime)
	assert.Equal(t, "14:00", mon[1].StartTime)

	empty, err := rs.RulesFor(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestWindowIntervalConvertsToUTC(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// CET is UTC+1 in January.
	w, err := windowInterval(rule(1, "09:00", "12:30", 0, nil), 2026, time.January, 5, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2026, 1, 5, 11, 30, 0, 0, time.UTC), w.End)
}

func TestDailyCapPicksStrictest(t *testing.T) {
	assert.Equal(t, 0, dailyCap([]model.AvailabilityRule{rule(1, "09:00", "11:00", 0, nil)}))
	assert.Equal(t, 2, dailyCap([]model.AvailabilityRule{
		rule(1, "09:00", "11:00", 0, intPtr(5)),
		rule(1, "13:00", "17:00", 0, intPtr(2)),
		rule(1, "18:00", "20:00", 0, nil),
	}))
}
