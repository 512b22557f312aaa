package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	min, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9*60+30, min)

	min, err = ParseClock("00:00")
	require.NoError(t, err)
	assert.Equal(t, 0, min)

	for _, bad := range []string{"24:00", "9:30:00", "nine", "", "12:60"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestAvailabilityRuleValidate(t *testing.T) {
	one := 1
	zero := 0
	base := AvailabilityRule{Weekday: 1, StartTime: "09:00", EndTime: "17:00"}

	assert.NoError(t, base.Validate())

	cases := []struct {
		name   string
		mutate func(*AvailabilityRule)
	}{
		{"weekday below range", func(r *AvailabilityRule) { r.Weekday = -1 }},
		{"weekday above range", func(r *AvailabilityRule) { r.Weekday = 7 }},
		{"malformed start", func(r *AvailabilityRule) { r.StartTime = "9am" }},
		{"malformed end", func(r *AvailabilityRule) { r.EndTime = "25:00" }},
		{"start equals end", func(r *AvailabilityRule) { r.EndTime = "09:00" }},
		{"start after end", func(r *AvailabilityRule) { r.StartTime = "18:00" }},
		{"negative buffer", func(r *AvailabilityRule) { r.BufferMinutes = -5 }},
		{"zero cap", func(r *AvailabilityRule) { r.MaxBookingsPerDay = &zero }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := base
			tc.mutate(&r)
			assert.Error(t, r.Validate())
		})
	}

	capped := base
	capped.MaxBookingsPerDay = &one
	assert.NoError(t, capped.Validate())
}
