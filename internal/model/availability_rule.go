package model

import (
	"errors"
	"fmt"
	"time"
)

// AvailabilityRule is one recurring weekly open window for a host.
// Weekday follows time.Weekday numbering (0=Sunday..6=Saturday) and the
// start/end times are host-local wall-clock values in "HH:MM" form.
// BufferMinutes is a mandatory idle gap applied before and after every
// booked slot when the window is matched against existing bookings.
// MaxBookingsPerDay, when non-nil, caps how many confirmed bookings the
// host accepts on a single local calendar day.
type AvailabilityRule struct {
	ID                uint64    // availability_rules.id
	HostID            uint64    // availability_rules.host_id
	Weekday           int       // availability_rules.weekday (0=Sunday..6=Saturday)
	StartTime         string    // availability_rules.start_time ("HH:MM")
	EndTime           string    // availability_rules.end_time ("HH:MM")
	BufferMinutes     int       // availability_rules.buffer_minutes
	MaxBookingsPerDay *int      // availability_rules.max_bookings_per_day (nullable)
	CreatedAt         time.Time // availability_rules.created_at
}

// Validate checks the rule invariants before it is persisted: weekday in
// range, parseable times with start strictly before end, non-negative
// buffer and a positive cap when one is set.
func (r AvailabilityRule) Validate() error {
	if r.Weekday < 0 || r.Weekday > 6 {
		return fmt.Errorf("weekday must be 0..6, got %d", r.Weekday)
	}
	start, err := ParseClock(r.StartTime)
	if err != nil {
		return fmt.Errorf("start_time: %w", err)
	}
	end, err := ParseClock(r.EndTime)
	if err != nil {
		return fmt.Errorf("end_time: %w", err)
	}
	if start >= end {
		return errors.New("start_time must be before end_time")
	}
	if r.BufferMinutes < 0 {
		return errors.New("buffer_minutes must not be negative")
	}
	if r.MaxBookingsPerDay != nil && *r.MaxBookingsPerDay < 1 {
		return errors.New("max_bookings_per_day must be positive when set")
	}
	return nil
}

// ParseClock converts an "HH:MM" wall-clock string into minutes from
// midnight. It rejects anything outside 00:00..23:59.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
