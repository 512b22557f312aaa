package scheduling

import (
	"context"
	"sort"
	"time"

	"github.com/meetkit/booking/internal/model"
)

// RuleSet is an in-memory RuleSource built from a host's rules. The
// MySQL repository is the production source; RuleSet backs tests and
// tools that already hold the rules.
type RuleSet struct {
	byDay map[int][]model.AvailabilityRule
}

// NewRuleSet groups the given rules by weekday and orders each day's
// windows by start time so lookups are deterministic regardless of
// insertion order.
func NewRuleSet(rules []model.AvailabilityRule) *RuleSet {
	rs := &RuleSet{byDay: make(map[int][]model.AvailabilityRule)}
	for _, r := range rules {
		rs.byDay[r.Weekday] = append(rs.byDay[r.Weekday], r)
	}
	for day := range rs.byDay {
		windows := rs.byDay[day]
		sort.SliceStable(windows, func(i, j int) bool {
			return windows[i].StartTime < windows[j].StartTime
		})
	}
	return rs
}

// RulesFor returns the host's windows for one weekday ordered by start
// time. The hostID is ignored; a RuleSet always belongs to one host.
func (rs *RuleSet) RulesFor(_ context.Context, _ uint64, weekday int) ([]model.AvailabilityRule, error) {
	return rs.byDay[weekday], nil
}

// windowInterval materialises a rule's wall-clock window on a concrete
// date in the host's zone, returned as UTC instants. time.Date handles
// DST gaps by normalising the wall clock forward.
func windowInterval(r model.AvailabilityRule, year int, month time.Month, day int, loc *time.Location) (Interval, error) {
	startMin, err := model.ParseClock(r.StartTime)
	if err != nil {
		return Interval{}, err
	}
	endMin, err := model.ParseClock(r.EndTime)
	if err != nil {
		return Interval{}, err
	}
	start := time.Date(year, month, day, startMin/60, startMin%60, 0, 0, loc)
	end := time.Date(year, month, day, endMin/60, endMin%60, 0, 0, loc)
	return Interval{Start: start.UTC(), End: end.UTC()}, nil
}

// dailyCap returns the strictest positive MaxBookingsPerDay among the
// day's rules, or 0 when no rule caps the day.
func dailyCap(rules []model.AvailabilityRule) int {
	cap := 0
	for _, r := range rules {
		if r.MaxBookingsPerDay == nil {
			continue
		}
		if cap == 0 || *r.MaxBookingsPerDay < cap {
			cap = *r.MaxBookingsPerDay
		}
	}
	return cap
}
