package scheduling

import "time"

// Interval is a half-open time range [Start, End) in UTC.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open intervals intersect:
// [s1,e1) and [s2,e2) overlap iff both are non-empty and
// s1 < e2 && s2 < e1. Back-to-back intervals (e1 == s2) and zero-length
// intervals never overlap anything, not even a range containing them.
//
// This is the single overlap definition for the whole system: slot
// filtering, request creation and confirm all call it, so the predicate
// cannot drift between call sites.
func (i Interval) Overlaps(o Interval) bool {
	if !i.Start.Before(i.End) || !o.Start.Before(o.End) {
		return false
	}
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Duration returns End - Start.
func (i Interval) Duration() time.Duration { return i.End.Sub(i.Start) }

// Buffered expands the interval by the given margin on both sides.
// Used to build the shadow interval a candidate slot must keep free.
func (i Interval) Buffered(margin time.Duration) Interval {
	return Interval{Start: i.Start.Add(-margin), End: i.End.Add(margin)}
}

// AnyOverlap reports whether the candidate intersects any of the
// existing intervals, short-circuiting on the first match.
func AnyOverlap(candidate Interval, existing []Interval) bool {
	for _, e := range existing {
		if candidate.Overlaps(e) {
			return true
		}
	}
	return false
}

// Slot is a candidate bookable interval of the requested duration. It
// is not committed until a booking request for it is confirmed.
type Slot = Interval
