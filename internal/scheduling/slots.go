package scheduling

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/meetkit/booking/internal/model"
)

// Options carries the system-wide scheduling bounds. Zero values fall
// back to the defaults below.
type Options struct {
	MinDurationMinutes int           // shortest bookable slot, default 15
	MaxDurationMinutes int           // longest bookable slot, default 240
	HoldWindow         time.Duration // how long a booking request stays pending, default 30m
	Now                func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MinDurationMinutes <= 0 {
		o.MinDurationMinutes = 15
	}
	if o.MaxDurationMinutes <= 0 {
		o.MaxDurationMinutes = 240
	}
	if o.HoldWindow <= 0 {
		o.HoldWindow = 30 * time.Minute
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// SlotResult is the outcome of one slot generation. Partial is true
// when the external calendar could not be reached and the slots were
// computed from internal bookings alone; callers surface that to the
// user instead of failing the request.
type SlotResult struct {
	Slots   []Slot `json:"slots"`
	Partial bool   `json:"partial"`
}

// SlotGenerator computes bookable slots for a host and date. Results
// are recomputed on every call: bookings and calendars mutate between
// calls, so slot lists must never be cached.
type SlotGenerator struct {
	accounts AccountDirectory
	rules    RuleSource
	bookings BookingRepository
	busy     ExternalBusyProvider
	opts     Options
}

// NewSlotGenerator wires the generator to its collaborators.
func NewSlotGenerator(accounts AccountDirectory, rules RuleSource, bookings BookingRepository, busy ExternalBusyProvider, opts Options) *SlotGenerator {
	return &SlotGenerator{
		accounts: accounts,
		rules:    rules,
		bookings: bookings,
		busy:     busy,
		opts:     opts.withDefaults(),
	}
}

// dayContext bundles everything the engine needs to judge one
// host-local calendar day: the day's windows, its UTC bounds, the
// strictest daily cap and the widest buffer among the day's rules.
type dayContext struct {
	loc      *time.Location
	rules    []model.AvailabilityRule
	dayStart time.Time // UTC instant of host-local midnight
	dayEnd   time.Time // UTC instant of the next host-local midnight
	cap      int       // 0 = uncapped
	year     int
	month    time.Month
	day      int
}

// maxBuffer returns the widest buffer among the day's rules.
func (d dayContext) maxBuffer() time.Duration {
	max := 0
	for _, r := range d.rules {
		if r.BufferMinutes > max {
			max = r.BufferMinutes
		}
	}
	return time.Duration(max) * time.Minute
}

// bufferFor returns the buffer of the window containing the slot, or
// the day's widest buffer when no window contains it.
func (d dayContext) bufferFor(slot Interval, loc *time.Location) time.Duration {
	for _, r := range d.rules {
		w, err := windowInterval(r, d.year, d.month, d.day, loc)
		if err != nil {
			continue
		}
		if !slot.Start.Before(w.Start) && !slot.End.After(w.End) {
			return time.Duration(r.BufferMinutes) * time.Minute
		}
	}
	return d.maxBuffer()
}

// resolveDay validates the date against "now" in the host's timezone
// and the host's booking horizon, then loads the matching rules.
func (g *SlotGenerator) resolveDay(ctx context.Context, hostID uint64, date string) (dayContext, error) {
	loc, err := g.accounts.GetHostTimezone(ctx, hostID)
	if err != nil {
		return dayContext{}, err
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return dayContext{}, fmt.Errorf("%w: invalid date %q", ErrValidation, date)
	}

	now := g.opts.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if day.Before(today) {
		return dayContext{}, fmt.Errorf("%w: date %s is in the past", ErrValidation, date)
	}
	horizon, err := g.accounts.GetBookingHorizonDays(ctx, hostID)
	if err != nil {
		return dayContext{}, err
	}
	if horizon > 0 && day.After(today.AddDate(0, 0, horizon)) {
		return dayContext{}, fmt.Errorf("%w: date %s is beyond the booking horizon of %d days", ErrValidation, date, horizon)
	}

	return g.dayContextAt(ctx, hostID, day, loc)
}

// dayContextAt builds the day context for the host-local calendar day
// containing at. It performs no date validation; the confirm path uses
// it to re-check conflicts for holds that straddle midnight.
func (g *SlotGenerator) dayContextAt(ctx context.Context, hostID uint64, at time.Time, loc *time.Location) (dayContext, error) {
	local := at.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	rules, err := g.rules.RulesFor(ctx, hostID, int(day.Weekday()))
	if err != nil {
		return dayContext{}, err
	}
	return dayContext{
		loc:      loc,
		rules:    rules,
		dayStart: day.UTC(),
		dayEnd:   day.AddDate(0, 0, 1).UTC(),
		cap:      dailyCap(rules),
		year:     day.Year(),
		month:    day.Month(),
		day:      day.Day(),
	}, nil
}

// GenerateSlots returns the bookable slots of the requested duration on
// the given date ("2006-01-02", interpreted in the host's timezone), in
// chronological order.
func (g *SlotGenerator) GenerateSlots(ctx context.Context, hostID uint64, date string, durationMinutes int) (SlotResult, error) {
	if durationMinutes < g.opts.MinDurationMinutes || durationMinutes > g.opts.MaxDurationMinutes {
		return SlotResult{}, fmt.Errorf("%w: duration %d outside %d..%d minutes",
			ErrValidation, durationMinutes, g.opts.MinDurationMinutes, g.opts.MaxDurationMinutes)
	}
	dc, err := g.resolveDay(ctx, hostID, date)
	if err != nil {
		return SlotResult{}, err
	}
	if len(dc.rules) == 0 {
		return SlotResult{Slots: []Slot{}}, nil
	}

	confirmed, err := g.bookings.FindConfirmedByHostAndDate(ctx, hostID, dc.dayStart, dc.dayEnd)
	if err != nil {
		return SlotResult{}, err
	}
	// Saturated day: the cap counts confirmed bookings starting on the
	// host-local calendar day, and closes every window at once.
	if dc.cap > 0 && countStartingWithin(confirmed, dc.dayStart, dc.dayEnd) >= dc.cap {
		return SlotResult{Slots: []Slot{}}, nil
	}
	blocked := bookingIntervals(confirmed)

	// External busy time is best effort. The fetch range is widened by
	// the day's largest buffer so shadows near midnight are still
	// checked against adjacent events.
	partial := false
	margin := dc.maxBuffer()
	busy, err := g.busy.GetBusyIntervals(ctx, hostID, dc.dayStart.Add(-margin), dc.dayEnd.Add(margin))
	if err != nil {
		log.Printf("slots: busy intervals for host %d degraded: %v", hostID, err)
		partial = true
		busy = nil
	}

	duration := time.Duration(durationMinutes) * time.Minute
	now := g.opts.Now()
	var slots []Slot
	for _, r := range dc.rules {
		window, err := windowInterval(r, dc.year, dc.month, dc.day, dc.loc)
		if err != nil {
			return SlotResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		buffer := time.Duration(r.BufferMinutes) * time.Minute
		for s := window.Start; !s.Add(duration).After(window.End); s = s.Add(duration) {
			slot := Slot{Start: s, End: s.Add(duration)}
			if slot.Start.Before(now) {
				continue // same-day slots already begun are not offered
			}
			shadow := slot.Buffered(buffer)
			if AnyOverlap(shadow, blocked) || AnyOverlap(shadow, busy) {
				continue
			}
			slots = append(slots, slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	if slots == nil {
		slots = []Slot{}
	}
	return SlotResult{Slots: slots, Partial: partial}, nil
}

// verifySlotFree re-runs the conflict and daily-cap checks for one
// concrete interval against the current confirmed bookings and, best
// effort, the external calendar. Used when a booking request is created
// so a stale slot list from an earlier generation is never trusted.
func (g *SlotGenerator) verifySlotFree(ctx context.Context, hostID uint64, slot Interval) error {
	// Resolve the day in the host's zone, not UTC, so slots late in the
	// host-local evening land on the right calendar day.
	loc, err := g.accounts.GetHostTimezone(ctx, hostID)
	if err != nil {
		return err
	}
	dc, err := g.resolveDay(ctx, hostID, slot.Start.In(loc).Format("2006-01-02"))
	if err != nil {
		return err
	}

	confirmed, err := g.bookings.FindConfirmedByHostAndDate(ctx, hostID, dc.dayStart, dc.dayEnd)
	if err != nil {
		return err
	}
	if dc.cap > 0 && countStartingWithin(confirmed, dc.dayStart, dc.dayEnd) >= dc.cap {
		return fmt.Errorf("%w: host's daily booking limit reached", ErrConflict)
	}
	buffer := dc.bufferFor(slot, dc.loc)
	shadow := slot.Buffered(buffer)
	if AnyOverlap(shadow, bookingIntervals(confirmed)) {
		return ErrConflict
	}
	busy, err := g.busy.GetBusyIntervals(ctx, hostID, shadow.Start, shadow.End)
	if err != nil {
		// Calendar sync is not a correctness dependency; internal
		// bookings alone decide here.
		log.Printf("slots: busy check for host %d degraded: %v", hostID, err)
		return nil
	}
	if AnyOverlap(shadow, busy) {
		return ErrConflict
	}
	return nil
}

func bookingIntervals(bookings []model.Booking) []Interval {
	out := make([]Interval, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, Interval{Start: b.StartTime, End: b.EndTime})
	}
	return out
}

func countStartingWithin(bookings []model.Booking, from, to time.Time) int {
	n := 0
	for _, b := range bookings {
		if !b.StartTime.Before(from) && b.StartTime.Before(to) {
			n++
		}
	}
	return n
}
