package scheduling

import (
	"context"
	"time"

	"github.com/meetkit/booking/internal/model"
)

// AccountDirectory resolves per-host settings owned by the account
// subsystem. Implementations return ErrNotFound for unknown hosts.
type AccountDirectory interface {
	// GetHostTimezone returns the host's IANA timezone.
	GetHostTimezone(ctx context.Context, hostID uint64) (*time.Location, error)
	// GetBookingHorizonDays returns how many days ahead the host accepts
	// bookings.
	GetBookingHorizonDays(ctx context.Context, hostID uint64) (int, error)
}

// RuleSource supplies a host's availability rules for one weekday,
// ordered by start time. Rules are read-only to the engine; the host
// edits them through their own endpoints.
type RuleSource interface {
	RulesFor(ctx context.Context, hostID uint64, weekday int) ([]model.AvailabilityRule, error)
}

// ExternalBusyProvider returns busy intervals from the host's connected
// calendars for a UTC range. A transient failure is reported as an
// error wrapping ErrUnavailable; the slot generator tolerates it and
// falls back to internal bookings only.
type ExternalBusyProvider interface {
	GetBusyIntervals(ctx context.Context, hostID uint64, from, to time.Time) ([]Interval, error)
}

// BookingRepository is the engine's view of durable bookings.
type BookingRepository interface {
	// FindConfirmedByHostAndDate returns the host's confirmed bookings
	// whose interval touches [dayStart, dayEnd), a host-local calendar
	// day expressed as UTC instants.
	FindConfirmedByHostAndDate(ctx context.Context, hostID uint64, dayStart, dayEnd time.Time) ([]model.Booking, error)
	// RunAtomic executes fn inside one isolated unit of work serialised
	// per host: no other RunAtomic for the same host observes or commits
	// intermediate state. All writes made through the unit commit or roll
	// back together; fn returning an error rolls back.
	RunAtomic(ctx context.Context, hostID uint64, fn func(ctx context.Context, unit AtomicUnit) error) error
}

// AtomicUnit is the write handle passed to a RunAtomic callback. The
// re-read, the overlap re-check and the insert performed through it are
// indivisible with respect to any other confirm or direct booking
// creation for the same host.
type AtomicUnit interface {
	// FindConfirmedBetween re-reads the host's confirmed bookings that
	// touch [from, to) under the unit's isolation.
	FindConfirmedBetween(ctx context.Context, from, to time.Time) ([]model.Booking, error)
	// CountConfirmedBetween counts confirmed bookings starting in [from, to).
	CountConfirmedBetween(ctx context.Context, from, to time.Time) (int, error)
	// InsertConfirmed persists a confirmed booking, populating its ID.
	// A storage-level uniqueness violation surfaces as an error wrapping
	// ErrConflict.
	InsertConfirmed(ctx context.Context, b *model.Booking) error
	// UpdateRequestStatus transitions a booking request within the unit.
	// Only pending requests move; a request already in a terminal state
	// fails with an error wrapping ErrInvalidState so a stale read can
	// never drag it back out.
	UpdateRequestStatus(ctx context.Context, requestID uint64, status model.RequestStatus) error
	// UpdateBookingStatus transitions a booking within the unit.
	UpdateBookingStatus(ctx context.Context, bookingID uint64, status model.BookingStatus, at time.Time) error
}

// BookingRequestRepository stores pre-confirmation holds. UpdateStatus
// carries the same compare-and-swap contract as
// AtomicUnit.UpdateRequestStatus: only pending requests transition, and
// a terminal request fails with an error wrapping ErrInvalidState.
type BookingRequestRepository interface {
	Create(ctx context.Context, r *model.BookingRequest) error
	FindByID(ctx context.Context, id uint64) (*model.BookingRequest, error)
	FindByToken(ctx context.Context, token string) (*model.BookingRequest, error)
	UpdateStatus(ctx context.Context, id uint64, status model.RequestStatus) error
}

// NotificationPublisher receives booking-confirmed events. Publishing
// is fire-and-forget: a failure is logged by the caller and never rolls
// back the confirmation.
type NotificationPublisher interface {
	BookingConfirmed(ctx context.Context, b model.Booking)
}
