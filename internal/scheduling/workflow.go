package scheduling

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/meetkit/booking/internal/model"
)

// CustomerInfo is the contact information captured with a booking
// request and copied onto the booking on confirmation.
type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Workflow drives a booking request through its state machine:
// pending is the initial state, confirmed/expired/cancelled are
// terminal. Confirmation re-checks conflicts against the current
// booking set inside one atomic unit of work, so that of two customers
// racing for the same slot exactly one wins and the other receives
// ErrConflict.
type Workflow struct {
	gen      *SlotGenerator
	accounts AccountDirectory
	bookings BookingRepository
	requests BookingRequestRepository
	notifier NotificationPublisher
	opts     Options
}

// NewWorkflow wires the workflow to its collaborators. notifier may be
// nil when no broker is configured.
func NewWorkflow(gen *SlotGenerator, accounts AccountDirectory, bookings BookingRepository, requests BookingRequestRepository, notifier NotificationPublisher, opts Options) *Workflow {
	return &Workflow{
		gen:      gen,
		accounts: accounts,
		bookings: bookings,
		requests: requests,
		notifier: notifier,
		opts:     opts.withDefaults(),
	}
}

// newConfirmationToken returns 32 bytes of crypto/rand entropy as a
// 64-character hex string.
func newConfirmationToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Create places a pending hold on the given slot. The slot is
// re-validated against the current bookings and calendar busy time at
// creation (a stale slot list from an earlier generation is never
// trusted) and ErrConflict is returned when it is no longer free.
func (w *Workflow) Create(ctx context.Context, hostID uint64, slot Interval, customer CustomerInfo) (*model.BookingRequest, error) {
	if !slot.Start.Before(slot.End) {
		return nil, fmt.Errorf("%w: slot start must be before end", ErrValidation)
	}
	minutes := int(slot.Duration() / time.Minute)
	if minutes < w.opts.MinDurationMinutes || minutes > w.opts.MaxDurationMinutes {
		return nil, fmt.Errorf("%w: slot duration %d outside %d..%d minutes",
			ErrValidation, minutes, w.opts.MinDurationMinutes, w.opts.MaxDurationMinutes)
	}
	now := w.opts.Now()
	if slot.Start.Before(now) {
		return nil, fmt.Errorf("%w: slot start is in the past", ErrValidation)
	}
	if customer.Email == "" {
		return nil, fmt.Errorf("%w: customer email is required", ErrValidation)
	}
	if err := w.gen.verifySlotFree(ctx, hostID, slot); err != nil {
		return nil, err
	}

	token, err := newConfirmationToken()
	if err != nil {
		return nil, err
	}
	req := &model.BookingRequest{
		HostID:            hostID,
		StartTime:         slot.Start.UTC(),
		EndTime:           slot.End.UTC(),
		CustomerName:      customer.Name,
		CustomerEmail:     customer.Email,
		ConfirmationToken: token,
		Status:            model.RequestPending,
		ExpiresAt:         now.Add(w.opts.HoldWindow).UTC(),
		CreatedAt:         now.UTC(),
	}
	if err := w.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Confirm finalises the request identified by token. The overlap
// re-check against the host's current confirmed bookings and the
// booking insert happen inside a single atomic unit serialised per
// host; losing that race marks the request expired and returns
// ErrConflict. A request already out of pending fails with
// ErrInvalidState, since a second confirm is not idempotent and must be
// distinguishable from the happy path. The pre-check reads outside the
// unit, so a second confirm of the same token can slip past it with a
// stale pending view; the in-unit status transitions swap only on
// pending, making that caller fail with ErrInvalidState and roll back
// instead of moving the winner's request out of confirmed.
func (w *Workflow) Confirm(ctx context.Context, token string) (*model.Booking, error) {
	req, err := w.requests.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if req.Status != model.RequestPending {
		return nil, fmt.Errorf("%w: request is %s", ErrInvalidState, req.Status)
	}
	now := w.opts.Now()
	if now.After(req.ExpiresAt) {
		// Lazy expiry observed on a write path: persist it eagerly.
		if err := w.requests.UpdateStatus(ctx, req.ID, model.RequestExpired); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}

	loc, err := w.accounts.GetHostTimezone(ctx, req.HostID)
	if err != nil {
		return nil, err
	}
	slot := Interval{Start: req.StartTime, End: req.EndTime}

	booking := &model.Booking{
		HostID:        req.HostID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Status:        model.BookingConfirmed,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CreatedAt:     now.UTC(),
	}
	lostRace := false
	err = w.bookings.RunAtomic(ctx, req.HostID, func(ctx context.Context, unit AtomicUnit) error {
		dc, err := w.gen.dayContextAt(ctx, req.HostID, req.StartTime, loc)
		if err != nil {
			return err
		}
		shadow := slot.Buffered(dc.bufferFor(slot, loc))

		if dc.cap > 0 {
			n, err := unit.CountConfirmedBetween(ctx, dc.dayStart, dc.dayEnd)
			if err != nil {
				return err
			}
			if n >= dc.cap {
				lostRace = true
				return unit.UpdateRequestStatus(ctx, req.ID, model.RequestExpired)
			}
		}
		current, err := unit.FindConfirmedBetween(ctx, shadow.Start, shadow.End)
		if err != nil {
			return err
		}
		if AnyOverlap(shadow, bookingIntervals(current)) {
			// Slot taken since the hold was placed. The expiry commits;
			// ErrConflict is reported after the unit ends.
			lostRace = true
			return unit.UpdateRequestStatus(ctx, req.ID, model.RequestExpired)
		}
		if err := unit.InsertConfirmed(ctx, booking); err != nil {
			return err
		}
		return unit.UpdateRequestStatus(ctx, req.ID, model.RequestConfirmed)
	})
	if err != nil {
		if isConflict(err) {
			// The storage constraint fired under us: same outcome as the
			// in-unit re-check, persisted outside the rolled-back unit.
			// The status write is a compare-and-swap on pending, so a
			// racing writer that already moved the request wins and the
			// failed swap is not an error worth reporting.
			if uerr := w.requests.UpdateStatus(ctx, req.ID, model.RequestExpired); uerr != nil && !errors.Is(uerr, ErrInvalidState) {
				log.Printf("workflow: expiring lost-race request %d: %v", req.ID, uerr)
			}
			return nil, ErrConflict
		}
		return nil, err
	}
	if lostRace {
		return nil, ErrConflict
	}

	if w.notifier != nil {
		// Fire and forget; delivery failure never unwinds the booking.
		w.notifier.BookingConfirmed(ctx, *booking)
	}
	return booking, nil
}

// Cancel withdraws a pending request. Any other state, including a
// pending hold whose expiry has already passed, fails with
// ErrInvalidState.
func (w *Workflow) Cancel(ctx context.Context, requestID uint64) error {
	req, err := w.requests.FindByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status != model.RequestPending {
		return fmt.Errorf("%w: request is %s", ErrInvalidState, req.Status)
	}
	if w.opts.Now().After(req.ExpiresAt) {
		if err := w.requests.UpdateStatus(ctx, req.ID, model.RequestExpired); err != nil {
			return err
		}
		return fmt.Errorf("%w: request is expired", ErrInvalidState)
	}
	return w.requests.UpdateStatus(ctx, req.ID, model.RequestCancelled)
}

// LookupRequest returns a request by token with lazy expiry applied: a
// pending hold past its expiry reads as expired even though no writer
// has persisted the transition yet.
func (w *Workflow) LookupRequest(ctx context.Context, token string) (*model.BookingRequest, error) {
	req, err := w.requests.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if req.Status == model.RequestPending && w.opts.Now().After(req.ExpiresAt) {
		req.Status = model.RequestExpired
	}
	return req, nil
}

// BookDirect inserts a confirmed booking on the host's own behalf,
// through the same atomic unit as Confirm so a direct creation cannot
// slip past a racing confirm. Host-created bookings ignore the daily
// cap and buffers: those constraints shape what customers see, not
// what the host may do with their own calendar.
func (w *Workflow) BookDirect(ctx context.Context, hostID uint64, slot Interval, customer CustomerInfo) (*model.Booking, error) {
	if !slot.Start.Before(slot.End) {
		return nil, fmt.Errorf("%w: booking start must be before end", ErrValidation)
	}
	booking := &model.Booking{
		HostID:        hostID,
		StartTime:     slot.Start.UTC(),
		EndTime:       slot.End.UTC(),
		Status:        model.BookingConfirmed,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		CreatedAt:     w.opts.Now().UTC(),
	}
	err := w.bookings.RunAtomic(ctx, hostID, func(ctx context.Context, unit AtomicUnit) error {
		current, err := unit.FindConfirmedBetween(ctx, slot.Start, slot.End)
		if err != nil {
			return err
		}
		if AnyOverlap(Interval{Start: slot.Start, End: slot.End}, bookingIntervals(current)) {
			return ErrConflict
		}
		return unit.InsertConfirmed(ctx, booking)
	})
	if err != nil {
		if isConflict(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return booking, nil
}

// CancelBooking soft-cancels a confirmed booking. The row is retained
// and stops participating in overlap checks from the moment the unit
// commits.
func (w *Workflow) CancelBooking(ctx context.Context, hostID, bookingID uint64) error {
	return w.bookings.RunAtomic(ctx, hostID, func(ctx context.Context, unit AtomicUnit) error {
		return unit.UpdateBookingStatus(ctx, bookingID, model.BookingCancelled, w.opts.Now().UTC())
	})
}

func isConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
