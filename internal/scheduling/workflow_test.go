package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetkit/booking/internal/model"
)

func openMonday() []model.AvailabilityRule {
	return []model.AvailabilityRule{rule(1, "09:00", "17:00", 0, nil)}
}

func testCustomer() CustomerInfo {
	return CustomerInfo{Name: "Ada Lovelace", Email: "ada@example.com"}
}

func TestWorkflowRequestConfirmRoundTrip(t *testing.T) {
	f := newFixture(openMonday(), time.UTC, testNow)
	ctx := context.Background()

	// A slot taken straight from generation must confirm cleanly.
	res, err := f.gen.GenerateSlots(ctx, 1, monday, 60)
	require.NoError(t, err)
	require.NotEmpty(t, res.Slots)
	slot := res.Slots[0]

	req, err := f.wf.Create(ctx, 1, slot, testCustomer())
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, req.Status)
	assert.Len(t, req.ConfirmationToken, 64)
	assert.Equal(t, testNow.Add(30*time.Minute), req.ExpiresAt)

	booking, err := f.wf.Confirm(ctx, req.ConfirmationToken)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, booking.Status)
	assert.Equal(t, slot.Start, booking.StartTime)
	assert.Equal(t, slot.End, booking.EndTime)
	assert.Equal(t, "ada@example.com", booking.CustomerEmail)

	assert.Equal(t, model.RequestConfirmed, f.store.requestStatus(t, req.ID))
	assert.Equal(t, 1, f.store.confirmedCount())
	assert.Equal(t, 1, f.notifier.count(), "confirmation publishes exactly one event")
}

func TestWorkflowConfirmTwice(t *testing.T) {
	f := newFixture(openMonday(), time.UTC, testNow)
	ctx := context.Background()

	req, err := f.wf.Create(ctx, 1, Interval{Start: at(9, 0), End: at(10, 0)}, testCustomer())
	require.NoError(t, err)
	_, err = f.wf.Confirm(ctx, req.ConfirmationToken)
	require.NoError(t, err)

	_, err = f.wf.Confirm(ctx, req.ConfirmationToken)
	assert.ErrorIs(t, err, ErrInvalidState, "a second confirm is not idempotent")
	assert.Equal(t, 1, f.store.confirmedCount())
}

func TestWorkflowConfirmUnknownToken(t *testing.T) {
	f := newFixture(openMonday(), time.UTC, testNow)
	_, err := f.wf.Confirm(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWorkflowConfirmExpiredHold(t *testing.T) {
	f := newFixture(openMonday(), time.UTC, testNow)
	ctx := context.Background()

	req, err := f.wf.Create(ctx, 1, Interval{Start: at(9, 0), End: at(10, 0)}, testCustomer())
	require.NoError(t, err)
	f.clock.Advance(31 * time.Minute)

	_, err = f.wf.Confirm(ctx, req.ConfirmationToken)
	assert.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, model.RequestExpired, f.store.requestStatus(t, req.ID),
		"expiry observed on a write path is persisted")
	assert.Equal(t, 0, f.store.confirmedCount())
}

func TestWorkflowCreateValidation(t *testing.T) {
	f := newFixture(openMonday(), time.UTC, testNow)
	ctx := context.Background()

	_, err := f.wf.Create(ctx, 1, Interval{Start: at(10, 0), End: at(9, 0)}, testCustomer())
	assert.ErrorIs(t, err, ErrValidation, "inverted interval")

	_, err = f.wf.Create(ctx, 1, Interval{Start: at(9, 0), End: at(9, 10)}, testCustomer())
	assert.ErrorIs(t, err, ErrValidation, "below minimum duration")

	past := Interval{Start: testNow.Add(-2 * time.Hour), End: testNow.Add(-time.Hour)}
	_, err = f.wf.Create(ctx, 1, past, testCustomer())
	assert.ErrorIs(t, err, ErrValidation, "slot in the past")

	_, err = f.wf.Create(ctx, 1, Interval{Start: at(9, 0), End: at(10, 0)}, CustomerInfo{Name: "Ada"})
	assert.ErrorIs(t, err, ErrValidation, "missing email")
}

func TestWorkflowCreateConflictsWithExistingBooking(t *testing.T) {
	f := newFixture(openMonday(), time.UTC, testNow)
	f.store.seedBooking(1, at(9, 0), at(10, 0))

	_, err := f.wf.Create(context.Background(), 1, Interval{Start: at(9, 30), End: at(10, 30)}, testCustomer())
	assert.ErrorIs(t, err, ErrConflict, "stale slot lists are never trusted")
}

func TestWorkflowCreateConflictsWithDailyCap(t *testing.T) {
	f := newFixture([]model.AvailabilityRule{rule(1, "09:00", "17:00", 0, intPtr(1))}, time.UTC, testNow)
	f.store.seedBooking(1, at(9, 0), at(10, 0))

	_, err := f.wf.Create(context.Background(), 1, Interval{Start: at(14, 0), End: at(15, 0)}, testCustomer())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestWorkflowCancelPending(t *testing.T) {
	f := newFixture(openMonday(), time.UTC, testNow)
	ctx := context.Background()

	req, err := f.wf.Create(ctx, 1, Interval{Start: at(9, 0), End: at(10, 0)}, testCustomer())
	require.NoError(t, err)
	require.NoError(t, f.wf.Cancel(ctx, req.ID))
	assert.Equal(t, model.RequestCancelled, f.store.requestStatus(t, req.ID))

	// The slot is free again immediately.
	_, err = f.wf.Create(ctx, 1, Interval{Start: at(9, 0), End: at(10, 0)}, testCustomer())
	assert.NoError(t, err)
}

func TestWorkflowCancelNonPending(t *testing.T) {
	f := newFixture(openMonday(), time.UTC, testNow)
	ctx := context.Background()

	req, err := f.wf.Create(ctx, 1, Interval{Start: at(9, 0), End: at(10, 0)}, testCustomer())
	require.NoError(t, err)
	_, err = f.wf.Confirm(ctx, req.ConfirmationToken)
	require.NoError(t, err)

	assert.ErrorIs(t, f.wf.Cancel(ctx, req.ID), ErrInvalidState)
}

func TestWorkflowCancelLapsedHold(t *testing.T) {
	f := newFixture(openMonday(), time.UTC, testNow)
	ctx := context.Background()

	req, err := f.wf.Create(ctx, 1, Interval{Start: at(9, 0), End: at(10, 0)}, testCustomer())
	require.NoError(t, err)
	f.clock.Advance(31 * time.Minute)

	assert.ErrorIs(t, f.wf.Cancel(ctx, req.ID), ErrInvalidState)
	assert.Equal(t, model.RequestExpired, f.store.requestStatus(t, req.ID))
}

func TestWorkflowLookupAppliesLazyExpiry(t *testing.T) {
	f := newFixture(openMonday(), time.UTC, testNow)
	ctx := context.Background()

	req, err := f.wf.Create(ctx, 1, Interval{Start: at(9, 0), End: at(10, 0)}, testCustomer())
	require.NoError(t, err)
	f.clock.Advance(31 * time.Minute)

	got, err := f.wf.LookupRequest(ctx, req.ConfirmationToken)
	require.NoError(t, err)
	assert.Equal(t, model.RequestExpired, got.Status)
	// Read paths do not write; the row transitions on the next write.
	assert.Equal(t, model.RequestPending, f.store.requestStatus(t, req.ID))
}

func TestWorkflowConfirmLosesRaceToOverlappingBooking(t *testing.T) {
	f := newFixture(openMonday(), time.UTC, testNow)
	ctx := context.Background()
	slot := Interval{Start: at(9, 0), End: at(10, 0)}

	first, err := f.wf.Create(ctx, 1, slot, testCustomer())
	require.NoError(t, err)
	second, err := f.wf.Create(ctx, 1, slot, CustomerInfo{Name: "Grace Hopper", Email: "grace@example.com"})
	require.NoError(t, err, "pending holds do not block each other")

	_, err = f.wf.Confirm(ctx, first.ConfirmationToken)
	require.NoError(t, err)

	_, err = f.wf.Confirm(ctx, second.ConfirmationToken)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, model.RequestExpired, f.store.requestStatus(t, second.ID),
		"the losing request is marked expired")
	assert.Equal(t, 1, f.store.confirmedCount())
	assert.Equal(t, 1, f.notifier.count())
}

func TestWorkflowConcurrentConfirmsSingleWinner(t *testing.T) {
	f := newFixture(openMonday(), time.UTC, testNow)
	ctx := context.Background()
	slot := Interval{Start: at(9, 0), End: at(10, 0)}

	const contenders = 50
	tokens := make([]string, contenders)
	for i := range tokens {
		req, err := f.wf.Create(ctx, 1, slot, testCustomer())
		require.NoError(t, err)
		tokens[i] = req.ConfirmationToken
	}

	var wg sync.WaitGroup
	results := make(chan error, contenders)
	for _, token := range tokens {
		wg.Add(1)
		go func(tok string) {
			defer wg.Done()
			_, err := f.wf.Confirm(ctx, tok)
			results <- err
		}(token)
	}
	wg.Wait()
	close(results)

	wins, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case assert.ErrorIs(t, err, ErrConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, wins, "exactly one confirm wins the slot")
	assert.Equal(t, contenders-1, conflicts)
	assert.Equal(t, 1, f.store.confirmedCount(), "no double booking under concurrency")
}

// stalePendingRequests serves reads that lag behind the store: every
// request comes back with a pending status, the view a second confirm
// holds when it read the row before the winner committed.
type stalePendingRequests struct {
	*memStore
}

func (s stalePendingRequests) FindByToken(ctx context.Context, token string) (*model.BookingRequest, error) {
	req, err := s.memStore.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	req.Status = model.RequestPending
	return req, nil
}

func (s stalePendingRequests) FindByID(ctx context.Context, id uint64) (*model.BookingRequest, error) {
	req, err := s.memStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Status = model.RequestPending
	return req, nil
}

// staleWorkflow shares the fixture's stores but reads requests through
// the lagging view.
func staleWorkflow(f *engineFixture) *Workflow {
	accounts := stubAccounts{loc: time.UTC, horizon: 60}
	opts := Options{Now: f.clock.Now}
	return NewWorkflow(f.gen, accounts, f.store, stalePendingRequests{f.store}, f.notifier, opts)
}

func TestWorkflowConfirmWithStaleReadKeepsRequestConfirmed(t *testing.T) {
	f := newFixture(openMonday(), time.UTC, testNow)
	ctx := context.Background()

	req, err := f.wf.Create(ctx, 1, Interval{Start: at(9, 0), End: at(10, 0)}, testCustomer())
	require.NoError(t, err)
	_, err = f.wf.Confirm(ctx, req.ConfirmationToken)
	require.NoError(t, err)

	// A second confirm that observed the request as pending before the
	// winner committed must fail like any other double confirm, and must
	// not drag the request out of confirmed.
	_, err = staleWorkflow(f).Confirm(ctx, req.ConfirmationToken)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, model.RequestConfirmed, f.store.requestStatus(t, req.ID),
		"confirmed is terminal even under a stale pending read")
	assert.Equal(t, 1, f.store.confirmedCount())
	assert.Equal(t, 1, f.notifier.count())
}

func TestWorkflowCancelWithStaleReadKeepsRequestConfirmed(t *testing.T) {
	f := newFixture(openMonday(), time.UTC, testNow)
	ctx := context.Background()

	req, err := f.wf.Create(ctx, 1, Interval{Start: at(9, 0), End: at(10, 0)}, testCustomer())
	require.NoError(t, err)
	_, err = f.wf.Confirm(ctx, req.ConfirmationToken)
	require.NoError(t, err)

	err = staleWorkflow(f).Cancel(ctx, req.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, model.RequestConfirmed, f.store.requestStatus(t, req.ID),
		"a cancel racing a confirm cannot overwrite the terminal state")
}

func TestWorkflowRepeatedRaceStress(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 1000-trial race stress in short mode")
	}
	ctx := context.Background()
	slot := Interval{Start: at(9, 0), End: at(10, 0)}
	overlapping := Interval{Start: at(9, 30), End: at(10, 30)}

	for trial := 0; trial < 1000; trial++ {
		f := newFixture(openMonday(), time.UTC, testNow)
		a, err := f.wf.Create(ctx, 1, slot, testCustomer())
		require.NoError(t, err)
		b, err := f.wf.Create(ctx, 1, overlapping, testCustomer())
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, tok := range []string{a.ConfirmationToken, b.ConfirmationToken} {
			wg.Add(1)
			go func(i int, tok string) {
				defer wg.Done()
				_, errs[i] = f.wf.Confirm(ctx, tok)
			}(i, tok)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
			} else {
				require.ErrorIs(t, err, ErrConflict, "trial %d", trial)
			}
		}
		require.Equal(t, 1, wins, "trial %d: exactly one confirm must win", trial)
		require.Equal(t, 1, f.store.confirmedCount(), "trial %d: no double booking", trial)
	}
}

func TestWorkflowBookDirect(t *testing.T) {
	// Cap of 1 and a 30 minute buffer constrain customers, not the host.
	f := newFixture([]model.AvailabilityRule{rule(1, "09:00", "17:00", 30, intPtr(1))}, time.UTC, testNow)
	ctx := context.Background()
	f.store.seedBooking(1, at(9, 0), at(10, 0))

	booking, err := f.wf.BookDirect(ctx, 1, Interval{Start: at(10, 0), End: at(11, 0)},
		CustomerInfo{Name: "Walk-in", Email: "walkin@example.com"})
	require.NoError(t, err, "direct bookings skip cap and buffer checks")
	assert.Equal(t, model.BookingConfirmed, booking.Status)

	_, err = f.wf.BookDirect(ctx, 1, Interval{Start: at(10, 30), End: at(11, 30)}, testCustomer())
	assert.ErrorIs(t, err, ErrConflict, "raw overlap still applies")

	_, err = f.wf.BookDirect(ctx, 1, Interval{Start: at(12, 0), End: at(11, 0)}, testCustomer())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestWorkflowCancelBookingFreesSlot(t *testing.T) {
	f := newFixture(openMonday(), time.UTC, testNow)
	ctx := context.Background()

	booking, err := f.wf.BookDirect(ctx, 1, Interval{Start: at(9, 0), End: at(10, 0)}, testCustomer())
	require.NoError(t, err)
	require.NoError(t, f.wf.CancelBooking(ctx, 1, booking.ID))
	assert.Equal(t, 0, f.store.confirmedCount())

	// A cancelled booking stops blocking the slot.
	_, err = f.wf.Create(ctx, 1, Interval{Start: at(9, 0), End: at(10, 0)}, testCustomer())
	assert.NoError(t, err)
}
