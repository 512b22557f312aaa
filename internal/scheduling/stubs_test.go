package scheduling

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/meetkit/booking/internal/model"
)

// fakeClock is a mutable time source handed to Options.Now.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type stubAccounts struct {
	loc     *time.Location
	horizon int
}

func (s stubAccounts) GetHostTimezone(context.Context, uint64) (*time.Location, error) {
	return s.loc, nil
}

func (s stubAccounts) GetBookingHorizonDays(context.Context, uint64) (int, error) {
	return s.horizon, nil
}

type stubBusy struct {
	intervals []Interval
	err       error
}

func (s *stubBusy) GetBusyIntervals(context.Context, uint64, time.Time, time.Time) ([]Interval, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.intervals, nil
}

type recordNotifier struct {
	mu     sync.Mutex
	events []model.Booking
}

func (n *recordNotifier) BookingConfirmed(_ context.Context, b model.Booking) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, b)
}

func (n *recordNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

// memStore is an in-memory BookingRepository plus
// BookingRequestRepository. RunAtomic serialises units on one mutex and
// stages writes on copies, committing them only when fn returns nil,
// the same visibility rules the MySQL transaction gives the engine.
type memStore struct {
	mu            sync.Mutex
	bookings      []model.Booking
	requests      map[uint64]model.BookingRequest
	nextBookingID uint64
	nextRequestID uint64
}

func newMemStore() *memStore {
	return &memStore{requests: make(map[uint64]model.BookingRequest)}
}

func (s *memStore) seedBooking(hostID uint64, start, end time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextBookingID++
	s.bookings = append(s.bookings, model.Booking{
		ID: s.nextBookingID, HostID: hostID,
		StartTime: start, EndTime: end,
		Status: model.BookingConfirmed,
	})
}

func (s *memStore) confirmedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.bookings {
		if b.Status == model.BookingConfirmed {
			n++
		}
	}
	return n
}

func (s *memStore) requestStatus(t *testing.T, id uint64) model.RequestStatus {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		t.Fatalf("request %d not in store", id)
	}
	return req.Status
}

func (s *memStore) FindConfirmedByHostAndDate(_ context.Context, hostID uint64, dayStart, dayEnd time.Time) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterConfirmed(s.bookings, hostID, dayStart, dayEnd), nil
}

func (s *memStore) RunAtomic(ctx context.Context, hostID uint64, fn func(ctx context.Context, unit AtomicUnit) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	unit := &memUnit{
		hostID:   hostID,
		bookings: append([]model.Booking(nil), s.bookings...),
		requests: make(map[uint64]model.BookingRequest, len(s.requests)),
		nextID:   s.nextBookingID,
	}
	for id, r := range s.requests {
		unit.requests[id] = r
	}
	if err := fn(ctx, unit); err != nil {
		return err
	}
	s.bookings = unit.bookings
	s.requests = unit.requests
	s.nextBookingID = unit.nextID
	return nil
}

type memUnit struct {
	hostID   uint64
	bookings []model.Booking
	requests map[uint64]model.BookingRequest
	nextID   uint64
}

func (u *memUnit) FindConfirmedBetween(_ context.Context, from, to time.Time) ([]model.Booking, error) {
	return filterConfirmed(u.bookings, u.hostID, from, to), nil
}

func (u *memUnit) CountConfirmedBetween(_ context.Context, from, to time.Time) (int, error) {
	n := 0
	for _, b := range u.bookings {
		if b.HostID == u.hostID && b.Status == model.BookingConfirmed &&
			!b.StartTime.Before(from) && b.StartTime.Before(to) {
			n++
		}
	}
	return n, nil
}

func (u *memUnit) InsertConfirmed(_ context.Context, b *model.Booking) error {
	// Mirrors the storage uniqueness key on (host_id, start_time, active).
	for _, existing := range u.bookings {
		if existing.HostID == b.HostID && existing.Status == model.BookingConfirmed &&
			existing.StartTime.Equal(b.StartTime) {
			return fmt.Errorf("%w: booking already exists at this start time", ErrConflict)
		}
	}
	u.nextID++
	b.ID = u.nextID
	b.Status = model.BookingConfirmed
	u.bookings = append(u.bookings, *b)
	return nil
}

func (u *memUnit) UpdateRequestStatus(_ context.Context, requestID uint64, status model.RequestStatus) error {
	req, ok := u.requests[requestID]
	if !ok {
		return fmt.Errorf("%w: booking request", ErrNotFound)
	}
	// Compare-and-swap on pending, like the MySQL repository.
	if req.Status != model.RequestPending {
		return fmt.Errorf("%w: request is %s", ErrInvalidState, req.Status)
	}
	req.Status = status
	u.requests[requestID] = req
	return nil
}

func (u *memUnit) UpdateBookingStatus(_ context.Context, bookingID uint64, status model.BookingStatus, at time.Time) error {
	for i, b := range u.bookings {
		if b.ID == bookingID && b.HostID == u.hostID {
			u.bookings[i].Status = status
			if status == model.BookingCancelled {
				t := at
				u.bookings[i].CancelledAt = &t
			}
			return nil
		}
	}
	return fmt.Errorf("%w: booking", ErrNotFound)
}

func (s *memStore) Create(_ context.Context, r *model.BookingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRequestID++
	r.ID = s.nextRequestID
	s.requests[r.ID] = *r
	return nil
}

func (s *memStore) FindByID(_ context.Context, id uint64) (*model.BookingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: booking request", ErrNotFound)
	}
	out := req
	return &out, nil
}

func (s *memStore) FindByToken(_ context.Context, token string) (*model.BookingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.requests {
		if req.ConfirmationToken == token {
			out := req
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: booking request", ErrNotFound)
}

func (s *memStore) UpdateStatus(_ context.Context, id uint64, status model.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return fmt.Errorf("%w: booking request", ErrNotFound)
	}
	if req.Status != model.RequestPending {
		return fmt.Errorf("%w: request is %s", ErrInvalidState, req.Status)
	}
	req.Status = status
	s.requests[id] = req
	return nil
}

func filterConfirmed(bookings []model.Booking, hostID uint64, from, to time.Time) []model.Booking {
	var out []model.Booking
	for _, b := range bookings {
		if b.HostID == hostID && b.Status == model.BookingConfirmed &&
			b.StartTime.Before(to) && b.EndTime.After(from) {
			out = append(out, b)
		}
	}
	return out
}

// engineFixture wires a generator and workflow over the in-memory
// stores with a controllable clock.
type engineFixture struct {
	clock    *fakeClock
	store    *memStore
	busy     *stubBusy
	notifier *recordNotifier
	gen      *SlotGenerator
	wf       *Workflow
}

func newFixture(rules []model.AvailabilityRule, loc *time.Location, now time.Time) *engineFixture {
	f := &engineFixture{
		clock:    &fakeClock{t: now},
		store:    newMemStore(),
		busy:     &stubBusy{},
		notifier: &recordNotifier{},
	}
	accounts := stubAccounts{loc: loc, horizon: 60}
	opts := Options{Now: f.clock.Now}
	f.gen = NewSlotGenerator(accounts, NewRuleSet(rules), f.store, f.busy, opts)
	f.wf = NewWorkflow(f.gen, accounts, f.store, f.store, f.notifier, opts)
	return f
}

func intPtr(v int) *int { return &v }

func rule(weekday int, start, end string, buffer int, cap *int) model.AvailabilityRule {
	return model.AvailabilityRule{
		HostID: 1, Weekday: weekday,
		StartTime: start, EndTime: end,
		BufferMinutes: buffer, MaxBookingsPerDay: cap,
	}
}
