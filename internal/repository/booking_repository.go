package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/meetkit/booking/internal/model"
	"github.com/meetkit/booking/internal/scheduling"
)

// BookingRepo provides data access to the bookings table and implements
// scheduling.BookingRepository. All instants are stored as UTC
// DATETIMEs; the DSN's parseTime/loc=UTC settings keep scans
// consistent.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, host_id, start_time, end_time, status, customer_name, customer_email, created_at, cancelled_at`

// FindConfirmedByHostAndDate returns the host's confirmed bookings
// touching the half-open range [dayStart, dayEnd).
func (r *BookingRepo) FindConfirmedByHostAndDate(ctx context.Context, hostID uint64, dayStart, dayEnd time.Time) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE host_id = ? AND status = 'confirmed' AND start_time < ? AND end_time > ?
	           ORDER BY start_time`
	return queryBookings(ctx, r.db, q, hostID, dayEnd.UTC(), dayStart.UTC())
}

// ListByHost returns the host's bookings newest first, for the host's
// own dashboard. Cancelled bookings are included.
func (r *BookingRepo) ListByHost(ctx context.Context, hostID uint64, limit, offset int) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE host_id = ? ORDER BY start_time DESC LIMIT ? OFFSET ?`
	return queryBookings(ctx, r.db, q, hostID, limit, offset)
}

// RunAtomic implements the engine's single atomic unit of work. The
// host row is locked with SELECT ... FOR UPDATE for the duration of fn,
// serialising every confirm and direct booking creation for that host;
// the lock is short-lived (one re-check plus at most two writes)
// so contention resolves in milliseconds rather than held locks.
func (r *BookingRepo) RunAtomic(ctx context.Context, hostID uint64, fn func(ctx context.Context, unit scheduling.AtomicUnit) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var locked uint64
	err = tx.QueryRowContext(ctx, `SELECT id FROM hosts WHERE id = ? FOR UPDATE`, hostID).Scan(&locked)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: host", scheduling.ErrNotFound)
	}
	if err != nil {
		return err
	}

	if err := fn(ctx, &bookingUnit{tx: tx, hostID: hostID}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// bookingUnit is the transactional write handle handed to RunAtomic
// callbacks.
type bookingUnit struct {
	tx     *sql.Tx
	hostID uint64
}

func (u *bookingUnit) FindConfirmedBetween(ctx context.Context, from, to time.Time) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE host_id = ? AND status = 'confirmed' AND start_time < ? AND end_time > ?
	           ORDER BY start_time`
	return queryBookings(ctx, u.tx, q, u.hostID, to.UTC(), from.UTC())
}

func (u *bookingUnit) CountConfirmedBetween(ctx context.Context, from, to time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM bookings
	           WHERE host_id = ? AND status = 'confirmed' AND start_time >= ? AND start_time < ?`
	var n int
	err := u.tx.QueryRowContext(ctx, q, u.hostID, from.UTC(), to.UTC()).Scan(&n)
	return n, err
}

// InsertConfirmed persists a confirmed booking. The active column is 1
// for confirmed rows and NULL for cancelled ones, so the unique key
// (host_id, start_time, active) rejects a second confirmed booking at
// the same start while letting a cancelled slot be rebooked. A
// duplicate-key violation is mapped to scheduling.ErrConflict.
func (u *bookingUnit) InsertConfirmed(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (host_id, start_time, end_time, status, customer_name, customer_email, active)
	           VALUES (?, ?, ?, 'confirmed', ?, ?, 1)`
	res, err := u.tx.ExecContext(ctx, q, b.HostID, b.StartTime.UTC(), b.EndTime.UTC(), b.CustomerName, b.CustomerEmail)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: booking already exists at this start time", scheduling.ErrConflict)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Status = model.BookingConfirmed
	return nil
}

// UpdateRequestStatus transitions a request inside the unit. Guarded on
// status = 'pending' like BookingRequestRepo.UpdateStatus: a confirm
// acting on a stale pending read fails with ErrInvalidState here, which
// rolls the whole unit back instead of overwriting a terminal state.
func (u *bookingUnit) UpdateRequestStatus(ctx context.Context, requestID uint64, status model.RequestStatus) error {
	res, err := u.tx.ExecContext(ctx,
		`UPDATE booking_requests SET status = ? WHERE id = ? AND host_id = ? AND status = 'pending'`,
		string(status), requestID, u.hostID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var current string
		err := u.tx.QueryRowContext(ctx,
			`SELECT status FROM booking_requests WHERE id = ? AND host_id = ?`,
			requestID, u.hostID).Scan(&current)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: booking request", scheduling.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: request is %s", scheduling.ErrInvalidState, current)
	}
	return nil
}

func (u *bookingUnit) UpdateBookingStatus(ctx context.Context, bookingID uint64, status model.BookingStatus, at time.Time) error {
	var q string
	var args []any
	if status == model.BookingCancelled {
		q = `UPDATE bookings SET status = ?, cancelled_at = ?, active = NULL WHERE id = ? AND host_id = ?`
		args = []any{string(status), at.UTC(), bookingID, u.hostID}
	} else {
		q = `UPDATE bookings SET status = ?, active = 1 WHERE id = ? AND host_id = ?`
		args = []any{string(status), bookingID, u.hostID}
	}
	res, err := u.tx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: booking", scheduling.ErrNotFound)
	}
	return nil
}

// queryer lets the same scan helpers serve *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryBookings(ctx context.Context, db queryer, q string, args ...any) ([]model.Booking, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		var status string
		var cancelledAt sql.NullTime
		if err := rows.Scan(&b.ID, &b.HostID, &b.StartTime, &b.EndTime, &status, &b.CustomerName, &b.CustomerEmail, &b.CreatedAt, &cancelledAt); err != nil {
			return nil, err
		}
		b.Status = model.BookingStatus(status)
		if cancelledAt.Valid {
			t := cancelledAt.Time
			b.CancelledAt = &t
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
