package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/meetkit/booking/internal/model"
	"github.com/meetkit/booking/internal/scheduling"
)

// BookingRequestRepo provides data access to the booking_requests table
// and implements scheduling.BookingRequestRepository. Requests are the
// ephemeral holds customers place on a slot; rows stay behind in their
// terminal state for audit rather than being deleted.
type BookingRequestRepo struct {
	db *sql.DB
}

// NewBookingRequestRepo returns a repo bound to the provided database.
func NewBookingRequestRepo(db *sql.DB) *BookingRequestRepo { return &BookingRequestRepo{db: db} }

const requestColumns = `id, host_id, start_time, end_time, customer_name, customer_email, confirmation_token, status, expires_at, created_at`

// Create inserts a pending request, populating its ID.
func (r *BookingRequestRepo) Create(ctx context.Context, req *model.BookingRequest) error {
	const q = `INSERT INTO booking_requests
	           (host_id, start_time, end_time, customer_name, customer_email, confirmation_token, status, expires_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		req.HostID, req.StartTime.UTC(), req.EndTime.UTC(),
		req.CustomerName, req.CustomerEmail, req.ConfirmationToken,
		string(req.Status), req.ExpiresAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	req.ID = uint64(id)
	return nil
}

// FindByID loads a request by primary key.
func (r *BookingRequestRepo) FindByID(ctx context.Context, id uint64) (*model.BookingRequest, error) {
	const q = `SELECT ` + requestColumns + ` FROM booking_requests WHERE id = ?`
	return r.scanRequest(r.db.QueryRowContext(ctx, q, id))
}

// FindByToken loads a request by its confirmation token.
func (r *BookingRequestRepo) FindByToken(ctx context.Context, token string) (*model.BookingRequest, error) {
	const q = `SELECT ` + requestColumns + ` FROM booking_requests WHERE confirmation_token = ?`
	return r.scanRequest(r.db.QueryRowContext(ctx, q, token))
}

// UpdateStatus transitions a request outside the atomic confirm unit
// (expiry persisted on read paths, cancels). The write is a
// compare-and-swap guarded on status = 'pending': pending is the only
// state with exits, and a caller acting on a stale read must not drag a
// request back out of a terminal state. A request that already left
// pending yields ErrInvalidState.
func (r *BookingRequestRepo) UpdateStatus(ctx context.Context, id uint64, status model.RequestStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE booking_requests SET status = ? WHERE id = ? AND status = 'pending'`,
		string(status), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var current string
		err := r.db.QueryRowContext(ctx, `SELECT status FROM booking_requests WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: booking request", scheduling.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: request is %s", scheduling.ErrInvalidState, current)
	}
	return nil
}

func (r *BookingRequestRepo) scanRequest(row *sql.Row) (*model.BookingRequest, error) {
	var req model.BookingRequest
	var status string
	err := row.Scan(&req.ID, &req.HostID, &req.StartTime, &req.EndTime,
		&req.CustomerName, &req.CustomerEmail, &req.ConfirmationToken,
		&status, &req.ExpiresAt, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: booking request", scheduling.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	req.Status = model.RequestStatus(status)
	return &req, nil
}
