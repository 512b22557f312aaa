package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/meetkit/booking/internal/model"
	"github.com/meetkit/booking/internal/scheduling"
	"github.com/meetkit/booking/internal/utils"
)

// HostRepo provides data access to the hosts table. It doubles as the
// scheduling engine's AccountDirectory: timezone and booking horizon
// live on the host row.
type HostRepo struct {
	db *sql.DB
}

// NewHostRepo returns a HostRepo bound to the provided database.
func NewHostRepo(db *sql.DB) *HostRepo { return &HostRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// spanning multiple repositories.
func (r *HostRepo) DB() *sql.DB { return r.db }

// Create inserts a new host with a bcrypt-hashed password and returns
// the generated ID. A duplicate email yields ErrEmailExists.
func (r *HostRepo) Create(ctx context.Context, email, password, displayName, timezone string, horizonDays, bcryptCost int) (uint64, error) {
	if _, err := time.LoadLocation(timezone); err != nil {
		return 0, fmt.Errorf("%w: unknown timezone %q", scheduling.ErrValidation, timezone)
	}
	hash, err := utils.HashPassword(password, bcryptCost)
	if err != nil {
		return 0, err
	}
	const q = `INSERT INTO hosts (email, password_hash, display_name, timezone, booking_horizon_days) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, email, hash, displayName, timezone, horizonDays)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail loads a host by email for login. Unknown emails return
// scheduling.ErrNotFound.
func (r *HostRepo) GetByEmail(ctx context.Context, email string) (*model.Host, error) {
	const q = `SELECT id, email, password_hash, display_name, timezone, booking_horizon_days, created_at
	           FROM hosts WHERE email = ?`
	return r.scanHost(r.db.QueryRowContext(ctx, q, email))
}

// GetByID loads a host by primary key.
func (r *HostRepo) GetByID(ctx context.Context, id uint64) (*model.Host, error) {
	const q = `SELECT id, email, password_hash, display_name, timezone, booking_horizon_days, created_at
	           FROM hosts WHERE id = ?`
	return r.scanHost(r.db.QueryRowContext(ctx, q, id))
}

func (r *HostRepo) scanHost(row *sql.Row) (*model.Host, error) {
	var h model.Host
	err := row.Scan(&h.ID, &h.Email, &h.PasswordHash, &h.DisplayName, &h.Timezone, &h.BookingHorizonDays, &h.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: host", scheduling.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// GetHostTimezone implements scheduling.AccountDirectory.
func (r *HostRepo) GetHostTimezone(ctx context.Context, hostID uint64) (*time.Location, error) {
	h, err := r.GetByID(ctx, hostID)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return nil, fmt.Errorf("host %d has invalid timezone %q: %w", hostID, h.Timezone, err)
	}
	return loc, nil
}

// GetBookingHorizonDays implements scheduling.AccountDirectory.
func (r *HostRepo) GetBookingHorizonDays(ctx context.Context, hostID uint64) (int, error) {
	h, err := r.GetByID(ctx, hostID)
	if err != nil {
		return 0, err
	}
	return h.BookingHorizonDays, nil
}
