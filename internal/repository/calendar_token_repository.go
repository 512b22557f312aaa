package repository

import (
	"context"
	"database/sql"
	"errors"
)

// CalendarTokenRepo stores the OAuth token JSON for a host's connected
// Google calendar. One token per host; reconnecting overwrites.
type CalendarTokenRepo struct {
	db *sql.DB
}

// NewCalendarTokenRepo returns a repo bound to the provided database.
func NewCalendarTokenRepo(db *sql.DB) *CalendarTokenRepo { return &CalendarTokenRepo{db: db} }

// Save upserts the serialized oauth2 token for the host.
func (r *CalendarTokenRepo) Save(ctx context.Context, hostID uint64, tokenJSON []byte) error {
	const q = `INSERT INTO calendar_tokens (host_id, token_json) VALUES (?, ?)
	           ON DUPLICATE KEY UPDATE token_json = VALUES(token_json)`
	_, err := r.db.ExecContext(ctx, q, hostID, tokenJSON)
	return err
}

// Get returns the stored token JSON, or (nil, nil) when the host has no
// calendar connected; the busy provider treats that as "no busy time".
func (r *CalendarTokenRepo) Get(ctx context.Context, hostID uint64) ([]byte, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT token_json FROM calendar_tokens WHERE host_id = ?`, hostID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Delete disconnects the host's calendar.
func (r *CalendarTokenRepo) Delete(ctx context.Context, hostID uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM calendar_tokens WHERE host_id = ?`, hostID)
	return err
}
