package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/meetkit/booking/internal/model"
	"github.com/meetkit/booking/internal/scheduling"
)

// AvailabilityRuleRepo provides data access to the availability_rules
// table. It implements scheduling.RuleSource; the ORDER BY start_time
// in RulesFor gives the engine the deterministic window order its
// contract requires.
type AvailabilityRuleRepo struct {
	db *sql.DB
}

// NewAvailabilityRuleRepo returns a repo bound to the provided database.
func NewAvailabilityRuleRepo(db *sql.DB) *AvailabilityRuleRepo { return &AvailabilityRuleRepo{db: db} }

const ruleColumns = `id, host_id, weekday, start_time, end_time, buffer_minutes, max_bookings_per_day, created_at`

// Create validates and inserts a rule, populating its ID.
func (r *AvailabilityRuleRepo) Create(ctx context.Context, rule *model.AvailabilityRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", scheduling.ErrValidation, err)
	}
	const q = `INSERT INTO availability_rules (host_id, weekday, start_time, end_time, buffer_minutes, max_bookings_per_day)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rule.HostID, rule.Weekday, rule.StartTime, rule.EndTime, rule.BufferMinutes, rule.MaxBookingsPerDay)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rule.ID = uint64(id)
	return nil
}

// Update rewrites an existing rule owned by the host.
func (r *AvailabilityRuleRepo) Update(ctx context.Context, rule *model.AvailabilityRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", scheduling.ErrValidation, err)
	}
	const q = `UPDATE availability_rules
	           SET weekday = ?, start_time = ?, end_time = ?, buffer_minutes = ?, max_bookings_per_day = ?
	           WHERE id = ? AND host_id = ?`
	res, err := r.db.ExecContext(ctx, q, rule.Weekday, rule.StartTime, rule.EndTime, rule.BufferMinutes, rule.MaxBookingsPerDay, rule.ID, rule.HostID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: availability rule", scheduling.ErrNotFound)
	}
	return nil
}

// Delete removes a rule owned by the host.
func (r *AvailabilityRuleRepo) Delete(ctx context.Context, hostID, ruleID uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM availability_rules WHERE id = ? AND host_id = ?`, ruleID, hostID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: availability rule", scheduling.ErrNotFound)
	}
	return nil
}

// ListByHost returns all of the host's rules ordered by weekday then
// start time, for the host's own management UI.
func (r *AvailabilityRuleRepo) ListByHost(ctx context.Context, hostID uint64) ([]model.AvailabilityRule, error) {
	const q = `SELECT ` + ruleColumns + ` FROM availability_rules WHERE host_id = ? ORDER BY weekday, start_time`
	return r.queryRules(ctx, q, hostID)
}

// RulesFor implements scheduling.RuleSource: the host's windows for one
// weekday ordered by start time.
func (r *AvailabilityRuleRepo) RulesFor(ctx context.Context, hostID uint64, weekday int) ([]model.AvailabilityRule, error) {
	const q = `SELECT ` + ruleColumns + ` FROM availability_rules WHERE host_id = ? AND weekday = ? ORDER BY start_time`
	return r.queryRules(ctx, q, hostID, weekday)
}

func (r *AvailabilityRuleRepo) queryRules(ctx context.Context, q string, args ...any) ([]model.AvailabilityRule, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AvailabilityRule
	for rows.Next() {
		var rule model.AvailabilityRule
		var cap sql.NullInt64
		if err := rows.Scan(&rule.ID, &rule.HostID, &rule.Weekday, &rule.StartTime, &rule.EndTime, &rule.BufferMinutes, &cap, &rule.CreatedAt); err != nil {
			return nil, err
		}
		if cap.Valid {
			v := int(cap.Int64)
			rule.MaxBookingsPerDay = &v
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}
