// Package repository implements MySQL persistence for hosts,
// availability rules, bookings and booking requests. Methods consumed
// by the scheduling engine translate driver errors into the engine's
// sentinel taxonomy (scheduling.ErrNotFound, scheduling.ErrConflict) so
// handlers and the workflow can branch with errors.Is without knowing
// the storage backend.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrEmailExists is returned when registering a host whose email is
// already taken. Handlers translate it into an HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// isDuplicate reports whether err is a MySQL duplicate-key violation
// (error 1062). The bookings table carries a uniqueness key on
// (host_id, start_time, active) as the storage-level backstop against
// two concurrent confirms inserting the same slot.
func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}
