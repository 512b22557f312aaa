package model

import "time"

// Host is an account that publishes bookable time.  The timezone is an
// IANA name ("Europe/Berlin") and every wall-clock value in the host's
// availability rules is interpreted in that zone.  BookingHorizonDays
// bounds how far into the future customers may request slots.
type Host struct {
	ID                 uint64    // hosts.id
	Email              string    // hosts.email (unique, lowercased)
	PasswordHash       string    // hosts.password_hash (bcrypt)
	DisplayName        string    // hosts.display_name
	Timezone           string    // hosts.timezone (IANA zone name)
	BookingHorizonDays int       // hosts.booking_horizon_days
	CreatedAt          time.Time // hosts.created_at
}
