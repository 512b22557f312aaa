// Package queue defines message payloads exchanged over the message
// broker and the background consumer that delivers notifications.
package queue

// BookingConfirmedEvent is published when a booking request is
// successfully confirmed. It carries enough context for downstream
// consumers (email/SMS senders, analytics) to act without querying the
// primary database.
type BookingConfirmedEvent struct {
	BookingID     uint64 `json:"booking_id"`
	HostID        uint64 `json:"host_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	StartsAt      string `json:"starts_at"` // RFC3339, UTC
	EndsAt        string `json:"ends_at"`   // RFC3339, UTC
	ConfirmedAt   string `json:"confirmed_at"`
}
