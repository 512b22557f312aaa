package model

import "time"

// RequestStatus enumerates the states of a booking request.  pending is
// the only non-terminal state; confirmed, expired and cancelled admit no
// further transitions.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestConfirmed RequestStatus = "confirmed"
	RequestExpired   RequestStatus = "expired"
	RequestCancelled RequestStatus = "cancelled"
)

// BookingRequest is a time-boxed hold placed on a slot while the
// customer confirms.  ConfirmationToken is the opaque secret handed to
// the customer; the hold lapses at ExpiresAt.  A confirmed request
// produces exactly one Booking, a distinct row; the request itself is
// never mutated into a booking.
type BookingRequest struct {
	ID                uint64        // booking_requests.id
	HostID            uint64        // booking_requests.host_id
	StartTime         time.Time     // booking_requests.start_time (UTC)
	EndTime           time.Time     // booking_requests.end_time (UTC)
	CustomerName      string        // booking_requests.customer_name
	CustomerEmail     string        // booking_requests.customer_email
	ConfirmationToken string        // booking_requests.confirmation_token (unique)
	Status            RequestStatus // booking_requests.status
	ExpiresAt         time.Time     // booking_requests.expires_at (UTC)
	CreatedAt         time.Time     // booking_requests.created_at
}
