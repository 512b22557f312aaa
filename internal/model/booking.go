package model

import "time"

// BookingStatus enumerates the durable states of a booking.  Cancelled
// bookings are retained for history but no longer block the host's time.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is a durable, confirmed reservation of a host's time.  Start
// and end are absolute UTC instants forming a half-open interval
// [StartTime, EndTime).  No two confirmed bookings for the same host may
// overlap; that invariant is enforced by the confirm workflow.
type Booking struct {
	ID            uint64        // bookings.id
	HostID        uint64        // bookings.host_id
	StartTime     time.Time     // bookings.start_time (UTC)
	EndTime       time.Time     // bookings.end_time (UTC)
	Status        BookingStatus // bookings.status
	CustomerName  string        // bookings.customer_name
	CustomerEmail string        // bookings.customer_email
	CreatedAt     time.Time     // bookings.created_at
	CancelledAt   *time.Time    // bookings.cancelled_at (nullable)
}
