// Package scheduling implements the availability-and-booking engine:
// turning a host's weekly availability rules, confirmed bookings and
// external calendar busy time into bookable slots, and converting a
// customer's slot selection into a confirmed, non-overlapping booking
// even under concurrent confirm attempts.
package scheduling

import "errors"

// Sentinel errors form the closed failure taxonomy of the engine.
// Callers distinguish them with errors.Is; the HTTP layer maps each to
// a status code. ErrUnavailable is special: the slot generator never
// returns it to callers, it degrades to an internal-bookings-only
// result instead.
var (
	// ErrValidation flags bad input: duration out of bounds, malformed,
	// past or out-of-horizon dates, inverted intervals.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned for an unknown host, request or token.
	ErrNotFound = errors.New("not found")
	// ErrConflict means the slot is taken, whether detected when the
	// request is created or when a confirm loses the race.
	ErrConflict = errors.New("time slot taken")
	// ErrExpired is returned when a confirm arrives after the hold lapsed.
	ErrExpired = errors.New("booking request expired")
	// ErrInvalidState rejects a transition from a terminal request state,
	// including a second confirm of an already confirmed request.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrUnavailable signals that external calendar data is temporarily
	// unreachable.
	ErrUnavailable = errors.New("external calendar unavailable")
)
