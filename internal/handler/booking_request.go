package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/meetkit/booking/internal/scheduling"
)

// BookingRequestHandler exposes the public hold/confirm/cancel flow.
// Creating a request and confirming it are unauthenticated; the
// confirmation token is the credential.
type BookingRequestHandler struct {
	Workflow *scheduling.Workflow
}

// NewBookingRequestHandler constructs a BookingRequestHandler.
func NewBookingRequestHandler(wf *scheduling.Workflow) *BookingRequestHandler {
	if wf == nil {
		panic("nil workflow passed to NewBookingRequestHandler")
	}
	return &BookingRequestHandler{Workflow: wf}
}

type createRequestReq struct {
	Start         time.Time `json:"start"` // RFC3339
	End           time.Time `json:"end"`   // RFC3339
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
}

type requestResp struct {
	ID                uint64    `json:"id"`
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	Status            string    `json:"status"`
	ConfirmationToken string    `json:"confirmation_token"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// CreateRequest handles POST /v1/hosts/:id/requests. The chosen slot is
// re-validated against the current bookings; a 409 means someone got
// there first and the customer should pick another slot.
func (h *BookingRequestHandler) CreateRequest(c echo.Context) error {
	hostID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid host id"})
	}
	var body createRequestReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	req, err := h.Workflow.Create(c.Request().Context(), hostID,
		scheduling.Interval{Start: body.Start, End: body.End},
		scheduling.CustomerInfo{Name: body.CustomerName, Email: body.CustomerEmail})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, requestResp{
		ID:                req.ID,
		Start:             req.StartTime,
		End:               req.EndTime,
		Status:            string(req.Status),
		ConfirmationToken: req.ConfirmationToken,
		ExpiresAt:         req.ExpiresAt,
	})
}

type bookingResp struct {
	ID     uint64    `json:"id"`
	HostID uint64    `json:"host_id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Status string    `json:"status"`
}

// ConfirmRequest handles POST /v1/requests/confirm/:token. Exactly one
// of two racing confirms for overlapping slots succeeds; the loser gets
// a 409 "time slot taken".
func (h *BookingRequestHandler) ConfirmRequest(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	}
	booking, err := h.Workflow.Confirm(c.Request().Context(), token)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, bookingResp{
		ID:     booking.ID,
		HostID: booking.HostID,
		Start:  booking.StartTime,
		End:    booking.EndTime,
		Status: string(booking.Status),
	})
}

// CancelRequest handles DELETE /v1/requests/:id for a pending hold.
func (h *BookingRequestHandler) CancelRequest(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}
	if err := h.Workflow.Cancel(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetRequest handles GET /v1/requests/:token, returning the request
// with lazy expiry applied so a lapsed pending hold reads as expired.
func (h *BookingRequestHandler) GetRequest(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	}
	req, err := h.Workflow.LookupRequest(c.Request().Context(), token)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, requestResp{
		ID:                req.ID,
		Start:             req.StartTime,
		End:               req.EndTime,
		Status:            string(req.Status),
		ConfirmationToken: req.ConfirmationToken,
		ExpiresAt:         req.ExpiresAt,
	})
}
