package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/meetkit/booking/internal/model"
	"github.com/meetkit/booking/internal/repository"
	"github.com/meetkit/booking/internal/scheduling"
)

// HostHandler bundles the authenticated host operations: availability
// rule management and direct control over the host's own bookings.
type HostHandler struct {
	Rules    *repository.AvailabilityRuleRepo
	Bookings *repository.BookingRepo
	Workflow *scheduling.Workflow
}

// NewHostHandler constructs a HostHandler and panics on nil deps.
func NewHostHandler(rules *repository.AvailabilityRuleRepo, bookings *repository.BookingRepo, wf *scheduling.Workflow) *HostHandler {
	if rules == nil || bookings == nil || wf == nil {
		panic("nil dependency passed to NewHostHandler")
	}
	return &HostHandler{Rules: rules, Bookings: bookings, Workflow: wf}
}

type ruleReq struct {
	Weekday           int    `json:"weekday"`    // 0=Sunday..6=Saturday
	StartTime         string `json:"start_time"` // "HH:MM" host-local
	EndTime           string `json:"end_time"`   // "HH:MM" host-local
	BufferMinutes     int    `json:"buffer_minutes"`
	MaxBookingsPerDay *int   `json:"max_bookings_per_day"`
}

type ruleResp struct {
	ID                uint64 `json:"id"`
	Weekday           int    `json:"weekday"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	BufferMinutes     int    `json:"buffer_minutes"`
	MaxBookingsPerDay *int   `json:"max_bookings_per_day,omitempty"`
}

func toRuleResp(r model.AvailabilityRule) ruleResp {
	return ruleResp{
		ID:                r.ID,
		Weekday:           r.Weekday,
		StartTime:         r.StartTime,
		EndTime:           r.EndTime,
		BufferMinutes:     r.BufferMinutes,
		MaxBookingsPerDay: r.MaxBookingsPerDay,
	}
}

// CreateRule handles POST /v1/rules.
func (h *HostHandler) CreateRule(c echo.Context) error {
	hostID, err := getHostID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body ruleReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	rule := model.AvailabilityRule{
		HostID:            hostID,
		Weekday:           body.Weekday,
		StartTime:         body.StartTime,
		EndTime:           body.EndTime,
		BufferMinutes:     body.BufferMinutes,
		MaxBookingsPerDay: body.MaxBookingsPerDay,
	}
	if err := h.Rules.Create(c.Request().Context(), &rule); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toRuleResp(rule))
}

// ListRules handles GET /v1/rules.
func (h *HostHandler) ListRules(c echo.Context) error {
	hostID, err := getHostID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	rules, err := h.Rules.ListByHost(c.Request().Context(), hostID)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]ruleResp, 0, len(rules))
	for _, r := range rules {
		out = append(out, toRuleResp(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"rules": out})
}

// UpdateRule handles PUT /v1/rules/:id.
func (h *HostHandler) UpdateRule(c echo.Context) error {
	hostID, err := getHostID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ruleID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rule id"})
	}
	var body ruleReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	rule := model.AvailabilityRule{
		ID:                ruleID,
		HostID:            hostID,
		Weekday:           body.Weekday,
		StartTime:         body.StartTime,
		EndTime:           body.EndTime,
		BufferMinutes:     body.BufferMinutes,
		MaxBookingsPerDay: body.MaxBookingsPerDay,
	}
	if err := h.Rules.Update(c.Request().Context(), &rule); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toRuleResp(rule))
}

// DeleteRule handles DELETE /v1/rules/:id.
func (h *HostHandler) DeleteRule(c echo.Context) error {
	hostID, err := getHostID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ruleID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rule id"})
	}
	if err := h.Rules.Delete(c.Request().Context(), hostID, ruleID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListBookings handles GET /v1/bookings?limit=&offset=.
func (h *HostHandler) ListBookings(c echo.Context) error {
	hostID, err := getHostID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit := 50
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v > 0 {
		offset = v
	}
	bookings, err := h.Bookings.ListByHost(c.Request().Context(), hostID, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]bookingResp, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, bookingResp{ID: b.ID, HostID: b.HostID, Start: b.StartTime, End: b.EndTime, Status: string(b.Status)})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

type directBookingReq struct {
	Start         time.Time `json:"start"` // RFC3339
	End           time.Time `json:"end"`   // RFC3339
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
}

// CreateBooking handles POST /v1/bookings. The host blocks their own
// time directly, skipping the hold/confirm flow but sharing its atomic
// overlap guard.
func (h *HostHandler) CreateBooking(c echo.Context) error {
	hostID, err := getHostID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body directBookingReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	booking, err := h.Workflow.BookDirect(c.Request().Context(), hostID,
		scheduling.Interval{Start: body.Start, End: body.End},
		scheduling.CustomerInfo{Name: body.CustomerName, Email: body.CustomerEmail})
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

// CancelBooking handles DELETE /v1/bookings/:id. The row is retained in
// cancelled state and stops blocking the host's time.
func (h *HostHandler) CancelBooking(c echo.Context) error {
	hostID, err := getHostID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	if err := h.Workflow.CancelBooking(c.Request().Context(), hostID, bookingID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
