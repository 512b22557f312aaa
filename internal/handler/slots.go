package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/meetkit/booking/internal/scheduling"
)

// SlotsHandler exposes the public slot listing. No authentication:
// customers browse a host's open time before holding a slot.
type SlotsHandler struct {
	Generator *scheduling.SlotGenerator
}

// NewSlotsHandler constructs a SlotsHandler.
func NewSlotsHandler(gen *scheduling.SlotGenerator) *SlotsHandler {
	if gen == nil {
		panic("nil slot generator passed to NewSlotsHandler")
	}
	return &SlotsHandler{Generator: gen}
}

// GetSlots handles GET /v1/hosts/:id/slots?date=2006-01-02&duration=60.
// The response carries "partial": true when external calendar data was
// unreachable and the slots reflect internal bookings only.
func (h *SlotsHandler) GetSlots(c echo.Context) error {
	hostID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid host id"})
	}
	date := c.QueryParam("date")
	if date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
	}
	duration, err := strconv.Atoi(c.QueryParam("duration"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration must be an integer number of minutes"})
	}

	result, err := h.Generator.GenerateSlots(c.Request().Context(), hostID, date, duration)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
