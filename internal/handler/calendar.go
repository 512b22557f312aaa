package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/meetkit/booking/internal/calendar"
)

// CalendarHandler lets a host connect their Google calendar so its busy
// time is subtracted from generated slots. Provider may be nil when the
// integration is not configured; both endpoints then answer 503.
type CalendarHandler struct {
	Provider *calendar.GoogleBusyProvider
}

// NewCalendarHandler constructs a CalendarHandler.
func NewCalendarHandler(p *calendar.GoogleBusyProvider) *CalendarHandler {
	return &CalendarHandler{Provider: p}
}

// Connect handles GET /v1/calendar/connect and returns the Google
// consent URL. The OAuth state parameter carries the host ID back
// through the callback.
func (h *CalendarHandler) Connect(c echo.Context) error {
	if h.Provider == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "calendar integration not configured"})
	}
	hostID, err := getHostID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	state := fmt.Sprintf("host_%d", hostID)
	return c.JSON(http.StatusOK, echo.Map{"auth_url": h.Provider.AuthCodeURL(state), "state": state})
}

// Callback handles GET /v1/calendar/callback, exchanging the code and
// storing the token for the host named in the state parameter.
func (h *CalendarHandler) Callback(c echo.Context) error {
	if h.Provider == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "calendar integration not configured"})
	}
	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if code == "" || !strings.HasPrefix(state, "host_") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code and state are required"})
	}
	hostID, err := strconv.ParseUint(strings.TrimPrefix(state, "host_"), 10, 64)
	if err != nil || hostID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid state"})
	}
	if err := h.Provider.Exchange(c.Request().Context(), hostID, code); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "failed to exchange authorization code"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "calendar connected"})
}
