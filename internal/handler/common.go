// Package handler contains the echo HTTP handlers. Handlers stay thin:
// they bind and validate transport input, call the scheduling engine or
// a repository, and map the engine's error taxonomy onto status codes.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/meetkit/booking/internal/scheduling"
)

// getHostID extracts the authenticated host's ID placed in the context
// by the JWT middleware.
func getHostID(c echo.Context) (uint64, error) {
	v := c.Get("host_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid host_id in context")
}

// respondError maps the scheduling error taxonomy to HTTP statuses.
// ErrConflict is the expected outcome of losing a booking race and is
// reported as 409, never as a server error.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, scheduling.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, scheduling.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, scheduling.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "time slot taken"})
	case errors.Is(err, scheduling.ErrExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "booking request expired"})
	case errors.Is(err, scheduling.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// paramID parses a numeric path parameter.
func paramID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}
