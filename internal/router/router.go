// Package router registers the HTTP routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/meetkit/booking/internal/handler"
	"github.com/meetkit/booking/internal/middleware"
)

// RegisterRoutes wires every route group. public rate limiting applies
// to the unauthenticated slot and request endpoints only; host
// endpoints sit behind JWT auth instead.
func RegisterRoutes(e *echo.Echo, jwtSecret string, rateLimit echo.MiddlewareFunc,
	auth *handler.AuthHandler, slots *handler.SlotsHandler,
	requests *handler.BookingRequestHandler, host *handler.HostHandler,
	cal *handler.CalendarHandler) {

	e.GET("/healthz", handler.Health)

	// Host account endpoints.
	e.POST("/v1/auth/register", auth.Register)
	e.POST("/v1/auth/login", auth.Login)

	// Public booking surface: browse slots, hold, confirm, cancel.
	pub := e.Group("/v1")
	pub.Use(rateLimit)
	pub.GET("/hosts/:id/slots", slots.GetSlots)
	pub.POST("/hosts/:id/requests", requests.CreateRequest)
	pub.GET("/requests/:token", requests.GetRequest)
	pub.POST("/requests/confirm/:token", requests.ConfirmRequest)
	pub.DELETE("/requests/:id", requests.CancelRequest)

	// Authenticated host endpoints.
	priv := e.Group("/v1")
	priv.Use(middleware.JWTAuth(jwtSecret))
	priv.GET("/me", auth.Me)
	priv.POST("/rules", host.CreateRule)
	priv.GET("/rules", host.ListRules)
	priv.PUT("/rules/:id", host.UpdateRule)
	priv.DELETE("/rules/:id", host.DeleteRule)
	priv.GET("/bookings", host.ListBookings)
	priv.POST("/bookings", host.CreateBooking)
	priv.DELETE("/bookings/:id", host.CancelBooking)
	priv.GET("/calendar/connect", cal.Connect)

	// The OAuth redirect arrives without our JWT.
	e.GET("/v1/calendar/callback", cal.Callback)
}
