package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/meetkit/booking/internal/config"
	"github.com/meetkit/booking/internal/repository"
	"github.com/meetkit/booking/internal/utils"
)

// AuthHandler bundles dependencies for host account endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Hosts *repository.HostRepo
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(cfg config.Config, hosts *repository.HostRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Hosts: hosts}
}

type registerReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Timezone    string `json:"timezone"`     // IANA name, e.g. "Europe/Berlin"
	HorizonDays int    `json:"horizon_days"` // how far ahead customers may book
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type hostPart struct {
	ID          uint64 `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Timezone    string `json:"timezone"`
}

type authResp struct {
	Host   hostPart  `json:"host"`
	Access tokenPart `json:"access"`
}

// Register creates a host account and returns an access token
// immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}
	if req.HorizonDays <= 0 {
		req.HorizonDays = 60
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Hosts.Create(ctx, req.Email, req.Password, req.DisplayName, req.Timezone, req.HorizonDays, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrEmailExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return respondError(c, err)
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, id, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusCreated, authResp{
		Host:   hostPart{ID: id, Email: req.Email, DisplayName: req.DisplayName, Timezone: req.Timezone},
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Login verifies the password and issues an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	host, err := h.Hosts.GetByEmail(ctx, req.Email)
	if err != nil || !utils.VerifyPassword(host.PasswordHash, req.Password) {
		// Same response for unknown email and wrong password.
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, host.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, authResp{
		Host:   hostPart{ID: host.ID, Email: host.Email, DisplayName: host.DisplayName, Timezone: host.Timezone},
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Me returns the authenticated host's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	hostID, err := getHostID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	host, err := h.Hosts.GetByID(c.Request().Context(), hostID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, hostPart{ID: host.ID, Email: host.Email, DisplayName: host.DisplayName, Timezone: host.Timezone})
}
