// Package handlers provides the HTTP handlers of the ops API.
package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/shelfmark/shelfmark/internal/auth"
)

// AuthHandler serves /auth/login and issues JWTs. A single admin credential
// is configured as a bcrypt hash; there is no user database behind the ops
// API.
type AuthHandler struct {
	passwordHash string
	jwtSecret    string
	expiresIn    time.Duration
	logger       *slog.Logger
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse is the success body (access_token, expires_at).
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"expires_at"`
}

// NewAuthHandler creates an auth handler with the admin credential and JWT config.
func NewAuthHandler(log *slog.Logger, passwordHash, jwtSecret string, expiresIn time.Duration) *AuthHandler {
	return &AuthHandler{
		passwordHash: passwordHash,
		jwtSecret:    jwtSecret,
		expiresIn:    expiresIn,
		logger:       log.With(slog.String("handler", "auth")),
	}
}

// Register mounts POST /auth/login on the Echo instance.
func (h *AuthHandler) Register(e *echo.Echo) {
	e.POST("/auth/login", h.Login)
}

// Login validates the admin password and issues a JWT.
func (h *AuthHandler) Login(c echo.Context) error {
	if strings.TrimSpace(h.passwordHash) == "" {
		return echo.NewHTTPError(http.StatusInternalServerError, "admin credential not configured")
	}
	if strings.TrimSpace(h.jwtSecret) == "" {
		return echo.NewHTTPError(http.StatusInternalServerError, "jwt secret not configured")
	}
	if h.expiresIn <= 0 {
		return echo.NewHTTPError(http.StatusInternalServerError, "jwt expiry not configured")
	}

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	}
	if strings.TrimSpace(req.Password) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "password is required"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.passwordHash), []byte(req.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "invalid credentials"})
	}

	token, expiresAt, err := auth.GenerateToken("admin", h.jwtSecret, h.expiresIn)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	})
}
