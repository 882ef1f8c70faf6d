package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shelfmark/shelfmark/internal/version"
)

// PingHandler answers liveness probes for the ops API.
type PingHandler struct {
	logger *slog.Logger
}

// PingResponse is the body of GET /ping.
type PingResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// NewPingHandler creates a ping handler.
func NewPingHandler(log *slog.Logger) *PingHandler {
	return &PingHandler{logger: log.With(slog.String("handler", "ping"))}
}

// Register mounts GET /ping and HEAD /health on the Echo instance.
func (h *PingHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
	e.HEAD("/health", h.Health)
}

// Ping reports that the bot is up, with the running version.
func (h *PingHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, PingResponse{
		Status:  "ok",
		Version: version.GetInfo(),
	})
}

// Health returns 200 with no body for load-balancer checks.
func (h *PingHandler) Health(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}
