package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/shelfmark/shelfmark/internal/models"
	"github.com/shelfmark/shelfmark/internal/requests"
)

// GroupLister names the tracked groups for the stats endpoint.
// *groups.Service satisfies it.
type GroupLister interface {
	ListEnabled(ctx context.Context) ([]models.Group, error)
}

// StatsHandler serves /api/stats: request counts by status per group.
type StatsHandler struct {
	store  requests.Store
	groups GroupLister
	logger *slog.Logger
}

// GroupStats is the per-group body of the stats response.
type GroupStats struct {
	GroupID   int64  `json:"group_id"`
	GroupName string `json:"group_name"`
	Pending   int    `json:"pending"`
	Paused    int    `json:"paused"`
	Resolved  int    `json:"resolved"`
	Cancelled int    `json:"cancelled"`
	Total     int    `json:"total"`
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	Groups []GroupStats `json:"groups"`
}

// NewStatsHandler creates a stats handler over the request store.
func NewStatsHandler(log *slog.Logger, store requests.Store, groups GroupLister) *StatsHandler {
	return &StatsHandler{
		store:  store,
		groups: groups,
		logger: log.With(slog.String("handler", "stats")),
	}
}

// Register mounts GET /api/stats on the Echo instance.
func (h *StatsHandler) Register(e *echo.Echo) {
	e.GET("/api/stats", h.Stats)
}

// Stats folds the status counts of every tracked group, or of the single
// group named by the group query parameter.
func (h *StatsHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()

	groups, err := h.groups.ListEnabled(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if raw := c.QueryParam("group"); raw != "" {
		groupID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "group must be a chat id"})
		}
		filtered := groups[:0:0]
		for _, group := range groups {
			if group.ID == groupID {
				filtered = append(filtered, group)
			}
		}
		groups = filtered
	}

	response := StatsResponse{Groups: []GroupStats{}}
	for _, group := range groups {
		counts, err := requests.FoldStatusCounts(ctx, h.store, group.ID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		response.Groups = append(response.Groups, GroupStats{
			GroupID:   group.ID,
			GroupName: group.Name,
			Pending:   counts.Pending,
			Paused:    counts.Paused,
			Resolved:  counts.Resolved,
			Cancelled: counts.Cancelled,
			Total:     counts.Total(),
		})
	}
	return c.JSON(http.StatusOK, response)
}
