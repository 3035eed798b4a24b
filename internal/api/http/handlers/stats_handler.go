package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hubops/internal/auth"
	"github.com/spec-kit/hubops/internal/service"
	apperrors "github.com/spec-kit/hubops/pkg/util/errorutil"
)

// StatsHandler serves the GM dashboard aggregates.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Dashboard GET /stats/dashboard.
func (h *StatsHandler) Dashboard(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	stats, err := h.stats.Dashboard(c.Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}
