package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hubops/internal/api/dto"
	"github.com/spec-kit/hubops/internal/scheduler"
	"github.com/spec-kit/hubops/pkg/util/clock"
)

// SchedulerHandler exposes an on-demand scheduler pass. The ticker worker
// drives periodic passes; this endpoint exists for cron-style deployments
// and manual catch-up.
type SchedulerHandler struct {
	scheduler *scheduler.Scheduler
	clk       clock.Clock
}

// NewSchedulerHandler constructs the handler.
func NewSchedulerHandler(sched *scheduler.Scheduler, clk clock.Clock) *SchedulerHandler {
	return &SchedulerHandler{scheduler: sched, clk: clk}
}

// Run POST /scheduler/check.
func (h *SchedulerHandler) Run(c *fiber.Ctx) error {
	result, err := h.scheduler.Run(c.Context(), h.clk.Now())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SchedulerRunResponse{
		Created:  result.Created,
		Advanced: result.Advanced,
	}})
}
