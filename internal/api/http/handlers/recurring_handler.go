package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hubops/internal/api/dto"
	"github.com/spec-kit/hubops/internal/auth"
	"github.com/spec-kit/hubops/internal/domain"
	"github.com/spec-kit/hubops/internal/repository"
	"github.com/spec-kit/hubops/internal/service"
	apperrors "github.com/spec-kit/hubops/pkg/util/errorutil"
)

const runDateLayout = "2006-01-02"

// RecurringHandler manages recurring task definition endpoints (GM only).
type RecurringHandler struct {
	recurring   *service.RecurringTaskService
	departments repository.DepartmentRepository
}

// NewRecurringHandler constructs the handler.
func NewRecurringHandler(recurring *service.RecurringTaskService, departments repository.DepartmentRepository) *RecurringHandler {
	return &RecurringHandler{recurring: recurring, departments: departments}
}

// List GET /recurring-tasks.
func (h *RecurringHandler) List(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tasks, err := h.recurring.List(c.Context(), user)
	if err != nil {
		return err
	}
	items := make([]dto.RecurringTaskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, h.taskResponse(c, &tasks[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /recurring-tasks.
func (h *RecurringHandler) Create(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	input, err := h.parseInput(c)
	if err != nil {
		return err
	}
	task, err := h.recurring.Create(c.Context(), user, *input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": h.taskResponse(c, task)})
}

// Update PUT /recurring-tasks/:id.
func (h *RecurringHandler) Update(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	input, err := h.parseInput(c)
	if err != nil {
		return err
	}
	task, err := h.recurring.Update(c.Context(), user, c.Params("id"), *input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.taskResponse(c, task)})
}

// Delete DELETE /recurring-tasks/:id.
func (h *RecurringHandler) Delete(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.recurring.Delete(c.Context(), user, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *RecurringHandler) parseInput(c *fiber.Ctx) (*service.RecurringTaskInput, error) {
	var req dto.RecurringTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, apperrors.NewValidationError("invalid payload", nil)
	}
	runDate, err := time.Parse(runDateLayout, req.NextRunDate)
	if err != nil {
		return nil, apperrors.NewValidationError("next_run_date must be YYYY-MM-DD", map[string]any{"next_run_date": req.NextRunDate})
	}
	return &service.RecurringTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		FrequencyDays:  req.FrequencyDays,
		DepartmentName: req.Department,
		NextRunDate:    runDate,
	}, nil
}

func (h *RecurringHandler) taskResponse(c *fiber.Ctx, task *domain.RecurringTask) dto.RecurringTaskResponse {
	resp := dto.RecurringTaskResponse{
		ID:             task.ID,
		Title:          task.Title,
		Description:    task.Description,
		FrequencyDays:  task.FrequencyDays,
		AssignedDeptID: task.AssignedDeptID,
		NextRunDate:    task.NextRunDate.Format(runDateLayout),
		CreatedAt:      task.CreatedAt,
	}
	if dept, err := h.departments.GetByID(c.Context(), task.AssignedDeptID); err == nil {
		resp.AssignedDept = &dept.Name
	}
	return resp
}
