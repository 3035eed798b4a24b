package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hubops/internal/api/dto"
	"github.com/spec-kit/hubops/internal/auth"
	"github.com/spec-kit/hubops/internal/domain"
	"github.com/spec-kit/hubops/internal/repository"
	"github.com/spec-kit/hubops/internal/service"
	"github.com/spec-kit/hubops/internal/workflow"
	"github.com/spec-kit/hubops/pkg/util/clock"
	apperrors "github.com/spec-kit/hubops/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints for all four roles.
type TicketsHandler struct {
	tickets     *service.TicketService
	engine      *workflow.Engine
	departments repository.DepartmentRepository
	clock       clock.Clock
}

// NewTicketsHandler constructs the handler.
func NewTicketsHandler(tickets *service.TicketService, engine *workflow.Engine, departments repository.DepartmentRepository, clk clock.Clock) *TicketsHandler {
	if clk == nil {
		clk = clock.System()
	}
	return &TicketsHandler{tickets: tickets, engine: engine, departments: departments, clock: clk}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.CreateTicket(c.Context(), user, workflow.CreateTicketInput{
		Type:        req.Type,
		Priority:    req.Priority,
		Description: req.Description,
		Anonymous:   req.Anonymous,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": h.ticketResponse(c, ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var statuses []domain.TicketStatus
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			statuses = append(statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 100)
	tickets, err := h.tickets.ListTicketsFor(c.Context(), user, statuses, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, h.ticketResponse(c, &tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.tickets.GetTicket(c.Context(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketResponse(c, ticket)})
}

// ApplyAction POST /tickets/:id/action.
func (h *TicketsHandler) ApplyAction(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ActionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	action, err := h.buildAction(c, req)
	if err != nil {
		return err
	}
	ticket, err := h.engine.ApplyAction(c.Context(), workflow.ActorFromUser(user), c.Params("id"), action)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketResponse(c, ticket)})
}

// Feedback POST /tickets/:id/feedback.
func (h *TicketsHandler) Feedback(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.RateTicket(c.Context(), user, c.Params("id"), req.Rating)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketResponse(c, ticket)})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	limit := parseInt(c.Query("limit"), 50)
	offset := parseInt(c.Query("offset"), 0)
	entries, err := h.tickets.ListHistory(c.Context(), user, c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.TicketHistoryResponse{
			ID:        entry.ID,
			ActorID:   entry.ActorID,
			ActorRole: entry.ActorRole,
			Action:    entry.Action,
			OldStatus: entry.OldStatus,
			NewStatus: entry.NewStatus,
			Note:      entry.Note,
			CreatedAt: entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// buildAction maps the wire payload onto the closed action set. Department
// names are resolved to identifiers here so the engine only sees IDs.
func (h *TicketsHandler) buildAction(c *fiber.Ctx, req dto.ActionRequest) (workflow.Action, error) {
	switch req.Action {
	case "assign":
		dept, err := h.departments.GetByName(c.Context(), req.Department)
		if err != nil {
			return nil, apperrors.NewNotFound("department", map[string]any{"department": req.Department})
		}
		return workflow.Assign{DepartmentID: dept.ID}, nil
	case "accept":
		return workflow.Accept{Duration: durationInput(req)}, nil
	case "assign_staff":
		return workflow.AssignStaff{StaffID: req.StaffID}, nil
	case "staff_accept":
		return workflow.StaffAccept{Duration: durationInput(req)}, nil
	case "staff_reject":
		return workflow.StaffReject{}, nil
	case "resolve":
		return workflow.Resolve{ProofURL: req.ProofURL}, nil
	case "staff_submit_work":
		return workflow.SubmitWork{ProofURL: req.ProofURL}, nil
	case "dept_approve_work":
		return workflow.ApproveWork{}, nil
	case "dept_reject_work":
		return workflow.RejectWork{}, nil
	case "gm_approve_work":
		return workflow.GMApprove{}, nil
	case "gm_reject_work":
		return workflow.GMReject{Message: req.RejectionMessage}, nil
	default:
		return nil, apperrors.NewValidationError("unknown action", map[string]any{"action": req.Action})
	}
}

func durationInput(req dto.ActionRequest) domain.DurationInput {
	unit := domain.DurationUnit(req.DurationUnit)
	if unit == "" {
		unit = domain.UnitMinutes
	}
	return domain.DurationInput{Value: req.DurationValue, Unit: unit}
}

func (h *TicketsHandler) ticketResponse(c *fiber.Ctx, ticket *domain.Ticket) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:                      ticket.ID,
		TenantName:              ticket.DisplayName(),
		Anonymous:               ticket.Anonymous,
		Type:                    ticket.Type,
		Priority:                ticket.Priority,
		Description:             ticket.Description,
		Status:                  ticket.Status,
		AssignedDeptID:          ticket.AssignedDeptID,
		AssignedStaffID:         ticket.AssignedStaffID,
		StaffStatus:             ticket.StaffStatus,
		EstimatedFixTime:        ticket.EstimatedFixTime,
		AssignedDurationMinutes: ticket.AssignedDurationMinutes,
		AcceptedAt:              ticket.AcceptedAt,
		ResolvedAt:              ticket.ResolvedAt,
		PhotoURL:                ticket.PhotoURL,
		ProofURL:                ticket.ProofURL,
		RejectionMessage:        ticket.RejectionMessage,
		FeedbackRating:          ticket.FeedbackRating,
		CreatedAt:               ticket.CreatedAt,
		UpdatedAt:               ticket.UpdatedAt,
	}
	if ticket.AssignedDeptID != nil {
		if dept, err := h.departments.GetByID(c.Context(), *ticket.AssignedDeptID); err == nil {
			resp.AssignedDept = &dept.Name
		}
	}
	resp.Deadline = ticket.Deadline()
	if remaining, ok := ticket.Remaining(h.clock.Now()); ok {
		minutes := int64(remaining / time.Minute)
		resp.RemainingMinutes = &minutes
		resp.Overdue = remaining < 0
	}
	if elapsed, ok := ticket.Elapsed(); ok {
		minutes := int64(elapsed / time.Minute)
		resp.ElapsedMinutes = &minutes
	}
	return resp
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
