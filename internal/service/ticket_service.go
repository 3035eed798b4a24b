package service

import (
	"context"
	"errors"

	"github.com/spec-kit/hubops/internal/domain"
	"github.com/spec-kit/hubops/internal/repository"
	"github.com/spec-kit/hubops/internal/workflow"
	apperrors "github.com/spec-kit/hubops/pkg/util/errorutil"
)

// TicketService exposes ticket reads and the few non-workflow mutations
// (creation and feedback). All transitions go through the workflow engine.
type TicketService struct {
	tickets repository.TicketRepository
	history repository.TicketHistoryRepository
	engine  *workflow.Engine
}

// NewTicketService constructs the service.
func NewTicketService(tickets repository.TicketRepository, history repository.TicketHistoryRepository, engine *workflow.Engine) *TicketService {
	return &TicketService{tickets: tickets, history: history, engine: engine}
}

// CreateTicket opens a ticket on behalf of a reporter.
func (s *TicketService) CreateTicket(ctx context.Context, reporter *domain.User, input workflow.CreateTicketInput) (*domain.Ticket, error) {
	if reporter == nil {
		return nil, apperrors.NewUnauthorized("reporter required")
	}
	if reporter.Role != domain.RoleTenant {
		return nil, apperrors.NewForbidden("only tenants open tickets")
	}
	return s.engine.CreateTicket(ctx, reporter, input)
}

// ListTicketsFor returns the dashboard ticket set scoped by role: GM and
// tenants see all tickets (the tenant dashboard shows the whole building),
// department heads and staff see their department's.
func (s *TicketService) ListTicketsFor(ctx context.Context, user *domain.User, statuses []domain.TicketStatus, limit, offset int) ([]domain.Ticket, error) {
	filter := repository.TicketFilter{Statuses: statuses, Limit: limit, Offset: offset}
	switch user.Role {
	case domain.RoleTenant, domain.RoleGM:
	case domain.RoleDeptHead, domain.RoleStaff:
		if user.DepartmentID == nil {
			return nil, apperrors.NewForbidden("no department membership")
		}
		filter.DepartmentID = user.DepartmentID
	default:
		return nil, apperrors.NewForbidden("unknown role")
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return tickets, nil
}

// GetTicket returns one ticket with the same scope rule as listing.
func (s *TicketService) GetTicket(ctx context.Context, user *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}
	if user.Role == domain.RoleDeptHead || user.Role == domain.RoleStaff {
		if ticket.AssignedDeptID == nil || user.DepartmentID == nil || *ticket.AssignedDeptID != *user.DepartmentID {
			return nil, apperrors.NewForbidden("ticket belongs to another department")
		}
	}
	return ticket, nil
}

// ListHistory returns the transition audit trail for a ticket.
func (s *TicketService) ListHistory(ctx context.Context, user *domain.User, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	if _, err := s.GetTicket(ctx, user, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return entries, nil
}

// RateTicket records tenant feedback on a resolved ticket. The write reuses
// the compare-and-set path so it cannot race a transition.
func (s *TicketService) RateTicket(ctx context.Context, user *domain.User, ticketID string, rating int) (*domain.Ticket, error) {
	if user.Role != domain.RoleTenant {
		return nil, apperrors.NewForbidden("only tenants rate tickets")
	}
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": rating})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}
	if ticket.Status != domain.TicketStatusResolved {
		return nil, apperrors.NewInvalidTransition("only resolved tickets can be rated", map[string]any{"status": ticket.Status})
	}
	if ticket.ReporterID != nil && *ticket.ReporterID != user.ID {
		return nil, apperrors.NewForbidden("ticket was reported by someone else")
	}
	expected := ticket.Version
	ticket.FeedbackRating = &rating
	if err := s.tickets.CompareAndSet(ctx, ticket, expected); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.NewConcurrentModification("ticket")
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return ticket, nil
}
