package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/hubops/internal/domain"
	"github.com/spec-kit/hubops/internal/events"
	"github.com/spec-kit/hubops/internal/repository"
	"github.com/spec-kit/hubops/pkg/util/clock"
	apperrors "github.com/spec-kit/hubops/pkg/util/errorutil"
)

// Engine applies workflow transitions atomically: validate the actor,
// evaluate the guard, mutate a copy, and compare-and-set the write. A lost
// race surfaces as CONCURRENT_MODIFICATION and leaves no partial state.
type Engine struct {
	tickets     repository.TicketRepository
	departments repository.DepartmentRepository
	users       repository.UserRepository
	history     repository.TicketHistoryRepository
	dispatcher  events.Dispatcher
	clock       clock.Clock
	logger      *zap.Logger
}

// Dependencies bundles collaborators for the engine.
type Dependencies struct {
	TicketRepo     repository.TicketRepository
	DepartmentRepo repository.DepartmentRepository
	UserRepo       repository.UserRepository
	HistoryRepo    repository.TicketHistoryRepository
	Dispatcher     events.Dispatcher
	Clock          clock.Clock
	Logger         *zap.Logger
}

// NewEngine constructs the engine.
func NewEngine(deps Dependencies) *Engine {
	c := deps.Clock
	if c == nil {
		c = clock.System()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		tickets:     deps.TicketRepo,
		departments: deps.DepartmentRepo,
		users:       deps.UserRepo,
		history:     deps.HistoryRepo,
		dispatcher:  deps.Dispatcher,
		clock:       c,
		logger:      logger,
	}
}

// CreateTicketInput describes ticket creation. AssignedDeptID and
// RecurringTaskID are set only on the scheduler's generation path.
type CreateTicketInput struct {
	Type            string
	Priority        domain.TicketPriority
	Description     string
	Anonymous       bool
	PhotoURL        *string
	AssignedDeptID  *string
	RecurringTaskID *string
}

// CreateTicket opens a new ticket in PendingApproval. Reporter-initiated
// tickets record the reporter; the scheduler passes a nil reporter and a
// pre-routed department.
func (e *Engine) CreateTicket(ctx context.Context, reporter *domain.User, input CreateTicketInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.Type) == "" {
		return nil, apperrors.NewValidationError("type required", nil)
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, apperrors.NewValidationError("description required", nil)
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	switch input.Priority {
	case domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityUrgent:
	default:
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}

	ticket := &domain.Ticket{
		ID:             uuid.NewString(),
		Anonymous:      input.Anonymous,
		Type:           strings.TrimSpace(input.Type),
		Priority:       input.Priority,
		Description:    strings.TrimSpace(input.Description),
		Status:         domain.TicketStatusPendingApproval,
		PhotoURL:       input.PhotoURL,
		AssignedDeptID: input.AssignedDeptID,
		Version:        1,
	}

	actor := events.Actor{System: true}
	if reporter != nil {
		ticket.ReporterID = &reporter.ID
		ticket.TenantName = reporter.Username
		actor = events.Actor{Role: reporter.Role, UserID: &reporter.ID}
	} else {
		ticket.TenantName = "Facility Operations"
	}

	if input.AssignedDeptID != nil {
		if _, err := e.departments.GetByID(ctx, *input.AssignedDeptID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewNotFound("department", map[string]any{"department_id": *input.AssignedDeptID})
			}
			return nil, apperrors.NewStorageUnavailable(err)
		}
	}

	if err := e.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}

	e.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			Type:        ticket.Type,
			Priority:    ticket.Priority,
			Anonymous:   ticket.Anonymous,
			Department:  ticket.AssignedDeptID,
			Description: ticket.Description,
		},
	})
	if input.RecurringTaskID != nil && input.AssignedDeptID != nil {
		e.publish(ctx, events.Event{
			Type:     events.EventTicketGenerated,
			TicketID: ticket.ID,
			Actor:    events.Actor{System: true},
			Payload: events.TicketGeneratedPayload{
				RecurringTaskID: *input.RecurringTaskID,
				DepartmentID:    *input.AssignedDeptID,
			},
		})
	}
	return ticket, nil
}

// ApplyAction runs one transition end to end. Errors follow the fixed
// taxonomy; on any error the ticket is unchanged.
func (e *Engine) ApplyAction(ctx context.Context, actor Actor, ticketID string, action Action) (*domain.Ticket, error) {
	ticket, err := e.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}

	if err := authorize(actor, action, ticket); err != nil {
		return nil, err
	}

	expectedVersion := ticket.Version
	oldStatus := ticket.Status

	note, err := e.transition(ctx, actor, ticket, action)
	if err != nil {
		return nil, err
	}

	if err := e.tickets.CompareAndSet(ctx, ticket, expectedVersion); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.NewConcurrentModification("ticket")
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}

	e.recordHistory(ctx, actor, ticket, action.Name(), oldStatus, note)
	e.publish(ctx, events.Event{
		Type:     events.EventTicketTransitioned,
		TicketID: ticket.ID,
		Actor:    events.Actor{Role: actor.Role, UserID: &actor.ID},
		Payload: events.TicketTransitionedPayload{
			Action:    action.Name(),
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			Note:      note,
		},
	})
	if delegated, ok := action.(AssignStaff); ok {
		e.publish(ctx, events.Event{
			Type:     events.EventTicketDelegated,
			TicketID: ticket.ID,
			Actor:    events.Actor{Role: actor.Role, UserID: &actor.ID},
			Payload: events.TicketDelegatedPayload{
				StaffID:     delegated.StaffID,
				StaffStatus: domain.StaffStatusPending,
			},
		})
	}
	return ticket, nil
}

// transition validates parameters, evaluates the state guard, and mutates the
// in-memory ticket. It performs no writes.
func (e *Engine) transition(ctx context.Context, actor Actor, ticket *domain.Ticket, action Action) (*string, error) {
	switch act := action.(type) {
	case Assign:
		return e.applyAssign(ctx, ticket, act)
	case Accept:
		return e.applyAccept(ticket, act)
	case AssignStaff:
		return e.applyAssignStaff(ctx, ticket, act)
	case StaffAccept:
		return e.applyStaffAccept(ticket, act)
	case StaffReject:
		return e.applyStaffReject(ticket)
	case Resolve:
		return e.applyResolve(ticket, act)
	case SubmitWork:
		return e.applySubmitWork(ticket, act)
	case ApproveWork:
		return e.applyApproveWork(ticket)
	case RejectWork:
		return e.applyRejectWork(ticket)
	case GMApprove:
		return e.applyGMApprove(ticket)
	case GMReject:
		return e.applyGMReject(ticket, act)
	default:
		return nil, invalidTransition(ticket, action)
	}
}

func (e *Engine) applyAssign(ctx context.Context, ticket *domain.Ticket, act Assign) (*string, error) {
	if strings.TrimSpace(act.DepartmentID) == "" {
		return nil, apperrors.NewValidationError("department_id required", nil)
	}
	dept, err := e.departments.GetByID(ctx, act.DepartmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("department", map[string]any{"department_id": act.DepartmentID})
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}
	if ticket.Status != domain.TicketStatusPendingApproval && ticket.Status != domain.TicketStatusRejected {
		return nil, invalidTransition(ticket, act)
	}
	if ticket.Status == domain.TicketStatusRejected {
		clearWorkState(ticket)
	}
	ticket.AssignedDeptID = &dept.ID
	ticket.Status = domain.TicketStatusAssigned
	note := dept.Name
	return &note, nil
}

func (e *Engine) applyAccept(ticket *domain.Ticket, act Accept) (*string, error) {
	minutes, err := act.Duration.Minutes()
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}
	if ticket.Status != domain.TicketStatusAssigned && ticket.Status != domain.TicketStatusRejected {
		return nil, invalidTransition(ticket, act)
	}
	// a delegation awaiting the staff member's response blocks self-accept
	if ticket.Status == domain.TicketStatusAssigned && ticket.Delegated() {
		return nil, apperrors.NewInvalidTransition("ticket is delegated to staff", transitionDetails(ticket, act))
	}
	if ticket.Status == domain.TicketStatusRejected {
		clearWorkState(ticket)
	}
	e.beginWork(ticket, act.Duration, minutes)
	label := act.Duration.Label()
	return &label, nil
}

func (e *Engine) applyAssignStaff(ctx context.Context, ticket *domain.Ticket, act AssignStaff) (*string, error) {
	if strings.TrimSpace(act.StaffID) == "" {
		return nil, apperrors.NewValidationError("staff_id required", nil)
	}
	staff, err := e.users.GetByID(ctx, act.StaffID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("staff", map[string]any{"staff_id": act.StaffID})
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}
	if staff.Role != domain.RoleStaff {
		return nil, apperrors.NewValidationError("assignee is not a staff member", map[string]any{"staff_id": act.StaffID})
	}
	if ticket.AssignedDeptID == nil || !staff.BelongsTo(*ticket.AssignedDeptID) {
		return nil, apperrors.NewValidationError("staff member is outside the ticket's department", map[string]any{"staff_id": act.StaffID})
	}
	if ticket.Status != domain.TicketStatusAssigned {
		return nil, invalidTransition(ticket, act)
	}
	pending := domain.StaffStatusPending
	ticket.AssignedStaffID = &staff.ID
	ticket.StaffStatus = &pending
	note := staff.Username
	return &note, nil
}

func (e *Engine) applyStaffAccept(ticket *domain.Ticket, act StaffAccept) (*string, error) {
	minutes, err := act.Duration.Minutes()
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}
	if ticket.Status != domain.TicketStatusAssigned || !delegationPending(ticket) {
		return nil, invalidTransition(ticket, act)
	}
	accepted := domain.StaffStatusAccepted
	ticket.StaffStatus = &accepted
	e.beginWork(ticket, act.Duration, minutes)
	label := act.Duration.Label()
	return &label, nil
}

func (e *Engine) applyStaffReject(ticket *domain.Ticket) (*string, error) {
	if ticket.Status != domain.TicketStatusAssigned || !delegationPending(ticket) {
		return nil, invalidTransition(ticket, StaffReject{})
	}
	rejected := domain.StaffStatusRejected
	ticket.StaffStatus = &rejected
	ticket.AssignedStaffID = nil
	return nil, nil
}

func (e *Engine) applyResolve(ticket *domain.Ticket, act Resolve) (*string, error) {
	if strings.TrimSpace(act.ProofURL) == "" {
		return nil, apperrors.NewValidationError("proof_url required", nil)
	}
	if ticket.Status != domain.TicketStatusInProgress {
		return nil, invalidTransition(ticket, act)
	}
	// staff-performed work must pass the QA gate instead
	if ticket.Delegated() {
		return nil, apperrors.NewInvalidTransition("delegated work resolves through staff submission", transitionDetails(ticket, act))
	}
	now := e.clock.Now()
	proof := act.ProofURL
	ticket.ProofURL = &proof
	ticket.ResolvedAt = &now
	ticket.Status = domain.TicketStatusResolved
	return nil, nil
}

func (e *Engine) applySubmitWork(ticket *domain.Ticket, act SubmitWork) (*string, error) {
	if strings.TrimSpace(act.ProofURL) == "" {
		return nil, apperrors.NewValidationError("proof_url required", nil)
	}
	if ticket.Status != domain.TicketStatusInProgress || ticket.StaffStatus == nil || *ticket.StaffStatus != domain.StaffStatusAccepted {
		return nil, invalidTransition(ticket, act)
	}
	proof := act.ProofURL
	ticket.ProofURL = &proof
	ticket.Status = domain.TicketStatusPendingQA
	return nil, nil
}

func (e *Engine) applyApproveWork(ticket *domain.Ticket) (*string, error) {
	if ticket.Status != domain.TicketStatusPendingQA {
		return nil, invalidTransition(ticket, ApproveWork{})
	}
	ticket.Status = domain.TicketStatusPendingGMReview
	return nil, nil
}

func (e *Engine) applyRejectWork(ticket *domain.Ticket) (*string, error) {
	if ticket.Status != domain.TicketStatusPendingQA {
		return nil, invalidTransition(ticket, RejectWork{})
	}
	ticket.ProofURL = nil
	ticket.Status = domain.TicketStatusInProgress
	return nil, nil
}

func (e *Engine) applyGMApprove(ticket *domain.Ticket) (*string, error) {
	if ticket.Status != domain.TicketStatusPendingGMReview {
		return nil, invalidTransition(ticket, GMApprove{})
	}
	now := e.clock.Now()
	ticket.ResolvedAt = &now
	ticket.Status = domain.TicketStatusResolved
	return nil, nil
}

func (e *Engine) applyGMReject(ticket *domain.Ticket, act GMReject) (*string, error) {
	message := strings.TrimSpace(act.Message)
	if message == "" {
		return nil, apperrors.NewValidationError("rejection message required", nil)
	}
	if ticket.Status != domain.TicketStatusPendingGMReview {
		return nil, invalidTransition(ticket, act)
	}
	ticket.RejectionMessage = &message
	ticket.Status = domain.TicketStatusRejected
	return &message, nil
}

// beginWork stamps the accept-class side effects exactly once per accepted
// transition.
func (e *Engine) beginWork(ticket *domain.Ticket, input domain.DurationInput, minutes int) {
	now := e.clock.Now()
	label := input.Label()
	ticket.AcceptedAt = &now
	ticket.AssignedDurationMinutes = &minutes
	ticket.EstimatedFixTime = &label
	ticket.Status = domain.TicketStatusInProgress
}

// clearWorkState resets a Rejected ticket to its pre-accept shape so the
// accepted_at/resolved_at invariants hold on re-entry.
func clearWorkState(ticket *domain.Ticket) {
	ticket.AcceptedAt = nil
	ticket.AssignedDurationMinutes = nil
	ticket.EstimatedFixTime = nil
	ticket.ProofURL = nil
	ticket.RejectionMessage = nil
	ticket.AssignedStaffID = nil
	ticket.StaffStatus = nil
}

func delegationPending(ticket *domain.Ticket) bool {
	return ticket.Delegated() && ticket.StaffStatus != nil && *ticket.StaffStatus == domain.StaffStatusPending
}

func invalidTransition(ticket *domain.Ticket, action Action) error {
	return apperrors.NewInvalidTransition(
		"action "+action.Name()+" is not valid from status "+string(ticket.Status),
		transitionDetails(ticket, action))
}

func transitionDetails(ticket *domain.Ticket, action Action) map[string]any {
	return map[string]any{
		"ticket_id": ticket.ID,
		"status":    ticket.Status,
		"action":    action.Name(),
	}
}

func (e *Engine) recordHistory(ctx context.Context, actor Actor, ticket *domain.Ticket, action string, oldStatus domain.TicketStatus, note *string) {
	if e.history == nil {
		return
	}
	actorID := actor.ID
	entry := &domain.TicketHistory{
		ID:        uuid.NewString(),
		TicketID:  ticket.ID,
		ActorID:   &actorID,
		ActorRole: actor.Role,
		Action:    action,
		OldStatus: oldStatus,
		NewStatus: ticket.Status,
		Note:      note,
	}
	if err := e.history.Create(ctx, entry); err != nil {
		e.logger.Warn("record ticket history", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

func (e *Engine) publish(ctx context.Context, event events.Event) {
	if e.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.clock.Now()
	}
	_ = e.dispatcher.Publish(ctx, event)
}
