package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/hubops/internal/domain"
	"github.com/spec-kit/hubops/internal/repository/memory"
	"github.com/spec-kit/hubops/internal/workflow"
	"github.com/spec-kit/hubops/pkg/util/clock"
	apperrors "github.com/spec-kit/hubops/pkg/util/errorutil"
)

type serviceFixture struct {
	svc     *TicketService
	engine  *workflow.Engine
	tickets *memory.TicketRepository

	deptA  *domain.Department
	deptB  *domain.Department
	tenant *domain.User
	gm     *domain.User
	headA  *domain.User
	staffB *domain.User
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	ctx := context.Background()

	tickets := memory.NewTicketRepository()
	departments := memory.NewDepartmentRepository()
	users := memory.NewUserRepository()
	history := memory.NewTicketHistoryRepository()

	f := &serviceFixture{
		tickets: tickets,
		deptA:   &domain.Department{ID: uuid.NewString(), Name: "Maintenance"},
		deptB:   &domain.Department{ID: uuid.NewString(), Name: "Electrical"},
	}
	require.NoError(t, departments.Create(ctx, f.deptA))
	require.NoError(t, departments.Create(ctx, f.deptB))

	f.tenant = &domain.User{ID: uuid.NewString(), Username: "alice", Role: domain.RoleTenant}
	f.gm = &domain.User{ID: uuid.NewString(), Username: "gm", Role: domain.RoleGM}
	f.headA = &domain.User{ID: uuid.NewString(), Username: "headA", Role: domain.RoleDeptHead, DepartmentID: &f.deptA.ID}
	f.staffB = &domain.User{ID: uuid.NewString(), Username: "staffB", Role: domain.RoleStaff, DepartmentID: &f.deptB.ID}
	for _, u := range []*domain.User{f.tenant, f.gm, f.headA, f.staffB} {
		require.NoError(t, users.Create(ctx, u))
	}

	f.engine = workflow.NewEngine(workflow.Dependencies{
		TicketRepo:     tickets,
		DepartmentRepo: departments,
		UserRepo:       users,
		HistoryRepo:    history,
		Clock:          clock.NewFake(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)),
	})
	f.svc = NewTicketService(tickets, history, f.engine)
	return f
}

func (f *serviceFixture) openTicket(t *testing.T, deptID *string) *domain.Ticket {
	t.Helper()
	ticket, err := f.svc.CreateTicket(context.Background(), f.tenant, workflow.CreateTicketInput{
		Type:        "Leak",
		Description: "Water damage on the ceiling",
	})
	require.NoError(t, err)
	if deptID != nil {
		ticket, err = f.engine.ApplyAction(context.Background(), workflow.ActorFromUser(f.gm), ticket.ID, workflow.Assign{DepartmentID: *deptID})
		require.NoError(t, err)
	}
	return ticket
}

func TestCreateTicketRequiresTenant(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.CreateTicket(context.Background(), f.gm, workflow.CreateTicketInput{
		Type: "Leak", Description: "drip",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestListTicketsScopedByRole(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.openTicket(t, &f.deptA.ID)
	f.openTicket(t, &f.deptB.ID)
	f.openTicket(t, nil) // unrouted

	all, err := f.svc.ListTicketsFor(ctx, f.gm, nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	tenantView, err := f.svc.ListTicketsFor(ctx, f.tenant, nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, tenantView, 3)

	headView, err := f.svc.ListTicketsFor(ctx, f.headA, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, headView, 1)
	assert.Equal(t, f.deptA.ID, *headView[0].AssignedDeptID)

	staffView, err := f.svc.ListTicketsFor(ctx, f.staffB, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, staffView, 1)
	assert.Equal(t, f.deptB.ID, *staffView[0].AssignedDeptID)
}

func TestListTicketsStatusFilter(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.openTicket(t, &f.deptA.ID)
	f.openTicket(t, nil)

	pending, err := f.svc.ListTicketsFor(ctx, f.gm, []domain.TicketStatus{domain.TicketStatusPendingApproval}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestGetTicketOutsideDepartment(t *testing.T) {
	f := newServiceFixture(t)
	ticket := f.openTicket(t, &f.deptB.ID)

	_, err := f.svc.GetTicket(context.Background(), f.headA, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestRateTicket(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	ticket := f.openTicket(t, &f.deptA.ID)

	// not resolved yet
	_, err := f.svc.RateTicket(ctx, f.tenant, ticket.ID, 5)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	_, err = f.engine.ApplyAction(ctx, workflow.ActorFromUser(f.headA), ticket.ID, workflow.Accept{Duration: domain.DurationInput{Value: 1, Unit: domain.UnitHours}})
	require.NoError(t, err)
	_, err = f.engine.ApplyAction(ctx, workflow.ActorFromUser(f.headA), ticket.ID, workflow.Resolve{ProofURL: "/uploads/p.jpg"})
	require.NoError(t, err)

	_, err = f.svc.RateTicket(ctx, f.tenant, ticket.ID, 9)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	other := &domain.User{ID: uuid.NewString(), Role: domain.RoleTenant}
	_, err = f.svc.RateTicket(ctx, other, ticket.ID, 4)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	rated, err := f.svc.RateTicket(ctx, f.tenant, ticket.ID, 4)
	require.NoError(t, err)
	require.NotNil(t, rated.FeedbackRating)
	assert.Equal(t, 4, *rated.FeedbackRating)
}
