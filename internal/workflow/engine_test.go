package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/hubops/internal/domain"
	"github.com/spec-kit/hubops/internal/repository"
	"github.com/spec-kit/hubops/internal/repository/memory"
	"github.com/spec-kit/hubops/pkg/util/clock"
	apperrors "github.com/spec-kit/hubops/pkg/util/errorutil"
)

type fixture struct {
	engine  *Engine
	tickets *memory.TicketRepository
	history *memory.TicketHistoryRepository
	clock   *clock.Fake

	dept       *domain.Department
	otherDept  *domain.Department
	tenant     *domain.User
	gm         *domain.User
	head       *domain.User
	staff      *domain.User
	otherStaff *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	tickets := memory.NewTicketRepository()
	departments := memory.NewDepartmentRepository()
	users := memory.NewUserRepository()
	history := memory.NewTicketHistoryRepository()
	clk := clock.NewFake(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	f := &fixture{
		tickets: tickets,
		history: history,
		clock:   clk,
		dept:    &domain.Department{ID: uuid.NewString(), Name: "Maintenance"},
		otherDept: &domain.Department{
			ID: uuid.NewString(), Name: "Electrical",
		},
	}
	require.NoError(t, departments.Create(ctx, f.dept))
	require.NoError(t, departments.Create(ctx, f.otherDept))

	f.tenant = seedUser(t, users, "alice", domain.RoleTenant, nil)
	f.gm = seedUser(t, users, "gm", domain.RoleGM, nil)
	f.head = seedUser(t, users, "head", domain.RoleDeptHead, &f.dept.ID)
	f.staff = seedUser(t, users, "bob", domain.RoleStaff, &f.dept.ID)
	f.otherStaff = seedUser(t, users, "eve", domain.RoleStaff, &f.otherDept.ID)

	f.engine = NewEngine(Dependencies{
		TicketRepo:     tickets,
		DepartmentRepo: departments,
		UserRepo:       users,
		HistoryRepo:    history,
		Clock:          clk,
	})
	return f
}

func seedUser(t *testing.T, users *memory.UserRepository, name string, role domain.Role, deptID *string) *domain.User {
	t.Helper()
	u := &domain.User{ID: uuid.NewString(), Username: name, Role: role, DepartmentID: deptID}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func (f *fixture) createTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := f.engine.CreateTicket(context.Background(), f.tenant, CreateTicketInput{
		Type:        "Plumbing",
		Priority:    domain.TicketPriorityUrgent,
		Description: "Bathroom sink is leaking",
	})
	require.NoError(t, err)
	return ticket
}

func (f *fixture) apply(t *testing.T, actor *domain.User, ticketID string, action Action) *domain.Ticket {
	t.Helper()
	ticket, err := f.engine.ApplyAction(context.Background(), ActorFromUser(actor), ticketID, action)
	require.NoError(t, err)
	return ticket
}

func (f *fixture) applyErr(actor *domain.User, ticketID string, action Action) error {
	_, err := f.engine.ApplyAction(context.Background(), ActorFromUser(actor), ticketID, action)
	return err
}

func hours(n int) domain.DurationInput {
	return domain.DurationInput{Value: n, Unit: domain.UnitHours}
}

func TestCreateTicket(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	assert.Equal(t, domain.TicketStatusPendingApproval, ticket.Status)
	assert.Equal(t, "alice", ticket.TenantName)
	require.NotNil(t, ticket.ReporterID)
	assert.Equal(t, f.tenant.ID, *ticket.ReporterID)
	assert.Nil(t, ticket.AssignedDeptID)
	assert.EqualValues(t, 1, ticket.Version)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.CreateTicket(ctx, f.tenant, CreateTicketInput{Description: "no type"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = f.engine.CreateTicket(ctx, f.tenant, CreateTicketInput{Type: "Electrical"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = f.engine.CreateTicket(ctx, f.tenant, CreateTicketInput{
		Type: "Electrical", Description: "sparks", Priority: "CRITICAL",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestCreateTicketAnonymous(t *testing.T) {
	f := newFixture(t)
	ticket, err := f.engine.CreateTicket(context.Background(), f.tenant, CreateTicketInput{
		Type: "Noise", Description: "loud HVAC at night", Anonymous: true,
	})
	require.NoError(t, err)
	assert.True(t, ticket.Anonymous)
	assert.Equal(t, "Anonymous", ticket.DisplayName())
	// the reporter is still recorded for ownership checks
	require.NotNil(t, ticket.ReporterID)
}

func TestSelfPerformedFlow(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	ticket = f.apply(t, f.gm, ticket.ID, Assign{DepartmentID: f.dept.ID})
	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
	require.NotNil(t, ticket.AssignedDeptID)
	assert.Equal(t, f.dept.ID, *ticket.AssignedDeptID)

	acceptedAt := f.clock.Now()
	ticket = f.apply(t, f.head, ticket.ID, Accept{Duration: hours(2)})
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	require.NotNil(t, ticket.AcceptedAt)
	assert.True(t, ticket.AcceptedAt.Equal(acceptedAt))
	require.NotNil(t, ticket.AssignedDurationMinutes)
	assert.Equal(t, 120, *ticket.AssignedDurationMinutes)
	require.NotNil(t, ticket.EstimatedFixTime)
	assert.Equal(t, "2 hours", *ticket.EstimatedFixTime)

	f.clock.Advance(2 * time.Hour)
	ticket = f.apply(t, f.head, ticket.ID, Resolve{ProofURL: "/uploads/proof.jpg"})
	assert.Equal(t, domain.TicketStatusResolved, ticket.Status)
	require.NotNil(t, ticket.ResolvedAt)

	elapsed, ok := ticket.Elapsed()
	require.True(t, ok)
	assert.Equal(t, 2*time.Hour, elapsed)
}

func TestDelegatedFlowEndsInGMRejection(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	f.apply(t, f.gm, ticket.ID, Assign{DepartmentID: f.dept.ID})
	ticket = f.apply(t, f.head, ticket.ID, AssignStaff{StaffID: f.staff.ID})
	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
	require.NotNil(t, ticket.StaffStatus)
	assert.Equal(t, domain.StaffStatusPending, *ticket.StaffStatus)

	ticket = f.apply(t, f.staff, ticket.ID, StaffAccept{Duration: hours(4)})
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	assert.Equal(t, domain.StaffStatusAccepted, *ticket.StaffStatus)

	ticket = f.apply(t, f.staff, ticket.ID, SubmitWork{ProofURL: "/uploads/fix.jpg"})
	assert.Equal(t, domain.TicketStatusPendingQA, ticket.Status)

	ticket = f.apply(t, f.head, ticket.ID, ApproveWork{})
	assert.Equal(t, domain.TicketStatusPendingGMReview, ticket.Status)

	ticket = f.apply(t, f.gm, ticket.ID, GMReject{Message: "Incomplete"})
	assert.Equal(t, domain.TicketStatusRejected, ticket.Status)
	require.NotNil(t, ticket.RejectionMessage)
	assert.Equal(t, "Incomplete", *ticket.RejectionMessage)
}

func TestRejectedTicketReentersCleanly(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	f.apply(t, f.gm, ticket.ID, Assign{DepartmentID: f.dept.ID})
	f.apply(t, f.head, ticket.ID, AssignStaff{StaffID: f.staff.ID})
	f.apply(t, f.staff, ticket.ID, StaffAccept{Duration: hours(1)})
	f.apply(t, f.staff, ticket.ID, SubmitWork{ProofURL: "/uploads/a.jpg"})
	f.apply(t, f.head, ticket.ID, ApproveWork{})
	f.apply(t, f.gm, ticket.ID, GMReject{Message: "Redo the seal"})

	// re-entry through assign resets the work state
	ticket = f.apply(t, f.gm, ticket.ID, Assign{DepartmentID: f.otherDept.ID})
	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
	assert.Nil(t, ticket.AcceptedAt)
	assert.Nil(t, ticket.AssignedDurationMinutes)
	assert.Nil(t, ticket.ProofURL)
	assert.Nil(t, ticket.RejectionMessage)
	assert.Nil(t, ticket.AssignedStaffID)
	assert.Nil(t, ticket.StaffStatus)
}

func TestUnauthorizedActorLeavesTicketUntouched(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.apply(t, f.gm, ticket.ID, Assign{DepartmentID: f.dept.ID})

	before, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)

	// tenant cannot accept
	err = f.applyErr(f.tenant, ticket.ID, Accept{Duration: hours(1)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	// a head from another department cannot accept either
	otherHead := &domain.User{ID: uuid.NewString(), Role: domain.RoleDeptHead, DepartmentID: &f.otherDept.ID}
	err = f.applyErr(otherHead, ticket.ID, Accept{Duration: hours(1)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	after, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.Version, after.Version)
}

func TestAcceptIsNotRepeatable(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.apply(t, f.gm, ticket.ID, Assign{DepartmentID: f.dept.ID})
	accepted := f.apply(t, f.head, ticket.ID, Accept{Duration: hours(3)})

	f.clock.Advance(10 * time.Minute)
	err := f.applyErr(f.head, ticket.ID, Accept{Duration: hours(5)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	current, getErr := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, getErr)
	require.NotNil(t, current.AcceptedAt)
	assert.True(t, current.AcceptedAt.Equal(*accepted.AcceptedAt))
	assert.Equal(t, 180, *current.AssignedDurationMinutes)
}

func TestAcceptBlockedWhileDelegationPending(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.apply(t, f.gm, ticket.ID, Assign{DepartmentID: f.dept.ID})
	f.apply(t, f.head, ticket.ID, AssignStaff{StaffID: f.staff.ID})

	err := f.applyErr(f.head, ticket.ID, Accept{Duration: hours(1)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestStaffRejectReturnsTicketToHead(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.apply(t, f.gm, ticket.ID, Assign{DepartmentID: f.dept.ID})
	f.apply(t, f.head, ticket.ID, AssignStaff{StaffID: f.staff.ID})

	ticket = f.apply(t, f.staff, ticket.ID, StaffReject{})
	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
	assert.Nil(t, ticket.AssignedStaffID)
	require.NotNil(t, ticket.StaffStatus)
	assert.Equal(t, domain.StaffStatusRejected, *ticket.StaffStatus)

	// the head can now take the work on themselves
	ticket = f.apply(t, f.head, ticket.ID, Accept{Duration: hours(1)})
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
}

func TestResolveBlockedWhenDelegated(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.apply(t, f.gm, ticket.ID, Assign{DepartmentID: f.dept.ID})
	f.apply(t, f.head, ticket.ID, AssignStaff{StaffID: f.staff.ID})
	f.apply(t, f.staff, ticket.ID, StaffAccept{Duration: hours(2)})

	err := f.applyErr(f.head, ticket.ID, Resolve{ProofURL: "/uploads/p.jpg"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestRejectWorkSendsBackForRework(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.apply(t, f.gm, ticket.ID, Assign{DepartmentID: f.dept.ID})
	f.apply(t, f.head, ticket.ID, AssignStaff{StaffID: f.staff.ID})
	f.apply(t, f.staff, ticket.ID, StaffAccept{Duration: hours(2)})
	f.apply(t, f.staff, ticket.ID, SubmitWork{ProofURL: "/uploads/v1.jpg"})

	ticket = f.apply(t, f.head, ticket.ID, RejectWork{})
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	assert.Nil(t, ticket.ProofURL)

	// the staff member resubmits and the chain completes
	f.apply(t, f.staff, ticket.ID, SubmitWork{ProofURL: "/uploads/v2.jpg"})
	f.apply(t, f.head, ticket.ID, ApproveWork{})
	ticket = f.apply(t, f.gm, ticket.ID, GMApprove{})
	assert.Equal(t, domain.TicketStatusResolved, ticket.Status)
	require.NotNil(t, ticket.ResolvedAt)
	require.NotNil(t, ticket.ProofURL)
	assert.Equal(t, "/uploads/v2.jpg", *ticket.ProofURL)
}

func TestAssignStaffValidation(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.apply(t, f.gm, ticket.ID, Assign{DepartmentID: f.dept.ID})

	// not a staff member
	err := f.applyErr(f.head, ticket.ID, AssignStaff{StaffID: f.gm.ID})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	// staff member of another department
	err = f.applyErr(f.head, ticket.ID, AssignStaff{StaffID: f.otherStaff.ID})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	// unknown staff id
	err = f.applyErr(f.head, ticket.ID, AssignStaff{StaffID: uuid.NewString()})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestAssignUnknownDepartment(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	err := f.applyErr(f.gm, ticket.ID, Assign{DepartmentID: uuid.NewString()})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestGMRejectRequiresMessage(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.apply(t, f.gm, ticket.ID, Assign{DepartmentID: f.dept.ID})
	f.apply(t, f.head, ticket.ID, AssignStaff{StaffID: f.staff.ID})
	f.apply(t, f.staff, ticket.ID, StaffAccept{Duration: hours(1)})
	f.apply(t, f.staff, ticket.ID, SubmitWork{ProofURL: "/uploads/p.jpg"})
	f.apply(t, f.head, ticket.ID, ApproveWork{})

	err := f.applyErr(f.gm, ticket.ID, GMReject{Message: "   "})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestUnknownTicket(t *testing.T) {
	f := newFixture(t)
	err := f.applyErr(f.gm, uuid.NewString(), Assign{DepartmentID: f.dept.ID})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestLostWriteRaceSurfacesAsConflict(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	engine := NewEngine(Dependencies{
		TicketRepo:     conflictingTickets{f.tickets},
		DepartmentRepo: newFixtureDepartments(t, f),
		UserRepo:       memory.NewUserRepository(),
		Clock:          f.clock,
	})
	_, err := engine.ApplyAction(context.Background(), ActorFromUser(f.gm), ticket.ID, Assign{DepartmentID: f.dept.ID})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConcurrentModification))
}

func TestHistoryTrail(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.apply(t, f.gm, ticket.ID, Assign{DepartmentID: f.dept.ID})
	f.apply(t, f.head, ticket.ID, Accept{Duration: hours(2)})
	f.apply(t, f.head, ticket.ID, Resolve{ProofURL: "/uploads/done.jpg"})

	entries, err := f.history.ListByTicket(context.Background(), ticket.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "assign", entries[0].Action)
	assert.Equal(t, domain.TicketStatusPendingApproval, entries[0].OldStatus)
	assert.Equal(t, domain.TicketStatusAssigned, entries[0].NewStatus)
	require.NotNil(t, entries[0].Note)
	assert.Equal(t, "Maintenance", *entries[0].Note)

	assert.Equal(t, "accept", entries[1].Action)
	require.NotNil(t, entries[1].Note)
	assert.Equal(t, "2 hours", *entries[1].Note)

	assert.Equal(t, "resolve", entries[2].Action)
	assert.Equal(t, domain.TicketStatusResolved, entries[2].NewStatus)
}

// conflictingTickets simulates losing every compare-and-set race.
type conflictingTickets struct {
	repository.TicketRepository
}

func (conflictingTickets) CompareAndSet(context.Context, *domain.Ticket, int64) error {
	return repository.ErrVersionConflict
}

func newFixtureDepartments(t *testing.T, f *fixture) *memory.DepartmentRepository {
	t.Helper()
	departments := memory.NewDepartmentRepository()
	require.NoError(t, departments.Create(context.Background(), &domain.Department{ID: f.dept.ID, Name: f.dept.Name}))
	return departments
}
