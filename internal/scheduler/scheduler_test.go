package scheduler

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
	"github.com/spec-kit/hubops/internal/workflow"
	"github.com/spec-kit/hubops/pkg/util/clock"
)

type schedFixture struct {
	sched   *Scheduler
	tasks   *memory.RecurringTaskRepository
	tickets *memory.TicketRepository
	dept    *domain.Department
	now     time.Time
}

func newSchedFixture(t *testing.T) *schedFixture {
	t.Helper()
	ctx := context.Background()

	tasks := memory.NewRecurringTaskRepository()
	tickets := memory.NewTicketRepository()
	departments := memory.NewDepartmentRepository()

	dept := &domain.Department{ID: uuid.NewString(), Name: "Maintenance"}
	require.NoError(t, departments.Create(ctx, dept))

	now := time.Date(2025, 6, 15, 6, 0, 0, 0, time.UTC)
	engine := workflow.NewEngine(workflow.Dependencies{
		TicketRepo:     tickets,
		DepartmentRepo: departments,
		UserRepo:       memory.NewUserRepository(),
		HistoryRepo:    memory.NewTicketHistoryRepository(),
		Clock:          clock.NewFake(now),
	})

	return &schedFixture{
		sched:   New(tasks, engine, nil, 0, nil),
		tasks:   tasks,
		tickets: tickets,
		dept:    dept,
		now:     now,
	}
}

func (f *schedFixture) seedTask(t *testing.T, title string, frequencyDays int, nextRun time.Time) *domain.RecurringTask {
	t.Helper()
	task := &domain.RecurringTask{
		ID:             uuid.NewString(),
		Title:          title,
		Description:    "Scheduled facility upkeep",
		FrequencyDays:  frequencyDays,
		AssignedDeptID: f.dept.ID,
		NextRunDate:    nextRun,
	}
	require.NoError(t, f.tasks.Create(context.Background(), task))
	return task
}

func (f *schedFixture) generatedTickets(t *testing.T) []domain.Ticket {
	t.Helper()
	list, err := f.tickets.ListWithFilter(context.Background(), repository.TicketFilter{})
	require.NoError(t, err)
	return list
}

func TestRunFiresDueTaskOnce(t *testing.T) {
	f := newSchedFixture(t)
	task := f.seedTask(t, "Elevator inspection", 7, f.now.AddDate(0, 0, -1))

	result, err := f.sched.Run(context.Background(), f.now)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 1, Advanced: 1}, result)

	generated := f.generatedTickets(t)
	require.Len(t, generated, 1)
	ticket := generated[0]
	assert.Equal(t, "Elevator inspection", ticket.Type)
	assert.Equal(t, domain.TicketStatusPendingApproval, ticket.Status)
	assert.Equal(t, "Facility Operations", ticket.TenantName)
	assert.Nil(t, ticket.ReporterID)
	require.NotNil(t, ticket.AssignedDeptID)
	assert.Equal(t, f.dept.ID, *ticket.AssignedDeptID)

	stored, err := f.tasks.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.True(t, stored.NextRunDate.Equal(task.NextRunDate.AddDate(0, 0, 7)))

	// an unchanged clock cannot double-fire
	result, err = f.sched.Run(context.Background(), f.now)
	require.NoError(t, err)
	assert.Equal(t, Result{}, result)
	assert.Len(t, f.generatedTickets(t), 1)
}

func TestRunSkipsFutureTasks(t *testing.T) {
	f := newSchedFixture(t)
	f.seedTask(t, "Filter change", 30, f.now.AddDate(0, 0, 3))

	result, err := f.sched.Run(context.Background(), f.now)
	require.NoError(t, err)
	assert.Equal(t, Result{}, result)
	assert.Empty(t, f.generatedTickets(t))
}

func TestBacklogDrainsOnePeriodPerPass(t *testing.T) {
	f := newSchedFixture(t)
	// fifteen days behind on a weekly task: three firings to catch up
	f.seedTask(t, "Generator test", 7, f.now.AddDate(0, 0, -15))

	for i := 1; i <= 3; i++ {
		result, err := f.sched.Run(context.Background(), f.now)
		require.NoError(t, err)
		assert.Equal(t, Result{Created: 1, Advanced: 1}, result, "pass %d", i)
	}

	result, err := f.sched.Run(context.Background(), f.now)
	require.NoError(t, err)
	assert.Equal(t, Result{}, result)
	assert.Len(t, f.generatedTickets(t), 3)
}

func TestRunSkipsWhenLockHeld(t *testing.T) {
	f := newSchedFixture(t)
	f.seedTask(t, "Roof check", 7, f.now.AddDate(0, 0, -1))

	sched := New(f.tasks, nil, heldLocker{}, time.Minute, nil)
	result, err := sched.Run(context.Background(), f.now)
	require.NoError(t, err)
	assert.Equal(t, Result{}, result)
	assert.Empty(t, f.generatedTickets(t))
}

func TestLostAdvanceRaceIsSilent(t *testing.T) {
	f := newSchedFixture(t)
	f.seedTask(t, "Pump service", 7, f.now.AddDate(0, 0, -1))

	// an overlapping pass claims every firing between our list and our write
	sched := New(conflictingTasks{f.tasks}, f.sched.engine, nil, 0, nil)
	result, err := sched.Run(context.Background(), f.now)
	require.NoError(t, err)
	assert.Equal(t, Result{}, result)
	assert.Empty(t, f.generatedTickets(t))
}

type heldLocker struct{}

func (heldLocker) TryLock(context.Context, string, time.Duration) (func(), bool, error) {
	return nil, false, nil
}

// conflictingTasks loses every compare-and-set while still listing due rows.
type conflictingTasks struct {
	repository.RecurringTaskRepository
}

func (conflictingTasks) CompareAndSetNextRunDate(context.Context, string, time.Time, time.Time) error {
	return repository.ErrVersionConflict
}
