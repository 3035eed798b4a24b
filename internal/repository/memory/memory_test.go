package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/hubops/internal/domain"
	"github.com/spec-kit/hubops/internal/repository"
)

func TestTicketCompareAndSet(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepository()

	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		TenantName:  "alice",
		Type:        "Leak",
		Priority:    domain.TicketPriorityMedium,
		Description: "drip",
		Status:      domain.TicketStatusPendingApproval,
		Version:     1,
	}
	require.NoError(t, repo.Create(ctx, ticket))

	first, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)

	first.Status = domain.TicketStatusAssigned
	require.NoError(t, repo.CompareAndSet(ctx, first, 1))
	assert.EqualValues(t, 2, first.Version)

	// the stale copy loses
	second.Status = domain.TicketStatusRejected
	err = repo.CompareAndSet(ctx, second, 1)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	stored, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, stored.Status)
	assert.EqualValues(t, 2, stored.Version)
}

func TestGetByIDReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepository()

	ticket := &domain.Ticket{
		ID: uuid.NewString(), TenantName: "alice", Type: "Leak",
		Priority: domain.TicketPriorityMedium, Description: "drip",
		Status: domain.TicketStatusPendingApproval, Version: 1,
	}
	require.NoError(t, repo.Create(ctx, ticket))

	got, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	got.Status = domain.TicketStatusResolved

	stored, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPendingApproval, stored.Status)
}

func TestRecurringCompareAndSetNextRunDate(t *testing.T) {
	ctx := context.Background()
	repo := NewRecurringTaskRepository()

	run := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	task := &domain.RecurringTask{
		ID:             uuid.NewString(),
		Title:          "Filter change",
		FrequencyDays:  30,
		AssignedDeptID: uuid.NewString(),
		NextRunDate:    run,
	}
	require.NoError(t, repo.Create(ctx, task))

	next := run.AddDate(0, 0, 30)
	require.NoError(t, repo.CompareAndSetNextRunDate(ctx, task.ID, run, next))

	// a second claim against the old date fails
	err := repo.CompareAndSetNextRunDate(ctx, task.ID, run, next.AddDate(0, 0, 30))
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	stored, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, stored.NextRunDate.Equal(next))
}

func TestListDueOrdering(t *testing.T) {
	ctx := context.Background()
	repo := NewRecurringTaskRepository()

	now := time.Date(2025, 6, 15, 6, 0, 0, 0, time.UTC)
	for i, offset := range []int{-3, -1, 2} {
		require.NoError(t, repo.Create(ctx, &domain.RecurringTask{
			ID:             uuid.NewString(),
			Title:          "task",
			FrequencyDays:  7 + i,
			AssignedDeptID: uuid.NewString(),
			NextRunDate:    now.AddDate(0, 0, offset),
		}))
	}

	due, err := repo.ListDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.True(t, due[0].NextRunDate.Before(due[1].NextRunDate))
}
