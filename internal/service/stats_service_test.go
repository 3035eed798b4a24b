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
	apperrors "github.com/spec-kit/hubops/pkg/util/errorutil"
)

func TestDashboardStats(t *testing.T) {
	ctx := context.Background()
	tickets := memory.NewTicketRepository()
	departments := memory.NewDepartmentRepository()

	dept := &domain.Department{ID: uuid.NewString(), Name: "Maintenance"}
	require.NoError(t, departments.Create(ctx, dept))

	accepted := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	resolvedFast := accepted.Add(1 * time.Hour)
	resolvedSlow := accepted.Add(3 * time.Hour)
	five, two := 5, 2

	seed := []domain.Ticket{
		{ID: uuid.NewString(), TenantName: "a", Type: "Leak", Priority: domain.TicketPriorityLow,
			Description: "x", Status: domain.TicketStatusResolved, AssignedDeptID: &dept.ID,
			AcceptedAt: &accepted, ResolvedAt: &resolvedFast, FeedbackRating: &five, Version: 1},
		{ID: uuid.NewString(), TenantName: "b", Type: "Leak", Priority: domain.TicketPriorityLow,
			Description: "x", Status: domain.TicketStatusResolved, AssignedDeptID: &dept.ID,
			AcceptedAt: &accepted, ResolvedAt: &resolvedSlow, FeedbackRating: &two, Version: 1},
		{ID: uuid.NewString(), TenantName: "c", Type: "Leak", Priority: domain.TicketPriorityLow,
			Description: "x", Status: domain.TicketStatusInProgress, AssignedDeptID: &dept.ID,
			AcceptedAt: &accepted, Version: 1},
	}
	for i := range seed {
		require.NoError(t, tickets.Create(ctx, &seed[i]))
	}

	svc := NewStatsService(tickets, departments, nil, nil)
	gm := &domain.User{ID: uuid.NewString(), Role: domain.RoleGM}

	stats, err := svc.Dashboard(ctx, gm)
	require.NoError(t, err)

	require.Len(t, stats.IssuesPerDept, 1)
	assert.Equal(t, 3, stats.IssuesPerDept[0].Count)
	require.Len(t, stats.DeptLoad, 1)
	assert.Equal(t, 1, stats.DeptLoad[0].Count)
	assert.Equal(t, 2, stats.ResolvedCount)
	assert.InDelta(t, 2.0, stats.AvgFixTimeHours, 0.001)

	buckets := map[string]int{}
	for _, b := range stats.Satisfaction {
		buckets[b.Name] = b.Value
	}
	assert.Equal(t, 1, buckets["Happy"])
	assert.Equal(t, 0, buckets["Neutral"])
	assert.Equal(t, 1, buckets["Unhappy"])
}

func TestDashboardStatsGMOnly(t *testing.T) {
	svc := NewStatsService(memory.NewTicketRepository(), memory.NewDepartmentRepository(), nil, nil)
	tenant := &domain.User{ID: uuid.NewString(), Role: domain.RoleTenant}
	_, err := svc.Dashboard(context.Background(), tenant)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}
