package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationInputMinutes(t *testing.T) {
	cases := []struct {
		input DurationInput
		want  int
	}{
		{DurationInput{Value: 45, Unit: UnitMinutes}, 45},
		{DurationInput{Value: 2, Unit: UnitHours}, 120},
		{DurationInput{Value: 3, Unit: UnitDays}, 4320},
	}
	for _, tc := range cases {
		got, err := tc.input.Minutes()
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestDurationInputRejectsBadInput(t *testing.T) {
	_, err := DurationInput{Value: 0, Unit: UnitHours}.Minutes()
	assert.Error(t, err)

	_, err = DurationInput{Value: -5, Unit: UnitMinutes}.Minutes()
	assert.Error(t, err)

	_, err = DurationInput{Value: 1, Unit: "weeks"}.Minutes()
	assert.Error(t, err)
}

func TestDurationInputLabel(t *testing.T) {
	assert.Equal(t, "2 hours", DurationInput{Value: 2, Unit: UnitHours}.Label())
	assert.Equal(t, "45 minutes", DurationInput{Value: 45, Unit: UnitMinutes}.Label())
}

func TestDeadlineAndRemaining(t *testing.T) {
	accepted := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	minutes := 120
	ticket := &Ticket{AcceptedAt: &accepted, AssignedDurationMinutes: &minutes}

	deadline := ticket.Deadline()
	require.NotNil(t, deadline)
	assert.True(t, deadline.Equal(accepted.Add(2*time.Hour)))

	remaining, ok := ticket.Remaining(accepted.Add(30 * time.Minute))
	require.True(t, ok)
	assert.Equal(t, 90*time.Minute, remaining)

	// overdue keeps the sign, it is never clamped to zero
	remaining, ok = ticket.Remaining(accepted.Add(181 * time.Minute))
	require.True(t, ok)
	assert.Equal(t, -61*time.Minute, remaining)
}

func TestRemainingWithoutDeadline(t *testing.T) {
	ticket := &Ticket{}
	_, ok := ticket.Remaining(time.Now())
	assert.False(t, ok)

	accepted := time.Now()
	ticket.AcceptedAt = &accepted
	_, ok = ticket.Remaining(time.Now())
	assert.False(t, ok)
}

func TestElapsed(t *testing.T) {
	accepted := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	resolved := accepted.Add(2 * time.Hour)
	ticket := &Ticket{AcceptedAt: &accepted, ResolvedAt: &resolved}

	elapsed, ok := ticket.Elapsed()
	require.True(t, ok)
	assert.Equal(t, 2*time.Hour, elapsed)

	_, ok = (&Ticket{AcceptedAt: &accepted}).Elapsed()
	assert.False(t, ok)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "alice", (&Ticket{TenantName: "alice"}).DisplayName())
	assert.Equal(t, "Anonymous", (&Ticket{TenantName: "alice", Anonymous: true}).DisplayName())
}

func TestRecurringTaskDue(t *testing.T) {
	now := time.Date(2025, 6, 15, 6, 0, 0, 0, time.UTC)
	task := &RecurringTask{FrequencyDays: 7, NextRunDate: now}
	assert.True(t, task.Due(now))
	assert.True(t, task.Due(now.Add(time.Hour)))
	assert.False(t, task.Due(now.Add(-time.Hour)))

	next := task.AdvancedRunDate()
	assert.True(t, next.Equal(now.AddDate(0, 0, 7)))
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, TicketStatusResolved.Terminal())
	// Rejected is soft terminal: the GM can re-assign it
	assert.False(t, TicketStatusRejected.Terminal())
	assert.False(t, TicketStatusInProgress.Terminal())
}
