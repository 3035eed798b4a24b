package domain

import "time"

// RecurringTask is a template that periodically spawns maintenance tickets.
// NextRunDate carries day granularity; it only ever advances by exactly
// FrequencyDays per scheduler firing.
type RecurringTask struct {
	ID             string
	Title          string
	Description    string
	FrequencyDays  int
	AssignedDeptID string
	NextRunDate    time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Due reports whether the definition should fire at the given instant.
func (r *RecurringTask) Due(now time.Time) bool {
	return !r.NextRunDate.After(now)
}

// AdvancedRunDate returns the next run date moved forward one period.
func (r *RecurringTask) AdvancedRunDate() time.Time {
	return r.NextRunDate.AddDate(0, 0, r.FrequencyDays)
}
