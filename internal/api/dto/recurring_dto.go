package dto

import "time"

// RecurringTaskRequest payload for create/update.
type RecurringTaskRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	FrequencyDays int    `json:"frequency_days"`
	Department    string `json:"department"`
	NextRunDate   string `json:"next_run_date"` // YYYY-MM-DD
}

// RecurringTaskResponse read model.
type RecurringTaskResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	FrequencyDays  int       `json:"frequency_days"`
	AssignedDeptID string    `json:"assigned_dept_id"`
	AssignedDept   *string   `json:"assigned_dept,omitempty"`
	NextRunDate    string    `json:"next_run_date"`
	CreatedAt      time.Time `json:"created_at"`
}

// SchedulerRunResponse summarizes a scheduler pass.
type SchedulerRunResponse struct {
	Created  int `json:"created"`
	Advanced int `json:"advanced"`
}
