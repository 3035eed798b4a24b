package dto

import (
	"time"

	"github.com/spec-kit/hubops/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Type        string                `json:"type"`
	Priority    domain.TicketPriority `json:"priority"`
	Description string                `json:"description"`
	Anonymous   bool                  `json:"anonymous"`
	PhotoURL    *string               `json:"photo_url"`
}

// ActionRequest is the transition payload. Action selects the variant; the
// remaining fields are read per action.
type ActionRequest struct {
	Action           string  `json:"action"`
	Department       string  `json:"department,omitempty"`
	StaffID          string  `json:"staff_id,omitempty"`
	DurationValue    int     `json:"duration_value,omitempty"`
	DurationUnit     string  `json:"duration_unit,omitempty"`
	ProofURL         string  `json:"proof_url,omitempty"`
	RejectionMessage string  `json:"rejection_message,omitempty"`
}

// FeedbackRequest payload.
type FeedbackRequest struct {
	Rating int `json:"rating"`
}

// TicketResponse is the dashboard read model, including the advisory
// deadline computation.
type TicketResponse struct {
	ID          string                `json:"id"`
	TenantName  string                `json:"tenant_name"`
	Anonymous   bool                  `json:"anonymous"`
	Type        string                `json:"type"`
	Priority    domain.TicketPriority `json:"priority"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`

	AssignedDeptID   *string             `json:"assigned_dept_id"`
	AssignedDept     *string             `json:"assigned_dept,omitempty"`
	AssignedStaffID  *string             `json:"assigned_staff_id"`
	StaffStatus      *domain.StaffStatus `json:"staff_status"`
	EstimatedFixTime *string             `json:"estimated_fix_time"`

	AssignedDurationMinutes *int       `json:"assigned_duration_minutes"`
	AcceptedAt              *time.Time `json:"accepted_at"`
	ResolvedAt              *time.Time `json:"resolved_at"`
	Deadline                *time.Time `json:"deadline,omitempty"`
	RemainingMinutes        *int64     `json:"remaining_minutes,omitempty"`
	Overdue                 bool       `json:"overdue"`
	ElapsedMinutes          *int64     `json:"elapsed_minutes,omitempty"`

	PhotoURL         *string `json:"photo_url"`
	ProofURL         *string `json:"proof_url"`
	RejectionMessage *string `json:"rejection_message"`
	FeedbackRating   *int    `json:"feedback_rating"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TicketHistoryResponse is one audit trail entry.
type TicketHistoryResponse struct {
	ID        string              `json:"id"`
	ActorID   *string             `json:"actor_id"`
	ActorRole domain.Role         `json:"actor_role"`
	Action    string              `json:"action"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Note      *string             `json:"note"`
	CreatedAt time.Time           `json:"created_at"`
}
