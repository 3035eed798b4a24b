package domain

import "time"

// TicketStatus enumerates lifecycle states for maintenance tickets.
type TicketStatus string

const (
	TicketStatusPendingApproval TicketStatus = "PENDING_APPROVAL"
	TicketStatusAssigned        TicketStatus = "ASSIGNED"
	TicketStatusInProgress      TicketStatus = "IN_PROGRESS"
	TicketStatusPendingQA       TicketStatus = "PENDING_QA"
	TicketStatusPendingGMReview TicketStatus = "PENDING_GM_REVIEW"
	TicketStatusResolved        TicketStatus = "RESOLVED"
	TicketStatusRejected        TicketStatus = "REJECTED"
)

// Terminal reports whether the status ends the workflow. Rejected is soft
// terminal: a GM may re-assign the ticket back into the flow.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusResolved
}

// TicketPriority enumerates reporter-declared urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// StaffStatus tracks a staff member's response to a delegated assignment,
// independent of the ticket status.
type StaffStatus string

const (
	StaffStatusPending  StaffStatus = "PENDING"
	StaffStatusAccepted StaffStatus = "ACCEPTED"
	StaffStatusRejected StaffStatus = "REJECTED"
)

// Ticket is the aggregate for reported facility work. It is created once,
// mutated only through workflow transitions, and never deleted.
type Ticket struct {
	ID          string
	TenantName  string
	Anonymous   bool
	Type        string
	Priority    TicketPriority
	Description string
	Status      TicketStatus

	ReporterID      *string
	AssignedDeptID  *string
	AssignedStaffID *string
	StaffStatus     *StaffStatus

	EstimatedFixTime        *string
	AssignedDurationMinutes *int
	AcceptedAt              *time.Time
	ResolvedAt              *time.Time

	PhotoURL         *string
	ProofURL         *string
	RejectionMessage *string
	FeedbackRating   *int

	// Version guards the compare-and-set write of every transition.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName hides the reporter's name on anonymous tickets.
func (t *Ticket) DisplayName() string {
	if t.Anonymous {
		return "Anonymous"
	}
	return t.TenantName
}

// Delegated reports whether the ticket is currently handed to a staff member.
func (t *Ticket) Delegated() bool {
	return t.AssignedStaffID != nil
}

// Deadline returns accepted_at plus the assigned duration, or nil when work
// has not been accepted yet.
func (t *Ticket) Deadline() *time.Time {
	if t.AcceptedAt == nil || t.AssignedDurationMinutes == nil {
		return nil
	}
	d := t.AcceptedAt.Add(time.Duration(*t.AssignedDurationMinutes) * time.Minute)
	return &d
}

// Remaining returns deadline minus now. Negative values mean overdue; the
// sign is preserved so callers can render "overdue by Xh Ym". The boolean is
// false when no deadline exists.
func (t *Ticket) Remaining(now time.Time) (time.Duration, bool) {
	deadline := t.Deadline()
	if deadline == nil {
		return 0, false
	}
	return deadline.Sub(now), true
}

// Elapsed returns resolved_at minus accepted_at, non-negative along any valid
// path. The boolean is false unless both timestamps are set.
func (t *Ticket) Elapsed() (time.Duration, bool) {
	if t.AcceptedAt == nil || t.ResolvedAt == nil {
		return 0, false
	}
	return t.ResolvedAt.Sub(*t.AcceptedAt), true
}
