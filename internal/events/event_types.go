package events

import (
	"time"

	"github.com/spec-kit/hubops/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketTransitioned EventType = "ticket_transitioned"
	EventTicketDelegated    EventType = "ticket_delegated"
	EventTicketGenerated    EventType = "ticket_generated"
)

// Actor encapsulates actor metadata for an event. System is true for
// scheduler-generated events with no human actor.
type Actor struct {
	Role   domain.Role `json:"role,omitempty"`
	UserID *string     `json:"user_id,omitempty"`
	System bool        `json:"system,omitempty"`
}

// Event represents a domain event emitted by the workflow engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Type        string                `json:"type"`
	Priority    domain.TicketPriority `json:"priority"`
	Anonymous   bool                  `json:"anonymous"`
	Department  *string               `json:"department_id,omitempty"`
	Description string                `json:"description"`
}

// TicketTransitionedPayload payload.
type TicketTransitionedPayload struct {
	Action    string              `json:"action"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Note      *string             `json:"note,omitempty"`
}

// TicketDelegatedPayload payload.
type TicketDelegatedPayload struct {
	StaffID     string             `json:"staff_id"`
	StaffStatus domain.StaffStatus `json:"staff_status"`
}

// TicketGeneratedPayload payload.
type TicketGeneratedPayload struct {
	RecurringTaskID string `json:"recurring_task_id"`
	DepartmentID    string `json:"department_id"`
}
