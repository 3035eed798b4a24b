package domain

import "time"

// TicketHistory is an immutable audit trail entry recorded for every
// successful workflow transition.
type TicketHistory struct {
	ID        string
	TicketID  string
	ActorID   *string
	ActorRole Role
	Action    string
	OldStatus TicketStatus
	NewStatus TicketStatus
	Note      *string
	CreatedAt time.Time
}
