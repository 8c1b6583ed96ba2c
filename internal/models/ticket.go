package models

import (
	"fmt"
	"time"
)

// TicketStatus is the lifecycle state of a dispatch ticket.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusProcessing TicketStatus = "processing"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known ticket status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusPending, TicketStatusAssigned, TicketStatusProcessing,
		TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// Transition validates the move from s to next. Any pair of valid
// statuses is allowed: operators may jump states freely (pending to
// resolved directly is legal); only the enum itself is enforced.
func (s TicketStatus) Transition(next TicketStatus) error {
	if !next.Valid() {
		return fmt.Errorf("%w: invalid ticket status %q", ErrValidation, next)
	}
	return nil
}

// TicketPriority is orthogonal to status and settable at any state.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority level.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is a dispatchable unit of work created from an approved report.
// At most one ticket exists per report.
type Ticket struct {
	ID          int64          `json:"id"`
	ReportID    int64          `json:"report_id"`
	TicketNo    string         `json:"ticket_no"`
	EventType   string         `json:"event_type,omitempty"`
	Location    string         `json:"location,omitempty"`
	Description string         `json:"description,omitempty"`
	Status      TicketStatus   `json:"status"`
	Priority    TicketPriority `json:"priority"`
	AssignedTo  *int64         `json:"assigned_to,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TicketRecord is one audit entry for a ticket mutation. Old and new
// status are captured even when the status itself did not change, to
// keep the trail continuous.
type TicketRecord struct {
	ID         int64     `json:"id"`
	TicketID   int64     `json:"ticket_id"`
	OperatorID int64     `json:"operator_id"`
	Action     string    `json:"action"`
	OldStatus  string    `json:"old_status,omitempty"`
	NewStatus  string    `json:"new_status,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
