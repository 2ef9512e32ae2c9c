package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew           TicketStatus = "NEW"
	TicketStatusInProgress    TicketStatus = "IN_PROGRESS"
	TicketStatusWaitingOnUser TicketStatus = "WAITING_ON_USER"
	TicketStatusResolved      TicketStatus = "RESOLVED"
	TicketStatusClosed        TicketStatus = "CLOSED"
	TicketStatusReopened      TicketStatus = "REOPENED"
)

// Valid reports whether the status is part of the enum domain.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusNew, TicketStatusInProgress, TicketStatusWaitingOnUser,
		TicketStatusResolved, TicketStatusClosed, TicketStatusReopened:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityNormal TicketPriority = "NORMAL"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Valid reports whether the priority is part of the enum domain.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests. Lifecycle is terminal-state
// based; tickets are never deleted.
type Ticket struct {
	ID          string
	ExternalKey string
	RequesterID string
	Title       string
	Body        string
	Status      TicketStatus
	Priority    TicketPriority
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ResolvedAt  *time.Time
	ClosedAt    *time.Time
}

// allowedTransitions lists the legal status edges for non-admin actors.
// CLOSED has no outgoing edges; admins bypass this table entirely.
var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusNew:           {TicketStatusInProgress, TicketStatusClosed},
	TicketStatusInProgress:    {TicketStatusWaitingOnUser, TicketStatusResolved, TicketStatusClosed},
	TicketStatusWaitingOnUser: {TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed},
	TicketStatusResolved:      {TicketStatusClosed, TicketStatusReopened},
	TicketStatusReopened:      {TicketStatusInProgress, TicketStatusWaitingOnUser, TicketStatusResolved, TicketStatusClosed},
	TicketStatusClosed:        {},
}

// CanTransition reports whether current -> next is a legal non-admin edge.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
