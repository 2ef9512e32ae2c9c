package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers. The string values double
// as notification dedup keys.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "status_changed"
	EventTicketPriorityChanged EventType = "priority_changed"
	EventTicketReopened        EventType = "reopened"
	EventCommentAdded          EventType = "comment_added"
)

// Actor encapsulates actor metadata for an event. A nil UserID means the
// event was system-initiated (e.g. the auto-close sweep).
type Actor struct {
	UserID *string     `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// SystemActor returns the actor used for system-initiated events.
func SystemActor() Actor {
	return Actor{}
}

// UserActor returns an actor for the given principal.
func UserActor(id string, role domain.Role) Actor {
	return Actor{UserID: &id, Role: role}
}

// IsAdmin reports whether the event was triggered by an administrator.
func (a Actor) IsAdmin() bool {
	return a.UserID != nil && a.Role == domain.RoleAdmin
}

// Event represents a domain event emitted by services.
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
	ExternalKey    string                `json:"external_key"`
	Title          string                `json:"title"`
	Priority       domain.TicketPriority `json:"priority"`
	RequesterEmail string                `json:"requester_email"`
	RequesterName  string                `json:"requester_name"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	ExternalKey    string              `json:"external_key"`
	OldStatus      domain.TicketStatus `json:"old_status"`
	NewStatus      domain.TicketStatus `json:"new_status"`
	RequesterEmail string              `json:"requester_email"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	ExternalKey string                `json:"external_key"`
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketReopenedPayload payload.
type TicketReopenedPayload struct {
	ExternalKey    string `json:"external_key"`
	RequesterEmail string `json:"requester_email"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID      string      `json:"comment_id"`
	ExternalKey    string      `json:"external_key"`
	AuthorRole     domain.Role `json:"author_role"`
	RequesterEmail string      `json:"requester_email"`
	BodyPreview    string      `json:"body_preview"`
}
