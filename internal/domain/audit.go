package domain

import "time"

// AuditTargetType names the kind of entity an audit entry refers to.
type AuditTargetType string

const (
	AuditTargetTicket     AuditTargetType = "ticket"
	AuditTargetComment    AuditTargetType = "comment"
	AuditTargetAttachment AuditTargetType = "attachment"
)

// Audit actions, namespaced by target.
const (
	AuditTicketCreate         = "ticket:create"
	AuditTicketStatusChange   = "ticket:status_change"
	AuditTicketPriorityChange = "ticket:priority_change"
	AuditTicketReopen         = "ticket:reopen"
	AuditCommentAdd           = "comment:add"
	AuditCommentDelete        = "comment:delete"
	AuditAttachmentAdd        = "attachment:add"
	AuditAttachmentRemove     = "attachment:remove"
)

// AuditLogEntry is an immutable record of who did what to what. A nil
// ActorID means the action was system-initiated. Entries are append-only.
type AuditLogEntry struct {
	ID         string
	ActorID    *string
	Action     string
	TargetType AuditTargetType
	TargetID   string
	Changes    map[string]any
	IP         *string
	CreatedAt  time.Time
}
