package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string              `json:"title"`
	Body        string              `json:"body"`
	Priority    string              `json:"priority"`
	Attachments []AttachmentRequest `json:"attachments"`
}

// AttachmentRequest describes one already-uploaded object to attach.
type AttachmentRequest struct {
	FileName    string `json:"file_name"`
	StorageKey  string `json:"storage_key"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// ToAttachmentInputs converts transport attachments into service inputs.
func ToAttachmentInputs(reqs []AttachmentRequest) []service.AttachmentInput {
	inputs := make([]service.AttachmentInput, len(reqs))
	for i, r := range reqs {
		inputs[i] = service.AttachmentInput{
			FileName:    r.FileName,
			StorageKey:  r.StorageKey,
			ContentType: r.ContentType,
			SizeBytes:   r.SizeBytes,
		}
	}
	return inputs
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority string `json:"priority"`
}

// AddCommentRequest payload.
type AddCommentRequest struct {
	Body string `json:"body"`
}

// AddAttachmentsRequest payload.
type AddAttachmentsRequest struct {
	Attachments []AttachmentRequest `json:"attachments"`
}

// PresignUploadRequest payload.
type PresignUploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// PresignUploadResponse carries the minted key and upload URL.
type PresignUploadResponse struct {
	StorageKey string            `json:"storage_key"`
	UploadURL  string            `json:"upload_url"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// TicketSummary response.
type TicketSummary struct {
	ID          string                `json:"id"`
	ExternalKey string                `json:"external_key"`
	Title       string                `json:"title"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	ResolvedAt  *time.Time            `json:"resolved_at,omitempty"`
	ClosedAt    *time.Time            `json:"closed_at,omitempty"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Body        string               `json:"body"`
	Comments    []CommentResponse    `json:"comments"`
	Attachments []AttachmentResponse `json:"attachments"`
}

// CommentResponse represents one thread comment.
type CommentResponse struct {
	ID        string     `json:"id"`
	AuthorID  string     `json:"author_id"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuditEntryResponse is one audit trail row.
type AuditEntryResponse struct {
	ID         string         `json:"id"`
	ActorID    *string        `json:"actor_id"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	Changes    map[string]any `json:"changes,omitempty"`
	IP         *string        `json:"ip,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewTicketSummary maps a domain ticket.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:          t.ID,
		ExternalKey: t.ExternalKey,
		Title:       t.Title,
		Status:      t.Status,
		Priority:    t.Priority,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		ResolvedAt:  t.ResolvedAt,
		ClosedAt:    t.ClosedAt,
	}
}

// NewTicketDetail maps a detail bundle.
func NewTicketDetail(d *service.TicketDetail) TicketDetailResponse {
	comments := make([]CommentResponse, 0, len(d.Comments))
	for _, c := range d.Comments {
		comments = append(comments, CommentResponse{
			ID:        c.ID,
			AuthorID:  c.AuthorID,
			Body:      c.Body,
			CreatedAt: c.CreatedAt,
			DeletedAt: c.DeletedAt,
		})
	}
	attachments := make([]AttachmentResponse, 0, len(d.Attachments))
	for _, a := range d.Attachments {
		attachments = append(attachments, AttachmentResponse{
			ID:          a.ID,
			FileName:    a.FileName,
			ContentType: a.ContentType,
			SizeBytes:   a.SizeBytes,
			CreatedAt:   a.CreatedAt,
		})
	}
	return TicketDetailResponse{
		TicketSummary: NewTicketSummary(d.Ticket),
		Body:          d.Ticket.Body,
		Comments:      comments,
		Attachments:   attachments,
	}
}

// NewAuditEntries maps audit rows.
func NewAuditEntries(entries []domain.AuditLogEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:         e.ID,
			ActorID:    e.ActorID,
			Action:     e.Action,
			TargetType: string(e.TargetType),
			TargetID:   e.TargetID,
			Changes:    e.Changes,
			IP:         e.IP,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}
