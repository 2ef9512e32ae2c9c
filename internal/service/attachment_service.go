package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const maxAttachmentSizeBytes = 100 << 20

// StorageSigner issues time-limited URLs against object storage. Satisfied
// by the S3 client; faked in tests.
type StorageSigner interface {
	PresignPut(ctx context.Context, key, contentType string, sizeBytes int64) (string, map[string]string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// AttachmentInput carries metadata for one uploaded object. The bytes are
// already in object storage under StorageKey by the time this arrives.
type AttachmentInput struct {
	FileName    string
	StorageKey  string
	ContentType string
	SizeBytes   int64
}

// AttachmentService links uploaded objects to tickets and issues download
// URLs. Object bytes never pass through this service.
type AttachmentService struct {
	stores *repository.Stores
	uow    repository.UnitOfWork
	signer StorageSigner
	policy config.PolicyConfig
}

// NewAttachmentService builds the service. signer may be nil when object
// storage is not configured; download URLs then fail with a domain error.
func NewAttachmentService(stores *repository.Stores, uow repository.UnitOfWork, signer StorageSigner, policy config.PolicyConfig) *AttachmentService {
	return &AttachmentService{stores: stores, uow: uow, signer: signer, policy: policy}
}

// Add attaches uploaded objects to a ticket. Inputs whose storage key was
// already attached are skipped rather than rejected; the audit entry
// records how many rows were actually inserted.
func (s *AttachmentService) Add(ctx context.Context, actor Actor, ticketID string, files []AttachmentInput) (int, error) {
	if len(files) == 0 {
		return 0, apperrors.NewValidationError("at least one attachment is required", nil)
	}
	if err := validateAttachmentInputs(actor, files); err != nil {
		return 0, err
	}

	ticket, err := loadTicketScoped(ctx, s.stores.Tickets, actor, ticketID)
	if err != nil {
		return 0, err
	}

	current, err := s.stores.Attachments.CountByTicket(ctx, ticket.ID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	limit := s.maxAttachments()
	if current+len(files) > limit {
		return 0, apperrors.NewTooManyAttachments(current, len(files), limit)
	}

	var inserted int
	err = s.uow.WithinTx(ctx, func(tx *repository.Stores) error {
		n, err := tx.Attachments.CreateMany(ctx, buildAttachments(ticket.ID, actor.ID, files))
		if err != nil {
			return err
		}
		inserted = n
		return writeAudit(ctx, tx.Audit, actor, domain.AuditAttachmentAdd, domain.AuditTargetTicket, ticket.ID, map[string]any{
			"count": n,
		})
	})
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return inserted, nil
}

// Remove detaches one attachment. Allowed for admins, the uploader, and
// the ticket owner. The object itself stays in storage; only the metadata
// row goes away.
func (s *AttachmentService) Remove(ctx context.Context, actor Actor, attachmentID string) error {
	att, ticket, err := s.loadAttachmentScoped(ctx, actor, attachmentID)
	if err != nil {
		return err
	}

	err = s.uow.WithinTx(ctx, func(tx *repository.Stores) error {
		if err := tx.Attachments.Delete(ctx, att.ID); err != nil {
			// Already removed by a concurrent request.
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		return writeAudit(ctx, tx.Audit, actor, domain.AuditAttachmentRemove, domain.AuditTargetAttachment, att.ID, map[string]any{
			"attachment_id": att.ID,
			"ticket_id":     ticket.ID,
		})
	})
	if err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// DownloadURL returns a time-limited URL for an attachment the caller may
// see.
func (s *AttachmentService) DownloadURL(ctx context.Context, actor Actor, attachmentID string) (string, error) {
	att, _, err := s.loadAttachmentScoped(ctx, actor, attachmentID)
	if err != nil {
		return "", err
	}
	if s.signer == nil {
		return "", apperrors.NewDomainError("STORAGE_UNAVAILABLE", "object storage is not configured", http.StatusServiceUnavailable, nil)
	}
	url, err := s.signer.PresignGet(ctx, att.StorageKey)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return url, nil
}

// loadAttachmentScoped fetches an attachment and enforces the three-way
// access rule: admin, uploader, or ticket owner.
func (s *AttachmentService) loadAttachmentScoped(ctx context.Context, actor Actor, attachmentID string) (*domain.Attachment, *domain.Ticket, error) {
	att, err := s.stores.Attachments.GetByID(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("attachment", nil)
		}
		return nil, nil, apperrors.MapError(err)
	}
	ticket, err := s.stores.Tickets.GetByID(ctx, att.TicketID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	if !actor.IsAdmin() && att.UploaderID != actor.ID && ticket.RequesterID != actor.ID {
		return nil, nil, apperrors.NewForbidden("you do not have access to this attachment")
	}
	return att, ticket, nil
}

func (s *AttachmentService) maxAttachments() int {
	if s.policy.MaxAttachmentsPerTicket <= 0 {
		return 5
	}
	return s.policy.MaxAttachmentsPerTicket
}

// validateAttachmentInputs checks each input against the content-type
// allow-list, the size bounds, and the key-ownership convention. Admins may
// reference keys outside their own namespace.
func validateAttachmentInputs(actor Actor, files []AttachmentInput) error {
	for i, f := range files {
		if strings.TrimSpace(f.FileName) == "" {
			return apperrors.NewValidationError(fmt.Sprintf("attachment %d: file name is required", i), nil)
		}
		if !domain.AllowedContentType(f.ContentType) {
			return apperrors.NewValidationError(
				fmt.Sprintf("attachment %d: content type %q is not allowed", i, f.ContentType),
				map[string]any{"content_type": f.ContentType})
		}
		if f.SizeBytes <= 0 || f.SizeBytes > maxAttachmentSizeBytes {
			return apperrors.NewValidationError(
				fmt.Sprintf("attachment %d: size out of range", i),
				map[string]any{"size_bytes": f.SizeBytes, "max": maxAttachmentSizeBytes})
		}
		if !actor.IsAdmin() && !domain.KeyOwnedBy(f.StorageKey, actor.ID) {
			return apperrors.NewInvalidKey(f.StorageKey)
		}
	}
	return nil
}

func buildAttachments(ticketID, uploaderID string, files []AttachmentInput) []domain.Attachment {
	attachments := make([]domain.Attachment, len(files))
	for i, f := range files {
		attachments[i] = domain.Attachment{
			TicketID:    ticketID,
			UploaderID:  uploaderID,
			FileName:    strings.TrimSpace(f.FileName),
			StorageKey:  f.StorageKey,
			ContentType: strings.ToLower(strings.TrimSpace(f.ContentType)),
			SizeBytes:   f.SizeBytes,
		}
	}
	return attachments
}
