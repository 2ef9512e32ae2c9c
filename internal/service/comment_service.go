package service

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const (
	maxCommentLength  = 10000
	bodyPreviewLength = 120
)

// CommentService manages ticket thread comments. Bodies are HTML-escaped
// on the way in; deletes are soft and idempotent.
type CommentService struct {
	stores     *repository.Stores
	uow        repository.UnitOfWork
	dispatcher events.Dispatcher
	now        func() time.Time
}

// NewCommentService builds the service.
func NewCommentService(stores *repository.Stores, uow repository.UnitOfWork, dispatcher events.Dispatcher) *CommentService {
	return &CommentService{
		stores:     stores,
		uow:        uow,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Add appends a comment to a ticket thread. Non-admins may only comment on
// their own tickets.
func (s *CommentService) Add(ctx context.Context, actor Actor, ticketID, body string) (*domain.Comment, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil, apperrors.NewValidationError("comment body is required", nil)
	}
	if len(trimmed) > maxCommentLength {
		return nil, apperrors.NewValidationError("comment too long", map[string]any{"max": maxCommentLength})
	}

	ticket, err := loadTicketScoped(ctx, s.stores.Tickets, actor, ticketID)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: actor.ID,
		Body:     html.EscapeString(trimmed),
	}

	err = s.uow.WithinTx(ctx, func(tx *repository.Stores) error {
		if err := tx.Comments.Create(ctx, comment); err != nil {
			return err
		}
		return writeAudit(ctx, tx.Audit, actor, domain.AuditCommentAdd, domain.AuditTargetComment, comment.ID, map[string]any{
			"ticket_id": ticket.ID,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishCommentAdded(ctx, actor, ticket, comment)
	return comment, nil
}

// SoftDelete hides a comment from rendering. Only the author or an admin
// may delete; deleting an already-deleted comment succeeds without writing
// anything.
func (s *CommentService) SoftDelete(ctx context.Context, actor Actor, commentID string) error {
	comment, err := s.stores.Comments.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("comment", nil)
		}
		return apperrors.MapError(err)
	}

	if !actor.IsAdmin() && comment.AuthorID != actor.ID {
		return apperrors.NewForbidden("you cannot delete this comment")
	}
	if comment.DeletedAt != nil {
		return nil
	}

	deletedAt := s.now()
	err = s.uow.WithinTx(ctx, func(tx *repository.Stores) error {
		if err := tx.Comments.SoftDelete(ctx, comment.ID, deletedAt); err != nil {
			// A concurrent delete already hid the row; treat as done.
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		return writeAudit(ctx, tx.Audit, actor, domain.AuditCommentDelete, domain.AuditTargetComment, comment.ID, map[string]any{
			"ticket_id": comment.TicketID,
		})
	})
	if err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *CommentService) publishCommentAdded(ctx context.Context, actor Actor, ticket *domain.Ticket, comment *domain.Comment) {
	preview := truncatePreview(comment.Body, bodyPreviewLength)
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventCommentAdded,
		TicketID:  ticket.ID,
		Actor:     eventActor(actor),
		Timestamp: s.now(),
		Payload: events.CommentAddedPayload{
			CommentID:      comment.ID,
			ExternalKey:    ticket.ExternalKey,
			AuthorRole:     actor.Role,
			RequesterEmail: requesterEmail(ctx, s.stores.Users, ticket.RequesterID),
			BodyPreview:    preview,
		},
	})
}

// truncatePreview cuts the escaped body at a rune boundary and drops any
// half-written entity left at the edge, so the preview is always valid text.
func truncatePreview(body string, limit int) string {
	if len(body) <= limit {
		return body
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	preview := body[:cut]
	if amp := strings.LastIndexByte(preview, '&'); amp >= 0 && !strings.ContainsRune(preview[amp:], ';') {
		preview = preview[:amp]
	}
	return preview
}
