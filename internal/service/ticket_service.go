package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const (
	maxTitleLength     = 200
	maxBodyLength      = 20000
	autoCloseBatchSize = 100
)

// TicketService implements the ticket lifecycle: creation, status and
// priority changes, requester reopen, and the auto-close sweep.
type TicketService struct {
	stores     *repository.Stores
	uow        repository.UnitOfWork
	dispatcher events.Dispatcher
	policy     config.PolicyConfig
	now        func() time.Time
}

// NewTicketService builds the service over pool-bound stores and a
// transactional unit of work.
func NewTicketService(stores *repository.Stores, uow repository.UnitOfWork, dispatcher events.Dispatcher, policy config.PolicyConfig) *TicketService {
	return &TicketService{
		stores:     stores,
		uow:        uow,
		dispatcher: dispatcher,
		policy:     policy,
		now:        time.Now,
	}
}

// TicketCreateInput carries new-ticket fields from the transport layer.
type TicketCreateInput struct {
	Title       string
	Body        string
	Priority    string
	Attachments []AttachmentInput
}

// TicketDetail bundles a ticket with its thread and attachments.
type TicketDetail struct {
	Ticket      *domain.Ticket
	Comments    []domain.Comment
	Attachments []domain.Attachment
}

// CreateTicket opens a new ticket in status NEW with an optional initial
// attachment batch. The ticket row, attachment rows, and the audit entry
// commit in one transaction.
func (s *TicketService) CreateTicket(ctx context.Context, actor Actor, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if len(title) > maxTitleLength {
		return nil, apperrors.NewValidationError("title too long", map[string]any{"max": maxTitleLength})
	}
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, apperrors.NewValidationError("body is required", nil)
	}
	if len(body) > maxBodyLength {
		return nil, apperrors.NewValidationError("body too long", map[string]any{"max": maxBodyLength})
	}

	priority := domain.TicketPriorityNormal
	if raw := strings.TrimSpace(input.Priority); raw != "" {
		priority = domain.TicketPriority(strings.ToUpper(raw))
		if !priority.Valid() {
			return nil, apperrors.NewInvalidPriority(input.Priority)
		}
	}

	if err := validateAttachmentInputs(actor, input.Attachments); err != nil {
		return nil, err
	}
	if limit := s.maxAttachments(); len(input.Attachments) > limit {
		return nil, apperrors.NewTooManyAttachments(0, len(input.Attachments), limit)
	}

	ticket := &domain.Ticket{
		ExternalKey: newTicketKey(),
		RequesterID: actor.ID,
		Title:       title,
		Body:        body,
		Status:      domain.TicketStatusNew,
		Priority:    priority,
	}

	var attached int
	err := s.uow.WithinTx(ctx, func(tx *repository.Stores) error {
		if err := tx.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		if len(input.Attachments) > 0 {
			inserted, err := tx.Attachments.CreateMany(ctx, buildAttachments(ticket.ID, actor.ID, input.Attachments))
			if err != nil {
				return err
			}
			attached = inserted
		}
		return writeAudit(ctx, tx.Audit, actor, domain.AuditTicketCreate, domain.AuditTargetTicket, ticket.ID, map[string]any{
			"title":       title,
			"priority":    string(priority),
			"attachments": attached,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventTicketCreated, ticket.ID, actor, events.TicketCreatedPayload{
		ExternalKey:    ticket.ExternalKey,
		Title:          ticket.Title,
		Priority:       ticket.Priority,
		RequesterEmail: actor.Email,
		RequesterName:  actor.Name,
	})
	return ticket, nil
}

// UpdateStatus moves a ticket along the lifecycle. Admin actors may take
// any edge; everyone else (including the system sweep) is bound to the
// transition table. Setting the current status again is a no-op: no audit
// entry, no event.
func (s *TicketService) UpdateStatus(ctx context.Context, actor Actor, ticketID string, next domain.TicketStatus) (*domain.Ticket, error) {
	if !next.Valid() {
		return nil, apperrors.NewInvalidStatus(string(next))
	}

	ticket, err := s.stores.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}

	if ticket.Status == next {
		return ticket, nil
	}
	if !actor.IsAdmin() && !domain.CanTransition(ticket.Status, next) {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(next))
	}

	old := ticket.Status
	ticket.Status = next
	s.applyStatusTimestamps(ticket, next)

	err = s.uow.WithinTx(ctx, func(tx *repository.Stores) error {
		if err := tx.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		return writeAudit(ctx, tx.Audit, actor, domain.AuditTicketStatusChange, domain.AuditTargetTicket, ticket.ID, map[string]any{
			"from": string(old),
			"to":   string(next),
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventTicketStatusChanged, ticket.ID, actor, events.TicketStatusChangedPayload{
		ExternalKey:    ticket.ExternalKey,
		OldStatus:      old,
		NewStatus:      next,
		RequesterEmail: requesterEmail(ctx, s.stores.Users, ticket.RequesterID),
	})
	return ticket, nil
}

// UpdatePriority changes the urgency of a ticket. Setting the current
// priority again is a no-op.
func (s *TicketService) UpdatePriority(ctx context.Context, actor Actor, ticketID string, next domain.TicketPriority) (*domain.Ticket, error) {
	if !next.Valid() {
		return nil, apperrors.NewInvalidPriority(string(next))
	}

	ticket, err := s.stores.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}

	if ticket.Priority == next {
		return ticket, nil
	}

	old := ticket.Priority
	ticket.Priority = next

	err = s.uow.WithinTx(ctx, func(tx *repository.Stores) error {
		if err := tx.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		return writeAudit(ctx, tx.Audit, actor, domain.AuditTicketPriorityChange, domain.AuditTargetTicket, ticket.ID, map[string]any{
			"from": string(old),
			"to":   string(next),
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventTicketPriorityChanged, ticket.ID, actor, events.TicketPriorityChangedPayload{
		ExternalKey: ticket.ExternalKey,
		OldPriority: old,
		NewPriority: next,
	})
	return ticket, nil
}

// Reopen moves a RESOLVED ticket back to REOPENED. Requesters may only
// reopen their own tickets and only while the reopen window since
// resolution has not elapsed; admins are exempt from the window.
func (s *TicketService) Reopen(ctx context.Context, actor Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.stores.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}

	// Admins may force a reopen from any state at any time; requesters are
	// bound to their own resolved tickets inside the reopen window. Access
	// is decided before any state short-circuit so strangers learn nothing
	// about tickets they cannot see.
	if actor.IsAdmin() {
		if ticket.Status == domain.TicketStatusReopened {
			return ticket, nil
		}
	} else {
		if ticket.RequesterID != actor.ID {
			return nil, apperrors.NewForbidden("you do not have access to this ticket")
		}
		if ticket.Status != domain.TicketStatusResolved {
			return nil, apperrors.NewReopenNotAllowed(string(ticket.Status))
		}
		window := s.policy.ReopenWindow()
		if ticket.ResolvedAt == nil || s.now().Sub(*ticket.ResolvedAt) > window {
			return nil, apperrors.NewReopenWindowElapsed(int(window / (24 * time.Hour)))
		}
	}

	old := ticket.Status
	ticket.Status = domain.TicketStatusReopened
	s.applyStatusTimestamps(ticket, domain.TicketStatusReopened)

	err = s.uow.WithinTx(ctx, func(tx *repository.Stores) error {
		if err := tx.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		return writeAudit(ctx, tx.Audit, actor, domain.AuditTicketReopen, domain.AuditTargetTicket, ticket.ID, map[string]any{
			"from": string(old),
			"to":   string(domain.TicketStatusReopened),
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventTicketReopened, ticket.ID, actor, events.TicketReopenedPayload{
		ExternalKey:    ticket.ExternalKey,
		RequesterEmail: requesterEmail(ctx, s.stores.Users, ticket.RequesterID),
	})
	return ticket, nil
}

// GetDetail returns one ticket with its comment thread and attachments.
// Non-admin callers only see their own tickets, and deleted comments are
// filtered out of their view.
func (s *TicketService) GetDetail(ctx context.Context, actor Actor, ticketID string) (*TicketDetail, error) {
	ticket, err := loadTicketScoped(ctx, s.stores.Tickets, actor, ticketID)
	if err != nil {
		return nil, err
	}

	comments, err := s.stores.Comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !actor.IsAdmin() {
		visible := comments[:0]
		for _, c := range comments {
			if c.Visible() {
				visible = append(visible, c)
			}
		}
		comments = visible
	}

	attachments, err := s.stores.Attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	return &TicketDetail{Ticket: ticket, Comments: comments, Attachments: attachments}, nil
}

// ListForRequester lists the caller's own tickets.
func (s *TicketService) ListForRequester(ctx context.Context, actor Actor, filter repository.TicketFilter) ([]domain.Ticket, error) {
	id := actor.ID
	filter.RequesterID = &id
	tickets, err := s.stores.Tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListAll lists tickets across all requesters. Route guards restrict it to
// admins.
func (s *TicketService) ListAll(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.stores.Tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// AuditTrail returns the audit entries recorded against one ticket.
func (s *TicketService) AuditTrail(ctx context.Context, ticketID string, limit, offset int) ([]domain.AuditLogEntry, error) {
	if _, err := s.stores.Tickets.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}
	entries, err := s.stores.Audit.ListByTarget(ctx, domain.AuditTargetTicket, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// ListAutoCloseCandidates returns resolved tickets whose resolution is
// older than the auto-close policy allows.
func (s *TicketService) ListAutoCloseCandidates(ctx context.Context) ([]domain.Ticket, error) {
	cutoff := s.now().Add(-s.policy.AutoCloseAfter())
	tickets, err := s.stores.Tickets.ListResolvedBefore(ctx, cutoff, autoCloseBatchSize)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// AutoClose closes one stale resolved ticket on behalf of the system. The
// RESOLVED -> CLOSED edge is in the transition table, so the system actor
// needs no special casing.
func (s *TicketService) AutoClose(ctx context.Context, ticketID string) error {
	_, err := s.UpdateStatus(ctx, SystemActor(), ticketID, domain.TicketStatusClosed)
	return err
}

// applyStatusTimestamps maintains ResolvedAt/ClosedAt for a transition.
// RESOLVED stamps resolution and clears closure; CLOSED stamps closure;
// REOPENED clears both; any other target clears closure only.
func (s *TicketService) applyStatusTimestamps(ticket *domain.Ticket, next domain.TicketStatus) {
	now := s.now()
	switch next {
	case domain.TicketStatusResolved:
		ticket.ResolvedAt = &now
		ticket.ClosedAt = nil
	case domain.TicketStatusClosed:
		ticket.ClosedAt = &now
	case domain.TicketStatusReopened:
		ticket.ResolvedAt = nil
		ticket.ClosedAt = nil
	default:
		ticket.ClosedAt = nil
	}
}

func (s *TicketService) maxAttachments() int {
	if s.policy.MaxAttachmentsPerTicket <= 0 {
		return 5
	}
	return s.policy.MaxAttachmentsPerTicket
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, ticketID string, actor Actor, payload any) {
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     eventActor(actor),
		Timestamp: s.now(),
		Payload:   payload,
	})
}

// loadTicketScoped fetches a ticket for a caller. For non-admins, a missing
// ticket and someone else's ticket produce the same Forbidden error so the
// response does not leak which ids exist.
func loadTicketScoped(ctx context.Context, tickets repository.TicketRepository, actor Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if actor.IsAdmin() {
				return nil, apperrors.NewNotFound("ticket", nil)
			}
			return nil, apperrors.NewForbidden("you do not have access to this ticket")
		}
		return nil, apperrors.MapError(err)
	}
	if !actor.IsAdmin() && ticket.RequesterID != actor.ID {
		return nil, apperrors.NewForbidden("you do not have access to this ticket")
	}
	return ticket, nil
}

// requesterEmail resolves the ticket owner's email for notifications. A
// lookup failure degrades to an empty recipient; the operation itself has
// already committed.
func requesterEmail(ctx context.Context, users repository.UserRepository, requesterID string) string {
	user, err := users.GetByID(ctx, requesterID)
	if err != nil {
		return ""
	}
	return user.Email
}

// newTicketKey mints the human-facing ticket reference, e.g. TCK-9F2C41A7.
func newTicketKey() string {
	fragment := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return "TCK-" + fragment
}

func eventActor(actor Actor) events.Actor {
	if actor.ID == "" {
		return events.SystemActor()
	}
	return events.UserActor(actor.ID, actor.Role)
}
