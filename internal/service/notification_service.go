package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/email"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// NotificationService turns ticket events into emails. Every send (except
// the new-ticket alert) first claims a per-minute dedup slot keyed by
// (ticket, event type), so a burst of identical events within one minute
// produces one email. Send failures are logged and never propagate into
// the business operation that triggered them.
type NotificationService struct {
	dispatcher events.Dispatcher
	dedup      repository.NotificationDedupRepository
	mailer     email.Mailer
	logger     *zap.Logger
	cfg        config.NotificationConfig
	now        func() time.Time
}

// NewNotificationService builds the service.
func NewNotificationService(dispatcher events.Dispatcher, dedup repository.NotificationDedupRepository, mailer email.Mailer, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		dedup:      dedup,
		mailer:     mailer,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// RegisterHandlers subscribes the notification handlers to the dispatcher.
func (n *NotificationService) RegisterHandlers() {
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketReopened, n.handleReopened)
	n.dispatcher.Subscribe(events.EventCommentAdded, n.handleCommentAdded)
}

// handleTicketCreated alerts the admin channel. New tickets are always
// distinct, so no dedup gate applies.
func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		n.logUnexpectedPayload(event)
		return nil
	}
	subject := fmt.Sprintf("[%s] New ticket: %s", payload.ExternalKey, payload.Title)
	body := fmt.Sprintf("<p>%s opened ticket %s with priority %s.</p>",
		payload.RequesterName, payload.ExternalKey, payload.Priority)
	n.send(payload.ExternalKey, n.cfg.AdminEmail, subject, body)
	return nil
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		n.logUnexpectedPayload(event)
		return nil
	}
	if !n.shouldSend(ctx, event.TicketID, event.Type) {
		return nil
	}
	subject := fmt.Sprintf("[%s] Ticket status updated", payload.ExternalKey)
	body := fmt.Sprintf("<p>Your ticket %s moved from %s to %s.</p>",
		payload.ExternalKey, payload.OldStatus, payload.NewStatus)
	n.send(payload.ExternalKey, payload.RequesterEmail, subject, body)
	return nil
}

// handleReopened alerts the admin channel when a requester reopens a
// ticket. Admin-initiated reopens stay quiet; the admin already knows.
func (n *NotificationService) handleReopened(ctx context.Context, event events.Event) error {
	if event.Actor.IsAdmin() {
		return nil
	}
	payload, ok := event.Payload.(events.TicketReopenedPayload)
	if !ok {
		n.logUnexpectedPayload(event)
		return nil
	}
	if !n.shouldSend(ctx, event.TicketID, event.Type) {
		return nil
	}
	subject := fmt.Sprintf("[%s] Ticket reopened", payload.ExternalKey)
	body := fmt.Sprintf("<p>Ticket %s was reopened by the requester.</p>", payload.ExternalKey)
	n.send(payload.ExternalKey, n.cfg.AdminEmail, subject, body)
	return nil
}

// handleCommentAdded notifies the other party of the thread: admin comments
// go to the requester, requester comments go to the admin channel.
func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CommentAddedPayload)
	if !ok {
		n.logUnexpectedPayload(event)
		return nil
	}
	if !n.shouldSend(ctx, event.TicketID, event.Type) {
		return nil
	}
	to := n.cfg.AdminEmail
	if payload.AuthorRole == domain.RoleAdmin {
		to = payload.RequesterEmail
	}
	subject := fmt.Sprintf("[%s] New comment", payload.ExternalKey)
	body := fmt.Sprintf("<p>New comment on ticket %s:</p><blockquote>%s</blockquote>",
		payload.ExternalKey, payload.BodyPreview)
	n.send(payload.ExternalKey, to, subject, body)
	return nil
}

// shouldSend claims the minute-bucket slot for (ticket, event type). The
// database unique constraint arbitrates concurrent claimers; a claim
// failure is treated as "do not send" and logged.
func (n *NotificationService) shouldSend(ctx context.Context, ticketID string, eventType events.EventType) bool {
	bucket := n.now().UTC().Truncate(time.Minute)
	won, err := n.dedup.Claim(ctx, ticketID, string(eventType), bucket)
	if err != nil {
		n.logger.Warn("notification dedup claim failed",
			zap.String("ticket_id", ticketID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
		return false
	}
	return won
}

func (n *NotificationService) send(externalKey, to, subject, htmlBody string) {
	if to == "" {
		n.logger.Warn("notification skipped: no recipient", zap.String("ticket_key", externalKey))
		return
	}
	if err := n.mailer.Send(to, subject, htmlBody); err != nil {
		n.logger.Warn("notification send failed",
			zap.String("ticket_key", externalKey),
			zap.String("to", to),
			zap.Error(err))
		return
	}
	n.logger.Info("notification sent",
		zap.String("ticket_key", externalKey),
		zap.String("to", to),
		zap.String("subject", subject))
}

func (n *NotificationService) logUnexpectedPayload(event events.Event) {
	n.logger.Warn("unexpected event payload",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
}
