package repository

import (
	"context"
	"time"
)

// NotificationDedupRepository implements a minute-granularity idempotency
// gate. The unique constraint on (ticket_id, event_type, minute_bucket) is
// the mutex: whichever writer inserts the row first owns the send.
type NotificationDedupRepository interface {
	// Claim attempts to record (ticketID, eventType, bucket). Returns true
	// when this caller won the claim and should send; false when a row
	// already exists for the key. A conflict is expected, not an error.
	Claim(ctx context.Context, ticketID, eventType string, bucket time.Time) (bool, error)
}

type notificationDedupRepository struct {
	db DB
}

// NewNotificationDedupRepository builds repository.
func NewNotificationDedupRepository(db DB) NotificationDedupRepository {
	return &notificationDedupRepository{db: db}
}

func (r *notificationDedupRepository) Claim(ctx context.Context, ticketID, eventType string, bucket time.Time) (bool, error) {
	const query = `
        INSERT INTO notification_dedup (ticket_id, event_type, minute_bucket)
        VALUES ($1,$2,$3)
        ON CONFLICT (ticket_id, event_type, minute_bucket) DO NOTHING`
	cmd, err := r.db.Exec(ctx, query, ticketID, eventType, bucket)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}
