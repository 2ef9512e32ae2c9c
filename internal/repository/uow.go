package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Stores bundles all repositories bound to one DB handle.
type Stores struct {
	Tickets     TicketRepository
	Comments    CommentRepository
	Attachments AttachmentRepository
	Audit       AuditLogRepository
	Dedup       NotificationDedupRepository
	Users       UserRepository
}

// NewStores builds repositories over the given DB handle.
func NewStores(db DB) *Stores {
	return &Stores{
		Tickets:     NewTicketRepository(db),
		Comments:    NewCommentRepository(db),
		Attachments: NewAttachmentRepository(db),
		Audit:       NewAuditLogRepository(db),
		Dedup:       NewNotificationDedupRepository(db),
		Users:       NewUserRepository(db),
	}
}

// UnitOfWork runs a function against transaction-bound stores. A business
// mutation and its audit entry commit or roll back together.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(s *Stores) error) error
}

type pgxUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork creates a pgx-backed UnitOfWork.
func NewUnitOfWork(pool *pgxpool.Pool) UnitOfWork {
	return &pgxUnitOfWork{pool: pool}
}

func (u *pgxUnitOfWork) WithinTx(ctx context.Context, fn func(s *Stores) error) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(NewStores(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
