package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	// CreateMany bulk-inserts attachments, silently skipping rows whose
	// storage key already exists. Returns the number of rows inserted.
	CreateMany(ctx context.Context, attachments []domain.Attachment) (int, error)
	GetByID(ctx context.Context, id string) (*domain.Attachment, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error)
	CountByTicket(ctx context.Context, ticketID string) (int, error)
	Delete(ctx context.Context, id string) error
}

type attachmentRepository struct {
	db DB
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(db DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) CreateMany(ctx context.Context, attachments []domain.Attachment) (int, error) {
	const query = `
        INSERT INTO attachments (ticket_id, uploader_user_id, file_name, storage_key, content_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (storage_key) DO NOTHING`
	inserted := 0
	for i := range attachments {
		att := &attachments[i]
		cmd, err := r.db.Exec(ctx, query,
			att.TicketID,
			att.UploaderID,
			att.FileName,
			att.StorageKey,
			att.ContentType,
			att.SizeBytes,
		)
		if err != nil {
			return inserted, err
		}
		inserted += int(cmd.RowsAffected())
	}
	return inserted, nil
}

func (r *attachmentRepository) GetByID(ctx context.Context, id string) (*domain.Attachment, error) {
	const query = `
        SELECT id, ticket_id, uploader_user_id, file_name, storage_key, content_type, size_bytes, created_at
        FROM attachments WHERE id=$1`
	var att domain.Attachment
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&att.ID,
		&att.TicketID,
		&att.UploaderID,
		&att.FileName,
		&att.StorageKey,
		&att.ContentType,
		&att.SizeBytes,
		&att.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &att, nil
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	const query = `
        SELECT id, ticket_id, uploader_user_id, file_name, storage_key, content_type, size_bytes, created_at
        FROM attachments WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var att domain.Attachment
		if err := rows.Scan(
			&att.ID,
			&att.TicketID,
			&att.UploaderID,
			&att.FileName,
			&att.StorageKey,
			&att.ContentType,
			&att.SizeBytes,
			&att.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, att)
	}
	return result, rows.Err()
}

func (r *attachmentRepository) CountByTicket(ctx context.Context, ticketID string) (int, error) {
	const query = `SELECT COUNT(*) FROM attachments WHERE ticket_id=$1`
	var count int
	if err := r.db.QueryRow(ctx, query, ticketID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *attachmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM attachments WHERE id=$1`
	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
