package repository

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// AuditLogRepository stores append-only audit entries. Entries are never
// updated or deleted.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *domain.AuditLogEntry) error
	ListByTarget(ctx context.Context, targetType domain.AuditTargetType, targetID string, limit, offset int) ([]domain.AuditLogEntry, error)
}

type auditLogRepository struct {
	db DB
}

// NewAuditLogRepository builds repository.
func NewAuditLogRepository(db DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	const query = `
        INSERT INTO audit_log (actor_id, action, target_type, target_id, changes, ip)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.Changes,
		entry.IP,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditLogRepository) ListByTarget(ctx context.Context, targetType domain.AuditTargetType, targetID string, limit, offset int) ([]domain.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, actor_id, action, target_type, target_id, changes, ip, created_at
        FROM audit_log WHERE target_type=$1 AND target_id=$2
        ORDER BY created_at ASC LIMIT $3 OFFSET $4`
	rows, err := r.db.Query(ctx, query, targetType, targetID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditLogEntry
	for rows.Next() {
		var entry domain.AuditLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.Action,
			&entry.TargetType,
			&entry.TargetID,
			&entry.Changes,
			&entry.IP,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
