package service

import (
	"context"
	"encoding/json"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// writeAudit appends one audit entry through the given repository. Callers
// invoke it inside the same transaction as the business mutation, so a
// failed audit write rolls back the whole operation.
func writeAudit(ctx context.Context, audit repository.AuditLogRepository, actor Actor, action string, targetType domain.AuditTargetType, targetID string, changes map[string]any) error {
	entry := &domain.AuditLogEntry{
		ActorID:    actor.auditActorID(),
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Changes:    normalizeChanges(changes),
		IP:         actor.IP,
	}
	return audit.Create(ctx, entry)
}

// normalizeChanges round-trips the changes map through JSON so non-plain
// values (time.Time, custom types) become plain strings and numbers before
// storage.
func normalizeChanges(changes map[string]any) map[string]any {
	if changes == nil {
		return nil
	}
	raw, err := json.Marshal(changes)
	if err != nil {
		return changes
	}
	var normalized map[string]any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return changes
	}
	return normalized
}
