package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestNormalizeChanges(t *testing.T) {
	ts := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	normalized := normalizeChanges(map[string]any{
		"from":  domain.TicketStatusResolved,
		"count": 3,
		"at":    ts,
	})

	// Everything comes back as plain JSON types.
	assert.Equal(t, "RESOLVED", normalized["from"])
	assert.Equal(t, float64(3), normalized["count"])
	assert.Equal(t, "2026-02-01T08:00:00Z", normalized["at"])
}

func TestNormalizeChangesNil(t *testing.T) {
	assert.Nil(t, normalizeChanges(nil))
}

func TestActorAuditID(t *testing.T) {
	assert.Nil(t, SystemActor().auditActorID())

	id := testRequester.auditActorID()
	if assert.NotNil(t, id) {
		assert.Equal(t, "user-1", *id)
	}
}
