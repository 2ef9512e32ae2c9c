package service

import "github.com/spec-kit/helpdesk/internal/domain"

// Actor is the caller of a service operation: an authenticated principal
// plus the network origin recorded in audit entries. The zero value is the
// system actor (audit actor id null).
type Actor struct {
	domain.Principal
	IP *string
}

// SystemActor returns the actor used for system-initiated operations such
// as the auto-close sweep.
func SystemActor() Actor {
	return Actor{}
}

// auditActorID returns the nullable actor id stored on audit entries.
func (a Actor) auditActorID() *string {
	if a.ID == "" {
		return nil
	}
	id := a.ID
	return &id
}
