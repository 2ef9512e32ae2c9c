package domain

import "time"

// Comment captures a message in a ticket thread. Bodies are HTML-escaped
// before storage. Comments are soft-deleted only; the body is retained and
// hidden from rendering when DeletedAt is set.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	CreatedAt time.Time
	DeletedAt *time.Time
}

// Visible reports whether the comment should be rendered.
func (c Comment) Visible() bool {
	return c.DeletedAt == nil
}
