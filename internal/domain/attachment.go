package domain

import (
	"strings"
	"time"
)

// Attachment stores metadata for a file attached to a ticket. File bytes
// live in external object storage; only the storage key is persisted here.
type Attachment struct {
	ID          string
	TicketID    string
	UploaderID  string
	FileName    string
	StorageKey  string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}

// allowedContentTypes is the fixed allow-list for attachment uploads.
var allowedContentTypes = map[string]struct{}{
	"image/png":       {},
	"image/jpeg":      {},
	"image/gif":       {},
	"image/webp":      {},
	"application/pdf": {},
	"text/plain":      {},
	"text/csv":        {},
	"application/zip": {},
}

// AllowedContentType reports whether the MIME type may be attached.
func AllowedContentType(contentType string) bool {
	_, ok := allowedContentTypes[strings.ToLower(strings.TrimSpace(contentType))]
	return ok
}

// KeyOwnedBy reports whether the storage key is namespaced under the given
// user id. Keys follow the convention "<uploaderID>/..." so ownership can be
// checked without a database round trip.
func KeyOwnedBy(storageKey, userID string) bool {
	return userID != "" && strings.HasPrefix(storageKey, userID+"/")
}
