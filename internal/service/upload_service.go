package service

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// UploadService issues presigned upload URLs. Keys are always minted under
// the caller's id so the attachment services can verify ownership by
// prefix alone.
type UploadService struct {
	signer StorageSigner
}

// NewUploadService builds the service.
func NewUploadService(signer StorageSigner) *UploadService {
	return &UploadService{signer: signer}
}

// PresignUploadInput describes the object the caller wants to upload.
type PresignUploadInput struct {
	FileName    string
	ContentType string
	SizeBytes   int64
}

// PresignUploadResult carries the minted key and the upload URL plus the
// headers the client must send with the PUT.
type PresignUploadResult struct {
	StorageKey string
	UploadURL  string
	Headers    map[string]string
}

// PresignUpload validates the upload metadata and returns a presigned PUT.
func (s *UploadService) PresignUpload(ctx context.Context, actor Actor, input PresignUploadInput) (*PresignUploadResult, error) {
	name := strings.TrimSpace(input.FileName)
	if name == "" {
		return nil, apperrors.NewValidationError("file name is required", nil)
	}
	if !domain.AllowedContentType(input.ContentType) {
		return nil, apperrors.NewValidationError("content type is not allowed",
			map[string]any{"content_type": input.ContentType})
	}
	if input.SizeBytes <= 0 || input.SizeBytes > maxAttachmentSizeBytes {
		return nil, apperrors.NewValidationError("size out of range",
			map[string]any{"size_bytes": input.SizeBytes, "max": maxAttachmentSizeBytes})
	}
	if s.signer == nil {
		return nil, apperrors.NewDomainError("STORAGE_UNAVAILABLE", "object storage is not configured", http.StatusServiceUnavailable, nil)
	}

	key := actor.ID + "/" + uuid.NewString() + safeExtension(name)
	url, headers, err := s.signer.PresignPut(ctx, key, strings.ToLower(strings.TrimSpace(input.ContentType)), input.SizeBytes)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &PresignUploadResult{StorageKey: key, UploadURL: url, Headers: headers}, nil
}

// safeExtension keeps a short, lowercase file extension if one exists.
func safeExtension(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
