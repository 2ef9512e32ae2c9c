package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// UploadsHandler mints presigned upload URLs.
type UploadsHandler struct {
	uploads *service.UploadService
}

// NewUploadsHandler constructs handler.
func NewUploadsHandler(uploads *service.UploadService) *UploadsHandler {
	return &UploadsHandler{uploads: uploads}
}

// Presign POST /uploads/presign.
func (h *UploadsHandler) Presign(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.PresignUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.uploads.PresignUpload(c.Context(), actor, service.PresignUploadInput{
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PresignUploadResponse{
		StorageKey: result.StorageKey,
		UploadURL:  result.UploadURL,
		Headers:    result.Headers,
	}})
}
