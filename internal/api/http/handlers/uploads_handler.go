package handlers

import (
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hubops/internal/files"
	apperrors "github.com/spec-kit/hubops/pkg/util/errorutil"
)

// maxUploadBytes caps a single evidence upload.
const maxUploadBytes = 10 << 20

// UploadsHandler accepts photo/proof evidence and returns its URL. Callers
// attach the URL to a ticket create or action request afterwards.
type UploadsHandler struct {
	store files.Store
}

// NewUploadsHandler constructs the handler.
func NewUploadsHandler(store files.Store) *UploadsHandler {
	return &UploadsHandler{store: store}
}

// Upload POST /uploads, multipart field "file".
func (h *UploadsHandler) Upload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("multipart field 'file' required", nil)
	}
	if header.Size > maxUploadBytes {
		return apperrors.NewValidationError("file too large", map[string]any{"max_bytes": maxUploadBytes})
	}
	f, err := header.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable upload", nil)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	url, err := h.store.Upload(data, header.Filename)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"url": url}})
}
