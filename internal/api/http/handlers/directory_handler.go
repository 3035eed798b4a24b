package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hubops/internal/api/dto"
	"github.com/spec-kit/hubops/internal/auth"
	"github.com/spec-kit/hubops/internal/service"
	apperrors "github.com/spec-kit/hubops/pkg/util/errorutil"
)

// DirectoryHandler serves departments and their staff rosters.
type DirectoryHandler struct {
	directory *service.DirectoryService
}

// NewDirectoryHandler constructs the handler.
func NewDirectoryHandler(directory *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// ListDepartments GET /departments.
func (h *DirectoryHandler) ListDepartments(c *fiber.Ctx) error {
	depts, err := h.directory.ListDepartments(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(depts))
	for _, d := range depts {
		items = append(items, dto.DepartmentResponse{ID: d.ID, Name: d.Name})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListStaff GET /departments/:id/staff.
func (h *DirectoryHandler) ListStaff(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	staff, err := h.directory.ListStaff(c.Context(), user, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(staff))
	for _, u := range staff {
		items = append(items, dto.UserResponse{
			ID:           u.ID,
			Username:     u.Username,
			Role:         u.Role,
			DepartmentID: u.DepartmentID,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
