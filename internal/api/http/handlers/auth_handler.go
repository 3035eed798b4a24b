package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hubops/internal/api/dto"
	"github.com/spec-kit/hubops/internal/domain"
	"github.com/spec-kit/hubops/internal/service"
	apperrors "github.com/spec-kit/hubops/pkg/util/errorutil"
)

// AuthHandler exposes the role-based demo login.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	role, ok := parseRole(req.Role)
	if !ok {
		return apperrors.NewValidationError("invalid role", map[string]any{"role": req.Role})
	}
	result, err := h.auth.Login(c.Context(), role, req.Department)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      userResponse(result.User),
	})
}

// parseRole accepts the dashboard's lowercase role names.
func parseRole(raw string) (domain.Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "tenant":
		return domain.RoleTenant, true
	case "gm":
		return domain.RoleGM, true
	case "dept", "dept_head":
		return domain.RoleDeptHead, true
	case "staff":
		return domain.RoleStaff, true
	}
	return "", false
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:           user.ID,
		Username:     user.Username,
		Role:         user.Role,
		DepartmentID: user.DepartmentID,
	}
}
