package service

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/hubops/internal/auth"
	"github.com/spec-kit/hubops/internal/config"
	"github.com/spec-kit/hubops/internal/domain"
	"github.com/spec-kit/hubops/internal/repository"
	apperrors "github.com/spec-kit/hubops/pkg/util/errorutil"
)

// AuthService issues role tokens. Login resolves a directory user by role
// (and department for heads and staff) and returns a JWT carrying that
// principal — the identity stub the dashboards consume.
type AuthService struct {
	users       repository.UserRepository
	departments repository.DepartmentRepository
	tokens      *auth.TokenManager
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository, departments repository.DepartmentRepository) *AuthService {
	return &AuthService{
		users:       users,
		departments: departments,
		tokens:      auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// LoginResult bundles the issued token and resolved user.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// Login resolves a directory user for the requested role. Department heads
// and staff additionally need a department name.
func (s *AuthService) Login(ctx context.Context, role domain.Role, departmentName string) (*LoginResult, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}

	var (
		user *domain.User
		err  error
	)
	switch role {
	case domain.RoleTenant, domain.RoleGM:
		user, err = s.users.FindFirstByRole(ctx, role)
	case domain.RoleDeptHead, domain.RoleStaff:
		if departmentName == "" {
			departmentName = "Maintenance"
		}
		var dept *domain.Department
		dept, err = s.departments.GetByName(ctx, departmentName)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewNotFound("department", map[string]any{"department": departmentName})
			}
			return nil, apperrors.NewStorageUnavailable(err)
		}
		user, err = s.users.FindFirstByRoleInDept(ctx, role, dept.ID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"role": role})
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}

	token, expiresAt, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
