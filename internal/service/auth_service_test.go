package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/hubops/internal/config"
	"github.com/spec-kit/hubops/internal/domain"
	"github.com/spec-kit/hubops/internal/repository/memory"
	apperrors "github.com/spec-kit/hubops/pkg/util/errorutil"
)

func newAuthFixture(t *testing.T) (*AuthService, *domain.Department) {
	t.Helper()
	ctx := context.Background()

	users := memory.NewUserRepository()
	departments := memory.NewDepartmentRepository()

	dept := &domain.Department{ID: uuid.NewString(), Name: "Maintenance"}
	require.NoError(t, departments.Create(ctx, dept))

	seed := []*domain.User{
		{ID: uuid.NewString(), Username: "alice", Role: domain.RoleTenant},
		{ID: uuid.NewString(), Username: "gm", Role: domain.RoleGM},
		{ID: uuid.NewString(), Username: "head.maintenance", Role: domain.RoleDeptHead, DepartmentID: &dept.ID},
		{ID: uuid.NewString(), Username: "staff.maintenance", Role: domain.RoleStaff, DepartmentID: &dept.ID},
	}
	for _, u := range seed {
		require.NoError(t, users.Create(ctx, u))
	}

	cfg := config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 15}
	return NewAuthService(cfg, users, departments), dept
}

func TestLoginByRole(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	result, err := svc.Login(ctx, domain.RoleTenant, "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "alice", result.User.Username)

	result, err = svc.Login(ctx, domain.RoleGM, "")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleGM, result.User.Role)
}

func TestLoginDepartmentRoles(t *testing.T) {
	svc, dept := newAuthFixture(t)
	ctx := context.Background()

	result, err := svc.Login(ctx, domain.RoleDeptHead, "Maintenance")
	require.NoError(t, err)
	require.NotNil(t, result.User.DepartmentID)
	assert.Equal(t, dept.ID, *result.User.DepartmentID)

	// department defaults to Maintenance when omitted
	result, err = svc.Login(ctx, domain.RoleStaff, "")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStaff, result.User.Role)

	_, err = svc.Login(ctx, domain.RoleStaff, "Landscaping")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestLoginInvalidRole(t *testing.T) {
	svc, _ := newAuthFixture(t)
	_, err := svc.Login(context.Background(), domain.Role("WIZARD"), "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestLoginTokenRoundTrip(t *testing.T) {
	svc, dept := newAuthFixture(t)
	result, err := svc.Login(context.Background(), domain.RoleDeptHead, "Maintenance")
	require.NoError(t, err)

	claims, err := svc.TokenManager().ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, domain.RoleDeptHead, claims.Role)
	require.NotNil(t, claims.DepartmentID)
	assert.Equal(t, dept.ID, *claims.DepartmentID)
}
