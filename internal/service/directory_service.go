package service

import (
	"context"
	"errors"

	"github.com/spec-kit/hubops/internal/domain"
	"github.com/spec-kit/hubops/internal/repository"
	apperrors "github.com/spec-kit/hubops/pkg/util/errorutil"
)

// DirectoryService exposes the department/staff directory the workflow
// treats as an external collaborator: opaque identifiers plus display names.
type DirectoryService struct {
	departments repository.DepartmentRepository
	users       repository.UserRepository
}

// NewDirectoryService constructs the service.
func NewDirectoryService(departments repository.DepartmentRepository, users repository.UserRepository) *DirectoryService {
	return &DirectoryService{departments: departments, users: users}
}

// ListDepartments returns the flat department list.
func (s *DirectoryService) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	depts, err := s.departments.List(ctx)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return depts, nil
}

// ListStaff returns the staff members of a department. Department heads may
// only list their own department.
func (s *DirectoryService) ListStaff(ctx context.Context, user *domain.User, deptID string) ([]domain.User, error) {
	switch user.Role {
	case domain.RoleGM:
	case domain.RoleDeptHead:
		if !user.BelongsTo(deptID) {
			return nil, apperrors.NewForbidden("not your department")
		}
	default:
		return nil, apperrors.NewForbidden("insufficient role")
	}
	if _, err := s.departments.GetByID(ctx, deptID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("department", map[string]any{"department_id": deptID})
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}
	staff, err := s.users.ListByDepartment(ctx, deptID, domain.RoleStaff)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return staff, nil
}
