package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/hubops/internal/domain"
	"github.com/spec-kit/hubops/internal/repository"
	apperrors "github.com/spec-kit/hubops/pkg/util/errorutil"
)

// RecurringTaskService manages recurring task definitions. Only the GM edits
// them; only the scheduler advances next_run_date outside an explicit edit.
type RecurringTaskService struct {
	tasks       repository.RecurringTaskRepository
	departments repository.DepartmentRepository
}

// NewRecurringTaskService constructs the service.
func NewRecurringTaskService(tasks repository.RecurringTaskRepository, departments repository.DepartmentRepository) *RecurringTaskService {
	return &RecurringTaskService{tasks: tasks, departments: departments}
}

// RecurringTaskInput describes a create or update payload.
type RecurringTaskInput struct {
	Title          string
	Description    string
	FrequencyDays  int
	DepartmentName string
	NextRunDate    time.Time
}

func (s *RecurringTaskService) validate(ctx context.Context, user *domain.User, input RecurringTaskInput) (*domain.Department, error) {
	if user.Role != domain.RoleGM {
		return nil, apperrors.NewForbidden("only the GM manages recurring tasks")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	if input.FrequencyDays <= 0 {
		return nil, apperrors.NewValidationError("frequency_days must be positive", map[string]any{"frequency_days": input.FrequencyDays})
	}
	if input.NextRunDate.IsZero() {
		return nil, apperrors.NewValidationError("next_run_date required", nil)
	}
	dept, err := s.departments.GetByName(ctx, input.DepartmentName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("department", map[string]any{"department": input.DepartmentName})
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return dept, nil
}

// Create registers a new definition.
func (s *RecurringTaskService) Create(ctx context.Context, user *domain.User, input RecurringTaskInput) (*domain.RecurringTask, error) {
	dept, err := s.validate(ctx, user, input)
	if err != nil {
		return nil, err
	}
	task := &domain.RecurringTask{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		FrequencyDays:  input.FrequencyDays,
		AssignedDeptID: dept.ID,
		NextRunDate:    input.NextRunDate,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return task, nil
}

// Update edits an existing definition, including an explicit next_run_date
// change.
func (s *RecurringTaskService) Update(ctx context.Context, user *domain.User, id string, input RecurringTaskInput) (*domain.RecurringTask, error) {
	dept, err := s.validate(ctx, user, input)
	if err != nil {
		return nil, err
	}
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("recurring task", map[string]any{"id": id})
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}
	task.Title = strings.TrimSpace(input.Title)
	task.Description = strings.TrimSpace(input.Description)
	task.FrequencyDays = input.FrequencyDays
	task.AssignedDeptID = dept.ID
	task.NextRunDate = input.NextRunDate
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return task, nil
}

// Delete removes a definition.
func (s *RecurringTaskService) Delete(ctx context.Context, user *domain.User, id string) error {
	if user.Role != domain.RoleGM {
		return apperrors.NewForbidden("only the GM manages recurring tasks")
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("recurring task", map[string]any{"id": id})
		}
		return apperrors.NewStorageUnavailable(err)
	}
	return nil
}

// List returns all definitions.
func (s *RecurringTaskService) List(ctx context.Context, user *domain.User) ([]domain.RecurringTask, error) {
	if user.Role != domain.RoleGM {
		return nil, apperrors.NewForbidden("only the GM manages recurring tasks")
	}
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return tasks, nil
}
