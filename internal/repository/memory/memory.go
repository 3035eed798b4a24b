// Package memory provides mutex-guarded in-memory implementations of the
// repository interfaces. They back the test suites and serve as the store
// when no postgres DSN is configured.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/hubops/internal/domain"
	"github.com/spec-kit/hubops/internal/repository"
)

// TicketRepository is an in-memory repository.TicketRepository.
type TicketRepository struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
}

// NewTicketRepository constructs an empty store.
func NewTicketRepository() *TicketRepository {
	return &TicketRepository{tickets: make(map[string]domain.Ticket)}
}

func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *TicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := cloneTicket(stored)
	return &copied, nil
}

func (r *TicketRepository) CompareAndSet(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	ticket.Version = expectedVersion + 1
	ticket.UpdatedAt = time.Now().UTC()
	r.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *TicketRepository) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, t := range r.tickets {
		if filter.ReporterID != nil && (t.ReporterID == nil || *t.ReporterID != *filter.ReporterID) {
			continue
		}
		if filter.DepartmentID != nil && (t.AssignedDeptID == nil || *t.AssignedDeptID != *filter.DepartmentID) {
			continue
		}
		if filter.StaffID != nil && (t.AssignedStaffID == nil || *t.AssignedStaffID != *filter.StaffID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		result = append(result, cloneTicket(t))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return paginateTickets(result, filter.Limit, filter.Offset), nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func paginateTickets(tickets []domain.Ticket, limit, offset int) []domain.Ticket {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(tickets) {
		return nil
	}
	tickets = tickets[offset:]
	if limit > 0 && limit < len(tickets) {
		tickets = tickets[:limit]
	}
	return tickets
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.ReporterID = clonePtr(t.ReporterID)
	t.AssignedDeptID = clonePtr(t.AssignedDeptID)
	t.AssignedStaffID = clonePtr(t.AssignedStaffID)
	t.StaffStatus = clonePtr(t.StaffStatus)
	t.EstimatedFixTime = clonePtr(t.EstimatedFixTime)
	t.AssignedDurationMinutes = clonePtr(t.AssignedDurationMinutes)
	t.AcceptedAt = clonePtr(t.AcceptedAt)
	t.ResolvedAt = clonePtr(t.ResolvedAt)
	t.PhotoURL = clonePtr(t.PhotoURL)
	t.ProofURL = clonePtr(t.ProofURL)
	t.RejectionMessage = clonePtr(t.RejectionMessage)
	t.FeedbackRating = clonePtr(t.FeedbackRating)
	return t
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// RecurringTaskRepository is an in-memory repository.RecurringTaskRepository.
type RecurringTaskRepository struct {
	mu    sync.Mutex
	tasks map[string]domain.RecurringTask
}

// NewRecurringTaskRepository constructs an empty store.
func NewRecurringTaskRepository() *RecurringTaskRepository {
	return &RecurringTaskRepository{tasks: make(map[string]domain.RecurringTask)}
}

func (r *RecurringTaskRepository) Create(ctx context.Context, task *domain.RecurringTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	r.tasks[task.ID] = *task
	return nil
}

func (r *RecurringTaskRepository) Update(ctx context.Context, task *domain.RecurringTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; !ok {
		return repository.ErrNotFound
	}
	task.UpdatedAt = time.Now().UTC()
	r.tasks[task.ID] = *task
	return nil
}

func (r *RecurringTaskRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *RecurringTaskRepository) GetByID(ctx context.Context, id string) (*domain.RecurringTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &task, nil
}

func (r *RecurringTaskRepository) List(ctx context.Context) ([]domain.RecurringTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.RecurringTask, 0, len(r.tasks))
	for _, task := range r.tasks {
		result = append(result, task)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].NextRunDate.Before(result[j].NextRunDate)
	})
	return result, nil
}

func (r *RecurringTaskRepository) ListDue(ctx context.Context, now time.Time) ([]domain.RecurringTask, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var due []domain.RecurringTask
	for _, task := range all {
		if task.Due(now) {
			due = append(due, task)
		}
	}
	return due, nil
}

func (r *RecurringTaskRepository) CompareAndSetNextRunDate(ctx context.Context, id string, expected, next time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !task.NextRunDate.Equal(expected) {
		return repository.ErrVersionConflict
	}
	task.NextRunDate = next
	task.UpdatedAt = time.Now().UTC()
	r.tasks[id] = task
	return nil
}

// DepartmentRepository is an in-memory repository.DepartmentRepository.
type DepartmentRepository struct {
	mu    sync.Mutex
	depts map[string]domain.Department
}

// NewDepartmentRepository constructs an empty store.
func NewDepartmentRepository() *DepartmentRepository {
	return &DepartmentRepository{depts: make(map[string]domain.Department)}
}

func (r *DepartmentRepository) Create(ctx context.Context, dept *domain.Department) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dept.CreatedAt = time.Now().UTC()
	r.depts[dept.ID] = *dept
	return nil
}

func (r *DepartmentRepository) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dept, ok := r.depts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &dept, nil
}

func (r *DepartmentRepository) GetByName(ctx context.Context, name string) (*domain.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, dept := range r.depts {
		if strings.EqualFold(dept.Name, name) {
			d := dept
			return &d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *DepartmentRepository) List(ctx context.Context) ([]domain.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.Department, 0, len(r.depts))
	for _, dept := range r.depts {
		result = append(result, dept)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// UserRepository is an in-memory repository.UserRepository.
type UserRepository struct {
	mu    sync.Mutex
	users map[string]domain.User
}

// NewUserRepository constructs an empty store.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.User)}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.CreatedAt = time.Now().UTC()
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *UserRepository) FindFirstByRole(ctx context.Context, role domain.Role) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return firstUser(r.users, func(u domain.User) bool {
		return u.Role == role
	})
}

func (r *UserRepository) FindFirstByRoleInDept(ctx context.Context, role domain.Role, deptID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return firstUser(r.users, func(u domain.User) bool {
		return u.Role == role && u.BelongsTo(deptID)
	})
}

func (r *UserRepository) ListByDepartment(ctx context.Context, deptID string, role domain.Role) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.User
	for _, user := range r.users {
		if user.Role == role && user.BelongsTo(deptID) {
			result = append(result, user)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Username < result[j].Username
	})
	return result, nil
}

func firstUser(users map[string]domain.User, match func(domain.User) bool) (*domain.User, error) {
	var candidates []domain.User
	for _, user := range users {
		if match(user) {
			candidates = append(candidates, user)
		}
	}
	if len(candidates) == 0 {
		return nil, repository.ErrNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	return &candidates[0], nil
}

// TicketHistoryRepository is an in-memory repository.TicketHistoryRepository.
type TicketHistoryRepository struct {
	mu      sync.Mutex
	entries []domain.TicketHistory
}

// NewTicketHistoryRepository constructs an empty store.
func NewTicketHistoryRepository() *TicketHistoryRepository {
	return &TicketHistoryRepository{}
}

func (r *TicketHistoryRepository) Create(ctx context.Context, entry *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.CreatedAt = time.Now().UTC()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *TicketHistoryRepository) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TicketHistory
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	if offset > 0 {
		if offset >= len(result) {
			return nil, nil
		}
		result = result[offset:]
	}
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}
