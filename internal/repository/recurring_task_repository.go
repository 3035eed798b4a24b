package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/hubops/internal/domain"
)

// RecurringTaskRepository persists recurring task definitions. Scheduler
// passes advance next_run_date exclusively through CompareAndSetNextRunDate
// so overlapping runs cannot double-fire a definition.
type RecurringTaskRepository interface {
	Create(ctx context.Context, task *domain.RecurringTask) error
	Update(ctx context.Context, task *domain.RecurringTask) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.RecurringTask, error)
	List(ctx context.Context) ([]domain.RecurringTask, error)
	ListDue(ctx context.Context, now time.Time) ([]domain.RecurringTask, error)
	CompareAndSetNextRunDate(ctx context.Context, id string, expected, next time.Time) error
}

type recurringTaskRepository struct {
	pool *pgxpool.Pool
}

// NewRecurringTaskRepository instantiates the postgres-backed repository.
func NewRecurringTaskRepository(pool *pgxpool.Pool) RecurringTaskRepository {
	return &recurringTaskRepository{pool: pool}
}

const recurringColumns = `id, title, description, frequency_days, assigned_dept_id, next_run_date, created_at, updated_at`

func (r *recurringTaskRepository) Create(ctx context.Context, task *domain.RecurringTask) error {
	const query = `
        INSERT INTO recurring_tasks (id, title, description, frequency_days, assigned_dept_id, next_run_date)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.FrequencyDays,
		task.AssignedDeptID,
		task.NextRunDate,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
}

func (r *recurringTaskRepository) Update(ctx context.Context, task *domain.RecurringTask) error {
	const query = `
        UPDATE recurring_tasks SET title=$1, description=$2, frequency_days=$3,
            assigned_dept_id=$4, next_run_date=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		task.Title,
		task.Description,
		task.FrequencyDays,
		task.AssignedDeptID,
		task.NextRunDate,
		task.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *recurringTaskRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM recurring_tasks WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *recurringTaskRepository) GetByID(ctx context.Context, id string) (*domain.RecurringTask, error) {
	var task domain.RecurringTask
	err := scanRecurringTask(r.pool.QueryRow(ctx,
		`SELECT `+recurringColumns+` FROM recurring_tasks WHERE id=$1`, id), &task)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *recurringTaskRepository) List(ctx context.Context) ([]domain.RecurringTask, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+recurringColumns+` FROM recurring_tasks ORDER BY next_run_date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecurringTasks(rows)
}

func (r *recurringTaskRepository) ListDue(ctx context.Context, now time.Time) ([]domain.RecurringTask, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+recurringColumns+` FROM recurring_tasks WHERE next_run_date <= $1 ORDER BY next_run_date ASC`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecurringTasks(rows)
}

// CompareAndSetNextRunDate advances next_run_date only when it still holds
// the expected value. A zero-row update means another scheduler pass already
// claimed this firing.
func (r *recurringTaskRepository) CompareAndSetNextRunDate(ctx context.Context, id string, expected, next time.Time) error {
	const query = `
        UPDATE recurring_tasks SET next_run_date=$1, updated_at=NOW()
        WHERE id=$2 AND next_run_date=$3`
	cmd, err := r.pool.Exec(ctx, query, next, id, expected)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

func scanRecurringTask(row pgx.Row, task *domain.RecurringTask) error {
	return row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.FrequencyDays,
		&task.AssignedDeptID,
		&task.NextRunDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
}

func collectRecurringTasks(rows pgx.Rows) ([]domain.RecurringTask, error) {
	var result []domain.RecurringTask
	for rows.Next() {
		var task domain.RecurringTask
		if err := scanRecurringTask(rows, &task); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, rows.Err()
}
