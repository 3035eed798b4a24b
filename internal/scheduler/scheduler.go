// Package scheduler materializes due recurring task definitions into tickets.
package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hubops/internal/domain"
	"github.com/spec-kit/hubops/internal/repository"
	"github.com/spec-kit/hubops/internal/workflow"
	apperrors "github.com/spec-kit/hubops/pkg/util/errorutil"
)

// Result summarizes one scheduler pass.
type Result struct {
	Created  int `json:"created"`
	Advanced int `json:"advanced"`
}

// Locker provides a best-effort cross-process mutex around a full pass. The
// per-definition compare-and-set is the correctness guarantee; the lock only
// avoids wasted overlapping scans.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}

const runLockKey = "hubops:scheduler:run"

// Scheduler scans recurring task definitions and generates tickets through
// the workflow engine's creation entrypoint.
type Scheduler struct {
	tasks   repository.RecurringTaskRepository
	engine  *workflow.Engine
	locker  Locker
	lockTTL time.Duration
	logger  *zap.Logger
}

// New constructs a scheduler. locker may be nil when single-process.
func New(tasks repository.RecurringTaskRepository, engine *workflow.Engine, locker Locker, lockTTL time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lockTTL <= 0 {
		lockTTL = time.Minute
	}
	return &Scheduler{
		tasks:   tasks,
		engine:  engine,
		locker:  locker,
		lockTTL: lockTTL,
		logger:  logger,
	}
}

// Run executes one pass at the given instant. Each due definition advances
// next_run_date by exactly one frequency period via compare-and-set and
// spawns one ticket; a definition still due after advancing re-qualifies on
// the next pass instead of bursting a backlog. Calling Run twice with an
// unchanged clock cannot double-fire a definition: the second pass either
// finds it no longer due or loses the compare-and-set.
func (s *Scheduler) Run(ctx context.Context, now time.Time) (Result, error) {
	if s.locker != nil {
		release, acquired, err := s.locker.TryLock(ctx, runLockKey, s.lockTTL)
		if err != nil {
			s.logger.Warn("scheduler lock unavailable, relying on compare-and-set", zap.Error(err))
		} else if !acquired {
			s.logger.Info("scheduler pass already in flight, skipping")
			return Result{}, nil
		} else {
			defer release()
		}
	}

	due, err := s.tasks.ListDue(ctx, now)
	if err != nil {
		return Result{}, apperrors.NewStorageUnavailable(err)
	}

	var result Result
	for i := range due {
		task := due[i]
		if err := s.fire(ctx, &task, &result); err != nil {
			s.logger.Error("recurring task pass failed",
				zap.String("task_id", task.ID),
				zap.String("title", task.Title),
				zap.Error(err))
		}
	}

	s.logger.Info("scheduler pass complete",
		zap.Time("now", now),
		zap.Int("due", len(due)),
		zap.Int("created", result.Created),
		zap.Int("advanced", result.Advanced))
	return result, nil
}

// fire advances one definition and creates its ticket. The advance happens
// first so that an overlapping run cannot generate a duplicate; if the
// ticket creation then fails, the firing is logged as missed rather than
// retried into a potential double-apply.
func (s *Scheduler) fire(ctx context.Context, task *domain.RecurringTask, result *Result) error {
	next := task.AdvancedRunDate()
	if err := s.tasks.CompareAndSetNextRunDate(ctx, task.ID, task.NextRunDate, next); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			// another pass claimed this firing
			return nil
		}
		return err
	}
	result.Advanced++

	deptID := task.AssignedDeptID
	taskID := task.ID
	_, err := s.engine.CreateTicket(ctx, nil, workflow.CreateTicketInput{
		Type:            task.Title,
		Priority:        domain.TicketPriorityMedium,
		Description:     task.Description,
		AssignedDeptID:  &deptID,
		RecurringTaskID: &taskID,
	})
	if err != nil {
		return err
	}
	result.Created++
	return nil
}
