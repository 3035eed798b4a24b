package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hubops/internal/scheduler"
	"github.com/spec-kit/hubops/pkg/util/clock"
)

// StartSchedulerWorker runs scheduler passes on a fixed interval until the
// context is cancelled. It returns immediately; the ticker loop runs in a
// goroutine. An initial pass fires right away so a restart cannot delay an
// overdue definition by a full interval.
func StartSchedulerWorker(ctx context.Context, sched *scheduler.Scheduler, clk clock.Clock, interval time.Duration, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	go func() {
		runPass(ctx, sched, clk, logger)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info("scheduler worker stopped")
				return
			case <-ticker.C:
				runPass(ctx, sched, clk, logger)
			}
		}
	}()
}

func runPass(ctx context.Context, sched *scheduler.Scheduler, clk clock.Clock, logger *zap.Logger) {
	if _, err := sched.Run(ctx, clk.Now()); err != nil {
		logger.Error("scheduler pass failed", zap.Error(err))
	}
}
