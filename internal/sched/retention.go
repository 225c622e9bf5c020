package sched

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/agentgate/internal/store"
)

// RetentionJob prunes terminal tasks that have been settled longer than
// MaxAge. Live tasks are never touched.
type RetentionJob struct {
	Store        store.Store
	MaxAge       time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "0 3 * * *"

	now func() time.Time
}

// Interface guard.
var _ Job = (*RetentionJob)(nil)

// Name implements Job.
func (j *RetentionJob) Name() string { return "task_retention" }

// Schedule implements Job.
func (j *RetentionJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 3 * * *"
}

// Run deletes terminal tasks older than the retention window.
func (j *RetentionJob) Run(ctx context.Context) error {
	nowFn := j.now
	if nowFn == nil {
		nowFn = time.Now
	}

	cutoff := nowFn().Add(-j.MaxAge)
	removed, err := j.Store.PruneTerminal(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("sched: pruning terminal tasks: %w", err)
	}
	if removed > 0 {
		j.Logger.Info("sched: pruned terminal tasks", "count", removed)
	}
	return nil
}
