package autopilot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tubepilot/internal/auth"
	"tubepilot/internal/schedule"
)

// Autopilot scans the task list and executes everything currently due.
type Autopilot struct {
	tasks    TaskStore
	executor *Executor
	now      func() time.Time
}

// AutopilotOption configures the orchestrator.
type AutopilotOption func(*Autopilot)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) AutopilotOption {
	return func(a *Autopilot) { a.now = now }
}

// New builds an orchestrator over the given store and executor.
func New(tasks TaskStore, executor *Executor, opts ...AutopilotOption) *Autopilot {
	a := &Autopilot{
		tasks:    tasks,
		executor: executor,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RunAutopilot executes all currently eligible tasks in listing order and
// returns one result per executed task. A task's failure never aborts the
// batch; only the task list being unavailable fails the run as a whole.
// The credential cache is scoped to this invocation, so tasks sharing an
// account within one batch refresh its token at most once.
func (a *Autopilot) RunAutopilot(ctx context.Context) ([]ExecutionResult, error) {
	tasks, err := a.tasks.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	now := a.now().UTC()
	cache := auth.NewTokenCache()

	var results []ExecutionResult
	for i := range tasks {
		t := &tasks[i]
		if !schedule.IsEligible(t, now) {
			continue
		}

		result := a.executor.Execute(ctx, t.ID, cache)
		if result.Success {
			slog.Info("Task published", "task", t.ID, "title", t.Title, "video", result.VideoID)
		} else {
			slog.Warn("Task failed", "task", t.ID, "title", t.Title, "kind", result.Err.Kind, "error", result.Err.Message)
		}
		results = append(results, result)
	}

	return results, nil
}

// HandleSingleUpload runs one task on demand with the same claim, execute
// and finalize contract as a batch iteration. The claim guard makes it safe
// to race against a concurrently running batch.
func (a *Autopilot) HandleSingleUpload(ctx context.Context, taskID string) ExecutionResult {
	return a.executor.Execute(ctx, taskID, auth.NewTokenCache())
}
