// Package jobs runs background work as awaitable tasks.
//
// Approval hands the action applier to a Runner and waits on the returned
// Task. Inline runs the work on the caller's goroutine; Pool runs it on a
// fixed set of workers. Callers see identical behavior from both.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/tagwright/tagwright-server/internal/id"
)

// Func is a unit of background work.
type Func func(ctx context.Context) error

// Runner schedules work and returns a handle to await it.
//
// The context passed to Submit only bounds submission. The work itself runs
// with a context detached from the caller's cancellation so that it is never
// interrupted half way; request-scoped values are preserved.
type Runner interface {
	Submit(ctx context.Context, name string, fn Func) (*Task, error)
}

// Task is a handle to submitted work.
type Task struct {
	ID   string
	Name string

	done       chan struct{}
	err        error
	startedAt  time.Time
	finishedAt time.Time
}

func newTask(name string) *Task {
	return &Task{
		ID:   id.MustGenerate(id.PrefixJob),
		Name: name,
		done: make(chan struct{}),
	}
}

// Wait blocks until the work finishes and returns its error. If ctx ends first
// Wait returns ctx.Err(); the work keeps running.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Duration reports how long the work ran. Zero until it has finished.
func (t *Task) Duration() time.Duration {
	select {
	case <-t.done:
		return t.finishedAt.Sub(t.startedAt)
	default:
		return 0
	}
}

// run executes fn, converting a panic into the task error.
func (t *Task) run(ctx context.Context, fn Func, logger *slog.Logger) {
	t.startedAt = time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked",
				slog.String("job_id", t.ID),
				slog.String("job", t.Name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			t.err = fmt.Errorf("job %s panicked: %v", t.Name, r)
		}
		t.finishedAt = time.Now()

		logger.Debug("job finished",
			slog.String("job_id", t.ID),
			slog.String("job", t.Name),
			slog.Duration("duration", t.finishedAt.Sub(t.startedAt)),
			slog.Bool("failed", t.err != nil),
		)
		close(t.done)
	}()

	t.err = fn(ctx)
}
