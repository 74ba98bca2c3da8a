package jobs

import (
	"context"
	"log/slog"
)

// Inline runs each job synchronously inside Submit.
type Inline struct {
	logger *slog.Logger
}

var _ Runner = (*Inline)(nil)

// NewInline creates an inline runner.
func NewInline(logger *slog.Logger) *Inline {
	return &Inline{logger: logger}
}

// Submit runs fn before returning. The returned task is already done.
func (r *Inline) Submit(ctx context.Context, name string, fn Func) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := newTask(name)
	t.run(context.WithoutCancel(ctx), fn, r.logger)
	return t, nil
}
