package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrPoolStopped is returned by Submit after Stop.
var ErrPoolStopped = errors.New("jobs: pool stopped")

type queued struct {
	ctx  context.Context //nolint:containedctx // Carried to the worker that runs the job
	task *Task
	fn   Func
}

// Pool runs jobs on a fixed number of workers fed by a bounded queue.
type Pool struct {
	logger  *slog.Logger
	workers int
	queue   chan queued

	mu         sync.RWMutex
	started    bool
	stopped    bool
	quit       chan struct{}
	submitting sync.WaitGroup
	wg         sync.WaitGroup
}

var _ Runner = (*Pool)(nil)

// NewPool creates a pool. Call Start before relying on jobs to run.
func NewPool(workers, queueSize int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Pool{
		logger:  logger,
		workers: workers,
		queue:   make(chan queued, queueSize),
		quit:    make(chan struct{}),
	}
}

// Start launches the workers. Calling Start more than once has no effect.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	p.logger.Info("starting job workers", slog.Int("workers", p.workers), slog.Int("queue_size", cap(p.queue)))
	for i := range p.workers {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop stops accepting jobs, lets the workers finish everything already
// queued and waits for them. Submits blocked on a full queue return
// ErrPoolStopped.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.quit)
	started := p.started
	p.mu.Unlock()

	p.logger.Info("stopping job workers")
	p.submitting.Wait()
	close(p.queue)
	if !started {
		// Nobody will drain the queue; run what is left here.
		for item := range p.queue {
			item.task.run(item.ctx, item.fn, p.logger)
		}
	}
	p.wg.Wait()
	p.logger.Info("job workers stopped")
}

// Submit enqueues fn. It blocks while the queue is full until ctx ends or
// the pool is stopped.
func (p *Pool) Submit(ctx context.Context, name string, fn Func) (*Task, error) {
	p.mu.RLock()
	if p.stopped {
		p.mu.RUnlock()
		return nil, ErrPoolStopped
	}
	p.submitting.Add(1)
	p.mu.RUnlock()
	defer p.submitting.Done()

	t := newTask(name)
	item := queued{ctx: context.WithoutCancel(ctx), task: t, fn: fn}

	select {
	case p.queue <- item:
		return t, nil
	case <-p.quit:
		return nil, ErrPoolStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) worker(n int) {
	defer p.wg.Done()

	p.logger.Debug("job worker started", slog.Int("worker_id", n))
	for item := range p.queue {
		item.task.run(item.ctx, item.fn, p.logger)
	}
	p.logger.Debug("job worker stopping", slog.Int("worker_id", n))
}
