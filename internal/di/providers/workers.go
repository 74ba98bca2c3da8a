package providers

import (
	"github.com/samber/do/v2"

	"github.com/tagwright/tagwright-server/internal/config"
	"github.com/tagwright/tagwright-server/internal/jobs"
	"github.com/tagwright/tagwright-server/internal/logger"
	"github.com/tagwright/tagwright-server/internal/metrics"
)

// JobRunnerHandle wraps the runner that applies approved scripts.
type JobRunnerHandle struct {
	jobs.Runner
	pool *jobs.Pool
}

// Shutdown implements do.Shutdownable. Queued jobs finish first.
func (h *JobRunnerHandle) Shutdown() error {
	if h.pool != nil {
		h.pool.Stop()
	}
	return nil
}

// ProvideJobRunner provides the background job runner.
// With Jobs.Inline set, scripts are applied on the approving request's goroutine.
func ProvideJobRunner(i do.Injector) (*JobRunnerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Jobs.Inline {
		log.Info("Job runner inline")
		return &JobRunnerHandle{Runner: jobs.NewInline(log.Logger)}, nil
	}

	pool := jobs.NewPool(cfg.Jobs.Workers, cfg.Jobs.QueueSize, log.Logger)
	pool.Start()

	return &JobRunnerHandle{Runner: pool, pool: pool}, nil
}

// ProvideMetrics provides the Prometheus recorder.
func ProvideMetrics(i do.Injector) (*metrics.Prometheus, error) {
	return metrics.NewPrometheus(), nil
}
