// Package metrics records bulk update request lifecycle metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives lifecycle observations from the bulk update service.
type Recorder interface {
	// Transition counts a request entering status.
	Transition(status string)
	// ActionOutcome counts one applied action by kind and outcome.
	ActionOutcome(kind, outcome string)
	// ApplyDuration observes how long applying a script took.
	ApplyDuration(d time.Duration)
}

// Noop discards observations.
type Noop struct{}

func (Noop) Transition(string)            {}
func (Noop) ActionOutcome(string, string) {}
func (Noop) ApplyDuration(time.Duration)  {}

// Prometheus records observations as Prometheus collectors on its own registry.
type Prometheus struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	actions     *prometheus.CounterVec
	applyTime   prometheus.Histogram
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus creates the collectors and registers them, together with the
// Go runtime and process collectors, on a fresh registry.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tagwright",
			Subsystem: "bur",
			Name:      "transitions_total",
			Help:      "Bulk update requests entering each status.",
		}, []string{"status"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tagwright",
			Subsystem: "bur",
			Name:      "actions_total",
			Help:      "Script actions applied, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		applyTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tagwright",
			Subsystem: "bur",
			Name:      "apply_duration_seconds",
			Help:      "Time spent applying an approved script.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}),
	}

	p.registry.MustRegister(
		p.transitions,
		p.actions,
		p.applyTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// Transition implements Recorder.
func (p *Prometheus) Transition(status string) {
	p.transitions.WithLabelValues(status).Inc()
}

// ActionOutcome implements Recorder.
func (p *Prometheus) ActionOutcome(kind, outcome string) {
	p.actions.WithLabelValues(kind, outcome).Inc()
}

// ApplyDuration implements Recorder.
func (p *Prometheus) ApplyDuration(d time.Duration) {
	p.applyTime.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
