// Package metrics exposes Prometheus counters for attendance writes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tanvirrrhasan/namajtracker/internal/domain/models"
)

// Write outcomes.
const (
	OutcomeLocked          = "locked"           // self write, slot locked after
	OutcomeUnlocked        = "unlocked"         // third-party write, slot left open
	OutcomeDeniedLocked    = "denied_locked"    // third party hit an owner-locked slot
	OutcomeDeniedNoMember  = "denied_no_member" // identity has no member record
	OutcomeTargetNotFound  = "target_not_found"
	OutcomeStorageError    = "storage_error"
	OutcomeConflictRetried = "conflict_retried"
)

// Collector holds the application metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry *prometheus.Registry
	writes   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// New creates a Collector on its own registry, including Go runtime and
// process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "namajtracker",
			Name:      "prayer_writes_total",
			Help:      "Prayer slot write attempts by prayer and outcome.",
		}, []string{"prayer", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "namajtracker",
			Name:      "prayer_write_duration_seconds",
			Help:      "Time spent recording a prayer slot write.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"prayer"}),
	}

	reg.MustRegister(
		c.writes,
		c.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveWrite counts one write attempt.
func (c *Collector) ObserveWrite(p models.Prayer, outcome string, took time.Duration) {
	if c == nil {
		return
	}
	c.writes.WithLabelValues(p.String(), outcome).Inc()
	c.latency.WithLabelValues(p.String()).Observe(took.Seconds())
}

// CountRetry counts a write that lost a race and is being retried. Retries
// are not timed; the attempt they belong to is observed once by ObserveWrite.
func (c *Collector) CountRetry(p models.Prayer) {
	if c == nil {
		return
	}
	c.writes.WithLabelValues(p.String(), OutcomeConflictRetried).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
