// Package metrics exposes Prometheus collectors for settings sync.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dashprefs"

// Collector is nil-safe: every recording method on a nil *Collector is a no-op,
// so components work unchanged when metrics are disabled.
type Collector struct {
	reconcileTotal   *prometheus.CounterVec
	remoteWrites     *prometheus.CounterVec
	savesTotal       *prometheus.CounterVec
	togglesTotal     *prometheus.CounterVec
	requestDurations *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reconcileTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_total",
				Help:      "Settings reconciliations by outcome",
			},
			[]string{"outcome"},
		),
		remoteWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_writes_total",
				Help:      "Profile fields written to the remote profile service",
			},
			[]string{"field", "status"},
		),
		savesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "saves_total",
				Help:      "Settings form saves by outcome",
			},
			[]string{"outcome"},
		),
		togglesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "theme_toggles_total",
				Help:      "Theme toggles, labelled by whether the remote profile was written",
			},
			[]string{"remote"},
		),
		requestDurations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}

	reg.MustRegister(
		c.reconcileTotal,
		c.remoteWrites,
		c.savesTotal,
		c.togglesTotal,
		c.requestDurations,
	)
	return c
}

func (c *Collector) Reconciled(outcome string) {
	if c == nil {
		return
	}
	c.reconcileTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) RemoteWrite(field string, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.remoteWrites.WithLabelValues(field, status).Inc()
}

func (c *Collector) Saved(outcome string) {
	if c == nil {
		return
	}
	c.savesTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) Toggled(remoteWritten bool) {
	if c == nil {
		return
	}
	c.togglesTotal.WithLabelValues(strconv.FormatBool(remoteWritten)).Inc()
}

func (c *Collector) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.requestDurations.WithLabelValues(method, path, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
