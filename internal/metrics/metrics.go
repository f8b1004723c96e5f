// Package metrics exports invocation counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nugetwatch"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry      *prom.Registry
	runs          *prom.CounterVec
	runFailures   prom.Counter
	notifications *prom.CounterVec
	lastRun       prom.Gauge
	lastSuccess   prom.Gauge
	nowFunc       func() time.Time
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prom.NewRegistry(),
		runs: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace, Name: "runs_total",
			Help: "Completed invocations by outcome",
		}, []string{"outcome"}),
		runFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace, Name: "run_failures_total",
			Help: "Invocations aborted by a fatal error",
		}),
		notifications: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace, Name: "notifications_total",
			Help: "Notification attempts by result",
		}, []string{"result"}),
		lastRun: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace, Name: "last_run_timestamp_seconds",
			Help: "Unix time of the most recent invocation",
		}),
		lastSuccess: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace, Name: "last_success_timestamp_seconds",
			Help: "Unix time of the most recent invocation that completed without error",
		}),
		nowFunc: time.Now,
	}

	m.registry.MustRegister(m.runs, m.runFailures, m.notifications, m.lastRun, m.lastSuccess)
	m.registry.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	return m
}

// RecordRun counts one invocation. A non-nil err counts as a failure and
// the outcome is ignored.
func (m *Metrics) RecordRun(outcome string, err error) {
	now := float64(m.nowFunc().Unix())
	m.lastRun.Set(now)
	if err != nil {
		m.runFailures.Inc()
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.lastSuccess.Set(now)
}

// RecordNotification counts one notification attempt.
func (m *Metrics) RecordNotification(err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.notifications.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
