// Package metrics exposes Prometheus collectors for the release monitor.
// A run is a short-lived process, so collectors live on a dedicated registry
// that can be pushed to a Pushgateway at the end of the run.
package metrics

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// Registry holds every collector registered by Init.
	Registry = prometheus.NewRegistry()

	monitorRunsTotal          *prometheus.CounterVec
	monitorProbesTotal        *prometheus.CounterVec
	monitorFetchesTotal       *prometheus.CounterVec
	monitorFetchDuration      *prometheus.HistogramVec
	monitorNotificationsTotal *prometheus.CounterVec
	monitorStateErrorsTotal   *prometheus.CounterVec
	monitorLastRunTimestamp   prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		factory := promauto.With(Registry)

		monitorRunsTotal = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_runs_total",
				Help: "Total number of check runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		monitorProbesTotal = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_probes_total",
				Help: "Total number of page existence checks, labeled by result.",
			},
			[]string{"result"},
		)

		monitorFetchesTotal = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_fetches_total",
				Help: "Total number of content fetches, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		monitorFetchDuration = factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "monitor_fetch_duration_seconds",
				Help:    "Histogram of content fetch latencies, labeled by site.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"site"},
		)

		monitorNotificationsTotal = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_notifications_total",
				Help: "Total number of notification deliveries, labeled by channel and status.",
			},
			[]string{"channel", "status"},
		)

		monitorStateErrorsTotal = factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_state_errors_total",
				Help: "Total number of state store failures, labeled by operation.",
			},
			[]string{"op"},
		)

		monitorLastRunTimestamp = factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "monitor_last_run_timestamp_seconds",
				Help: "Unix time of the last completed run.",
			},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveRun counts a completed run and stamps its time.
func ObserveRun(outcome string) {
	Init()
	monitorRunsTotal.WithLabelValues(outcome).Inc()
	monitorLastRunTimestamp.SetToCurrentTime()
}

// ObserveProbe counts an existence check result ("found", "absent", "error").
func ObserveProbe(result string) {
	Init()
	monitorProbesTotal.WithLabelValues(result).Inc()
}

// ObserveFetch records a content fetch.
func ObserveFetch(site, status string, duration time.Duration) {
	Init()
	sanitized := SanitizeSite(site)
	monitorFetchesTotal.WithLabelValues(sanitized, status).Inc()
	if duration > 0 {
		monitorFetchDuration.WithLabelValues(sanitized).Observe(duration.Seconds())
	}
}

// ObserveNotification counts a delivery attempt on a channel.
func ObserveNotification(channel string, err error) {
	Init()
	status := "sent"
	if err != nil {
		status = "failed"
	}
	monitorNotificationsTotal.WithLabelValues(channel, status).Inc()
}

// ObserveStateError counts a state store failure.
func ObserveStateError(op string) {
	Init()
	monitorStateErrorsTotal.WithLabelValues(op).Inc()
}

// Push sends the registry to a Pushgateway under the given job name.
// An empty gatewayURL disables pushing.
func Push(ctx context.Context, gatewayURL, job string) error {
	if strings.TrimSpace(gatewayURL) == "" {
		return nil
	}
	if job == "" {
		job = "sanx_monitor"
	}
	Init()
	if err := push.New(gatewayURL, job).Gatherer(Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
