// Package telemetry exposes the notifier's Prometheus metrics.
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Job outcomes
const (
	OutcomeIgnored    = "ignored"
	OutcomeMalformed  = "malformed"
	OutcomeDecodeFail = "decode_error"
	OutcomeSuppressed = "suppressed"
	OutcomeNotified   = "notified"
	OutcomePanic      = "panic"
)

// Upload and notification results
const (
	ResultOK       = "ok"
	ResultUnsigned = "unsigned"
	ResultError    = "error"
)

var (
	once sync.Once

	JobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_jobs_total",
		Help: "Jobs consumed from the queue by terminal outcome",
	}, []string{"outcome"})

	UploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_uploads_total",
		Help: "Evidence uploads by result",
	}, []string{"result"})

	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_notifications_total",
		Help: "Notification deliveries by sink and result",
	}, []string{"sink", "result"})

	InFlightJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "notifier_inflight_jobs",
		Help: "Jobs currently being routed",
	})
)

// Register adds the collectors to the default registry once
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			JobsTotal,
			UploadsTotal,
			NotificationsTotal,
			InFlightJobs,
		)
	})
}

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}
