// Package metrics exposes Prometheus collectors for the panel.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Domain Metrics
var (
	LauncherOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameLauncherOperations,
			Help: HelpTextLauncherOperations,
		},
		[]string{LabelOperation, LabelOutcome},
	)

	Validations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameValidations,
			Help: HelpTextValidations,
		},
		[]string{LabelOutcome},
	)

	ActivityWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameActivityWriteErrors,
			Help: HelpTextActivityWriteErrors,
		},
	)
)

// Outcome maps an error to the outcome label value.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
