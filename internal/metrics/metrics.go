// Package metrics exposes Prometheus instrumentation for the sync engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraudmon_refresh_total",
		Help: "Total number of state refreshes, labelled by target and outcome.",
	}, []string{"target", "outcome"})

	RefreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fraudmon_refresh_duration_seconds",
		Help:    "Latency of a refresh from request to applied state.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"target"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraudmon_notifications_total",
		Help: "Total number of push notifications received, labelled by type.",
	}, []string{"type"})

	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraudmon_commands_total",
		Help: "Total number of user commands, labelled by command and outcome.",
	}, []string{"command", "outcome"})

	PushConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fraudmon_push_connected",
		Help: "1 while the push channel is open, 0 otherwise.",
	})

	StoreItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fraudmon_store_items",
		Help: "Number of items currently held in each local window.",
	}, []string{"collection"})
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDropped = "dropped"
)

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
