package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	attributionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_attributions_total",
			Help: "Upload attribution attempts by source and outcome",
		},
		[]string{"source", "outcome"},
	)
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_notifications_total",
			Help: "Notification log decisions by type and outcome",
		},
		[]string{"type", "outcome"},
	)
	deliveryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_notification_delivery_failures_total",
			Help: "Failed notification deliveries by channel",
		},
		[]string{"channel"},
	)
	achievementsUnlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_achievements_unlocked_total",
			Help: "Achievements unlocked by type",
		},
		[]string{"type"},
	)
	sweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_sweeps_total",
			Help: "Sweeps by outcome",
		},
		[]string{"outcome"},
	)
	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "challenge_sweep_duration_seconds",
			Help:    "Duration of a full sweep",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
	sweepChallengeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "challenge_sweep_challenge_failures_total",
			Help: "Challenges that failed inside a sweep",
		},
	)

	registerOnce sync.Once
)

// RegisterMetrics registers the engine collectors once. Call it next to
// middleware.InitPrometheus.
func RegisterMetrics(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(
			attributionsTotal,
			notificationsTotal,
			deliveryFailures,
			achievementsUnlocked,
			sweepsTotal,
			sweepDuration,
			sweepChallengeFailures,
		)
	})
}
