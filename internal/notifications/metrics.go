package notifications

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pulsegarden"

var (
	alertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "sent_total",
			Help:      "Total alert delivery attempts by channel type and outcome",
		},
		[]string{"channel_type", "status"},
	)

	alertSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "send_duration_seconds",
			Help:      "Time to deliver an alert to a channel",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"channel_type"},
	)
)

// recordAlertSent records a delivery attempt outcome.
func recordAlertSent(channelType, status string) {
	alertsSent.WithLabelValues(channelType, status).Inc()
}

// recordSendDuration records alert delivery duration.
func recordSendDuration(channelType string, duration time.Duration) {
	alertSendDuration.WithLabelValues(channelType).Observe(duration.Seconds())
}
