package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pulsegarden"

var (
	checksDue = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "checks_due_total",
			Help:      "Total due monitors fetched for checking",
		},
	)

	checksRun = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "checks_total",
			Help:      "Total checks executed by outcome",
		},
		[]string{"status"},
	)

	tickErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tick_errors_total",
			Help:      "Total scheduler ticks that failed to fetch due monitors",
		},
	)

	tickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tick_duration_seconds",
			Help:      "Scheduler tick duration including all checks in the batch",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func recordDue(n int) {
	checksDue.Add(float64(n))
}

func recordCheck(status string) {
	checksRun.WithLabelValues(status).Inc()
}

func recordTickError() {
	tickErrors.Inc()
}

func observeTickDuration(d time.Duration) {
	tickDuration.Observe(d.Seconds())
}
