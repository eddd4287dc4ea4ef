package reminder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dispatch results
const (
	resultSent      = "sent"
	resultFailed    = "failed"
	resultDuplicate = "duplicate"
)

var (
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daco_reminder_dispatch_total",
		Help: "Reminder dispatch attempts by email type and result.",
	}, []string{"email_type", "result"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "daco_reminder_run_duration_seconds",
		Help:    "Duration of one reminder scheduler pass.",
		Buckets: prometheus.DefBuckets,
	})

	lastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "daco_reminder_last_run_timestamp_seconds",
		Help: "Unix time of the last completed reminder pass.",
	})
)
