// Package metrics registers the Prometheus collectors exposed on
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AlertsSent counts successful per-contact sends, labeled by alert
	// kind (sos, tracking, destination).
	AlertsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saheli_alerts_sent_total",
		Help: "Per-contact alert messages delivered to the gateway.",
	}, []string{"kind"})

	// AlertsFailed counts per-contact failures (bad phone or gateway
	// error) that were skipped without aborting the fan-out.
	AlertsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saheli_alerts_failed_total",
		Help: "Per-contact alert sends that failed.",
	}, []string{"kind"})

	// SessionsStarted counts location sharing sessions started.
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saheli_sharing_sessions_started_total",
		Help: "Location sharing sessions started.",
	})

	// FixesPersisted counts accepted location fixes written to the store
	// while sharing was active.
	FixesPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saheli_location_fixes_persisted_total",
		Help: "Location fixes persisted during active sessions.",
	})
)
