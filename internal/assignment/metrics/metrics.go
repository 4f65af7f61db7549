package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the assignment feature.
type Metrics struct {
	RegistrationsCreated   prometheus.Counter
	DuplicateRegistrations prometheus.Counter
	DeletionsCompleted     prometheus.Counter
	TokenFailures          prometheus.Counter
	LegacyUpgrades         prometheus.Counter
	HashDuration           prometheus.Histogram
}

// New creates and registers all assignment metrics on the default registry.
// Call once per process.
func New() *Metrics {
	return &Metrics{
		RegistrationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "adoro_registrations_created_total",
			Help: "Total number of assignment records created",
		}),
		DuplicateRegistrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "adoro_registrations_duplicate_total",
			Help: "Registrations rejected by the uniqueness constraint",
		}),
		DeletionsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "adoro_deletions_completed_total",
			Help: "Assignment records removed via a valid deletion token",
		}),
		TokenFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "adoro_deletion_token_failures_total",
			Help: "Deletion attempts with an unknown or mismatched token",
		}),
		LegacyUpgrades: promauto.NewCounter(prometheus.CounterOpts{
			Name: "adoro_legacy_upgrades_total",
			Help: "Legacy records rehashed to the current generation on verified read",
		}),
		HashDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "adoro_email_hash_duration_seconds",
			Help:    "Wall time of email digest computations",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}
