package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics holds the instruments for the registration pipeline.
// Constructed once at process start and injected explicitly.
type PipelineMetrics struct {
	RegistrationsTotal      *prometheus.CounterVec
	RegistrationDurationSec prometheus.Histogram
	DurabilityRisksTotal    prometheus.Counter
	JobsProcessedTotal      *prometheus.CounterVec
}

// Registration outcome label values.
const (
	OutcomeAccepted           = "accepted"
	OutcomeRejectedValidation = "rejected_validation"
	OutcomeRejectedConflict   = "rejected_conflict"
	OutcomeFailedCache        = "failed_cache"
)

// Job outcome label values.
const (
	JobOutcomeProcessed  = "processed"
	JobOutcomeRequeued   = "requeued"
	JobOutcomeDeadLetter = "dead_letter"
)

// New registers the pipeline instruments on reg.
func New(reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)
	return &PipelineMetrics{
		RegistrationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registrations_total",
			Help: "Registration requests completed, by outcome.",
		}, []string{"outcome"}),
		RegistrationDurationSec: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "registration_duration_seconds",
			Help:    "Duration of the synchronous registration path.",
			Buckets: prometheus.DefBuckets,
		}),
		DurabilityRisksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "registration_durability_risks_total",
			Help: "Users cached without an acknowledged persist-user job.",
		}),
		JobsProcessedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registration_jobs_total",
			Help: "Background jobs handled, by queue and outcome.",
		}, []string{"queue", "outcome"}),
	}
}
