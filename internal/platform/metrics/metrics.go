package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ProductsRegistered         prometheus.Counter
	StageAdvances              *prometheus.CounterVec
	InvalidTransitions         prometheus.Counter
	Verifications              prometheus.Counter
	VerificationEventsDropped  prometheus.Counter
	VerificationEventsRecorded prometheus.Counter
}

// New creates all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates all metrics on the given registerer. Tests pass a fresh
// registry so suites don't collide on duplicate registration.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ProductsRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "krishichain_products_registered_total",
			Help: "Total number of products registered by farmers",
		}),
		StageAdvances: f.NewCounterVec(prometheus.CounterOpts{
			Name: "krishichain_stage_advances_total",
			Help: "Total number of accepted stage advances, by target stage",
		}, []string{"stage"}),
		InvalidTransitions: f.NewCounter(prometheus.CounterOpts{
			Name: "krishichain_invalid_transitions_total",
			Help: "Total number of rejected out-of-order stage advances",
		}),
		Verifications: f.NewCounter(prometheus.CounterOpts{
			Name: "krishichain_verifications_total",
			Help: "Total number of provenance verifications served",
		}),
		VerificationEventsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "krishichain_verification_events_dropped_total",
			Help: "Verification events dropped because the worker queue was full",
		}),
		VerificationEventsRecorded: f.NewCounter(prometheus.CounterOpts{
			Name: "krishichain_verification_events_recorded_total",
			Help: "Verification events persisted by the background worker",
		}),
	}
}

// IncStageAdvance increments the advance counter for a target stage.
func (m *Metrics) IncStageAdvance(stage string) {
	m.StageAdvances.WithLabelValues(stage).Inc()
}
