package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics provides observability for the claims module.
// Tracks lifecycle counts, rule violations, cache effectiveness and use-case durations.
type Metrics struct {
	ClaimsCreated     prometheus.Counter
	ClaimsDeleted     prometheus.Counter
	DamagesAdded      prometheus.Counter
	DamagesRemoved    prometheus.Counter
	Transitions       *prometheus.CounterVec
	RuleViolations    *prometheus.CounterVec
	CacheLookups      *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New registers the claims metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the claims metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ClaimsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "claimdesk_claims_created_total",
			Help: "Total number of claims created",
		}),
		ClaimsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "claimdesk_claims_deleted_total",
			Help: "Total number of claims deleted",
		}),
		DamagesAdded: f.NewCounter(prometheus.CounterOpts{
			Name: "claimdesk_damages_added_total",
			Help: "Total number of damages added to claims",
		}),
		DamagesRemoved: f.NewCounter(prometheus.CounterOpts{
			Name: "claimdesk_damages_removed_total",
			Help: "Total number of damages removed from claims",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "claimdesk_claim_transitions_total",
			Help: "Claim status transitions by source and target status",
		}, []string{"from", "to"}),
		RuleViolations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "claimdesk_rule_violations_total",
			Help: "Rejected mutations by business rule",
		}, []string{"rule"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "claimdesk_claim_cache_lookups_total",
			Help: "Claim cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "claimdesk_claim_operation_duration_seconds",
			Help:    "Duration of claim use-case operations",
			Buckets: durationBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementClaimsCreated() {
	m.ClaimsCreated.Inc()
}

func (m *Metrics) IncrementClaimsDeleted() {
	m.ClaimsDeleted.Inc()
}

func (m *Metrics) IncrementDamagesAdded(n int) {
	m.DamagesAdded.Add(float64(n))
}

func (m *Metrics) IncrementDamagesRemoved() {
	m.DamagesRemoved.Inc()
}

// RecordTransition counts a successful status change.
func (m *Metrics) RecordTransition(from, to string) {
	m.Transitions.WithLabelValues(from, to).Inc()
}

// RecordRuleViolation counts a mutation rejected by a business rule.
// Untagged violations (transition and finish guard failures) use "other".
func (m *Metrics) RecordRuleViolation(rule string) {
	if rule == "" {
		rule = "other"
	}
	m.RuleViolations.WithLabelValues(rule).Inc()
}

func (m *Metrics) RecordCacheHit()   { m.CacheLookups.WithLabelValues("hit").Inc() }
func (m *Metrics) RecordCacheMiss()  { m.CacheLookups.WithLabelValues("miss").Inc() }
func (m *Metrics) RecordCacheError() { m.CacheLookups.WithLabelValues("error").Inc() }

// ObserveOperation records the duration of a use-case.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
