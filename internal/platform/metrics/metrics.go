package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the onboarding pipeline.
type Metrics struct {
	IdentitiesCreated   prometheus.Counter
	StageOutcomes       *prometheus.CounterVec
	FinalizeTotal       prometheus.Counter
	TrialAttempts       *prometheus.CounterVec
	DocumentsIngested   *prometheus.CounterVec
	KYCTransitions      *prometheus.CounterVec
	TransactionsCreated *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	RateLimitDecisions  *prometheus.CounterVec
}

// New creates and registers all metrics on reg. Pass prometheus.NewRegistry()
// in tests so repeated construction does not collide on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		IdentitiesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "onboarding_identities_created_total",
			Help: "Total number of identities minted at stage 1",
		}),
		StageOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onboarding_stage_outcomes_total",
			Help: "Stage calls by stage and outcome code",
		}, []string{"stage", "outcome"}),
		FinalizeTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "onboarding_finalize_total",
			Help: "Total number of successful finalize writes",
		}),
		TrialAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onboarding_trial_attempts_total",
			Help: "Ordered candidate attempts by operation and result",
		}, []string{"operation", "result"}),
		DocumentsIngested: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onboarding_documents_ingested_total",
			Help: "Document ingestion results by role",
		}, []string{"role", "result"}),
		KYCTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onboarding_kyc_transitions_total",
			Help: "KYC status transitions by target state",
		}, []string{"to"}),
		TransactionsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onboarding_transactions_created_total",
			Help: "Funds-movement requests recorded by kind and payment-mode resolution",
		}, []string{"kind", "payment_mode"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "onboarding_stage_duration_seconds",
			Help:    "Latency of orchestrator calls by stage",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		RateLimitDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onboarding_rate_limit_decisions_total",
			Help: "Rate limit decisions by endpoint class and decision",
		}, []string{"class", "decision"}),
	}
}

func (m *Metrics) IncrementIdentitiesCreated() {
	if m == nil {
		return
	}
	m.IdentitiesCreated.Inc()
}

func (m *Metrics) ObserveStage(stage, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.StageOutcomes.WithLabelValues(stage, outcome).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

func (m *Metrics) IncrementFinalize() {
	if m == nil {
		return
	}
	m.FinalizeTotal.Inc()
}

func (m *Metrics) ObserveTrialAttempt(operation string, ok bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if ok {
		result = "accepted"
	}
	m.TrialAttempts.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) ObserveDocument(role string, ok bool) {
	if m == nil {
		return
	}
	result := "failed"
	if ok {
		result = "stored"
	}
	m.DocumentsIngested.WithLabelValues(role, result).Inc()
}

func (m *Metrics) ObserveKYCTransition(to string) {
	if m == nil {
		return
	}
	m.KYCTransitions.WithLabelValues(to).Inc()
}

func (m *Metrics) ObserveTransaction(kind, paymentMode string) {
	if m == nil {
		return
	}
	m.TransactionsCreated.WithLabelValues(kind, paymentMode).Inc()
}

// ObserveRateLimit records one decision: "allowed", "limited" or "store_error".
func (m *Metrics) ObserveRateLimit(class, decision string) {
	if m == nil {
		return
	}
	m.RateLimitDecisions.WithLabelValues(class, decision).Inc()
}
