package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Review outcomes recorded by IncReview.
const (
	OutcomeApproved          = "approved"
	OutcomeRejected          = "rejected"
	OutcomeInsufficientFunds = "insufficient_funds"
)

// FinanceMetrics records ledger postings, expense reviews and lock waits.
type FinanceMetrics struct {
	postings      *prometheus.CounterVec
	postedAmount  *prometheus.CounterVec
	reviews       *prometheus.CounterVec
	salaryChanges *prometheus.CounterVec
	lockWait      *prometheus.HistogramVec
}

// NewFinanceMetrics registers the finance metrics on the provided registerer.
// A nil registerer yields a recorder whose methods are no-ops.
func NewFinanceMetrics(reg prometheus.Registerer) *FinanceMetrics {
	if reg == nil {
		return &FinanceMetrics{}
	}
	postings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_postings_total",
		Help: "Ledger entries posted, by kind and category.",
	}, []string{"kind", "category"})
	postedAmount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_posted_amount_total",
		Help: "Sum of posted ledger amounts, by kind.",
	}, []string{"kind"})
	reviews := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "expense_reviews_total",
		Help: "Expense request review decisions, by outcome.",
	}, []string{"outcome"})
	salaryChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salary_reconciliations_total",
		Help: "Salary assignment reconciliations, by resulting action.",
	}, []string{"action"})
	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "finance_lock_wait_seconds",
		Help:    "Time spent waiting for finance locks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"scope"})
	reg.MustRegister(postings, postedAmount, reviews, salaryChanges, lockWait)
	return &FinanceMetrics{
		postings:      postings,
		postedAmount:  postedAmount,
		reviews:       reviews,
		salaryChanges: salaryChanges,
		lockWait:      lockWait,
	}
}

// ObservePosting counts one ledger posting and adds its amount.
func (m *FinanceMetrics) ObservePosting(kind, category string, amount float64) {
	if m == nil || m.postings == nil {
		return
	}
	m.postings.WithLabelValues(normalizeLabel(kind), normalizeLabel(category)).Inc()
	if amount > 0 {
		m.postedAmount.WithLabelValues(normalizeLabel(kind)).Add(amount)
	}
}

// IncReview counts one expense review decision.
func (m *FinanceMetrics) IncReview(outcome string) {
	if m == nil || m.reviews == nil {
		return
	}
	m.reviews.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncSalaryChange counts one salary reconciliation action.
func (m *FinanceMetrics) IncSalaryChange(action string) {
	if m == nil || m.salaryChanges == nil {
		return
	}
	m.salaryChanges.WithLabelValues(normalizeLabel(action)).Inc()
}

// ObserveLockWait records how long a caller waited for a lock.
func (m *FinanceMetrics) ObserveLockWait(scope string, waited time.Duration) {
	if m == nil || m.lockWait == nil {
		return
	}
	m.lockWait.WithLabelValues(normalizeLabel(scope)).Observe(waited.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
