package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestFinanceMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewFinanceMetrics(reg)
	metrics.ObservePosting("expense", "salary", 30000)
	metrics.ObservePosting("expense", "salary", 5000)
	metrics.IncReview(OutcomeInsufficientFunds)
	metrics.IncSalaryChange("")
	metrics.ObserveLockWait("lab", 20*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "ledger_postings_total", "category", "salary"); err != nil {
		t.Fatalf("fetch postings: %v", err)
	} else if got != 2 {
		t.Fatalf("expected postings=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "ledger_posted_amount_total", "kind", "expense"); err != nil {
		t.Fatalf("fetch amount: %v", err)
	} else if got != 35000 {
		t.Fatalf("expected amount=35000, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "expense_reviews_total", "outcome", OutcomeInsufficientFunds); err != nil {
		t.Fatalf("fetch reviews: %v", err)
	} else if got != 1 {
		t.Fatalf("expected reviews=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "salary_reconciliations_total", "action", "unknown"); err != nil {
		t.Fatalf("fetch salary changes: %v", err)
	} else if got != 1 {
		t.Fatalf("expected salary changes=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "finance_lock_wait_seconds", "scope", "lab"); err != nil {
		t.Fatalf("fetch lock wait: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected lock wait sum > 0, got %f", got)
	}
}

func TestFinanceMetricsNilSafe(t *testing.T) {
	var metrics *FinanceMetrics
	metrics.ObservePosting("income", "general", 1)
	metrics.IncReview(OutcomeApproved)

	unregistered := NewFinanceMetrics(nil)
	unregistered.ObserveLockWait("lab", time.Second)
	unregistered.IncSalaryChange("created")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
