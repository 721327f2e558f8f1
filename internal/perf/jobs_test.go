package perf

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/hvacdesk/hvacdesk/internal/jobs"
)

func TestNightlyJobReliabilityBudget(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)

	// Warmup runs touch only Redis and the month query; they should be fast
	// and nearly always succeed.
	for i := 0; i < 30; i++ {
		tracker := metrics.Track("settlement.summary_warmup")
		time.Sleep(5 * time.Millisecond)
		if err := tracker.End(nil); err != nil {
			t.Fatalf("unexpected error ending warmup tracker: %v", err)
		}
	}

	// Integrity scans walk every REQUESTED unit; slower but bounded.
	for i := 0; i < 10; i++ {
		tracker := metrics.Track("warehouse.integrity_scan")
		time.Sleep(20 * time.Millisecond)
		if err := tracker.End(nil); err != nil {
			t.Fatalf("unexpected error ending scan tracker: %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		tracker := metrics.Track("settlement.summary_warmup")
		time.Sleep(6 * time.Millisecond)
		if err := tracker.End(errors.New("redis timeout")); err == nil {
			t.Fatal("expected error to propagate")
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	success := metricValue(t, families, "hvacdesk_jobs_total", map[string]string{"job": "settlement.summary_warmup", "status": "success"})
	failure := metricValue(t, families, "hvacdesk_jobs_total", map[string]string{"job": "settlement.summary_warmup", "status": "failure"})
	if success+failure == 0 {
		t.Fatal("no warmup executions recorded")
	}
	if ratio := success / (success + failure); ratio < 0.9 {
		t.Fatalf("warmup success ratio too low: %f", ratio)
	}

	scanDuration := histogramMean(t, families, "hvacdesk_job_duration_seconds", map[string]string{"job": "warehouse.integrity_scan"})
	if scanDuration > 2.0 {
		t.Fatalf("integrity scan duration above budget: %f", scanDuration)
	}

	warmupDuration := histogramMean(t, families, "hvacdesk_job_duration_seconds", map[string]string{"job": "settlement.summary_warmup"})
	if warmupDuration > 0.5 {
		t.Fatalf("warmup duration above budget: %f", warmupDuration)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != val {
				return false
			}
		}
	}
	for key := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
