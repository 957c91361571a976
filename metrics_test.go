package plausibus

import (
	"testing"
	"time"
)

func TestMetricsRecordValidation(t *testing.T) {
	m := NewMetrics()

	m.RecordValidation(10*time.Millisecond, true)
	m.RecordValidation(20*time.Millisecond, false)

	if got := m.DocumentsTotal(); got != 2 {
		t.Errorf("DocumentsTotal() = %d, want 2", got)
	}
	if got := m.DocumentsValid(); got != 1 {
		t.Errorf("DocumentsValid() = %d, want 1", got)
	}
	if got := m.AverageValidationTime(); got != 15*time.Millisecond {
		t.Errorf("AverageValidationTime() = %v, want 15ms", got)
	}

	s := m.Snapshot()
	if s.MinValidationTimeNs != uint64(10*time.Millisecond) {
		t.Errorf("MinValidationTimeNs = %d", s.MinValidationTimeNs)
	}
	if s.MaxValidationTimeNs != uint64(20*time.Millisecond) {
		t.Errorf("MaxValidationTimeNs = %d", s.MaxValidationTimeNs)
	}
	if s.PassRate != 0.5 {
		t.Errorf("PassRate = %f, want 0.5", s.PassRate)
	}
}

func TestMetricsIssueCounts(t *testing.T) {
	m := NewMetrics()
	m.RecordIssue(SeverityError)
	m.RecordIssue(SeverityWarning)
	m.RecordIssue(SeverityWarning)
	m.RecordIssue(SeverityInformation)

	s := m.Snapshot()
	if s.ErrorsTotal != 1 || s.WarningsTotal != 2 || s.InfosTotal != 1 {
		t.Errorf("issue counts = %d/%d/%d, want 1/2/1", s.ErrorsTotal, s.WarningsTotal, s.InfosTotal)
	}
}

func TestMetricsCacheHitRate(t *testing.T) {
	m := NewMetrics()
	if got := m.CacheHitRate(); got != 0 {
		t.Errorf("empty CacheHitRate() = %f, want 0", got)
	}

	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()

	if got := m.CacheHitRate(); got != 0.75 {
		t.Errorf("CacheHitRate() = %f, want 0.75", got)
	}
}

func TestMetricsRuleStats(t *testing.T) {
	m := NewMetrics()
	m.RecordRule("format", 2*time.Millisecond, 3)
	m.RecordRule("format", 4*time.Millisecond, 1)
	m.RecordRule("narcotics", time.Millisecond, 0)

	stats := m.AllRuleStats()
	if len(stats) != 2 {
		t.Fatalf("len(AllRuleStats()) = %d, want 2", len(stats))
	}

	var format *RuleStats
	for i := range stats {
		if stats[i].Name == "format" {
			format = &stats[i]
		}
	}
	if format == nil {
		t.Fatal("missing format stats")
	}
	if format.Invocations != 2 || format.IssuesFound != 4 {
		t.Errorf("format stats = %+v", *format)
	}
	if format.AvgTime != 3*time.Millisecond {
		t.Errorf("AvgTime = %v, want 3ms", format.AvgTime)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.RecordValidation(time.Millisecond, true)
	m.RecordRule("format", time.Millisecond, 1)
	m.Reset()

	if m.DocumentsTotal() != 0 {
		t.Error("DocumentsTotal not reset")
	}
	if len(m.AllRuleStats()) != 0 {
		t.Error("rule stats not reset")
	}
	if m.Snapshot().MinValidationTimeNs != 0 {
		t.Error("min time not reset")
	}
}
