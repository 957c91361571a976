package plausibus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks engine performance counters using lock-free atomics.
// All methods are safe for concurrent use.
type Metrics struct {
	documentsTotal atomic.Uint64
	documentsValid atomic.Uint64

	// Timing (stored as nanoseconds)
	validationTimeTotal atomic.Uint64
	validationTimeMin   atomic.Uint64
	validationTimeMax   atomic.Uint64

	// Lookup cache metrics, fed by the cached store wrappers
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64

	// Finding counts by severity
	errorsTotal   atomic.Uint64
	warningsTotal atomic.Uint64
	infosTotal    atomic.Uint64

	// Per-rule-set timing
	ruleTiming sync.Map // map[string]*ruleMetrics
}

type ruleMetrics struct {
	invocations atomic.Uint64
	totalTime   atomic.Uint64 // nanoseconds
	issuesFound atomic.Uint64
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	// Initialize min to max uint64 so the first sample becomes the minimum
	m.validationTimeMin.Store(^uint64(0))
	return m
}

// RecordValidation records a completed document validation.
func (m *Metrics) RecordValidation(duration time.Duration, valid bool) {
	m.documentsTotal.Add(1)
	if valid {
		m.documentsValid.Add(1)
	}

	ns := uint64(duration.Nanoseconds())
	m.validationTimeTotal.Add(ns)

	for {
		old := m.validationTimeMin.Load()
		if ns >= old || m.validationTimeMin.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.validationTimeMax.Load()
		if ns <= old || m.validationTimeMax.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordCacheHit records a lookup cache hit.
func (m *Metrics) RecordCacheHit() { m.cacheHits.Add(1) }

// RecordCacheMiss records a lookup cache miss.
func (m *Metrics) RecordCacheMiss() { m.cacheMisses.Add(1) }

// RecordIssue records a finding by severity.
func (m *Metrics) RecordIssue(severity Severity) {
	switch severity {
	case SeverityError:
		m.errorsTotal.Add(1)
	case SeverityWarning:
		m.warningsTotal.Add(1)
	case SeverityInformation:
		m.infosTotal.Add(1)
	}
}

// RecordRule records timing for one rule set run.
func (m *Metrics) RecordRule(rule string, duration time.Duration, issuesFound int) {
	rm := m.getOrCreateRuleMetrics(rule)
	rm.invocations.Add(1)
	rm.totalTime.Add(uint64(duration.Nanoseconds()))
	rm.issuesFound.Add(uint64(issuesFound))
}

func (m *Metrics) getOrCreateRuleMetrics(name string) *ruleMetrics {
	if v, ok := m.ruleTiming.Load(name); ok {
		return v.(*ruleMetrics)
	}
	rm := &ruleMetrics{}
	actual, _ := m.ruleTiming.LoadOrStore(name, rm)
	return actual.(*ruleMetrics)
}

// DocumentsTotal returns the number of documents validated.
func (m *Metrics) DocumentsTotal() uint64 { return m.documentsTotal.Load() }

// DocumentsValid returns the number of documents that passed.
func (m *Metrics) DocumentsValid() uint64 { return m.documentsValid.Load() }

// AverageValidationTime returns the mean validation duration.
func (m *Metrics) AverageValidationTime() time.Duration {
	total := m.documentsTotal.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.validationTimeTotal.Load() / total)
}

// CacheHitRate returns the lookup cache hit rate (0.0 to 1.0).
func (m *Metrics) CacheHitRate() float64 {
	hits := m.cacheHits.Load()
	total := hits + m.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// RuleStats holds counters for one rule set.
type RuleStats struct {
	Name        string        `json:"name"`
	Invocations uint64        `json:"invocations"`
	TotalTime   time.Duration `json:"total_time"`
	AvgTime     time.Duration `json:"avg_time"`
	IssuesFound uint64        `json:"issues_found"`
}

// AllRuleStats returns counters for every rule set seen so far.
func (m *Metrics) AllRuleStats() []RuleStats {
	var stats []RuleStats
	m.ruleTiming.Range(func(key, value any) bool {
		rm := value.(*ruleMetrics)
		invocations := rm.invocations.Load()
		totalTime := rm.totalTime.Load()

		var avg time.Duration
		if invocations > 0 {
			avg = time.Duration(totalTime / invocations)
		}
		stats = append(stats, RuleStats{
			Name:        key.(string),
			Invocations: invocations,
			TotalTime:   time.Duration(totalTime),
			AvgTime:     avg,
			IssuesFound: rm.issuesFound.Load(),
		})
		return true
	})
	return stats
}

// Snapshot is a point-in-time view of all counters.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	DocumentsTotal uint64  `json:"documents_total"`
	DocumentsValid uint64  `json:"documents_valid"`
	PassRate       float64 `json:"pass_rate"`

	AvgValidationTimeNs uint64 `json:"avg_validation_time_ns"`
	MinValidationTimeNs uint64 `json:"min_validation_time_ns"`
	MaxValidationTimeNs uint64 `json:"max_validation_time_ns"`

	CacheHits    uint64  `json:"cache_hits"`
	CacheMisses  uint64  `json:"cache_misses"`
	CacheHitRate float64 `json:"cache_hit_rate"`

	ErrorsTotal   uint64 `json:"errors_total"`
	WarningsTotal uint64 `json:"warnings_total"`
	InfosTotal    uint64 `json:"infos_total"`

	Rules []RuleStats `json:"rules,omitempty"`
}

// Snapshot returns a point-in-time view of all counters.
func (m *Metrics) Snapshot() Snapshot {
	total := m.documentsTotal.Load()
	hits := m.cacheHits.Load()
	misses := m.cacheMisses.Load()

	var passRate, hitRate float64
	var avgNs uint64
	if total > 0 {
		passRate = float64(m.documentsValid.Load()) / float64(total)
		avgNs = m.validationTimeTotal.Load() / total
	}
	if lookupTotal := hits + misses; lookupTotal > 0 {
		hitRate = float64(hits) / float64(lookupTotal)
	}

	minNs := m.validationTimeMin.Load()
	if minNs == ^uint64(0) {
		minNs = 0
	}

	return Snapshot{
		Timestamp:           time.Now(),
		DocumentsTotal:      total,
		DocumentsValid:      m.documentsValid.Load(),
		PassRate:            passRate,
		AvgValidationTimeNs: avgNs,
		MinValidationTimeNs: minNs,
		MaxValidationTimeNs: m.validationTimeMax.Load(),
		CacheHits:           hits,
		CacheMisses:         misses,
		CacheHitRate:        hitRate,
		ErrorsTotal:         m.errorsTotal.Load(),
		WarningsTotal:       m.warningsTotal.Load(),
		InfosTotal:          m.infosTotal.Load(),
		Rules:               m.AllRuleStats(),
	}
}

// Reset clears all counters.
func (m *Metrics) Reset() {
	m.documentsTotal.Store(0)
	m.documentsValid.Store(0)
	m.validationTimeTotal.Store(0)
	m.validationTimeMin.Store(^uint64(0))
	m.validationTimeMax.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.errorsTotal.Store(0)
	m.warningsTotal.Store(0)
	m.infosTotal.Store(0)

	m.ruleTiming.Range(func(key, _ any) bool {
		m.ruleTiming.Delete(key)
		return true
	})
}
