// Package analytics computes KPIs for EMM/ESM procedures: per-procedure
// counts, success/failure/timeout breakdowns, cause-code histograms and
// latency percentiles. Adapted from the teacher's pkg/analytics/kpi.go,
// which tracked protocol-message throughput and roaming sessions; roaming
// analytics is dropped (spec.md §1 Non-goals: "roaming policy beyond
// reject-cause selection") and the per-procedure metrics are repurposed
// from decoded-message sessions to completed EMM/ESM procedures.
package analytics

import (
	"sort"
	"sync"
	"time"
)

// Result classifies how one EMM/ESM procedure ended.
type Result int

const (
	ResultSuccess Result = iota
	ResultFailure
	ResultTimeout
)

// Config holds analytics tuning.
type Config struct {
	Enabled             bool
	CalculationInterval time.Duration
	FailureThreshold    float64 // percent
	LatencyThresholdMs  int
}

// ProcedureMetrics holds metrics for one EMM/ESM procedure kind ("ATT",
// "TAU", "PDNConnectivity", ...).
type ProcedureMetrics struct {
	Procedure    string
	TotalCount   int64
	SuccessCount int64
	FailureCount int64
	TimeoutCount int64
	SuccessRate  float64
	FailureRate  float64
	Latencies    []int64 // microseconds
	LatencyAvg   int64
	LatencyP95   int64
	LatencyP99   int64
	CauseCodes   map[uint8]int64
	LastUpdate   time.Time
	mu           sync.Mutex
}

// KPIReport is a point-in-time snapshot produced by Calculate.
type KPIReport struct {
	Timestamp  time.Time
	Period     time.Duration
	Procedures map[string]*ProcedureMetrics
	Alerts     []Alert
}

// Alert flags a procedure crossing a configured threshold.
type Alert struct {
	Severity  string // critical, high, medium, low
	Procedure string
	Message   string
	Value     float64
	Threshold float64
	Timestamp time.Time
}

// Completion is one finished procedure handed to the engine.
type Completion struct {
	Procedure string // the procedure's Abbr(), e.g. "ATT", "TAU", "PDNConnectivity"
	Result    Result
	Cause     uint8 // valid when Result == ResultFailure
	Duration  time.Duration
}

// Engine aggregates Completions into per-procedure KPIs.
type Engine struct {
	config    *Config
	metrics   map[string]*ProcedureMetrics
	metricsMu sync.RWMutex
}

func NewEngine(config *Config) *Engine {
	e := &Engine{config: config, metrics: make(map[string]*ProcedureMetrics)}
	if config.Enabled && config.CalculationInterval > 0 {
		go e.periodicCalculation()
	}
	return e
}

// Record folds one completed procedure into its running metrics.
func (e *Engine) Record(c Completion) {
	e.metricsMu.RLock()
	metrics, exists := e.metrics[c.Procedure]
	e.metricsMu.RUnlock()

	if !exists {
		e.metricsMu.Lock()
		metrics, exists = e.metrics[c.Procedure]
		if !exists {
			metrics = &ProcedureMetrics{
				Procedure:  c.Procedure,
				CauseCodes: make(map[uint8]int64),
				Latencies:  make([]int64, 0, 1024),
			}
			e.metrics[c.Procedure] = metrics
		}
		e.metricsMu.Unlock()
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()

	metrics.TotalCount++
	switch c.Result {
	case ResultSuccess:
		metrics.SuccessCount++
	case ResultFailure:
		metrics.FailureCount++
		metrics.CauseCodes[c.Cause]++
	case ResultTimeout:
		metrics.TimeoutCount++
	}

	if c.Duration > 0 {
		metrics.Latencies = append(metrics.Latencies, c.Duration.Microseconds())
		if len(metrics.Latencies) > 10000 {
			metrics.Latencies = metrics.Latencies[len(metrics.Latencies)-10000:]
		}
	}
	metrics.LastUpdate = time.Now()
}

// Calculate produces a KPIReport, recomputing rates/percentiles and
// flagging any procedure over the configured thresholds.
func (e *Engine) Calculate() *KPIReport {
	report := &KPIReport{
		Timestamp:  time.Now(),
		Period:     e.config.CalculationInterval,
		Procedures: make(map[string]*ProcedureMetrics),
	}

	e.metricsMu.RLock()
	defer e.metricsMu.RUnlock()

	for name, metrics := range e.metrics {
		metrics.mu.Lock()

		if metrics.TotalCount > 0 {
			metrics.SuccessRate = float64(metrics.SuccessCount) / float64(metrics.TotalCount) * 100
			metrics.FailureRate = float64(metrics.FailureCount) / float64(metrics.TotalCount) * 100
		}
		if len(metrics.Latencies) > 0 {
			metrics.LatencyAvg = average(metrics.Latencies)
			metrics.LatencyP95 = percentile(metrics.Latencies, 95)
			metrics.LatencyP99 = percentile(metrics.Latencies, 99)
		}

		snapshot := &ProcedureMetrics{
			Procedure:    metrics.Procedure,
			TotalCount:   metrics.TotalCount,
			SuccessCount: metrics.SuccessCount,
			FailureCount: metrics.FailureCount,
			TimeoutCount: metrics.TimeoutCount,
			SuccessRate:  metrics.SuccessRate,
			FailureRate:  metrics.FailureRate,
			LatencyAvg:   metrics.LatencyAvg,
			LatencyP95:   metrics.LatencyP95,
			LatencyP99:   metrics.LatencyP99,
			CauseCodes:   make(map[uint8]int64, len(metrics.CauseCodes)),
			LastUpdate:   metrics.LastUpdate,
		}
		for code, count := range metrics.CauseCodes {
			snapshot.CauseCodes[code] = count
		}
		report.Procedures[name] = snapshot

		if metrics.FailureRate > e.config.FailureThreshold {
			report.Alerts = append(report.Alerts, Alert{
				Severity:  "high",
				Procedure: name,
				Message:   "high failure rate",
				Value:     metrics.FailureRate,
				Threshold: e.config.FailureThreshold,
				Timestamp: time.Now(),
			})
		}
		if metrics.LatencyP95 > int64(e.config.LatencyThresholdMs)*1000 {
			report.Alerts = append(report.Alerts, Alert{
				Severity:  "medium",
				Procedure: name,
				Message:   "high P95 latency",
				Value:     float64(metrics.LatencyP95) / 1000,
				Threshold: float64(e.config.LatencyThresholdMs),
				Timestamp: time.Now(),
			})
		}

		metrics.mu.Unlock()
	}

	return report
}

func average(values []int64) int64 {
	if len(values) == 0 {
		return 0
	}
	var sum int64
	for _, v := range values {
		sum += v
	}
	return sum / int64(len(values))
}

func percentile(values []int64, p int) int64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := (len(sorted) * p) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func (e *Engine) periodicCalculation() {
	ticker := time.NewTicker(e.config.CalculationInterval)
	defer ticker.Stop()
	for range ticker.C {
		_ = e.Calculate()
	}
}

// GetMetrics returns the current metrics for one procedure name, or nil.
func (e *Engine) GetMetrics(procedure string) *ProcedureMetrics {
	e.metricsMu.RLock()
	defer e.metricsMu.RUnlock()
	return e.metrics[procedure]
}

// Reset clears every procedure's counters, e.g. between test runs.
func (e *Engine) Reset() {
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	for _, metrics := range e.metrics {
		metrics.mu.Lock()
		metrics.TotalCount, metrics.SuccessCount, metrics.FailureCount, metrics.TimeoutCount = 0, 0, 0, 0
		metrics.Latencies = metrics.Latencies[:0]
		metrics.CauseCodes = make(map[uint8]int64)
		metrics.mu.Unlock()
	}
}
