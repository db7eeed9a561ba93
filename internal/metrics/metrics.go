// Package metrics holds the Prometheus instruments for the scan pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/fyrsmithlabs/vibeguard/internal/ingest"
	"github.com/fyrsmithlabs/vibeguard/internal/scanner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scan outcomes other than an error kind.
const OutcomeOK = "ok"

// Pipeline stages.
const (
	StageIngest = "ingest"
	StageScan   = "scan"
)

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Metrics holds pipeline counters and histograms. A nil *Metrics is valid
// and records nothing.
//
// Metrics:
//   - vibeguard_scans_total{outcome} - scans by outcome ("ok" or error kind)
//   - vibeguard_stage_duration_seconds{stage} - ingest and scan latency
//   - vibeguard_files_total{stage} - files considered, included and read
//   - vibeguard_findings_total{rule,severity} - findings per rule
//   - vibeguard_truncated_total{reason} - ingestions cut short
//   - vibeguard_rate_limited_total - requests rejected by the limiter
type Metrics struct {
	ScansTotal       *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	FilesTotal       *prometheus.CounterVec
	FindingsTotal    *prometheus.CounterVec
	TruncatedTotal   *prometheus.CounterVec
	RateLimitedTotal prometheus.Counter
}

// Default returns metrics registered once on the default Prometheus
// registry, which promhttp.Handler serves.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New registers a fresh set of instruments on reg. Registering twice on
// the same registry panics.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ScansTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vibeguard_scans_total",
				Help: "Total number of repository scans by outcome",
			},
			[]string{"outcome"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vibeguard_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
			},
			[]string{"stage"},
		),
		FilesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vibeguard_files_total",
				Help: "Archive files seen at each filtering stage",
			},
			[]string{"stage"}, // "considered", "included", "read"
		),
		FindingsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vibeguard_findings_total",
				Help: "Total number of findings by rule and severity",
			},
			[]string{"rule", "severity"},
		),
		TruncatedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vibeguard_truncated_total",
				Help: "Ingestions stopped early, by reason",
			},
			[]string{"reason"},
		),
		RateLimitedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "vibeguard_rate_limited_total",
				Help: "Scan requests rejected by the per-client rate limiter",
			},
		),
	}
}

// RecordScan counts one finished scan.
func (m *Metrics) RecordScan(outcome string) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordIngestion adds the counters of one successful ingestion.
func (m *Metrics) RecordIngestion(p *ingest.FilesPayload) {
	if m == nil || p == nil {
		return
	}
	m.FilesTotal.WithLabelValues("considered").Add(float64(p.Stats.FilesConsidered))
	m.FilesTotal.WithLabelValues("included").Add(float64(p.Stats.FilesIncluded))
	m.FilesTotal.WithLabelValues("read").Add(float64(p.Stats.FilesRead))
	if p.Truncated {
		m.TruncatedTotal.WithLabelValues(p.TruncationReason).Inc()
	}
}

// RecordFindings counts findings per rule.
func (m *Metrics) RecordFindings(findings []scanner.Finding) {
	if m == nil {
		return
	}
	for _, f := range findings {
		m.FindingsTotal.WithLabelValues(f.RuleID, string(f.Severity)).Inc()
	}
}

// RecordRateLimited counts one rejected request.
func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}
