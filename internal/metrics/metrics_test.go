package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/fyrsmithlabs/vibeguard/internal/ingest"
	"github.com/fyrsmithlabs/vibeguard/internal/scanner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordScan(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordScan(OutcomeOK)
	m.RecordScan(OutcomeOK)
	m.RecordScan("not_found")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues("not_found")))
}

func TestRecordIngestion(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordIngestion(&ingest.FilesPayload{
		Stats:            ingest.Stats{FilesConsidered: 10, FilesIncluded: 6, FilesRead: 6},
		Truncated:        true,
		TruncationReason: ingest.TruncatedMaxFiles,
	})
	m.RecordIngestion(&ingest.FilesPayload{
		Stats: ingest.Stats{FilesConsidered: 2, FilesIncluded: 1, FilesRead: 1},
	})
	m.RecordIngestion(nil)

	assert.Equal(t, 12.0, testutil.ToFloat64(m.FilesTotal.WithLabelValues("considered")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.FilesTotal.WithLabelValues("included")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.FilesTotal.WithLabelValues("read")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TruncatedTotal.WithLabelValues(ingest.TruncatedMaxFiles)))
}

func TestRecordFindings(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordFindings([]scanner.Finding{
		{RuleID: "AWS_ACCESS_KEY", Severity: scanner.SeverityHigh},
		{RuleID: "AWS_ACCESS_KEY", Severity: scanner.SeverityHigh},
		{RuleID: "PY_WEAK_HASH", Severity: scanner.SeverityMedium},
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FindingsTotal.WithLabelValues("AWS_ACCESS_KEY", "high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FindingsTotal.WithLabelValues("PY_WEAK_HASH", "medium")))
}

func TestObserveStage(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveStage(StageIngest, 250*time.Millisecond)
	m.ObserveStage(StageScan, 5*time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(m.StageDuration))

	expected := `
# HELP vibeguard_rate_limited_total Scan requests rejected by the per-client rate limiter
# TYPE vibeguard_rate_limited_total counter
vibeguard_rate_limited_total 1
`
	m.RecordRateLimited()
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "vibeguard_rate_limited_total"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordScan(OutcomeOK)
		m.ObserveStage(StageScan, time.Second)
		m.RecordIngestion(&ingest.FilesPayload{})
		m.RecordFindings([]scanner.Finding{{RuleID: "X"}})
		m.RecordRateLimited()
	})
}

func TestDefaultIsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}
