package pipeline

import (
	"github.com/fyrsmithlabs/vibeguard/internal/ingest"
	"github.com/fyrsmithlabs/vibeguard/internal/repoid"
	"github.com/fyrsmithlabs/vibeguard/internal/scanner"
)

// IngestionOK marks a completed ingestion, even one that yielded no files.
const IngestionOK = "ok"

// Report is the result of one scan.
type Report struct {
	ScanID     string            `json:"scan_id" yaml:"scan_id"`
	Repo       Repo              `json:"repo" yaml:"repo"`
	Findings   []scanner.Finding `json:"findings" yaml:"findings"`
	Summary    scanner.Summary   `json:"summary" yaml:"summary"`
	Ingestion  Ingestion         `json:"ingestion" yaml:"ingestion"`
	DurationMS int64             `json:"duration_ms" yaml:"duration_ms"`
}

// Repo identifies the scanned snapshot. Ref is the ref actually
// downloaded, which differs from the requested one after a fallback.
type Repo struct {
	Owner   string `json:"owner" yaml:"owner"`
	Name    string `json:"name" yaml:"name"`
	Ref     string `json:"ref" yaml:"ref"`
	Subpath string `json:"subpath,omitempty" yaml:"subpath,omitempty"`
}

// Ingestion reports the filtering counters.
type Ingestion struct {
	Status string `json:"status" yaml:"status"`
	ingest.Stats `yaml:",inline"`
	Truncated        bool   `json:"truncated" yaml:"truncated"`
	TruncationReason string `json:"truncation_reason,omitempty" yaml:"truncation_reason,omitempty"`
}

func repoFrom(id repoid.Identifier) Repo {
	return Repo{Owner: id.Owner, Name: id.Name, Ref: id.Ref, Subpath: id.Subpath}
}

func ingestionFrom(p *ingest.FilesPayload) Ingestion {
	return Ingestion{
		Status:           IngestionOK,
		Stats:            p.Stats,
		Truncated:        p.Truncated,
		TruncationReason: p.TruncationReason,
	}
}
