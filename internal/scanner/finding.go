package scanner

// Finding is one rule match at a file and line.
type Finding struct {
	RuleID   string   `json:"rule_id" yaml:"rule_id"`
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`
	Path     string   `json:"path" yaml:"path"`
	Line     int      `json:"line" yaml:"line"`
	Snippet  string   `json:"snippet" yaml:"snippet"`
}

// Summary counts findings per severity.
type Summary struct {
	High   int `json:"high" yaml:"high"`
	Medium int `json:"medium" yaml:"medium"`
	Low    int `json:"low" yaml:"low"`
	Total  int `json:"total" yaml:"total"`
}

// Summarize tallies findings by severity.
func Summarize(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Severity {
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		case SeverityLow:
			s.Low++
		}
		s.Total++
	}
	return s
}

// AtOrAbove reports whether any finding has severity >= min.
func AtOrAbove(findings []Finding, min Severity) bool {
	for _, f := range findings {
		if f.Severity.Rank() >= min.Rank() {
			return true
		}
	}
	return false
}
