package http

import (
	"github.com/fyrsmithlabs/vibeguard/internal/scanner"
)

// ScanRequest is the request body for POST /api/scan/github.
type ScanRequest struct {
	RepoURL string `json:"repo_url"`
}

// ErrorResponse is the body of every failed request. Findings is always
// present and empty so clients can tell a failed scan from a clean one.
type ErrorResponse struct {
	Error    string            `json:"error"`
	Detail   string            `json:"detail"`
	Findings []scanner.Finding `json:"findings"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// RuleResponse describes one catalog rule for GET /api/rules.
type RuleResponse struct {
	ID         string           `json:"id"`
	Severity   scanner.Severity `json:"severity"`
	Message    string           `json:"message"`
	Extensions []string         `json:"extensions"`
	Secret     bool             `json:"secret"`
}

// RulesResponse is the response body for GET /api/rules.
type RulesResponse struct {
	Rules []RuleResponse `json:"rules"`
	Count int            `json:"count"`
}

func rulesResponse(rules []scanner.Rule) RulesResponse {
	out := make([]RuleResponse, len(rules))
	for i, r := range rules {
		exts := r.Extensions
		if exts == nil {
			exts = []string{}
		}
		out[i] = RuleResponse{
			ID:         r.ID,
			Severity:   r.Severity,
			Message:    r.Message,
			Extensions: exts,
			Secret:     r.Secret,
		}
	}
	return RulesResponse{Rules: out, Count: len(out)}
}
