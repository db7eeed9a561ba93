package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fyrsmithlabs/vibeguard/internal/pipeline"
	"github.com/fyrsmithlabs/vibeguard/internal/scanner"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func validFormat(f string) error {
	switch f {
	case formatText, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown format %q (want text, json or yaml)", f)
}

// styles renders severity labels. The renderer detects the color profile
// of the destination, so output piped to a file carries no escapes.
type styles struct {
	high, medium, low lipgloss.Style
	title, dim        lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	label := r.NewStyle().Bold(true).Width(8)
	return styles{
		high:   label.Foreground(lipgloss.Color("196")),
		medium: label.Foreground(lipgloss.Color("226")),
		low:    label.Foreground(lipgloss.Color("45")),
		title:  r.NewStyle().Foreground(lipgloss.Color("51")).Bold(true),
		dim:    r.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

func (s styles) severity(sev scanner.Severity) string {
	label := strings.ToUpper(string(sev))
	switch sev {
	case scanner.SeverityHigh:
		return s.high.Render(label)
	case scanner.SeverityMedium:
		return s.medium.Render(label)
	default:
		return s.low.Render(label)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func writeReport(w io.Writer, format string, r *pipeline.Report) error {
	switch format {
	case formatJSON:
		return writeJSON(w, r)
	case formatYAML:
		return writeYAML(w, r)
	}

	st := newStyles(w)
	repo := fmt.Sprintf("%s/%s@%s", r.Repo.Owner, r.Repo.Name, r.Repo.Ref)
	if r.Repo.Subpath != "" {
		repo += ":" + r.Repo.Subpath
	}
	fmt.Fprintln(w, st.title.Render(repo))

	in := r.Ingestion
	stats := fmt.Sprintf("scan %s, %d files considered, %d included, %d read in %dms",
		r.ScanID, in.FilesConsidered, in.FilesIncluded, in.FilesRead, r.DurationMS)
	if in.Truncated {
		stats += fmt.Sprintf(" (truncated: %s)", in.TruncationReason)
	}
	fmt.Fprintln(w, st.dim.Render(stats))
	fmt.Fprintln(w)

	for _, f := range r.Findings {
		fmt.Fprintf(w, "%s %s %s:%d\n", st.severity(f.Severity), f.RuleID, f.Path, f.Line)
		fmt.Fprintf(w, "%8s %s\n", "", f.Message)
		if f.Snippet != "" {
			fmt.Fprintf(w, "%8s %s\n", "", st.dim.Render(f.Snippet))
		}
	}
	if len(r.Findings) > 0 {
		fmt.Fprintln(w)
	}

	s := r.Summary
	fmt.Fprintf(w, "%d findings: %d high, %d medium, %d low\n", s.Total, s.High, s.Medium, s.Low)
	return nil
}

func writeRules(w io.Writer, format string, rules []scanner.Rule) error {
	switch format {
	case formatJSON:
		return writeJSON(w, rules)
	case formatYAML:
		return writeYAML(w, rules)
	}

	st := newStyles(w)
	for _, r := range rules {
		scope := "all files"
		if len(r.Extensions) > 0 {
			scope = strings.Join(r.Extensions, " ")
		}
		fmt.Fprintf(w, "%s %s %s\n", st.severity(r.Severity), r.ID, st.dim.Render("("+scope+")"))
		fmt.Fprintf(w, "%8s %s\n", "", r.Message)
	}
	fmt.Fprintf(w, "\n%d rules\n", len(rules))
	return nil
}
