// Package output renders the per-run conversion report.
package output

import (
	"time"
)

// Report is the complete output of one CLI run.
type Report struct {
	// Summary provides aggregate statistics.
	Summary Summary `json:"summary"`

	// Results holds one entry per converted source.
	Results []*FileResult `json:"results"`

	// Metadata provides context about the run.
	Metadata Metadata `json:"metadata"`
}

// FileResult describes the conversion of one source file.
type FileResult struct {
	Source      string `json:"source"`
	Destination string `json:"destination,omitempty"`

	// Outcome is the sink outcome name (created, written, unchanged,
	// declined, sent) or "failed".
	Outcome string `json:"outcome"`

	Statements  int `json:"statements"`
	Chunks      int `json:"chunks"`
	Prompts     int `json:"prompts"`
	Underflows  int `json:"underflows"`
	Spans       int `json:"spans"`
	BannerLines int `json:"banner_lines"`

	Webhooks []WebhookResult `json:"webhooks,omitempty"`

	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Failed reports whether the conversion or its delivery failed.
func (r *FileResult) Failed() bool {
	return r.Error != ""
}

// WebhookResult is the delivery status of one webhook.
type WebhookResult struct {
	Name       string `json:"name"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Summary provides aggregate statistics.
type Summary struct {
	Files      int `json:"files"`
	Created    int `json:"created"`
	Written    int `json:"written"`
	Unchanged  int `json:"unchanged"`
	Declined   int `json:"declined"`
	Failed     int `json:"failed"`
	Underflows int `json:"underflows"`
}

// Metadata provides context about the run.
type Metadata struct {
	RunID      string        `json:"run_id,omitempty"`
	ConfigFile string        `json:"config_file,omitempty"`
	Dialect    string        `json:"dialect"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
}

// NewReport builds a Report and its summary from per-file results.
func NewReport(results []*FileResult, meta Metadata) *Report {
	report := &Report{
		Results:  results,
		Metadata: meta,
	}
	if report.Results == nil {
		report.Results = []*FileResult{}
	}

	s := &report.Summary
	s.Files = len(results)
	for _, r := range results {
		s.Underflows += r.Underflows
		if r.Failed() {
			s.Failed++
			continue
		}
		switch r.Outcome {
		case "created":
			s.Created++
		case "written", "sent":
			s.Written++
		case "unchanged":
			s.Unchanged++
		case "declined":
			s.Declined++
		}
	}
	return report
}

// HasIssues returns true if any document was declined or failed, or any
// transcript lost output lines.
func (r *Report) HasIssues() bool {
	return r.Summary.Declined > 0 || r.Summary.Failed > 0 || r.Summary.Underflows > 0
}

// Status condenses the run into failed, issues or ok, in that precedence.
func (r *Report) Status() string {
	switch {
	case r.Summary.Failed > 0:
		return "failed"
	case r.HasIssues():
		return "issues"
	default:
		return "ok"
	}
}
