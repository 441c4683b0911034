package output

import (
	"context"
	"encoding/json"
	"io"
)

// JSONFormatter writes the report as indented JSON.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// quietJSON is the summary-only document written in quiet mode.
type quietJSON struct {
	RunID   string  `json:"run_id,omitempty"`
	Status  string  `json:"status"`
	Summary Summary `json:"summary"`
}

// Format encodes the whole report, or only its summary and status when quiet.
func (f *JSONFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if !f.opts.Quiet {
		return enc.Encode(report)
	}
	return enc.Encode(quietJSON{
		RunID:   report.Metadata.RunID,
		Status:  report.Status(),
		Summary: report.Summary,
	})
}
