package output

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestNewJSONFormatter(t *testing.T) {
	f := NewJSONFormatter(FormatOptions{})
	if f == nil {
		t.Fatal("NewJSONFormatter() returned nil")
	}
	if f.Name() != "json" {
		t.Errorf("Name() = %q, want %q", f.Name(), "json")
	}
}

func TestJSONFormatter_Format(t *testing.T) {
	f := NewJSONFormatter(FormatOptions{})
	report := createTestReport()

	var buf bytes.Buffer
	err := f.Format(context.Background(), report, &buf)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	// Verify it's valid JSON
	var parsed Report
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}

	if parsed.Summary.Files != 3 {
		t.Errorf("Files = %d, want 3", parsed.Summary.Files)
	}
	if parsed.Summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", parsed.Summary.Failed)
	}
	if len(parsed.Results) != 3 {
		t.Fatalf("Results = %d, want 3", len(parsed.Results))
	}
	if parsed.Results[0].Underflows != 2 {
		t.Errorf("Results[0].Underflows = %d, want 2", parsed.Results[0].Underflows)
	}
	if parsed.Metadata.RunID != "run-123" {
		t.Errorf("RunID = %q, want %q", parsed.Metadata.RunID, "run-123")
	}
}

func TestJSONFormatter_Format_Keys(t *testing.T) {
	f := NewJSONFormatter(FormatOptions{})

	var buf bytes.Buffer
	if err := f.Format(context.Background(), createTestReport(), &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	for _, key := range []string{"summary", "results", "metadata"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("JSON missing %q key", key)
		}
	}
}

func TestJSONFormatter_Format_Quiet(t *testing.T) {
	f := NewJSONFormatter(FormatOptions{Quiet: true})
	report := createTestReport()

	var buf bytes.Buffer
	err := f.Format(context.Background(), report, &buf)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var parsed struct {
		RunID   string  `json:"run_id"`
		Status  string  `json:"status"`
		Summary Summary `json:"summary"`
		Results []any   `json:"results"`
	}
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}

	if parsed.Summary != report.Summary {
		t.Errorf("Summary = %+v, want %+v", parsed.Summary, report.Summary)
	}
	if parsed.Status != report.Status() {
		t.Errorf("Status = %q, want %q", parsed.Status, report.Status())
	}
	if parsed.RunID != report.Metadata.RunID {
		t.Errorf("RunID = %q, want %q", parsed.RunID, report.Metadata.RunID)
	}
	if parsed.Results != nil {
		t.Error("quiet output should not list results")
	}
}

func TestReport_Status(t *testing.T) {
	tests := []struct {
		name    string
		summary Summary
		want    string
	}{
		{"clean", Summary{Files: 2, Written: 1, Unchanged: 1}, "ok"},
		{"declined", Summary{Files: 1, Declined: 1}, "issues"},
		{"underflow", Summary{Files: 1, Written: 1, Underflows: 2}, "issues"},
		{"failed wins", Summary{Files: 2, Failed: 1, Declined: 1}, "failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Report{Summary: tt.summary}
			if got := r.Status(); got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJSONFormatter_Format_Empty(t *testing.T) {
	f := NewJSONFormatter(FormatOptions{})
	report := NewReport(nil, Metadata{Dialect: "python"})

	var buf bytes.Buffer
	if err := f.Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if string(parsed["results"]) != "[]" {
		t.Errorf("results = %s, want []", parsed["results"])
	}
}
