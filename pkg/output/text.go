package output

import (
	"context"
	"fmt"
	"io"
	"strconv"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	_, err := fmt.Fprintf(w, "mod2doctest: %s\n", summaryLine(report.Summary))
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	if len(report.Results) > 0 {
		headers := []string{"Source", "Destination", "Outcome"}
		aligns := []Align{AlignLeft, AlignLeft, AlignLeft}
		if f.opts.Verbose {
			headers = append(headers, "Statements", "Prompts", "Underflows", "Spans")
			aligns = append(aligns, AlignRight, AlignRight, AlignRight, AlignRight)
		}

		rows := make([][]string, 0, len(report.Results))
		for _, r := range report.Results {
			outcome := r.Outcome
			if r.Failed() {
				outcome = "failed"
			}
			row := []string{r.Source, r.Destination, outcome}
			if f.opts.Verbose {
				row = append(row,
					strconv.Itoa(r.Statements),
					strconv.Itoa(r.Prompts),
					strconv.Itoa(r.Underflows),
					strconv.Itoa(r.Spans))
			}
			rows = append(rows, row)
		}
		if _, err := fmt.Fprintln(w, RenderTable(headers, rows, aligns)); err != nil {
			return err
		}
	}

	for _, r := range report.Results {
		if r.Failed() {
			fmt.Fprintf(w, "error: %s: %s\n", r.Source, r.Error)
		}
		if r.Underflows > 0 {
			fmt.Fprintf(w, "warning: %s: %d output line(s) had no matching source line\n", r.Source, r.Underflows)
		}
		for _, wh := range r.Webhooks {
			if wh.Error != "" {
				fmt.Fprintf(w, "warning: %s: webhook %s: %s\n", r.Source, wh.Name, wh.Error)
			}
		}
	}

	fmt.Fprintf(w, "Summary: %s\n", summaryLine(report.Summary))

	if f.opts.Verbose {
		if report.Metadata.RunID != "" {
			fmt.Fprintf(w, "Run: %s\n", report.Metadata.RunID)
		}
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
	}

	return nil
}

func summaryLine(s Summary) string {
	return fmt.Sprintf("%d file(s), %d created, %d written, %d unchanged, %d declined, %d failed",
		s.Files, s.Created, s.Written, s.Unchanged, s.Declined, s.Failed)
}
