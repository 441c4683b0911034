package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cart0113/mod2doctest/pkg/config"
	"github.com/cart0113/mod2doctest/pkg/convert"
	"github.com/cart0113/mod2doctest/pkg/dialect"
	"github.com/cart0113/mod2doctest/pkg/output"
	"github.com/cart0113/mod2doctest/pkg/source"
	"github.com/cart0113/mod2doctest/pkg/transcript"
)

// TranscriptOptions holds command-line options for the transcript command.
type TranscriptOptions struct {
	ConfigPath string
	Output     string
	Replay     string
	Python     string
	Annotated  bool
}

// NewTranscriptCommand creates the transcript command.
func NewTranscriptCommand() *cobra.Command {
	opts := &TranscriptOptions{}

	cmd := &cobra.Command{
		Use:   "transcript <source>",
		Short: "Show how interpreter output lines up with the source",
		Long: `Run a source through the interpreter and print every transcript line
with its prompt kind and documentation marker, without writing anything.

Use it to find out why a document is truncated or why prose is missing.
The prompt dialect and banner length detected in the raw output are shown
above the table.

Example:
  mod2doctest transcript mymodule.py
  mod2doctest transcript --replay captured.txt mymodule.py
  mod2doctest transcript --annotated -o json mymodule.py`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscript(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Configuration file (YAML or TOML)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().StringVar(&opts.Replay, "replay", "", "Use interpreter output recorded in this file")
	cmd.Flags().StringVar(&opts.Python, "python", "", "Interpreter command or path")
	cmd.Flags().BoolVar(&opts.Annotated, "annotated", false, "Show lines after documentation markers are applied")

	return cmd
}

// transcriptRow is one line of the transcript table.
type transcriptRow struct {
	Prompt string `json:"prompt"`
	Marker string `json:"marker"`
	Text   string `json:"text"`
}

type transcriptJSON struct {
	Source      string          `json:"source"`
	Dialect     string          `json:"dialect,omitempty"`
	Confidence  float64         `json:"confidence"`
	BannerLines int             `json:"banner_lines"`
	Prompts     int             `json:"prompts"`
	Underflows  int             `json:"underflows"`
	Spans       int             `json:"spans"`
	Lines       []transcriptRow `json:"lines"`
}

func runTranscript(cmd *cobra.Command, args []string, opts *TranscriptOptions) error {
	ctx := commandContext(cmd)

	if opts.Output != "text" && opts.Output != "json" {
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}

	cfg, err := loadConfig(ctx, opts.ConfigPath, func(cfg *config.Config) {
		if opts.Python != "" {
			cfg.Interpreter.Command = opts.Python
		}
	})
	if err != nil {
		return err
	}

	src, err := source.Load(args[0])
	if err != nil {
		return err
	}

	session, err := convert.NewSession(cfg, convert.SessionOptions{Replay: opts.Replay}, nil)
	if err != nil {
		return fmt.Errorf("starting interpreter: %w", err)
	}
	conv, err := convert.New(cfg, session)
	if err != nil {
		return fmt.Errorf("creating converter: %w", err)
	}

	res, err := conv.Convert(ctx, args[0], src.Text)
	if err != nil {
		return err
	}

	detector := dialect.NewDetector()
	var detected *dialect.DetectionResult
	if opts.Replay != "" {
		if detected, err = detector.DetectFromFile(ctx, opts.Replay); err != nil {
			return fmt.Errorf("detecting dialect: %w", err)
		}
	} else {
		detected = detector.DetectFromLines(transcript.SplitOutput(res.Output, cfg.TabWidth))
	}

	lines := res.Transcript
	if opts.Annotated {
		lines = res.Body
	}
	rows := transcriptRows(lines, conv.Dialect())

	out := cmd.OutOrStdout()
	if opts.Output == "json" {
		doc := transcriptJSON{
			Source:      args[0],
			BannerLines: res.Stats.BannerLines,
			Prompts:     res.Stats.Prompts,
			Underflows:  res.Stats.Underflows,
			Spans:       res.Stats.Spans,
			Lines:       rows,
		}
		if len(detected.Matches) > 0 {
			doc.Dialect = detected.Matches[0].Dialect.Name
			doc.Confidence = detected.Matches[0].Confidence
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	return writeTranscriptText(out, args[0], detected, res, rows)
}

func transcriptRows(lines []transcript.Line, d *dialect.Dialect) []transcriptRow {
	classifier := transcript.NewClassifier(d.Markers)
	rows := make([]transcriptRow, len(lines))
	for i, l := range lines {
		prompt := l.Prompt.String()
		if l.Doc {
			prompt = "doc"
		}
		rows[i] = transcriptRow{
			Prompt: prompt,
			Marker: classifier.Classify(l).String(),
			Text:   l.Text,
		}
	}
	return rows
}

func writeTranscriptText(w io.Writer, name string, detected *dialect.DetectionResult, res *convert.Result, rows []transcriptRow) error {
	fmt.Fprintf(w, "Source: %s\n", name)
	if len(detected.Matches) > 0 {
		best := detected.Matches[0]
		fmt.Fprintf(w, "Dialect: %s (%.1f%% of output lines prompted)\n", best.Dialect.Name, best.Confidence*100)
	} else {
		fmt.Fprintln(w, "Dialect: not detected")
	}
	fmt.Fprintf(w, "Banner: %d line(s)\n\n", res.Stats.BannerLines)

	table := make([][]string, len(rows))
	for i, r := range rows {
		table[i] = []string{strconv.Itoa(i + 1), r.Prompt, r.Marker, r.Text}
	}
	fmt.Fprintln(w, output.RenderTable(
		[]string{"#", "Prompt", "Marker", "Text"},
		table,
		[]output.Align{output.AlignRight, output.AlignLeft, output.AlignLeft, output.AlignLeft},
	))

	_, err := fmt.Fprintf(w, "Prompts: %d  Underflows: %d  Spans: %d\n",
		res.Stats.Prompts, res.Stats.Underflows, res.Stats.Spans)
	return err
}
