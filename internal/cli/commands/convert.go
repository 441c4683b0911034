package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cart0113/mod2doctest/pkg/config"
	"github.com/cart0113/mod2doctest/pkg/convert"
	"github.com/cart0113/mod2doctest/pkg/output"
	"github.com/cart0113/mod2doctest/pkg/sink"
	"github.com/cart0113/mod2doctest/pkg/source"
	"github.com/cart0113/mod2doctest/pkg/webhook"
)

// ConvertOptions holds command-line options for the convert command.
type ConvertOptions struct {
	ConfigPath string
	Output     string
	Stdout     bool
	Yes        bool
	NoLock     bool
	Difftool   string
	Replay     string
	Record     string
	Python     string
	NoTitle    bool
	NoTrailer  bool
	LogLevel   string
	Report     string
	Verbose    bool
	Quiet      bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewConvertCommand creates the convert command.
func NewConvertCommand() *cobra.Command {
	opts := &ConvertOptions{}

	cmd := &cobra.Command{
		Use:   "convert <source>...",
		Short: "Convert sources into doctest transcripts",
		Long: `Run each source through the interactive interpreter and write the
session transcript as a doctest document.

Comment markers in the source become documentation prose:
  #>   prose shown in the document and echoed while converting
  #|   prose shown in the document only
  ###  dropped from the document

By default mod.py is written to mod_doctest.py next to it. An existing
destination that differs is shown as a diff and must be confirmed.

Exit codes:
  0 - Every document was written or is unchanged
  1 - An overwrite was declined or a transcript is truncated
  2 - Configuration or runtime error

Example:
  mod2doctest convert mymodule.py
  mod2doctest convert -y 'examples/*.py'
  mod2doctest convert --stdout --no-title script.py
  cat script.py | mod2doctest convert -o script_doctest.py -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Configuration file (YAML or TOML)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Destination file (single source only)")
	cmd.Flags().BoolVar(&opts.Stdout, "stdout", false, "Print documents to stdout instead of writing files")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Overwrite changed destinations without asking")
	cmd.Flags().BoolVar(&opts.NoLock, "no-lock", false, "Do not lock destinations while writing")
	cmd.Flags().StringVar(&opts.Difftool, "difftool", "", "External diff command used before overwriting")
	cmd.Flags().StringVar(&opts.Replay, "replay", "", "Use interpreter output recorded in this file")
	cmd.Flags().StringVar(&opts.Record, "record", "", "Save interpreter output to this file")
	cmd.Flags().StringVar(&opts.Python, "python", "", "Interpreter command or path")
	cmd.Flags().BoolVar(&opts.NoTitle, "no-title", false, "Omit the generated title block")
	cmd.Flags().BoolVar(&opts.NoTrailer, "no-trailer", false, "Omit the self-test trailer")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.Report, "report", "text", "Report format (text|json)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show pipeline statistics and diffs")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no prose echo")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", "on_change", "When to fire webhook (on_change|always|never)")

	cmd.MarkFlagsMutuallyExclusive("output", "stdout")
	cmd.MarkFlagsMutuallyExclusive("replay", "record")

	return cmd
}

func runConvert(cmd *cobra.Command, args []string, opts *ConvertOptions) error {
	ctx := commandContext(cmd)
	started := time.Now()
	ExitCode = 0

	cfg, err := loadConfig(ctx, opts.ConfigPath, opts.apply)
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(opts.Report, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, opts.LogLevel)
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))
	defer func() { _ = logger.Sync() }()

	paths, err := source.Discover(args, cfg.Sink.Suffix)
	if err != nil {
		return fmt.Errorf("expanding sources: %w", err)
	}
	if err := checkSources(paths, opts); err != nil {
		return err
	}

	session, err := convert.NewSession(cfg, convert.SessionOptions{
		Replay: opts.Replay,
		Record: opts.Record,
	}, logger)
	if err != nil {
		return fmt.Errorf("starting interpreter: %w", err)
	}

	conv, err := convert.New(cfg, session, convert.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating converter: %w", err)
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	run := &convertRun{
		cfg:      cfg,
		opts:     opts,
		conv:     conv,
		docs:     newDocumentSink(cfg, opts, stdout, stderr, logger),
		client:   webhook.NewClient(),
		runID:    runID,
		echo:     stderr,
		colorize: shouldColorize(stderr),
		logger:   logger,
	}

	results := make([]*output.FileResult, 0, len(paths))
	for _, path := range paths {
		results = append(results, run.file(ctx, path))
	}

	report := output.NewReport(results, output.Metadata{
		RunID:      runID,
		ConfigFile: opts.ConfigPath,
		Dialect:    conv.Dialect().Name,
		StartedAt:  started,
		Duration:   time.Since(started),
	})

	// Documents own stdout when printed there.
	reportOut := stdout
	if opts.Stdout {
		reportOut = stderr
	}
	if err := formatter.Format(ctx, report, reportOut); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	switch {
	case report.Summary.Failed > 0:
		ExitCode = 2
	case report.HasIssues():
		ExitCode = 1
	}
	return nil
}

// apply layers command-line flags over the loaded configuration.
func (o *ConvertOptions) apply(cfg *config.Config) {
	if o.Python != "" {
		cfg.Interpreter.Command = o.Python
	}
	if o.NoTitle {
		cfg.EmitTitleBlock = false
	}
	if o.NoTrailer {
		cfg.EmitSelfTestTrailer = false
	}
	if o.Yes {
		cfg.Sink.Confirm = false
	}
	if o.NoLock {
		cfg.Sink.Lock = false
	}
	if o.Difftool != "" {
		cfg.Sink.Difftool = o.Difftool
	}
	if o.WebhookURL != "" {
		cfg.Webhooks = append(cfg.Webhooks, config.WebhookConfig{
			Name:    "cli",
			URL:     o.WebhookURL,
			Token:   o.WebhookToken,
			Trigger: config.WebhookTrigger(o.WebhookTrigger),
		})
	}
}

func checkSources(paths []string, opts *ConvertOptions) error {
	if len(paths) == 0 {
		return errors.New("no sources to convert")
	}
	if opts.Output != "" && len(paths) > 1 {
		return fmt.Errorf("--output needs a single source, got %d", len(paths))
	}
	if (opts.Replay != "" || opts.Record != "") && len(paths) > 1 {
		return fmt.Errorf("--replay and --record need a single source, got %d", len(paths))
	}
	for _, p := range paths {
		if p == source.StdinName && opts.Output == "" && !opts.Stdout {
			return errors.New("reading from stdin needs --output or --stdout")
		}
	}
	return nil
}

func newDocumentSink(cfg *config.Config, opts *ConvertOptions, stdout, stderr io.Writer, logger *zap.Logger) sink.Sink {
	if opts.Stdout {
		return sink.WriterSink{W: stdout}
	}

	var confirmer sink.Confirmer = sink.AlwaysYes{}
	if cfg.Sink.Confirm {
		confirmer = sink.NewTerminalConfirmer()
	}

	var differ sink.Differ = sink.UnifiedDiffer{}
	if cfg.Sink.Difftool != "" {
		differ = sink.ExternalDiffer{Command: cfg.Sink.Difftool, Args: cfg.Sink.DifftoolArgs}
	}

	// The diff is shown when it informs a decision, or on request.
	var diffOut io.Writer
	if cfg.Sink.Confirm || opts.Verbose {
		diffOut = stderr
	}

	return sink.NewFileSink(
		sink.WithConfirmer(confirmer),
		sink.WithDiffer(differ),
		sink.WithDiffOutput(diffOut),
		sink.WithLocking(cfg.Sink.Lock),
		sink.WithFileLogger(logger),
	)
}

// convertRun carries what every file of one convert invocation shares.
type convertRun struct {
	cfg      *config.Config
	opts     *ConvertOptions
	conv     *convert.Converter
	docs     sink.Sink
	client   *webhook.Client
	runID    string
	echo     io.Writer
	colorize bool
	logger   *zap.Logger
}

func (r *convertRun) file(ctx context.Context, path string) *output.FileResult {
	start := time.Now()
	fr := &output.FileResult{Source: path, Destination: r.destination(path)}
	defer func() { fr.Duration = time.Since(start) }()

	fail := func(err error) *output.FileResult {
		fr.Outcome = "failed"
		fr.Error = err.Error()
		r.logger.Error("conversion failed", zap.String("source", path), zap.Error(err))
		return fr
	}

	src, err := source.Load(path)
	if err != nil {
		return fail(err)
	}

	res, err := r.conv.Convert(ctx, path, src.Text)
	if err != nil {
		return fail(err)
	}
	fr.Statements = res.Stats.Statements
	fr.Chunks = res.Stats.Chunks
	fr.Prompts = res.Stats.Prompts
	fr.Underflows = res.Stats.Underflows
	fr.Spans = res.Stats.Spans
	fr.BannerLines = res.Stats.BannerLines

	if !r.opts.Quiet {
		echoProse(r.echo, res.Echo, r.colorize)
	}

	doc := res.Document.Bytes()
	outcome, err := r.docs.Put(ctx, fr.Destination, doc)
	fr.Outcome = outcome.String()
	switch {
	case errors.Is(err, sink.ErrDeclined):
		r.logger.Info("overwrite declined", zap.String("dest", fr.Destination))
	case err != nil:
		return fail(err)
	}

	fr.Webhooks = r.notify(ctx, path, fr.Destination, outcome, doc)
	return fr
}

func (r *convertRun) destination(path string) string {
	switch {
	case r.opts.Stdout:
		return "stdout"
	case r.opts.Output != "":
		return r.opts.Output
	default:
		return source.DefaultDestination(path, r.cfg.Sink.Suffix)
	}
}

// notify posts the document to every webhook whose trigger matches.
// Failures are reported but never fail the conversion.
func (r *convertRun) notify(ctx context.Context, src, dest string, outcome sink.Outcome, doc []byte) []output.WebhookResult {
	var results []output.WebhookResult

	for _, wh := range r.cfg.Webhooks {
		if !shouldFireWebhook(wh.Trigger, outcome) {
			continue
		}

		s := webhook.NewSink(r.client, webhook.SendOptions{
			URL:     wh.URL,
			Token:   wh.Token,
			Timeout: wh.Timeout(),
			Retries: wh.Retries,
		},
			webhook.WithRunID(r.runID),
			webhook.WithSource(src),
			webhook.WithPriorOutcome(outcome))

		result := output.WebhookResult{Name: wh.DisplayName()}
		_, err := s.Put(ctx, dest, doc)
		if resp := s.LastResponse(); resp != nil {
			result.StatusCode = resp.StatusCode
		}
		if err != nil {
			result.Error = err.Error()
			r.logger.Warn("webhook failed", zap.String("webhook", result.Name), zap.Error(err))
		} else {
			r.logger.Info("webhook sent", zap.String("webhook", result.Name), zap.Int("status", result.StatusCode))
		}
		results = append(results, result)
	}
	return results
}

// shouldFireWebhook determines if a webhook should fire for a sink outcome.
func shouldFireWebhook(trigger config.WebhookTrigger, outcome sink.Outcome) bool {
	switch trigger {
	case config.WebhookTriggerAlways:
		return true
	case config.WebhookTriggerNever:
		return false
	default:
		return outcome == sink.OutcomeCreated || outcome == sink.OutcomeWritten
	}
}
