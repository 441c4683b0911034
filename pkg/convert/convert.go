// Package convert runs the whole pipeline for one source: normalize, run the
// interpreter, align its output, sanitize, annotate and assemble the document.
package convert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cart0113/mod2doctest/pkg/config"
	"github.com/cart0113/mod2doctest/pkg/dialect"
	"github.com/cart0113/mod2doctest/pkg/document"
	"github.com/cart0113/mod2doctest/pkg/interp"
	"github.com/cart0113/mod2doctest/pkg/normalize"
	"github.com/cart0113/mod2doctest/pkg/sanitize"
	"github.com/cart0113/mod2doctest/pkg/transcript"
)

// ErrNoSession is returned by New when no interpreter session is given.
var ErrNoSession = errors.New("interpreter session is required")

// Stats summarizes one pipeline run.
type Stats struct {
	// Statements is the number of substantive source lines fed to the shell.
	Statements int

	// Chunks is the number of output lines after the banner.
	Chunks int

	Prompts    int
	Underflows int

	// Spans is the number of documentation spans opened.
	Spans int

	BannerLines int
}

// Result is everything one conversion produced.
type Result struct {
	Name string

	// Normalized is the text fed to the interpreter.
	Normalized string

	// Output is the raw interpreter output.
	Output string

	// Transcript holds the aligned lines before annotation.
	Transcript []transcript.Line

	// Body holds the annotated lines the document was built from.
	Body []transcript.Line

	Document *document.Document

	// Echo is the doc-and-console prose, in order.
	Echo []string

	Stats Stats
}

// Truncated reports whether output prompts outnumbered source lines.
func (r *Result) Truncated() bool {
	return r.Stats.Underflows > 0
}

// Converter turns sources into transcript documents.
type Converter struct {
	cfg        *config.Config
	dialect    *dialect.Dialect
	session    interp.Session
	normalizer *normalize.Normalizer
	sanitizer  *sanitize.Sanitizer
	aligner    *transcript.Aligner
	now        func() time.Time
	logger     *zap.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock sets the time source for the title block.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Converter. A nil cfg uses the defaults. The configuration
// is validated if it has not been already.
func New(cfg *config.Config, session interp.Session, opts ...Option) (*Converter, error) {
	if session == nil {
		return nil, ErrNoSession
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if cfg.ResolvedDialect() == nil {
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("validating config: %w", err)
		}
	}

	d := cfg.ResolvedDialect()
	c := &Converter{
		cfg:     cfg,
		dialect: d,
		session: session,
		normalizer: normalize.New(d,
			normalize.WithMainGuardStripping(cfg.StripMainGuardBlocks),
			normalize.WithTabWidth(cfg.TabWidth)),
		sanitizer: sanitize.New(cfg.SanitizeOptions(), cfg.ExtraRules()...),
		aligner:   transcript.NewAligner(d),
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Dialect returns the dialect the converter runs with.
func (c *Converter) Dialect() *dialect.Dialect {
	return c.dialect
}

// Sanitizer returns the sanitizer built from the configuration.
func (c *Converter) Sanitizer() *sanitize.Sanitizer {
	return c.sanitizer
}

// Normalize returns the text that would be fed to the interpreter.
func (c *Converter) Normalize(src string) (string, error) {
	return c.normalizer.Normalize(src)
}

// Convert runs the full pipeline over src. Input defects abort before the
// interpreter is started. Alignment underflow is reported in the stats and
// is not an error.
func (c *Converter) Convert(ctx context.Context, name, src string) (*Result, error) {
	normalized, err := c.normalizer.Normalize(src)
	if err != nil {
		return nil, fmt.Errorf("normalizing %s: %w", name, err)
	}

	raw, err := c.session.Run(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", name, err)
	}

	res := c.Transcribe(normalized, raw)
	res.Name = name

	c.logger.Debug("transcript built",
		zap.String("source", name),
		zap.Int("statements", res.Stats.Statements),
		zap.Int("chunks", res.Stats.Chunks),
		zap.Int("prompts", res.Stats.Prompts),
		zap.Int("banner_lines", res.Stats.BannerLines),
		zap.Int("spans", res.Stats.Spans))

	if res.Truncated() {
		c.logger.Warn("interpreter echoed more prompts than there are source lines; transcript is truncated",
			zap.String("source", name),
			zap.Int("underflows", res.Stats.Underflows))
	}
	return res, nil
}

// Transcribe builds the document from normalized source and the raw output
// the interpreter produced for it. It performs no I/O.
func (c *Converter) Transcribe(normalized, raw string) *Result {
	d := c.dialect

	chunks := transcript.SplitOutput(raw, c.cfg.TabWidth)
	for i, chunk := range chunks {
		chunks[i] = c.sanitizer.Line(chunk)
	}
	banner := dialect.MeasureBanner(chunks, d)
	chunks = chunks[banner:]

	sourceLines := transcript.ParseSourceLines(normalized, d)
	queue := transcript.NewSourceQueue(sourceLines)
	// The shell prompts once more when it reaches end of input.
	queue.Push(transcript.SourceLine{Blank: true})

	aligned := c.aligner.Align(queue, chunks)
	lines := transcript.TrimTerminator(aligned.Lines, d.Terminator)
	if c.sanitizer.HasBlockRules() {
		lines = sanitizeOutputRuns(lines, c.sanitizer)
	}

	ann := transcript.Annotate(lines, d)
	body := ann.Lines
	if c.cfg.CollapseBlankPromptRuns {
		body = transcript.CollapseBlankPrompts(body)
	}

	assembler := document.NewAssembler(d,
		document.WithTitle(c.cfg.EmitTitleBlock),
		document.WithTrailer(c.cfg.EmitSelfTestTrailer),
		document.WithClock(c.now))
	doc := assembler.Assemble(transcript.Render(body, d))

	statements := 0
	for _, l := range sourceLines {
		if l.Substantive() {
			statements++
		}
	}

	return &Result{
		Normalized: normalized,
		Output:     raw,
		Transcript: lines,
		Body:       body,
		Document:   doc,
		Echo:       ann.Echo,
		Stats: Stats{
			Statements:  statements,
			Chunks:      len(chunks),
			Prompts:     aligned.Prompts,
			Underflows:  aligned.Underflows,
			Spans:       ann.Spans,
			BannerLines: banner,
		},
	}
}

// sanitizeOutputRuns applies document-scoped rules to each run of
// consecutive console output lines. Prompted lines and prose are left alone.
func sanitizeOutputRuns(lines []transcript.Line, s *sanitize.Sanitizer) []transcript.Line {
	out := make([]transcript.Line, 0, len(lines))
	var run []string

	flush := func() {
		if len(run) == 0 {
			return
		}
		for _, text := range strings.Split(s.Block(strings.Join(run, "\n")), "\n") {
			out = append(out, transcript.Line{Text: text})
		}
		run = run[:0]
	}

	for _, l := range lines {
		if !l.Prompted() && !l.Doc {
			run = append(run, l.Text)
			continue
		}
		flush()
		out = append(out, l)
	}
	flush()
	return out
}
