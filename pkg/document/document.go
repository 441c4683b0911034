// Package document assembles the finished transcript document: the quoted
// body with an optional title block and self-test trailer.
package document

import (
	"strings"
	"time"

	"github.com/cart0113/mod2doctest/pkg/dialect"
)

// TitleRuleWidth is the width of the rules framing the title block.
const TitleRuleWidth = 80

// Document is the final text artifact of one pipeline run.
type Document struct {
	Title   []string
	Body    []string
	Trailer string

	Quote string
}

// String renders the document as it is written to disk.
func (d *Document) String() string {
	var b strings.Builder

	b.WriteString(d.Quote)
	b.WriteString("\n")
	if len(d.Title) > 0 {
		b.WriteString(strings.Join(d.Title, "\n"))
		b.WriteString("\n\n")
	}
	if len(d.Body) > 0 {
		b.WriteString(strings.Join(d.Body, "\n"))
		b.WriteString("\n")
	}
	b.WriteString(d.Quote)
	b.WriteString("\n")

	if d.Trailer != "" {
		b.WriteString("\n")
		b.WriteString(d.Trailer)
		b.WriteString("\n")
	}
	return b.String()
}

// Bytes is String as a byte slice.
func (d *Document) Bytes() []byte {
	return []byte(d.String())
}

// Assembler wraps a transcript body into a Document.
type Assembler struct {
	dialect *dialect.Dialect
	title   bool
	trailer bool
	now     func() time.Time
}

// Option configures the Assembler.
type Option func(*Assembler)

// WithTitle toggles the generated title block.
func WithTitle(enabled bool) Option {
	return func(a *Assembler) {
		a.title = enabled
	}
}

// WithTrailer toggles the self-test trailer.
func WithTrailer(enabled bool) Option {
	return func(a *Assembler) {
		a.trailer = enabled
	}
}

// WithClock sets the time source used for the title timestamp.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAssembler creates an Assembler with title and trailer enabled.
func NewAssembler(d *dialect.Dialect, opts ...Option) *Assembler {
	a := &Assembler{
		dialect: d,
		title:   true,
		trailer: true,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds the Document. Occurrences of the quote inside the body
// are replaced by the dialect's escape, and blank lines at either end of the
// body are dropped.
func (a *Assembler) Assemble(body []string) *Document {
	doc := &Document{
		Body:  escapeBody(trimBlankEdges(body), a.dialect.Quote, a.dialect.QuoteEscape),
		Quote: a.dialect.Quote,
	}
	if a.title {
		doc.Title = Title(a.now())
	}
	if a.trailer {
		doc.Trailer = a.dialect.SelfTestTrailer
	}
	return doc
}

// Title returns the generated title block for the given time.
func Title(t time.Time) []string {
	rule := strings.Repeat("=", TitleRuleWidth)
	return []string{
		rule,
		"Auto generated by mod2doctest on " + t.Format(time.ANSIC),
		rule,
	}
}

func escapeBody(lines []string, quote, escape string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.ReplaceAll(l, quote, escape)
	}
	return out
}

func trimBlankEdges(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}
