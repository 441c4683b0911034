package transcript

import (
	"strings"

	"github.com/cart0113/mod2doctest/pkg/dialect"
)

// Marker is the documentation tag carried by a transcript line.
type Marker int

const (
	MarkerNone Marker = iota
	MarkerDocOnly
	MarkerDocAndConsole
	MarkerSilent
)

// String returns the marker name.
func (m Marker) String() string {
	switch m {
	case MarkerDocOnly:
		return "doc-only"
	case MarkerDocAndConsole:
		return "doc-and-console"
	case MarkerSilent:
		return "silent"
	default:
		return "none"
	}
}

// Classifier tags prompted lines by their documentation marker prefix.
type Classifier struct {
	prefixes []string
	kinds    map[string]Marker
}

// NewClassifier creates a Classifier for the given markers. Longer markers
// are tried first so "###" is never read as "#".
func NewClassifier(m dialect.Markers) *Classifier {
	c := &Classifier{
		prefixes: m.MarkerPrefixes(),
		kinds: map[string]Marker{
			m.DocAndConsole: MarkerDocAndConsole,
			m.DocOnly:       MarkerDocOnly,
			m.Silent:        MarkerSilent,
		},
	}
	delete(c.kinds, "")
	return c
}

// Classify returns the marker of a line. Console output is never tagged.
func (c *Classifier) Classify(line Line) Marker {
	if !line.Prompted() {
		return MarkerNone
	}
	if _, m, ok := c.match(line.Text); ok {
		return m
	}
	return MarkerNone
}

// Strip removes the marker prefix and at most one following space.
func (c *Classifier) Strip(text string) string {
	p, _, ok := c.match(text)
	if !ok {
		return text
	}
	text = text[len(p):]
	return strings.TrimPrefix(text, " ")
}

func (c *Classifier) match(text string) (string, Marker, bool) {
	for _, p := range c.prefixes {
		if strings.HasPrefix(text, p) {
			return p, c.kinds[p], true
		}
	}
	return "", MarkerNone, false
}

// Annotation is the annotated transcript body.
type Annotation struct {
	Lines []Line

	// Echo holds the prose of doc-and-console lines, for live status output.
	Echo []string

	// Spans counts opened documentation spans; Closed counts separators
	// emitted when a span ended.
	Spans  int
	Closed int
}

// Annotator turns marked comment lines into prose. It has a single piece of
// state: whether a documentation span is open.
type Annotator struct {
	dialect    *dialect.Dialect
	classifier *Classifier

	inSpan bool
	result *Annotation
}

// NewAnnotator creates an Annotator using the dialect's markers.
func NewAnnotator(d *dialect.Dialect) *Annotator {
	a := &Annotator{
		dialect:    d,
		classifier: NewClassifier(d.Markers),
	}
	a.Reset()
	return a
}

// Process consumes one transcript line.
func (a *Annotator) Process(line Line) {
	switch a.classifier.Classify(line) {
	case MarkerDocAndConsole:
		if !a.inSpan {
			a.emit(Line{})
			a.inSpan = true
			a.result.Spans++
		}
		text := a.classifier.Strip(line.Text)
		a.emit(Line{Text: text, Doc: true})
		a.result.Echo = append(a.result.Echo, text)

	case MarkerDocOnly:
		a.emit(Line{Text: a.classifier.Strip(line.Text), Doc: true})

	case MarkerSilent:
		// dropped

	default:
		if line.Prompted() && a.inSpan {
			a.closeSpan()
			if line.Prompt == PromptContinuation && line.Bare() {
				return
			}
			if line.Prompt == PromptContinuation {
				line.Prompt = PromptPrimary
			}
		}
		a.emit(line)
	}
}

// Finalize closes any open span and returns the annotation.
func (a *Annotator) Finalize() *Annotation {
	if a.inSpan {
		a.closeSpan()
	}
	return a.result
}

// Reset clears state for a new run.
func (a *Annotator) Reset() {
	a.inSpan = false
	a.result = &Annotation{}
}

func (a *Annotator) closeSpan() {
	a.inSpan = false
	a.result.Closed++
	a.emit(Line{})
}

func (a *Annotator) emit(line Line) {
	a.result.Lines = append(a.result.Lines, line)
}

// Annotate runs a fresh Annotator over lines.
func Annotate(lines []Line, d *dialect.Dialect) *Annotation {
	a := NewAnnotator(d)
	for _, l := range lines {
		a.Process(l)
	}
	return a.Finalize()
}
