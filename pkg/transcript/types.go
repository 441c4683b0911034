// Package transcript rebuilds a prompt-annotated session transcript from
// normalized source and raw shell output, and turns marked comments into
// documentation prose.
package transcript

import (
	"strings"

	"github.com/cart0113/mod2doctest/pkg/dialect"
)

// PromptKind tells which prompt marker, if any, a transcript line carries.
type PromptKind int

const (
	// PromptNone is console output or documentation prose.
	PromptNone PromptKind = iota
	// PromptPrimary is a statement echoed after the primary marker.
	PromptPrimary
	// PromptContinuation is a statement echoed after the continuation marker.
	PromptContinuation
)

// String returns a short name for the prompt kind.
func (k PromptKind) String() string {
	switch k {
	case PromptPrimary:
		return "primary"
	case PromptContinuation:
		return "continuation"
	default:
		return "none"
	}
}

// Line is one line of a transcript.
type Line struct {
	Prompt PromptKind
	Text   string

	// Doc marks prose produced from a documentation marker.
	Doc bool
}

// Prompted reports whether the line carries a prompt marker.
func (l Line) Prompted() bool {
	return l.Prompt != PromptNone
}

// Bare reports whether the line is a prompt marker with no content.
func (l Line) Bare() bool {
	return l.Prompted() && strings.TrimSpace(l.Text) == ""
}

// Render formats the line with its prompt marker.
func (l Line) Render(d *dialect.Dialect) string {
	var marker string
	switch l.Prompt {
	case PromptPrimary:
		marker = d.Primary
	case PromptContinuation:
		marker = d.Continuation
	default:
		return l.Text
	}
	return strings.TrimRight(marker+l.Text, " ")
}

// Render formats every line with its prompt marker.
func Render(lines []Line, d *dialect.Dialect) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Render(d)
	}
	return out
}

// SourceLine is one line of normalized source.
type SourceLine struct {
	Text    string
	Indent  int
	Blank   bool
	Comment bool
}

// Substantive reports whether the line is neither blank nor a full comment.
func (s SourceLine) Substantive() bool {
	return !s.Blank && !s.Comment
}

// ParseSourceLines splits normalized source into lines. A single trailing
// newline does not produce an extra line.
func ParseSourceLines(text string, d *dialect.Dialect) []SourceLine {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}

	raw := strings.Split(text, "\n")
	lines := make([]SourceLine, len(raw))
	for i, r := range raw {
		stripped := strings.TrimLeft(r, " ")
		lines[i] = SourceLine{
			Text:    r,
			Indent:  len(r) - len(stripped),
			Blank:   strings.TrimSpace(r) == "",
			Comment: stripped != "" && d.IsComment(stripped),
		}
	}
	return lines
}

// SourceQueue hands out source lines in order, each exactly once.
type SourceQueue struct {
	lines []SourceLine
	next  int
}

// NewSourceQueue creates a queue over lines.
func NewSourceQueue(lines []SourceLine) *SourceQueue {
	return &SourceQueue{lines: lines}
}

// Push appends a line to the end of the queue.
func (q *SourceQueue) Push(line SourceLine) {
	q.lines = append(q.lines, line)
}

// Pop removes and returns the next line. ok is false when the queue is empty.
func (q *SourceQueue) Pop() (line SourceLine, ok bool) {
	if q.next >= len(q.lines) {
		return SourceLine{}, false
	}
	line = q.lines[q.next]
	q.next++
	return line, true
}

// Len returns the number of lines not yet popped.
func (q *SourceQueue) Len() int {
	return len(q.lines) - q.next
}

// Consumed returns the number of lines popped so far.
func (q *SourceQueue) Consumed() int {
	return q.next
}
