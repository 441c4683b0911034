// Package normalize reshapes source text so that feeding it line by line to
// an interactive shell behaves the same as running it as a file.
package normalize

import (
	"errors"
	"strings"

	"github.com/cart0113/mod2doctest/pkg/dialect"
)

// ErrUnterminatedDocBlock is returned when a leading documentation block is
// opened but never closed.
var ErrUnterminatedDocBlock = errors.New("unterminated leading documentation block")

// DefaultTabWidth is the number of spaces a tab expands to.
const DefaultTabWidth = 4

// Normalizer runs the source preparation steps for one dialect.
type Normalizer struct {
	dialect        *dialect.Dialect
	stripMainGuard bool
	tabWidth       int
}

// Option configures the Normalizer.
type Option func(*Normalizer)

// WithMainGuardStripping toggles removal of top-level entry-point blocks.
func WithMainGuardStripping(enabled bool) Option {
	return func(n *Normalizer) {
		n.stripMainGuard = enabled
	}
}

// WithTabWidth sets the tab expansion width (default 4).
func WithTabWidth(width int) Option {
	return func(n *Normalizer) {
		if width > 0 {
			n.tabWidth = width
		}
	}
}

// New creates a Normalizer for the given dialect.
func New(d *dialect.Dialect, opts ...Option) *Normalizer {
	n := &Normalizer{
		dialect:        d,
		stripMainGuard: true,
		tabWidth:       DefaultTabWidth,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize returns the text to feed to the shell. Line endings and tabs are
// normalized before anything else because indentation is measured in spaces.
func (n *Normalizer) Normalize(src string) (string, error) {
	text := NormalizeWhitespace(src, n.tabWidth)

	text, err := StripDocBlock(text, n.dialect)
	if err != nil {
		return "", err
	}

	lines := RepairIndentation(strings.Split(text, "\n"), n.dialect)
	if n.stripMainGuard {
		lines = StripMainGuard(lines, n.dialect)
	}
	lines = EscapePrompts(lines, n.dialect)

	return finish(lines), nil
}

// NormalizeWhitespace converts CRLF and CR line endings to LF and expands
// tabs to a fixed run of spaces.
func NormalizeWhitespace(src string, tabWidth int) string {
	if tabWidth <= 0 {
		tabWidth = DefaultTabWidth
	}
	src = strings.ReplaceAll(src, "\r\n", "\n")
	src = strings.ReplaceAll(src, "\r", "\n")
	return strings.ReplaceAll(src, "\t", strings.Repeat(" ", tabWidth))
}

// StripDocBlock removes one delimited documentation block at the very start
// of the text, along with the blank lines following it.
func StripDocBlock(text string, d *dialect.Dialect) (string, error) {
	body := strings.TrimLeft(text, " \n")

	for _, p := range d.DocBlockPrefixes {
		if rest, ok := strings.CutPrefix(body, p); ok && startsWithAny(rest, d.StringDelimiters) {
			body = rest
			break
		}
	}

	for _, delim := range d.StringDelimiters {
		if !strings.HasPrefix(body, delim) {
			continue
		}
		end := strings.Index(body[len(delim):], delim)
		if end < 0 {
			return "", ErrUnterminatedDocBlock
		}
		rest := body[len(delim)+end+len(delim):]
		return trimLeadingBlankLines(rest), nil
	}
	return text, nil
}

// RepairIndentation makes dedents explicit. Blank and comment lines are held
// until the next statement and re-indented to its block so they never close
// a block early, and a blank line is inserted when a statement dedents with
// nothing in between. Lines starting with a continuation keyword stack onto
// the previous block. Multi-line string contents pass through untouched.
// Trailing blank lines are dropped, then a single blank line and the
// dialect terminator are appended.
func RepairIndentation(lines []string, d *dialect.Dialect) []string {
	out := make([]string, 0, len(lines)+4)
	var hold []string
	lastIndent := 0
	open := ""

	for _, line := range lines {
		if open != "" {
			out = append(out, line)
			open = scanStrings(line, open, d.StringDelimiters)
			continue
		}

		stripped := strings.TrimLeft(line, " ")
		if stripped == "" || d.IsComment(stripped) {
			hold = append(hold, strings.TrimRight(stripped, " "))
			continue
		}

		indent := len(line) - len(stripped)
		if !d.IsContinuation(stripped) {
			if d.IndentSensitive && len(hold) == 0 && indent < lastIndent {
				out = append(out, strings.Repeat(" ", indent))
			}
			lastIndent = indent
		}

		for _, h := range hold {
			out = append(out, strings.Repeat(" ", lastIndent)+h)
		}
		hold = hold[:0]

		out = append(out, strings.TrimRight(line, " "))
		open = scanStrings(stripped, "", d.StringDelimiters)
	}

	// Trailing blanks would double the separator before the terminator.
	for len(hold) > 0 && hold[len(hold)-1] == "" {
		hold = hold[:len(hold)-1]
	}
	out = append(out, hold...)
	if d.Terminator != "" {
		out = append(out, "", d.Terminator)
	}
	return out
}

// StripMainGuard removes every column-zero entry-point block and its
// indented body. Blank lines inside the body go with it.
func StripMainGuard(lines []string, d *dialect.Dialect) []string {
	re := d.MainGuard()
	if re == nil {
		return lines
	}

	out := make([]string, 0, len(lines))
	inGuard := false
	for _, line := range lines {
		if re.MatchString(line) {
			inGuard = true
			continue
		}
		if inGuard {
			if strings.TrimSpace(line) == "" || line[0] == ' ' {
				continue
			}
			inGuard = false
		}
		out = append(out, line)
	}
	return out
}

// EscapePrompts prefixes literal prompt markers in source with the dialect
// escape so the aligner never mistakes them for echoed prompts.
func EscapePrompts(lines []string, d *dialect.Dialect) []string {
	r := strings.NewReplacer(
		d.Primary, d.Escape+d.Primary,
		d.Continuation, d.Escape+d.Continuation,
	)
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = r.Replace(line)
	}
	return out
}

// scanStrings tracks multi-line string state across a line. It returns the
// delimiter still open at the end of the line, or "".
func scanStrings(line, open string, delims []string) string {
	for {
		if open != "" {
			i := strings.Index(line, open)
			if i < 0 {
				return open
			}
			line = line[i+len(open):]
			open = ""
			continue
		}

		at := -1
		for _, d := range delims {
			if i := strings.Index(line, d); i >= 0 && (at < 0 || i < at) {
				at, open = i, d
			}
		}
		if at < 0 {
			return ""
		}
		line = line[at+len(open):]
	}
}

func startsWithAny(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func trimLeadingBlankLines(s string) string {
	for {
		line, rest, found := strings.Cut(s, "\n")
		if strings.TrimSpace(line) != "" {
			return s
		}
		if !found {
			return ""
		}
		s = rest
	}
}

func finish(lines []string) string {
	text := strings.TrimRight(strings.Join(lines, "\n"), " \n")
	text = trimLeadingBlankLines(text)
	return text + "\n"
}
