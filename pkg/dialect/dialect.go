// Package dialect describes the interactive shell a transcript is produced
// by: its prompt markers, comment syntax, block-continuation keywords and the
// boilerplate written around a finished document.
package dialect

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Markers are the comment prefixes that turn source comments into
// documentation prose.
type Markers struct {
	// DocAndConsole opens a documentation span and is echoed to the console.
	DocAndConsole string `yaml:"doc_and_console" toml:"doc_and_console"`

	// DocOnly contributes prose without opening a span.
	DocOnly string `yaml:"doc_only" toml:"doc_only"`

	// Silent lines are dropped from the document entirely.
	Silent string `yaml:"silent" toml:"silent"`
}

// Dialect is the set of syntax facts the pipeline needs about one shell.
type Dialect struct {
	Name string

	// Primary and Continuation are the prompt markers the shell echoes in
	// front of each input line. Both must have the same width.
	Primary      string
	Continuation string

	// Escape is inserted in front of literal prompt markers found in source.
	Escape string

	// CommentPrefix starts a full-line comment.
	CommentPrefix string

	// IndentSensitive enables blank-line repair on dedent. Brace-delimited
	// languages leave it off.
	IndentSensitive bool

	// ContinuationKeywords stack onto the preceding block instead of
	// closing it (else, elif, ...).
	ContinuationKeywords []string

	// StringDelimiters open and close multi-line string literals whose
	// content is passed through untouched.
	StringDelimiters []string

	// DocBlockPrefixes may precede a leading documentation block (r""").
	DocBlockPrefixes []string

	// MainGuardPattern matches the header of a module entry-point block.
	MainGuardPattern string

	// Terminator is a statement that never raises, appended so the shell
	// always has a final statement to execute.
	Terminator string

	// Quote wraps the finished document; QuoteEscape replaces collisions.
	Quote       string
	QuoteEscape string

	// SelfTestTrailer is appended after the closing quote when enabled.
	SelfTestTrailer string

	Markers Markers

	mainGuard *regexp.Regexp
	keywords  map[string]bool
}

const pythonTrailer = `if __name__ == '__main__':
    import doctest
    doctest.testmod(
        optionflags=doctest.ELLIPSIS |
        doctest.REPORT_ONLY_FIRST_FAILURE |
        doctest.NORMALIZE_WHITESPACE)`

// Python returns the dialect of the CPython interactive shell.
func Python() *Dialect {
	d := &Dialect{
		Name:                 "python",
		Primary:              ">>> ",
		Continuation:         "... ",
		Escape:               `\`,
		CommentPrefix:        "#",
		IndentSensitive:      true,
		ContinuationKeywords: []string{"else", "elif", "except", "finally"},
		StringDelimiters:     []string{`"""`, `'''`},
		DocBlockPrefixes:     []string{"r", "R", "u", "U"},
		MainGuardPattern:     `(?i)^if\s+__name__\s*==\s*['"]__main__['"]\s*:`,
		Terminator:           "pass",
		Quote:                `'''`,
		QuoteEscape:          `"""`,
		SelfTestTrailer:      pythonTrailer,
		Markers: Markers{
			DocAndConsole: "#>",
			DocOnly:       "#|",
			Silent:        "###",
		},
	}
	if err := d.Compile(); err != nil {
		panic(err)
	}
	return d
}

// Builtin returns all dialects shipped with the tool.
func Builtin() []*Dialect {
	return []*Dialect{Python()}
}

// Lookup returns the builtin dialect with the given name.
func Lookup(name string) (*Dialect, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "python"
	}
	for _, d := range Builtin() {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("unknown dialect %q", name)
}

// Compile validates the dialect and prepares its derived state. It must be
// called again after any field is changed.
func (d *Dialect) Compile() error {
	if d.Primary == "" || d.Continuation == "" {
		return fmt.Errorf("dialect %s: prompt markers are required", d.Name)
	}
	if len(d.Primary) != len(d.Continuation) {
		return fmt.Errorf("dialect %s: primary %q and continuation %q markers differ in width",
			d.Name, d.Primary, d.Continuation)
	}
	if d.CommentPrefix == "" {
		return fmt.Errorf("dialect %s: comment prefix is required", d.Name)
	}
	if d.Quote == "" {
		return fmt.Errorf("dialect %s: quote is required", d.Name)
	}

	d.mainGuard = nil
	if d.MainGuardPattern != "" {
		re, err := regexp.Compile(d.MainGuardPattern)
		if err != nil {
			return fmt.Errorf("dialect %s: invalid main guard pattern: %w", d.Name, err)
		}
		d.mainGuard = re
	}

	d.keywords = make(map[string]bool, len(d.ContinuationKeywords))
	for _, kw := range d.ContinuationKeywords {
		d.keywords[kw] = true
	}
	return nil
}

// Clone returns a deep copy that can be customised and recompiled.
func (d *Dialect) Clone() *Dialect {
	c := *d
	c.ContinuationKeywords = append([]string(nil), d.ContinuationKeywords...)
	c.StringDelimiters = append([]string(nil), d.StringDelimiters...)
	c.DocBlockPrefixes = append([]string(nil), d.DocBlockPrefixes...)
	c.keywords = nil
	c.mainGuard = nil
	return &c
}

// MarkerWidth is the number of bytes a prompt marker occupies.
func (d *Dialect) MarkerWidth() int {
	return len(d.Primary)
}

// MainGuard returns the compiled entry-point header pattern, or nil.
func (d *Dialect) MainGuard() *regexp.Regexp {
	return d.mainGuard
}

// IsContinuation reports whether a whitespace-stripped source line starts
// with a block-continuation keyword. Lines without a first token never are.
func (d *Dialect) IsContinuation(stripped string) bool {
	fields := strings.Fields(stripped)
	if len(fields) == 0 {
		return false
	}
	token, _, _ := strings.Cut(fields[0], ":")
	return d.keywords[token]
}

// IsComment reports whether a whitespace-stripped line is a full comment.
func (d *Dialect) IsComment(stripped string) bool {
	return strings.HasPrefix(stripped, d.CommentPrefix)
}

// PromptKind returns which marker s starts with: 1 for primary, 2 for
// continuation, 0 for none.
func (d *Dialect) PromptKind(s string) int {
	switch {
	case strings.HasPrefix(s, d.Primary):
		return 1
	case strings.HasPrefix(s, d.Continuation):
		return 2
	default:
		return 0
	}
}

// IsBarePrompt reports whether s consists of a prompt marker and nothing else.
func (d *Dialect) IsBarePrompt(s string) bool {
	t := strings.TrimSpace(s)
	return t != "" && (t == strings.TrimSpace(d.Primary) || t == strings.TrimSpace(d.Continuation))
}

// MarkerPrefixes returns the configured documentation markers, longest
// first, so that a prefix of another marker never shadows it.
func (m Markers) MarkerPrefixes() []string {
	prefixes := make([]string, 0, 3)
	for _, p := range []string{m.DocAndConsole, m.DocOnly, m.Silent} {
		if p != "" {
			prefixes = append(prefixes, p)
		}
	}
	sort.SliceStable(prefixes, func(i, j int) bool {
		return len(prefixes[i]) > len(prefixes[j])
	})
	return prefixes
}

// Validate checks that markers are set and distinct.
func (m Markers) Validate() error {
	if m.DocAndConsole == "" || m.DocOnly == "" || m.Silent == "" {
		return fmt.Errorf("doc_and_console, doc_only and silent markers are required")
	}
	if m.DocAndConsole == m.DocOnly || m.DocAndConsole == m.Silent || m.DocOnly == m.Silent {
		return fmt.Errorf("markers must be distinct")
	}
	return nil
}
