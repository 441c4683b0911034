// Package sanitize rewrites volatile fragments of interpreter output into
// ellipsis placeholders so that transcripts are reproducible across runs and
// machines.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
)

// Scope says where in the pipeline a rule is applied.
type Scope int

const (
	// ScopeLine rules see one output line at a time.
	ScopeLine Scope = iota
	// ScopeDocument rules see a whole multi-line block.
	ScopeDocument
)

// String returns the config spelling of the scope.
func (s Scope) String() string {
	if s == ScopeDocument {
		return "document"
	}
	return "line"
}

// ParseScope parses "line" or "document".
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "line":
		return ScopeLine, nil
	case "document", "block":
		return ScopeDocument, nil
	default:
		return ScopeLine, fmt.Errorf("unknown scope %q (expected line or document)", s)
	}
}

// Rule is a named pattern to replacement rewrite.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
	Scope       Scope
}

// Apply rewrites every match of the rule in s.
func (r Rule) Apply(s string) string {
	return r.Pattern.ReplaceAllString(s, r.Replacement)
}

// Built-in rule names.
const (
	RuleMemoryIDs   = "memory-ids"
	RulePaths       = "paths"
	RuleWindowsPath = "windows-paths"
	RuleTracebacks  = "tracebacks"
)

var (
	memoryIDPattern    = regexp.MustCompile(`<(?:\w+\.)*([^<>]*? at 0x)[0-9a-fA-F]+>`)
	unixPathPattern    = regexp.MustCompile(`(^|[^\w./\\])(?:/[\w.\-+@~]+)+(/[\w.\-+@~]+)`)
	windowsPathPattern = regexp.MustCompile(`(^|[^\w])[A-Za-z]:(?:\\+[\w.\-]+)+(\\+[\w.\-]+)`)
	tracebackPattern   = regexp.MustCompile(`(?m)^(Traceback \(most recent call last\):)(?:\n[ \t]+.*)*(\n\w+.*)`)
)

// MemoryIDRule collapses the hex address of an object identity rendering.
func MemoryIDRule() Rule {
	return Rule{Name: RuleMemoryIDs, Pattern: memoryIDPattern, Replacement: "<...${1}...>", Scope: ScopeLine}
}

// PathRule replaces a /-rooted path with an ellipsis and its last segment.
func PathRule() Rule {
	return Rule{Name: RulePaths, Pattern: unixPathPattern, Replacement: "${1}...${2}", Scope: ScopeLine}
}

// WindowsPathRule is PathRule for drive-letter rooted paths.
func WindowsPathRule() Rule {
	return Rule{Name: RuleWindowsPath, Pattern: windowsPathPattern, Replacement: "${1}...${2}", Scope: ScopeLine}
}

// TracebackRule replaces the indented frames of a stack trace with a single
// ellipsis line, keeping the header and summary lines.
func TracebackRule() Rule {
	return Rule{Name: RuleTracebacks, Pattern: tracebackPattern, Replacement: "${1}\n    ...${2}", Scope: ScopeDocument}
}

// Options selects the built-in rules.
type Options struct {
	MemoryIDs  bool
	Paths      bool
	Tracebacks bool
}

// DefaultOptions enables every built-in rule.
func DefaultOptions() Options {
	return Options{MemoryIDs: true, Paths: true, Tracebacks: true}
}

// Sanitizer applies an ordered list of rules. It is stateless and safe for
// concurrent use.
type Sanitizer struct {
	rules []Rule
}

// New builds a Sanitizer from the built-in rule toggles followed by any
// extra rules, in order.
func New(opts Options, extra ...Rule) *Sanitizer {
	s := &Sanitizer{}
	if opts.MemoryIDs {
		s.rules = append(s.rules, MemoryIDRule())
	}
	if opts.Paths {
		s.rules = append(s.rules, PathRule(), WindowsPathRule())
	}
	if opts.Tracebacks {
		s.rules = append(s.rules, TracebackRule())
	}
	s.rules = append(s.rules, extra...)
	return s
}

// Rules returns the active rules in application order.
func (s *Sanitizer) Rules() []Rule {
	return append([]Rule(nil), s.rules...)
}

// Line applies every line-scoped rule to a single line.
func (s *Sanitizer) Line(line string) string {
	for _, r := range s.rules {
		if r.Scope == ScopeLine {
			line = r.Apply(line)
		}
	}
	return line
}

// Block applies every document-scoped rule to a multi-line block.
func (s *Sanitizer) Block(text string) string {
	for _, r := range s.rules {
		if r.Scope == ScopeDocument {
			text = r.Apply(text)
		}
	}
	return text
}

// Document sanitizes finished text: line rules first, then block rules, so
// that output is byte-for-byte deterministic.
func (s *Sanitizer) Document(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = s.Line(line)
	}
	return s.Block(strings.Join(lines, "\n"))
}

// HasBlockRules reports whether any document-scoped rule is active.
func (s *Sanitizer) HasBlockRules() bool {
	for _, r := range s.rules {
		if r.Scope == ScopeDocument {
			return true
		}
	}
	return false
}

// CompileRule builds a custom rule from config values.
func CompileRule(name, pattern, replacement, scope string) (Rule, error) {
	if name == "" {
		return Rule{}, fmt.Errorf("rule name is required")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %s: invalid pattern: %w", name, err)
	}
	sc, err := ParseScope(scope)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %s: %w", name, err)
	}
	return Rule{Name: name, Pattern: re, Replacement: replacement, Scope: sc}, nil
}
