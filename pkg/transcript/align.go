package transcript

import (
	"strings"

	"github.com/cart0113/mod2doctest/pkg/dialect"
)

// AlignResult is the outcome of one alignment pass.
type AlignResult struct {
	Lines []Line

	// Prompts counts markers matched to a source line.
	Prompts int

	// Underflows counts chunks that still held a marker after the source
	// queue ran dry. Non-zero means the transcript is truncated.
	Underflows int
}

// Aligner pairs echoed prompt markers with the source lines that caused them.
type Aligner struct {
	dialect *dialect.Dialect
}

// NewAligner creates an Aligner for the given dialect.
func NewAligner(d *dialect.Dialect) *Aligner {
	return &Aligner{dialect: d}
}

// Align walks output chunks in order. Every leading marker in a chunk pops
// the next source line; whatever follows the last marker is console output,
// even when it is empty.
// A shell that echoes several prompts with no output in between puts them
// all on one physical line.
func (a *Aligner) Align(queue *SourceQueue, chunks []string) *AlignResult {
	res := &AlignResult{Lines: make([]Line, 0, len(chunks))}
	width := a.dialect.MarkerWidth()

	for _, chunk := range chunks {
		rest := chunk
		for {
			kind := a.promptKind(rest)
			if kind == PromptNone {
				res.Lines = append(res.Lines, Line{Text: rest})
				break
			}

			src, ok := queue.Pop()
			if !ok {
				res.Lines = append(res.Lines, Line{})
				res.Underflows++
				break
			}
			res.Lines = append(res.Lines, Line{Prompt: kind, Text: src.Text})
			res.Prompts++
			rest = rest[width:]
		}
	}
	return res
}

func (a *Aligner) promptKind(s string) PromptKind {
	switch a.dialect.PromptKind(s) {
	case 1:
		return PromptPrimary
	case 2:
		return PromptContinuation
	default:
		return PromptNone
	}
}

// SplitOutput breaks raw shell output into chunks, normalizing line endings
// and expanding tabs. A trailing newline does not produce an empty chunk.
func SplitOutput(raw string, tabWidth int) []string {
	if tabWidth <= 0 {
		tabWidth = 4
	}
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "")
	raw = strings.ReplaceAll(raw, "\t", strings.Repeat(" ", tabWidth))
	raw = strings.TrimSuffix(raw, "\n")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}

// TrimTerminator drops the last prompted line whose text is the terminator
// statement and everything after it.
func TrimTerminator(lines []Line, terminator string) []Line {
	if terminator == "" {
		return lines
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i].Prompted() && lines[i].Text == terminator {
			return lines[:i]
		}
	}
	return lines
}
