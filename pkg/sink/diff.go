package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContextLines is the number of unchanged lines shown around a change.
const DefaultContextLines = 3

// Differ shows the difference between the existing destination and the
// document about to replace it.
type Differ interface {
	Diff(ctx context.Context, dest string, old, updated []byte) (string, error)
}

// UnifiedDiffer renders a unified diff in-process.
type UnifiedDiffer struct {
	Context int
}

// Diff returns the unified diff, or "" when the contents are equal.
func (u UnifiedDiffer) Diff(_ context.Context, dest string, old, updated []byte) (string, error) {
	n := u.Context
	if n <= 0 {
		n = DefaultContextLines
	}
	return UnifiedDiff("a/"+filepath.Base(dest), "b/"+filepath.Base(dest), string(old), string(updated), n), nil
}

// ExternalDiffer runs a user-configured difftool on the destination and a
// temporary file holding the new content. The tool's output is returned;
// its exit status is ignored since most tools exit non-zero on difference.
type ExternalDiffer struct {
	Command string
	Args    []string
}

// Diff runs the tool.
func (e ExternalDiffer) Diff(ctx context.Context, dest string, _ []byte, updated []byte) (string, error) {
	tmp, err := os.CreateTemp("", "mod2doctest-*"+filepath.Ext(dest))
	if err != nil {
		return "", fmt.Errorf("creating temp file for difftool: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(updated); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("writing temp file for difftool: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file for difftool: %w", err)
	}

	args := append(append([]string(nil), e.Args...), dest, tmp.Name())
	// #nosec G204 - difftool is chosen by the user via CLI or config
	cmd := exec.CommandContext(ctx, e.Command, args...)
	out, err := cmd.CombinedOutput()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return "", fmt.Errorf("running difftool %s: %w", e.Command, err)
	}
	return string(out), nil
}

type lineOp struct {
	kind byte // ' ', '-', '+'
	text string
}

// UnifiedDiff computes a line-level unified diff with the given context.
func UnifiedDiff(oldName, newName, old, updated string, contextLines int) string {
	if old == updated {
		return ""
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	a, b, lineArray := dmp.DiffLinesToChars(old, updated)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	ops := toLineOps(diffs)

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s\n", oldName, newName)

	for _, h := range hunkRanges(ops, contextLines) {
		oldStart, newStart := 1, 1
		for _, op := range ops[:h[0]] {
			if op.kind != '+' {
				oldStart++
			}
			if op.kind != '-' {
				newStart++
			}
		}
		oldCount, newCount := 0, 0
		for _, op := range ops[h[0]:h[1]] {
			if op.kind != '+' {
				oldCount++
			}
			if op.kind != '-' {
				newCount++
			}
		}
		if oldCount == 0 {
			oldStart--
		}
		if newCount == 0 {
			newStart--
		}

		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)
		for _, op := range ops[h[0]:h[1]] {
			sb.WriteByte(op.kind)
			sb.WriteString(op.text)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func toLineOps(diffs []diffmatchpatch.Diff) []lineOp {
	var ops []lineOp
	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		if d.Text == "" {
			continue
		}
		var kind byte
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			kind = '-'
		case diffmatchpatch.DiffInsert:
			kind = '+'
		default:
			kind = ' '
		}
		for _, line := range strings.Split(text, "\n") {
			ops = append(ops, lineOp{kind: kind, text: line})
		}
	}
	return ops
}

// hunkRanges returns [start, end) index pairs covering every change plus
// context, merging ranges that touch.
func hunkRanges(ops []lineOp, contextLines int) [][2]int {
	var ranges [][2]int
	for i, op := range ops {
		if op.kind == ' ' {
			continue
		}
		start := max(i-contextLines, 0)
		end := min(i+contextLines+1, len(ops))
		if n := len(ranges); n > 0 && start <= ranges[n-1][1] {
			ranges[n-1][1] = max(ranges[n-1][1], end)
			continue
		}
		ranges = append(ranges, [2]int{start, end})
	}
	return ranges
}
