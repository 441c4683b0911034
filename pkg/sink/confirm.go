package sink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// ErrNotInteractive is returned when confirmation is needed but there is no
// terminal to ask on.
var ErrNotInteractive = errors.New("confirmation required but stdin is not a terminal (use --yes)")

// Confirmer asks the user whether to go ahead with an overwrite.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// AlwaysYes confirms without asking.
type AlwaysYes struct{}

// Confirm returns true.
func (AlwaysYes) Confirm(string) (bool, error) { return true, nil }

// PromptConfirmer asks on a reader/writer pair, answering no on empty input
// or EOF.
type PromptConfirmer struct {
	in          io.Reader
	out         io.Writer
	interactive bool
}

// NewPromptConfirmer creates a confirmer reading answers from in.
func NewPromptConfirmer(in io.Reader, out io.Writer, interactive bool) *PromptConfirmer {
	return &PromptConfirmer{in: in, out: out, interactive: interactive}
}

// NewTerminalConfirmer asks on stdin/stderr when stdin is a terminal.
func NewTerminalConfirmer() *PromptConfirmer {
	return NewPromptConfirmer(os.Stdin, os.Stderr, IsTerminal(os.Stdin))
}

// Confirm prints prompt followed by [y/N] and reads one line.
func (c *PromptConfirmer) Confirm(prompt string) (bool, error) {
	if !c.interactive {
		return false, ErrNotInteractive
	}
	if _, err := fmt.Fprintf(c.out, "%s [y/N]: ", prompt); err != nil {
		return false, err
	}

	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
