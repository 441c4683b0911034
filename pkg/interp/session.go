// Package interp runs normalized source through an interactive shell and
// captures its combined output.
package interp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single interpreter run.
const DefaultTimeout = 60 * time.Second

// Session feeds source to an interpreter and returns everything it printed.
// Stdout and stderr arrive interleaved in the order the shell wrote them.
type Session interface {
	Run(ctx context.Context, input string) (string, error)
}

// SessionFunc adapts a function to the Session interface.
type SessionFunc func(ctx context.Context, input string) (string, error)

// Run calls f.
func (f SessionFunc) Run(ctx context.Context, input string) (string, error) {
	return f(ctx, input)
}

// ProcessSession runs an interpreter subprocess with the source on stdin.
type ProcessSession struct {
	command string
	args    []string
	env     []string
	dir     string
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures a ProcessSession.
type Option func(*ProcessSession)

// WithArgs sets the interpreter arguments (default "-i").
func WithArgs(args ...string) Option {
	return func(s *ProcessSession) {
		s.args = args
	}
}

// WithEnv adds KEY=VALUE pairs to the interpreter environment.
func WithEnv(env ...string) Option {
	return func(s *ProcessSession) {
		s.env = append(s.env, env...)
	}
}

// WithDir sets the interpreter working directory.
func WithDir(dir string) Option {
	return func(s *ProcessSession) {
		s.dir = dir
	}
}

// WithTimeout bounds the run. Zero or negative disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *ProcessSession) {
		s.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *ProcessSession) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewProcessSession creates a session for the given interpreter command.
func NewProcessSession(command string, opts ...Option) *ProcessSession {
	s := &ProcessSession{
		command: command,
		args:    []string{"-i"},
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Command returns the interpreter command line.
func (s *ProcessSession) Command() string {
	return strings.TrimSpace(s.command + " " + strings.Join(s.args, " "))
}

// Run writes input to the interpreter in one piece and waits for it to exit.
// A non-zero exit status is not an error: the output still describes what
// happened. Failing to start, or running past the timeout, is.
func (s *ProcessSession) Run(ctx context.Context, input string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	// #nosec G204 - interpreter is chosen by the user via CLI or config
	cmd := exec.CommandContext(ctx, s.command, s.args...)
	cmd.Stdin = strings.NewReader(input)
	cmd.Dir = s.dir
	cmd.Env = append(os.Environ(), s.env...)
	cmd.WaitDelay = time.Second

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		return out.String(), fmt.Errorf("interpreter %s: %w", s.command, ctx.Err())
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		s.logger.Warn("interpreter exited with non-zero status",
			zap.String("command", s.Command()),
			zap.Int("exit_code", exitErr.ExitCode()))
	default:
		return "", fmt.Errorf("running interpreter %s: %w", s.command, err)
	}

	s.logger.Debug("interpreter finished",
		zap.String("command", s.Command()),
		zap.Int("input_bytes", len(input)),
		zap.Int("output_bytes", out.Len()),
		zap.Duration("elapsed", elapsed))

	return out.String(), nil
}
