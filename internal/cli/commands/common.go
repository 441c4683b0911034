package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cart0113/mod2doctest/internal/logging"
	"github.com/cart0113/mod2doctest/pkg/config"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

const (
	ansiReset = "\x1b[0m"
	ansiCyan  = "\x1b[36m"
)

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadConfig loads the configuration file, or the defaults when path is
// empty, and applies mutate before validating again.
func loadConfig(ctx context.Context, path string, mutate func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if mutate == nil {
		return cfg, nil
	}

	mutate(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the run logger. A non-empty level overrides the config.
func newLogger(cfg *config.Config, level string) (*zap.Logger, error) {
	opts := logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if level != "" {
		opts.Level = level
	}
	return logging.New(opts)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// echoProse prints documentation prose as the conversion runs.
func echoProse(w io.Writer, lines []string, colorize bool) {
	for _, line := range lines {
		if colorize && strings.TrimSpace(line) != "" {
			line = ansiCyan + line + ansiReset
		}
		_, _ = fmt.Fprintln(w, line)
	}
}
