package convert

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cart0113/mod2doctest/pkg/config"
	"github.com/cart0113/mod2doctest/pkg/interp"
)

// SessionOptions select how the interpreter output is obtained.
type SessionOptions struct {
	// Replay reads previously captured output instead of running anything.
	Replay string

	// Record saves the captured output to this path.
	Record string

	// Dir is the working directory of the interpreter.
	Dir string
}

// NewSession builds the interpreter session described by cfg and opts.
func NewSession(cfg *config.Config, opts SessionOptions, logger *zap.Logger) (interp.Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Replay != "" {
		logger.Debug("replaying recorded output", zap.String("path", opts.Replay))
		return interp.NewRecordedSession(opts.Replay), nil
	}

	command, err := interp.FindInterpreter(cfg.Interpreter.Command)
	if err != nil {
		return nil, fmt.Errorf("locating %q: %w", cfg.Interpreter.Command, err)
	}

	var session interp.Session = interp.NewProcessSession(command,
		interp.WithArgs(cfg.Interpreter.Args...),
		interp.WithEnv(cfg.Interpreter.Env...),
		interp.WithDir(opts.Dir),
		interp.WithTimeout(cfg.Interpreter.Timeout()),
		interp.WithLogger(logger))

	if opts.Record != "" {
		session = interp.NewRecorder(session, opts.Record)
	}
	return session, nil
}
