package config

import (
	"os"
	"strings"

	"github.com/cart0113/mod2doctest/pkg/dialect"
)

// Default values for configuration.
const (
	DefaultDialect               = "python"
	DefaultInterpreter           = "python3"
	DefaultTimeoutSeconds        = 60
	DefaultWebhookTimeoutSeconds = 10
	MaxWebhookRetries            = 5
	DefaultTabWidth              = 4
	DefaultSuffix                = "_doctest"
	DefaultLogLevel              = "warn"
	DefaultLogFormat             = "console"
)

// DefaultInterpreterArgs start the interpreter interactively with
// unbuffered output so stdout and stderr interleave in order.
var DefaultInterpreterArgs = []string{"-i", "-u"}

// Environment variable names.
const (
	EnvPython   = "MOD2DOCTEST_PYTHON"
	EnvLogLevel = "MOD2DOCTEST_LOG_LEVEL"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	python := dialect.Python()
	return &Config{
		EllipseMemoryIDs:        true,
		EllipseFilesystemPaths:  true,
		EllipseTracebacks:       true,
		CollapseBlankPromptRuns: true,
		EmitTitleBlock:          true,
		EmitSelfTestTrailer:     true,
		StripMainGuardBlocks:    true,
		Dialect:                 DefaultDialect,
		Markers:                 python.Markers,
		TabWidth:                DefaultTabWidth,
		Interpreter: InterpreterConfig{
			Command:        DefaultInterpreter,
			Args:           append([]string(nil), DefaultInterpreterArgs...),
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Sink: SinkConfig{
			Confirm: true,
			Lock:    true,
			Suffix:  DefaultSuffix,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if python := strings.TrimSpace(os.Getenv(EnvPython)); python != "" {
		c.Interpreter.Command = python
	}
	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		c.Logging.Level = level
	}
}
