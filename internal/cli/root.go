// Package cli provides the command-line interface for mod2doctest.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cart0113/mod2doctest/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mod2doctest",
		Short: "Turn a module and its interpreter session into a doctest",
		Long: `mod2doctest runs a source file through an interactive interpreter and
writes the session as a doctest transcript: every statement behind its
prompt, followed by the output it produced.

Marked comments become documentation prose, object addresses, paths and
stack frames are replaced by ellipses, and the result can be checked back
against the interpreter with doctest.

Configuration is read from a YAML or TOML file given with --config.
MOD2DOCTEST_PYTHON selects the interpreter and MOD2DOCTEST_LOG_LEVEL the
log level.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add subcommands
	rootCmd.AddCommand(commands.NewConvertCommand())
	rootCmd.AddCommand(commands.NewTranscriptCommand())
	rootCmd.AddCommand(commands.NewNormalizeCommand())
	rootCmd.AddCommand(commands.NewSanitizeCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
