package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cart0113/mod2doctest/pkg/config"
	"github.com/cart0113/mod2doctest/pkg/interp"
	"github.com/cart0113/mod2doctest/pkg/sanitize"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a mod2doctest configuration file without converting anything.

Checks:
  - YAML or TOML syntax and unknown keys
  - Dialect and documentation markers
  - Sanitize rule pattern validity
  - Webhook URLs and triggers
  - Interpreter availability (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	d := cfg.ResolvedDialect()
	rules := sanitize.New(cfg.SanitizeOptions(), cfg.ExtraRules()...).Rules()
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}

	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Dialect:     %s (%q / %q)\n", d.Name, d.Primary, d.Continuation)
	fmt.Fprintf(out, "  Markers:     %s doc+console, %s doc only, %s silent\n",
		d.Markers.DocAndConsole, d.Markers.DocOnly, d.Markers.Silent)
	fmt.Fprintf(out, "  Interpreter: %s %s (timeout %s)\n",
		cfg.Interpreter.Command, strings.Join(cfg.Interpreter.Args, " "), cfg.Interpreter.Timeout())
	fmt.Fprintf(out, "  Sanitize:    %s\n", strings.Join(names, ", "))
	fmt.Fprintf(out, "  Webhooks:    %d\n", len(cfg.Webhooks))

	for i, wh := range cfg.Webhooks {
		fmt.Fprintf(out, "  %d. [%s] %s\n", i+1, wh.Trigger, wh.DisplayName())
	}

	// Interpreter lookup is a warning only: replayed runs never start it.
	if path, err := interp.FindInterpreter(cfg.Interpreter.Command); err != nil {
		fmt.Fprintf(out, "\nWarning: interpreter %q not found\n", cfg.Interpreter.Command)
	} else {
		fmt.Fprintf(out, "\nInterpreter found: %s\n", path)
	}

	return nil
}
