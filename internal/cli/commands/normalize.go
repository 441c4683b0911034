package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cart0113/mod2doctest/pkg/config"
	"github.com/cart0113/mod2doctest/pkg/normalize"
	"github.com/cart0113/mod2doctest/pkg/source"
)

// NormalizeOptions holds command-line options for the normalize command.
type NormalizeOptions struct {
	ConfigPath    string
	KeepMainGuard bool
}

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand() *cobra.Command {
	opts := &NormalizeOptions{}

	cmd := &cobra.Command{
		Use:   "normalize <source>",
		Short: "Print the text that is fed to the interpreter",
		Long: `Print a source the way it is fed to the interactive interpreter: the
leading docstring removed, blank lines added where blocks end, entry-point
blocks dropped and literal prompt markers escaped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Configuration file (YAML or TOML)")
	cmd.Flags().BoolVar(&opts.KeepMainGuard, "keep-main-guard", false, "Keep entry-point blocks")

	return cmd
}

func runNormalize(cmd *cobra.Command, args []string, opts *NormalizeOptions) error {
	ctx := commandContext(cmd)

	cfg, err := loadConfig(ctx, opts.ConfigPath, func(cfg *config.Config) {
		if opts.KeepMainGuard {
			cfg.StripMainGuardBlocks = false
		}
	})
	if err != nil {
		return err
	}

	var f *source.File
	if args[0] == source.StdinName {
		f, err = source.Read(cmd.InOrStdin(), args[0])
	} else {
		f, err = source.Load(args[0])
	}
	if err != nil {
		return err
	}

	n := normalize.New(cfg.ResolvedDialect(),
		normalize.WithMainGuardStripping(cfg.StripMainGuardBlocks),
		normalize.WithTabWidth(cfg.TabWidth))

	text, err := n.Normalize(f.Text)
	if err != nil {
		return fmt.Errorf("normalizing %s: %w", args[0], err)
	}

	_, err = io.WriteString(cmd.OutOrStdout(), text)
	return err
}
