package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cart0113/mod2doctest/pkg/config"
	"github.com/cart0113/mod2doctest/pkg/output"
	"github.com/cart0113/mod2doctest/pkg/sanitize"
	"github.com/cart0113/mod2doctest/pkg/source"
)

// SanitizeOptions holds command-line options for the sanitize command.
type SanitizeOptions struct {
	ConfigPath   string
	NoMemoryIDs  bool
	NoPaths      bool
	NoTracebacks bool
	List         bool
}

// NewSanitizeCommand creates the sanitize command.
func NewSanitizeCommand() *cobra.Command {
	opts := &SanitizeOptions{}

	cmd := &cobra.Command{
		Use:   "sanitize [file]",
		Short: "Apply output sanitization rules to text",
		Long: `Apply the sanitization rules used for interpreter output to a file or to
standard input and print the result.

Built-in rules replace object memory addresses, absolute paths and stack
trace frames with ellipses so that output compares equal across machines.
Custom rules come from sanitize_rules in the configuration file.

Example:
  python3 script.py 2>&1 | mod2doctest sanitize
  mod2doctest sanitize --no-paths captured.txt
  mod2doctest sanitize --list -c mod2doctest.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSanitize(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Configuration file (YAML or TOML)")
	cmd.Flags().BoolVar(&opts.NoMemoryIDs, "no-memory-ids", false, "Keep object memory addresses")
	cmd.Flags().BoolVar(&opts.NoPaths, "no-paths", false, "Keep filesystem paths")
	cmd.Flags().BoolVar(&opts.NoTracebacks, "no-tracebacks", false, "Keep stack trace frames")
	cmd.Flags().BoolVar(&opts.List, "list", false, "List the active rules instead of sanitizing")

	return cmd
}

func runSanitize(cmd *cobra.Command, args []string, opts *SanitizeOptions) error {
	ctx := commandContext(cmd)

	cfg, err := loadConfig(ctx, opts.ConfigPath, func(cfg *config.Config) {
		if opts.NoMemoryIDs {
			cfg.EllipseMemoryIDs = false
		}
		if opts.NoPaths {
			cfg.EllipseFilesystemPaths = false
		}
		if opts.NoTracebacks {
			cfg.EllipseTracebacks = false
		}
	})
	if err != nil {
		return err
	}

	s := sanitize.New(cfg.SanitizeOptions(), cfg.ExtraRules()...)
	out := cmd.OutOrStdout()

	if opts.List {
		return listRules(out, s.Rules())
	}

	path := source.StdinName
	if len(args) == 1 {
		path = args[0]
	}

	var f *source.File
	if path == source.StdinName {
		f, err = source.Read(cmd.InOrStdin(), path)
	} else {
		f, err = source.Load(path)
	}
	if err != nil {
		return err
	}

	_, err = io.WriteString(out, s.Document(f.Text))
	return err
}

func listRules(w io.Writer, rules []sanitize.Rule) error {
	rows := make([][]string, len(rules))
	for i, r := range rules {
		rows[i] = []string{r.Name, r.Scope.String(), r.Pattern.String(), r.Replacement}
	}
	_, err := fmt.Fprintln(w, output.RenderTable(
		[]string{"Name", "Scope", "Pattern", "Replacement"},
		rows,
		[]output.Align{output.AlignLeft, output.AlignLeft, output.AlignLeft, output.AlignLeft},
	))
	return err
}
