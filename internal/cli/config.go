package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Load defaults, the config file and the environment, then print the
merged configuration. Secrets are masked.

Examples:
  voicecalc config
  voicecalc --config voicecalc.yaml --format json config`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(rootOpts, cmd)
		},
	}
}

func runConfig(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		return formatter.Success(cfg.Redacted())
	}

	out, err := cfg.YAML()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to render config", err)
	}
	return formatter.Success(strings.TrimRight(string(out), "\n"))
}
