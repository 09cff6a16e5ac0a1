package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/voicecalc/internal/calc"
	"github.com/roach88/voicecalc/internal/mcptools"
)

// NewMCPCommand creates the mcp command.
func NewMCPCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve calculator tools over MCP on stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout.

The server exposes the calculate, voice_process and history tools backed
by the configured history database. Logs are written to stderr.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(rootOpts, cmd)
		},
	}
}

func runMCP(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger, err := opts.newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	norm, watcher, err := newNormalizer(cfg, logger)
	if err != nil {
		return err
	}
	if watcher != nil {
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Warn("phrase watcher stopped", zap.Error(err))
			}
		}()
	}

	server := mcptools.NewServer(Version, calc.NewProcessor(norm, nil), st, logger)
	logger.Info("mcp server starting", zap.String("db", cfg.DB.Path))
	if err := mcptools.Run(ctx, server); err != nil {
		return WrapExitError(ExitFailure, "mcp server error", err)
	}
	return nil
}
