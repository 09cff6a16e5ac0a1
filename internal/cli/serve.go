package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/voicecalc/internal/calc"
	"github.com/roach88/voicecalc/internal/server"
	"github.com/roach88/voicecalc/internal/telemetry"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string

	// ready is called with the server once it is built (for testing).
	ready func(*server.Server)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the voicecalc HTTP server.

The server exposes the calculator, history and text-to-speech APIs and
serves the web UI. It stops gracefully on SIGINT or SIGTERM.

Example:
  voicecalc serve
  voicecalc serve --addr :8080 --config voicecalc.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
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
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", zap.Stringer("signal", sig))
			cancel()
		case <-ctx.Done():
		}
	}()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTel.Endpoint, cfg.OTel.ServiceName, Version)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up tracing", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("error flushing traces", zap.Error(err))
		}
	}()

	logger.Info("opening history", zap.String("path", cfg.DB.Path), zap.String("driver", cfg.DB.Driver))
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	norm, watcher, err := newNormalizer(cfg, logger)
	if err != nil {
		return err
	}

	deps := server.Deps{
		Processor: calc.NewProcessor(norm, nil),
		History:   st,
		Logger:    logger,
	}

	synth, err := opts.newSynthesizer(ctx, cfg)
	if err != nil {
		return err
	}
	if synth != nil {
		cache, err := newCache(cfg, synth, logger)
		if err != nil {
			return err
		}
		deps.Speaker = cache
	} else {
		logger.Info("text-to-speech disabled")
	}

	srv, err := server.New(server.Config{
		Addr:      cfg.Addr,
		StaticDir: cfg.Static.Dir,
		TTSLang:   cfg.TTS.Lang,
		TTSSlow:   cfg.TTS.Slow,
	}, deps)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create server", err)
	}
	if opts.ready != nil {
		opts.ready(srv)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
