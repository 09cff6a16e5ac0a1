package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/voicecalc/internal/config"
	"github.com/roach88/voicecalc/internal/normalize"
	"github.com/roach88/voicecalc/internal/speech"
	"github.com/roach88/voicecalc/internal/store"
	"github.com/roach88/voicecalc/internal/telemetry"
)

func (opts *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func (opts *RootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

func (opts *RootOptions) newLogger(cfg config.Config) (*zap.Logger, error) {
	logger, err := telemetry.NewLogger(opts.Verbose || cfg.Debug, cfg.Log.Format == "json")
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create logger", err)
	}
	return logger, nil
}

func openStore(cfg config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.DB.Path,
		store.WithDriver(cfg.DB.Driver),
		store.WithMaxEntries(cfg.History.MaxEntries),
	)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open history", err)
	}
	return st, nil
}

func closeStore(st *store.Store, logger *zap.Logger) {
	if err := st.Close(); err != nil {
		logger.Error("error closing history", zap.Error(err))
	}
}

// newSynthesizer returns the configured TTS backend, or nil when the
// provider is "none".
func (opts *RootOptions) newSynthesizer(ctx context.Context, cfg config.Config) (speech.Synthesizer, error) {
	if opts.Synthesizer != nil {
		return opts.Synthesizer, nil
	}

	switch cfg.TTS.Provider {
	case config.ProviderGoogle:
		return speech.NewGoogleTranslate(speech.WithBaseURL(cfg.TTS.GoogleURL)), nil
	case config.ProviderGemini:
		g, err := speech.NewGemini(ctx, cfg.TTS.GeminiAPIKey, cfg.TTS.GeminiModel, cfg.TTS.GeminiVoice)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create gemini client", err)
		}
		return g, nil
	case config.ProviderNone:
		return nil, nil
	default:
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown tts provider %q", cfg.TTS.Provider))
	}
}

func newCache(cfg config.Config, synth speech.Synthesizer, logger *zap.Logger) (*speech.Cache, error) {
	cache, err := speech.NewCache(cfg.Audio.Dir, synth,
		speech.WithLimits(cfg.Audio.MaxFiles, cfg.Audio.CleanupThreshold),
		speech.WithLogger(logger),
	)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create audio cache", err)
	}
	return cache, nil
}

// newNormalizer builds the transcript normalizer. When a phrase file is
// configured the returned Watcher keeps it current; it is nil otherwise.
func newNormalizer(cfg config.Config, logger *zap.Logger) (*normalize.Normalizer, *normalize.Watcher, error) {
	n := normalize.New(nil)
	if cfg.Phrases.File == "" {
		return n, nil, nil
	}
	w, err := normalize.NewWatcher(cfg.Phrases.File, n, logger)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load phrase file", err)
	}
	return n, w, nil
}

// loadPhrases applies a phrase file once without watching it.
func loadPhrases(cfg config.Config) (*normalize.Normalizer, error) {
	if cfg.Phrases.File == "" {
		return normalize.New(nil), nil
	}
	d, err := normalize.LoadDictionaryFile(cfg.Phrases.File)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load phrase file", err)
	}
	return normalize.New(d), nil
}

// quietLogger is used by one-shot commands, which only log under --verbose.
func (opts *RootOptions) quietLogger(cfg config.Config, w io.Writer) *zap.Logger {
	if !opts.Verbose {
		return zap.NewNop()
	}
	logger, err := opts.newLogger(cfg)
	if err != nil {
		fmt.Fprintf(w, "warning: %v\n", err)
		return zap.NewNop()
	}
	return logger
}
