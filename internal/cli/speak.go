package cli

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/voicecalc/internal/speech"
)

// SpeakOptions holds flags for the speak command.
type SpeakOptions struct {
	*RootOptions
	Lang  string
	Slow  bool
	Split bool
}

// SpeakResult is one generated clip.
type SpeakResult struct {
	Text string `json:"text"`
	Path string `json:"path"`
}

// NewSpeakCommand creates the speak command.
func NewSpeakCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SpeakOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "speak <text...>",
		Short: "Generate speech audio into the cache",
		Long: `Synthesize text with the configured TTS provider and print the path
of the generated file.

With --split every argument becomes its own clip and clips are generated
concurrently.

Examples:
  voicecalc speak "The result is 4"
  voicecalc speak --lang fr --slow bonjour
  voicecalc speak --split one two three`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpeak(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Lang, "lang", "", "language code (defaults to config)")
	cmd.Flags().BoolVar(&opts.Slow, "slow", false, "slow speech")
	cmd.Flags().BoolVar(&opts.Split, "split", false, "generate one clip per argument")

	return cmd
}

func runSpeak(opts *SpeakOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := opts.quietLogger(cfg, formatter.GetErrWriter())

	lang := opts.Lang
	if lang == "" {
		lang = cfg.TTS.Lang
	}
	slow := opts.Slow || cfg.TTS.Slow

	synth, err := opts.newSynthesizer(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if synth == nil {
		return NewExitError(ExitCommandError, "text-to-speech is disabled")
	}
	cache, err := newCache(cfg, synth, logger)
	if err != nil {
		return err
	}

	var results []SpeakResult
	if opts.Split {
		files := cache.Batch(cmd.Context(), args, lang, slow)
		for _, text := range args {
			name := files[text]
			if name == "" {
				_ = formatter.Error(CodeTTS, "Text-to-speech generation failed", text)
				return NewExitError(ExitFailure, "text-to-speech generation failed for "+text)
			}
			results = append(results, SpeakResult{Text: text, Path: filepath.Join(cache.Dir(), name)})
		}
	} else {
		text := strings.Join(args, " ")
		name, err := cache.Generate(cmd.Context(), text, lang, slow)
		if err != nil {
			if errors.Is(err, speech.ErrEmptyText) {
				return NewExitError(ExitCommandError, "no text provided")
			}
			_ = formatter.Error(CodeTTS, "Text-to-speech generation failed", err.Error())
			return WrapExitError(ExitFailure, "text-to-speech generation failed", err)
		}
		results = append(results, SpeakResult{Text: text, Path: filepath.Join(cache.Dir(), name)})
	}

	if formatter.Format == "json" {
		return formatter.Success(results)
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, r.Path)
	}
	return formatter.Success(lines)
}
