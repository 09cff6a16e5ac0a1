package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/voicecalc/internal/calc"
	"github.com/roach88/voicecalc/internal/config"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Voice bool
	Save  bool
	Speak bool
}

// EvalResult is the JSON payload of a successful evaluation.
type EvalResult struct {
	Expression string   `json:"expression"`
	Result     string   `json:"result"`
	Steps      string   `json:"steps,omitempty"`
	ID         int64    `json:"id,omitempty"`
	Audio      []string `json:"audio,omitempty"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <expression...>",
		Short: "Evaluate an expression or spoken command",
		Long: `Evaluate a single expression and print the result.

By default the input is treated as typed arithmetic. With --voice it is
treated as a spoken transcript and normalized first ("5 divided by 2").

Examples:
  voicecalc eval "2 + 2"
  voicecalc eval --voice what is 5 squared
  voicecalc eval --save --format json "sqrt(16)"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, strings.Join(args, " "), cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Voice, "voice", false, "treat input as a spoken transcript")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "record the result in history")
	cmd.Flags().BoolVar(&opts.Speak, "speak", false, "read the calculation aloud into the audio cache")

	return cmd
}

func runEval(opts *EvalOptions, input string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := opts.quietLogger(cfg, formatter.GetErrWriter())

	norm, err := loadPhrases(cfg)
	if err != nil {
		return err
	}
	processor := calc.NewProcessor(norm, nil)

	var res EvalResult
	if opts.Voice {
		out := processor.Process(input)
		if !out.Success {
			return evalFailure(formatter, out.Code, *out.Error, out.Expression)
		}
		res = EvalResult{Expression: out.Expression, Result: *out.Result, Steps: *out.Steps}
	} else {
		value, err := processor.Evaluator().Calculate(input)
		if err != nil {
			var ce *calc.Error
			if errors.As(err, &ce) {
				return evalFailure(formatter, ce.Code, ce.Message, ce.Expression)
			}
			return WrapExitError(ExitFailure, "evaluation failed", err)
		}
		res = EvalResult{Expression: strings.TrimSpace(input), Result: value.String()}
	}
	formatter.VerboseLog("evaluated %q as %q", input, res.Expression)

	if opts.Save {
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore(st, logger)

		id, err := st.AddCalculation(cmd.Context(), res.Expression, res.Result, opts.Voice)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to record calculation", err)
		}
		res.ID = id
		formatter.VerboseLog("recorded calculation %d", id)
	}

	if opts.Speak {
		files, err := speakCalculation(opts.RootOptions, cmd, cfg, logger, res)
		if err != nil {
			return err
		}
		res.Audio = files
	}

	if formatter.Format == "json" {
		return formatter.Success(res)
	}
	lines := []string{res.Result}
	if opts.Verbose && res.Steps != "" {
		lines = append(lines, res.Steps)
	}
	lines = append(lines, res.Audio...)
	return formatter.Success(lines)
}

func evalFailure(formatter *OutputFormatter, code calc.ErrorCode, message, expression string) error {
	_ = formatter.Error(CodeEvaluation, message, map[string]string{
		"code":       string(code),
		"expression": expression,
	})
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", code, message))
}

func speakCalculation(opts *RootOptions, cmd *cobra.Command, cfg config.Config, logger *zap.Logger, res EvalResult) ([]string, error) {
	synth, err := opts.newSynthesizer(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	if synth == nil {
		return nil, NewExitError(ExitCommandError, "text-to-speech is disabled")
	}
	cache, err := newCache(cfg, synth, logger)
	if err != nil {
		return nil, err
	}

	exprFile, resultFile, err := cache.SpeakCalculation(cmd.Context(), res.Expression, res.Result)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "failed to speak calculation", err)
	}
	return []string{filepath.Join(cache.Dir(), exprFile), filepath.Join(cache.Dir(), resultFile)}, nil
}
