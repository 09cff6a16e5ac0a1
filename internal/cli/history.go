package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/voicecalc/internal/store"
)

// HistoryOptions holds flags for the history commands.
type HistoryOptions struct {
	*RootOptions
	Limit int
	Voice bool
}

// NewHistoryCommand creates the history command and its subcommands.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and manage calculation history",
		Long: `Inspect and manage the stored calculation history.

Examples:
  voicecalc history list --limit 10
  voicecalc history list --voice
  voicecalc history last
  voicecalc history delete 42
  voicecalc history clear`,
	}

	listCmd := &cobra.Command{
		Use:           "list",
		Short:         "List calculations, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(opts, cmd)
		},
	}
	listCmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "maximum entries to show (0 for all)")
	listCmd.Flags().BoolVar(&opts.Voice, "voice", false, "only show voice calculations")

	clearCmd := &cobra.Command{
		Use:           "clear",
		Short:         "Delete all calculations",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryClear(opts, cmd)
		},
	}

	deleteCmd := &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete one calculation",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid id %q", args[0]), err)
			}
			return runHistoryDelete(opts, id, cmd)
		},
	}

	lastCmd := &cobra.Command{
		Use:           "last",
		Short:         "Print the most recent result",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryLast(opts, cmd)
		},
	}

	cmd.AddCommand(listCmd, clearCmd, deleteCmd, lastCmd)
	return cmd
}

// withStore opens the configured history, runs fn and closes it.
func (opts *HistoryOptions) withStore(fn func(*store.Store) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func runHistoryList(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "limit must not be negative")
	}

	return opts.withStore(func(st *store.Store) error {
		var (
			calcs []store.Calculation
			err   error
		)
		if opts.Voice {
			calcs, err = st.VoiceHistory(cmd.Context(), opts.Limit)
		} else {
			calcs, err = st.History(cmd.Context(), opts.Limit)
		}
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read history", err)
		}
		formatter.VerboseLog("%d calculation(s)", len(calcs))

		if formatter.Format == "json" {
			return formatter.Success(map[string]any{"history": calcs})
		}
		lines := make([]string, 0, len(calcs))
		for _, c := range calcs {
			line := fmt.Sprintf("%4d  %s", c.ID, c.Entry())
			if opts.Verbose {
				line += "  " + c.Timestamp.Format("2006-01-02 15:04:05")
				if c.VoiceInput {
					line += "  (voice)"
				}
			}
			lines = append(lines, line)
		}
		return formatter.Success(lines)
	})
}

func runHistoryClear(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	return opts.withStore(func(st *store.Store) error {
		n, err := st.ClearHistory(cmd.Context())
		if err != nil {
			return WrapExitError(ExitFailure, "failed to clear history", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(map[string]int64{"deleted": n})
		}
		return formatter.Success(fmt.Sprintf("Deleted %d calculation(s)", n))
	})
}

func runHistoryDelete(opts *HistoryOptions, id int64, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	return opts.withStore(func(st *store.Store) error {
		ok, err := st.DeleteCalculation(cmd.Context(), id)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to delete calculation", err)
		}
		if !ok {
			msg := fmt.Sprintf("calculation %d not found", id)
			_ = formatter.Error(CodeNotFound, msg, nil)
			return NewExitError(ExitFailure, msg)
		}
		if formatter.Format == "json" {
			return formatter.Success(map[string]int64{"deleted": id})
		}
		return formatter.Success(fmt.Sprintf("Deleted calculation %d", id))
	})
}

func runHistoryLast(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	return opts.withStore(func(st *store.Store) error {
		c, ok, err := st.Last(cmd.Context())
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read history", err)
		}
		if formatter.Format == "json" {
			result := ""
			if ok {
				result = c.Result
			}
			return formatter.Success(map[string]string{"calculation": result})
		}
		if !ok {
			return formatter.Success("No calculations yet")
		}
		return formatter.Success(c.Result)
	})
}
