package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/sdfsched/internal/schedule"
	"github.com/roach88/sdfsched/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	Run      string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded scheduling runs",
		Long: `List the runs recorded by "sdfsched schedule --db", oldest first.

With --run the full report of a single run is printed instead.

Examples:
  sdfsched history --db ./runs.db
  sdfsched history --db ./runs.db --limit 5 --format json
  sdfsched history --db ./runs.db --run 0190a6b2-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "show at most this many runs (0 for all)")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show one run by ID")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			opts.logger().Error("error closing database", "error", closeErr)
		}
	}()

	ctx := commandContext(cmd)
	f := opts.formatter(cmd)

	if opts.Run != "" {
		return showRun(ctx, f, st, opts.Run)
	}

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if opts.Format == "json" {
		return f.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(f.Writer, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRUN\tMODEL\tSTATUS\tHASH")
	for _, r := range runs {
		status := r.Status
		if r.Status == store.StatusError {
			status = fmt.Sprintf("%s %s", r.ErrorCode, r.ErrorKind)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.Seq, r.ID, r.ModelName, status, shortHash(r.ModelHash))
	}
	return tw.Flush()
}

func showRun(ctx context.Context, f *OutputFormatter, st *store.Store, id string) error {
	run, err := st.ReadRun(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("run %s not found", id), err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	if f.Format == "json" {
		return f.Success(run)
	}

	fmt.Fprintf(f.Writer, "run %s (seq %d, %s)\n", run.ID, run.Seq, run.ToolVersion)
	if run.Status == store.StatusError {
		fmt.Fprintf(f.Writer, "model %s\nError [%s] %s: %s\n", run.ModelName, run.ErrorCode, run.ErrorKind, run.ErrorMessage)
		return nil
	}
	return schedule.FormatText(f.Writer, run.Result)
}

// shortHash trims a hex model hash for tables.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
