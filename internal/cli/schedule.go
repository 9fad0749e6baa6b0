package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sdfsched/internal/ir"
	"github.com/roach88/sdfsched/internal/schedule"
	"github.com/roach88/sdfsched/internal/store"
)

// ScheduleOptions holds flags for the schedule command.
type ScheduleOptions struct {
	ModelOptions
	Database string
	Cached   bool

	// IDGenerator allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator store.IDGenerator
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScheduleOptions{ModelOptions: ModelOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "schedule <model>",
		Short: "Compute the static schedule of a model",
		Long: `Compute the firing vector, a sequential schedule and the firing-function
profile of a dataflow model.

Models may be YAML, JSON, CUE (file or package directory) or HCL. Composite
actors that reference nested models are scheduled first.

With --db every attempt is recorded. With --cached a stored result for an
identical resolved model is printed instead of scheduling again.

Exit codes:
  0 - Model scheduled
  1 - Model rejected (structural, inconsistency or deadlock)
  2 - Command error (unreadable model, database error, etc.)

Examples:
  sdfsched schedule ./models/join.yaml
  sdfsched schedule ./models/chain.hcl --var rate=3
  sdfsched schedule ./models/join.yaml --db ./runs.db --cached --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(opts, args[0], cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().BoolVar(&opts.Cached, "cached", false, "reuse a stored result for the same model (requires --db)")

	return cmd
}

func runSchedule(opts *ScheduleOptions, path string, cmd *cobra.Command) error {
	if opts.Cached && opts.Database == "" {
		return NewExitError(ExitCommandError, "--cached requires --db")
	}

	m, s, err := opts.load(path)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	log := opts.logger()
	f := opts.formatter(cmd)

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
	}

	// The resolved model is hashed so that an edit to a nested model
	// changes the cache key.
	resolved, schedErr := s.Resolve(ctx, m)
	hashed := m
	if schedErr == nil {
		hashed = resolved
	}
	hash, err := ir.ModelHash(hashed)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash model", err)
	}

	if opts.Cached && schedErr == nil {
		run, ok, err := st.LatestSuccessByHash(ctx, hash)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read cache", err)
		}
		if ok {
			log.Info("using cached result", "model", m.Name, "run", run.ID, "seq", run.Seq)
			return writeResult(f, run.Result, run.ID)
		}
	}

	var res *schedule.Result
	if schedErr == nil {
		res, schedErr = s.Schedule(ctx, resolved)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return WrapExitError(ExitCommandError, "scheduling interrupted", ctxErr)
	}

	var runID string
	if st != nil {
		gen := opts.IDGenerator
		if gen == nil {
			gen = store.UUIDv7Generator{}
		}
		runID = gen.Generate()
		seq, err := st.WriteRun(ctx, store.NewRun(runID, m.Name, hash, res, schedErr))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		log.Debug("run recorded", "run", runID, "seq", seq)
	}

	if schedErr != nil {
		return rejected(f, schedErr, runID)
	}
	return writeResult(f, res, runID)
}

// writeResult prints a schedule as the text report or a JSON response.
func writeResult(f *OutputFormatter, res *schedule.Result, runID string) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: res, RunID: runID})
	}
	if err := schedule.FormatText(f.Writer, res); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
