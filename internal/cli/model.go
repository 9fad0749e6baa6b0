package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/sdfsched/internal/ir"
	"github.com/roach88/sdfsched/internal/loader"
	"github.com/roach88/sdfsched/internal/schedule"
)

// ModelOptions holds the flags shared by commands that schedule a model.
type ModelOptions struct {
	*RootOptions
	Vars              []string
	AllowDisconnected bool
}

func (o *ModelOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&o.Vars, "var", nil, "model variable name=value (CUE and HCL models, repeatable)")
	cmd.Flags().BoolVar(&o.AllowDisconnected, "allow-disconnected", false, "schedule each island of a disconnected model")
}

// load reads the model at path and returns it with a scheduler that
// resolves its nested references through the same loader.
// Failures are command errors.
func (o *ModelOptions) load(path string) (*ir.Model, *schedule.Scheduler, error) {
	vars, err := loader.ParseVars(o.Vars)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "invalid --var", err)
	}

	l := loader.New(vars)
	l.Logger = o.logger()

	m, err := l.LoadModel(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load model", err)
	}

	s := &schedule.Scheduler{
		Logger:  o.logger(),
		Loader:  l,
		Options: schedule.Options{AllowDisconnected: o.AllowDisconnected},
	}
	return m, s, nil
}

// rejected reports err through f and returns the exit error for a model
// the scheduler refused.
func rejected(f *OutputFormatter, err error, runID string) error {
	if outErr := f.Rejection(err, runID); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitFailure, "model rejected", err)
}
