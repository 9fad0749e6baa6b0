package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// ModelReport is the validation outcome of one model file.
type ModelReport struct {
	Path    string    `json:"path"`
	Model   string    `json:"model,omitempty"`
	Valid   bool      `json:"valid"`
	Actors  int       `json:"actors,omitempty"`
	Firings int       `json:"firings,omitempty"`
	Error   *CLIError `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool          `json:"valid"`
	Models []ModelReport `json:"models"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ModelOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <model>...",
		Short: "Check that models can be scheduled",
		Long: `Check one or more models without printing their schedules.

A model is valid when it loads, every nested reference resolves, its rates
are consistent and one iteration completes without deadlock. Every model is
checked even after a failure.

Exit codes:
  0 - All models valid
  1 - One or more models invalid or unreadable`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	opts.addFlags(cmd)
	return cmd
}

func runValidate(opts *ModelOptions, paths []string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := opts.formatter(cmd)

	result := ValidationResult{Valid: true, Models: make([]ModelReport, 0, len(paths))}
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		report := validateModel(ctx, opts, path)
		if !report.Valid {
			result.Valid = false
		}
		result.Models = append(result.Models, report)
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		outputValidateText(formatter, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func validateModel(ctx context.Context, opts *ModelOptions, path string) ModelReport {
	report := ModelReport{Path: path}

	m, s, err := opts.load(path)
	if err != nil {
		report.Error = describeError(err)
		return report
	}
	report.Model = m.Name

	res, err := s.Schedule(ctx, m)
	if err != nil {
		report.Error = describeError(err)
		return report
	}
	report.Valid = true
	report.Actors = len(res.FiringVector)
	report.Firings = res.Firings
	return report
}

func outputValidateText(f *OutputFormatter, result ValidationResult) {
	invalid := 0
	for _, r := range result.Models {
		if r.Valid {
			fmt.Fprintf(f.Writer, "✓ %s (%s): %d actors, %d firings per iteration\n", r.Path, r.Model, r.Actors, r.Firings)
			continue
		}
		invalid++
		fmt.Fprintf(f.Writer, "✗ %s\n", r.Path)
		if r.Error.Kind != "" {
			fmt.Fprintf(f.Writer, "  Error [%s] %s: %s\n", r.Error.Code, r.Error.Kind, r.Error.Message)
		} else {
			fmt.Fprintf(f.Writer, "  Error [%s]: %s\n", r.Error.Code, r.Error.Message)
		}
	}
	if invalid > 0 {
		fmt.Fprintf(f.Writer, "%d of %d model(s) invalid\n", invalid, len(result.Models))
		return
	}
	fmt.Fprintln(f.Writer, "✓ All models valid")
}
