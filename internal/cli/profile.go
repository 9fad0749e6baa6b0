package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sdfsched/internal/ir"
)

// ProfileOptions holds flags for the profile command.
type ProfileOptions struct {
	ModelOptions
	Output string
}

// NewProfileCommand creates the profile command.
func NewProfileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProfileOptions{ModelOptions: ModelOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "profile <model>",
		Short: "Write the firing-function profile of a model",
		Long: `Schedule a model and write its profile: the boundary ports with their
solved rates and the firing functions a parent model schedules.

A composite actor in another model can reference the written file with
"profile:" instead of nesting the whole model.

The profile is YAML unless --output ends in .json, which writes canonical JSON.

Examples:
  sdfsched profile ./models/join.yaml
  sdfsched profile ./models/join.yaml -o ./profiles/join.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(opts, args[0], cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the profile to this file instead of stdout")

	return cmd
}

func runProfile(opts *ProfileOptions, path string, cmd *cobra.Command) error {
	m, s, err := opts.load(path)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	f := opts.formatter(cmd)

	res, err := s.Schedule(ctx, m)
	if err != nil {
		return rejected(f, err, "")
	}
	prof := res.Profile()

	if opts.Output == "" {
		if opts.Format == "json" {
			return f.Success(prof)
		}
		data, err := marshalProfile(prof, false)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to encode profile", err)
		}
		_, err = f.Writer.Write(data)
		return err
	}

	data, err := marshalProfile(prof, strings.EqualFold(filepath.Ext(opts.Output), ".json"))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode profile", err)
	}
	if dir := filepath.Dir(opts.Output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return WrapExitError(ExitCommandError, "failed to create output directory", err)
		}
	}
	if err := os.WriteFile(opts.Output, data, 0644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write profile", err)
	}

	if opts.Format == "json" {
		return f.Success(map[string]any{
			"model":            prof.Name,
			"output":           opts.Output,
			"firing_functions": len(prof.FiringFunctions),
		})
	}
	fmt.Fprintf(f.Writer, "✓ Profile of %s written to %s (%d firing functions)\n", prof.Name, opts.Output, len(prof.FiringFunctions))
	return nil
}

func marshalProfile(p *ir.Profile, asJSON bool) ([]byte, error) {
	if asJSON {
		return ir.CanonicalJSON(p)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
