package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sdfsched/internal/schedule"
	"github.com/roach88/sdfsched/internal/sdferr"
)

// Snapshot renders a result for golden comparison.
//
// A schedule renders as the text report. A rejection renders as a single
// "rejected KIND CODE" line; the message is left out so wording changes do
// not churn golden files.
func Snapshot(result *Result) ([]byte, error) {
	var buf bytes.Buffer
	if result.Err != nil {
		fmt.Fprintf(&buf, "rejected %s %s\n", sdferr.KindOf(result.Err), sdferr.CodeOf(result.Err))
		return buf.Bytes(), nil
	}
	if err := schedule.FormatText(&buf, result.Schedule); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
