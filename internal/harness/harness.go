package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/roach88/sdfsched/internal/loader"
	"github.com/roach88/sdfsched/internal/schedule"
)

// Harness executes scenarios.
type Harness struct {
	Logger *slog.Logger
}

// Run executes a scenario with a silent logger.
func Run(scenario *Scenario) (*Result, error) {
	h := &Harness{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	return h.Run(context.Background(), scenario)
}

// Run loads the scenario's model, schedules it and evaluates the
// expectations.
//
// A model that fails to load is a harness error. A model the scheduler
// rejects is an ordinary outcome, checked against the error expectations.
// Every model is scheduled twice and the two results must agree.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	l := loader.New(scenario.Vars)
	l.Logger = h.Logger

	m, err := l.LoadModel(scenario.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	sched := &schedule.Scheduler{
		Logger:  h.Logger,
		Loader:  l,
		Options: schedule.Options{AllowDisconnected: scenario.AllowDisconnected},
	}

	result := NewResult()
	result.Schedule, result.Err = sched.Schedule(ctx, m)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if result.Err == nil {
		again, err := sched.Schedule(ctx, m)
		switch {
		case err != nil:
			result.AddError(fmt.Sprintf("second run failed: %v", err))
		case !reflect.DeepEqual(result.Schedule, again):
			result.AddError("scheduling the same model twice gave different results")
		}
	}

	for _, msg := range EvaluateExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}

	return result, nil
}
