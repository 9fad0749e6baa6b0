// Package schedule runs the full static scheduling pipeline on one model:
// rate graph, balance equations, deadlock check, firing graph and
// clustering.
//
// Composite actors may reference a nested model or a stored profile. Nested
// models are scheduled first, bottom-up, and their profiles replace the
// references before the outer model is built.
package schedule

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/sdfsched/internal/balance"
	"github.com/roach88/sdfsched/internal/deadlock"
	"github.com/roach88/sdfsched/internal/firing"
	"github.com/roach88/sdfsched/internal/graph"
	"github.com/roach88/sdfsched/internal/ir"
)

// ModelLoader reads models and profiles referenced by composite actors.
type ModelLoader interface {
	LoadModel(path string) (*ir.Model, error)
	LoadProfile(path string) (*ir.Profile, error)
}

// Options controls scheduling.
type Options struct {
	// AllowDisconnected schedules each connected island on its own
	// instead of rejecting the model.
	AllowDisconnected bool
}

// Scheduler turns models into schedules. The zero value is usable for
// models without nested references.
type Scheduler struct {
	// Logger receives stage output. Nil means slog.Default().
	Logger *slog.Logger

	// Loader resolves nested model and profile references.
	Loader ModelLoader

	Options Options
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Schedule resolves nested references and schedules m.
func (s *Scheduler) Schedule(ctx context.Context, m *ir.Model) (*Result, error) {
	r := newResolver(s, m)
	resolved, err := r.model(ctx, m)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, resolved)
}

// Resolve returns a copy of m in which every nested model or profile
// reference has been replaced by an inline composite actor. Scheduling the
// copy gives the same result as scheduling m.
func (s *Scheduler) Resolve(ctx context.Context, m *ir.Model) (*ir.Model, error) {
	return newResolver(s, m).model(ctx, m)
}

// run schedules a model that has no unresolved references.
func (s *Scheduler) run(ctx context.Context, m *ir.Model) (*Result, error) {
	log := s.logger().With("model", m.Name)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g, err := graph.Build(m)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", m.Name, err)
	}
	log.Debug("rate graph built",
		"actors", len(g.Actors()),
		"boundary_ports", len(g.BoundaryPorts()),
		"junctions", len(g.Junctions()),
	)

	sol, err := balance.Solve(g, balance.Options{
		AllowDisconnected: s.Options.AllowDisconnected,
		Logger:            log,
	})
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", m.Name, err)
	}
	if err := balance.Check(g, sol); err != nil {
		return nil, fmt.Errorf("model %q: balance check: %w", m.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trace, err := deadlock.Simulate(g, sol, deadlock.Options{Logger: log})
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", m.Name, err)
	}

	fg, err := firing.Build(g, sol)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", m.Name, err)
	}
	log.Debug("firing graph built",
		"firings", len(fg.Firings()),
		"same_iteration_edges", fg.SameIterationEdges(),
		"cross_iteration_edges", fg.CrossIterationEdges(),
	)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cl, err := firing.Group(fg)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", m.Name, err)
	}

	hash, err := ir.ModelHash(m)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", m.Name, err)
	}

	res := newResult(m.Name, hash, g, sol, trace, fg, cl)
	log.Info("model scheduled",
		"firings", res.Firings,
		"firing_functions", len(res.FiringFunctions),
		"cross_iteration_edges", res.CrossIterationEdges,
	)
	return res, nil
}
