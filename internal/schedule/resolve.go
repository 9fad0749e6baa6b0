package schedule

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/sdfsched/internal/ir"
	"github.com/roach88/sdfsched/internal/sdferr"
)

// resolver expands nested references for one top-level Schedule call.
// Profiles are memoized by path; chain holds the models being scheduled,
// outermost first.
type resolver struct {
	s        *Scheduler
	chain    []string
	profiles map[string]*ir.Profile
}

func newResolver(s *Scheduler, top *ir.Model) *resolver {
	r := &resolver{s: s, profiles: make(map[string]*ir.Profile)}
	if top.Source != "" {
		r.chain = append(r.chain, filepath.Clean(top.Source))
	}
	return r
}

func (r *resolver) model(ctx context.Context, m *ir.Model) (*ir.Model, error) {
	out := *m
	out.Actors = make([]ir.ActorSpec, len(m.Actors))
	for i, a := range m.Actors {
		spec, err := r.actor(ctx, m, a)
		if err != nil {
			return nil, err
		}
		out.Actors[i] = spec
	}
	return &out, nil
}

func (r *resolver) actor(ctx context.Context, parent *ir.Model, a ir.ActorSpec) (ir.ActorSpec, error) {
	if a.Model == "" && a.Profile == "" {
		return a, nil
	}
	switch {
	case a.EffectiveKind() != ir.KindComposite:
		return a, sdferr.NewInvalidModel("actor %q: only composite actors may reference a model or profile", a.Name)
	case a.Model != "" && a.Profile != "":
		return a, sdferr.NewInvalidModel("actor %q references both a model and a profile", a.Name)
	case len(a.FiringFunctions) > 0:
		return a, sdferr.NewInvalidModel("actor %q declares firing functions and a nested reference", a.Name)
	case r.s.Loader == nil:
		return a, sdferr.NewInvalidModel("actor %q has a nested reference but no loader is configured", a.Name)
	}
	if err := ctx.Err(); err != nil {
		return a, err
	}

	var (
		prof *ir.Profile
		err  error
	)
	if a.Model != "" {
		prof, err = r.nested(ctx, resolvePath(parent.Source, a.Model))
	} else {
		prof, err = r.stored(resolvePath(parent.Source, a.Profile))
	}
	if err != nil {
		return a, fmt.Errorf("actor %q: %w", a.Name, err)
	}

	spec := prof.Composite(a.Name)
	if err := checkDeclaredPorts(a, spec); err != nil {
		return a, err
	}
	return spec, nil
}

// nested schedules the model at path and returns its profile.
func (r *resolver) nested(ctx context.Context, path string) (*ir.Profile, error) {
	if p, ok := r.profiles[path]; ok {
		return p, nil
	}
	if i := slices.Index(r.chain, path); i >= 0 {
		cycle := append(slices.Clone(r.chain[i:]), path)
		return nil, sdferr.NewInvalidModel("nested models form a cycle: %s", strings.Join(cycle, " -> "))
	}

	child, err := r.s.Loader.LoadModel(path)
	if err != nil {
		return nil, sdferr.NewInvalidModel("cannot load nested model %s", path).Wrap(err)
	}
	if child.Source == "" {
		child.Source = path
	}

	r.chain = append(r.chain, path)
	resolved, err := r.model(ctx, child)
	if err == nil {
		var res *Result
		res, err = r.s.run(ctx, resolved)
		if err == nil {
			r.profiles[path] = res.Profile()
		}
	}
	r.chain = r.chain[:len(r.chain)-1]
	if err != nil {
		return nil, err
	}
	r.s.logger().Debug("nested model scheduled", "path", path, "parent_chain", len(r.chain))
	return r.profiles[path], nil
}

func (r *resolver) stored(path string) (*ir.Profile, error) {
	if p, ok := r.profiles[path]; ok {
		return p, nil
	}
	p, err := r.s.Loader.LoadProfile(path)
	if err != nil {
		return nil, sdferr.NewInvalidModel("cannot load profile %s", path).Wrap(err)
	}
	r.profiles[path] = p
	return p, nil
}

// checkDeclaredPorts requires every port the referencing actor declares to
// exist on the profile with the same direction, and with the same rate when
// one is given.
func checkDeclaredPorts(a ir.ActorSpec, resolved ir.ActorSpec) error {
	for _, want := range a.Ports {
		i := slices.IndexFunc(resolved.Ports, func(p ir.PortSpec) bool { return p.Name == want.Name })
		if i < 0 {
			return sdferr.NewInvalidModel("actor %q declares port %q which its nested model lacks", a.Name, want.Name)
		}
		got := resolved.Ports[i]
		if got.Direction != want.Direction {
			return sdferr.NewInvalidModel("actor %q port %q is %s in the nested model", a.Name, want.Name, got.Direction)
		}
		if want.Rate != 0 && want.Rate != got.Rate {
			return sdferr.NewInvalidModel("actor %q port %q declares rate %d but the nested model solves %d", a.Name, want.Name, want.Rate, got.Rate)
		}
	}
	return nil
}

func resolvePath(base, ref string) string {
	if filepath.IsAbs(ref) || base == "" {
		return filepath.Clean(ref)
	}
	return filepath.Join(filepath.Dir(base), ref)
}
