package loader

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/roach88/sdfsched/internal/ir"
)

// An HCL model file looks like:
//
//	name = "join"
//
//	variable "w_rate" { default = 2 }
//
//	input "in1" {}
//	output "out1" {}
//
//	actor "W" {
//	  input "in" { rate = var.w_rate }
//	  output "out" { rate = 2 }
//	}
//
//	relay "D" { initial_tokens = 1 }
//
//	connect "in1" "W.in" {}
//
// Composite actors set kind = "composite" and either reference a nested
// model or profile, or list firing_function blocks.

type hclRoot struct {
	Variables []*hclVariable `hcl:"variable,block"`
	Remain    hcl.Body       `hcl:",remain"`
}

type hclVariable struct {
	Name    string         `hcl:"name,label"`
	Default hcl.Expression `hcl:"default,optional"`
}

type hclModel struct {
	Name        string        `hcl:"name,optional"`
	Inputs      []*hclPort    `hcl:"input,block"`
	Outputs     []*hclPort    `hcl:"output,block"`
	Actors      []*hclActor   `hcl:"actor,block"`
	Relays      []*hclRelay   `hcl:"relay,block"`
	Connections []*hclConnect `hcl:"connect,block"`
}

type hclPort struct {
	Name string `hcl:"name,label"`
	Rate int    `hcl:"rate,optional"`
}

type hclActor struct {
	Name            string               `hcl:"name,label"`
	Kind            string               `hcl:"kind,optional"`
	Model           string               `hcl:"model,optional"`
	Profile         string               `hcl:"profile,optional"`
	Inputs          []*hclPort           `hcl:"input,block"`
	Outputs         []*hclPort           `hcl:"output,block"`
	FiringFunctions []*hclFiringFunction `hcl:"firing_function,block"`
}

type hclFiringFunction struct {
	Inputs           []*hclPort `hcl:"input,block"`
	Outputs          []*hclPort `hcl:"output,block"`
	Precedes         []int      `hcl:"precedes,optional"`
	Succeeds         []int      `hcl:"succeeds,optional"`
	PrecedesNext     []int      `hcl:"precedes_next_iteration,optional"`
	SucceedsPrevious []int      `hcl:"succeeds_previous_iteration,optional"`
}

type hclRelay struct {
	Name          string `hcl:"name,label"`
	InitialTokens int    `hcl:"initial_tokens,optional"`
}

type hclConnect struct {
	From string `hcl:"from,label"`
	To   string `hcl:"to,label"`
}

func (l *Loader) loadHCL(path string) (*ir.Model, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, hclError(ErrCodeParse, path, "invalid HCL", diags)
	}

	var root hclRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, hclError(ErrCodeDecode, path, "decoding variables", diags)
	}
	evalCtx, err := l.hclContext(path, root.Variables)
	if err != nil {
		return nil, err
	}

	var doc hclModel
	if diags := gohcl.DecodeBody(root.Remain, evalCtx, &doc); diags.HasErrors() {
		return nil, hclError(ErrCodeDecode, path, "model does not match the schema", diags)
	}
	return doc.model(), nil
}

// hclContext binds var.<name> for every declared variable. A value given
// by the caller overrides the declared default.
func (l *Loader) hclContext(path string, decls []*hclVariable) (*hcl.EvalContext, error) {
	declared := make(map[string]bool, len(decls))
	vars := make(map[string]cty.Value, len(decls))
	for _, d := range decls {
		declared[d.Name] = true
		if s, ok := l.Vars[d.Name]; ok {
			if n, isInt := varValue(s); isInt {
				vars[d.Name] = cty.NumberIntVal(n)
			} else {
				vars[d.Name] = cty.StringVal(s)
			}
			continue
		}
		def, diags := d.Default.Value(nil)
		if diags.HasErrors() {
			return nil, hclError(ErrCodeVariable, path, fmt.Sprintf("default of variable %q", d.Name), diags)
		}
		if def.IsNull() {
			return nil, &Error{Code: ErrCodeVariable, Path: path, Message: fmt.Sprintf("variable %q has no value and no default", d.Name)}
		}
		vars[d.Name] = def
	}
	for _, name := range varNames(l.Vars) {
		if !declared[name] {
			return nil, &Error{Code: ErrCodeVariable, Path: path, Message: fmt.Sprintf("variable %q is not declared", name)}
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"var": cty.ObjectVal(vars)},
	}, nil
}

func (d *hclModel) model() *ir.Model {
	m := &ir.Model{Name: d.Name}
	for _, p := range d.Inputs {
		m.Ports = append(m.Ports, ir.PortSpec{Name: p.Name, Direction: ir.DirectionInput})
	}
	for _, p := range d.Outputs {
		m.Ports = append(m.Ports, ir.PortSpec{Name: p.Name, Direction: ir.DirectionOutput})
	}
	for _, a := range d.Actors {
		spec := ir.ActorSpec{Name: a.Name, Kind: a.Kind, Model: a.Model, Profile: a.Profile}
		spec.Ports = portSpecs(a.Inputs, a.Outputs)
		for _, ff := range a.FiringFunctions {
			spec.FiringFunctions = append(spec.FiringFunctions, ff.firingFunction())
		}
		m.Actors = append(m.Actors, spec)
	}
	for _, r := range d.Relays {
		m.Actors = append(m.Actors, ir.ActorSpec{Name: r.Name, Kind: ir.KindRelay, InitialTokens: r.InitialTokens})
	}
	for _, c := range d.Connections {
		m.Connections = append(m.Connections, ir.Connection{From: c.From, To: c.To})
	}
	return m
}

func portSpecs(inputs, outputs []*hclPort) []ir.PortSpec {
	var out []ir.PortSpec
	for _, p := range inputs {
		out = append(out, ir.PortSpec{Name: p.Name, Direction: ir.DirectionInput, Rate: p.Rate})
	}
	for _, p := range outputs {
		out = append(out, ir.PortSpec{Name: p.Name, Direction: ir.DirectionOutput, Rate: p.Rate})
	}
	return out
}

func (f *hclFiringFunction) firingFunction() ir.FiringFunction {
	ff := ir.FiringFunction{
		Precedes:                  f.Precedes,
		Succeeds:                  f.Succeeds,
		PrecedesNextIteration:     f.PrecedesNext,
		SucceedsPreviousIteration: f.SucceedsPrevious,
	}
	for _, p := range f.Inputs {
		ff.Ports = append(ff.Ports, ir.FiringPort{Name: p.Name, Rate: p.Rate, Input: true})
	}
	for _, p := range f.Outputs {
		ff.Ports = append(ff.Ports, ir.FiringPort{Name: p.Name, Rate: p.Rate})
	}
	return ff
}

// hclError keeps the position of the first diagnostic.
func hclError(code, path, msg string, diags hcl.Diagnostics) *Error {
	e := &Error{Code: code, Path: path, Message: msg, Err: diags}
	for _, d := range diags {
		if d.Subject != nil {
			e.Path = d.Subject.Filename
			e.Line, e.Column = d.Subject.Start.Line, d.Subject.Start.Column
			break
		}
	}
	return e
}
