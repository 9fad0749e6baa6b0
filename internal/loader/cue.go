package loader

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"

	"github.com/roach88/sdfsched/internal/ir"
)

// A CUE model file looks like:
//
//	vars: stages: int | *3
//
//	model: {
//		name: "pipeline"
//		actors: [{name: "src", ports: [{name: "out", direction: "output", rate: vars.stages}]}]
//	}
//
// Variables fill fields under "vars" before the model is made concrete.

func (l *Loader) loadCUEFile(path string) (*ir.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeNotFound, Path: path, Message: "cannot read file", Err: err}
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, cueError(ErrCodeParse, path, "invalid CUE", err)
	}
	return l.decodeCUE(path, v)
}

// loadCUEDir loads every .cue file of a directory as one instance.
func (l *Loader) loadCUEDir(dir string) (*ir.Model, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &Error{Code: ErrCodeParse, Path: dir, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, cueError(ErrCodeParse, dir, "loading CUE files", inst.Err)
	}
	ctx := cuecontext.New()
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, cueError(ErrCodeParse, dir, "building CUE value", err)
	}
	return l.decodeCUE(dir, v)
}

func (l *Loader) decodeCUE(path string, v cue.Value) (*ir.Model, error) {
	for _, name := range varNames(l.Vars) {
		p := cue.MakePath(cue.Str("vars"), cue.Str(name))
		if !v.LookupPath(p).Exists() {
			return nil, &Error{Code: ErrCodeVariable, Path: path, Message: fmt.Sprintf("variable %q is not declared under vars", name)}
		}
		if n, ok := varValue(l.Vars[name]); ok {
			v = v.FillPath(p, n)
		} else {
			v = v.FillPath(p, l.Vars[name])
		}
	}

	mv := v.LookupPath(cue.ParsePath("model"))
	if !mv.Exists() {
		return nil, &Error{Code: ErrCodeNoModel, Path: path, Message: "no model field"}
	}
	if err := mv.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(ErrCodeIncomplete, path, "model is not concrete", err)
	}

	var m ir.Model
	if err := mv.Decode(&m); err != nil {
		return nil, cueError(ErrCodeDecode, path, "model does not match the schema", err)
	}
	return &m, nil
}

// cueError attaches the first CUE position of err, when there is one.
func cueError(code, path, msg string, err error) *Error {
	e := &Error{Code: code, Path: path, Message: msg, Err: err}
	for _, pos := range cueerrors.Positions(err) {
		if pos.IsValid() {
			if pos.Filename() != "" {
				e.Path = pos.Filename()
			}
			e.Line, e.Column = pos.Line(), pos.Column()
			break
		}
	}
	return e
}
