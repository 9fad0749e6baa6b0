// Package loader reads models and profiles from disk.
//
// The format follows the file extension:
//
//	.yaml .yml .json   plain documents decoded with yaml.v3
//	.cue               CUE; the model lives under the top-level "model" field
//	.hcl               HCL blocks; see hcl.go for the schema
//	directory          every .cue file in it, loaded as one CUE instance
//
// CUE and HCL models may be parameterised with variables supplied by the
// caller (the CLI's --var flag).
package loader

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/sdfsched/internal/ir"
)

// Error codes.
const (
	ErrCodeNotFound   = "E001" // path does not exist
	ErrCodeFormat     = "E002" // unknown file extension
	ErrCodeParse      = "E003" // syntax error
	ErrCodeDecode     = "E004" // document does not match the model schema
	ErrCodeVariable   = "E005" // bad or unused variable
	ErrCodeIncomplete = "E006" // CUE value is not concrete
	ErrCodeNoModel    = "E007" // CUE file has no model field
)

// Error is a load failure with an optional source position.
type Error struct {
	Code    string
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var loc string
	switch {
	case e.Line > 0:
		loc = fmt.Sprintf("%s:%d:%d", e.Path, e.Line, e.Column)
	case e.Path != "":
		loc = e.Path
	}
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return fmt.Sprintf("%s: %s: %s", loc, e.Code, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Loader implements schedule.ModelLoader over the file system.
type Loader struct {
	// Vars parameterise CUE and HCL models.
	Vars map[string]string

	// Logger receives debug output. Nil means slog.Default().
	Logger *slog.Logger
}

// New returns a loader with the given variables.
func New(vars map[string]string) *Loader {
	return &Loader{Vars: vars}
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

// LoadModel reads the model at path and records path as its source.
func (l *Loader) LoadModel(path string) (*ir.Model, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeNotFound, Path: path, Message: "cannot read model", Err: err}
	}

	var m *ir.Model
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case info.IsDir():
		m, err = l.loadCUEDir(path)
	case ext == ".cue":
		m, err = l.loadCUEFile(path)
	case ext == ".hcl":
		m, err = l.loadHCL(path)
	case ext == ".yaml" || ext == ".yml" || ext == ".json":
		if len(l.Vars) > 0 {
			return nil, &Error{Code: ErrCodeVariable, Path: path, Message: "variables are only supported by CUE and HCL models"}
		}
		m = &ir.Model{}
		err = decodeYAML(path, m)
	default:
		return nil, &Error{Code: ErrCodeFormat, Path: path, Message: fmt.Sprintf("unsupported model format %q", ext)}
	}
	if err != nil {
		return nil, err
	}

	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	m.Source = path
	l.logger().Debug("model loaded",
		"path", path,
		"actors", len(m.Actors),
		"connections", len(m.Connections),
	)
	return m, nil
}

// LoadProfile reads a profile written by an earlier run.
func (l *Loader) LoadProfile(path string) (*ir.Profile, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
	default:
		return nil, &Error{Code: ErrCodeFormat, Path: path, Message: fmt.Sprintf("unsupported profile format %q", ext)}
	}
	p := &ir.Profile{}
	if err := decodeYAML(path, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ParseVars turns "name=value" pairs into a map. Later pairs win.
func ParseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, &Error{Code: ErrCodeVariable, Message: fmt.Sprintf("malformed variable %q: want name=value", pair)}
		}
		vars[name] = value
	}
	return vars, nil
}

// varNames returns the variable names in sorted order.
func varNames(vars map[string]string) []string {
	names := make([]string, 0, len(vars))
	for n := range vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// varValue reads integers as numbers and everything else as strings.
func varValue(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n, err == nil
}
