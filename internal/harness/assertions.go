package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/sdfsched/internal/ir"
	"github.com/roach88/sdfsched/internal/schedule"
	"github.com/roach88/sdfsched/internal/sdferr"
)

// ExpectationError describes one expectation that did not hold.
type ExpectationError struct {
	Field    string // Expectation field, e.g. "firing_vector[U]"
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Field, e.Expected, e.Actual)
}

// EvaluateExpectations checks result against exp and returns one message
// per mismatch, in a stable order.
func EvaluateExpectations(result *Result, exp Expectation) []string {
	var errs []error
	if exp.ExpectsError() {
		errs = checkError(result.Err, exp)
	} else if result.Err != nil {
		errs = []error{&ExpectationError{Field: "result", Expected: "a schedule", Actual: result.Err.Error()}}
	} else {
		errs = checkSchedule(result.Schedule, exp)
	}

	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return msgs
}

func checkError(err error, exp Expectation) []error {
	if err == nil {
		return []error{&ExpectationError{Field: "error", Expected: "a rejection", Actual: "a schedule"}}
	}

	var errs []error
	if exp.ErrorKind != "" {
		if got := sdferr.KindOf(err); string(got) != exp.ErrorKind {
			errs = append(errs, &ExpectationError{Field: "error_kind", Expected: exp.ErrorKind, Actual: quoteEmpty(string(got))})
		}
	}
	if exp.ErrorCode != "" {
		if got := sdferr.CodeOf(err); got != exp.ErrorCode {
			errs = append(errs, &ExpectationError{Field: "error_code", Expected: exp.ErrorCode, Actual: quoteEmpty(got)})
		}
	}
	if exp.ErrorContains != "" && !strings.Contains(err.Error(), exp.ErrorContains) {
		errs = append(errs, &ExpectationError{
			Field:    "error_contains",
			Expected: fmt.Sprintf("message containing %q", exp.ErrorContains),
			Actual:   fmt.Sprintf("%q", err.Error()),
		})
	}
	return errs
}

func checkSchedule(res *schedule.Result, exp Expectation) []error {
	var errs []error
	errs = append(errs, checkCounts("firing_vector", exp.FiringVector, res.FiringMap())...)
	errs = append(errs, checkCounts("external_rates", exp.ExternalRates, res.RateMap())...)

	if len(exp.Schedule) > 0 {
		got := make([]string, len(res.Schedule))
		for i, st := range res.Schedule {
			got[i] = st.String()
		}
		if !slices.Equal(exp.Schedule, got) {
			errs = append(errs, &ExpectationError{
				Field:    "schedule",
				Expected: "[" + strings.Join(exp.Schedule, ", ") + "]",
				Actual:   "[" + strings.Join(got, ", ") + "]",
			})
		}
	}

	if len(exp.FiringFunctions) > 0 {
		errs = append(errs, checkFunctions(exp.FiringFunctions, res.FiringFunctions)...)
	}

	if exp.CrossIterationEdges != nil && *exp.CrossIterationEdges != res.CrossIterationEdges {
		errs = append(errs, &ExpectationError{
			Field:    "cross_iteration_edges",
			Expected: fmt.Sprint(*exp.CrossIterationEdges),
			Actual:   fmt.Sprint(res.CrossIterationEdges),
		})
	}
	return errs
}

// checkCounts compares the listed names only, in sorted order.
func checkCounts(field string, want, got map[string]int) []error {
	var errs []error
	for _, name := range sortedKeys(want) {
		field := fmt.Sprintf("%s[%s]", field, name)
		g, ok := got[name]
		if !ok {
			errs = append(errs, &ExpectationError{Field: field, Expected: fmt.Sprint(want[name]), Actual: "no such name"})
			continue
		}
		if g != want[name] {
			errs = append(errs, &ExpectationError{Field: field, Expected: fmt.Sprint(want[name]), Actual: fmt.Sprint(g)})
		}
	}
	return errs
}

func checkFunctions(want []FunctionExpectation, got []ir.FiringFunction) []error {
	if len(want) != len(got) {
		return []error{&ExpectationError{
			Field:    "firing_functions",
			Expected: fmt.Sprintf("%d functions", len(want)),
			Actual:   fmt.Sprintf("%d functions", len(got)),
		}}
	}

	var errs []error
	for i, w := range want {
		ff := got[i]
		ports := make(map[string]int, len(ff.Ports))
		for _, p := range ff.Ports {
			ports[p.Name] = p.Rate
		}
		if !mapsEqual(w.Ports, ports) {
			errs = append(errs, &ExpectationError{
				Field:    fmt.Sprintf("firing_functions[%d].ports", i),
				Expected: formatPorts(w.Ports),
				Actual:   formatPorts(ports),
			})
		}
		if !slices.Equal(w.Precedes, ff.Precedes) {
			errs = append(errs, &ExpectationError{
				Field:    fmt.Sprintf("firing_functions[%d].precedes", i),
				Expected: fmt.Sprint(nonNil(w.Precedes)),
				Actual:   fmt.Sprint(nonNil(ff.Precedes)),
			})
		}
		if !slices.Equal(w.Succeeds, ff.Succeeds) {
			errs = append(errs, &ExpectationError{
				Field:    fmt.Sprintf("firing_functions[%d].succeeds", i),
				Expected: fmt.Sprint(nonNil(w.Succeeds)),
				Actual:   fmt.Sprint(nonNil(ff.Succeeds)),
			})
		}
	}
	return errs
}

func mapsEqual(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func formatPorts(ports map[string]int) string {
	parts := make([]string, 0, len(ports))
	for _, name := range sortedKeys(ports) {
		parts = append(parts, fmt.Sprintf("%s:%d", name, ports[name]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nonNil(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}

func quoteEmpty(s string) string {
	if s == "" {
		return `""`
	}
	return s
}
