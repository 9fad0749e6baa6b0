package schedule

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roach88/sdfsched/internal/ir"
)

// FormatText writes the human-readable report of r. The output has no
// hashes or paths so it can be compared byte for byte.
func FormatText(w io.Writer, r *Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "model %s\n", r.Model)
	fmt.Fprintf(&b, "firings %d, cross-iteration edges %d\n", r.Firings, r.CrossIterationEdges)

	if len(r.FiringVector) > 0 {
		b.WriteString("\nfiring vector\n")
		width := 0
		for _, ac := range r.FiringVector {
			width = max(width, len(ac.Actor))
		}
		for _, ac := range r.FiringVector {
			fmt.Fprintf(&b, "  %-*s  %d\n", width, ac.Actor, ac.Count)
		}
	}

	if len(r.ExternalRates) > 0 {
		b.WriteString("\nexternal rates\n")
		width := 0
		for _, pr := range r.ExternalRates {
			width = max(width, len(pr.Port))
		}
		for _, pr := range r.ExternalRates {
			fmt.Fprintf(&b, "  %-*s  %-6s  %d\n", width, pr.Port, pr.Direction, pr.Rate)
		}
	}

	if len(r.Schedule) > 0 {
		b.WriteString("\nschedule\n")
		for _, st := range r.Schedule {
			fmt.Fprintf(&b, "  %s\n", st)
		}
	}

	if len(r.FiringFunctions) > 0 {
		b.WriteString("\nfiring functions\n")
		for i, ff := range r.FiringFunctions {
			fmt.Fprintf(&b, "  f%d:%s\n", i, functionLine(ff))
		}
	}

	if len(r.PassThroughs) > 0 {
		b.WriteString("\npass-throughs\n")
		for _, pt := range r.PassThroughs {
			fmt.Fprintf(&b, "  %s -> %s  %d\n", pt.From, pt.To, pt.Rate)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// String renders the step as "NAME xN", or "NAME/K xN" for firing
// function K > 0 of a composite actor.
func (st Step) String() string {
	return fmt.Sprintf("%s x%d", stepName(st), st.Iterations)
}

func stepName(st Step) string {
	if st.FiringFunction == 0 {
		return st.Actor
	}
	return fmt.Sprintf("%s/%d", st.Actor, st.FiringFunction)
}

// functionLine renders the sections of one firing function, separated by
// semicolons. Empty sections are left out.
func functionLine(ff ir.FiringFunction) string {
	var ins, outs []string
	for _, p := range ff.Ports {
		s := p.Name + ":" + strconv.Itoa(p.Rate)
		if p.Input {
			ins = append(ins, s)
		} else {
			outs = append(outs, s)
		}
	}
	var parts []string
	add := func(label string, items []string) {
		if len(items) > 0 {
			parts = append(parts, label+" "+strings.Join(items, " "))
		}
	}
	add("in", ins)
	add("out", outs)
	add("precedes", refs(ff.Precedes))
	add("succeeds", refs(ff.Succeeds))
	add("precedes-next", refs(ff.PrecedesNextIteration))
	add("succeeds-previous", refs(ff.SucceedsPreviousIteration))
	add("firings", ff.Firings)
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, "; ")
}

func refs(idx []int) []string {
	out := make([]string, len(idx))
	for i, x := range idx {
		out[i] = "f" + strconv.Itoa(x)
	}
	return out
}
