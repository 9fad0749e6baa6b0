// Package sdferr defines the error taxonomy shared by every scheduling stage.
//
// Errors are returned at the point of detection with the offending actor and
// port names attached. Nothing is retried: scheduling is deterministic, so an
// unchanged model fails the same way every time.
package sdferr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a scheduling failure.
type Kind string

const (
	// KindStructural covers malformed graphs: disconnected actors, parallel
	// drive of one receiver, unresolved ports.
	KindStructural Kind = "structural"

	// KindInconsistency covers models that violate SDF balance.
	KindInconsistency Kind = "inconsistency"

	// KindDeadlock covers balanced models whose firings cannot be realized.
	KindDeadlock Kind = "deadlock"

	// KindInternal is a defect in the scheduler itself, never a modeling error.
	KindInternal Kind = "internal"
)

// Error codes (E200-E299).
const (
	CodeDisconnected   = "E201" // actors unreachable from the seed
	CodeParallelDrive  = "E202" // two drivers on one receiver
	CodeUnresolvedPort = "E203" // endpoint names no known port
	CodeInvalidModel   = "E204" // any other structural defect
	CodeRateMismatch   = "E210" // conflicting firing counts or boundary rates
	CodeNonIntegral    = "E211" // normalization left a fraction
	CodeDeadlock       = "E220" // no firable actor while firings remain
	CodeInvariant      = "E230" // internal invariant violated
)

// Error is a scheduling failure with structured context.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Code identifies the specific failure.
	Code string

	// Message is a human-readable description.
	Message string

	// Details carries names and counts for diagnostics.
	Details map[string]string

	// Err is an optional underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%s", k, e.Details[k])
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsStructural reports whether err is a structural error.
func IsStructural(err error) bool { return KindOf(err) == KindStructural }

// IsInconsistency reports whether err is a balance inconsistency.
func IsInconsistency(err error) bool { return KindOf(err) == KindInconsistency }

// IsDeadlock reports whether err is a deadlock.
func IsDeadlock(err error) bool { return KindOf(err) == KindDeadlock }

// IsInternal reports whether err is an internal invariant violation.
func IsInternal(err error) bool { return KindOf(err) == KindInternal }

// Structural creates a structural error.
func Structural(code, format string, args ...any) *Error {
	return &Error{Kind: KindStructural, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewDisconnected reports actors left unreached after propagation.
func NewDisconnected(unreached, reached []string) *Error {
	return &Error{
		Kind:    KindStructural,
		Code:    CodeDisconnected,
		Message: "scheduler found disconnected actors; set allow-disconnected if this is intended",
		Details: map[string]string{
			"unreached": strings.Join(unreached, ","),
			"reached":   strings.Join(reached, ","),
		},
	}
}

// NewParallelDrive reports two drivers wired to one receiver.
func NewParallelDrive(receiver, first, second string) *Error {
	return &Error{
		Kind:    KindStructural,
		Code:    CodeParallelDrive,
		Message: fmt.Sprintf("%s is driven by both %s and %s", receiver, first, second),
		Details: map[string]string{
			"receiver": receiver,
			"drivers":  first + "," + second,
		},
	}
}

// NewUnresolvedPort reports an endpoint that names no known port.
func NewUnresolvedPort(endpoint, reason string) *Error {
	return &Error{
		Kind:    KindStructural,
		Code:    CodeUnresolvedPort,
		Message: fmt.Sprintf("cannot resolve %q: %s", endpoint, reason),
		Details: map[string]string{"endpoint": endpoint},
	}
}

// NewInvalidModel reports any other structural defect.
func NewInvalidModel(format string, args ...any) *Error {
	return Structural(CodeInvalidModel, format, args...)
}

// NewRateMismatch reports two incompatible requirements on one quantity.
func NewRateMismatch(subject, existing, desired, via string) *Error {
	return &Error{
		Kind:    KindInconsistency,
		Code:    CodeRateMismatch,
		Message: fmt.Sprintf("rates are inconsistent at %s: already %s, %s requires %s", subject, existing, via, desired),
		Details: map[string]string{
			"subject":  subject,
			"existing": existing,
			"desired":  desired,
			"via":      via,
		},
	}
}

// NewNonIntegral reports a firing count still fractional after normalization.
func NewNonIntegral(subject, value string) *Error {
	return &Error{
		Kind:    KindInternal,
		Code:    CodeNonIntegral,
		Message: fmt.Sprintf("normalized value of %s is not integral: %s", subject, value),
		Details: map[string]string{"subject": subject, "value": value},
	}
}

// NewDeadlock reports actors that never became firable.
func NewDeadlock(stuck []string, cycles []string) *Error {
	e := &Error{
		Kind:    KindDeadlock,
		Code:    CodeDeadlock,
		Message: "model deadlocks: no actor can fire while firings remain",
		Details: map[string]string{"stuck": strings.Join(stuck, ",")},
	}
	if len(cycles) > 0 {
		e.Details["cycles"] = strings.Join(cycles, "; ")
	}
	return e
}

// NewInvariant reports a violated internal invariant.
func NewInvariant(format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Code: CodeInvariant, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches an underlying cause to e and returns it.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}
