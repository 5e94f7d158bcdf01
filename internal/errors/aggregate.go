package errors

import (
	"fmt"
	"strings"
)

// Aggregate collects fatal per-document and per-package failures so a build
// can report all of them instead of stopping at the first. A failed article
// must not hide a failed reference table elsewhere.
type Aggregate struct {
	errs []error
}

// NewAggregate returns an empty aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{}
}

// Add records a failure. Nil errors are ignored so callers can add
// unconditionally.
func (a *Aggregate) Add(err error) {
	if err == nil {
		return
	}
	a.errs = append(a.errs, err)
}

// Len returns the number of recorded failures.
func (a *Aggregate) Len() int {
	return len(a.errs)
}

// Errors returns the recorded failures in insertion order.
func (a *Aggregate) Errors() []error {
	out := make([]error, len(a.errs))
	copy(out, a.errs)
	return out
}

// ErrOrNil returns the aggregate as an error when it holds at least one
// failure, or nil otherwise. Callers can use the usual err != nil check.
func (a *Aggregate) ErrOrNil() error {
	if a == nil || len(a.errs) == 0 {
		return nil
	}
	return a
}

// Error implements the error interface, listing every recorded failure.
func (a *Aggregate) Error() string {
	if len(a.errs) == 1 {
		return a.errs[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d failures:", len(a.errs))
	for _, err := range a.errs {
		sb.WriteString("\n  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Unwrap exposes the recorded failures to errors.Is / errors.As.
func (a *Aggregate) Unwrap() []error {
	return a.Errors()
}
