// Package engineerr defines the typed error kinds the simulation engine
// reports. Errors are plain values wrapping a sentinel with fmt.Errorf's
// %w, never exceptions used for control flow.
package engineerr

import (
	"errors"
	"fmt"
)

// Kind sentinels. Use errors.Is against these to branch on failure class.
var (
	// InvalidParameter marks a domain violation caught at input validation
	// (sigma<=0, nu<=0, min>=max, non-positive n_scenarios/horizon, ...).
	InvalidParameter = errors.New("invalid parameter")

	// CorrelationIllDefined marks a correlation matrix that failed
	// symmetry/PD/value checks even after adjustment.
	CorrelationIllDefined = errors.New("correlation matrix ill-defined")

	// CopulaDimensionUnsupported marks a non-Gaussian/non-Student-t
	// copula requested for d>2.
	CopulaDimensionUnsupported = errors.New("copula dimension unsupported")

	// UnknownVariable marks an event or covenant referencing a variable
	// absent from the request's variable list.
	UnknownVariable = errors.New("unknown variable")

	// InsufficientData marks parameter estimation given too few
	// observations, or a Bayesian posterior queried with alpha+beta=0.
	InsufficientData = errors.New("insufficient data")

	// NoObservations marks a conditional probability whose denominator
	// (count of the "given" event) is zero.
	NoObservations = errors.New("no observations")

	// NumericalInstability marks a Cholesky factorization that failed
	// even after adjust-to-PD.
	NumericalInstability = errors.New("numerical instability")

	// Cancelled marks cooperative cancellation via a context checked at
	// scenario boundaries.
	Cancelled = errors.New("cancelled")
)

// Wrap attaches context to a sentinel kind, e.g. Wrap(InvalidParameter, "sigma=%v", s).
func Wrap(kind error, format string, args ...any) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &wrapped{kind: kind, msg: msg}
}

type wrapped struct {
	kind error
	msg  string
}

func (w *wrapped) Error() string { return w.msg + ": " + w.kind.Error() }
func (w *wrapped) Unwrap() error { return w.kind }
