// Package event implements the declarative event DSL: a recursive
// tagged union evaluated against per-scenario trajectories produced by
// internal/scenario. Every node carries a string Type discriminator so
// an external NL-translator or a JSON store can round-trip definitions
// without a bespoke class hierarchy; evaluation dispatches on that tag.
package event

import (
	"math"

	"quantrisk/internal/engineerr"
	"quantrisk/internal/scenario"
)

// Type discriminates the tagged union's variants.
type Type string

const (
	ThresholdBreach Type = "threshold_breach"
	Compound        Type = "compound"
	Conditional     Type = "conditional"
	Sequence        Type = "sequence"
	AtLeastK        Type = "at_least_k"
)

// BoolOp is the compound node's AND/OR selector.
type BoolOp string

const (
	And BoolOp = "AND"
	Or  BoolOp = "OR"
)

// Event is the DSL's tagged-union node. Only the fields relevant to
// Type are meaningful; JSON tags follow the wire variant field names so
// definitions round-trip through an external store unchanged.
type Event struct {
	Type Type `json:"type"`

	// threshold_breach
	Variable      string         `json:"variable,omitempty"`
	Op            scenario.CompOp `json:"op,omitempty"`
	Threshold     float64        `json:"threshold,omitempty"`
	HorizonMonths float64        `json:"horizon_months,omitempty"`

	// compound
	BoolOp     BoolOp  `json:"bool_op,omitempty"`
	Conditions []Event `json:"conditions,omitempty"`

	// conditional
	Inner *Event `json:"event,omitempty"`
	Given *Event `json:"given,omitempty"`

	// sequence
	First        *Event  `json:"first,omitempty"`
	Then         *Event  `json:"then,omitempty"`
	MaxGapMonths float64 `json:"max_gap_months,omitempty"`

	// at_least_k
	K      int     `json:"k,omitempty"`
	Events []Event `json:"events,omitempty"`
}

// window is an inclusive [lo,hi] step-index range a threshold_breach
// leaf is restricted to; nil means the whole trajectory.
type window struct {
	lo, hi int
}

// Validate walks the tree checking that every leaf references a
// variable present in names, and that structural invariants hold
// (sequence.first must be a threshold_breach leaf; compound firsts are
// not supported).
func Validate(e *Event, names map[string]bool) error {
	switch e.Type {
	case ThresholdBreach:
		if !names[e.Variable] {
			return engineerr.Wrap(engineerr.UnknownVariable, "threshold_breach references unknown variable %q", e.Variable)
		}
		return nil
	case Compound:
		if e.BoolOp != And && e.BoolOp != Or {
			return engineerr.Wrap(engineerr.InvalidParameter, "compound bool_op must be AND or OR, got %q", e.BoolOp)
		}
		if len(e.Conditions) == 0 {
			return engineerr.Wrap(engineerr.InvalidParameter, "compound requires at least one condition")
		}
		for i := range e.Conditions {
			if err := Validate(&e.Conditions[i], names); err != nil {
				return err
			}
		}
		return nil
	case Conditional:
		if e.Inner == nil || e.Given == nil {
			return engineerr.Wrap(engineerr.InvalidParameter, "conditional requires event and given")
		}
		if e.Inner.Type == Conditional || e.Given.Type == Conditional {
			return engineerr.Wrap(engineerr.InvalidParameter, "conditional may not nest another conditional")
		}
		if err := Validate(e.Inner, names); err != nil {
			return err
		}
		return Validate(e.Given, names)
	case Sequence:
		if e.First == nil || e.Then == nil {
			return engineerr.Wrap(engineerr.InvalidParameter, "sequence requires first and then")
		}
		if e.First.Type != ThresholdBreach {
			return engineerr.Wrap(engineerr.InvalidParameter, "sequence.first must be a threshold_breach leaf, got %q", e.First.Type)
		}
		if e.MaxGapMonths < 0 {
			return engineerr.Wrap(engineerr.InvalidParameter, "max_gap_months must be >= 0")
		}
		if err := Validate(e.First, names); err != nil {
			return err
		}
		return Validate(e.Then, names)
	case AtLeastK:
		if e.K < 0 {
			return engineerr.Wrap(engineerr.InvalidParameter, "at_least_k.k must be >= 0")
		}
		if len(e.Events) == 0 {
			return engineerr.Wrap(engineerr.InvalidParameter, "at_least_k requires at least one event")
		}
		for i := range e.Events {
			if err := Validate(&e.Events[i], names); err != nil {
				return err
			}
		}
		return nil
	default:
		return engineerr.Wrap(engineerr.InvalidParameter, "unknown event type %q", e.Type)
	}
}

// Evaluate returns whether e holds for a single scenario's trajectories.
// Conditional is not a valid argument here; it is handled at the
// aggregate level by Probability.
func Evaluate(e *Event, traj *scenario.Trajectories, scenarioIdx int, dtMonths float64) (bool, error) {
	return evaluate(e, traj, scenarioIdx, dtMonths, nil)
}

func evaluate(e *Event, traj *scenario.Trajectories, scenarioIdx int, dtMonths float64, w *window) (bool, error) {
	switch e.Type {
	case ThresholdBreach:
		return evalThreshold(e, traj, scenarioIdx, dtMonths, w)
	case Compound:
		switch e.BoolOp {
		case And:
			for i := range e.Conditions {
				ok, err := evaluate(&e.Conditions[i], traj, scenarioIdx, dtMonths, w)
				if err != nil {
					return false, err
				}
				if !ok {
					return false, nil
				}
			}
			return true, nil
		case Or:
			for i := range e.Conditions {
				ok, err := evaluate(&e.Conditions[i], traj, scenarioIdx, dtMonths, w)
				if err != nil {
					return false, err
				}
				if ok {
					return true, nil
				}
			}
			return false, nil
		default:
			return false, engineerr.Wrap(engineerr.InvalidParameter, "compound bool_op must be AND or OR, got %q", e.BoolOp)
		}
	case Conditional:
		return false, engineerr.Wrap(engineerr.InvalidParameter, "conditional may only appear as the top-level event")
	case Sequence:
		return evalSequence(e, traj, scenarioIdx, dtMonths)
	case AtLeastK:
		count := 0
		for i := range e.Events {
			ok, err := evaluate(&e.Events[i], traj, scenarioIdx, dtMonths, w)
			if err != nil {
				return false, err
			}
			if ok {
				count++
			}
		}
		return count >= e.K, nil
	default:
		return false, engineerr.Wrap(engineerr.InvalidParameter, "unknown event type %q", e.Type)
	}
}

func evalThreshold(e *Event, traj *scenario.Trajectories, scenarioIdx int, dtMonths float64, w *window) (bool, error) {
	values := traj.Value(scenarioIdx, e.Variable)
	if values == nil {
		return false, engineerr.Wrap(engineerr.UnknownVariable, "threshold_breach references unknown variable %q", e.Variable)
	}
	lo, hi := 0, len(values)-1
	if e.HorizonMonths > 0 {
		limit := int(math.Ceil(e.HorizonMonths / dtMonths))
		if limit < hi {
			hi = limit
		}
	}
	if w != nil {
		if w.lo > lo {
			lo = w.lo
		}
		if w.hi < hi {
			hi = w.hi
		}
	}
	for t := lo; t <= hi && t < len(values); t++ {
		if e.Op.Compare(values[t], e.Threshold) {
			return true, nil
		}
	}
	return false, nil
}

// evalSequence finds t1 = min index where e.First holds (threshold-only
// first-passage), then checks whether e.Then holds anywhere in
// [t1, t1 + ceil(max_gap_months/dt_months)].
func evalSequence(e *Event, traj *scenario.Trajectories, scenarioIdx int, dtMonths float64) (bool, error) {
	values := traj.Value(scenarioIdx, e.First.Variable)
	if values == nil {
		return false, engineerr.Wrap(engineerr.UnknownVariable, "sequence.first references unknown variable %q", e.First.Variable)
	}
	t1 := -1
	lo, hi := 0, len(values)-1
	if e.First.HorizonMonths > 0 {
		limit := int(math.Ceil(e.First.HorizonMonths / dtMonths))
		if limit < hi {
			hi = limit
		}
	}
	for t := lo; t <= hi; t++ {
		if e.First.Op.Compare(values[t], e.First.Threshold) {
			t1 = t
			break
		}
	}
	if t1 < 0 {
		return false, nil
	}
	gapSteps := int(math.Ceil(e.MaxGapMonths / dtMonths))
	w := &window{lo: t1, hi: t1 + gapSteps}
	return evaluate(e.Then, traj, scenarioIdx, dtMonths, w)
}
