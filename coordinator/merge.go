package coordinator

import (
	"errors"
	"strings"
)

// DefaultDelimiter joins positions for FailFast and FailSoft.
const DefaultDelimiter = "\n"

// Aggregate is the merged result of one dispatch.
type Aggregate struct {
	Mode Mode
	// Positions has one entry per request position, in request order: the
	// unit's value, a failure marker (FailPartial) or the fallback (FailSoft).
	Positions []string
	// Joined is Positions joined by the delimiter. It is empty for
	// FailPartial, whose result is the sequence itself.
	Joined string
}

// FailureMarker is the FailPartial placeholder for a failed unit.
func FailureMarker(unitID string) string { return "[FAILED: " + unitID + "]" }

// merge reduces the settled slots under the request's policy. firstErr is the
// first unit failure observed in completion order, if any.
func merge(req *request, out *slots, firstErr error, delim string) (Aggregate, error) {
	n := out.len()
	agg := Aggregate{Mode: req.policy.Mode, Positions: make([]string, n)}

	switch req.policy.Mode {
	case ModeFailFast:
		for i := 0; i < n; i++ {
			o := out.at(i)
			if o.err != nil {
				return Aggregate{}, failFastCause(req, firstErr, i, o.err)
			}
			agg.Positions[i] = o.value
		}
		agg.Joined = strings.Join(agg.Positions, delim)

	case ModeFailPartial:
		for i := 0; i < n; i++ {
			o := out.at(i)
			if o.err != nil {
				agg.Positions[i] = FailureMarker(req.ids[i])
				continue
			}
			agg.Positions[i] = o.value
		}

	case ModeFailSoft:
		fallback := *req.policy.Fallback
		for i := 0; i < n; i++ {
			o := out.at(i)
			if o.err != nil {
				agg.Positions[i] = fallback
				continue
			}
			agg.Positions[i] = o.value
		}
		agg.Joined = strings.Join(agg.Positions, delim)
	}
	return agg, nil
}

// failFastCause prefers the first failure observed; any real unit failure
// is acceptable, a synthesized one is not. A position that was never settled
// carries no cause of its own, so the task's recorded error stands in.
func failFastCause(req *request, firstErr error, i int, err error) error {
	var uf *UnitFailure
	if errors.As(firstErr, &uf) {
		return uf
	}
	if errors.Is(err, errNotSettled) && firstErr != nil {
		return &UnitFailure{UnitID: req.ids[i], Index: i, Cause: firstErr}
	}
	return asUnitFailure(req, i, err)
}

func asUnitFailure(req *request, i int, err error) *UnitFailure {
	var uf *UnitFailure
	if errors.As(err, &uf) {
		return uf
	}
	return &UnitFailure{UnitID: req.ids[i], Index: i, Cause: err}
}
