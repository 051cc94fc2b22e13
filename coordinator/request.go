package coordinator

import (
	"fmt"

	"github.com/NetPo4ki/go-fanin/unit"
)

// request is a validated dispatch call. It is never mutated after
// construction.
type request struct {
	policy Policy
	units  []unit.Unit
	ids    []string
	inputs []string
}

func newRequest(p Policy, units []unit.Unit, inputs []string) (*request, error) {
	switch {
	case units == nil:
		return nil, invalid("units", "cannot be nil")
	case inputs == nil:
		return nil, invalid("inputs", "cannot be nil")
	case len(units) == 0:
		return nil, invalid("units", "cannot be empty")
	case len(inputs) == 0:
		return nil, invalid("inputs", "cannot be empty")
	case len(units) != len(inputs):
		return nil, invalid("inputs", "units and inputs must have the same size: units=%d, inputs=%d", len(units), len(inputs))
	}
	for i, u := range units {
		if u == nil {
			return nil, invalid("units", "unit at position %d is nil", i)
		}
	}
	switch p.Mode {
	case ModeFailFast, ModeFailPartial:
	case ModeFailSoft:
		if p.Fallback == nil {
			return nil, invalid("fallback", "cannot be nil")
		}
	default:
		return nil, invalid("policy", "unknown policy %v", p.Mode)
	}

	// IDs are read once, up front, so nothing after launch calls back into
	// the unit except Invoke.
	ids := make([]string, len(units))
	for i, u := range units {
		id, err := unitID(u)
		if err != nil {
			return nil, invalid("units", "unit at position %d: %v", i, err)
		}
		ids[i] = id
	}
	return &request{
		policy: p,
		units:  append([]unit.Unit(nil), units...),
		ids:    ids,
		inputs: append([]string(nil), inputs...),
	}, nil
}

func (r *request) size() int { return len(r.units) }

func unitID(u unit.Unit) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ID panicked: %v", r)
		}
	}()
	return u.ID(), nil
}
