package coordinator

import (
	"fmt"
	"strings"
)

// Mode selects one of the three merge policies.
type Mode int

const (
	ModeFailFast Mode = iota
	ModeFailPartial
	ModeFailSoft
)

func (m Mode) String() string {
	switch m {
	case ModeFailFast:
		return "fail-fast"
	case ModeFailPartial:
		return "fail-partial"
	case ModeFailSoft:
		return "fail-soft"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps a policy name to its Mode. Names are case-insensitive and
// accept either dashes or underscores.
func ParseMode(name string) (Mode, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-") {
	case "fail-fast", "failfast":
		return ModeFailFast, nil
	case "fail-partial", "failpartial":
		return ModeFailPartial, nil
	case "fail-soft", "failsoft":
		return ModeFailSoft, nil
	default:
		return 0, fmt.Errorf("unknown policy %q", name)
	}
}

// Policy is the closed set {FailFast, FailPartial, FailSoft(fallback)}.
// A FailSoft policy with a nil Fallback is rejected at dispatch.
type Policy struct {
	Mode     Mode
	Fallback *string
}

func FailFast() Policy { return Policy{Mode: ModeFailFast} }

func FailPartial() Policy { return Policy{Mode: ModeFailPartial} }

func FailSoft(fallback string) Policy { return Policy{Mode: ModeFailSoft, Fallback: &fallback} }

func (p Policy) String() string { return p.Mode.String() }
