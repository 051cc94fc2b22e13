package coordinator

import "sync/atomic"

type outcome struct {
	value string
	err   error
}

// slots holds one write-once outcome per request position. Each position is
// written only by the task that owns it; readers must wait for the scope
// barrier before reading.
type slots struct {
	outs []outcome
	set  []atomic.Bool
}

func newSlots(n int) *slots {
	return &slots{outs: make([]outcome, n), set: make([]atomic.Bool, n)}
}

// settle records the outcome for position i. A second settle of the same
// position is ignored and reported as false.
func (s *slots) settle(i int, value string, err error) bool {
	if !s.set[i].CompareAndSwap(false, true) {
		return false
	}
	s.outs[i] = outcome{value: value, err: err}
	return true
}

// at returns the outcome for position i. An unsettled position reads as a
// failure.
func (s *slots) at(i int) outcome {
	if !s.set[i].Load() {
		return outcome{err: errNotSettled}
	}
	return s.outs[i]
}

func (s *slots) len() int { return len(s.outs) }
