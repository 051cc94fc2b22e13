package coordinator

import (
	"context"
	"time"
)

// Observer receives lifecycle events of every dispatch. UnitSettled runs on
// the unit's task goroutine and DispatchSettled on the merge goroutine, so
// implementations must be safe for concurrent use.
type Observer interface {
	DispatchStarted(ctx context.Context, mode Mode, units int)
	UnitSettled(ctx context.Context, mode Mode, unitID string, dur time.Duration, err error)
	DispatchSettled(ctx context.Context, mode Mode, wait time.Duration, err error)
}

// Observers combines several observers into one; nil entries are skipped.
func Observers(obs ...Observer) Observer {
	m := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

type multiObserver []Observer

func (m multiObserver) DispatchStarted(ctx context.Context, mode Mode, units int) {
	for _, o := range m {
		o.DispatchStarted(ctx, mode, units)
	}
}

func (m multiObserver) UnitSettled(ctx context.Context, mode Mode, unitID string, dur time.Duration, err error) {
	for _, o := range m {
		o.UnitSettled(ctx, mode, unitID, dur, err)
	}
}

func (m multiObserver) DispatchSettled(ctx context.Context, mode Mode, wait time.Duration, err error) {
	for _, o := range m {
		o.DispatchSettled(ctx, mode, wait, err)
	}
}
