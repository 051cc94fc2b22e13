package coordinator

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NetPo4ki/go-fanin/future"
	"github.com/NetPo4ki/go-fanin/scope"
	"github.com/NetPo4ki/go-fanin/unit"
)

// Coordinator dispatches requests. It holds no per-dispatch state and is safe
// for concurrent use.
type Coordinator struct {
	opts Options
	log  zerolog.Logger
	obs  Observer
}

func New(optFns ...Option) *Coordinator {
	c := &Coordinator{opts: defaultOptions()}
	for _, fn := range optFns {
		fn(&c.opts)
	}
	c.log = c.opts.Logger
	c.obs = c.opts.Observer
	return c
}

// Dispatch invokes units[i] with inputs[i] for every i concurrently and
// merges the outcomes under p. A malformed request is rejected with an
// ErrInvalidRequest error before any unit is invoked. Otherwise the returned
// future settles once every unit has settled; only FailFast can settle it
// with an error, which is then a *UnitFailure.
func (c *Coordinator) Dispatch(ctx context.Context, p Policy, units []unit.Unit, inputs []string) (*future.Future[Aggregate], error) {
	res := future.New[Aggregate]()
	if err := c.launch(ctx, p, units, inputs, func(agg Aggregate, err error) { res.Resolve(agg, err) }); err != nil {
		return nil, err
	}
	return res, nil
}

// DispatchFailFast settles with the delimiter-joined values when every unit
// succeeds, and with the cause of a failing unit otherwise.
func (c *Coordinator) DispatchFailFast(ctx context.Context, units []unit.Unit, inputs []string) (*future.Future[string], error) {
	res := future.New[string]()
	err := c.launch(ctx, FailFast(), units, inputs, func(agg Aggregate, err error) {
		res.Resolve(agg.Joined, err)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DispatchFailPartial settles with one entry per unit: its value or
// FailureMarker(unit ID). It never settles with an error.
func (c *Coordinator) DispatchFailPartial(ctx context.Context, units []unit.Unit, inputs []string) (*future.Future[[]string], error) {
	res := future.New[[]string]()
	err := c.launch(ctx, FailPartial(), units, inputs, func(agg Aggregate, _ error) {
		res.Succeed(agg.Positions)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DispatchFailSoft settles with the delimiter-joined values, each failed unit
// replaced by *fallback. A nil fallback is an invalid request. It never
// settles with an error.
func (c *Coordinator) DispatchFailSoft(ctx context.Context, units []unit.Unit, inputs []string, fallback *string) (*future.Future[string], error) {
	res := future.New[string]()
	err := c.launch(ctx, Policy{Mode: ModeFailSoft, Fallback: fallback}, units, inputs, func(agg Aggregate, _ error) {
		res.Succeed(agg.Joined)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// launch validates the request, fans out one task per position and hands
// the merged result to done on a separate goroutine.
func (c *Coordinator) launch(ctx context.Context, p Policy, units []unit.Unit, inputs []string, done func(Aggregate, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := newRequest(p, units, inputs)
	if err != nil {
		c.log.Warn().Err(err).Stringer("policy", p.Mode).Msg("dispatch rejected")
		return err
	}

	log := c.log.With().
		Str("dispatch_id", uuid.NewString()).
		Stringer("policy", p.Mode).
		Int("units", req.size()).
		Logger()

	// Invocations keep the caller's values but not its cancellation.
	runCtx := context.WithoutCancel(ctx)
	s := scope.New(runCtx, scope.WithMaxConcurrency(c.opts.MaxConcurrency))
	out := newSlots(req.size())

	c.notify(log, func(o Observer) { o.DispatchStarted(runCtx, p.Mode, req.size()) })
	log.Debug().Msg("dispatch started")
	start := time.Now()

	for i := range req.units {
		s.Go(func(ctx context.Context) error {
			return c.run(ctx, req, out, i, log)
		})
	}

	go func() {
		firstErr := s.Wait()
		agg, err := safeMerge(req, out, firstErr, c.opts.Delimiter)
		wait := time.Since(start)
		c.notify(log, func(o Observer) { o.DispatchSettled(runCtx, p.Mode, wait, err) })
		if err != nil {
			log.Error().Err(err).Dur("wait", wait).Msg("dispatch failed")
		} else {
			log.Debug().Dur("wait", wait).Msg("dispatch settled")
		}
		done(agg, err)
	}()
	return nil
}

// run invokes one unit, waits for its outcome and settles its position.
func (c *Coordinator) run(ctx context.Context, req *request, out *slots, i int, log zerolog.Logger) (err error) {
	id := req.ids[i]
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			uf := &UnitFailure{UnitID: id, Index: i, Cause: &future.PanicError{Value: r, Stack: debug.Stack()}}
			if out.settle(i, "", uf) {
				err = uf
			}
		}
	}()

	value, err := invoke(ctx, req.units[i], req.inputs[i]).Await(ctx)
	if err != nil {
		err = &UnitFailure{UnitID: id, Index: i, Cause: err}
	}
	out.settle(i, value, err)

	c.notify(log, func(o Observer) { o.UnitSettled(ctx, req.policy.Mode, id, time.Since(started), err) })
	if err != nil {
		ev := log.Debug()
		switch req.policy.Mode {
		case ModeFailPartial:
			ev = log.Info()
		case ModeFailSoft:
			ev = log.Warn()
		}
		ev.Err(err).Str("unit_id", id).Int("index", i).Msg(failureMessage(req.policy.Mode))
	}
	return err
}

// notify calls the observer, if any. A panicking observer is logged and
// otherwise ignored.
func (c *Coordinator) notify(log zerolog.Logger, fn func(Observer)) {
	if c.obs == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("observer panicked")
		}
	}()
	fn(c.obs)
}

// safeMerge turns a panic during merge into an error so the dispatch
// future always settles.
func safeMerge(req *request, out *slots, firstErr error, delim string) (agg Aggregate, err error) {
	defer func() {
		if r := recover(); r != nil {
			agg, err = Aggregate{Mode: req.policy.Mode}, &future.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return merge(req, out, firstErr, delim)
}

func failureMessage(m Mode) string {
	switch m {
	case ModeFailPartial:
		return "unit failure marked"
	case ModeFailSoft:
		return "unit failure masked by fallback"
	default:
		return "unit failed"
	}
}

// invoke shields the task from units that panic or return no future.
func invoke(ctx context.Context, u unit.Unit, input string) (f *future.Future[string]) {
	defer func() {
		if r := recover(); r != nil {
			f = future.Failed[string](&future.PanicError{Value: r})
		}
	}()
	if f = u.Invoke(ctx, input); f == nil {
		return future.Failed[string](errNilFuture)
	}
	return f
}
