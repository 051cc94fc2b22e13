package unit

//go:generate mockgen -source=unit.go -destination=mocks/mock_unit.go -package=mocks

import (
	"context"

	"github.com/NetPo4ki/go-fanin/future"
)

// Unit is an addressable piece of work. Invoke starts execution immediately
// and returns a future that settles with the unit's outcome.
type Unit interface {
	// ID is stable for the lifetime of the unit.
	ID() string
	Invoke(ctx context.Context, input string) *future.Future[string]
}

// Func adapts a synchronous function into a Unit.
type Func struct {
	id string
	fn func(ctx context.Context, input string) (string, error)
}

// NewFunc returns a Unit that runs fn on its own goroutine per invocation.
func NewFunc(id string, fn func(ctx context.Context, input string) (string, error)) *Func {
	return &Func{id: id, fn: fn}
}

func (f *Func) ID() string { return f.id }

func (f *Func) Invoke(ctx context.Context, input string) *future.Future[string] {
	return future.Go(ctx, func(ctx context.Context) (string, error) {
		return f.fn(ctx, input)
	})
}
