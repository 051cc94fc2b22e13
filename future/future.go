package future

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// Future is the eventual result of an asynchronous computation.
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// New returns a pending future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a future already settled with v.
func Completed[T any](v T) *Future[T] {
	f := New[T]()
	f.Resolve(v, nil)
	return f
}

// Failed returns a future already settled with err.
func Failed[T any](err error) *Future[T] {
	f := New[T]()
	var zero T
	f.Resolve(zero, err)
	return f
}

// Resolve settles the future. Only the first call has an effect; it reports
// whether this call settled the future.
func (f *Future[T]) Resolve(v T, err error) bool {
	settled := false
	f.once.Do(func() {
		f.value = v
		f.err = err
		settled = true
		close(f.done)
	})
	return settled
}

// Succeed settles the future with v.
func (f *Future[T]) Succeed(v T) bool { return f.Resolve(v, nil) }

// Fail settles the future with err.
func (f *Future[T]) Fail(err error) bool {
	var zero T
	return f.Resolve(zero, err)
}

// Done is closed once the future has settled.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// IsComplete reports whether the future has settled, without blocking.
func (f *Future[T]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until the future settles or ctx is done. Giving up on ctx
// leaves the future untouched; it still settles later.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
	}
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// PanicError is the error a future settles with when its computation panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Go runs fn on a new goroutine and settles the returned future with its
// result.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := New[T]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.Fail(&PanicError{Value: r, Stack: debug.Stack()})
			}
		}()
		v, err := fn(ctx)
		f.Resolve(v, err)
	}()
	return f
}
