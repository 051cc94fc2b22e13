package scope

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

type Option func(*Options)

type Options struct {
	PanicAsError   bool
	MaxConcurrency int
}

func defaultOptions() Options { return Options{PanicAsError: true} }

func WithPanicAsError(v bool) Option { return func(o *Options) { o.PanicAsError = v } }

// WithMaxConcurrency bounds the number of tasks running at once. n <= 0
// means unbounded.
func WithMaxConcurrency(n int) Option { return func(o *Options) { o.MaxConcurrency = n } }

// PanicError is recorded for a task that panicked while PanicAsError is set.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

type Scope struct {
	ctx      context.Context
	wg       sync.WaitGroup
	mu       sync.Mutex
	firstErr error

	opts Options
	lim  Limiter
}

func New(parent context.Context, optFns ...Option) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	s := &Scope{ctx: parent, opts: defaultOptions()}
	for _, fn := range optFns {
		fn(&s.opts)
	}
	if s.opts.MaxConcurrency > 0 {
		s.lim = newSemaphoreLimiter(s.opts.MaxConcurrency)
	}
	return s
}

func (s *Scope) Context() context.Context { return s.ctx }

// Go starts fn on its own goroutine. With a concurrency bound, fn waits for a
// free slot; if the scope context ends first, fn is skipped and the context
// error is recorded.
func (s *Scope) Go(fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if s.lim != nil {
			if err := s.lim.Acquire(s.ctx); err != nil {
				s.record(err)
				return
			}
			defer s.lim.Release()
		}
		defer func() {
			if r := recover(); r != nil {
				if !s.opts.PanicAsError {
					panic(r)
				}
				s.record(&PanicError{Value: r, Stack: debug.Stack()})
			}
		}()
		if err := fn(s.ctx); err != nil {
			s.record(err)
		}
	}()
}

// Wait blocks until every task has returned and reports the first error
// observed, or nil.
func (s *Scope) Wait() error {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstErr
}

func (s *Scope) record(err error) {
	s.mu.Lock()
	if s.firstErr == nil {
		s.firstErr = err
	}
	s.mu.Unlock()
}
