package unit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"

	"github.com/NetPo4ki/go-fanin/future"
)

// ErrInjectedFailure is wrapped by every failure a Service was told to produce.
var ErrInjectedFailure = errors.New("injected failure")

const (
	defaultDelay  = 100 * time.Millisecond
	defaultJitter = 50 * time.Millisecond
)

// Service simulates a remote microservice. Each invocation sleeps for the
// configured delay plus a random jitter, then either upper-cases its input or
// fails. Settings can be changed while invocations are in flight.
type Service struct {
	id          string
	delay       atomic.Int64
	jitter      atomic.Int64
	failing     atomic.Bool
	invocations atomic.Int64
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithDelay sets the base processing time.
func WithDelay(d time.Duration) ServiceOption {
	return func(s *Service) { s.delay.Store(int64(d)) }
}

// WithJitter sets the upper bound of the random extra processing time.
func WithJitter(d time.Duration) ServiceOption {
	return func(s *Service) { s.jitter.Store(int64(d)) }
}

// WithFailure makes every invocation fail.
func WithFailure(fail bool) ServiceOption {
	return func(s *Service) { s.failing.Store(fail) }
}

// NewService returns a Service identified by id.
func NewService(id string, opts ...ServiceOption) *Service {
	s := &Service{id: id}
	s.delay.Store(int64(defaultDelay))
	s.jitter.Store(int64(defaultJitter))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ID() string { return s.id }

// SetFailing toggles failure injection for subsequent invocations.
func (s *Service) SetFailing(fail bool) { s.failing.Store(fail) }

// SetDelay changes the base processing time for subsequent invocations.
func (s *Service) SetDelay(d time.Duration) { s.delay.Store(int64(d)) }

// Invocations reports how many times Invoke has been called.
func (s *Service) Invocations() int64 { return s.invocations.Load() }

// Invoke starts processing input asynchronously.
func (s *Service) Invoke(ctx context.Context, input string) *future.Future[string] {
	s.invocations.Add(1)
	wait := time.Duration(s.delay.Load())
	if j := time.Duration(s.jitter.Load()); j > 0 {
		wait += rand.N(j)
	}
	fail := s.failing.Load()
	return future.Go(ctx, func(ctx context.Context) (string, error) {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", fmt.Errorf("service %s interrupted: %w", s.id, ctx.Err())
		}
		if fail {
			return "", fmt.Errorf("service %s failed processing %q: %w", s.id, input, ErrInjectedFailure)
		}
		return s.id + ": " + strings.ToUpper(input), nil
	})
}

func (s *Service) String() string { return "Service{" + s.id + "}" }
