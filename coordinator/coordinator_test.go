package coordinator_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/NetPo4ki/go-fanin/coordinator"
	"github.com/NetPo4ki/go-fanin/future"
	"github.com/NetPo4ki/go-fanin/unit"
)

const awaitTimeout = 5 * time.Second

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fixture builds n services named service1..serviceN with inputs msg1..msgN.
// Positions listed in failing (zero-based) are configured to fail.
func fixture(n int, failing ...int) ([]unit.Unit, []string) {
	fail := make(map[int]bool, len(failing))
	for _, i := range failing {
		fail[i] = true
	}
	units := make([]unit.Unit, n)
	inputs := make([]string, n)
	for i := 0; i < n; i++ {
		units[i] = unit.NewService(fmt.Sprintf("service%d", i+1),
			unit.WithDelay(time.Duration(1+i%3)*time.Millisecond),
			unit.WithJitter(2*time.Millisecond),
			unit.WithFailure(fail[i]))
		inputs[i] = fmt.Sprintf("msg%d", i+1)
	}
	return units, inputs
}

func await[T any](t *testing.T, f *future.Future[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), awaitTimeout)
	defer cancel()
	v, err := f.Await(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("dispatch did not settle within %v", awaitTimeout)
	}
	return v, err
}

// ---- Fail-Fast ----

func TestFailFastAllSucceed(t *testing.T) {
	t.Parallel()
	units, inputs := fixture(3)
	f, err := coordinator.New().DispatchFailFast(context.Background(), units, inputs)
	require.NoError(t, err)

	got, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, "service1: MSG1\nservice2: MSG2\nservice3: MSG3", got)
}

func TestFailFastOneFails(t *testing.T) {
	t.Parallel()
	units, inputs := fixture(3, 1)
	f, err := coordinator.New().DispatchFailFast(context.Background(), units, inputs)
	require.NoError(t, err)

	got, err := await(t, f)
	require.Error(t, err)
	assert.Empty(t, got)

	var uf *coordinator.UnitFailure
	require.ErrorAs(t, err, &uf)
	assert.Equal(t, "service2", uf.UnitID)
	assert.Equal(t, 1, uf.Index)
	assert.ErrorIs(t, err, coordinator.ErrUnitFailure)
	assert.ErrorIs(t, err, unit.ErrInjectedFailure)
	assert.Contains(t, err.Error(), "service2")
}

func TestFailFastMultipleFail(t *testing.T) {
	t.Parallel()
	units, inputs := fixture(3, 0, 2)
	f, err := coordinator.New().DispatchFailFast(context.Background(), units, inputs)
	require.NoError(t, err)

	_, err = await(t, f)
	var uf *coordinator.UnitFailure
	require.ErrorAs(t, err, &uf)
	assert.Contains(t, []string{"service1", "service3"}, uf.UnitID)
	assert.ErrorIs(t, err, unit.ErrInjectedFailure)
}

func TestFailFastSingleUnit(t *testing.T) {
	t.Parallel()
	solo := unit.NewService("solo", unit.WithDelay(time.Millisecond))
	f, err := coordinator.New().DispatchFailFast(context.Background(), []unit.Unit{solo}, []string{"single"})
	require.NoError(t, err)

	got, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, "solo: SINGLE", got)
}

func TestFailFastWaitsForEveryUnit(t *testing.T) {
	t.Parallel()
	var slowDone atomic.Bool
	fast := unit.NewFunc("fast", func(_ context.Context, _ string) (string, error) {
		return "", errors.New("fast failure")
	})
	slow := unit.NewFunc("slow", func(_ context.Context, in string) (string, error) {
		time.Sleep(40 * time.Millisecond)
		slowDone.Store(true)
		return in, nil
	})

	f, err := coordinator.New().DispatchFailFast(context.Background(), []unit.Unit{fast, slow}, []string{"a", "b"})
	require.NoError(t, err)
	_, err = await(t, f)
	require.Error(t, err)
	assert.True(t, slowDone.Load(), "fail-fast must not conclude before every unit settled")
}

// ---- Fail-Partial ----

func TestFailPartialAllSucceed(t *testing.T) {
	t.Parallel()
	units, inputs := fixture(3)
	f, err := coordinator.New().DispatchFailPartial(context.Background(), units, inputs)
	require.NoError(t, err)

	got, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, []string{"service1: MSG1", "service2: MSG2", "service3: MSG3"}, got)
}

func TestFailPartialOneFails(t *testing.T) {
	t.Parallel()
	units, inputs := fixture(3, 1)
	f, err := coordinator.New().DispatchFailPartial(context.Background(), units, inputs)
	require.NoError(t, err)

	got, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, []string{"service1: MSG1", "[FAILED: service2]", "service3: MSG3"}, got)
}

func TestFailPartialMultipleFail(t *testing.T) {
	t.Parallel()
	units, inputs := fixture(4, 0, 2)
	f, err := coordinator.New().DispatchFailPartial(context.Background(), units, inputs)
	require.NoError(t, err)

	got, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, []string{"[FAILED: service1]", "service2: MSG2", "[FAILED: service3]", "service4: MSG4"}, got)
}

func TestFailPartialAllFail(t *testing.T) {
	t.Parallel()
	units, inputs := fixture(2, 0, 1)
	f, err := coordinator.New().DispatchFailPartial(context.Background(), units, inputs)
	require.NoError(t, err)

	got, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, []string{"[FAILED: service1]", "[FAILED: service2]"}, got)
}

// ---- Fail-Soft ----

func fallback(s string) *string { return &s }

func TestFailSoftAllSucceed(t *testing.T) {
	t.Parallel()
	units, inputs := fixture(3)
	f, err := coordinator.New().DispatchFailSoft(context.Background(), units, inputs, fallback("FALLBACK"))
	require.NoError(t, err)

	got, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, "service1: MSG1\nservice2: MSG2\nservice3: MSG3", got)
	assert.NotContains(t, got, "FALLBACK")
}

func TestFailSoftOneFails(t *testing.T) {
	t.Parallel()
	units, inputs := fixture(3, 1)
	f, err := coordinator.New().DispatchFailSoft(context.Background(), units, inputs, fallback("FALLBACK_VALUE"))
	require.NoError(t, err)

	got, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, "service1: MSG1\nFALLBACK_VALUE\nservice3: MSG3", got)
}

func TestFailSoftAllFail(t *testing.T) {
	t.Parallel()
	units, inputs := fixture(2, 0, 1)
	f, err := coordinator.New().DispatchFailSoft(context.Background(), units, inputs, fallback("DEFAULT"))
	require.NoError(t, err)

	got, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, "DEFAULT\nDEFAULT", got)
}

func TestFailSoftMultipleFail(t *testing.T) {
	t.Parallel()
	units, inputs := fixture(4, 1, 3)
	f, err := coordinator.New().DispatchFailSoft(context.Background(), units, inputs, fallback("N/A"))
	require.NoError(t, err)

	got, err := await(t, f)
	require.NoError(t, err)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"service1: MSG1", "N/A", "service3: MSG3", "N/A"}, lines)
}

func TestFailSoftEmptyFallback(t *testing.T) {
	t.Parallel()
	units, inputs := fixture(3, 2)
	f, err := coordinator.New().DispatchFailSoft(context.Background(), units, inputs, fallback(""))
	require.NoError(t, err)

	got, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, "service1: MSG1\nservice2: MSG2\n", got)
	assert.Len(t, strings.Split(got, "\n"), 3)
}

// ---- scenarios shared by all three policies ----

func TestScenarioAllSucceedAcrossPolicies(t *testing.T) {
	t.Parallel()
	units, _ := fixture(3)
	inputs := []string{"a", "b", "c"}
	want := []string{"service1: A", "service2: B", "service3: C"}
	c := coordinator.New()

	ff, err := c.DispatchFailFast(context.Background(), units, inputs)
	require.NoError(t, err)
	fp, err := c.DispatchFailPartial(context.Background(), units, inputs)
	require.NoError(t, err)
	fs, err := c.DispatchFailSoft(context.Background(), units, inputs, fallback("X"))
	require.NoError(t, err)

	joined, err := await(t, ff)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(want, "\n"), joined)

	partial, err := await(t, fp)
	require.NoError(t, err)
	assert.Equal(t, want, partial)

	soft, err := await(t, fs)
	require.NoError(t, err)
	assert.Equal(t, joined, soft)
}

func TestOutputFollowsRequestOrderNotCompletionOrder(t *testing.T) {
	t.Parallel()
	const n = 5
	units := make([]unit.Unit, n)
	inputs := make([]string, n)
	for i := 0; i < n; i++ {
		// earlier positions finish last
		units[i] = unit.NewService(fmt.Sprintf("s%d", i), unit.WithDelay(time.Duration(n-i)*8*time.Millisecond), unit.WithJitter(0))
		inputs[i] = fmt.Sprintf("in%d", i)
	}
	f, err := coordinator.New().DispatchFailPartial(context.Background(), units, inputs)
	require.NoError(t, err)

	got, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, []string{"s0: IN0", "s1: IN1", "s2: IN2", "s3: IN3", "s4: IN4"}, got)
}

func TestUnitsLaunchConcurrently(t *testing.T) {
	t.Parallel()
	const n = 4
	var started atomic.Int32
	all := make(chan struct{})
	units := make([]unit.Unit, n)
	inputs := make([]string, n)
	for i := 0; i < n; i++ {
		units[i] = unit.NewFunc(fmt.Sprintf("u%d", i), func(_ context.Context, in string) (string, error) {
			if started.Add(1) == n {
				close(all)
			}
			// each unit only finishes once every unit has started
			select {
			case <-all:
				return in, nil
			case <-time.After(2 * time.Second):
				return "", errors.New("units were not launched concurrently")
			}
		})
		inputs[i] = fmt.Sprint(i)
	}
	f, err := coordinator.New().DispatchFailFast(context.Background(), units, inputs)
	require.NoError(t, err)
	got, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n2\n3", got)
}

func TestDispatchAggregate(t *testing.T) {
	t.Parallel()
	units, inputs := fixture(3, 1)
	c := coordinator.New()

	f, err := c.Dispatch(context.Background(), coordinator.FailSoft("X"), units, inputs)
	require.NoError(t, err)
	agg, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, coordinator.ModeFailSoft, agg.Mode)
	assert.Equal(t, []string{"service1: MSG1", "X", "service3: MSG3"}, agg.Positions)
	assert.Equal(t, "service1: MSG1\nX\nservice3: MSG3", agg.Joined)

	f, err = c.Dispatch(context.Background(), coordinator.FailPartial(), units, inputs)
	require.NoError(t, err)
	agg, err = await(t, f)
	require.NoError(t, err)
	assert.Equal(t, []string{"service1: MSG1", "[FAILED: service2]", "service3: MSG3"}, agg.Positions)
	assert.Empty(t, agg.Joined)

	f, err = c.Dispatch(context.Background(), coordinator.FailFast(), units, inputs)
	require.NoError(t, err)
	agg, err = await(t, f)
	require.ErrorIs(t, err, coordinator.ErrUnitFailure)
	assert.Nil(t, agg.Positions)
}

func TestCustomDelimiter(t *testing.T) {
	t.Parallel()
	units, inputs := fixture(3, 0)
	c := coordinator.New(coordinator.WithDelimiter(", "))
	f, err := c.DispatchFailSoft(context.Background(), units, inputs, fallback("-"))
	require.NoError(t, err)
	got, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, "-, service2: MSG2, service3: MSG3", got)
}

func TestMaxConcurrencyKeepsOrder(t *testing.T) {
	t.Parallel()
	const n = 6
	var cur, maxSeen atomic.Int32
	units := make([]unit.Unit, n)
	inputs := make([]string, n)
	for i := 0; i < n; i++ {
		units[i] = unit.NewFunc(fmt.Sprintf("u%d", i), func(_ context.Context, in string) (string, error) {
			c := cur.Add(1)
			defer cur.Add(-1)
			for {
				m := maxSeen.Load()
				if c <= m || maxSeen.CompareAndSwap(m, c) {
					break
				}
			}
			time.Sleep(3 * time.Millisecond)
			return in, nil
		})
		inputs[i] = fmt.Sprint(i)
	}
	c := coordinator.New(coordinator.WithMaxConcurrency(2))
	f, err := c.DispatchFailPartial(context.Background(), units, inputs)
	require.NoError(t, err)
	got, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2", "3", "4", "5"}, got)
	assert.LessOrEqual(t, maxSeen.Load(), int32(2))
}

// ---- deadlines and cancellation ----

func TestCallerDeadlineAbandonsWaiting(t *testing.T) {
	t.Parallel()
	slow := unit.NewService("slow", unit.WithDelay(80*time.Millisecond), unit.WithJitter(0))
	f, err := coordinator.New().DispatchFailFast(context.Background(), []unit.Unit{slow}, []string{"x"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err = f.Await(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// the invocation is not stopped by the abandoned wait
	got, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, "slow: X", got)
}

func TestCallerCancellationDoesNotStopInvocations(t *testing.T) {
	t.Parallel()
	units, inputs := fixture(3)
	ctx, cancel := context.WithCancel(context.Background())
	f, err := coordinator.New().DispatchFailPartial(ctx, units, inputs)
	require.NoError(t, err)
	cancel()

	got, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, []string{"service1: MSG1", "service2: MSG2", "service3: MSG3"}, got)
}

// ---- misbehaving units ----

type panicUnit struct{ id string }

func (u panicUnit) ID() string { return u.id }
func (u panicUnit) Invoke(context.Context, string) *future.Future[string] {
	panic("invoke exploded")
}

type nilUnit struct{ id string }

func (u nilUnit) ID() string                                          { return u.id }
func (u nilUnit) Invoke(context.Context, string) *future.Future[string] { return nil }

func TestMisbehavingUnitsBecomeFailures(t *testing.T) {
	t.Parallel()
	ok := unit.NewService("ok", unit.WithDelay(time.Millisecond))
	panicking := unit.NewFunc("panics", func(context.Context, string) (string, error) { panic("in body") })
	units := []unit.Unit{ok, panicUnit{id: "boom"}, nilUnit{id: "empty"}, panicking}
	inputs := []string{"a", "b", "c", "d"}
	c := coordinator.New()

	fp, err := c.DispatchFailPartial(context.Background(), units, inputs)
	require.NoError(t, err)
	got, err := await(t, fp)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok: A", "[FAILED: boom]", "[FAILED: empty]", "[FAILED: panics]"}, got)

	ff, err := c.DispatchFailFast(context.Background(), units, inputs)
	require.NoError(t, err)
	_, err = await(t, ff)
	var uf *coordinator.UnitFailure
	require.ErrorAs(t, err, &uf)
	assert.Contains(t, []string{"boom", "empty", "panics"}, uf.UnitID)
}

// ---- logging ----

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLogsMaskedFailures(t *testing.T) {
	t.Parallel()
	var buf syncBuffer
	c := coordinator.New(coordinator.WithLogger(zerolog.New(&buf).Level(zerolog.InfoLevel)))
	units, inputs := fixture(3, 1)

	f, err := c.DispatchFailSoft(context.Background(), units, inputs, fallback("X"))
	require.NoError(t, err)
	_, err = await(t, f)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "unit failure masked by fallback")
	assert.Contains(t, out, `"unit_id":"service2"`)
	assert.Contains(t, out, `"policy":"fail-soft"`)
	assert.Contains(t, out, `"dispatch_id":`)
}

func TestLogsRejectedRequest(t *testing.T) {
	t.Parallel()
	var buf syncBuffer
	c := coordinator.New(coordinator.WithLogger(zerolog.New(&buf)))
	_, err := c.DispatchFailFast(context.Background(), nil, nil)
	require.ErrorIs(t, err, coordinator.ErrInvalidRequest)
	assert.Contains(t, buf.String(), "dispatch rejected")
}
