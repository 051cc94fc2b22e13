package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NetPo4ki/go-fanin/coordinator"
)

const (
	EventDispatchStarted = "fanin.dispatch.started"
	EventUnitSettled     = "fanin.unit.settled"
	EventDispatchSettled = "fanin.dispatch.settled"
)

// Events is a coordinator.Observer that annotates the caller's span. Without
// a recording span in the context every hook is a no-op.
type Events struct{}

// New returns an Events observer.
func New() *Events { return &Events{} }

func (*Events) DispatchStarted(ctx context.Context, mode coordinator.Mode, units int) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(EventDispatchStarted, trace.WithAttributes(
		attribute.String("fanin.policy", mode.String()),
		attribute.Int("fanin.units", units),
	))
}

func (*Events) UnitSettled(ctx context.Context, mode coordinator.Mode, unitID string, dur time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("fanin.policy", mode.String()),
		attribute.String("fanin.unit.id", unitID),
		attribute.Int64("fanin.unit.duration_ms", dur.Milliseconds()),
		attribute.Bool("fanin.unit.failed", err != nil),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("fanin.unit.error", err.Error()))
	}
	span.AddEvent(EventUnitSettled, trace.WithAttributes(attrs...))
}

// DispatchSettled marks the span as failed when a FailFast dispatch surfaces
// a unit failure.
func (*Events) DispatchSettled(ctx context.Context, mode coordinator.Mode, wait time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(EventDispatchSettled, trace.WithAttributes(
		attribute.String("fanin.policy", mode.String()),
		attribute.Int64("fanin.wait_ms", wait.Milliseconds()),
		attribute.Bool("fanin.failed", err != nil),
	))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
