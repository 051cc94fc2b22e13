// Package otel provides an OpenTelemetry coordinator.Observer.
// It adds span events (dispatch started, unit settled, dispatch settled) to
// the span carried by the dispatch context, and records surfaced failures.
package otel
