// Package unit defines the asynchronous unit of work consumed by the
// coordinator, a function adapter and a simulated remote service with
// configurable latency and failure injection.
package unit
