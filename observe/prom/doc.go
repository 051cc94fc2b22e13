// Package prom provides a Prometheus-backed coordinator.Observer.
// It counts dispatches and unit outcomes per policy and records unit and
// dispatch latencies as histograms.
package prom
