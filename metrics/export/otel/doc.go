// Package otel bridges authclient counters into an OpenTelemetry Meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per client counter
// and one Int64ObservableGauge per latency bucket. A single callback reads
// [authclient.Client.MetricsSnapshot] on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate client state.
package otel
