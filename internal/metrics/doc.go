// Package metrics provides lock-free counters and a request latency histogram
// for authclient observability.
//
// # Design
//
// Counters live in cache-line-padded uint64 slots and are incremented with
// [sync/atomic.AddUint64]. The latency histogram uses 8 fixed buckets
// (<=5ms ... +Inf). The write path does not allocate.
//
// # Architecture boundaries
//
// This package owns metric storage and snapshots. Export (Prometheus, OTel)
// lives in metrics/export and reads snapshots.
//
// # What this package must NOT do
//
//   - Perform I/O.
//   - Import authclient or any sibling package.
//   - Expose global registries.
package metrics
