// Package internaldefs holds the metric names, help strings and latency
// bucket bounds shared by the exporters, so Prometheus text and OTel
// instruments always agree.
//
// # What this package must NOT do
//
//   - Import an exporter package.
//   - Perform I/O.
package internaldefs
