// Package prometheus renders authclient counters in the Prometheus text
// exposition format.
//
// [NewPrometheusExporter] wraps a [authclient.Client] and exposes an
// [http.Handler] for a /metrics route. Counters are named
// authclient_*_total; the only histogram is
// authclient_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register with a global Prometheus registry; callers mount the Handler.
//   - Mutate client state.
package prometheus
