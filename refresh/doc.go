// Package refresh coordinates token refreshes across concurrent requests.
//
// # Single flight
//
// A [Coordinator] lets exactly one caller (the leader) run the refresh function while
// every caller that arrives during the refresh is queued as a waiter. When the leader
// finishes, waiters are resolved in the order they were enqueued with the leader's
// outcome, each exactly once.
//
// # Turns
//
// Every caller of one refresh also receives a [Turn]. Turns form a chain in arrival
// order, leader first, so follow-up work such as replaying a rejected request can be
// done in the same order the callers queued.
//
// # Architecture boundaries
//
// This package owns the in-flight flag and the waiter queue. It does NOT know how tokens
// are fetched or stored; the leader's function performs the network call and persists the
// result before the coordinator wakes anyone.
//
// # What this package must NOT do
//
//   - Import authclient or session.
//   - Retry a failed refresh.
//   - Keep package-level state; each Client owns one Coordinator.
package refresh
