// Package internal holds the pieces of authclient that are not part of its
// public API.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - flows: flow orchestrators for login, logout, refresh, reset and OAuth
//   - metrics: lock-free counters and the request latency histogram
//   - wire: JSON request and response shapes of the platform API
//
// # What this package must NOT do
//
//   - Export types that appear in the public authclient API except through
//     aliases in the root package.
//   - Be imported from outside the module.
package internal
