// Package authclient is the authenticated request pipeline of the platform
// client, together with the flows that create and destroy its session:
// login, registration, logout, OAuth token exchange and password reset.
//
// Every call made through [Client.Request] carries the stored access token.
// When the backend answers 401 the pipeline refreshes the session once for
// all concurrently failing calls, replays each of them once with the new
// token, and clears the session if the refresh fails.
//
// # Architecture boundaries
//
// authclient is the public surface. It exposes [Client], [Builder], [Config],
// the error taxonomy ([APIError] and its kinds) and value types. Flow
// orchestration, wire shapes, audit dispatch and metric storage live under
// internal/. Session storage ([session]), refresh coordination ([refresh])
// and token inspection ([jwt]) are importable on their own.
//
// # What this package must NOT do
//
//   - Expose server error bodies for authentication failures.
//   - Retry a call more than once after a refresh.
//   - Write tokens anywhere but the configured session store.
//   - Enforce authorization policy; that is the backend's concern.
package authclient
