// Package session provides durable persistence of the client's token pair.
//
// # Backends
//
// [FileStore] keeps the pair in a single file replaced atomically (temp file + rename),
// [RedisStore] keeps it in one Redis hash written inside MULTI/EXEC, and [MemoryStore]
// holds it in process memory for tests and short-lived tools.
//
// # Invariant
//
// A [Session] is either complete (both tokens present) or empty. Save rejects half
// sessions, and a backend record missing either token loads as the empty session, so
// readers never observe one token without the other.
//
// # Architecture boundaries
//
// This package owns storage only. It does NOT perform network calls, refresh tokens,
// or interpret token contents; those belong to the Client and the jwt package.
//
// # What this package must NOT do
//
//   - Import authclient, jwt, or refresh (no upward imports).
//   - Log or expose token values.
//   - Return errors from Load; an unreadable backend reads as "not authenticated".
package session
