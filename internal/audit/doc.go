// Package audit relays session lifecycle events to caller-supplied sinks.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, slog, no-op).
//   - [Dispatcher]: buffered async relay, drop-if-full or block-if-full.
//   - [Event]: timestamped record with type, request ID, subject and metadata.
//
// # Architecture boundaries
//
// This package buffers and delivers. Choosing which events to emit belongs to
// the client and the flow functions.
//
// # What this package must NOT do
//
//   - Record tokens or passwords.
//   - Import authclient or any sibling internal package.
//   - Perform I/O beyond what a caller-supplied Sink does.
package audit
