// Package flows contains pure-function orchestrators for the client's
// authentication operations.
//
// Each Run* function takes a typed dependency struct of function fields and
// returns results without side effects beyond those dependencies, so every
// branch can be tested with fakes and the root Client stays thin.
//
// # Architecture boundaries
//
// Flows coordinate the transport, the session store, metrics and audit. They
// do NOT own any of them; ownership stays with the Client.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authclient.
//   - Perform I/O except through dependency functions.
package flows
