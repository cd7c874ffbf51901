// Package wire holds the JSON shapes exchanged with the platform backend.
//
// Token responses are accepted as {"token","refreshToken"} or
// {"accessToken","refreshToken"}, optionally nested under "data". Error
// bodies are read as {"message","field"} with "error" as a fallback message.
//
// # What this package must NOT do
//
//   - Perform network I/O.
//   - Decide error taxonomy; callers map status codes.
//   - Import authclient.
package wire
