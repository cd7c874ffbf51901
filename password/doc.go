// Package password implements the client-side password strength pre-filter.
//
// The check exists to give users fast feedback before a reset or registration
// request is sent. The backend remains the authority on password acceptance.
//
// # What this package must NOT do
//
//   - Hash, store, or transmit passwords.
//   - Import any other authclient package.
//   - Include the password in returned errors.
package password
