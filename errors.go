package authclient

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/authclient/internal/wire"
)

// Taxonomy kinds. Match with errors.Is; every *APIError unwraps to exactly
// one kind, and auth kinds also unwrap to ErrAuthentication.
var (
	ErrNetwork        = errors.New("network error")
	ErrAuthentication = errors.New("authentication error")
	ErrValidation     = errors.New("validation error")
	ErrServer         = errors.New("server error")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccessDenied       = errors.New("access denied")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
)

// Local errors raised before any network call.
var (
	ErrPasswordMismatch  = errors.New("passwords do not match")
	ErrPasswordPolicy    = errors.New("password does not meet requirements")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrClientNotReady    = errors.New("client not ready")
	ErrInvalidTransition = errors.New("invalid reset flow transition")
)

const (
	msgNetwork       = "Unable to reach the server. Check your connection."
	msgServer        = "The server could not complete the request. Try again later."
	msgInvalidCreds  = "Invalid email or password."
	msgAccessDenied  = "You do not have access to this resource."
	msgSessionEnded  = "Your session has expired. Sign in again."
	msgAuthFailed    = "Authentication failed. Sign in again."
	msgPassMismatch  = "Passwords do not match."
	msgValidationGen = "The request was rejected."
)

// APIError is the single error type surfaced by Client operations.
//
// Message is safe to show to a user. For ErrValidation it is the backend's
// field message verbatim; for authentication kinds it is a fixed string and
// the server body is not exposed.
type APIError struct {
	Kind    error
	Status  int
	Message string
	Field   string
	Err     error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Status != 0 {
		b.WriteString(" (")
		b.WriteString(http.StatusText(e.Status))
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *APIError) Unwrap() []error {
	out := make([]error, 0, 3)
	out = append(out, e.Kind)
	if parent := parentKind(e.Kind); parent != nil {
		out = append(out, parent)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func parentKind(kind error) error {
	switch kind {
	case ErrInvalidCredentials, ErrAccessDenied, ErrTokenExpired, ErrTokenInvalid:
		return ErrAuthentication
	case ErrPasswordMismatch, ErrPasswordPolicy:
		return ErrValidation
	}
	return nil
}

// IsAuthError reports whether err should route the user to sign in.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthentication) || errors.Is(err, ErrNotAuthenticated)
}

func networkError(cause error) *APIError {
	return &APIError{Kind: ErrNetwork, Message: msgNetwork, Err: cause}
}

func validationError(field, message string) *APIError {
	return &APIError{Kind: ErrValidation, Field: field, Message: message}
}

func authError(kind error, status int, cause error) *APIError {
	msg := msgAuthFailed
	switch kind {
	case ErrInvalidCredentials:
		msg = msgInvalidCreds
	case ErrAccessDenied:
		msg = msgAccessDenied
	case ErrTokenExpired:
		msg = msgSessionEnded
	}
	return &APIError{Kind: kind, Status: status, Message: msg, Err: cause}
}

// statusError maps a non-2xx status to the taxonomy. unauthorized selects the
// kind for 401, which depends on the calling operation.
func statusError(status int, body []byte, unauthorized error) *APIError {
	switch {
	case status == http.StatusUnauthorized:
		return authError(unauthorized, status, nil)
	case status == http.StatusForbidden:
		return authError(ErrAccessDenied, status, nil)
	case status >= 500:
		return &APIError{Kind: ErrServer, Status: status, Message: msgServer}
	}

	e := wire.DecodeError(body)
	msg := e.Message
	if msg == "" {
		msg = msgValidationGen
	}
	return &APIError{Kind: ErrValidation, Status: status, Message: msg, Field: e.Field}
}

func isNetworkError(err error) bool {
	return errors.Is(err, ErrNetwork)
}
