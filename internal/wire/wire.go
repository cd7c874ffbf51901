package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrEmptyBody     = errors.New("wire: empty body")
	ErrMissingTokens = errors.New("wire: token pair incomplete")
)

// Tokens is a decoded access/refresh pair. RefreshToken may be empty when the
// backend does not rotate it.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

type tokenBody struct {
	Token        string `json:"token"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (b tokenBody) tokens() Tokens {
	access := b.Token
	if access == "" {
		access = b.AccessToken
	}
	return Tokens{AccessToken: access, RefreshToken: b.RefreshToken}
}

type envelope[T any] struct {
	Data *T `json:"data"`
}

// decodeEnveloped decodes body into T, preferring a non-null "data" member.
func decodeEnveloped[T any](body []byte, into *T) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return ErrEmptyBody
	}
	var env envelope[T]
	if err := json.Unmarshal(body, &env); err == nil && env.Data != nil {
		*into = *env.Data
		return nil
	}
	return json.Unmarshal(body, into)
}

// DecodeTokens reads a token response. An empty access token is an error; an
// empty refresh token is returned as-is for the caller to resolve.
func DecodeTokens(body []byte) (Tokens, error) {
	var b tokenBody
	if err := decodeEnveloped(body, &b); err != nil {
		return Tokens{}, err
	}
	t := b.tokens()
	if t.AccessToken == "" {
		return Tokens{}, ErrMissingTokens
	}
	return t, nil
}

// Profile is the body of GET /api/auth/me.
type Profile struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type profileBody struct {
	Profile
	LegacyID string   `json:"_id"`
	User     *Profile `json:"user"`
}

// DecodeProfile reads a profile, accepting {"user":{...}} and Mongo-style "_id".
func DecodeProfile(body []byte) (Profile, error) {
	var b profileBody
	if err := decodeEnveloped(body, &b); err != nil {
		return Profile{}, err
	}
	p := b.Profile
	if b.User != nil {
		refresh := p.RefreshToken
		p = *b.User
		if p.RefreshToken == "" {
			p.RefreshToken = refresh
		}
	}
	if p.ID == "" {
		p.ID = b.LegacyID
	}
	return p, nil
}

// ErrorBody is the backend's error shape.
type ErrorBody struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DecodeError never fails; unparseable bodies yield the zero value.
func DecodeError(body []byte) ErrorBody {
	var e ErrorBody
	if err := decodeEnveloped(body, &e); err != nil {
		return ErrorBody{}
	}
	e.Message = strings.TrimSpace(e.Message)
	if e.Message == "" {
		e.Message = strings.TrimSpace(e.Error)
	}
	return e
}

// ResetTokenStatus is the body of the reset-token validation endpoint.
type ResetTokenStatus struct {
	Valid *bool `json:"valid"`
}

// DecodeResetTokenStatus treats a 2xx body without a "valid" member as valid.
func DecodeResetTokenStatus(body []byte) bool {
	var s ResetTokenStatus
	if err := decodeEnveloped(body, &s); err != nil || s.Valid == nil {
		return true
	}
	return *s.Valid
}

// Encode marshals v for a request body. A nil v or nil-able []byte is passed
// through without encoding.
func Encode(v any) ([]byte, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	}
	return json.Marshal(v)
}

type LoginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshBody struct {
	RefreshToken string `json:"refreshToken"`
}

type EmailBody struct {
	Email string `json:"email"`
}

type ResetPasswordBody struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}
