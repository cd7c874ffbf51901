package authclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/MrEthical07/authclient/internal/flows"
	"github.com/MrEthical07/authclient/internal/wire"
	"github.com/MrEthical07/authclient/password"
)

// Login authenticates with email and password and stores the session.
//
// A 401 maps to ErrInvalidCredentials and a 403 to ErrAccessDenied; neither
// exposes the server's message. Field errors come back as ErrValidation.
func (c *Client) Login(ctx context.Context, email, pw string) error {
	if c == nil {
		return ErrClientNotReady
	}
	deps := c.sessionDeps(c.config.Endpoints.Login, AuditEventLoginSuccess)
	deps.Metrics = flows.SessionMetrics{Success: int(MetricLoginSuccess), Failure: int(MetricLoginFailure)}
	deps.EmitAudit = c.loginAudit
	return flows.RunLogin(ctx, email, pw, deps)
}

// loginAudit splits the login event by outcome.
func (c *Client) loginAudit(ctx context.Context, _ string, success bool, subject string, err error, meta func() map[string]string) {
	event := AuditEventLoginSuccess
	if !success {
		event = AuditEventLoginFailure
	}
	c.emitAudit(ctx, event, success, subject, err, meta)
}

// Register creates an account. A successful registration opens a session
// when the backend returns a token pair, as login does.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	if c == nil {
		return ErrClientNotReady
	}
	if strings.TrimSpace(req.Name) == "" {
		return validationError("name", "Name is required")
	}
	if err := c.checkPassword(req.Password); err != nil {
		return err
	}
	deps := c.sessionDeps(c.config.Endpoints.Register, AuditEventRegister)
	deps.Metrics = flows.SessionMetrics{Success: int(MetricRegisterSuccess), Failure: int(MetricRegisterFailure)}
	return flows.RunRegister(ctx, req.Email, req, deps)
}

func (c *Client) sessionDeps(endpoint, event string) flows.SessionDeps {
	return flows.SessionDeps{
		Endpoint:    endpoint,
		Send:        c.send,
		Fail:        c.fail,
		Invalid:     c.invalid,
		SaveSession: c.replaceSession,
		Hooks:       c.hooks(),
		Event:       event,
		Errors: flows.SessionErrors{
			NotReady:           ErrClientNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			TokenInvalid:       authError(ErrTokenInvalid, 0, nil),
		},
	}
}

// Logout revokes the refresh token best-effort and always clears the local
// session. Only a local clear failure is returned. A refresh in flight when
// Logout runs discards its result.
func (c *Client) Logout(ctx context.Context) error {
	if c == nil {
		return ErrClientNotReady
	}
	return flows.RunLogout(ctx, flows.LogoutDeps{
		Endpoint:     c.config.Endpoints.Logout,
		Send:         c.send,
		LoadSession:  c.loadPair,
		ClearSession: c.clearSession,
		Invalidate:   c.invalidate,
		Hooks:        c.hooks(),
		Event:        AuditEventLogout,
		Metrics: flows.LogoutMetrics{
			Logout:        int(MetricLogout),
			RevokeFailure: int(MetricLogoutRevokeFailure),
		},
	})
}

// RequestPasswordReset asks for a reset link. Every outcome that reached the
// backend yields the same result, so callers cannot learn whether the
// address is registered. Only local validation and network failures error.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (ResetRequestResult, error) {
	if c == nil {
		return ResetRequestResult{}, ErrClientNotReady
	}
	msg, err := flows.RunRequestPasswordReset(ctx, email, c.resetDeps())
	if err != nil {
		return ResetRequestResult{}, err
	}
	return ResetRequestResult{Message: msg}, nil
}

// ValidateResetToken checks a reset link's token once when it is opened.
func (c *Client) ValidateResetToken(ctx context.Context, token string) (ResetTokenStatus, error) {
	if c == nil {
		return ResetTokenStatus{}, ErrClientNotReady
	}
	valid, err := flows.RunValidateResetToken(ctx, token, c.resetDeps())
	return ResetTokenStatus{Valid: valid}, err
}

// ResetPassword sets a new password. Mismatched or weak passwords are
// rejected without a network call. The session is not touched.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) error {
	if c == nil {
		return ErrClientNotReady
	}
	return flows.RunResetPassword(ctx, token, newPassword, confirmPassword, c.resetDeps())
}

func (c *Client) resetDeps() flows.ResetDeps {
	return flows.ResetDeps{
		RequestEndpoint:  c.config.Endpoints.ForgotPassword,
		ValidateEndpoint: c.config.Endpoints.ValidateResetToken,
		ConfirmEndpoint:  c.config.Endpoints.ResetPassword,
		GenericMessage:   c.config.PasswordReset.GenericMessage,
		Send:             c.send,
		Fail:             c.fail,
		Invalid:          c.invalid,
		CheckPassword:    c.checkPassword,
		Mismatch: func() error {
			return &APIError{Kind: ErrPasswordMismatch, Field: "confirmPassword", Message: msgPassMismatch}
		},
		Hooks: c.hooks(),
		Metrics: flows.ResetMetrics{
			Request:        int(MetricPasswordResetRequest),
			ConfirmSuccess: int(MetricPasswordResetConfirmSuccess),
			ConfirmFailure: int(MetricPasswordResetConfirmFailure),
			LocalReject:    int(MetricPasswordResetLocalReject),
		},
		Events: flows.ResetEvents{
			Request: AuditEventPasswordResetRequest,
			Confirm: AuditEventPasswordResetConfirm,
		},
		Errors: flows.ResetErrors{
			NotReady:         ErrClientNotReady,
			PasswordMismatch: ErrPasswordMismatch,
			PasswordPolicy:   ErrPasswordPolicy,
			TokenInvalid:     ErrTokenInvalid,
		},
	}
}

// HandleOAuthLogin completes an OAuth redirect. The one-time token is
// confirmed by fetching the profile with it and then stored as the session.
// Any failure clears the session and returns ErrAuthentication.
func (c *Client) HandleOAuthLogin(ctx context.Context, oneTimeToken string) (Profile, error) {
	return c.HandleOAuthCallback(ctx, OAuthCallback{Token: oneTimeToken})
}

// HandleOAuthCallback is HandleOAuthLogin for a parsed redirect that may also
// carry a refresh token.
func (c *Client) HandleOAuthCallback(ctx context.Context, cb OAuthCallback) (Profile, error) {
	if c == nil {
		return Profile{}, ErrClientNotReady
	}
	return flows.RunOAuthLogin(ctx, cb.Token, cb.RefreshToken, flows.OAuthDeps{
		ProfileEndpoint: c.config.Endpoints.Me,
		Send:            c.send,
		SaveSession:     c.replaceSession,
		ClearSession:    c.clearSession,
		Hooks:           c.hooks(),
		Event:           AuditEventOAuthLogin,
		Metrics: flows.OAuthMetrics{
			Success: int(MetricOAuthLoginSuccess),
			Failure: int(MetricOAuthLoginFailure),
		},
		Errors: flows.OAuthErrors{
			NotReady: ErrClientNotReady,
			Authentication: func(cause error) error {
				return &APIError{Kind: ErrAuthentication, Message: msgAuthFailed, Err: cause}
			},
		},
	})
}

var errNoOAuthToken = errors.New("oauth callback has no token parameter")

// ParseOAuthCallback extracts token and refreshToken from a redirect URL or
// a bare query string.
func ParseOAuthCallback(raw string) (OAuthCallback, error) {
	raw = strings.TrimSpace(raw)
	query := raw
	if u, err := url.Parse(raw); err == nil && (u.Scheme != "" || strings.HasPrefix(raw, "/")) {
		query = u.RawQuery
	}
	query = strings.TrimPrefix(query, "?")

	values, err := url.ParseQuery(query)
	if err != nil {
		return OAuthCallback{}, validationError("token", "Malformed OAuth callback")
	}
	cb := OAuthCallback{
		Token:        strings.TrimSpace(values.Get("token")),
		RefreshToken: strings.TrimSpace(values.Get("refreshToken")),
	}
	if cb.Token == "" {
		return OAuthCallback{}, &APIError{Kind: ErrValidation, Field: "token", Message: "Missing OAuth token", Err: errNoOAuthToken}
	}
	return cb, nil
}

// CurrentUser fetches the signed-in user through the pipeline.
func (c *Client) CurrentUser(ctx context.Context) (Profile, error) {
	if c == nil {
		return Profile{}, ErrClientNotReady
	}
	if !c.IsAuthenticated(ctx) {
		return Profile{}, authError(ErrTokenInvalid, 0, ErrNotAuthenticated)
	}
	resp, err := c.Request(ctx, http.MethodGet, c.config.Endpoints.Me, nil)
	if err != nil {
		return Profile{}, err
	}
	p, err := decodeProfile(resp.Body)
	if err != nil {
		return Profile{}, &APIError{Kind: ErrServer, Status: resp.StatusCode, Message: msgServer, Err: err}
	}
	return p, nil
}

func decodeProfile(body []byte) (Profile, error) {
	p, err := wire.DecodeProfile(body)
	p.RefreshToken = ""
	return p, err
}

func (c *Client) invalid(field, message string) error {
	return validationError(field, message)
}

// checkPassword applies the client-side strength pre-filter. The backend
// remains the authority.
func (c *Client) checkPassword(pw string) error {
	if err := c.config.Password.Check(pw); err != nil {
		return &APIError{Kind: ErrPasswordPolicy, Field: "password", Message: passwordMessage(err), Err: err}
	}
	return nil
}

func passwordMessage(err error) string {
	switch {
	case errors.Is(err, password.ErrTooShort):
		return "Password is too short."
	case errors.Is(err, password.ErrTooLong):
		return "Password is too long."
	case errors.Is(err, password.ErrMissingUpper):
		return "Password needs an uppercase letter."
	case errors.Is(err, password.ErrMissingLower):
		return "Password needs a lowercase letter."
	case errors.Is(err, password.ErrMissingDigit):
		return "Password needs a number."
	case errors.Is(err, password.ErrMissingSymbol):
		return "Password needs a symbol."
	}
	return "Password is too easy to guess."
}
