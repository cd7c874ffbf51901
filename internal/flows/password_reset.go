package flows

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"strings"

	"github.com/MrEthical07/authclient/internal/wire"
)

// ResetMetrics carries metric IDs used by reset flows.
type ResetMetrics struct {
	Request        int
	ConfirmSuccess int
	ConfirmFailure int
	LocalReject    int
}

// ResetEvents carries audit event names used by reset flows.
type ResetEvents struct {
	Request string
	Confirm string
}

// ResetErrors carries host-level sentinels used by reset flows.
type ResetErrors struct {
	NotReady         error
	PasswordMismatch error
	PasswordPolicy   error
	TokenInvalid     error
}

// ResetDeps captures forgot-password, token validation and reset dependencies.
type ResetDeps struct {
	RequestEndpoint  string
	ValidateEndpoint string // may contain {token}; otherwise the token is appended as a path segment
	ConfirmEndpoint  string
	GenericMessage   string

	Send          SendFunc
	Fail          FailFunc
	Invalid       InvalidFunc
	CheckPassword func(string) error
	// Mismatch builds the local mismatch error; nil falls back to Errors.PasswordMismatch.
	Mismatch func() error

	Hooks
	Metrics ResetMetrics
	Events  ResetEvents
	Errors  ResetErrors
}

func normalizeResetDeps(deps *ResetDeps) {
	deps.Hooks.normalize()
	if deps.Invalid == nil {
		deps.Invalid = func(_, msg string) error { return fmt.Errorf("%s", msg) }
	}
}

// RunRequestPasswordReset returns the same message for every outcome except
// a transport failure, so callers cannot tell whether the address exists.
func RunRequestPasswordReset(ctx context.Context, email string, deps ResetDeps) (string, error) {
	normalizeResetDeps(&deps)
	if deps.Send == nil {
		return "", deps.Errors.NotReady
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return "", deps.Invalid("email", "Email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", deps.Invalid("email", "Enter a valid email address")
	}

	reply, err := deps.Send(ctx, methodPost, deps.RequestEndpoint, wire.EmailBody{Email: email}, "")
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.Request, false, "", err, nil)
		return "", err
	}
	if reply.Status >= 500 {
		deps.Warn("authclient: forgot-password server error", "status", reply.Status)
	}

	deps.MetricInc(deps.Metrics.Request)
	deps.EmitAudit(ctx, deps.Events.Request, true, "", nil, func() map[string]string {
		return map[string]string{"status": strconv.Itoa(reply.Status)}
	})
	return deps.GenericMessage, nil
}

// RunValidateResetToken reports whether the backend still accepts token.
// 4xx answers mean invalid; 5xx and transport failures are errors.
func RunValidateResetToken(ctx context.Context, token string, deps ResetDeps) (bool, error) {
	normalizeResetDeps(&deps)
	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil
	}
	if deps.Send == nil || deps.Fail == nil {
		return false, deps.Errors.NotReady
	}

	reply, err := deps.Send(ctx, methodGet, resetTokenPath(deps.ValidateEndpoint, token), nil, "")
	if err != nil {
		return false, err
	}
	switch {
	case reply.OK():
		return wire.DecodeResetTokenStatus(reply.Body), nil
	case reply.Status >= 400 && reply.Status < 500:
		return false, nil
	default:
		return false, deps.Fail(reply, deps.Errors.TokenInvalid)
	}
}

func resetTokenPath(endpoint, token string) string {
	escaped := url.PathEscape(token)
	if strings.Contains(endpoint, "{token}") {
		return strings.ReplaceAll(endpoint, "{token}", escaped)
	}
	return strings.TrimRight(endpoint, "/") + "/" + escaped
}

// RunResetPassword checks the pair locally, then submits it. A reset never
// opens a session.
func RunResetPassword(ctx context.Context, token, newPassword, confirmPassword string, deps ResetDeps) error {
	normalizeResetDeps(&deps)

	token = strings.TrimSpace(token)
	if token == "" {
		deps.MetricInc(deps.Metrics.LocalReject)
		return deps.Invalid("token", "Reset link is missing its token")
	}
	if newPassword != confirmPassword {
		deps.MetricInc(deps.Metrics.LocalReject)
		if deps.Mismatch != nil {
			return deps.Mismatch()
		}
		return deps.Errors.PasswordMismatch
	}
	if deps.CheckPassword != nil {
		if err := deps.CheckPassword(newPassword); err != nil {
			deps.MetricInc(deps.Metrics.LocalReject)
			return err
		}
	}
	if deps.Send == nil || deps.Fail == nil {
		return deps.Errors.NotReady
	}

	body := wire.ResetPasswordBody{Token: token, Password: newPassword, ConfirmPassword: confirmPassword}
	reply, err := deps.Send(ctx, methodPost, deps.ConfirmEndpoint, body, "")
	if err == nil && !reply.OK() {
		err = deps.Fail(reply, deps.Errors.TokenInvalid)
	}
	if err != nil {
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.Confirm, false, "", err, nil)
		return err
	}

	deps.MetricInc(deps.Metrics.ConfirmSuccess)
	deps.EmitAudit(ctx, deps.Events.Confirm, true, "", nil, nil)
	return nil
}
