package flows

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/MrEthical07/authclient/internal/wire"
)

// SessionMetrics carries metric IDs for flows that open a session.
type SessionMetrics struct {
	Success int
	Failure int
}

// SessionErrors carries host sentinels for flows that open a session.
type SessionErrors struct {
	NotReady           error
	InvalidCredentials error
	TokenInvalid       error
}

// SessionDeps captures login and registration dependencies.
type SessionDeps struct {
	Endpoint    string
	Send        SendFunc
	Fail        FailFunc
	Invalid     InvalidFunc
	SaveSession func(ctx context.Context, access, refresh string) error

	Hooks
	Event   string
	Metrics SessionMetrics
	Errors  SessionErrors
}

// RunLogin posts credentials and stores the returned token pair.
func RunLogin(ctx context.Context, email, password string, deps SessionDeps) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return deps.invalid("email", "Email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return deps.invalid("email", "Enter a valid email address")
	}
	if password == "" {
		return deps.invalid("password", "Password is required")
	}
	return runOpenSession(ctx, email, wire.LoginBody{Email: email, Password: password}, deps)
}

// RunRegister posts the registration payload and stores the returned pair.
func RunRegister(ctx context.Context, email string, payload any, deps SessionDeps) error {
	if strings.TrimSpace(email) == "" {
		return deps.invalid("email", "Email is required")
	}
	return runOpenSession(ctx, email, payload, deps)
}

func (d SessionDeps) invalid(field, msg string) error {
	if d.Invalid == nil {
		return errors.New(msg)
	}
	return d.Invalid(field, msg)
}

func runOpenSession(ctx context.Context, subject string, payload any, deps SessionDeps) error {
	deps.Hooks.normalize()
	if deps.Send == nil || deps.Fail == nil || deps.SaveSession == nil {
		return deps.Errors.NotReady
	}

	fail := func(err error) error {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Event, false, subject, err, nil)
		return err
	}

	reply, err := deps.Send(ctx, methodPost, deps.Endpoint, payload, "")
	if err != nil {
		return fail(err)
	}
	if !reply.OK() {
		return fail(deps.Fail(reply, deps.Errors.InvalidCredentials))
	}

	tokens, err := wire.DecodeTokens(reply.Body)
	if err != nil || tokens.RefreshToken == "" {
		deps.Warn("authclient: session response without token pair", "endpoint", deps.Endpoint)
		return fail(deps.Errors.TokenInvalid)
	}

	if err := deps.SaveSession(ctx, tokens.AccessToken, tokens.RefreshToken); err != nil {
		return fail(err)
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Event, true, subject, nil, nil)
	return nil
}
