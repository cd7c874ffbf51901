package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/authclient/internal/wire"
)

type OAuthMetrics struct {
	Success int
	Failure int
}

type OAuthErrors struct {
	NotReady error
	// Authentication wraps every failure; the cause is kept for logs only.
	Authentication func(cause error) error
}

// OAuthDeps captures one-time token exchange dependencies.
type OAuthDeps struct {
	ProfileEndpoint string
	Send            SendFunc
	SaveSession     func(ctx context.Context, access, refresh string) error
	ClearSession    func(ctx context.Context) error

	Hooks
	Event   string
	Metrics OAuthMetrics
	Errors  OAuthErrors
}

var (
	errOAuthMissingToken = errors.New("oauth: missing one-time token")
	errOAuthRejected     = errors.New("oauth: profile fetch rejected")
)

// RunOAuthLogin confirms the one-time token by fetching the profile with it
// and then stores it as the session. refreshHint is the refresh token carried
// by the redirect, if any. Any failure clears the session.
func RunOAuthLogin(ctx context.Context, oneTimeToken, refreshHint string, deps OAuthDeps) (wire.Profile, error) {
	deps.Hooks.normalize()
	if deps.Send == nil || deps.SaveSession == nil || deps.ClearSession == nil || deps.Errors.Authentication == nil {
		return wire.Profile{}, deps.Errors.NotReady
	}

	fail := func(cause error) (wire.Profile, error) {
		if err := deps.ClearSession(ctx); err != nil {
			deps.Warn("authclient: clearing session after oauth failure", "error", err)
		}
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Event, false, "", cause, nil)
		return wire.Profile{}, deps.Errors.Authentication(cause)
	}

	oneTimeToken = strings.TrimSpace(oneTimeToken)
	if oneTimeToken == "" {
		return fail(errOAuthMissingToken)
	}

	reply, err := deps.Send(ctx, methodGet, deps.ProfileEndpoint, nil, oneTimeToken)
	if err != nil {
		return fail(err)
	}
	if !reply.OK() {
		return fail(errOAuthRejected)
	}
	profile, err := wire.DecodeProfile(reply.Body)
	if err != nil {
		return fail(err)
	}

	refresh := strings.TrimSpace(refreshHint)
	if refresh == "" {
		refresh = profile.RefreshToken
	}
	if refresh == "" {
		// Backends that issue no refresh token for OAuth logins get the
		// one-time token in both slots; the first 401 then ends the session.
		refresh = oneTimeToken
	}
	profile.RefreshToken = ""

	if err := deps.SaveSession(ctx, oneTimeToken, refresh); err != nil {
		return fail(err)
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Event, true, profile.Email, nil, nil)
	return profile, nil
}
