package flows

import (
	"context"

	"github.com/MrEthical07/authclient/internal/wire"
)

type LogoutMetrics struct {
	Logout        int
	RevokeFailure int
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	Endpoint     string
	Send         SendFunc
	LoadSession  func(ctx context.Context) (access, refresh string)
	ClearSession func(ctx context.Context) error
	// Invalidate runs before the revoke so a refresh finishing mid-logout
	// cannot store new tokens.
	Invalidate func()

	Hooks
	Event   string
	Metrics LogoutMetrics
}

// RunLogout revokes the refresh token best-effort and always clears the
// local session. Only the local clear error is returned.
func RunLogout(ctx context.Context, deps LogoutDeps) error {
	deps.Hooks.normalize()

	var access, refresh string
	if deps.LoadSession != nil {
		access, refresh = deps.LoadSession(ctx)
	}
	if deps.Invalidate != nil {
		deps.Invalidate()
	}

	revoked := false
	if refresh != "" && deps.Send != nil {
		reply, err := deps.Send(ctx, methodPost, deps.Endpoint, wire.RefreshBody{RefreshToken: refresh}, access)
		switch {
		case err != nil:
			deps.Warn("authclient: logout revoke failed", "error", err)
		case !reply.OK():
			deps.Warn("authclient: logout revoke rejected", "status", reply.Status)
		default:
			revoked = true
		}
		if !revoked {
			deps.MetricInc(deps.Metrics.RevokeFailure)
		}
	}

	var clearErr error
	if deps.ClearSession != nil {
		clearErr = deps.ClearSession(ctx)
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Event, clearErr == nil, "", clearErr, func() map[string]string {
		if revoked {
			return map[string]string{"revoked": "true"}
		}
		return map[string]string{"revoked": "false"}
	})
	return clearErr
}
