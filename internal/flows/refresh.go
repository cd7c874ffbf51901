package flows

import (
	"context"
	"strings"

	"github.com/MrEthical07/authclient/internal/wire"
)

// RefreshFailureKind classifies refresh failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureNoSession
	RefreshFailureRejected
	RefreshFailureNetwork
	RefreshFailureSuperseded
	RefreshFailureStore
)

// RefreshResult carries either the stored pair or failure metadata.
type RefreshResult struct {
	Failure        RefreshFailureKind
	Err            error
	AccessToken    string
	RefreshToken   string
	SessionCleared bool
}

type RefreshMetrics struct {
	Started        int
	Success        int
	Failure        int
	SessionCleared int
}

type RefreshEvents struct {
	Refreshed string
	Expired   string
}

type RefreshErrors struct {
	NotAuthenticated error
}

// RefreshDeps captures session refresh dependencies.
type RefreshDeps struct {
	Epoch       func() uint64
	LoadSession func(ctx context.Context) (access, refresh string)
	Refresh     func(ctx context.Context, refreshToken string) (wire.Tokens, error)
	// CommitSession stores the pair only if epoch is still current.
	CommitSession func(ctx context.Context, epoch uint64, access, refresh string) (bool, error)
	// ClearSession clears the store only if epoch is still current.
	ClearSession func(ctx context.Context, epoch uint64) (bool, error)
	IsNetwork    func(error) bool

	KeepSessionOnNetworkError bool

	Hooks
	Metrics RefreshMetrics
	Events  RefreshEvents
	Errors  RefreshErrors
}

// RunSessionRefresh exchanges the stored refresh token for a new pair. It is
// the body of a single coordinated refresh; callers must not run it
// concurrently for the same store.
func RunSessionRefresh(ctx context.Context, deps RefreshDeps) RefreshResult {
	deps.Hooks.normalize()
	if deps.IsNetwork == nil {
		deps.IsNetwork = func(error) bool { return false }
	}

	epoch := deps.Epoch()
	_, current := deps.LoadSession(ctx)
	if current == "" {
		return RefreshResult{Failure: RefreshFailureNoSession, Err: deps.Errors.NotAuthenticated}
	}

	deps.MetricInc(deps.Metrics.Started)
	tokens, err := deps.Refresh(ctx, current)
	if deps.Epoch() != epoch {
		deps.MetricInc(deps.Metrics.Failure)
		return RefreshResult{Failure: RefreshFailureSuperseded, Err: deps.Errors.NotAuthenticated}
	}

	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		kind := RefreshFailureRejected
		if deps.IsNetwork(err) {
			kind = RefreshFailureNetwork
			if deps.KeepSessionOnNetworkError {
				deps.Warn("authclient: refresh unreachable, keeping session", "error", err)
				return RefreshResult{Failure: kind, Err: err}
			}
		}
		cleared, superseded := expire(ctx, deps, epoch, err)
		if superseded {
			return RefreshResult{Failure: RefreshFailureSuperseded, Err: deps.Errors.NotAuthenticated}
		}
		return RefreshResult{Failure: kind, Err: err, SessionCleared: cleared}
	}

	refresh := strings.TrimSpace(tokens.RefreshToken)
	if refresh == "" {
		refresh = current
	}

	ok, err := deps.CommitSession(ctx, epoch, tokens.AccessToken, refresh)
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		return RefreshResult{Failure: RefreshFailureStore, Err: err}
	}
	if !ok {
		deps.MetricInc(deps.Metrics.Failure)
		return RefreshResult{Failure: RefreshFailureSuperseded, Err: deps.Errors.NotAuthenticated}
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Refreshed, true, "", nil, func() map[string]string {
		if refresh == current {
			return map[string]string{"rotated": "false"}
		}
		return map[string]string{"rotated": "true"}
	})
	return RefreshResult{AccessToken: tokens.AccessToken, RefreshToken: refresh}
}

// expire clears the session a failed refresh started from. A session
// replaced since epoch belongs to a newer login and is left alone.
func expire(ctx context.Context, deps RefreshDeps, epoch uint64, cause error) (cleared, superseded bool) {
	if deps.ClearSession == nil {
		return false, false
	}
	ok, err := deps.ClearSession(ctx, epoch)
	if err != nil {
		deps.Warn("authclient: clearing session after failed refresh", "error", err)
		return false, false
	}
	if !ok {
		return false, true
	}
	deps.MetricInc(deps.Metrics.SessionCleared)
	deps.EmitAudit(ctx, deps.Events.Expired, false, "", cause, nil)
	return true, false
}
