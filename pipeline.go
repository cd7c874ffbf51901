package authclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/authclient/internal/flows"
	"github.com/MrEthical07/authclient/internal/wire"
	"github.com/MrEthical07/authclient/refresh"
	"github.com/google/uuid"
)

// pendingRequest is a logical call captured before its first send so a
// replay re-sends the same method, path, body and headers.
type pendingRequest struct {
	method  string
	path    string
	body    []byte
	header  http.Header
	retried bool
}

// Request sends method path with body through the authenticated pipeline.
//
// A 2xx or 3xx response returns (resp, nil). Other statuses return the
// response together with an *APIError. On a 401 the session is refreshed at
// most once per concurrent storm and the call is replayed once; a failed
// refresh clears the session and returns ErrTokenExpired.
func (c *Client) Request(ctx context.Context, method, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: method, Path: path, Body: body})
}

func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Request(ctx, http.MethodGet, path, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, http.MethodPost, path, body)
}

// Do is Request with custom headers.
func (c *Client) Do(ctx context.Context, r *Request) (*Response, error) {
	if c == nil || c.store == nil || c.coordinator == nil {
		return nil, ErrClientNotReady
	}
	if r == nil || r.Path == "" {
		return nil, validationError("path", "request path is required")
	}

	payload, err := wire.Encode(r.Body)
	if err != nil {
		return nil, fmt.Errorf("authclient: encode body: %w", err)
	}
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	p := &pendingRequest{
		method: method,
		path:   r.Path,
		body:   payload,
		header: r.Header.Clone(),
	}

	if RequestIDFromContext(ctx) == "" {
		ctx = WithRequestID(ctx, uuid.NewString())
	}

	c.metrics.Inc(MetricRequests)
	if c.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { c.metrics.Observe(MetricRequestLatency, time.Since(start)) }()
	}

	c.refreshAhead(ctx)

	return c.dispatch(ctx, p, c.store.Load(ctx).AccessToken)
}

// dispatch sends p with token and handles a 401.
func (c *Client) dispatch(ctx context.Context, p *pendingRequest, token string) (*Response, error) {
	resp, err := c.roundTrip(ctx, p.method, p.path, p.body, p.header, token)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized && p.retried:
		c.metrics.Inc(MetricRequestTerminalUnauthorized)
		return resp, authError(ErrTokenExpired, resp.StatusCode, nil)
	case resp.StatusCode == http.StatusUnauthorized:
		return c.recoverUnauthorized(ctx, p, token, resp)
	case resp.StatusCode >= 400:
		return resp, statusError(resp.StatusCode, resp.Body, ErrTokenExpired)
	}
	return resp, nil
}

func (c *Client) recoverUnauthorized(ctx context.Context, p *pendingRequest, sentWith string, resp *Response) (*Response, error) {
	current := c.store.Load(ctx)
	if sentWith == "" || current.RefreshToken == "" {
		return resp, authError(ErrTokenInvalid, resp.StatusCode, nil)
	}
	p.retried = true

	// A refresh finished between our send and the 401.
	if current.AccessToken != "" && current.AccessToken != sentWith {
		c.metrics.Inc(MetricRequestReplays)
		return c.dispatch(ctx, p, current.AccessToken)
	}

	tokens, turn, err := c.refreshSession(ctx)
	// Replays of one refresh go out in the order their callers queued; the
	// turn passes on once this replay has its response.
	defer turn.Done()
	if err != nil {
		return resp, err
	}
	if err := turn.Wait(ctx); err != nil {
		return resp, networkError(err)
	}
	c.metrics.Inc(MetricRequestReplays)
	return c.dispatch(ctx, p, tokens.AccessToken)
}

// refreshSession joins the in-flight refresh or leads a new one. The caller
// must release the returned turn.
func (c *Client) refreshSession(ctx context.Context) (refresh.Tokens, *refresh.Turn, error) {
	res, err := c.coordinator.Do(ctx, c.leadRefresh)
	if !res.Leader {
		c.metrics.Inc(MetricRefreshWaiters)
	}
	if err != nil {
		var pe *refresh.PanicError
		if errors.As(err, &pe) {
			c.logger.Error("authclient: refresher panicked", "panic", pe.Value)
			return refresh.Tokens{}, res.Turn, authError(ErrTokenExpired, http.StatusUnauthorized, err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return refresh.Tokens{}, res.Turn, networkError(err)
		}
		return refresh.Tokens{}, res.Turn, err
	}
	return res.Tokens, res.Turn, nil
}

// leadRefresh runs in the coordinator leader. It detaches from the caller's
// cancellation so one abandoned call cannot fail every waiter.
func (c *Client) leadRefresh(ctx context.Context) (refresh.Tokens, error) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.Refresh.Timeout)
	defer cancel()

	res := flows.RunSessionRefresh(rctx, c.refreshDeps())
	if res.Err == nil {
		return refresh.Tokens{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}, nil
	}

	switch res.Failure {
	case flows.RefreshFailureNetwork:
		if !res.SessionCleared {
			return refresh.Tokens{}, res.Err
		}
	case flows.RefreshFailureNoSession, flows.RefreshFailureSuperseded:
		return refresh.Tokens{}, authError(ErrTokenExpired, http.StatusUnauthorized, ErrNotAuthenticated)
	case flows.RefreshFailureStore:
		return refresh.Tokens{}, fmt.Errorf("authclient: store refreshed session: %w", res.Err)
	}
	c.logger.Info("authclient: session expired", "cause", res.Err, "request_id", RequestIDFromContext(ctx))
	return refresh.Tokens{}, authError(ErrTokenExpired, http.StatusUnauthorized, res.Err)
}

func (c *Client) refreshDeps() flows.RefreshDeps {
	return flows.RefreshDeps{
		Epoch:       c.epoch.Load,
		LoadSession: c.loadPair,
		Refresh: func(ctx context.Context, refreshToken string) (wire.Tokens, error) {
			pair, err := c.refresher.Refresh(ctx, refreshToken)
			if err != nil {
				return wire.Tokens{}, err
			}
			if pair.AccessToken == "" {
				return wire.Tokens{}, authError(ErrTokenInvalid, 0, wire.ErrMissingTokens)
			}
			return wire.Tokens{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
		},
		CommitSession:             c.commitRefreshed,
		ClearSession:              c.clearIfEpoch,
		IsNetwork:                 isNetworkError,
		KeepSessionOnNetworkError: c.config.Refresh.KeepSessionOnNetworkError,
		Hooks:                     c.hooks(),
		Metrics: flows.RefreshMetrics{
			Started:        int(MetricRefreshStarted),
			Success:        int(MetricRefreshSuccess),
			Failure:        int(MetricRefreshFailure),
			SessionCleared: int(MetricSessionCleared),
		},
		Events: flows.RefreshEvents{
			Refreshed: AuditEventSessionRefreshed,
			Expired:   AuditEventSessionExpired,
		},
		Errors: flows.RefreshErrors{NotAuthenticated: ErrNotAuthenticated},
	}
}

// refreshAhead refreshes before sending when the access token is about to
// expire. Failures are left for the reactive path to report.
func (c *Client) refreshAhead(ctx context.Context) {
	window := c.config.Refresh.ProactiveWindow
	if window <= 0 || c.inspector == nil {
		return
	}
	s := c.store.Load(ctx)
	if !s.Complete() || !c.inspector.ExpiresWithin(s.AccessToken, window) {
		return
	}
	c.metrics.Inc(MetricRefreshProactive)
	_, turn, err := c.refreshSession(ctx)
	turn.Done()
	if err != nil {
		c.logger.Debug("authclient: proactive refresh failed", "error", err)
	}
}
