package authclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	internalaudit "github.com/MrEthical07/authclient/internal/audit"
	"github.com/MrEthical07/authclient/internal/flows"
	"github.com/MrEthical07/authclient/internal/wire"
	"github.com/MrEthical07/authclient/jwt"
	"github.com/MrEthical07/authclient/refresh"
	"github.com/MrEthical07/authclient/session"
	"github.com/redis/go-redis/v9"
)

const maxResponseBody = 4 << 20

var errStoreUnavailable = session.ErrStoreUnavailable

// Client is the authenticated backend client. It is safe for concurrent use
// after [Builder.Build]; every call shares one session store and one refresh
// coordinator.
type Client struct {
	config  Config
	baseURL *url.URL
	http    *http.Client

	store       session.Store
	ownedRedis  redis.UniversalClient
	refresher   TokenRefresher
	coordinator *refresh.Coordinator
	inspector   *jwt.Inspector

	// epoch advances whenever the session is replaced or invalidated; a
	// refresh that started under an older epoch must not store its result.
	epoch    atomic.Uint64
	commitMu sync.Mutex

	logger  *slog.Logger
	audit   *internalaudit.Dispatcher
	metrics *Metrics

	closeOnce sync.Once
}

// Close flushes audit events and releases a redis client created by Build.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	var err error
	c.closeOnce.Do(func() {
		c.audit.Close()
		if c.ownedRedis != nil {
			err = c.ownedRedis.Close()
		}
	})
	return err
}

// IsAuthenticated reports whether a session is currently stored.
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	if c == nil {
		return false
	}
	return session.IsAuthenticated(ctx, c.store)
}

// Session returns the stored pair.
func (c *Client) Session(ctx context.Context) TokenPair {
	if c == nil {
		return TokenPair{}
	}
	s := c.store.Load(ctx)
	return TokenPair{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
}

// Metrics returns the live counters.
func (c *Client) Metrics() *Metrics {
	if c == nil {
		return nil
	}
	return c.metrics
}

func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil {
		return NewMetrics(MetricsConfig{}).Snapshot()
	}
	return c.metrics.Snapshot()
}

// RefreshStats reports coordinator activity: refreshes started, callers that
// joined one, and how the refreshes ended.
func (c *Client) RefreshStats() refresh.Stats {
	if c == nil {
		return refresh.Stats{}
	}
	return c.coordinator.Stats()
}

/*
====================================
SESSION WRITES
====================================
*/

// replaceSession stores a pair produced by a login-type flow and supersedes
// any refresh in flight.
func (c *Client) replaceSession(ctx context.Context, access, refresh string) error {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()
	c.epoch.Add(1)
	return c.store.Save(ctx, access, refresh)
}

// commitRefreshed stores a refreshed pair only if nothing replaced or
// invalidated the session since epoch was read.
func (c *Client) commitRefreshed(ctx context.Context, epoch uint64, access, refresh string) (bool, error) {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()
	if c.epoch.Load() != epoch {
		return false, nil
	}
	return true, c.store.Save(ctx, access, refresh)
}

func (c *Client) invalidate() {
	c.commitMu.Lock()
	c.epoch.Add(1)
	c.commitMu.Unlock()
}

func (c *Client) clearSession(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// clearIfEpoch clears the store only if nothing replaced the session since
// epoch was read.
func (c *Client) clearIfEpoch(ctx context.Context, epoch uint64) (bool, error) {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()
	if c.epoch.Load() != epoch {
		return false, nil
	}
	return true, c.store.Clear(ctx)
}

func (c *Client) loadPair(ctx context.Context) (string, string) {
	s := c.store.Load(ctx)
	return s.AccessToken, s.RefreshToken
}

/*
====================================
TRANSPORT
====================================
*/

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return c.baseURL.String() + path
	}
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	u.RawPath = ""
	if ref.RawPath != "" {
		u.RawPath = strings.TrimRight(c.baseURL.EscapedPath(), "/") + "/" + strings.TrimLeft(ref.RawPath, "/")
	}
	u.RawQuery = ref.RawQuery
	return u.String()
}

// roundTrip performs one HTTP exchange and reads the whole body. A non-nil
// error is always an ErrNetwork *APIError.
func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte, header http.Header, bearer string) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), reader)
	if err != nil {
		return nil, networkError(err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.config.HTTP.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.HTTP.UserAgent)
	}
	if h := c.config.HTTP.RequestIDHeader; h != "" {
		if id := RequestIDFromContext(ctx); id != "" {
			req.Header.Set(h, id)
		}
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.Inc(MetricNetworkErrors)
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		c.metrics.Inc(MetricNetworkErrors)
		return nil, networkError(fmt.Errorf("read body: %w", err))
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// send is the flows transport: one call outside the refresh pipeline.
func (c *Client) send(ctx context.Context, method, path string, body any, bearer string) (flows.Reply, error) {
	payload, err := wire.Encode(body)
	if err != nil {
		return flows.Reply{}, fmt.Errorf("authclient: encode body: %w", err)
	}
	resp, err := c.roundTrip(ctx, method, path, payload, nil, bearer)
	if err != nil {
		return flows.Reply{}, err
	}
	return flows.Reply{Status: resp.StatusCode, Body: resp.Body}, nil
}

func (c *Client) fail(r flows.Reply, unauthorized error) error {
	return statusError(r.Status, r.Body, unauthorized)
}

func (c *Client) warn(msg string, args ...any) {
	c.logger.Warn(msg, args...)
}

func (c *Client) metricInc(id int) {
	c.metrics.Inc(MetricID(id))
}

func (c *Client) hooks() flows.Hooks {
	return flows.Hooks{
		MetricInc: c.metricInc,
		EmitAudit: c.emitAudit,
		Warn:      c.warn,
	}
}
