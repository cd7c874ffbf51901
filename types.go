package authclient

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	internalaudit "github.com/MrEthical07/authclient/internal/audit"
	internalmetrics "github.com/MrEthical07/authclient/internal/metrics"
	"github.com/MrEthical07/authclient/internal/wire"
)

// TokenPair is an access/refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Request describes one call through the pipeline. Body is JSON-encoded
// unless it is []byte or json.RawMessage.
type Request struct {
	Method string
	Path   string
	Body   any
	Header http.Header
}

// Response is a fully read backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

var errEmptyResponse = errors.New("authclient: empty response body")

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Body) == 0 {
		return errEmptyResponse
	}
	return json.Unmarshal(r.Body, v)
}

// Profile is the current user as returned by the backend.
type Profile = wire.Profile

// RegisterRequest carries registration fields. Extra is merged into the
// JSON body for backend-specific fields.
type RegisterRequest struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Role     string         `json:"role,omitempty"`
	Extra    map[string]any `json:"-"`
}

func (r RegisterRequest) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, len(r.Extra)+4)
	for k, v := range r.Extra {
		body[k] = v
	}
	body["name"] = r.Name
	body["email"] = r.Email
	body["password"] = r.Password
	if r.Role != "" {
		body["role"] = r.Role
	}
	return json.Marshal(body)
}

// ResetRequestResult is identical for every forgot-password outcome.
type ResetRequestResult struct {
	Message string `json:"message"`
}

type ResetTokenStatus struct {
	Valid bool `json:"valid"`
}

// OAuthCallback holds the query parameters of an OAuth redirect.
type OAuthCallback struct {
	Token        string
	RefreshToken string
}

/*
====================================
AUDIT
====================================
*/

// AuditEvent is one session lifecycle record.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = internalaudit.Sink

type NoOpSink = internalaudit.NoOpSink

// ChannelSink delivers events on a channel, e.g. to route the UI to login on
// [AuditEventSessionExpired].
type ChannelSink = internalaudit.ChannelSink

type JSONWriterSink = internalaudit.JSONWriterSink

type SlogSink = internalaudit.SlogSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

/*
====================================
METRICS
====================================
*/

type MetricID = internalmetrics.MetricID

const (
	MetricRequests                    = internalmetrics.MetricRequests
	MetricRequestReplays              = internalmetrics.MetricRequestReplays
	MetricRequestTerminalUnauthorized = internalmetrics.MetricRequestTerminalUnauthorized
	MetricNetworkErrors               = internalmetrics.MetricNetworkErrors
	MetricRefreshStarted              = internalmetrics.MetricRefreshStarted
	MetricRefreshSuccess              = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure              = internalmetrics.MetricRefreshFailure
	MetricRefreshWaiters              = internalmetrics.MetricRefreshWaiters
	MetricRefreshProactive            = internalmetrics.MetricRefreshProactive
	MetricSessionCleared              = internalmetrics.MetricSessionCleared
	MetricLoginSuccess                = internalmetrics.MetricLoginSuccess
	MetricLoginFailure                = internalmetrics.MetricLoginFailure
	MetricRegisterSuccess             = internalmetrics.MetricRegisterSuccess
	MetricRegisterFailure             = internalmetrics.MetricRegisterFailure
	MetricLogout                      = internalmetrics.MetricLogout
	MetricLogoutRevokeFailure         = internalmetrics.MetricLogoutRevokeFailure
	MetricPasswordResetRequest        = internalmetrics.MetricPasswordResetRequest
	MetricPasswordResetConfirmSuccess = internalmetrics.MetricPasswordResetConfirmSuccess
	MetricPasswordResetConfirmFailure = internalmetrics.MetricPasswordResetConfirmFailure
	MetricPasswordResetLocalReject    = internalmetrics.MetricPasswordResetLocalReject
	MetricOAuthLoginSuccess           = internalmetrics.MetricOAuthLoginSuccess
	MetricOAuthLoginFailure           = internalmetrics.MetricOAuthLoginFailure
	MetricRequestLatency              = internalmetrics.MetricRequestLatency

	// MetricIDCount bounds the valid IDs.
	MetricIDCount = internalmetrics.MetricIDCount
)

// Metrics holds the client's lock-free counters.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of [Metrics].
type MetricsSnapshot = internalmetrics.Snapshot

func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.EnableLatencyHistograms,
	})
}
