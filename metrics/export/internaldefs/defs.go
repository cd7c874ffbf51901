package internaldefs

import (
	"github.com/MrEthical07/authclient"
)

// CounterDef names one client counter.
type CounterDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// HistogramDef names one client histogram.
type HistogramDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: authclient.MetricRequests, Name: "authclient_requests_total", Help: "Logical requests sent through the pipeline."},
	{ID: authclient.MetricRequestReplays, Name: "authclient_request_replays_total", Help: "Requests replayed after a 401."},
	{ID: authclient.MetricRequestTerminalUnauthorized, Name: "authclient_request_terminal_unauthorized_total", Help: "Replayed requests rejected again with 401."},
	{ID: authclient.MetricNetworkErrors, Name: "authclient_network_errors_total", Help: "Transport failures before a response was read."},
	{ID: authclient.MetricRefreshStarted, Name: "authclient_refresh_started_total", Help: "Refresh calls sent to the backend."},
	{ID: authclient.MetricRefreshSuccess, Name: "authclient_refresh_success_total", Help: "Refreshes whose pair was stored."},
	{ID: authclient.MetricRefreshFailure, Name: "authclient_refresh_failure_total", Help: "Refreshes that were rejected, unreachable or superseded."},
	{ID: authclient.MetricRefreshWaiters, Name: "authclient_refresh_waiters_total", Help: "Callers that waited on another caller's refresh."},
	{ID: authclient.MetricRefreshProactive, Name: "authclient_refresh_proactive_total", Help: "Refreshes started before the access token expired."},
	{ID: authclient.MetricSessionCleared, Name: "authclient_session_cleared_total", Help: "Sessions cleared after a failed refresh."},
	{ID: authclient.MetricLoginSuccess, Name: "authclient_login_success_total", Help: "Successful logins."},
	{ID: authclient.MetricLoginFailure, Name: "authclient_login_failure_total", Help: "Failed logins."},
	{ID: authclient.MetricRegisterSuccess, Name: "authclient_register_success_total", Help: "Successful registrations."},
	{ID: authclient.MetricRegisterFailure, Name: "authclient_register_failure_total", Help: "Failed registrations."},
	{ID: authclient.MetricLogout, Name: "authclient_logout_total", Help: "Logouts."},
	{ID: authclient.MetricLogoutRevokeFailure, Name: "authclient_logout_revoke_failure_total", Help: "Logouts whose server-side revoke failed."},
	{ID: authclient.MetricPasswordResetRequest, Name: "authclient_password_reset_request_total", Help: "Forgot-password requests that reached the backend."},
	{ID: authclient.MetricPasswordResetConfirmSuccess, Name: "authclient_password_reset_confirm_success_total", Help: "Accepted password resets."},
	{ID: authclient.MetricPasswordResetConfirmFailure, Name: "authclient_password_reset_confirm_failure_total", Help: "Rejected password resets."},
	{ID: authclient.MetricPasswordResetLocalReject, Name: "authclient_password_reset_local_reject_total", Help: "Password resets rejected before any network call."},
	{ID: authclient.MetricOAuthLoginSuccess, Name: "authclient_oauth_login_success_total", Help: "Completed OAuth logins."},
	{ID: authclient.MetricOAuthLoginFailure, Name: "authclient_oauth_login_failure_total", Help: "Failed OAuth logins."},
}

var HistogramDefs = []HistogramDef{
	{ID: authclient.MetricRequestLatency, Name: "authclient_request_latency_seconds", Help: "End-to-end latency of pipeline requests, replays included."},
}

// HistogramBounds are the upper bounds of the latency buckets, in seconds.
var HistogramBounds = []string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// HistogramBoundSuffix names each bucket in instrument names.
var HistogramBoundSuffix = []string{"0_005", "0_01", "0_025", "0_05", "0_1", "0_25", "0_5", "inf"}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into le-style running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
