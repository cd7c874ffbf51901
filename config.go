package authclient

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrEthical07/authclient/password"
)

// Config defines the client's behavior. Build it with [DefaultConfig] or
// [ConfigFromEnv], adjust, then pass it to [Builder.WithConfig]; treat it as
// immutable afterwards.
type Config struct {
	BaseURL       string
	Endpoints     EndpointConfig
	HTTP          HTTPConfig
	Refresh       RefreshConfig
	Session       SessionConfig
	Password      password.Policy
	PasswordReset PasswordResetConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
	Log           LogConfig
}

/*
====================================
ENDPOINTS
====================================
*/

// EndpointConfig holds backend paths relative to BaseURL.
type EndpointConfig struct {
	Login              string
	Register           string
	Logout             string
	Refresh            string
	Me                 string
	ForgotPassword     string
	ValidateResetToken string // "{token}" is replaced; otherwise the token is appended
	ResetPassword      string
}

/*
====================================
TRANSPORT
====================================
*/

type HTTPConfig struct {
	Timeout   time.Duration
	UserAgent string
	// RequestIDHeader carries a per-call ID that is stable across a replay.
	// Empty disables it.
	RequestIDHeader string
}

/*
====================================
REFRESH
====================================
*/

// RefreshConfig controls the coordinated token refresh.
type RefreshConfig struct {
	// Timeout bounds one refresh call independent of any caller's context.
	Timeout time.Duration
	// ProactiveWindow > 0 refreshes before sending when the access token
	// expires within the window. Requires JWT access tokens.
	ProactiveWindow time.Duration
	// KeepSessionOnNetworkError keeps the session when the refresh call never
	// reached the backend. The default clears it, like an auth failure.
	KeepSessionOnNetworkError bool
}

/*
====================================
SESSION STORAGE
====================================
*/

type SessionBackend string

const (
	SessionBackendMemory SessionBackend = "memory"
	SessionBackendFile   SessionBackend = "file"
	SessionBackendRedis  SessionBackend = "redis"
)

// SessionConfig selects the store Build creates when no store is injected.
// The default is a file under [DefaultSessionPath]; the memory backend does
// not survive a restart and is meant for tests.
type SessionConfig struct {
	Backend     SessionBackend
	FilePath    string
	RedisAddr   string
	RedisPrefix string
	RedisKey    string
	RedisTTL    time.Duration
}

type PasswordResetConfig struct {
	// GenericMessage is returned for every forgot-password outcome.
	GenericMessage string
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

type LogConfig struct {
	Level string // debug, info, warn, error
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration for the platform's standard backend.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:5000",
		Endpoints: EndpointConfig{
			Login:              "/api/auth/login",
			Register:           "/api/auth/register",
			Logout:             "/api/auth/logout",
			Refresh:            "/api/auth/refresh-token",
			Me:                 "/api/auth/me",
			ForgotPassword:     "/api/auth/forgot-password",
			ValidateResetToken: "/api/auth/reset-password/{token}",
			ResetPassword:      "/api/auth/reset-password",
		},
		HTTP: HTTPConfig{
			Timeout:         30 * time.Second,
			UserAgent:       "authclient/1",
			RequestIDHeader: "X-Request-ID",
		},
		Refresh: RefreshConfig{
			Timeout: 15 * time.Second,
		},
		Session: SessionConfig{
			Backend:     SessionBackendFile,
			FilePath:    DefaultSessionPath(),
			RedisPrefix: "acs",
			RedisKey:    "default",
		},
		Password: password.DefaultPolicy(),
		PasswordReset: PasswordResetConfig{
			GenericMessage: "If the email exists, a reset link has been sent.",
		},
		Audit: AuditConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
		Log: LogConfig{Level: "info"},
	}
}

// DefaultSessionPath is the session file used when none is configured:
// authclient/session under the user configuration directory, or under the
// working directory when that is unknown.
func DefaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "authclient", "session")
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("BaseURL must be an absolute http(s) URL")
	}

	paths := map[string]string{
		"Login":              c.Endpoints.Login,
		"Register":           c.Endpoints.Register,
		"Logout":             c.Endpoints.Logout,
		"Refresh":            c.Endpoints.Refresh,
		"Me":                 c.Endpoints.Me,
		"ForgotPassword":     c.Endpoints.ForgotPassword,
		"ValidateResetToken": c.Endpoints.ValidateResetToken,
		"ResetPassword":      c.Endpoints.ResetPassword,
	}
	for name, p := range paths {
		if !strings.HasPrefix(p, "/") {
			return errors.New("Endpoints." + name + " must start with /")
		}
	}

	if c.HTTP.Timeout < 0 {
		return errors.New("HTTP Timeout must be >= 0")
	}
	if c.Refresh.Timeout <= 0 {
		return errors.New("Refresh Timeout must be > 0")
	}
	if c.Refresh.ProactiveWindow < 0 {
		return errors.New("Refresh ProactiveWindow must be >= 0")
	}

	switch c.Session.Backend {
	case SessionBackendMemory, "":
	case SessionBackendFile:
		if c.Session.FilePath == "" {
			return errors.New("Session FilePath required for file backend")
		}
	case SessionBackendRedis:
		if c.Session.RedisTTL < 0 {
			return errors.New("Session RedisTTL must be >= 0")
		}
	default:
		return errors.New("unsupported Session Backend")
	}

	if err := c.Password.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.PasswordReset.GenericMessage) == "" {
		return errors.New("PasswordReset GenericMessage must not be empty")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}
