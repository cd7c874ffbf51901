package authclient

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ConfigFromEnv overlays environment variables on [DefaultConfig]. Keys are
// prefix + "_" + name, e.g. AUTHCLIENT_BASE_URL. Unset or malformed values
// keep the default; call Validate on the result.
func ConfigFromEnv(prefix string) Config {
	if prefix == "" {
		prefix = "AUTHCLIENT"
	}
	key := func(name string) string { return prefix + "_" + name }

	cfg := DefaultConfig()
	cfg.BaseURL = envString(key("BASE_URL"), cfg.BaseURL)

	cfg.HTTP.Timeout = envDuration(key("HTTP_TIMEOUT"), cfg.HTTP.Timeout)
	cfg.HTTP.UserAgent = envString(key("USER_AGENT"), cfg.HTTP.UserAgent)

	cfg.Refresh.Timeout = envDuration(key("REFRESH_TIMEOUT"), cfg.Refresh.Timeout)
	cfg.Refresh.ProactiveWindow = envDuration(key("REFRESH_PROACTIVE_WINDOW"), cfg.Refresh.ProactiveWindow)
	cfg.Refresh.KeepSessionOnNetworkError = envBool(key("REFRESH_KEEP_ON_NETWORK_ERROR"), cfg.Refresh.KeepSessionOnNetworkError)

	cfg.Session.Backend = SessionBackend(strings.ToLower(envString(key("SESSION_BACKEND"), string(cfg.Session.Backend))))
	cfg.Session.FilePath = envString(key("SESSION_FILE"), cfg.Session.FilePath)
	cfg.Session.RedisAddr = envString(key("REDIS_ADDR"), cfg.Session.RedisAddr)
	cfg.Session.RedisPrefix = envString(key("REDIS_PREFIX"), cfg.Session.RedisPrefix)
	cfg.Session.RedisKey = envString(key("REDIS_KEY"), cfg.Session.RedisKey)
	cfg.Session.RedisTTL = envDuration(key("REDIS_TTL"), cfg.Session.RedisTTL)

	cfg.Password.MinLength = envInt(key("PASSWORD_MIN_LENGTH"), cfg.Password.MinLength)
	cfg.Password.MaxLength = envInt(key("PASSWORD_MAX_LENGTH"), cfg.Password.MaxLength)

	cfg.Audit.Enabled = envBool(key("AUDIT_ENABLED"), cfg.Audit.Enabled)
	cfg.Audit.BufferSize = envInt(key("AUDIT_BUFFER"), cfg.Audit.BufferSize)

	cfg.Metrics.Enabled = envBool(key("METRICS_ENABLED"), cfg.Metrics.Enabled)
	cfg.Metrics.EnableLatencyHistograms = envBool(key("METRICS_LATENCY"), cfg.Metrics.EnableLatencyHistograms)

	cfg.Log.Level = envString(key("LOG_LEVEL"), cfg.Log.Level)
	return cfg
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// envInt accepts positive values only.
func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
