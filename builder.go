package authclient

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	internalaudit "github.com/MrEthical07/authclient/internal/audit"
	"github.com/MrEthical07/authclient/jwt"
	"github.com/MrEthical07/authclient/refresh"
	"github.com/MrEthical07/authclient/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a [Client]. A Builder is single-use.
type Builder struct {
	config Config

	httpClient *http.Client
	store      session.Store
	redis      redis.UniversalClient
	refresher  TokenRefresher
	inspector  *jwt.Inspector
	auditSink  AuditSink
	logger     *slog.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithHTTPClient sets the transport used for every backend call. Its Timeout
// is left untouched.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithSessionStore injects a store and overrides Config.Session.
func (b *Builder) WithSessionStore(s session.Store) *Builder {
	b.store = s
	return b
}

// WithRedis supplies the client for the redis session backend. The caller
// keeps ownership.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithTokenRefresher replaces the default HTTP refresher.
func (b *Builder) WithTokenRefresher(r TokenRefresher) *Builder {
	b.refresher = r
	return b
}

// WithInspector sets the access-token inspector used for proactive refresh.
func (b *Builder) WithInspector(i *jwt.Inspector) *Builder {
	b.inspector = i
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Client.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		config:      cfg,
		baseURL:     base,
		coordinator: &refresh.Coordinator{},
		inspector:   b.inspector,
		logger:      b.logger,
		metrics:     NewMetrics(cfg.Metrics),
	}
	if c.logger == nil {
		c.logger = discardLogger()
	}

	c.http = b.httpClient
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.HTTP.Timeout}
	}

	// -------- SESSION STORE --------
	c.store = b.store
	if c.store == nil {
		store, owned, err := b.buildStore(cfg.Session, c.warn)
		if err != nil {
			return nil, err
		}
		c.store = store
		c.ownedRedis = owned
	}

	// -------- TOKEN INSPECTION --------
	if c.inspector == nil && cfg.Refresh.ProactiveWindow > 0 {
		insp, err := jwt.NewInspector(jwt.InspectorConfig{})
		if err != nil {
			return nil, err
		}
		c.inspector = insp
	}

	c.refresher = b.refresher
	if c.refresher == nil {
		c.refresher = httpRefresher{client: c}
	}

	c.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true
	return c, nil
}

func (b *Builder) buildStore(cfg SessionConfig, warn session.WarnFunc) (session.Store, redis.UniversalClient, error) {
	switch cfg.Backend {
	case SessionBackendFile:
		store := session.NewFileStore(cfg.FilePath)
		store.Warn = warn
		return store, nil, nil
	case SessionBackendRedis:
		rdb, owned := b.redis, redis.UniversalClient(nil)
		if rdb == nil {
			if cfg.RedisAddr == "" {
				return nil, nil, errors.New("redis session backend requires WithRedis or Session RedisAddr")
			}
			owned = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			rdb = owned
		}
		store := session.NewRedisStore(rdb, cfg.RedisPrefix, cfg.RedisKey, cfg.RedisTTL)
		store.Warn = warn
		return store, owned, nil
	default:
		return session.NewMemoryStore(), nil, nil
	}
}
