package goSession

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zyraxfit/goSession/api"
	"github.com/zyraxfit/goSession/internal/audit"
	"github.com/zyraxfit/goSession/refresh"
	"github.com/zyraxfit/goSession/session"
	"github.com/zyraxfit/goSession/transport"
)

// Builder assembles an [Engine]. A Builder can be built once.
type Builder struct {
	config    Config
	store     session.Store
	redis     redis.UniversalClient
	logger    *zap.Logger
	auditSink AuditSink
	transport http.RoundTripper
	redirect  RedirectHook

	built bool
}

func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the session store. It takes precedence over WithRedis.
func (b *Builder) WithStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithRedis stores the session in Redis under Config.Session.RedisPrefix.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithTransport sets the round tripper that carries every backend call.
func (b *Builder) WithTransport(rt http.RoundTripper) *Builder {
	b.transport = rt
	return b
}

// OnRedirect sets the hook called with the login route after logout or session expiry.
func (b *Builder) OnRedirect(hook RedirectHook) *Builder {
	b.redirect = hook
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	if !enabled {
		b.config.Metrics.EnableLatencyHistograms = false
	}
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Engine. The returned Engine starts
// in the Loading state until Restore is called.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("actor", string(cfg.Actor)))

	// -------- SESSION STORE --------
	store := b.store
	if store == nil && b.redis != nil {
		rs, err := session.NewRedisStore(b.redis, cfg.Session.RedisPrefix, cfg.Keys)
		if err != nil {
			return nil, fmt.Errorf("redis session store: %w", err)
		}
		store = rs
	}
	if store == nil {
		store = session.NewMemoryStore()
	}

	engine := &Engine{
		config:     cfg,
		store:      store,
		logger:     logger,
		metrics:    NewMetrics(cfg.Metrics),
		onRedirect: b.redirect,
		state:      AuthState{Loading: true},
	}

	// -------- API CLIENTS --------
	base := []api.ClientOption{
		api.WithDestination("zyrax", cfg.BaseURL),
		api.WithTransport(b.transport),
		api.WithRequestLogging(logger),
	}
	if cfg.HTTP.RequestIDHeader != "" {
		base = append(base, api.WithRequestID(cfg.HTTP.RequestIDHeader))
	}

	// login and refresh calls must never pass through the authenticator
	plain := api.NewClient(base...)
	engine.loginClient = plain.With(api.WithTimeout(cfg.HTTP.LoginTimeout))
	refreshClient := plain.With(api.WithTimeout(cfg.Refresh.Timeout))

	coordinator, err := refresh.NewCoordinator(store, refreshClient.REST, refresh.Config{
		Endpoint: cfg.Endpoints.Refresh,
		Timeout:  cfg.Refresh.Timeout,
	}, refresh.WithLogger(logger), refresh.WithHooks(engine.refreshHooks()))
	if err != nil {
		return nil, err
	}
	engine.coordinator = coordinator

	authenticator, err := transport.NewAuthenticator(store, coordinator,
		transport.WithBase(b.transport),
		transport.WithLogger(logger),
		transport.WithHooks(engine.transportHooks()),
	)
	if err != nil {
		return nil, err
	}
	engine.authenticator = authenticator

	authenticated := make([]api.ClientOption, 0, len(base)+2)
	authenticated = append(authenticated, base...)
	authenticated = append(authenticated,
		api.WithTimeout(cfg.HTTP.Timeout),
		api.WithTransport(authenticator),
	)
	engine.client = api.NewClient(authenticated...)

	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink, logger)

	b.built = true

	return engine, nil
}
