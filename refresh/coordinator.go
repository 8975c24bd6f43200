package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/zyraxfit/goSession/session"
)

const (
	DefaultEndpoint = "/zyrax/refresh/"
	DefaultTimeout  = 10 * time.Second

	flightKey = "refresh"
)

// Config configures a [Coordinator].
type Config struct {
	// Endpoint is resolved against the resty client's base URL.
	Endpoint string
	// Timeout bounds one exchange, including the store write.
	Timeout time.Duration
}

// Hooks receive refresh outcomes. Nil hooks are skipped.
type Hooks struct {
	Refreshed func(ctx context.Context, latency time.Duration)
	Failed    func(ctx context.Context, err error)
	Shared    func(ctx context.Context)
}

type Option func(*Coordinator)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithHooks(hooks Hooks) Option {
	return func(c *Coordinator) {
		c.hooks = hooks
	}
}

// Coordinator owns the refresh exchange for one session store.
type Coordinator struct {
	store    session.Store
	client   *resty.Client
	endpoint string
	timeout  time.Duration
	logger   *zap.Logger
	hooks    Hooks
	group    singleflight.Group
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

// NewCoordinator returns a Coordinator posting to cfg.Endpoint through client.
//
// client must not route through the request authenticator, otherwise a rejected
// refresh would trigger another refresh.
func NewCoordinator(store session.Store, client *resty.Client, cfg Config, opts ...Option) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("refresh coordinator requires a session store")
	}
	if client == nil {
		return nil, errors.New("refresh coordinator requires an http client")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Coordinator{
		store:    store,
		client:   client,
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Refresh returns a new access token, sharing the exchange with concurrent callers.
//
// Refresh returns ErrMissingToken when nothing is stored and an error matching
// ErrSessionExpired when the exchange fails; in both cases the store is empty afterwards.
// Cancelling ctx abandons the wait but not the shared exchange.
func (c *Coordinator) Refresh(ctx context.Context) (string, error) {
	// set only when this caller's function ran the exchange
	var leader bool
	ch := c.group.DoChan(flightKey, func() (interface{}, error) {
		leader = true
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.exchange(flightCtx)
	})

	select {
	case res := <-ch:
		if res.Shared && !leader && c.hooks.Shared != nil {
			c.hooks.Shared(ctx)
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Coordinator) exchange(ctx context.Context) (string, error) {
	started := time.Now()

	pair, err := c.store.Get(ctx)
	if err != nil {
		return "", c.fail(ctx, fmt.Errorf("%w: read session: %w", ErrSessionExpired, err))
	}
	if pair.Refresh == "" {
		return "", c.fail(ctx, ErrMissingToken)
	}

	var body refreshResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(refreshRequest{Refresh: pair.Refresh}).
		SetResult(&body).
		ForceContentType("application/json").
		Post(c.endpoint)
	if err != nil {
		return "", c.fail(ctx, fmt.Errorf("%w: %w", ErrSessionExpired, err))
	}
	if !resp.IsSuccess() {
		return "", c.fail(ctx, &RejectedError{StatusCode: resp.StatusCode()})
	}
	if body.Access == "" {
		return "", c.fail(ctx, fmt.Errorf("%w: refresh response carried no access token", ErrSessionExpired))
	}

	if err := c.store.SetAccess(ctx, body.Access); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			// logged out while the exchange was in flight
			return "", c.fail(ctx, fmt.Errorf("%w: session cleared during refresh", ErrSessionExpired))
		}
		return "", c.fail(ctx, fmt.Errorf("%w: store access token: %w", ErrSessionExpired, err))
	}

	latency := time.Since(started)
	c.logger.Debug("access token refreshed", zap.Duration("latency", latency))
	if c.hooks.Refreshed != nil {
		c.hooks.Refreshed(ctx, latency)
	}
	return body.Access, nil
}

func (c *Coordinator) fail(ctx context.Context, err error) error {
	// the exchange deadline may already have passed
	clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()
	if clearErr := c.store.Clear(clearCtx); clearErr != nil {
		c.logger.Error("session clear after failed refresh", zap.Error(clearErr))
	}

	c.logger.Warn("access token refresh failed", zap.Error(err))
	if c.hooks.Failed != nil {
		c.hooks.Failed(ctx, err)
	}
	return err
}
