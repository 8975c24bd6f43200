package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/zyraxfit/goSession/refresh"
	"github.com/zyraxfit/goSession/session"
)

const (
	HeaderAuthorization = "Authorization"
	BearerPrefix        = "Bearer "

	maxDrainBytes = 64 << 10
)

// Refresher mints a new access token, see refresh.Coordinator.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// Hooks receive authenticator transitions. Nil hooks are skipped.
type Hooks struct {
	// Retried fires before the single retry is sent.
	Retried func(ctx context.Context, stale bool)
	// SessionExpired fires when the refresh failed and the caller should sign in again.
	SessionExpired func(ctx context.Context, err error)
}

type Option func(*Authenticator)

// WithBase sets the transport that actually sends requests. Defaults to http.DefaultTransport.
func WithBase(base http.RoundTripper) Option {
	return func(a *Authenticator) {
		if base != nil {
			a.base = base
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithHooks(hooks Hooks) Option {
	return func(a *Authenticator) {
		a.hooks = hooks
	}
}

// Authenticator is safe for concurrent use.
type Authenticator struct {
	base      http.RoundTripper
	store     session.Store
	refresher Refresher
	logger    *zap.Logger
	hooks     Hooks
}

func NewAuthenticator(store session.Store, refresher Refresher, opts ...Option) (*Authenticator, error) {
	if store == nil {
		return nil, errors.New("authenticator requires a session store")
	}
	if refresher == nil {
		return nil, errors.New("authenticator requires a refresher")
	}

	a := &Authenticator{
		base:      http.DefaultTransport,
		store:     store,
		refresher: refresher,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Client returns an http.Client sending through a.
func (a *Authenticator) Client() *http.Client {
	return &http.Client{Transport: a}
}

// RoundTrip implements http.RoundTripper. req itself is never modified.
func (a *Authenticator) RoundTrip(original *http.Request) (*http.Response, error) {
	ctx := original.Context()

	pair, err := a.store.Get(ctx)
	if err != nil {
		closeBody(original)
		return nil, fmt.Errorf("read session: %w", err)
	}

	req, err := replayable(original)
	if err != nil {
		return nil, err
	}

	sent := pair.Access
	resp, err := a.base.RoundTrip(withToken(req, sent))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	drain(resp)

	token, stale, err := a.nextToken(ctx, sent)
	if err != nil {
		// a request sent without a token had no session to lose
		if errors.Is(err, refresh.ErrSessionExpired) && sent != "" {
			a.logger.Info("session expired, sign-in required",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
			)
			if a.hooks.SessionExpired != nil {
				a.hooks.SessionExpired(ctx, err)
			}
		}
		return nil, err
	}

	retry, err := rewind(req)
	if err != nil {
		return nil, err
	}
	if a.hooks.Retried != nil {
		a.hooks.Retried(ctx, stale)
	}
	a.logger.Debug("retrying request with refreshed token",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Bool("stale", stale),
	)

	return a.base.RoundTrip(withToken(retry, token))
}

// nextToken returns the token for the retry. stale is true when another request had
// already replaced the token that drew the 401.
func (a *Authenticator) nextToken(ctx context.Context, sent string) (string, bool, error) {
	pair, err := a.store.Get(ctx)
	if err == nil && pair.Access != "" && pair.Access != sent && pair.Refresh != "" {
		return pair.Access, true, nil
	}

	token, err := a.refresher.Refresh(ctx)
	if err != nil {
		return "", false, err
	}
	return token, false, nil
}

func withToken(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set(HeaderAuthorization, BearerPrefix+token)
	}
	return out
}

// replayable returns a clone of req whose body can be read again for the retry.
func replayable(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return out, nil
	}

	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}

	out.Body = io.NopCloser(bytes.NewReader(data))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return out, nil
}

func rewind(req *http.Request) (*http.Request, error) {
	if req.GetBody == nil {
		return req, nil
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewind request body: %w", err)
	}
	out := req.Clone(req.Context())
	out.Body = body
	return out, nil
}

func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, resp.Body, maxDrainBytes)
	_ = resp.Body.Close()
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
