package goSession

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zyraxfit/goSession/api"
	"github.com/zyraxfit/goSession/internal/audit"
	"github.com/zyraxfit/goSession/jwt"
	"github.com/zyraxfit/goSession/refresh"
	"github.com/zyraxfit/goSession/session"
	"github.com/zyraxfit/goSession/transport"
)

var (
	errTokenExpired    = errors.New("stored access token expired")
	errAdminSiteUnset  = errors.New("admin site base URL not configured")
	errInvalidSitePath = errors.New("admin site path must be relative")
)

// RedirectHook is called with the login route after logout and after the session
// expired during a request. It runs on the goroutine that observed the transition.
type RedirectHook func(ctx context.Context, loginPath string)

// Engine owns the session of one actor: its token store, refresh coordinator,
// authenticated API client and the state read by guards.
//
// Engine methods are safe for concurrent use after [Builder.Build].
type Engine struct {
	config        Config
	store         session.Store
	logger        *zap.Logger
	metrics       *Metrics
	audit         *audit.Dispatcher
	onRedirect    RedirectHook
	loginClient   *api.Client
	client        *api.Client
	coordinator   *refresh.Coordinator
	authenticator *transport.Authenticator

	mu    sync.RWMutex
	state AuthState
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user"`
}

// State returns a copy of the current session state.
func (e *Engine) State() AuthState {
	if e == nil {
		return AuthState{}
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return copyState(e.state)
}

func (e *Engine) Actor() Actor {
	if e == nil {
		return ""
	}
	return e.config.Actor
}

// Store returns the session store the Engine was built with.
func (e *Engine) Store() session.Store {
	if e == nil {
		return nil
	}
	return e.store
}

// API returns the authenticated client. Requests carry the stored access token and
// are retried once after a refresh when the backend answers 401.
func (e *Engine) API() *api.Client {
	if e == nil {
		return nil
	}
	return e.client
}

// HTTPClient returns a net/http client sending through the same authenticator as API.
func (e *Engine) HTTPClient() *http.Client {
	if e == nil || e.authenticator == nil {
		return nil
	}
	client := e.authenticator.Client()
	client.Timeout = e.config.HTTP.Timeout
	return client
}

// Restore resolves the startup state from the store.
//
// A present, unexpired access token with a stored refresh token yields an authenticated
// state. A present but expired or undecodable access token clears both entries. Loading
// is false once Restore returns, including on error.
func (e *Engine) Restore(ctx context.Context) (AuthState, error) {
	if e == nil {
		return AuthState{}, ErrEngineNotReady
	}

	pair, err := e.store.Get(ctx)
	if err != nil {
		e.setState(AuthState{})
		e.logger.Error("session restore failed", zap.Error(err))
		return e.State(), fmt.Errorf("restore session: %w", err)
	}

	switch {
	case pair.Access == "":
		e.setState(AuthState{})
		return e.State(), nil

	case jwt.IsExpired(pair.Access):
		if err := e.store.Clear(ctx); err != nil {
			e.logger.Error("clear expired session", zap.Error(err))
		}
		e.setState(AuthState{})
		e.metricInc(MetricRestoreExpired)
		e.emitAudit(ctx, auditEventSessionRestored, false, "", errTokenExpired, nil)
		e.logger.Info("stored session expired")
		return e.State(), nil

	case pair.Refresh == "":
		e.setState(AuthState{})
		e.logger.Info("stored session has no refresh token")
		return e.State(), nil
	}

	var user *User
	if claims, err := jwt.Inspect(pair.Access); err == nil && claims.Subject != "" {
		user = &User{Username: claims.Subject, Role: claims.Role}
	}
	e.setState(AuthState{IsAuthenticated: true, User: user})
	e.metricInc(MetricRestoreAuthenticated)
	e.emitAudit(ctx, auditEventSessionRestored, true, usernameOf(user), nil, nil)
	return e.State(), nil
}

// Login exchanges credentials for a token pair at the login endpoint.
//
// Failures are returned as *LoginError, or ErrNoTokens when the backend answered
// without both tokens. On success the pair is stored and the state is authenticated.
func (e *Engine) Login(ctx context.Context, username, password string) (*User, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	return e.login(ctx, e.config.Endpoints.Login, username, password)
}

// ForceLogin is Login against the force-login endpoint, which signs out the oldest
// device when the account is at its device limit.
func (e *Engine) ForceLogin(ctx context.Context, username, password string) (*User, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	return e.login(ctx, e.config.Endpoints.ForceLogin, username, password)
}

func (e *Engine) login(ctx context.Context, endpoint, username, password string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.HTTP.LoginTimeout)
	defer cancel()

	var body loginResponse
	resp, err := e.loginClient.NewRequest(ctx).
		SetBody(credentials{Username: username, Password: password}).
		SetResult(&body).
		SetError(&api.ErrorBody{}).
		Post(endpoint)
	if err != nil {
		return nil, e.loginFailed(ctx, username, newLoginError("", 0, err))
	}
	if !resp.IsSuccess() {
		return nil, e.loginFailed(ctx, username, newLoginError(api.ErrorMessage(resp, ""), resp.StatusCode(), nil))
	}

	pair := session.TokenPair{Access: body.Access, Refresh: body.Refresh}
	if !pair.Complete() {
		return nil, e.loginFailed(ctx, username, ErrNoTokens)
	}
	if err := e.store.Set(ctx, pair); err != nil {
		return nil, e.loginFailed(ctx, username, fmt.Errorf("store session: %w", err))
	}

	user := body.User
	if user == nil || user.Username == "" {
		user = &User{Username: username}
	}
	e.setState(AuthState{IsAuthenticated: true, User: user})

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, username, nil, func() map[string]string {
		return map[string]string{"endpoint": endpoint}
	})
	e.logger.Info("login succeeded", zap.String("username", username))
	return copyUser(user), nil
}

func (e *Engine) loginFailed(ctx context.Context, username string, err error) error {
	e.metricInc(MetricLoginFailure)
	if errors.Is(err, ErrDeviceLimit) {
		e.metricInc(MetricLoginDeviceLimit)
	}
	e.emitAudit(ctx, auditEventLoginFailure, false, username, err, nil)
	e.logger.Warn("login failed", zap.String("username", username), zap.Error(err))
	return err
}

// Logout clears the store, resets the state and calls the redirect hook with the
// login route. The state is reset even when clearing the store fails.
func (e *Engine) Logout(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}

	username := usernameOf(e.State().User)
	err := e.store.Clear(ctx)
	e.setState(AuthState{})

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, err == nil, username, err, nil)
	if err != nil {
		e.logger.Error("logout could not clear session", zap.Error(err))
	} else {
		e.logger.Info("logged out", zap.String("username", username))
	}

	e.redirect(ctx)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// AdminURL returns the backend administration page at path.
func (e *Engine) AdminURL(path string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	base := e.config.AdminSite.BaseURL
	if base == "" {
		return "", errAdminSiteUnset
	}
	if strings.Contains(path, "://") || strings.HasPrefix(path, "//") || strings.Contains(path, "..") {
		return "", errInvalidSitePath
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/"), nil
}

// Close stops the audit dispatcher after delivering queued events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

/*
====================================
REFRESH AND TRANSPORT HOOKS
====================================
*/

func (e *Engine) refreshHooks() refresh.Hooks {
	return refresh.Hooks{
		Refreshed: func(ctx context.Context, latency time.Duration) {
			e.metricInc(MetricRefreshSuccess)
			e.metricObserve(MetricRefreshLatency, latency)
			e.emitAudit(ctx, auditEventRefreshSuccess, true, usernameOf(e.State().User), nil, nil)
		},
		Failed: func(ctx context.Context, err error) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshFailure, false, usernameOf(e.State().User), err, nil)
		},
		Shared: func(context.Context) {
			e.metricInc(MetricRefreshShared)
		},
	}
}

func (e *Engine) transportHooks() transport.Hooks {
	return transport.Hooks{
		Retried: func(_ context.Context, stale bool) {
			e.metricInc(MetricRequestRetried)
			if stale {
				e.metricInc(MetricStaleTokenRetry)
			}
		},
		SessionExpired: e.expire,
	}
}

// expire runs after the coordinator cleared the store.
func (e *Engine) expire(ctx context.Context, err error) {
	username := usernameOf(e.State().User)
	e.setState(AuthState{})

	e.metricInc(MetricSessionExpired)
	e.emitAudit(ctx, auditEventSessionExpired, false, username, err, nil)
	e.logger.Info("session expired", zap.String("username", username))
	e.redirect(ctx)
}

func (e *Engine) redirect(ctx context.Context) {
	if e.onRedirect != nil {
		e.onRedirect(ctx, e.config.Routes.Login)
	}
}

/*
====================================
HELPERS
====================================
*/

func (e *Engine) setState(state AuthState) {
	e.mu.Lock()
	e.state = copyState(state)
	e.mu.Unlock()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

func copyState(s AuthState) AuthState {
	s.User = copyUser(s.User)
	return s
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

func usernameOf(u *User) string {
	if u == nil {
		return ""
	}
	return u.Username
}
