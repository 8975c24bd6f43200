package goSession

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/zyraxfit/goSession/session"
)

const DefaultBaseURL = "https://api.zyrax.fit/"

// Config configures an [Engine]. Start from [DefaultConfig] or [DefaultConfigFor]
// and override fields; Build validates the result.
type Config struct {
	Actor     Actor
	BaseURL   string
	Keys      session.Keys
	Endpoints EndpointConfig
	Routes    RouteConfig
	Session   SessionConfig
	HTTP      HTTPConfig
	Refresh   RefreshConfig
	AdminSite AdminSiteConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
ENDPOINTS AND ROUTES
====================================
*/

// EndpointConfig holds backend paths resolved against BaseURL.
type EndpointConfig struct {
	Login      string
	ForceLogin string
	Refresh    string
}

// RouteConfig holds dashboard paths handed to the redirect hook.
type RouteConfig struct {
	// Login is where the user is sent after logout or session expiry.
	Login string
	// Default is the landing route after login.
	Default string
}

/*
====================================
SESSION / HTTP / REFRESH
====================================
*/

// SessionConfig applies to stores built by the Builder.
type SessionConfig struct {
	// RedisPrefix namespaces keys written by WithRedis.
	RedisPrefix string
}

type HTTPConfig struct {
	// Timeout bounds each API call made through Engine.API.
	Timeout time.Duration
	// LoginTimeout bounds login requests.
	LoginTimeout time.Duration
	// RequestIDHeader is set on every outgoing call. Empty disables request IDs.
	RequestIDHeader string
}

type RefreshConfig struct {
	// Timeout bounds one refresh exchange.
	Timeout time.Duration
}

// AdminSiteConfig locates the backend administration site opened by Engine.AdminURL.
type AdminSiteConfig struct {
	BaseURL string
}

/*
====================================
AUDIT / METRICS
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the admin dashboard configuration.
func DefaultConfig() Config {
	return DefaultConfigFor(ActorAdmin)
}

// DefaultConfigFor returns the configuration of actor. Unknown actors get the admin layout
// with Actor left as given, so Validate reports them.
func DefaultConfigFor(actor Actor) Config {
	cfg := Config{
		Actor:   actor,
		BaseURL: DefaultBaseURL,
		Keys:    session.AdminKeys,
		Endpoints: EndpointConfig{
			Login:      "/zyrax/devices/force-login/",
			ForceLogin: "/zyrax/devices/force-login/",
			Refresh:    "/zyrax/refresh/",
		},
		Routes: RouteConfig{
			Login:   "/login",
			Default: "/",
		},
		Session: SessionConfig{
			RedisPrefix: "zyrax:",
		},
		HTTP: HTTPConfig{
			Timeout:         30 * time.Second,
			LoginTimeout:    15 * time.Second,
			RequestIDHeader: "X-Request-ID",
		},
		Refresh: RefreshConfig{
			Timeout: 10 * time.Second,
		},
		AdminSite: AdminSiteConfig{
			BaseURL: "http://127.0.0.1:8000/admin/",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}

	if actor == ActorTutor {
		cfg.Keys = session.TutorKeys
		cfg.Endpoints.Login = "/zyrax/tutor/login/"
		cfg.Endpoints.ForceLogin = "/zyrax/tutor/login/"
		cfg.Routes = RouteConfig{
			Login:   "/tutor-login",
			Default: "/tutor-dashboard",
		}
	}
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if !c.Actor.Valid() {
		return fmt.Errorf("unknown actor %q", c.Actor)
	}

	if err := validateBaseURL(c.BaseURL); err != nil {
		return fmt.Errorf("BaseURL: %w", err)
	}

	if c.Keys.Access == "" || c.Keys.Refresh == "" {
		return errors.New("Keys must name both entries")
	}
	if c.Keys.Access == c.Keys.Refresh {
		return errors.New("Keys must name distinct entries")
	}

	for name, path := range map[string]string{
		"Endpoints.Login":      c.Endpoints.Login,
		"Endpoints.ForceLogin": c.Endpoints.ForceLogin,
		"Endpoints.Refresh":    c.Endpoints.Refresh,
		"Routes.Login":         c.Routes.Login,
		"Routes.Default":       c.Routes.Default,
	} {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("%s must be an absolute path", name)
		}
	}

	if c.HTTP.Timeout <= 0 || c.HTTP.LoginTimeout <= 0 {
		return errors.New("HTTP timeouts must be > 0")
	}
	if c.Refresh.Timeout <= 0 {
		return errors.New("Refresh Timeout must be > 0")
	}

	if c.AdminSite.BaseURL != "" {
		if err := validateBaseURL(c.AdminSite.BaseURL); err != nil {
			return fmt.Errorf("AdminSite.BaseURL: %w", err)
		}
	}

	if c.Audit.BufferSize < 0 {
		return errors.New("Audit BufferSize must be >= 0")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Enabled")
	}

	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("host is required")
	}
	return nil
}
