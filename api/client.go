package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultRequestIDHeader = "X-Request-ID"

type (
	ClientOption func(*Client)

	// Observer receives one call per completed request. err is set when no response
	// was received.
	Observer func(ctx context.Context, method, path string, status int, latency time.Duration, err error)

	Client struct {
		Name string
		REST *resty.Client
		opts []ClientOption
	}
)

func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		REST: resty.New(),
		opts: opts,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// NewRequest starts a request bound to ctx.
func (c *Client) NewRequest(ctx context.Context) *resty.Request {
	return c.REST.NewRequest().SetContext(ctx)
}

// With returns a new client built from c's options followed by opts.
func (c *Client) With(opts ...ClientOption) *Client {
	merged := make([]ClientOption, 0, len(c.opts)+len(opts))
	merged = append(merged, c.opts...)
	merged = append(merged, opts...)
	return NewClient(merged...)
}

func WithDestination(name, baseURL string) ClientOption {
	return func(c *Client) {
		c.Name = name
		c.REST.SetBaseURL(strings.TrimRight(baseURL, "/"))
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.REST.SetTimeout(timeout)
		}
	}
}

// WithTransport replaces the round tripper, typically with a transport.Authenticator.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		if rt != nil {
			c.REST.SetTransport(rt)
		}
	}
}

// WithRequestID sets header to the request ID carried by the context, or a fresh UUID.
func WithRequestID(header string) ClientOption {
	if header == "" {
		header = DefaultRequestIDHeader
	}
	return func(c *Client) {
		c.REST.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			if req.Header.Get(header) != "" {
				return nil
			}
			id, ok := RequestID(req.Context())
			if !ok {
				id = uuid.NewString()
			}
			req.SetHeader(header, id)
			return nil
		})
	}
}

func WithRequestLogging(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger == nil {
			return
		}
		c.REST.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			fields := []zap.Field{
				zap.String("destination", destinationName(c)),
				zap.String("method", resp.Request.Method),
				zap.String("path", requestPath(resp.Request)),
				zap.Int("response_code", resp.StatusCode()),
				zap.Duration("latency", resp.Time()),
			}
			if resp.StatusCode() >= http.StatusInternalServerError {
				logger.Warn("api call completed with server error", fields...)
				return nil
			}
			logger.Debug("api call completed", fields...)
			return nil
		})

		c.REST.OnError(func(req *resty.Request, err error) {
			logger.Warn("api call failed",
				zap.String("destination", destinationName(c)),
				zap.String("method", req.Method),
				zap.String("path", requestPath(req)),
				zap.Error(err),
			)
		})
	}
}

func WithRequestObserver(observe Observer) ClientOption {
	return func(c *Client) {
		if observe == nil {
			return
		}
		c.REST.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			observe(resp.Request.Context(), resp.Request.Method, requestPath(resp.Request), resp.StatusCode(), resp.Time(), nil)
			return nil
		})
		c.REST.OnError(func(req *resty.Request, err error) {
			observe(req.Context(), req.Method, requestPath(req), 0, 0, err)
		})
	}
}

func requestPath(req *resty.Request) string {
	if req.RawRequest != nil && req.RawRequest.URL != nil {
		return req.RawRequest.URL.Path
	}
	return req.URL
}

func destinationName(c *Client) string {
	if c.Name != "" {
		return c.Name
	}
	return "-"
}

type requestIDKey struct{}

// WithRequestIDContext attaches id to ctx for [WithRequestID].
func WithRequestIDContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}
