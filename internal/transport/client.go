package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/realgarit/intuneup/pkg/constants"
	"github.com/realgarit/intuneup/pkg/errors"
	"github.com/realgarit/intuneup/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// RequestIDHeader carries a per-request correlation id Graph echoes back.
const RequestIDHeader = "client-request-id"

// Client provides HTTP client functionality with authentication.
type Client struct {
	http    *http.Client
	auth    Authenticator
	tokens  TokenSource
	writes  *rate.Limiter
	service string
	logger  *zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithWriteRateLimit limits POST/PATCH/PUT/DELETE requests to perSecond.
// Zero or negative disables the limit.
func WithWriteRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.writes = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.writes = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithService names the remote service in errors.
func WithService(name string) Option {
	return func(c *Client) {
		c.service = name
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a new transport client with the specified authenticator and
// token source.
func New(auth Authenticator, tokens TokenSource, opts ...Option) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	c := &Client{
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
		auth:    auth,
		tokens:  tokens,
		writes:  rate.NewLimiter(rate.Limit(constants.DefaultWriteRateLimit), constants.WriteBurstSize),
		service: constants.GraphServiceName,
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Service returns the service name used in errors.
func (c *Client) Service() string {
	return c.service
}

// Do performs an HTTP request with authentication applied.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		c.auth.Apply(req, token)
	}

	if isWrite(req.Method) && c.writes != nil {
		if err := c.writes.Wait(ctx); err != nil {
			return nil, err
		}
	}

	// Set common headers
	req.Header.Set("Accept", "application/json")
	if req.Body != nil && isWrite(req.Method) {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	ctx = logging.WithRequestID(logging.WithDefaultLogger(ctx, c.logger), requestID)

	start := time.Now()
	resp, err := c.http.Do(req.WithContext(ctx))
	event := logging.FromContext(ctx).Debug().
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Dur("elapsed", time.Since(start))
	if err != nil {
		event.Err(err).Msg("Request failed")
		return nil, err
	}
	event.Int("status", resp.StatusCode).Msg("Request completed")
	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapIO("create", "GET "+url, err)
	}
	return c.Do(ctx, req)
}

// Send performs a request with body encoded as JSON.
func (c *Client) Send(ctx context.Context, method, url string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.WrapParse("json", "request body", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errors.WrapIO("create", method+" "+url, err)
	}
	return c.Do(ctx, req)
}

// GetJSON performs a GET and decodes the response into target.
func (c *Client) GetJSON(ctx context.Context, url string, target any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	return c.decode(resp, target)
}

// SendJSON performs a write and decodes the response into target, which
// may be nil when no body is expected.
func (c *Client) SendJSON(ctx context.Context, method, url string, body, target any) error {
	resp, err := c.Send(ctx, method, url, body)
	if err != nil {
		return err
	}
	return c.decode(resp, target)
}

func (c *Client) decode(resp *http.Response, target any) error {
	err := DecodeResponse(resp, target)
	var apiErr *errors.APIError
	if errors.As(err, &apiErr) {
		apiErr.Service = c.service
	}
	return err
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
