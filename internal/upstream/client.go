// Package upstream is the authenticated HTTP client for the Qualer REST API.
//
// One Client is built at startup and shared by every operation. Responses
// are decoded into untyped JSON (numbers kept as json.Number) and failures
// are classified with apperr before they leave this package.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"qualermcp/internal/apperr"
	"qualermcp/internal/config"
	"qualermcp/internal/metrics"
)

// DefaultTimeout is the per-call deadline used when the config leaves it unset.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 32 << 20

// Requester is the narrow view of the upstream API the operations depend on.
// Both methods return the decoded JSON body.
type Requester interface {
	Get(ctx context.Context, path string, query url.Values) (any, error)
	Post(ctx context.Context, path string, body any) (any, error)
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. Its Timeout is left untouched.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(log logr.Logger) Option {
	return func(cl *Client) {
		cl.log = log.WithName("upstream")
	}
}

// WithMetrics records every call on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

// Client implements Requester against the Qualer REST API.
// It is safe for concurrent use; net/http pools the connections.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*response]
	metrics *metrics.Metrics
	log     logr.Logger
}

type response struct {
	body []byte
}

// New builds the client from cfg. An empty token is a ConfigurationError.
func New(cfg config.UpstreamConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, apperr.Configuration("QUALER_TOKEN environment variable is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, apperr.Configuration("invalid QUALER_BASE_URL %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		timeout: timeout,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: logr.Discard(),
	}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}
	if cfg.BreakerFailures > 0 {
		c.breaker = newBreaker(cfg)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func newBreaker(cfg config.UpstreamConfig) *gobreaker.CircuitBreaker[*response] {
	threshold := uint32(cfg.BreakerFailures)
	return gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:    "qualer",
		Timeout: cfg.BreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Only an unreachable or failing upstream should trip the breaker;
		// a 404 or a rejected request says nothing about its health.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var e *apperr.Error
			if errors.As(err, &e) {
				switch e.Kind {
				case apperr.KindNotFound:
					return true
				case apperr.KindUpstream:
					return e.Status < http.StatusInternalServerError
				}
			}
			return false
		},
	})
}

// Get issues a GET for path with the given query parameters.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (any, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// Post issues a POST for path with body encoded as JSON.
func (c *Client) Post(ctx context.Context, path string, body any) (any, error) {
	return c.do(ctx, http.MethodPost, path, nil, body)
}

// BreakerState reports the circuit breaker state, or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (any, error) {
	start := time.Now()
	payload, err := c.call(ctx, method, path, query, body)

	outcome := "ok"
	if err != nil {
		outcome = apperr.KindOf(err).String()
		c.log.V(1).Info("upstream call failed", "method", method, "path", path, "kind", outcome, "error", err.Error())
	}
	c.metrics.ObserveUpstream(method, path, outcome, time.Since(start))
	return payload, err
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, body any) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, apperr.InvalidArgument("encode request body: %v", err)
		}
		reqBody = b
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperr.Transport("acquire rate limit token", err)
		}
	}

	exec := func() (*response, error) { return c.roundTrip(ctx, method, path, query, reqBody) }
	var (
		resp *response
		err  error
	)
	if c.breaker != nil {
		resp, err = c.breaker.Execute(exec)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperr.Transport("upstream circuit breaker open", err)
		}
	} else {
		resp, err = exec()
	}
	if err != nil {
		return nil, err
	}
	return decode(resp.body)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body []byte) (*response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, apperr.Transport("build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		// Prefer the context's error so deadline expiry is reported as a timeout.
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return nil, apperr.Classify(0, nil, err)
	}
	defer func() { _ = res.Body.Close() }()

	b, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, apperr.Transport("read response body", err)
	}
	if e := apperr.Classify(res.StatusCode, b, nil); e != nil {
		return nil, e
	}
	return &response{body: b}, nil
}

func decode(b []byte) (any, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, apperr.Transport("malformed upstream response", err)
	}
	return v, nil
}
