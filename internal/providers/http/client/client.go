package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/formfill/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/formfill/internal/infrastructure/tracing"
)

// DefaultUserAgent identifies formfill on outbound calls.
const DefaultUserAgent = "formfill/1.0"

// Options configures a Client for one upstream.
type Options struct {
	Name              string
	BaseURL           string
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
	Breaker           resilience.Settings
	// Transport overrides the pooled transport, mainly for tests.
	Transport http.RoundTripper
}

// Client wraps resty with rate limiting, a circuit breaker and trace
// propagation. It never retries.
type Client struct {
	Resty   *resty.Client
	Limiter *rate.Limiter
	Breaker *resilience.Breaker

	name string
	mu   sync.RWMutex
}

// New creates a client for the upstream described by opts.
func New(opts Options) *Client {
	if opts.Name == "" {
		opts.Name = "http-external"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	transport := opts.Transport
	if transport == nil {
		pooled := retryablehttp.NewClient()
		pooled.RetryMax = 0
		pooled.Logger = nil
		transport = pooled.HTTPClient.Transport
	}

	restyClient := resty.New().
		SetTransport(transport).
		SetRetryCount(0).
		SetHeader("User-Agent", opts.UserAgent).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)
	if opts.BaseURL != "" {
		restyClient.SetBaseURL(opts.BaseURL)
	}
	if opts.Timeout > 0 {
		restyClient.SetTimeout(opts.Timeout)
	}
	restyClient.OnBeforeRequest(propagateTrace)

	limit := rate.Inf
	burst := 0
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = max(1, int(opts.RequestsPerSecond))
	}

	settings := opts.Breaker
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 10 ||
				(counts.Requests >= 20 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.7)
		}
	}
	if settings.Timeout == 0 {
		settings.Timeout = 30 * time.Second
	}

	return &Client{
		Resty:   restyClient,
		Limiter: rate.NewLimiter(limit, burst),
		Breaker: resilience.New(opts.Name, settings),
		name:    opts.Name,
	}
}

// Name returns the upstream name used in errors and metrics.
func (c *Client) Name() string {
	return c.name
}

// SetHeader adds a default header
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Resty.SetHeader(key, value)
}

// Request waits for the rate limiter and returns a request bound to ctx.
func (c *Client) Request(ctx context.Context) (*resty.Request, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Resty.R().SetContext(ctx), nil
}

// StatusError marks a 5xx response so the breaker counts it.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Code)
}

// Do sends one request through the breaker. The response is returned for
// every status code; only transport failures and a tripped breaker are errors.
func (c *Client) Do(ctx context.Context, send func(*resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	req, err := c.Request(ctx)
	if err != nil {
		return nil, err
	}

	var resp *resty.Response
	err = c.Breaker.Execute(ctx, func(context.Context) error {
		var sendErr error
		resp, sendErr = send(req)
		if sendErr != nil {
			return sendErr
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return &StatusError{Code: resp.StatusCode()}
		}
		return nil
	})

	var statusErr *StatusError
	switch {
	case err == nil, errors.As(err, &statusErr):
		return resp, nil
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		return nil, fmt.Errorf("%s unavailable: %w", c.name, err)
	default:
		return nil, fmt.Errorf("%s request failed: %w", c.name, err)
	}
}

// BreakerState returns the current circuit breaker state
func (c *Client) BreakerState() resilience.State {
	return c.Breaker.State()
}

func propagateTrace(_ *resty.Client, r *resty.Request) error {
	tracing.Inject(r.Context(), r.Header)
	return nil
}
