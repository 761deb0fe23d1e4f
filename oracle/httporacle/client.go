// Package httporacle is an oracle.Oracle backed by a remote price service
// speaking JSON over HTTP.
//
//	GET  {base}/quote?fiat=N           -> {"native": N, "minimum": N}
//	POST {base}/convert {"fiat","payment"} -> {"native": N}
//
// A 402 response to convert means the payment was below the service
// minimum. Quotes are retried with exponential backoff on 429 and 5xx;
// conversions are never retried.
package httporacle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/xraph/licensing/oracle"
)

// Client calls a remote price service.
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger

	maxElapsed time.Duration
}

var _ oracle.Oracle = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit caps outbound requests at rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRetryWindow bounds how long quotes are retried.
func WithRetryWindow(d time.Duration) Option {
	return func(c *Client) { c.maxElapsed = d }
}

// New returns a Client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("httporacle: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("httporacle: base url %q must be absolute", baseURL)
	}

	c := &Client{
		base:       u,
		http:       &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(20), 5),
		logger:     slog.Default(),
		maxElapsed: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type convertRequest struct {
	Fiat    uint64 `json:"fiat"`
	Payment uint64 `json:"payment"`
}

type convertResponse struct {
	Native uint64 `json:"native"`
}

// statusError is a non-2xx response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("httporacle: unexpected status %d: %s", e.code, e.body)
}

// terminalError is a failure that a retry cannot fix.
type terminalError struct{ err error }

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var te *terminalError
	if errors.As(err, &te) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= http.StatusInternalServerError
	}
	return true
}

// Quote implements oracle.Oracle.
func (c *Client) Quote(ctx context.Context, fiat uint64) (oracle.Quote, error) {
	u := c.base.JoinPath("quote")
	u.RawQuery = url.Values{"fiat": {strconv.FormatUint(fiat, 10)}}.Encode()

	var q oracle.Quote
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("httporacle: build request: %w", err))
		}
		err = c.do(req, &q)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		c.logger.Warn("price quote failed, retrying", "fiat", fiat, "error", err)
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = c.maxElapsed

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return oracle.Quote{}, err
	}
	return q, nil
}

// Convert implements oracle.Oracle.
func (c *Client) Convert(ctx context.Context, fiat, payment uint64) (uint64, error) {
	body, err := json.Marshal(convertRequest{Fiat: fiat, Payment: payment})
	if err != nil {
		return 0, fmt.Errorf("httporacle: encode convert: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath("convert").String(), bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("httporacle: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out convertResponse
	if err := c.do(req, &out); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusPaymentRequired {
			return 0, fmt.Errorf("%w: %s", oracle.ErrBelowMinimum, se.body)
		}
		return 0, err
	}
	return out.Native, nil
}

func (c *Client) do(req *http.Request, dest any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return &terminalError{fmt.Errorf("httporacle: rate limit: %w", err)}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("httporacle: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("failed to close response body", "url", req.URL.String(), "error", cerr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("httporacle: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode, body: string(bytes.TrimSpace(data))}
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return &terminalError{fmt.Errorf("httporacle: decode response: %w", err)}
	}
	return nil
}
