// Package exchange implements the market.QuoteSource contract against the
// remote coffee exchange price API.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

const defaultBaseURL = "https://api.coffee-exchange.io"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=exchange_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the coffee exchange price API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP client used for all requests.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// limiter gates outbound requests when configured.
	limiter gate
}

// ClientOption is a configuration option for the exchange client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithRateLimit gates requests with a token bucket of the given
// requests-per-minute rate and burst.
func WithRateLimit(maxPerMinute, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = newTokenBucket(float64(maxPerMinute)/60.0, burst)
	}
}

// WithMinInterval enforces a minimum delay between consecutive requests.
func WithMinInterval(interval time.Duration) ClientOption {
	return func(c *Client) {
		c.limiter = &minInterval{interval: interval}
	}
}

// NewClient creates a new coffee exchange API client.
func NewClient(apiKey string, options ...ClientOption) (*Client, error) {
	var client = &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
	}
	if apiKey != "" {
		client.header.Set("Authorization", "Bearer "+apiKey)
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// do performs one API request and decodes the JSON response body into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	if c.limiter != nil {
		if err := c.limiter.wait(ctx); err != nil {
			return err
		}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader = http.NoBody
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	req.Header = c.header.Clone()
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "performing request")
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusBadRequest:
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return fmt.Errorf("bad request: %s", string(b))

	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("unauthorized")

	case http.StatusNotFound:
		return fmt.Errorf("not found: %s", path)

	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limited")

	default:
		return fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}

// parseTimestamp parses an ISO-8601 instant. An empty or unparseable
// value yields the zero time, which downstream staleness handling treats
// as infinitely old.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
