// Package market provides a best-effort Alpha Vantage client.
// Every operation resolves to a usable value: when the API fails, is rate limited or returns
// an empty payload, synthetic data is substituted and the Result says so.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the Alpha Vantage query endpoint.
const DefaultBaseURL = "https://www.alphavantage.co/query"

// DemoAPIKey is used when no key is configured.
const DemoAPIKey = "demo"

const userAgent = "marketquiz/1.0"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=market_test -destination=mock_http_client_test.go -source=client.go
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Cache stores normalized live responses.
type Cache interface {
	Get(ctx context.Context, key string, maxAge time.Duration) ([]byte, bool, error)
	Put(ctx context.Context, key string, payload []byte) error
}

// Delays are the fixed waits issued before a request to stay under the API rate limit.
type Delays struct {
	Chart    time.Duration
	Overview time.Duration
	Search   time.Duration
}

// DefaultDelays matches the client-side throttle of the quiz web app.
func DefaultDelays() Delays {
	return Delays{
		Chart:    time.Second,
		Overview: 2 * time.Second,
		Search:   500 * time.Millisecond,
	}
}

// Client talks to the market data API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
	logger     *zap.Logger
	cache      Cache
	cacheTTL   time.Duration
	delays     Delays
	mock       *MockData
	offline    bool
}

// Option is a configuration option for the Client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithCache enables the response cache with the given freshness window.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithDelays overrides the pre-request delays.
func WithDelays(d Delays) Option {
	return func(c *Client) {
		c.delays = d
	}
}

// WithMockData sets the synthetic data generator.
func WithMockData(m *MockData) Option {
	return func(c *Client) {
		c.mock = m
	}
}

// WithOffline skips the network and always serves synthetic data.
func WithOffline(offline bool) Option {
	return func(c *Client) {
		c.offline = offline
	}
}

// NewClient creates a market data client. An empty key selects DemoAPIKey.
func NewClient(apiKey string, options ...Option) *Client {
	if apiKey == "" {
		apiKey = DemoAPIKey
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     zap.NewNop(),
		delays:     DefaultDelays(),
	}
	for _, option := range options {
		option(c)
	}
	if c.mock == nil {
		c.mock = NewMockData()
	}
	if c.offline {
		c.delays = Delays{}
	}
	return c
}

// apiError is an explicit "Error Message" returned by the API.
type apiError struct {
	msg string
}

func (e *apiError) Error() string {
	return "api error: " + e.msg
}

var errRateLimited = errors.New("rate limit notice")

// payload is the top-level JSON object of a response.
type payload map[string]json.RawMessage

// query runs one GET and classifies the envelope. The returned Reason is empty on success.
func (c *Client) query(ctx context.Context, params url.Values) (payload, Reason, error) {
	if c.offline {
		return nil, ReasonRequestFailed, errOffline
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, ReasonRequestFailed, fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("apikey", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, ReasonRequestFailed, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ReasonRequestFailed, fmt.Errorf("send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, ReasonRequestFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ReasonRequestFailed, fmt.Errorf("read response: %w", err)
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, ReasonRequestFailed, fmt.Errorf("decode response: %w", err)
	}
	if msg, ok := p.text("Error Message"); ok {
		return nil, ReasonAPIError, &apiError{msg: msg}
	}
	for _, key := range []string{"Note", "Information"} {
		if msg, ok := p.text(key); ok {
			return nil, ReasonRateLimited, fmt.Errorf("%w: %s", errRateLimited, msg)
		}
	}
	return p, "", nil
}

// text returns a string field, reporting whether it was present and non-empty.
func (p payload) text(key string) (string, bool) {
	raw, ok := p[key]
	if !ok || string(raw) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw), len(raw) > 0
	}
	return s, s != ""
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) cached(ctx context.Context, key string, dst any) bool {
	if c.cache == nil || c.cacheTTL <= 0 {
		return false
	}
	data, ok, err := c.cache.Get(ctx, key, c.cacheTTL)
	if err != nil {
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("cache entry unreadable", zap.String("key", key), zap.Error(err))
		return false
	}
	c.logger.Debug("cache hit", zap.String("key", key))
	return true
}

func (c *Client) store(ctx context.Context, key string, v any) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.cache.Put(ctx, key, data); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Client) logFallback(op, subject string, reason Reason, err error) {
	c.logger.Warn("using synthetic data",
		zap.String("op", op),
		zap.String("subject", subject),
		zap.String("reason", string(reason)),
		zap.Error(err))
}
