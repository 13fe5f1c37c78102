// Package spacex provides the SpaceX API v4 HTTP client with retry,
// optional response caching and error classification.
package spacex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/spacex-explorer/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public SpaceX API v4 root.
const DefaultBaseURL = "https://api.spacexdata.com/v4"

// Prometheus metrics for SpaceX client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spacex_requests_total",
		Help: "Total SpaceX API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spacex_request_duration_seconds",
		Help:    "SpaceX API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spacex_errors_total",
		Help: "Total SpaceX API errors by class",
	}, []string{"class"})
)

// Client is the SpaceX API client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, without trailing slash.
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// Cache is optional; nil disables response caching.
	Cache *cache.Manager

	// Retry
	MaxAttempts    int
	InitialBackoff time.Duration
}

// DefaultConfig returns a default configuration against the public API.
func DefaultConfig() Config {
	retry := DefaultRetryConfig()
	return Config{
		BaseURL:        DefaultBaseURL,
		UserAgent:      "spacex-explorer/0.1.0",
		Timeout:        30 * time.Second,
		MaxAttempts:    retry.MaxAttempts,
		InitialBackoff: retry.InitialBackoff,
	}
}

// New creates a new SpaceX API client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base url is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("max_attempts must be >= 1 (got %d)", cfg.MaxAttempts)
	}

	if cfg.InitialBackoff < 0 {
		return nil, fmt.Errorf("initial_backoff must not be negative (got %s)", cfg.InitialBackoff)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:  cfg.Cache,
		config: cfg,
		logger: log.With().Str("component", "spacex-client").Logger(),
	}, nil
}

// request describes one logical API call.
type request struct {
	method   string
	path     string
	label    string
	body     []byte
	kind     cache.Kind
	cacheKey *cache.CacheKey
}

// QueryLaunches runs a filtered, paginated launch query.
func (c *Client) QueryLaunches(ctx context.Context, q LaunchQuery) (*LaunchPage, error) {
	kind := cache.KindLaunches
	if upcoming, ok := q.Query["upcoming"].(bool); ok && upcoming {
		kind = cache.KindUpcomingLaunches
	}
	return c.queryLaunches(ctx, q, kind)
}

// QueryDataset runs a launch query whose result feeds aggregate views and
// may be cached for longer than interactive listings.
func (c *Client) QueryDataset(ctx context.Context, q LaunchQuery) (*LaunchPage, error) {
	return c.queryLaunches(ctx, q, cache.KindDataset)
}

func (c *Client) queryLaunches(ctx context.Context, q LaunchQuery, kind cache.Kind) (*LaunchPage, error) {
	body, err := c.requestBody(q)
	if err != nil {
		return nil, err
	}

	var page LaunchPage
	if err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/launches/query",
		label:  "/launches/query",
		body:   body,
		kind:   kind,
	}, &page); err != nil {
		return nil, err
	}
	if page.Docs == nil {
		page.Docs = []Launch{}
	}
	return &page, nil
}

// requestBody encodes q as sent to the API. A nil selector matches everything.
func (c *Client) requestBody(q LaunchQuery) ([]byte, error) {
	if q.Query == nil {
		q.Query = map[string]any{}
	}
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encode launch query: %w", err)
	}
	return body, nil
}

// GetLaunch fetches a single launch by id.
func (c *Client) GetLaunch(ctx context.Context, id string) (*Launch, error) {
	var launch Launch
	if err := c.getOne(ctx, "launches", id, cache.KindLaunch, &launch); err != nil {
		return nil, err
	}
	return &launch, nil
}

// GetRocket fetches a single rocket by id.
func (c *Client) GetRocket(ctx context.Context, id string) (*Rocket, error) {
	var rocket Rocket
	if err := c.getOne(ctx, "rockets", id, cache.KindRocket, &rocket); err != nil {
		return nil, err
	}
	return &rocket, nil
}

// GetLaunchpad fetches a single launch site by id.
func (c *Client) GetLaunchpad(ctx context.Context, id string) (*Launchpad, error) {
	var pad Launchpad
	if err := c.getOne(ctx, "launchpads", id, cache.KindLaunchpad, &pad); err != nil {
		return nil, err
	}
	return &pad, nil
}

// GetLaunches fetches the launches with the given ids in one query.
// An empty id list returns an empty slice without calling the API.
func (c *Client) GetLaunches(ctx context.Context, ids []string) ([]Launch, error) {
	if len(ids) == 0 {
		return []Launch{}, nil
	}

	page, err := c.QueryLaunches(ctx, LaunchQuery{
		Query:   map[string]any{"_id": map[string]any{"$in": ids}},
		Options: QueryOptions{Limit: len(ids)},
	})
	if err != nil {
		return nil, err
	}
	return page.Docs, nil
}

func (c *Client) getOne(ctx context.Context, collection, id string, kind cache.Kind, out any) error {
	id = strings.TrimSpace(id)
	if id == "" {
		// same outcome as the API answering 404: nothing to look up
		return &APIError{
			StatusCode: http.StatusNotFound,
			ErrorClass: ErrorClassClient,
			Message:    collection + " id is empty",
		}
	}

	return c.do(ctx, request{
		method: http.MethodGet,
		path:   "/" + collection + "/" + id,
		label:  "/" + collection + "/:id",
		kind:   kind,
	}, out)
}

// do executes a request with caching and retry and decodes the JSON body into out.
func (c *Client) do(ctx context.Context, r request, out any) error {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(r.label).Observe(time.Since(startTime).Seconds())
	}()

	key := cache.CacheKey{Kind: r.kind, Endpoint: r.path, Body: r.body}
	if c.cache != nil {
		r.cacheKey = &key
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			if err := json.Unmarshal(entry.Data, out); err == nil {
				c.logger.Debug().
					Str("endpoint", r.label).
					Dur("age", entry.Age()).
					Msg("Serving cached response")
				requestsTotal.WithLabelValues(r.label, "cached").Inc()
				return nil
			}
			c.logger.Warn().Str("endpoint", r.label).Msg("Discarding undecodable cache entry")
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", r.label).Msg("Cache get error")
		}
	}

	c.logger.Debug().
		Str("endpoint", r.label).
		Str("method", r.method).
		Msg("Executing SpaceX API request")

	var data []byte
	retryCfg := RetryConfig{MaxAttempts: c.config.MaxAttempts, InitialBackoff: c.config.InitialBackoff}
	err := retryWithBackoff(ctx, retryCfg, c.logger, func(attempt int) error {
		body, err := c.attempt(ctx, r)
		if err != nil {
			return err
		}
		data = body
		return nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, out); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return &APIError{
			StatusCode: http.StatusOK,
			ErrorClass: ErrorClassDecode,
			Message:    "decode response body",
			Err:        err,
		}
	}

	if r.cacheKey != nil {
		if err := c.cache.Set(ctx, *r.cacheKey, cache.NewEntry(data, http.StatusOK, r.kind.TTL())); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", r.label).Msg("Failed to cache response")
		}
	}

	return nil
}

// attempt performs a single HTTP round trip and returns the body of a 2xx response.
func (c *Client) attempt(ctx context.Context, r request) ([]byte, error) {
	var reqBody io.Reader
	if r.body != nil {
		reqBody = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.config.BaseURL+r.path, reqBody)
	if err != nil {
		return nil, &APIError{ErrorClass: ErrorClassClient, Message: "create request", Err: err}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", r.label).Msg("HTTP request failed")
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(r.label, "network_error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errClass := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(errClass)).Inc()
		requestsTotal.WithLabelValues(r.label, status).Inc()
		_, _ = io.Copy(io.Discard, resp.Body)

		c.logger.Warn().
			Str("endpoint", r.label).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("SpaceX API request error")

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    "API request failed: " + http.StatusText(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// truncated body counts as a transport failure
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(r.label, "network_error").Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	requestsTotal.WithLabelValues(r.label, status).Inc()
	return body, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}
