// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package fetch is the shared HTTP client every source adapter goes through.
//
// A logical fetch makes up to MaxAttempts requests. Only HTTP 429 and
// transient network errors are retried, waiting i*BaseDelay after the i-th
// failed attempt (2s, 4s, ... with the default BaseDelay). Every other
// status is returned immediately as a typed *Error. Requests to the same
// host share a token bucket and, when enabled, a circuit breaker.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/contestwatch/internal/config"
	"github.com/tomtom215/contestwatch/internal/logging"
	"github.com/tomtom215/contestwatch/internal/metrics"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second

	defaultMaxBodyBytes = 8 << 20
	maxErrorBodyBytes   = 64 << 10
	maxRetryAfter       = 30 * time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Request describes one logical upstream call. Body is resent on every attempt.
// A positive MaxAttempts overrides the client default for this call only.
type Request struct {
	Method      string
	URL         string
	Header      http.Header
	Body        []byte
	MaxAttempts int
}

// Client is safe for concurrent use by multiple adapters.
type Client struct {
	httpClient   *http.Client
	maxAttempts  int
	baseDelay    time.Duration
	maxBodyBytes int64
	userAgent    string
	sleep        SleepFunc

	rateLimit      rate.Limit
	rateBurst      int
	breakerEnabled bool

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	breakers map[string]*hostBreaker
}

// Option customizes a Client.
type Option func(*Client)

// WithSleep replaces the backoff wait, typically with a recorder in tests.
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client from configuration. Zero values fall back to defaults;
// a RateLimit of 0 disables per-host throttling.
func New(cfg *config.FetchConfig, opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		maxAttempts:    cfg.MaxAttempts,
		baseDelay:      cfg.BaseDelay,
		maxBodyBytes:   cfg.MaxBodyBytes,
		userAgent:      cfg.UserAgent,
		sleep:          sleepCtx,
		rateLimit:      rate.Inf,
		rateBurst:      cfg.RateBurst,
		breakerEnabled: cfg.BreakerEnabled,
		limiters:       make(map[string]*rate.Limiter),
		breakers:       make(map[string]*hostBreaker),
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.baseDelay <= 0 {
		c.baseDelay = DefaultBaseDelay
	}
	if c.maxBodyBytes <= 0 {
		c.maxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.RateLimit > 0 {
		c.rateLimit = rate.Limit(cfg.RateLimit)
	}
	if c.rateBurst <= 0 {
		c.rateBurst = 1
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch GETs rawURL and returns the body.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: rawURL})
}

// GetJSON fetches rawURL and decodes the body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	body, err := c.Do(ctx, Request{
		Method: http.MethodGet,
		URL:    rawURL,
		Header: http.Header{"Accept": []string{"application/json"}},
	})
	if err != nil {
		return err
	}
	return DecodeJSON(rawURL, body, v)
}

// PostJSON marshals payload, POSTs it and decodes the reply into v.
func (c *Client) PostJSON(ctx context.Context, rawURL string, payload, v any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}
	body, err := c.Do(ctx, Request{
		Method: http.MethodPost,
		URL:    rawURL,
		Header: http.Header{
			"Accept":       []string{"application/json"},
			"Content-Type": []string{"application/json"},
		},
		Body: data,
	})
	if err != nil {
		return err
	}
	return DecodeJSON(rawURL, body, v)
}

// DecodeJSON decodes data into v, reporting failures as an UpstreamShapeError.
func DecodeJSON(rawURL string, data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return ShapeError(rawURL, "empty body")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &Error{Kind: KindShape, URL: rawURL, Err: err}
	}
	return nil
}

// Do performs a logical fetch with retries, throttling and breaker protection.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	u, err := url.Parse(req.URL)
	if err != nil || u.Host == "" {
		return nil, &Error{Kind: KindStatus, URL: req.URL, Err: fmt.Errorf("invalid url: %w", err)}
	}
	host := u.Host
	start := time.Now()

	var body []byte
	if c.breakerEnabled {
		body, err = c.breaker(host).execute(func() ([]byte, error) {
			return c.doWithRetry(ctx, host, req)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &Error{Kind: KindNetwork, URL: req.URL, Err: err}
		}
	} else {
		body, err = c.doWithRetry(ctx, host, req)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		var fe *Error
		if errors.As(err, &fe) {
			outcome = fe.Kind.String()
		}
	}
	metrics.RecordFetch(host, outcome, time.Since(start))
	return body, err
}

func (c *Client) doWithRetry(ctx context.Context, host string, req Request) ([]byte, error) {
	logger := logging.CtxFrom(ctx, logging.WithComponent("fetch"))
	limiter := c.limiter(host)

	maxAttempts := c.maxAttempts
	if req.MaxAttempts > 0 {
		maxAttempts = req.MaxAttempts
	}

	var lastErr *Error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, &Error{Kind: KindNetwork, URL: req.URL, Attempts: attempt - 1, Err: err}
		}

		body, status, retryAfter, err := c.once(ctx, req)
		if err == nil {
			return body, nil
		}
		err.Attempts = attempt
		lastErr = err

		if ctx.Err() != nil || !err.Transient() {
			return nil, err
		}
		if attempt == maxAttempts {
			break
		}

		delay := time.Duration(attempt) * c.baseDelay
		if retryAfter > delay {
			delay = retryAfter
		}
		logger.Warn().
			Str("url", req.URL).
			Int("status", status).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Upstream request failed, retrying")
		metrics.RecordFetchRetry(host)

		if err := c.sleep(ctx, delay); err != nil {
			return nil, &Error{Kind: KindNetwork, URL: req.URL, StatusCode: status, Attempts: attempt, Err: err}
		}
	}
	return nil, lastErr
}

// once performs a single HTTP exchange. The returned status is 0 when no
// response was received.
func (c *Client) once(ctx context.Context, req Request) ([]byte, int, time.Duration, *Error) {
	var reader io.Reader = http.NoBody
	if req.Body != nil {
		reader = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, reader)
	if err != nil {
		return nil, 0, 0, &Error{Kind: KindStatus, URL: req.URL, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if c.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		kind := KindStatus
		if isTransientNetErr(err) {
			kind = KindNetwork
		}
		if ctx.Err() != nil {
			kind = KindNetwork
		}
		return nil, 0, 0, &Error{Kind: kind, URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After")),
			&Error{Kind: KindRateLimited, StatusCode: resp.StatusCode, URL: req.URL}
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, resp.StatusCode, 0, &Error{Kind: KindNotFound, StatusCode: resp.StatusCode, URL: req.URL}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet := readBodyForError(resp.Body)
		return nil, resp.StatusCode, 0, &Error{
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			URL:        req.URL,
			Err:        fmt.Errorf("unexpected status: %s", snippet),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		kind := KindShape
		if isTransientNetErr(err) {
			kind = KindNetwork
		}
		return nil, resp.StatusCode, 0, &Error{Kind: kind, StatusCode: resp.StatusCode, URL: req.URL, Err: err}
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, resp.StatusCode, 0, &Error{
			Kind:       KindShape,
			StatusCode: resp.StatusCode,
			URL:        req.URL,
			Err:        fmt.Errorf("response body exceeds %d bytes", c.maxBodyBytes),
		}
	}
	return body, resp.StatusCode, 0, nil
}

func (c *Client) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(c.rateLimit, c.rateBurst)
		c.limiters[host] = l
	}
	return l
}

func (c *Client) breaker(host string) *hostBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.breakers[host]
	if !ok {
		b = newHostBreaker("upstream-" + host)
		c.breakers[host] = b
	}
	return b
}

// readBodyForError returns at most 64KB of body for error messages.
func readBodyForError(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	if err != nil {
		return "<unreadable body>"
	}
	if len(data) > 200 {
		return string(data[:200]) + "..."
	}
	return string(data)
}

// parseRetryAfter accepts delta-seconds only; the result is capped.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		return maxRetryAfter
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
