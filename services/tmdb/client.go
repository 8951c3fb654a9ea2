// Package tmdb is the CineVerse client for The Movie Database API.
//
// Authentication: api_key query parameter from TMDB_API_KEY.
// Base URL: https://api.themoviedb.org/3
// Rate limit: ~50 requests/second (very generous) — this client does not
// rate-limit; callers should not call in tight loops.
//
// Transient failures (connection errors, timeouts, 5xx, 429) are retried with
// exponential backoff according to an explicit RetryPolicy passed to the
// constructor. 4xx client errors are never retried.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"
)

const baseURL = "https://api.themoviedb.org/3"

// RetryPolicy controls retry and timeout behavior for every outbound request.
type RetryPolicy struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // backoff is BaseDelay * attempt number
	Timeout    time.Duration // per-client HTTP timeout
}

// DefaultRetryPolicy matches the upstream tolerances TMDB recommends:
// 15s timeout, 3 retries, linear-growing backoff starting at 1s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, Timeout: 15 * time.Second}
}

// StatusError is returned for non-2xx TMDB responses.
type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb: HTTP %d for %s", e.Code, e.Path)
}

// Client is a TMDB API client. Create with NewClient.
type Client struct {
	apiKey     string
	policy     RetryPolicy
	httpClient *http.Client

	// base and sleep are swappable in tests: base points requests at an
	// httptest server, sleep keeps backoff from slowing the suite.
	base  string
	sleep func(time.Duration)
}

// NewClient creates a Client with the given key and retry policy.
// If apiKey is empty, TMDB_API_KEY is read from the environment.
func NewClient(apiKey string, policy RetryPolicy) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("TMDB_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("tmdb: TMDB_API_KEY is not set")
	}
	if policy.Timeout <= 0 {
		policy.Timeout = DefaultRetryPolicy().Timeout
	}
	return &Client{
		apiKey:     apiKey,
		policy:     policy,
		httpClient: &http.Client{Timeout: policy.Timeout, Transport: ipv4Transport()},
		base:       baseURL,
		sleep:      time.Sleep,
	}, nil
}

// ipv4Transport dials tcp4 only. Some networks advertise IPv6 routes to
// api.themoviedb.org that black-hole, which shows up as slow timeouts
// rather than fast failures.
func ipv4Transport() *http.Transport {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp4", addr)
		},
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}
}

// get performs a GET request with retry/backoff and decodes the JSON body.
// params may be nil; the api_key is always appended.
func (c *Client) get(ctx context.Context, path string, params url.Values, dst interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	reqURL := c.base + path + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			c.sleep(c.policy.BaseDelay * time.Duration(attempt))
		}

		err := c.doOnce(ctx, reqURL, path, dst)
		if err == nil {
			return nil
		}
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests {
			// Client error — retrying cannot help.
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, reqURL, path string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("tmdb: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode, Path: path}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("tmdb: decode response: %w", err)
	}
	return nil
}
