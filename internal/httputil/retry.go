// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the retrying HTTP client used to fetch papers.
package httputil

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	defaultMaxRetries = 5
	defaultBaseDelay  = 10 * time.Second

	// maxRetryAfter caps a server-supplied Retry-After.
	maxRetryAfter = 5 * time.Minute
)

// Client wraps an *http.Client and retries requests that are rate limited
// (429) or hit a temporarily unavailable server (503).
//
// The delay starts at BaseDelay and doubles each attempt: 10 s, 20 s,
// 40 s, 80 s, 160 s by default. A Retry-After header given in seconds
// overrides the computed delay.
type Client struct {
	HTTP       *http.Client
	MaxRetries int
	BaseDelay  time.Duration
	Logger     *zap.Logger
}

// NewClient returns a Client with the given request timeout and retry
// budget. Zero values select the defaults.
func NewClient(timeout time.Duration, maxRetries int, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		HTTP:       &http.Client{Timeout: timeout},
		MaxRetries: maxRetries,
		Logger:     logger,
	}
}

// Do executes req, retrying as described on Client. On each retry the
// response body is drained and closed before sleeping. If ctx is cancelled
// during a backoff wait Do returns ctx.Err(). After exhausting retries the
// last response is returned so the caller can inspect it.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	base := c.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}

	for attempt := 0; ; attempt++ {
		resp, err := hc.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if !retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := base << attempt
		if ra, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
			backoff = ra
		}
		log.Warn("request throttled, retrying",
			zap.String("url", req.URL.String()),
			zap.Int("status", resp.StatusCode),
			zap.Duration("backoff", backoff),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
		)

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// retryAfter parses a Retry-After value in seconds.
func retryAfter(v string) (time.Duration, bool) {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	d := time.Duration(secs) * time.Second
	return min(d, maxRetryAfter), true
}
