// Package httputil provides a retrying HTTP client for outbound API calls.
package httputil

import (
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"
)

// RetryConfig controls the backoff schedule.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig retries up to three times with exponential backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryClient wraps an http.Client, retrying requests that fail with
// timeouts, connection errors, 429s or 5xx responses. Request bodies are
// replayed through GetBody, so callers must use replayable bodies.
type RetryClient struct {
	client *http.Client
	config RetryConfig
}

// NewRetryClient builds a retry client. A nil client uses
// http.DefaultClient; zero config fields fall back to defaults.
func NewRetryClient(client *http.Client, config RetryConfig) *RetryClient {
	if client == nil {
		client = http.DefaultClient
	}

	defaults := DefaultRetryConfig()
	if config.MaxRetries == 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.InitialDelay == 0 {
		config.InitialDelay = defaults.InitialDelay
	}
	if config.MaxDelay == 0 {
		config.MaxDelay = defaults.MaxDelay
	}
	if config.Multiplier == 0 {
		config.Multiplier = defaults.Multiplier
	}

	return &RetryClient{client: client, config: config}
}

// Do executes the request, honoring the request context between attempts.
// When a throttled response carries a Retry-After delay within MaxDelay,
// that delay replaces the backoff for the next attempt.
func (c *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error
	delay := c.config.InitialDelay
	var wait time.Duration

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if req.GetBody != nil {
				body, bodyErr := req.GetBody()
				if bodyErr != nil {
					return nil, bodyErr
				}
				req.Body = body
			}

			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(wait):
			}
		}

		resp, err = c.client.Do(req)
		if !shouldRetry(resp, err) {
			return resp, err
		}

		wait = applyJitter(delay)
		if resp != nil {
			if after, ok := retryAfter(resp); ok && after <= c.config.MaxDelay {
				wait = after
			}
			_ = resp.Body.Close()
		}
		delay = min(time.Duration(float64(delay)*c.config.Multiplier), c.config.MaxDelay)
	}

	return resp, err
}

// retryAfter reads a Retry-After header given in seconds. The HTTP-date
// form is rare on Google APIs and falls through to normal backoff.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return true
		}
		if _, ok := err.(*net.OpError); ok {
			return true
		}
		if _, ok := err.(*net.DNSError); ok {
			return true
		}
		return false
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}

	return resp.StatusCode >= 500 && resp.StatusCode < 600
}

func applyJitter(delay time.Duration) time.Duration {
	jitterFactor := 0.9 + rand.Float64()*0.2
	return time.Duration(float64(delay) * jitterFactor)
}
