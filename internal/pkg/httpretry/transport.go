// Package httpretry provides an http.RoundTripper that retries transient
// failures with exponential backoff and full jitter.
package httpretry

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/ignite/learner-analytics/internal/pkg/logger"
)

// Transport wraps a RoundTripper with retry logic.
type Transport struct {
	base       http.RoundTripper
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// Option adjusts a Transport.
type Option func(*Transport)

// WithDelays overrides the backoff base and cap (1s and 30s by default).
func WithDelays(base, max time.Duration) Option {
	return func(t *Transport) {
		t.baseDelay = base
		t.maxDelay = max
	}
}

// NewTransport wraps base, or http.DefaultTransport when base is nil.
// maxRetries is the number of attempts after the first (default 3).
func NewTransport(base http.RoundTripper, maxRetries int, opts ...Option) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	t := &Transport{
		base:       base,
		maxRetries: maxRetries,
		baseDelay:  1 * time.Second,
		maxDelay:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip retries on 429, 500, 502, 503, 504 and on network errors. It
// never retries client errors or a cancelled context. The final attempt's
// response is returned as-is so the caller can inspect it.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if req.Context().Err() != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, req.Context().Err()
		}

		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: failed to reset request body: %w", err)
				}
				req = req.Clone(req.Context())
				req.Body = body
			}
		}

		resp, err := t.base.RoundTrip(req)
		var wait time.Duration
		switch {
		case err != nil:
			if req.Context().Err() != nil {
				return nil, err
			}
			lastErr = err
		case !isRetryableStatus(resp.StatusCode) || attempt == t.maxRetries:
			return resp, nil
		default:
			wait = retryAfter(resp)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("httpretry: server returned retryable status %d", resp.StatusCode)
		}

		if attempt == t.maxRetries {
			break
		}
		if wait == 0 {
			wait = t.delay(attempt + 1)
		}
		logger.Warn("retrying request",
			"attempt", attempt+1, "max_retries", t.maxRetries,
			"method", req.Method, "host", req.URL.Host, "path", req.URL.Path,
			"wait", wait.String(), "error", lastErr)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-req.Context().Done():
			timer.Stop()
			return nil, lastErr
		}
	}

	return nil, lastErr
}

// delay is random(0, min(maxDelay, baseDelay * 2^(attempt-1))), floored at
// a tenth of baseDelay.
func (t *Transport) delay(attempt int) time.Duration {
	exp := float64(t.baseDelay) * math.Pow(2, float64(attempt-1))
	if exp > float64(t.maxDelay) {
		exp = float64(t.maxDelay)
	}
	jittered := time.Duration(rand.Float64() * exp)
	if floor := t.baseDelay / 10; jittered < floor {
		jittered = floor
	}
	return jittered
}

// retryAfter honours a Retry-After header given in seconds.
func retryAfter(resp *http.Response) time.Duration {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
