package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const DefaultRequestTimeout = 30 * time.Second

// StatusError is returned by Client.Do for non-2xx responses so callers can
// branch on the code without re-reading the response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

func IsStatus(err error, code int) bool {
	var serr *StatusError
	return errors.As(err, &serr) && serr.StatusCode == code
}

// Client wraps http.Client with per-host token buckets and a retry loop for
// transient failures on idempotent requests.
type Client struct {
	HTTP  *http.Client
	Retry RetryPolicy

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	// hostRates maps a host to its minimum request interval; hosts without
	// an entry are not throttled.
	hostRates map[string]time.Duration
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	policy := DefaultRetryPolicy()
	policy.Retryable = transientHTTP
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		Retry:     policy,
		limiters:  map[string]*rate.Limiter{},
		hostRates: map[string]time.Duration{},
	}
}

// LimitHost installs a minimum interval between requests to host.
func (c *Client) LimitHost(host string, interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hostRates[strings.ToLower(host)] = interval
	delete(c.limiters, strings.ToLower(host))
}

func (c *Client) limiterFor(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := strings.ToLower(host)
	if limiter, ok := c.limiters[key]; ok {
		return limiter
	}
	interval, ok := c.hostRates[key]
	if !ok || interval <= 0 {
		return nil
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	c.limiters[key] = limiter
	return limiter
}

// Do sends the request, waiting on the host's token bucket first. Requests
// with a nil GetBody and a non-nil Body are never retried. On 429 the
// Retry-After header is honored before the next attempt.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	idempotent := req.Body == nil || req.GetBody != nil

	var resp *http.Response
	attemptFn := func(attempt int) error {
		if limiter := c.limiterFor(req.URL.Host); limiter != nil {
			if err := limiter.Wait(req.Context()); err != nil {
				return err
			}
		}

		attemptReq := req
		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return fmt.Errorf("rewind request body: %w", err)
			}
			clone := req.Clone(req.Context())
			clone.Body = body
			attemptReq = clone
		}

		r, err := c.HTTP.Do(attemptReq)
		if err != nil {
			return err
		}
		if r.StatusCode >= 200 && r.StatusCode < 300 {
			resp = r
			return nil
		}

		serr := &StatusError{
			StatusCode: r.StatusCode,
			Status:     r.Status,
			RetryAfter: parseRetryAfter(r.Header.Get("Retry-After")),
		}
		if body, readErr := io.ReadAll(io.LimitReader(r.Body, 4096)); readErr == nil {
			serr.Body = string(body)
		}
		_ = r.Body.Close()
		return serr
	}

	policy := c.Retry
	policy.RetryAfter = retryAfterHint
	if !idempotent {
		policy.Attempts = 1
	}
	if err := policy.Do(req.Context(), attemptFn); err != nil {
		return nil, err
	}
	return resp, nil
}

// retryAfterHint surfaces the Retry-After duration of a StatusError to the
// retry policy.
func retryAfterHint(err error) time.Duration {
	var serr *StatusError
	if errors.As(err, &serr) {
		return serr.RetryAfter
	}
	return 0
}

// transientHTTP treats 429, 5xx and network-level failures as retryable.
func transientHTTP(err error) bool {
	var serr *StatusError
	if errors.As(err, &serr) {
		return serr.StatusCode == http.StatusTooManyRequests || serr.StatusCode >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Remaining errors are transport-level (refused, reset, DNS).
	return true
}

func parseRetryAfter(raw string) time.Duration {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(trimmed); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(trimmed); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
