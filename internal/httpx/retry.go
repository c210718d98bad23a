package httpx

import (
	"context"
	"time"
)

// Classifier reports whether an error is worth another attempt.
type Classifier func(err error) bool

// RetryPolicy is the single retry helper shared by network and download
// paths: fixed attempt count, exponential backoff from BaseDelay.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	Factor    float64
	Retryable Classifier

	// RetryAfter extracts a server-mandated wait from the error. A positive
	// value replaces the backoff delay for that gap so the two never stack.
	RetryAfter func(err error) time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:  3,
		BaseDelay: 2 * time.Second,
		Factor:    2,
	}
}

// Do runs fn until it succeeds, the classifier rejects the error, or the
// attempt budget is spent. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	factor := p.Factor
	if factor <= 0 {
		factor = 2
	}

	delay := p.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		wait := delay
		if p.RetryAfter != nil {
			if mandated := p.RetryAfter(lastErr); mandated > 0 {
				wait = mandated
			}
		}
		if err := sleepContext(ctx, wait); err != nil {
			return err
		}
		delay = time.Duration(float64(delay) * factor)
	}
	return lastErr
}
