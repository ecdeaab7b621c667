package client

import (
	"context"
	"math/rand"
	"net/http"
	"time"
)

// Retry defaults. MaxBackoff caps the exponential curve so a long outage
// never produces multi-minute sleeps.
const (
	DefaultRetryAttempts = 3
	DefaultBaseDelay     = time.Second
	MaxBackoff           = 30 * time.Second
)

// retryableStatuses are the HTTP responses worth another attempt. Everything
// else from the server is treated as a permanent verdict.
var retryableStatuses = map[int]struct{}{
	http.StatusRequestTimeout:      {},
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// Policy decides whether a failed chunk request is retried and how long to
// wait before the next attempt.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy returns the standard retry policy.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultRetryAttempts, BaseDelay: DefaultBaseDelay}
}

// RetryableStatus reports whether an HTTP status merits a retry.
func RetryableStatus(code int) bool {
	_, ok := retryableStatuses[code]
	return ok
}

// Backoff returns the delay before retry number attempt (0-based): an
// exponential base with up to 10% jitter, capped at MaxBackoff.
func (p Policy) Backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if attempt > 30 {
		attempt = 30 // avoid shift overflow; the cap applies anyway
	}
	delay := base << uint(attempt)
	if delay <= 0 || delay > MaxBackoff {
		return MaxBackoff
	}
	var jitter time.Duration
	if j := int64(delay) / 10; j > 0 {
		jitter = time.Duration(rand.Int63n(j))
	}
	if delay+jitter > MaxBackoff {
		return MaxBackoff
	}
	return delay + jitter
}

// CheckRetry is a retryablehttp.CheckRetry hook: retry on transport errors
// and on the retryable status set, never on context cancellation.
func (p Policy) CheckRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	if resp != nil && RetryableStatus(resp.StatusCode) {
		return true, nil
	}
	return false, nil
}

// BackoffHook is a retryablehttp.Backoff hook delegating to Backoff.
// attemptNum is 1-based in retryablehttp.
func (p Policy) BackoffHook(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
	if attemptNum < 1 {
		attemptNum = 1
	}
	return p.Backoff(attemptNum - 1)
}
