package client

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestBackoffBounds(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Second}

	for attempt := 0; attempt <= 4; attempt++ {
		base := time.Second << uint(attempt)
		for i := 0; i < 50; i++ {
			d := p.Backoff(attempt)
			if d < base {
				t.Fatalf("attempt %d: delay %v below base %v", attempt, d, base)
			}
			if max := base + base/10; d >= max {
				t.Fatalf("attempt %d: delay %v at or above base+10%% (%v)", attempt, d, max)
			}
		}
	}
}

func TestBackoffCap(t *testing.T) {
	p := Policy{BaseDelay: time.Second}

	for _, attempt := range []int{6, 10, 40, 1000} {
		if d := p.Backoff(attempt); d != MaxBackoff {
			t.Errorf("Backoff(%d) = %v, want cap %v", attempt, d, MaxBackoff)
		}
	}
}

func TestBackoffZeroBaseUsesDefault(t *testing.T) {
	p := Policy{}
	d := p.Backoff(0)
	if d < DefaultBaseDelay || d > DefaultBaseDelay+DefaultBaseDelay/10 {
		t.Errorf("Backoff(0) = %v, want ~%v", d, DefaultBaseDelay)
	}
}

func TestRetryableStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !RetryableStatus(code) {
			t.Errorf("status %d should be retryable", code)
		}
	}
	for _, code := range []int{200, 201, 400, 401, 403, 404, 409, 501} {
		if RetryableStatus(code) {
			t.Errorf("status %d should not be retryable", code)
		}
	}
}

func TestCheckRetry(t *testing.T) {
	p := DefaultPolicy()
	ctx := context.Background()

	if retry, _ := p.CheckRetry(ctx, nil, errors.New("connection refused")); !retry {
		t.Error("transport error should be retried")
	}
	if retry, _ := p.CheckRetry(ctx, &http.Response{StatusCode: 503}, nil); !retry {
		t.Error("503 should be retried")
	}
	if retry, _ := p.CheckRetry(ctx, &http.Response{StatusCode: 400}, nil); retry {
		t.Error("400 is a permanent verdict")
	}
	if retry, _ := p.CheckRetry(ctx, &http.Response{StatusCode: 200}, nil); retry {
		t.Error("success should not be retried")
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	retry, err := p.CheckRetry(cancelled, nil, errors.New("dial timeout"))
	if retry {
		t.Error("cancelled context must stop retrying")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestBackoffHookAttemptNumbering(t *testing.T) {
	p := Policy{BaseDelay: time.Second}

	// retryablehttp passes 1-based attempts; the first retry waits ~base.
	d := p.BackoffHook(0, 0, 1, nil)
	if d < time.Second || d > time.Second+time.Second/10 {
		t.Errorf("first retry delay = %v, want ~1s", d)
	}
}
