package client

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/asofia888/self-care-guide/models"
)

// RetryConfig holds the retry/backoff policy. Worst case a request is
// attempted MaxRetries+1 times.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// Sleeper waits out the backoff delay between attempts. Tests inject a
// recording fake instead of wall-clock sleeps.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// network-ish message fragments that mark a generic error transient.
var transientTokens = []string{
	"network",
	"timeout",
	"connection",
	"econnrefused",
	"no such host",
	"fetch failed",
}

// ShouldRetry classifies an error as transient or permanent. 429 and
// 5xx statuses are transient; other 4xx are permanent request errors.
// Errors without a status are retried only when they look like
// transport failures.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}

	msg := strings.ToLower(err.Error())
	for _, tok := range transientTokens {
		if strings.Contains(msg, tok) {
			return true
		}
	}
	return false
}

// Backoff returns the jittered delay before retrying attempt (zero
// based): min(base·2^attempt, max) scaled by a uniform factor in
// [0.5, 1.0), floored to a whole millisecond.
func (c RetryConfig) Backoff(attempt int, rng *rand.Rand) time.Duration {
	expected := c.BaseDelay << uint(attempt)
	if expected > c.MaxDelay || expected <= 0 {
		expected = c.MaxDelay
	}
	jitter := 0.5 + rng.Float64()*0.5
	ms := math.Floor(float64(expected.Milliseconds()) * jitter)
	return time.Duration(ms) * time.Millisecond
}

// retry runs fn until it succeeds, returns a permanent error, or the
// attempt budget is spent. Attempts are strictly sequential.
func retry(ctx context.Context, cfg RetryConfig, sleeper Sleeper, rng *rand.Rand, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !ShouldRetry(lastErr) || attempt == cfg.MaxRetries {
			return lastErr
		}
		if err := sleeper.Sleep(ctx, cfg.Backoff(attempt, rng)); err != nil {
			return err
		}
	}
	return lastErr
}
