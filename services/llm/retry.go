package llm

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	// DefaultMaxAttempts bounds retries for a single oracle call.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the wait before the first retry.
	DefaultBaseDelay = 1 * time.Second

	// DefaultMaxDelay caps exponential growth of the retry delay.
	DefaultMaxDelay = 30 * time.Second

	// retryJitterFactor spreads retry timing by ±10% so parallel
	// workers don't stampede the API after a shared 429.
	retryJitterFactor = 0.1
)

// RetryPolicy controls backoff for transient oracle failures.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns the standard 3-attempt exponential policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// Delay returns the backoff before retry number attempt (1-based):
// BaseDelay doubled per attempt, capped at MaxDelay, with jitter.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			delay = maxDelay
			break
		}
	}

	jitter := 1 + (rand.Float64()*2-1)*retryJitterFactor
	jittered := time.Duration(float64(delay) * jitter)
	if jittered > maxDelay {
		jittered = maxDelay
	}
	return jittered
}

// isRetryable reports whether an oracle call failure is worth another
// attempt. Rate limits, server-side errors, and transport timeouts
// are; client-side errors (bad request, auth) are not.
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 0 ||
			reqErr.HTTPStatusCode == http.StatusTooManyRequests ||
			reqErr.HTTPStatusCode >= http.StatusInternalServerError
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}
