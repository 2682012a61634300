// Package retrylimit provides an adaptive rate limiter for outbound
// lookups. The rate grows while requests succeed and shrinks when the
// remote side reports overload, so a busy guild cannot get the bot
// throttled by the content provider.
//
// Example usage:
//
//	lim := retrylimit.NewAdaptiveLimiter(2, 1, 10, 1, 0.5)
//	if err := lim.Wait(ctx); err != nil {
//	    return err
//	}
//	code, err := fetch(ctx)
//	lim.Observe(code, err)
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// recoveryWindow is how long the limiter holds its rate after a failure
// before it starts stepping up again.
const recoveryWindow = 10 * time.Second

// AdaptiveLimiter manages a rate limit that adjusts automatically based
// on the outcome of requests. It increases on success and decreases on
// errors. Thread-safe.
type AdaptiveLimiter struct {
	mu        sync.RWMutex
	limiter   *rate.Limiter
	minLimit  rate.Limit
	maxLimit  rate.Limit
	stepUp    rate.Limit
	stepDown  float64
	lastError time.Time
	now       func() time.Time
}

// NewAdaptiveLimiter creates an AdaptiveLimiter.
//
// Parameters:
//   - initial: starting requests per second
//   - minRate: minimum allowed rate
//   - maxRate: maximum allowed rate
//   - stepUp: increment on success
//   - stepDown: multiplier applied on failure (e.g., 0.5 to halve)
func NewAdaptiveLimiter(initial, minRate, maxRate rate.Limit, stepUp rate.Limit, stepDown float64) *AdaptiveLimiter {
	if minRate <= 0 {
		minRate = 1
	}
	if initial < minRate {
		initial = minRate
	}
	if maxRate < initial {
		maxRate = initial
	}
	return &AdaptiveLimiter{
		limiter:  rate.NewLimiter(initial, max(1, int(initial))),
		minLimit: minRate,
		maxLimit: maxRate,
		stepUp:   stepUp,
		stepDown: stepDown,
		now:      time.Now,
	}
}

// Wait blocks until a token is available or the context is canceled.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// Success increases the rate after a successful request.
func (a *AdaptiveLimiter) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.now().Sub(a.lastError) > recoveryWindow {
		a.adjustLimit(a.limiter.Limit() + a.stepUp)
	}
}

// RateLimited reduces the rate after the remote side reported overload.
func (a *AdaptiveLimiter) RateLimited() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastError = a.now()
	a.adjustLimit(rate.Limit(float64(a.limiter.Limit()) * a.stepDown))
}

// Observe feeds the outcome of one request back into the limiter.
// Transport errors leave the rate untouched.
func (a *AdaptiveLimiter) Observe(statusCode int, err error) {
	switch {
	case err != nil:
		var httpErr HTTPError
		if errors.As(err, &httpErr) && Overloaded(httpErr.StatusCode()) {
			a.RateLimited()
		}
	case Overloaded(statusCode):
		a.RateLimited()
	case statusCode >= 200 && statusCode < 300:
		a.Success()
	}
}

// CurrentLimit returns the current requests per second.
func (a *AdaptiveLimiter) CurrentLimit() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return float64(a.limiter.Limit())
}

// CurrentBurst returns the current burst size.
func (a *AdaptiveLimiter) CurrentBurst() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.limiter.Burst()
}

// adjustLimit sets the limiter to a new rate, respecting min/max boundaries.
func (a *AdaptiveLimiter) adjustLimit(newLimit rate.Limit) {
	newLimit = min(max(newLimit, a.minLimit), a.maxLimit)
	if newLimit != a.limiter.Limit() {
		a.limiter.SetLimit(newLimit)
		a.limiter.SetBurst(max(1, int(newLimit)))
	}
}

// =============================================================================
// Errors
// =============================================================================

// HTTPError is implemented by errors that carry an HTTP status code.
type HTTPError interface {
	error
	StatusCode() int
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.URL, e.Code)
}

func (e *StatusError) StatusCode() int { return e.Code }

// Overloaded reports 429 and 5xx responses.
func Overloaded(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code < 600)
}
