// Package retry provides a bounded exponential-backoff wrapper for external
// calls.
//
// Every call LifeDraft makes to the generative service (text, image, speech)
// goes through Do. Rate-limit and quota failures are retried transparently;
// any other failure, or exhaustion of the attempt budget, propagates the last
// error unchanged. There is no jitter and no wall-clock cap: callers needing
// a hard deadline wrap the call with a context timeout.
package retry

import (
	"context"
	"strings"
	"time"
)

// Default policy values, matching the service's observed rate-limit windows.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
)

// Policy controls how Do retries an operation. The zero value uses the
// defaults above with the default classifier.
type Policy struct {
	// MaxAttempts is the total number of invocations allowed.
	MaxAttempts int
	// BaseDelay is the first backoff; attempt i waits BaseDelay << i.
	BaseDelay time.Duration
	// Retryable classifies an error as transient. Defaults to Retryable.
	Retryable func(error) bool
	// Sleep waits between attempts. Overridable in tests; defaults to a
	// context-aware timer sleep.
	Sleep func(context.Context, time.Duration) error
}

// Retryable is the default transient-error classifier: rate-limiting and
// quota exhaustion. The generative SDK's structured errors render their HTTP
// code and status into the message, so a substring probe covers both the
// structured and free-form shapes.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

// Do runs fn up to the policy's attempt budget. Transient failures are
// invisible to the caller until the budget is exhausted; fatal failures
// surface immediately. A context cancellation during backoff returns the
// context error.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	classify := p.Retryable
	if classify == nil {
		classify = Retryable
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !classify(err) {
			return zero, err
		}
		if i == attempts-1 {
			break
		}
		if serr := sleep(ctx, base<<i); serr != nil {
			return zero, serr
		}
	}
	return zero, lastErr
}

// sleepContext waits for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
