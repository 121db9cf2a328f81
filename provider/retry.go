package provider

import (
	"context"
	"math"
	"time"

	"askai/config"
)

// retryPolicy retries transport failures with exponential backoff.
type retryPolicy struct {
	Attempts       int
	InitialBackoff time.Duration
	Factor         float64
}

// deepSeekRetry: 3 attempts, waiting 1s then 2s.
var deepSeekRetry = retryPolicy{Attempts: 3, InitialBackoff: time.Second, Factor: 2}

func (r retryPolicy) backoff(attempt int) time.Duration {
	return time.Duration(float64(r.InitialBackoff) * math.Pow(r.Factor, float64(attempt)))
}

// do runs op until it succeeds, fails with a non-transport error, content
// has been emitted (emitted returns true) or attempts run out.
func (r retryPolicy) do(ctx context.Context, name string, emitted func() bool, op func() error) error {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = op()
		if err == nil || !isTransportError(err) || emitted() || attempt == attempts-1 {
			return err
		}

		wait := r.backoff(attempt)
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Retry] %s attempt %d/%d failed: %v (retrying in %s)", name, attempt+1, attempts, err, wait)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}
