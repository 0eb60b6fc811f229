package utils

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryConfig holds configuration for retry behavior.
type RetryConfig struct {
	MaxAttempts  int           // Maximum number of attempts (including first try)
	InitialDelay time.Duration // Initial delay before first retry
	MaxDelay     time.Duration // Maximum delay between retries
	Multiplier   float64       // Backoff multiplier (e.g., 2.0 for exponential)
	Jitter       bool          // Add random jitter to prevent thundering herd
}

// DefaultRetryConfig returns a sensible default retry configuration.
//
// Settings:
//   - MaxAttempts: 3
//   - InitialDelay: 100ms
//   - MaxDelay: 5s
//   - Multiplier: 2.0 (exponential backoff)
//   - Jitter: true
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// DatabaseRetryConfig returns retry configuration optimized for database
// and cache connections during startup. Longer delays than the default
// since containers can take a few seconds to come up.
func DatabaseRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Retry executes a function with retry logic and exponential backoff.
// Returns nil on success, or the last error if all attempts fail.
// Respects context cancellation between attempts.
func Retry(ctx context.Context, config RetryConfig, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		// Check context before each attempt
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				log.Debug().Int("attempt", attempt).Msg("Operation succeeded after retry")
			}
			return nil
		}

		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt == config.MaxAttempts {
			break
		}

		delay := calculateDelay(config, attempt)
		log.Debug().
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(lastErr).
			Msg("Operation failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// calculateDelay computes the backoff delay for a given attempt number.
func calculateDelay(config RetryConfig, attempt int) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt-1))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	if config.Jitter {
		// Up to 25% random jitter
		jitter := delay * 0.25 * rand.Float64()
		delay += jitter
	}

	return time.Duration(delay)
}

// isRetryable determines whether an error is worth retrying.
// Network errors and connection refusals are transient; anything else
// (bad credentials, malformed input) fails immediately.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := err.Error()
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"no such host",
		"i/o timeout",
		"EOF",
		"broken pipe",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}
