package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryConfig bounds the backoff applied to transient fetch failures.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`  // default 3
	BaseDelayMS int `yaml:"base_delay_ms"` // default 250
	MaxDelayMS  int `yaml:"max_delay_ms"`  // default 5000
}

// GetBaseDelay returns the initial backoff as a time.Duration.
func (c RetryConfig) GetBaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMS) * time.Millisecond
}

// GetMaxDelay returns the backoff ceiling as a time.Duration.
func (c RetryConfig) GetMaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMS) * time.Millisecond
}

// DefaultRetryConfig returns the production retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelayMS: 250, MaxDelayMS: 5000}
}

// withRetry runs fn with bounded exponential backoff. The final error is
// returned after the attempt budget is exhausted; the caller flags the
// affected record for the next batch instead of failing the run.
func withRetry(ctx context.Context, config RetryConfig, fn func() error) error {
	if config.MaxAttempts <= 0 {
		config = DefaultRetryConfig()
	}

	delay := config.GetBaseDelay()
	var err error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		// A definitive "no data" answer is not transient.
		if errors.Is(err, ErrUnavailable) {
			return err
		}
		if attempt == config.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if max := config.GetMaxDelay(); delay > max {
			delay = max
		}
	}
	return fmt.Errorf("after %d attempts: %w", config.MaxAttempts, err)
}
