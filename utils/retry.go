package utils

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"
)

// RetryConfig holds configuration for retry mechanisms
type RetryConfig struct {
	// MaxAttempts is the maximum number of retry attempts
	MaxAttempts int
	// InitialDelay is the initial delay between retries
	InitialDelay time.Duration
	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration
	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64
	// Jitter adds randomness to delay to avoid thundering herd
	Jitter bool
	// RetryCondition is a custom function to determine if an error is retryable
	RetryCondition func(error) bool
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// RetryExecutor handles retry logic
type RetryExecutor struct {
	config *RetryConfig
	logger *Logger
}

// NewRetryExecutor creates a new retry executor
func NewRetryExecutor(config *RetryConfig, logger *Logger) *RetryExecutor {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if logger == nil {
		logger = GetLogger()
	}
	return &RetryExecutor{config: config, logger: logger}
}

// Execute executes a function with retry logic
func (re *RetryExecutor) Execute(ctx context.Context, operation func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= re.config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := operation(ctx)
		if err == nil {
			if attempt > 1 {
				re.logger.WithSource("retry_executor").Info("Operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}

		lastErr = err

		if !re.isRetryable(err) {
			return err
		}

		// No sleep after the final attempt
		if attempt == re.config.MaxAttempts {
			break
		}

		delay := re.calculateDelay(attempt)
		re.logger.WithSource("retry_executor").Warn("Operation failed, retrying", map[string]interface{}{
			"error":        err.Error(),
			"attempt":      attempt,
			"max_attempts": re.config.MaxAttempts,
			"retry_delay":  delay.String(),
		})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	re.logger.WithSource("retry_executor").Error("All retry attempts failed", lastErr, map[string]interface{}{
		"max_attempts": re.config.MaxAttempts,
	})
	return lastErr
}

// isRetryable determines if an error should trigger a retry
func (re *RetryExecutor) isRetryable(err error) bool {
	if re.config.RetryCondition != nil {
		return re.config.RetryCondition(err)
	}
	return isCommonRetryableError(err)
}

// isCommonRetryableError checks for common retryable error patterns
func isCommonRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"too many requests",
		"rate limit",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// calculateDelay calculates the backoff delay for the given attempt
func (re *RetryExecutor) calculateDelay(attempt int) time.Duration {
	delay := float64(re.config.InitialDelay) * math.Pow(re.config.BackoffMultiplier, float64(attempt-1))
	if delay > float64(re.config.MaxDelay) {
		delay = float64(re.config.MaxDelay)
	}
	if re.config.Jitter {
		delay = delay/2 + rand.Float64()*delay/2
	}
	return time.Duration(delay)
}
