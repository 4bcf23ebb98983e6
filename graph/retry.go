package graph

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig configures retry behavior for nodes
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	RetryableErrors func(error) bool // Determines if an error should trigger retry
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		RetryableErrors: func(_ error) bool {
			return true
		},
	}
}

// WithRetry re-runs the node function with exponential backoff before the
// failure is reported. The fallback, if any, only sees the last error.
func WithRetry(config *RetryConfig) NodeOption {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return func(n *Node) {
		n.Function = retrying(n.Name, n.Function, config)
	}
}

func retrying(name string, fn NodeFunc, config *RetryConfig) NodeFunc {
	return func(ctx context.Context, state State) (State, error) {
		var lastErr error
		delay := config.InitialDelay

		for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("retry cancelled: %w", err)
			}

			result, err := fn(ctx, state.Clone())
			if err == nil {
				return result, nil
			}
			lastErr = err

			if config.RetryableErrors != nil && !config.RetryableErrors(err) {
				return nil, fmt.Errorf("non-retryable error in %s: %w", name, err)
			}

			if attempt < config.MaxAttempts {
				select {
				case <-time.After(delay):
					delay = min(time.Duration(float64(delay)*config.BackoffFactor), config.MaxDelay)
				case <-ctx.Done():
					return nil, fmt.Errorf("retry cancelled during backoff: %w", ctx.Err())
				}
			}
		}

		return nil, fmt.Errorf("max retries (%d) exceeded for %s: %w", config.MaxAttempts, name, lastErr)
	}
}

// WithTimeout bounds a single call of the node function. A call still
// running when the timeout fires is abandoned and reported as a failure.
// Combined with WithRetry, the option listed last wraps the other.
func WithTimeout(timeout time.Duration) NodeOption {
	return func(n *Node) {
		n.Function = timingOut(n.Name, n.Function, timeout)
	}
}

func timingOut(name string, fn NodeFunc, timeout time.Duration) NodeFunc {
	return func(ctx context.Context, state State) (State, error) {
		timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		type result struct {
			value State
			err   error
		}
		resultChan := make(chan result, 1)

		go func() {
			defer func() {
				if p := recover(); p != nil {
					resultChan <- result{err: &PanicError{Value: p}}
				}
			}()
			value, err := fn(timeoutCtx, state)
			resultChan <- result{value: value, err: err}
		}()

		select {
		case res := <-resultChan:
			return res.value, res.err
		case <-timeoutCtx.Done():
			return nil, fmt.Errorf("node %s timed out after %v", name, timeout)
		}
	}
}
