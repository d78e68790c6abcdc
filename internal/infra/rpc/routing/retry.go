package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/vietddude/cemetery/internal/indexing/metrics"
)

// ErrRetriesExhausted wraps the last connectivity failure once every attempt is used.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    1 * time.Second,
	MaxDelay:        10 * time.Second,
	BackoffMultiple: 2.0,
}

// Operation is a unit of remote work the scheduler may invoke more than once.
type Operation struct {
	Name   string
	Invoke func(ctx context.Context) error
}

// Notice is delivered between attempts so callers can show a
// "connection error, retrying" indication.
type Notice struct {
	Operation   string
	Attempt     int
	MaxAttempts int
	Delay       time.Duration
	Err         error
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Scheduler re-invokes operations that fail with connectivity errors.
type Scheduler struct {
	config RetryConfig
	sleep  SleepFunc
	notify func(Notice)
}

// NewScheduler creates a scheduler. Zero fields of config fall back to DefaultRetryConfig.
func NewScheduler(config RetryConfig) *Scheduler {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultRetryConfig.MaxAttempts
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = DefaultRetryConfig.InitialDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = DefaultRetryConfig.MaxDelay
	}
	if config.BackoffMultiple <= 0 {
		config.BackoffMultiple = DefaultRetryConfig.BackoffMultiple
	}
	return &Scheduler{
		config: config,
		sleep:  sleepContext,
	}
}

// SetSleep replaces the wait between attempts.
func (s *Scheduler) SetSleep(fn SleepFunc) {
	s.sleep = fn
}

// SetNotifier registers a callback invoked before each retry wait.
func (s *Scheduler) SetNotifier(fn func(Notice)) {
	s.notify = fn
}

// Config returns the active retry configuration.
func (s *Scheduler) Config() RetryConfig {
	return s.config
}

// Execute runs op with the configured attempt budget.
func (s *Scheduler) Execute(ctx context.Context, op Operation) error {
	return s.ExecuteN(ctx, op, s.config.MaxAttempts)
}

// ExecuteN runs op at most maxAttempts times. Domain and authorization
// failures are returned after the first invocation.
func (s *Scheduler) ExecuteN(ctx context.Context, op Operation, maxAttempts int) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := op.Invoke(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		class := Classify(err)
		if class != ClassConnectivity {
			slog.Debug("Operation failed without retry",
				"operation", op.Name,
				"class", class.String(),
				"error", err,
			)
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt == maxAttempts-1 {
			break
		}

		delay := s.Backoff(attempt)
		metrics.RetriesTotal.WithLabelValues(op.Name).Inc()
		slog.Warn("Connectivity failure, retrying",
			"operation", op.Name,
			"attempt", attempt+1,
			"max_attempts", maxAttempts,
			"delay", delay,
			"error", err,
		)
		if s.notify != nil {
			s.notify(Notice{
				Operation:   op.Name,
				Attempt:     attempt + 1,
				MaxAttempts: maxAttempts,
				Delay:       delay,
				Err:         err,
			})
		}

		if err := s.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w: %w", op.Name, maxAttempts, ErrRetriesExhausted, lastErr)
}

// Do runs fn through the scheduler and returns its value.
func Do[T any](ctx context.Context, s *Scheduler, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := s.Execute(ctx, Operation{
		Name: name,
		Invoke: func(ctx context.Context) error {
			v, err := fn(ctx)
			if err != nil {
				return err
			}
			out = v
			return nil
		},
	})
	return out, err
}

// Backoff returns min(InitialDelay * BackoffMultiple^attempt, MaxDelay).
func (s *Scheduler) Backoff(attempt int) time.Duration {
	return calculateBackoff(attempt, s.config)
}

func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffMultiple, float64(attempt))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}

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
