package health

import (
	"context"
	"time"
)

// CheckType represents the type of health check
type CheckType string

const (
	CheckTypeHTTP CheckType = "http"
	CheckTypeTCP  CheckType = "tcp"
)

// Result represents the outcome of a health check
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface that all health checkers must implement
type Checker interface {
	// Check performs the health check and returns the result
	Check(ctx context.Context) Result

	// Type returns the type of health check
	Type() CheckType
}

// Config controls repeated probing of the backend
type Config struct {
	// Interval is the time between health checks
	Interval time.Duration

	// Timeout is the maximum time to wait for a single check
	Timeout time.Duration

	// Retries is the number of consecutive failures before the backend is
	// reported down
	Retries int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Second,
		Timeout:  5 * time.Second,
		Retries:  3,
	}
}

// Status tracks backend reachability across checks
type Status struct {
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	LastCheck            time.Time
	LastResult           Result

	// Healthy stays true until Retries checks in a row have failed
	Healthy bool
}

// NewStatus creates a new Status with default values
func NewStatus() *Status {
	return &Status{Healthy: true}
}

// Update updates the status based on a new health check result
func (s *Status) Update(result Result, config Config) {
	s.LastCheck = result.CheckedAt
	s.LastResult = result

	if result.Healthy {
		s.ConsecutiveSuccesses++
		s.ConsecutiveFailures = 0
		s.Healthy = true
		return
	}

	s.ConsecutiveFailures++
	s.ConsecutiveSuccesses = 0
	if s.ConsecutiveFailures >= config.Retries {
		s.Healthy = false
	}
}

// Run checks every checker once, in order
func Run(ctx context.Context, checkers ...Checker) []Result {
	results := make([]Result, 0, len(checkers))
	for _, c := range checkers {
		results = append(results, c.Check(ctx))
	}
	return results
}

// Watch runs checker every config.Interval until ctx is done, calling fn
// with each result and the updated status. The first check runs immediately.
func Watch(ctx context.Context, checker Checker, config Config, fn func(Result, *Status)) {
	status := NewStatus()
	ticker := time.NewTicker(config.Interval)
	defer ticker.Stop()

	for {
		checkCtx := ctx
		var cancel context.CancelFunc
		if config.Timeout > 0 {
			checkCtx, cancel = context.WithTimeout(ctx, config.Timeout)
		}
		result := checker.Check(checkCtx)
		if cancel != nil {
			cancel()
		}
		if ctx.Err() != nil {
			return
		}

		status.Update(result, config)
		fn(result, status)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
