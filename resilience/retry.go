// Package resilience wraps a backend.Executor with exponential-backoff
// retry and server-signalled back-pressure handling (spec component G).
package resilience

import (
	"math"
	"math/rand"
	"time"

	"github.com/ducks/llmux/backend"
	"github.com/ducks/llmux/core"
)

// Policy configures the retry wrapper.
type Policy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        bool
}

// DefaultPolicy mirrors the teacher stack's usual retry defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// DelayForAttempt computes the backoff delay before the (0-indexed)
// attempt'th retry: min(initial * factor^attempt, max), optionally
// scaled by 1+U[0,0.25) jitter.
func (p Policy) DelayForAttempt(attempt int) time.Duration {
	base := float64(p.InitialDelay) * math.Pow(p.BackoffFactor, float64(attempt))
	capped := math.Min(base, float64(p.MaxDelay))
	if p.Jitter {
		capped += rand.Float64() * 0.25 * capped
	}
	return time.Duration(capped)
}

// Executor wraps an inner backend.Executor with Policy, classifying
// errors via core.IsRetryable and honoring a server-supplied
// RetryAfter in place of the computed delay for that attempt.
type Executor struct {
	Inner  backend.Executor
	Policy Policy
	Sleep  func(time.Duration) // overridable in tests
	Logger core.Logger
}

var _ backend.Executor = (*Executor)(nil)

// Wrap returns inner wrapped with policy.
func Wrap(inner backend.Executor, policy Policy) *Executor {
	return &Executor{Inner: inner, Policy: policy, Sleep: time.Sleep, Logger: core.NoOpLogger{}}
}

func (e *Executor) logger() core.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return core.NoOpLogger{}
}

func (e *Executor) Name() string      { return e.Inner.Name() }
func (e *Executor) IsAvailable() bool { return e.Inner.IsAvailable() }

func (e *Executor) Execute(req backend.Request) (*backend.Response, error) {
	maxAttempts := e.Policy.MaxRetries + 1
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := e.Inner.Execute(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !core.IsRetryable(err) || attempt == maxAttempts-1 {
			e.logger().Warn("retry attempts exhausted", map[string]interface{}{
				"backend": e.Inner.Name(), "attempt": attempt + 1, "error": err.Error(),
			})
			return nil, err
		}

		delay := e.Policy.DelayForAttempt(attempt)
		fromServer := false
		if d, ok := core.RetryAfterOf(err); ok {
			delay = d
			fromServer = true
		}
		e.logger().Debug("retrying backend call", map[string]interface{}{
			"backend": e.Inner.Name(), "attempt": attempt + 1, "delay": delay.String(),
			"server_retry_after": fromServer, "error": err.Error(),
		})
		e.sleep(delay)
	}

	return nil, lastErr
}

func (e *Executor) sleep(d time.Duration) {
	if e.Sleep != nil {
		e.Sleep(d)
		return
	}
	time.Sleep(d)
}
