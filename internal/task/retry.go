package task

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/phrazzld/task-orchestrator/internal/config"
)

// RetryPolicy bounds how often and how quickly a failed job is retried.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Jitter draws each delay uniformly from [0, backoff] when set.
	Jitter bool
}

// DefaultRetryPolicy returns 3 retries with a 1s base delay capped at 10 minutes.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Minute,
		Jitter:     true,
	}
}

// RetryPolicyFromConfig builds the policy from worker configuration.
func RetryPolicyFromConfig(cfg config.WorkerConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BackoffBase,
		MaxDelay:   cfg.BackoffMax,
		Jitter:     cfg.Jitter,
	}
}

// MaxAttempts is the total number of attempts including the first one.
func (p RetryPolicy) MaxAttempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Backoff returns min(BaseDelay * 2^(retry-1), MaxDelay) for retry >= 1.
func (p RetryPolicy) Backoff(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	d := float64(p.BaseDelay) * math.Pow(2, float64(retry-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Delay returns the wait before the given retry, with jitter applied if enabled.
func (p RetryPolicy) Delay(retry int) time.Duration {
	d := p.Backoff(retry)
	if !p.Jitter || d <= 0 {
		return d
	}
	return time.Duration(rand.Int64N(int64(d) + 1))
}
