package ratelimit

import (
	"fmt"
	"time"

	"github.com/windowgate/slidinglimit/backends"
	"github.com/windowgate/slidinglimit/clock"
	"github.com/windowgate/slidinglimit/metrics"
	"github.com/windowgate/slidinglimit/policy"
)

// DefaultDeadlineBudget bounds how long a single Acquire call will wait on
// the backend before the call fails closed as Unavailable/DeadlineExceeded.
const DefaultDeadlineBudget = 250 * time.Millisecond

// Config holds the assembled configuration for a RateLimiter, built up by
// applying a chain of Option values over a set of defaults.
type Config struct {
	Backend        backends.Backend
	Policies       *policy.Set
	Clock          clock.Clock
	DeadlineBudget time.Duration
	Metrics        *metrics.Metrics
}

// Option is a functional option for configuring a RateLimiter.
type Option func(*Config) error

// WithBackend sets the store adapter the limiter evaluates windows against.
func WithBackend(b backends.Backend) Option {
	return func(c *Config) error {
		if b == nil {
			return fmt.Errorf("backend cannot be nil")
		}
		c.Backend = b
		return nil
	}
}

// WithPolicySet sets the resolver used to map a resource to its policy.
func WithPolicySet(ps *policy.Set) Option {
	return func(c *Config) error {
		if ps == nil {
			return fmt.Errorf("policy set cannot be nil")
		}
		c.Policies = ps
		return nil
	}
}

// WithClock overrides the default system clock; tests use this to inject
// a clock.Manual for deterministic admission timing.
func WithClock(ck clock.Clock) Option {
	return func(c *Config) error {
		if ck == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		c.Clock = ck
		return nil
	}
}

// WithDeadlineBudget sets the per-call deadline applied to the backend
// round trip. Zero or negative disables the budget (not recommended
// outside tests, since the limiter then has no fail-closed boundary).
func WithDeadlineBudget(d time.Duration) Option {
	return func(c *Config) error {
		c.DeadlineBudget = d
		return nil
	}
}

// WithMetrics attaches a metrics.Metrics instance; Acquire records
// decisions, eval duration and error kinds against it when set. Optional.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) error {
		if m == nil {
			return fmt.Errorf("metrics cannot be nil")
		}
		c.Metrics = m
		return nil
	}
}
