// Package ratelimit is the decision engine: given a resource and a caller
// identity, it resolves the governing policy and asks the sliding-window
// evaluator whether another unit of work may proceed now.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/windowgate/slidinglimit/backends"
	"github.com/windowgate/slidinglimit/clock"
	"github.com/windowgate/slidinglimit/metrics"
	"github.com/windowgate/slidinglimit/policy"
	"github.com/windowgate/slidinglimit/rlerrors"
	"github.com/windowgate/slidinglimit/slidingwindow"
)

// Decision is returned to the caller of Acquire.
type Decision struct {
	// Allowed is true iff the unit of work may proceed.
	Allowed bool
	// Remaining is how many more units may be admitted in the current
	// window, immediately after this decision.
	Remaining int64
	// RetryAfter is how long to wait before the next unit would free up.
	// Zero when Allowed.
	RetryAfter time.Duration
}

// RateLimiter is the decision engine façade. It holds no mutable state of
// its own besides the hot-swappable policy pointer and a monotonic
// counter used to keep admission member ids unique.
type RateLimiter struct {
	backend  backends.Backend
	clock    clock.Clock
	deadline time.Duration
	metrics  *metrics.Metrics

	policies atomic.Pointer[policy.Set]
	seq      atomic.Uint64
}

// New builds a RateLimiter by applying a chain of Options over a set of
// defaults.
func New(opts ...Option) (*RateLimiter, error) {
	config := Config{
		Clock:          clock.System{},
		DeadlineBudget: DefaultDeadlineBudget,
	}
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	if config.Backend == nil {
		return nil, fmt.Errorf("ratelimit: a backend is required (use WithBackend)")
	}
	if config.Policies == nil {
		return nil, fmt.Errorf("ratelimit: a policy set is required (use WithPolicySet)")
	}

	r := &RateLimiter{
		backend:  config.Backend,
		clock:    config.Clock,
		deadline: config.DeadlineBudget,
		metrics:  config.Metrics,
	}
	r.policies.Store(config.Policies)
	return r, nil
}

// ReloadPolicies atomically replaces the active policy set. Readers in
// flight observe either the old or the new set, never a torn one.
func (r *RateLimiter) ReloadPolicies(ps *policy.Set) error {
	if ps == nil {
		return fmt.Errorf("ratelimit: policy set cannot be nil")
	}
	r.policies.Store(ps)
	return nil
}

// Policies returns the currently active policy set.
func (r *RateLimiter) Policies() *policy.Set {
	return r.policies.Load()
}

// Backend returns the store adapter this limiter evaluates windows against.
func (r *RateLimiter) Backend() backends.Backend {
	return r.backend
}

// Close releases the underlying backend's resources.
func (r *RateLimiter) Close() error {
	return r.backend.Close()
}

// Acquire decides whether one more unit of work may proceed for
// (resource, caller) right now, consuming the unit if so.
func (r *RateLimiter) Acquire(ctx context.Context, resource, caller string) (Decision, error) {
	if resource == "" {
		return Decision{}, rlerrors.InvalidArgument("ratelimit:Acquire", fmt.Errorf("resource must not be empty"))
	}
	if caller == "" {
		return Decision{}, rlerrors.InvalidArgument("ratelimit:Acquire", fmt.Errorf("caller must not be empty"))
	}

	pol := r.policies.Load().Resolve(resource)
	key := composeKey(resource, caller)

	if r.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.deadline)
		defer cancel()
	}

	now := time.UnixMilli(r.clock.NowMillis())
	member := r.nextMember(now)

	evalStart := time.Now()
	d, err := slidingwindow.Evaluate(ctx, r.backend, key, member, pol.MaxTokens, pol.Window, now)
	if r.metrics != nil {
		r.metrics.RecordEvalDuration(resource, time.Since(evalStart))
	}
	if err != nil {
		decision, rlErr := r.denyOnError(pol, err)
		if r.metrics != nil {
			r.metrics.RecordDecision(resource, false, 0)
			r.metrics.RecordError(errorKind(rlErr))
		}
		return decision, rlErr
	}

	remaining := pol.MaxTokens - d.Count
	if remaining < 0 {
		remaining = 0
	}

	if r.metrics != nil {
		r.metrics.RecordDecision(resource, d.Allowed, remaining)
	}

	return Decision{
		Allowed:    d.Allowed,
		Remaining:  remaining,
		RetryAfter: d.RetryAfter,
	}, nil
}

// Reset clears all recorded admissions for (resource, caller). Mainly
// useful for tests.
func (r *RateLimiter) Reset(ctx context.Context, resource, caller string) error {
	return r.backend.Delete(ctx, composeKey(resource, caller))
}

// nextMember produces a per-process-unique admission id even when two
// calls land on the same millisecond, per the collision-avoidance rule.
func (r *RateLimiter) nextMember(now time.Time) string {
	seq := r.seq.Add(1)
	return fmt.Sprintf("%d-%d", now.UnixMilli(), seq)
}

// errorKind maps an rlerrors-classified error to the short label used as
// the metrics.RecordError "kind" value.
func errorKind(err error) string {
	switch {
	case errors.Is(err, rlerrors.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, rlerrors.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, rlerrors.ErrDeadlineExceeded):
		return "deadline_exceeded"
	default:
		return "internal"
	}
}

// denyOnError classifies a backend failure into rlerrors' taxonomy and
// always returns a fail-closed deny decision alongside it — the engine
// never swallows a store error into a silent allow.
func (r *RateLimiter) denyOnError(pol policy.Policy, err error) (Decision, error) {
	deny := Decision{Allowed: false, Remaining: 0, RetryAfter: pol.Window}

	if errors.Is(err, context.DeadlineExceeded) {
		return deny, rlerrors.DeadlineExceeded("ratelimit:Acquire", err)
	}
	if backends.IsHealthError(err) {
		return deny, rlerrors.Unavailable("ratelimit:Acquire", err)
	}
	return deny, rlerrors.Internal("ratelimit:Acquire", err)
}
