package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/windowgate/slidinglimit/backends/memory"
	"github.com/windowgate/slidinglimit/clock"
	"github.com/windowgate/slidinglimit/policy"
)

func newTestLimiter(t *testing.T, ck *clock.Manual, ps *policy.Set) *RateLimiter {
	t.Helper()
	b := memory.NewWithCleanup(0)
	t.Cleanup(func() { _ = b.Close() })

	rl, err := New(WithBackend(b), WithPolicySet(ps), WithClock(ck), WithDeadlineBudget(time.Second))
	require.NoError(t, err)
	return rl
}

func defaultSet(t *testing.T, maxTokens int64, window time.Duration) *policy.Set {
	t.Helper()
	ps, err := policy.New(nil, policy.Policy{Pattern: "default", Kind: policy.Exact, MaxTokens: maxTokens, Window: window})
	require.NoError(t, err)
	return ps
}

func TestAcquire_AdmitsUpToLimitThenDenies(t *testing.T) {
	ck := clock.NewManual(0)
	rl := newTestLimiter(t, ck, defaultSet(t, 10, 60*time.Second))
	ctx := context.Background()

	for i := range int64(10) {
		d, err := rl.Acquire(ctx, "x", "u")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.EqualValues(t, 10-i-1, d.Remaining)
	}

	d, err := rl.Acquire(ctx, "x", "u")
	require.NoError(t, err, "a plain rate-limit deny is not an error")
	assert.False(t, d.Allowed)
	assert.EqualValues(t, 60*time.Second, d.RetryAfter)
}

func TestAcquire_AllowsAgainAfterWindowElapses(t *testing.T) {
	ck := clock.NewManual(0)
	rl := newTestLimiter(t, ck, defaultSet(t, 1, 60*time.Second))
	ctx := context.Background()

	d, err := rl.Acquire(ctx, "x", "u")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = rl.Acquire(ctx, "x", "u")
	require.NoError(t, err)
	require.False(t, d.Allowed)

	ck.Advance(60 * time.Second)
	d, err = rl.Acquire(ctx, "x", "u")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "oldest admission should have aged out")
}

func TestAcquire_IsolatesCallersAndResources(t *testing.T) {
	ck := clock.NewManual(0)
	rl := newTestLimiter(t, ck, defaultSet(t, 1, 60*time.Second))
	ctx := context.Background()

	_, err := rl.Acquire(ctx, "x", "u1")
	require.NoError(t, err)

	d, err := rl.Acquire(ctx, "x", "u2")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "different caller gets its own budget")

	d, err = rl.Acquire(ctx, "y", "u1")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "different resource gets its own budget")
}

func TestAcquire_ExactBeatsPrefix(t *testing.T) {
	ps, err := policy.New([]policy.Policy{
		{Pattern: "user.", Kind: policy.Prefix, MaxTokens: 3, Window: time.Minute, Priority: 10},
		{Pattern: "user.login", Kind: policy.Exact, MaxTokens: 5, Window: time.Minute, Priority: 1},
	}, policy.Policy{Pattern: "default", Kind: policy.Exact, MaxTokens: 1, Window: time.Minute})
	require.NoError(t, err)

	ck := clock.NewManual(0)
	rl := newTestLimiter(t, ck, ps)
	ctx := context.Background()

	allowed := 0
	for range 6 {
		d, err := rl.Acquire(ctx, "user.login", "u")
		if err == nil && d.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 5, allowed, "exact policy (max=5) must win over the prefix policy (max=3)")
}

func TestAcquire_RejectsEmptyResourceOrCaller(t *testing.T) {
	ck := clock.NewManual(0)
	rl := newTestLimiter(t, ck, defaultSet(t, 1, time.Minute))
	ctx := context.Background()

	_, err := rl.Acquire(ctx, "", "u")
	require.Error(t, err)

	_, err = rl.Acquire(ctx, "x", "")
	require.Error(t, err)
}

func TestAcquire_NoOverAdmissionUnderConcurrency(t *testing.T) {
	const limit = 50
	const goroutines = 20
	const perGoroutine = 10

	ck := clock.NewManual(0)
	rl := newTestLimiter(t, ck, defaultSet(t, limit, time.Minute))
	ctx := context.Background()

	var g errgroup.Group
	allowedCh := make(chan bool, goroutines*perGoroutine)

	for range goroutines {
		g.Go(func() error {
			for range perGoroutine {
				d, err := rl.Acquire(ctx, "hot", "shared")
				if err != nil {
					allowedCh <- false
					continue
				}
				allowedCh <- d.Allowed
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(allowedCh)

	admitted := 0
	for a := range allowedCh {
		if a {
			admitted++
		}
	}
	assert.LessOrEqual(t, admitted, limit, "no more than the policy limit may ever be admitted for one key")
}

func TestReset_ClearsWindow(t *testing.T) {
	ck := clock.NewManual(0)
	rl := newTestLimiter(t, ck, defaultSet(t, 1, time.Minute))
	ctx := context.Background()

	_, err := rl.Acquire(ctx, "x", "u")
	require.NoError(t, err)

	require.NoError(t, rl.Reset(ctx, "x", "u"))

	d, err := rl.Acquire(ctx, "x", "u")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestReloadPolicies_SwapsAtomically(t *testing.T) {
	ck := clock.NewManual(0)
	rl := newTestLimiter(t, ck, defaultSet(t, 1, time.Minute))
	ctx := context.Background()

	_, err := rl.Acquire(ctx, "x", "u")
	require.NoError(t, err)
	d, err := rl.Acquire(ctx, "x", "u")
	require.NoError(t, err)
	require.False(t, d.Allowed)

	require.NoError(t, rl.ReloadPolicies(defaultSet(t, 5, time.Minute)))
	require.NoError(t, rl.Reset(ctx, "x", "u"))

	for range 5 {
		d, err := rl.Acquire(ctx, "x", "u")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
}
