// Package slidingwindow translates a store adapter's raw admission result
// into the Decision the rest of the system works with, keeping the
// backend interface itself free of policy-shaped concepts like "decision"
// or "retry-after duration" (it only deals in counts and milliseconds).
package slidingwindow

import (
	"context"
	"time"

	"github.com/windowgate/slidinglimit/backends"
)

// Decision is the outcome of one admission check against a sliding window.
type Decision struct {
	// Allowed is true iff the call was admitted.
	Allowed bool
	// Count is the number of admissions in the window after this call.
	Count int64
	// Limit is the MaxTokens the window was evaluated against.
	Limit int64
	// RetryAfter is how long the caller should wait before the next slot
	// frees up. Zero when Allowed.
	RetryAfter time.Duration
}

// Evaluate runs one sliding-window admission check against backend.
//
// member must be unique per call for the same key, even across calls made
// at the same instant, so neither is lost to collision; member is the
// unit of identity the backend stores, not the value being rate-limited.
func Evaluate(ctx context.Context, backend backends.Backend, key string, member string, limit int64, window time.Duration, now time.Time) (Decision, error) {
	res, err := backend.EvalSlidingWindow(ctx, key, member, limit, window.Milliseconds(), now.UnixMilli())
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Allowed:    res.Allowed,
		Count:      res.Count,
		Limit:      limit,
		RetryAfter: time.Duration(res.RetryAfterMillis) * time.Millisecond,
	}, nil
}
