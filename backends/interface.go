// Package backends defines the atomic-operation contract every store
// adapter (Redis, Postgres, in-memory) implements for the sliding-window
// evaluator, plus the connectivity-error classification shared by all of
// them.
package backends

import "context"

// Result is what a single EvalSlidingWindow call reports back: whether
// the admission was recorded, how many admissions are now counted in the
// window, and — when denied — how long until the oldest admission ages
// out and frees a slot.
type Result struct {
	// Allowed is true iff an admission was recorded by this call.
	Allowed bool
	// Count is the number of admissions in the window immediately after
	// this call (including the just-recorded one, if Allowed).
	Count int64
	// RetryAfterMillis is 0 when Allowed; otherwise the number of
	// milliseconds until at least one admission ages out of the window.
	RetryAfterMillis int64
}

// Backend executes the sliding-window admission check atomically against
// a key-value store: evict admissions older than (nowMillis-windowMillis),
// count what remains, and admit a new one iff the count is below limit —
// all as a single indivisible operation, never split into separate
// read/modify/write calls from the caller's side.
//
// member must be unique per call for the same key even when nowMillis is
// identical across two calls, so two admissions in the same millisecond
// are both retained rather than colliding; callers are responsible for
// generating it.
type Backend interface {
	EvalSlidingWindow(ctx context.Context, key string, member string, limit int64, windowMillis int64, nowMillis int64) (Result, error)

	// Delete removes all admission state for key. Used by tests and by
	// RateLimiter.Reset.
	Delete(ctx context.Context, key string) error

	// Close releases any resources (connections, pools) held by the backend.
	Close() error
}
