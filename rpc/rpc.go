// Package rpc gives the decision engine a runnable, in-process shape of a
// language-neutral Acquire/Health contract — plain Go methods, without
// owning a real wire protocol. The actual RPC framework (code generation,
// marshaling) is a separate concern; this package exists so
// cmd/ratelimitd has something concrete to serve.
package rpc

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/windowgate/slidinglimit"
	"github.com/windowgate/slidinglimit/rlerrors"
)

// AcquireRequest is the wire-neutral request shape for the Acquire RPC.
type AcquireRequest struct {
	Resource string `json:"resource"`
	Caller   string `json:"caller"`
}

// AcquireResponse carries the Acquire decision fields, plus an ErrorKind
// carrying the rlerrors taxonomy label so a transport layer can
// map it to a status code (Unavailable/DeadlineExceeded/InvalidArgument
// are non-OK; a plain deny is OK with Allowed=false).
type AcquireResponse struct {
	Allowed      bool   `json:"allowed"`
	Remaining    uint32 `json:"remaining"`
	RetryAfterMs uint32 `json:"retry_after_ms"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// HealthResponse reports the Health RPC's outcome. Ready is the flag the
// background health prober sets: false after a failed probe, true after a
// successful one. It is not tied to redis_timeout_ms; how long the store
// can be unreachable before Ready turns false depends on the prober's
// interval and timeout.
type HealthResponse struct {
	Ready bool `json:"ready"`
}

// Server adapts a *ratelimit.RateLimiter to an Acquire/Health RPC surface.
// It holds one extra piece of state beyond the limiter: a readiness flag
// flipped by a background health prober (internal/healthchecker), since
// the limiter itself has no notion of "has the store been down for a
// while" — only "did this one call fail".
type Server struct {
	limiter *ratelimit.RateLimiter
	ready   atomic.Bool
}

// NewServer builds an rpc.Server around limiter, starting ready.
func NewServer(limiter *ratelimit.RateLimiter) *Server {
	s := &Server{limiter: limiter}
	s.ready.Store(true)
	return s
}

// SetReady flips the readiness flag Health reports. Wired to
// internal/healthchecker's onHealthy/onUnhealthy callbacks.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Acquire implements the Acquire RPC over the decision engine.
func (s *Server) Acquire(ctx context.Context, req AcquireRequest) AcquireResponse {
	d, err := s.limiter.Acquire(ctx, req.Resource, req.Caller)
	resp := AcquireResponse{
		Allowed:      d.Allowed,
		Remaining:    clampUint32(d.Remaining),
		RetryAfterMs: clampUint32(d.RetryAfter.Milliseconds()),
	}
	if err != nil {
		resp.ErrorKind = kindLabel(err)
		resp.ErrorMessage = err.Error()
	}
	return resp
}

// Health implements the Health RPC: liveness is "the process is
// answering requests at all" (true as soon as Server exists); readiness
// is the flag flipped by the background health prober.
func (s *Server) Health(context.Context) HealthResponse {
	return HealthResponse{Ready: s.ready.Load()}
}

func clampUint32(v int64) uint32 {
	if v < 0 {
		return 0
	}
	if v > int64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(v)
}

// kindLabel maps an rlerrors-classified error to the taxonomy label used
// to distinguish status codes: invalid_argument, unavailable,
// deadline_exceeded, internal.
func kindLabel(err error) string {
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
