package rpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windowgate/slidinglimit"
	"github.com/windowgate/slidinglimit/backends/memory"
	"github.com/windowgate/slidinglimit/policy"
)

func newTestServer(t *testing.T, maxTokens int64) *Server {
	t.Helper()
	b := memory.NewWithCleanup(0)
	t.Cleanup(func() { _ = b.Close() })

	ps, err := policy.New(nil, policy.Policy{
		Pattern: "default", Kind: policy.Exact, MaxTokens: maxTokens, Window: time.Minute,
	})
	require.NoError(t, err)

	rl, err := ratelimit.New(ratelimit.WithBackend(b), ratelimit.WithPolicySet(ps))
	require.NoError(t, err)

	return NewServer(rl)
}

func TestServer_Acquire_AllowsThenDenies(t *testing.T) {
	srv := newTestServer(t, 1)
	ctx := context.Background()

	resp := srv.Acquire(ctx, AcquireRequest{Resource: "x", Caller: "u"})
	assert.True(t, resp.Allowed)
	assert.Empty(t, resp.ErrorKind)

	resp = srv.Acquire(ctx, AcquireRequest{Resource: "x", Caller: "u"})
	assert.False(t, resp.Allowed)
	assert.Empty(t, resp.ErrorKind, "a true rate-limit deny carries no error kind")
}

func TestServer_Acquire_InvalidArgument(t *testing.T) {
	srv := newTestServer(t, 1)
	resp := srv.Acquire(context.Background(), AcquireRequest{Resource: "", Caller: "u"})
	assert.False(t, resp.Allowed)
	assert.Equal(t, "invalid_argument", resp.ErrorKind)
}

func TestServer_Health_DefaultsReady(t *testing.T) {
	srv := newTestServer(t, 1)
	resp := srv.Health(context.Background())
	assert.True(t, resp.Ready)
}

func TestServer_SetReady_FlipsHealth(t *testing.T) {
	srv := newTestServer(t, 1)
	srv.SetReady(false)
	assert.False(t, srv.Health(context.Background()).Ready)

	srv.SetReady(true)
	assert.True(t, srv.Health(context.Background()).Ready)
}

func TestClampUint32(t *testing.T) {
	assert.EqualValues(t, 0, clampUint32(-5))
	assert.EqualValues(t, 5, clampUint32(5))
	assert.EqualValues(t, ^uint32(0), clampUint32(int64(^uint32(0))+100))
}
