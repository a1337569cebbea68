package rlerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidArgument_IsSentinel(t *testing.T) {
	err := InvalidArgument("ratelimit:Acquire", errors.New("resource must not be empty"))
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestUnavailable_WrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable("ratelimit:Acquire", cause)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "ratelimit:Acquire")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDeadlineExceeded_IsSentinel(t *testing.T) {
	err := DeadlineExceeded("ratelimit:Acquire", nil)
	assert.True(t, errors.Is(err, ErrDeadlineExceeded))
	assert.Equal(t, "deadline exceeded: ratelimit:Acquire", err.Error())
}

func TestInternal_IsSentinel(t *testing.T) {
	err := Internal("ratelimit:Acquire", errors.New("negative count"))
	assert.True(t, errors.Is(err, ErrInternal))
}

func TestIs_MatchesWrappedSentinel(t *testing.T) {
	err := Unavailable("op", errors.New("boom"))
	assert.True(t, Is(err, ErrUnavailable))
	assert.False(t, Is(err, ErrInternal))
}

func TestError_NilReceiver(t *testing.T) {
	var e *Error
	assert.Equal(t, "rlerrors: nil", e.Error())
}

func TestError_NoOpNoCause(t *testing.T) {
	err := &Error{Kind: ErrInternal}
	assert.Equal(t, ErrInternal.Error(), err.Error())
}
