package catcode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, ECONNREFUSED, "dial failed")

	require.True(t, errors.Is(err, New(ECONNREFUSED, "")))
	require.False(t, errors.Is(err, New(ETIMEDOUT, "")))
	require.ErrorIs(t, err, cause)
}

func TestCodeOf(t *testing.T) {
	require.Equal(t, ETIMEDOUT, CodeOf(New(ETIMEDOUT, "deadline exceeded")))
	require.Equal(t, Code(0), CodeOf(errors.New("plain")))
}

func TestIsHelper(t *testing.T) {
	err := New(ELOCKED, "coroutine is locked")
	require.True(t, Is(err, ELOCKED))
	require.False(t, Is(err, EBUSY))
}

func TestCodeRecoverable(t *testing.T) {
	require.True(t, ETIMEDOUT.Recoverable())
	require.True(t, ECANCELED.Recoverable())
	require.True(t, EAGAIN.Recoverable())
	require.False(t, EMISUSE.Recoverable())
}

func TestCodeString(t *testing.T) {
	require.Equal(t, "esrch", ESRCH.String())
	require.Equal(t, "eunknown", Code(9999).String())
}
