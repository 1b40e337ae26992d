package catconfig

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromEnvironDefaults(t *testing.T) {
	for _, key := range []string{
		envLogErrorOutput, envShowTimestamps, envShowTimestampsAsRelative,
		envTimestampsFormat, envShowSourcePosition, envStrSize,
		envUseValgrind, envOffline,
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg := FromEnviron()
	require.Equal(t, "stderr", cfg.LogErrorOutput)
	require.False(t, cfg.ShowTimestamps)
	require.False(t, cfg.UseValgrind)
	require.False(t, cfg.Offline)
}

func TestFromEnvironOverrides(t *testing.T) {
	t.Setenv(envLogErrorOutput, "stdout")
	t.Setenv(envShowTimestamps, "true")
	t.Setenv(envStrSize, "32")
	t.Setenv(envUseValgrind, "1")

	cfg := FromEnviron()
	require.Equal(t, "stdout", cfg.LogErrorOutput)
	require.True(t, cfg.ShowTimestamps)
	require.Equal(t, 32, cfg.StrSize)
	require.True(t, cfg.UseValgrind)
}

func TestFromEnvironInvalidFallsBackToDefault(t *testing.T) {
	t.Setenv(envLogErrorOutput, "bogus")
	t.Setenv(envStrSize, "not-a-number")

	cfg := FromEnviron()
	require.Equal(t, "stderr", cfg.LogErrorOutput)
	require.Equal(t, 0, cfg.StrSize)
}

func TestTruncate(t *testing.T) {
	cfg := Config{StrSize: 5}
	require.Equal(t, "hello", cfg.Truncate("hello"))
	require.Equal(t, "hello...", cfg.Truncate("hello world"))

	unbounded := Config{StrSize: 0}
	require.Equal(t, "hello world", unbounded.Truncate("hello world"))
}
