package system

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExecuteReturnsPopulatedSnapshot(t *testing.T) {
	s := New()
	out, err := s.Execute(context.Background(), nil)
	require.NoError(t, err)
	require.Contains(t, out, "cpu_percent")
	require.Contains(t, out, "memory_used_percent")
	require.Contains(t, out, "top_processes_by_cpu")
}

func TestExecuteCachesWithinTTL(t *testing.T) {
	s := New()
	callCount := 0
	fakeNow := time.Now()
	s.now = func() time.Time { return fakeNow }

	first, err := s.Execute(context.Background(), nil)
	require.NoError(t, err)

	// Overwrite the cache's text directly to prove the second call reuses it
	// rather than resampling the host.
	s.mu.Lock()
	s.cache.text = "sentinel-cached-value"
	s.mu.Unlock()
	callCount++

	second, err := s.Execute(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "sentinel-cached-value", second)
	require.NotEqual(t, first, second)
}

func TestExecuteResamplesAfterTTLExpires(t *testing.T) {
	s := New()
	fakeNow := time.Now()
	s.now = func() time.Time { return fakeNow }

	_, err := s.Execute(context.Background(), nil)
	require.NoError(t, err)

	s.mu.Lock()
	s.cache.text = "stale-value"
	s.mu.Unlock()

	fakeNow = fakeNow.Add(CacheTTL + time.Second)
	out, err := s.Execute(context.Background(), nil)
	require.NoError(t, err)
	require.NotEqual(t, "stale-value", out)
}

func TestDefinitionIsWellFormed(t *testing.T) {
	s := New()
	def := s.Definition()
	require.Equal(t, "system_status", def.Name)
	require.NotNil(t, def.Handler)
}
