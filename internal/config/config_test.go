package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default().Agent.Model, cfg.Agent.Model)
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
agent:
  model: custom-model
  max_tokens: 1000
  data_dir: /tmp/hearth
memory:
  context_budget_tokens: 5000
  summarize_at_pct: 0.5
observability:
  log_level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "custom-model", cfg.Agent.Model)
	require.Equal(t, 1000, cfg.Agent.MaxTokens)
	require.Equal(t, 5000, cfg.Memory.ContextBudgetTokens)
	require.Equal(t, 0.5, cfg.Memory.SummarizeAtPct)
	require.Equal(t, "debug", cfg.Observability.LogLevel)
}

func TestEnvOverridesSecretsOnly(t *testing.T) {
	t.Setenv("HEARTH_PROVIDER_API_KEY", "sk-test-123")
	t.Setenv("HEARTH_ALLOWED_USER_IDS", "alice, bob")
	t.Setenv("HEARTH_HEADLESS", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "sk-test-123", cfg.Secrets.ProviderAPIKey)
	require.Equal(t, []string{"alice", "bob"}, cfg.Secrets.AllowedUserIDs)
	require.True(t, cfg.Agent.Headless)
}

func TestValidateRejectsBadBudget(t *testing.T) {
	cfg := Default()
	cfg.Memory.ContextBudgetTokens = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Memory.SummarizeAtPct = 1.5
	require.Error(t, cfg.Validate())
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("observability:\n  log_level: info\n"), 0o644))

	reloaded := make(chan ReloadableSnapshot, 4)
	w, err := NewWatcher(path, func(s ReloadableSnapshot) { reloaded <- s })
	require.NoError(t, err)

	ctx, cancel := newTestContext(t)
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("observability:\n  log_level: debug\n"), 0o644))

	select {
	case snap := <-reloaded:
		require.Equal(t, "debug", snap.LogLevel)
	case <-ctx.Done():
		t.Fatal("timed out waiting for reload")
	}
}
