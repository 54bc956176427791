// Package config loads and hot-reloads hearth's runtime configuration.
//
// Configuration parsing itself is ambient plumbing (YAML in, typed struct
// out, environment overrides for secrets); the values it produces drive
// every other package. The hardcoded safety-critical guards in
// internal/agent are never sourced from here — see agent.AssertGuards.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AgentConfig configures the model-facing side of the runtime.
type AgentConfig struct {
	Model       string `yaml:"model"`
	HaikuModel  string `yaml:"haiku_model"`
	MaxTokens   int    `yaml:"max_tokens"`
	DataDir     string `yaml:"data_dir"`
	Headless    bool   `yaml:"headless"`
	SandboxRoot string `yaml:"sandbox_root"`
}

// MemoryConfig configures the Memory Store, Context Builder and Summarizer.
type MemoryConfig struct {
	ContextBudgetTokens int     `yaml:"context_budget_tokens"`
	SummarizeAtPct      float64 `yaml:"summarize_at_pct"`
	SQLiteDB            string  `yaml:"sqlite_db"`
	ChromaDir           string  `yaml:"chroma_dir"`
}

// ObservabilityConfig configures logging.
type ObservabilityConfig struct {
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Secrets are populated exclusively from the process environment, never
// from the YAML file, so they never land in a config file an operator
// might commit or share.
type Secrets struct {
	ProviderAPIKey  string
	TransportToken  string
	AllowedUserIDs  []string
}

// Config is the full set of recognized configuration inputs.
type Config struct {
	Agent         AgentConfig         `yaml:"agent"`
	Memory        MemoryConfig        `yaml:"memory"`
	Observability ObservabilityConfig `yaml:"observability"`

	// Secrets is never (de)serialized to/from YAML.
	Secrets Secrets `yaml:"-"`
}

// Default returns the configuration a fresh install starts with.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Model:       "claude-sonnet-4-5-20250514",
			HaikuModel:  "claude-haiku-4-5-20251001",
			MaxTokens:   4096,
			DataDir:     "data",
			Headless:    false,
			SandboxRoot: "data/sandbox",
		},
		Memory: MemoryConfig{
			ContextBudgetTokens: 20000,
			SummarizeAtPct:      0.80,
			SQLiteDB:            "data/hearth.db",
			ChromaDir:           "data/vectors.db",
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			LogFile:  "",
		},
	}
}

// Load reads path (if it exists; a missing file is not an error — Default
// is used instead) and applies environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HEARTH_PROVIDER_API_KEY"); v != "" {
		cfg.Secrets.ProviderAPIKey = v
	}
	if v := os.Getenv("HEARTH_TRANSPORT_TOKEN"); v != "" {
		cfg.Secrets.TransportToken = v
	}
	if v := os.Getenv("HEARTH_ALLOWED_USER_IDS"); v != "" {
		ids := strings.Split(v, ",")
		for i := range ids {
			ids[i] = strings.TrimSpace(ids[i])
		}
		cfg.Secrets.AllowedUserIDs = ids
	}
	if v := os.Getenv("HEARTH_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("HEARTH_HEADLESS"); v != "" {
		cfg.Agent.Headless = v == "1" || strings.EqualFold(v, "true")
	}
}

// Validate rejects configurations that would violate an invariant elsewhere
// in the runtime (an empty budget would make the Context Builder divide by
// nothing; a percentage outside (0,1] would make should_summarize nonsensical).
func (c *Config) Validate() error {
	if c.Memory.ContextBudgetTokens <= 0 {
		return fmt.Errorf("config: memory.context_budget_tokens must be positive")
	}
	if c.Memory.SummarizeAtPct <= 0 || c.Memory.SummarizeAtPct > 1 {
		return fmt.Errorf("config: memory.summarize_at_pct must be in (0, 1]")
	}
	if c.Agent.MaxTokens <= 0 {
		return fmt.Errorf("config: agent.max_tokens must be positive")
	}
	return nil
}

// ReloadableSnapshot is the subset of Config the Watcher is allowed to
// change on the fly. Everything else (data dir, sandbox root, DB paths)
// requires a process restart, matching MangleWatcher's scope of "reload
// what's safe to reload, nothing structural".
type ReloadableSnapshot struct {
	LogLevel            string
	ContextBudgetTokens int
	SummarizeAtPct      float64
}

// Snapshot extracts the reloadable fields.
func (c *Config) Snapshot() ReloadableSnapshot {
	return ReloadableSnapshot{
		LogLevel:            c.Observability.LogLevel,
		ContextBudgetTokens: c.Memory.ContextBudgetTokens,
		SummarizeAtPct:      c.Memory.SummarizeAtPct,
	}
}

// contextBudgetWindow bounds how fresh a reload must be considered; exposed
// for the watcher's debounce duration.
const ReloadDebounce = 500 * time.Millisecond
