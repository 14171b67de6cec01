// Package config loads the runtime's configuration from YAML or JSON5
// files with $include resolution and environment-variable expansion.
// Configuration failures are startup-only and abort the process; nothing
// here is consulted again after boot.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Session   SessionConfig   `yaml:"session"`
	Backend   BackendConfig   `yaml:"backend"`
	Router    RouterConfig    `yaml:"router"`
	Executor  ExecutorConfig  `yaml:"executor"`
	Store     StoreConfig     `yaml:"store"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SessionConfig bounds the monologue loop.
type SessionConfig struct {
	MaxMonologueIterations int    `yaml:"max_monologue_iterations"`
	ChatModel              string `yaml:"chat_model"`
}

// BackendConfig selects and configures the LLM backend adapter.
type BackendConfig struct {
	// Kind is one of: anthropic, openai, gemini.
	Kind         string  `yaml:"kind"`
	APIKey       string  `yaml:"api_key"`
	BaseURL      string  `yaml:"base_url"`
	DefaultModel string  `yaml:"default_model"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
}

// RouterConfig configures per-turn model routing.
type RouterConfig struct {
	Enabled      bool              `yaml:"enabled"`
	Routes       map[string]string `yaml:"routes"`
	ToolAffinity map[string]string `yaml:"tool_affinity"`
}

// ExecutorConfig configures the tool executor.
type ExecutorConfig struct {
	DefaultTimeoutSeconds float64            `yaml:"default_timeout_seconds"`
	MaxConcurrency        int                `yaml:"max_concurrency"`
	CacheEnabled          bool               `yaml:"cache_enabled"`
	ToolTimeoutsSeconds   map[string]float64 `yaml:"tool_timeouts_seconds"`
}

// StoreConfig selects the optional session store.
type StoreConfig struct {
	// Kind is one of: none, sqlite, postgres.
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
	DSN  string `yaml:"dsn"`
}

// TelemetryConfig selects the optional telemetry sink.
type TelemetryConfig struct {
	// Kind is one of: none, prometheus, tracing.
	Kind string `yaml:"kind"`
	// MetricsAddr is the listen address for the Prometheus scrape
	// endpoint (e.g. ":9190").
	MetricsAddr string `yaml:"metrics_addr"`
	// OTLPEndpoint is the OTLP/gRPC collector address for the tracing
	// sink; empty keeps spans in-process.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error.
	Level string `yaml:"level"`
}

// Default returns a runnable configuration pointed at a local
// OpenAI-compatible endpoint with routing and caching enabled.
func Default() Config {
	return Config{
		Session: SessionConfig{
			MaxMonologueIterations: 10,
			ChatModel:              "llama3",
		},
		Backend: BackendConfig{
			Kind:    "openai",
			BaseURL: "http://localhost:11434/v1",
		},
		Router: RouterConfig{Enabled: false},
		Executor: ExecutorConfig{
			DefaultTimeoutSeconds: 30,
			MaxConcurrency:        5,
			CacheEnabled:          true,
		},
		Store:     StoreConfig{Kind: "none"},
		Telemetry: TelemetryConfig{Kind: "none"},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// Load reads, merges, and validates the configuration at path. A missing
// path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := LoadRaw(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	encoded, err := yaml.Marshal(raw)
	if err != nil {
		return Config{}, fmt.Errorf("re-encode config: %w", err)
	}
	if err := yaml.Unmarshal(encoded, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the runtime cannot boot with.
func (c Config) Validate() error {
	switch c.Backend.Kind {
	case "anthropic", "openai", "gemini":
	default:
		return fmt.Errorf("backend.kind must be anthropic, openai, or gemini (got %q)", c.Backend.Kind)
	}
	switch c.Store.Kind {
	case "", "none", "sqlite", "postgres":
	default:
		return fmt.Errorf("store.kind must be none, sqlite, or postgres (got %q)", c.Store.Kind)
	}
	if c.Store.Kind == "sqlite" && c.Store.Path == "" {
		return fmt.Errorf("store.path is required for the sqlite store")
	}
	if c.Store.Kind == "postgres" && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required for the postgres store")
	}
	switch c.Telemetry.Kind {
	case "", "none", "prometheus", "tracing":
	default:
		return fmt.Errorf("telemetry.kind must be none, prometheus, or tracing (got %q)", c.Telemetry.Kind)
	}
	if c.Session.MaxMonologueIterations <= 0 {
		return fmt.Errorf("session.max_monologue_iterations must be positive")
	}
	return nil
}
