package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Session.MaxMonologueIterations != 10 {
		t.Errorf("default iterations = %d", cfg.Session.MaxMonologueIterations)
	}
	if cfg.Backend.Kind != "openai" {
		t.Errorf("default backend = %q", cfg.Backend.Kind)
	}
}

func TestLoad_YAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("TEST_MONOLOGUE_MODEL", "llama3:8b")
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", `
session:
  max_monologue_iterations: 4
  chat_model: ${TEST_MONOLOGUE_MODEL}
backend:
  kind: openai
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Session.MaxMonologueIterations != 4 {
		t.Errorf("iterations = %d", cfg.Session.MaxMonologueIterations)
	}
	if cfg.Session.ChatModel != "llama3:8b" {
		t.Errorf("chat model = %q", cfg.Session.ChatModel)
	}
}

func TestLoad_IncludeMerge(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
session:
  max_monologue_iterations: 3
  chat_model: base-model
`)
	path := writeFile(t, dir, "cfg.yaml", `
$include: base.yaml
session:
  chat_model: override-model
backend:
  kind: anthropic
  api_key: test
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Session.MaxMonologueIterations != 3 {
		t.Errorf("included value lost: %d", cfg.Session.MaxMonologueIterations)
	}
	if cfg.Session.ChatModel != "override-model" {
		t.Errorf("including file must win: %q", cfg.Session.ChatModel)
	}
	if cfg.Backend.Kind != "anthropic" {
		t.Errorf("backend = %q", cfg.Backend.Kind)
	}
}

func TestLoad_IncludeCycleDetected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "$include: b.yaml\n")
	path := filepath.Join(dir, "b.yaml")
	writeFile(t, dir, "b.yaml", "$include: a.yaml\n")

	if _, err := LoadRaw(path); err == nil {
		t.Error("cycle must be detected")
	}
}

func TestLoad_JSON5(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.json5", `{
  // comments are allowed
  session: { max_monologue_iterations: 7, chat_model: 'm' },
  backend: { kind: 'gemini', api_key: 'k' },
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Session.MaxMonologueIterations != 7 || cfg.Backend.Kind != "gemini" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad backend kind", func(c *Config) { c.Backend.Kind = "carrier-pigeon" }},
		{"sqlite without path", func(c *Config) { c.Store.Kind = "sqlite" }},
		{"postgres without dsn", func(c *Config) { c.Store.Kind = "postgres" }},
		{"bad telemetry kind", func(c *Config) { c.Telemetry.Kind = "punchcards" }},
		{"zero iterations", func(c *Config) { c.Session.MaxMonologueIterations = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
