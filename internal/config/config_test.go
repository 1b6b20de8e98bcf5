package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/code-reviewer/internal/llm"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"targets": ["App.tsx", "shim.js"],
		"provider": "ollama",
		"models": {"design": "llama3:70b"},
		"persisted_stage": -1,
		"concurrency": 2,
		"verbose": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, []string{"App.tsx", "shim.js"}, cfg.Targets)
	assert.Equal(t, "ollama", cfg.Provider)
	assert.Equal(t, "llama3:70b", cfg.Models["design"])
	require.NotNil(t, cfg.PersistedStage)
	assert.Equal(t, -1, *cfg.PersistedStage)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
targets:
  - App.tsx
provider: gemini
api_key: secret
timeout_seconds: 30
output_prefix: REVIEWED_
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"App.tsx"}, cfg.Targets)
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, 30, cfg.TimeoutSeconds)
	assert.Equal(t, "REVIEWED_", cfg.OutputPrefix)
	assert.Nil(t, cfg.PersistedStage)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{ invalid json }`)

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "config.yml", "targets: [App.tsx\n")

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config YAML")
}

func TestLoadConfig_SchemaViolation(t *testing.T) {
	path := writeConfig(t, "config.json", `{"provider": "openai"}`)

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "does not match schema")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate(t *testing.T) {
	stage := -2
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "defaults", cfg: Defaults()},
		{name: "unknown provider", cfg: Config{Provider: "openai"}, wantErr: "Provider"},
		{name: "unknown role", cfg: Config{Models: map[string]string{"reviewer": "x"}}, wantErr: "Models"},
		{name: "empty model", cfg: Config{Models: map[string]string{"build": ""}}, wantErr: "Models"},
		{name: "negative timeout", cfg: Config{TimeoutSeconds: -1}, wantErr: "TimeoutSeconds"},
		{name: "persisted stage out of range", cfg: Config{PersistedStage: &stage}, wantErr: "PersistedStage"},
		{name: "concurrency too high", cfg: Config{Concurrency: 100}, wantErr: "Concurrency"},
		{name: "bad base url", cfg: Config{BaseURL: "not a url"}, wantErr: "BaseURL"},
		{name: "gemini without key", cfg: Config{Provider: "gemini"}, wantErr: "api_key"},
		{name: "missing root", cfg: Config{Root: "/nonexistent/review/root"}, wantErr: "root directory not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	last := -1
	cfg := &Config{
		Provider: "stub",
		Models:   map[string]string{"boss": "custom"},
	}
	defaults := Defaults()
	defaults.Models = map[string]string{"boss": "default-boss", "build": "default-build"}
	defaults.PersistedStage = &last

	merged := cfg.MergeWithDefaults(defaults)

	assert.Equal(t, "stub", merged.Provider)
	assert.Equal(t, DefaultTargets, merged.Targets)
	assert.Equal(t, "FIXED_", merged.OutputPrefix)
	assert.Equal(t, DefaultTimeoutSeconds, merged.TimeoutSeconds)
	assert.Equal(t, 1, merged.Concurrency)
	assert.Equal(t, "custom", merged.Models["boss"])
	assert.Equal(t, "default-build", merged.Models["build"])
	require.NotNil(t, merged.PersistedStage)
	assert.Equal(t, -1, *merged.PersistedStage)

	// the receiver is not modified
	assert.Empty(t, cfg.Targets)
	assert.Len(t, cfg.Models, 1)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"GEMINI_API_KEY": "env-key",
		"OLLAMA_HOST":    "gpu-box:11434",
		"DATABASE_URL":   "postgres://localhost/reviews",
	}
	getenv := func(k string) string { return env[k] }

	cfg := &Config{}
	cfg.ApplyEnv(getenv)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "http://gpu-box:11434", cfg.BaseURL)
	assert.Equal(t, "postgres://localhost/reviews", cfg.DatabaseURL)

	explicit := &Config{APIKey: "flag-key", BaseURL: "http://other:1"}
	explicit.ApplyEnv(getenv)
	assert.Equal(t, "flag-key", explicit.APIKey)
	assert.Equal(t, "http://other:1", explicit.BaseURL)
}

func TestLLMConfig(t *testing.T) {
	cfg := Defaults()
	cfg.BaseURL = "http://gpu-box:11434"
	cfg.Models = map[string]string{"syntax": "qwen2.5-coder"}
	cfg.TimeoutSeconds = 5

	lc := cfg.LLMConfig()
	assert.Equal(t, llm.ProviderOllama, lc.Provider)
	assert.Equal(t, "http://gpu-box:11434", lc.BaseURL)
	assert.Equal(t, "qwen2.5-coder", lc.GetModel("syntax"))
	assert.Equal(t, "codestral:latest", lc.GetModel("build"))
	assert.Equal(t, 5*time.Second, lc.Timeout)

	gemini := Config{Provider: "gemini"}
	assert.Equal(t, "gemini-2.5-pro", gemini.LLMConfig().GetModel("boss"))
	assert.Equal(t, llm.DefaultTimeout, gemini.LLMConfig().Timeout)
}
