// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/code-reviewer/internal/artifact"
	"github.com/jonathan/code-reviewer/internal/llm"
	"github.com/jonathan/code-reviewer/internal/schemas"
)

// DefaultTargets are the artifacts reviewed when none are given.
var DefaultTargets = []string{"App.tsx", "package.json"}

// DefaultTimeoutSeconds bounds a single model call.
const DefaultTimeoutSeconds = 600

// Config represents the CLI configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Input / output
	Targets      []string `json:"targets,omitempty" yaml:"targets,omitempty" validate:"omitempty,dive,required"`
	Root         string   `json:"root,omitempty" yaml:"root,omitempty"`                   // Directory targets are resolved against
	OutputPrefix string   `json:"output_prefix,omitempty" yaml:"output_prefix,omitempty"` // Prefix of the persisted artifact name

	// Models
	Provider       string            `json:"provider,omitempty" yaml:"provider,omitempty" validate:"omitempty,oneof=ollama gemini stub"`
	BaseURL        string            `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"` // Ollama daemon address
	Models         map[string]string `json:"models,omitempty" yaml:"models,omitempty" validate:"omitempty,dive,keys,oneof=build syntax design boss,endkeys,required"`
	APIKey         string            `json:"api_key,omitempty" yaml:"api_key,omitempty"` // Gemini API key
	TimeoutSeconds int               `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"gte=0"`

	// Pipeline
	PersistedStage *int `json:"persisted_stage,omitempty" yaml:"persisted_stage,omitempty" validate:"omitempty,gte=-1"` // nil keeps the next-to-last stage
	Concurrency    int  `json:"concurrency,omitempty" yaml:"concurrency,omitempty" validate:"gte=0,lte=32"`
	ExtractCode    bool `json:"extract_code,omitempty" yaml:"extract_code,omitempty"` // Persist only the first fenced code block

	// Behavior
	Verbose     bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"` // PostgreSQL run ledger
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Targets:        append([]string(nil), DefaultTargets...),
		OutputPrefix:   artifact.DefaultPrefix,
		Provider:       string(llm.ProviderOllama),
		TimeoutSeconds: DefaultTimeoutSeconds,
		Concurrency:    1,
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// The document is checked against the config schema before decoding.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var (
		doc map[string]any
		cfg Config
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	if doc == nil {
		doc = map[string]any{}
	}
	if err := schemas.ValidateConfig(doc); err != nil {
		return nil, fmt.Errorf("config %s does not match schema: %w", path, err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if c.Provider == string(llm.ProviderGemini) && c.APIKey == "" {
		return fmt.Errorf("config error: 'api_key' is required for the gemini provider (or set GEMINI_API_KEY)")
	}

	if c.Root != "" {
		info, err := os.Stat(c.Root)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("config error: root directory not found: %s", c.Root)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if len(result.Targets) == 0 {
		result.Targets = defaults.Targets
	}
	if result.Root == "" {
		result.Root = defaults.Root
	}
	if result.OutputPrefix == "" {
		result.OutputPrefix = defaults.OutputPrefix
	}
	if result.Provider == "" {
		result.Provider = defaults.Provider
	}
	if result.BaseURL == "" {
		result.BaseURL = defaults.BaseURL
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	// Per-role models: fill roles missing from this config
	if len(defaults.Models) > 0 {
		merged := make(map[string]string, len(defaults.Models)+len(result.Models))
		for role, model := range defaults.Models {
			merged[role] = model
		}
		for role, model := range result.Models {
			merged[role] = model
		}
		result.Models = merged
	}

	// Int fields: use default if zero
	if result.TimeoutSeconds == 0 {
		result.TimeoutSeconds = defaults.TimeoutSeconds
	}
	if result.Concurrency == 0 {
		result.Concurrency = defaults.Concurrency
	}
	if result.PersistedStage == nil {
		result.PersistedStage = defaults.PersistedStage
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// ApplyEnv fills credentials and endpoints left empty from the environment:
// GEMINI_API_KEY, OLLAMA_HOST and DATABASE_URL.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if c.APIKey == "" {
		c.APIKey = getenv("GEMINI_API_KEY")
	}
	if c.BaseURL == "" {
		if host := getenv("OLLAMA_HOST"); host != "" {
			if !strings.Contains(host, "://") {
				host = "http://" + host
			}
			c.BaseURL = host
		}
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = getenv("DATABASE_URL")
	}
}

// Timeout returns the per-call model timeout.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return llm.DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LLMConfig builds the capability configuration: provider defaults overlaid with
// the configured base URL, per-role models and timeout.
func (c *Config) LLMConfig() *llm.Config {
	cfg := llm.ConfigFor(llm.Provider(c.Provider))
	if c.BaseURL != "" && cfg.Provider == llm.ProviderOllama {
		cfg.BaseURL = c.BaseURL
	}
	for role, model := range c.Models {
		cfg = cfg.WithModel(role, model)
	}
	cfg.Timeout = c.Timeout()
	return cfg
}
