// Package llm provides the reviewer capabilities: text-in/text-out model clients
// addressed by a model identifier, one per pipeline role.
package llm

import (
	"time"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderOllama talks to a local Ollama daemon
	ProviderOllama Provider = "ollama"
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderStub echoes prompts back; used for dry runs and tests
	ProviderStub Provider = "stub"
)

// DefaultOllamaURL is the address of a local Ollama daemon.
const DefaultOllamaURL = "http://localhost:11434"

// DefaultTimeout bounds a single Invoke call.
const DefaultTimeout = 10 * time.Minute

// Config holds the model configuration for the reviewer roles
type Config struct {
	Provider Provider
	BaseURL  string
	Models   map[string]string
	Timeout  time.Duration
}

// DefaultConfig returns the default configuration (local Ollama models)
func DefaultConfig() *Config {
	return DefaultOllamaConfig()
}

// DefaultOllamaConfig returns the four local models the reviewers were tuned against.
func DefaultOllamaConfig() *Config {
	return &Config{
		Provider: ProviderOllama,
		BaseURL:  DefaultOllamaURL,
		Models: map[string]string{
			"build":  "codestral:latest",
			"syntax": "codellama:34b",
			"design": "command-r:latest",
			"boss":   "phind-codellama:34b",
		},
		Timeout: DefaultTimeout,
	}
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[string]string{
			"build":  "gemini-2.5-flash",
			"syntax": "gemini-2.5-flash",
			"design": "gemini-2.5-pro",
			"boss":   "gemini-2.5-pro",
		},
		Timeout: DefaultTimeout,
	}
}

// ConfigFor returns the default configuration for a provider.
func ConfigFor(p Provider) *Config {
	switch p {
	case ProviderGemini:
		return DefaultGeminiConfig()
	case ProviderStub:
		cfg := DefaultOllamaConfig()
		cfg.Provider = ProviderStub
		cfg.BaseURL = ""
		return cfg
	default:
		return DefaultOllamaConfig()
	}
}

// GetModel returns the model name for a given role, or "" if none is configured.
func (c *Config) GetModel(role string) string {
	return c.Models[role]
}

// WithModel returns a new Config with a specific model for a role
func (c *Config) WithModel(role, model string) *Config {
	newConfig := &Config{
		Provider: c.Provider,
		BaseURL:  c.BaseURL,
		Timeout:  c.Timeout,
		Models:   make(map[string]string, len(c.Models)+1),
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[role] = model
	return newConfig
}
