package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Capability is a reviewer: it takes a prompt and returns the model's text response.
type Capability interface {
	// Invoke sends the prompt and blocks until the model answers or fails
	Invoke(ctx context.Context, prompt string) (string, error)
	// Model returns the model identifier this capability is bound to
	Model() string
}

// Closer is implemented by capabilities that hold provider resources.
type Closer interface {
	Close() error
}

// NewCapability creates the capability for one reviewer role.
func NewCapability(ctx context.Context, config *Config, role, apiKey string) (Capability, error) {
	if config == nil {
		config = DefaultConfig()
	}

	model := config.GetModel(role)
	if model == "" {
		return nil, fmt.Errorf("no model configured for role %s", role)
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, model, apiKey, config.Timeout)
	case ProviderStub:
		return NewEchoStub(model), nil
	case ProviderOllama, "":
		return NewOllamaClient(config.BaseURL, model, config.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", config.Provider)
	}
}

// CloseAll releases every capability that holds resources.
func CloseAll(caps ...Capability) {
	for _, c := range caps {
		if closer, ok := c.(Closer); ok {
			_ = closer.Close()
		}
	}
}

// GeminiClient implements Capability for Google Gemini
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiClient creates a new Gemini client bound to one model
func NewGeminiClient(ctx context.Context, model, apiKey string, timeout time.Duration) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:  client,
		model:   model,
		timeout: timeout,
	}, nil
}

// Invoke generates text content for the prompt
func (c *GeminiClient) Invoke(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0.1) // Low temperature for consistent output

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &CallError{Model: c.model, Message: "failed to generate content", Cause: err}
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", &CallError{Model: c.model, Message: "unusable response", Cause: err}
	}
	return text, nil
}

// Model returns the Gemini model name
func (c *GeminiClient) Model() string {
	return c.model
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	text := strings.Join(parts, "")
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
