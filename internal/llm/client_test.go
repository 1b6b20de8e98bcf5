package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCapability_Providers(t *testing.T) {
	ctx := context.Background()

	stub, err := NewCapability(ctx, ConfigFor(ProviderStub), "build", "")
	require.NoError(t, err)
	assert.IsType(t, &StubClient{}, stub)
	assert.Equal(t, "codestral:latest", stub.Model())

	ollama, err := NewCapability(ctx, DefaultConfig(), "boss", "")
	require.NoError(t, err)
	assert.IsType(t, &OllamaClient{}, ollama)
	assert.Equal(t, "phind-codellama:34b", ollama.Model())
}

func TestNewCapability_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewCapability(ctx, DefaultConfig(), "unknown-role", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no model configured")

	_, err = NewCapability(ctx, DefaultGeminiConfig(), "build", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")

	bad := DefaultConfig()
	bad.Provider = "carrier-pigeon"
	_, err = NewCapability(ctx, bad, "build", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported llm provider")
}

func TestExtractTextFromResponse_ValidResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []genai.Part{
						genai.Text("const a = 1;"),
						genai.Text("\nconst b = 2;"),
					},
				},
			},
		},
	}

	text, err := extractTextFromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "const a = 1;\nconst b = 2;", text)
}

func TestExtractTextFromResponse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{"nil response", nil},
		{"no candidates", &genai.GenerateContentResponse{}},
		{"no content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}},
		{"blank text", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("  ")}}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extractTextFromResponse(tt.resp)
			assert.Error(t, err)
		})
	}
}

func TestEchoStub(t *testing.T) {
	stub := NewEchoStub("echo")

	out, err := stub.Invoke(context.Background(), "X")
	require.NoError(t, err)
	assert.Equal(t, "REVIEWED:X", out)
	assert.Equal(t, []string{"X"}, stub.Calls())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = stub.Invoke(ctx, "Y")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, stub.Calls(), 1)
}
