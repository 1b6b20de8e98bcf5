// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import (
	"context"
	"strings"
	"time"
)

// withTimeout applies a per-call deadline when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// ExtractCodeBlock returns the body of the first fenced code block in a model
// response. Responses without a fence are returned trimmed.
func ExtractCodeBlock(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return strings.TrimSpace(text)
	}
	rest := text[start+3:]

	// Skip a language identifier on the fence line
	if idx := strings.Index(rest, "\n"); idx >= 0 {
		firstLine := rest[:idx]
		if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
			rest = rest[idx+1:]
		}
	}

	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
