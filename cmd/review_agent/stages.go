package main

import (
	"context"
	"fmt"

	"github.com/jonathan/code-reviewer/internal/config"
	"github.com/jonathan/code-reviewer/internal/llm"
	"github.com/jonathan/code-reviewer/internal/pipeline"
)

// buildStages creates one capability per reviewer role. The returned func
// releases provider resources.
func buildStages(ctx context.Context, cfg *config.Config) ([]pipeline.Stage, func(), error) {
	llmCfg := cfg.LLMConfig()

	var (
		stages []pipeline.Stage
		caps   []llm.Capability
	)
	release := func() { llm.CloseAll(caps...) }

	for _, role := range pipeline.DefaultRoles() {
		capability, err := llm.NewCapability(ctx, llmCfg, string(role), cfg.APIKey)
		if err != nil {
			release()
			return nil, nil, fmt.Errorf("failed to create %s reviewer: %w", role, err)
		}
		caps = append(caps, capability)
		stages = append(stages, pipeline.Stage{Role: role, Capability: capability})
	}
	return stages, release, nil
}

// controllerOptions maps the configuration onto pipeline options.
func controllerOptions(cfg *config.Config) []pipeline.Option {
	opts := []pipeline.Option{pipeline.WithConcurrency(cfg.Concurrency)}
	if cfg.PersistedStage != nil {
		opts = append(opts, pipeline.WithPersistedStage(*cfg.PersistedStage))
	}
	if cfg.ExtractCode {
		opts = append(opts, pipeline.WithPostProcess(llm.ExtractCodeBlock))
	}
	return opts
}
