package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/code-reviewer/internal/artifact"
	"github.com/jonathan/code-reviewer/internal/config"
	"github.com/jonathan/code-reviewer/internal/llm"
	"github.com/jonathan/code-reviewer/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		port       int
		configPath string
		provider   string
		outputDir  string
		dbURL      string
		apiToken   string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the review API server",
		Long:  `Start an HTTP server that exposes POST /review, POST /review/stream and the run ledger.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()

			var cfg config.Config
			if configPath != "" {
				loaded, err := config.LoadConfig(configPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				cfg = *loaded
			}
			if cmd.Flags().Changed("provider") {
				cfg.Provider = provider
			}
			if cmd.Flags().Changed("output-dir") {
				cfg.Root = outputDir
			}
			if cmd.Flags().Changed("db-url") {
				cfg.DatabaseURL = dbURL
			}
			if dryRun {
				cfg.Provider = string(llm.ProviderStub)
			}
			cfg.ApplyEnv(os.Getenv)
			cfg = cfg.MergeWithDefaults(config.Defaults())
			if err := cfg.Validate(); err != nil {
				return err
			}

			if apiToken == "" {
				apiToken = os.Getenv("REVIEW_API_TOKEN")
			}

			stages, release, err := buildStages(ctx, &cfg)
			if err != nil {
				return err
			}
			defer release()

			srvCfg := server.Config{
				Port:           port,
				Stages:         stages,
				PersistedStage: cfg.PersistedStage,
				APIToken:       apiToken,
			}
			if cfg.ExtractCode {
				srvCfg.PostProcess = llm.ExtractCodeBlock
			}
			if cfg.Root != "" {
				srvCfg.Store = artifact.NewFileStore(cfg.Root, artifact.WithPrefix(cfg.OutputPrefix))
			}
			if cfg.DatabaseURL != "" {
				ledger, err := openLedger(ctx, cfg.DatabaseURL)
				if err != nil {
					return fmt.Errorf("failed to open run ledger: %w", err)
				}
				srvCfg.Ledger = ledger
			}

			srv, err := server.New(srvCfg)
			if err != nil {
				if srvCfg.Ledger != nil {
					srvCfg.Ledger.Close()
				}
				return fmt.Errorf("failed to create server: %w", err)
			}

			return srv.Start()
		},
	}

	f := cmd.Flags()
	f.IntVar(&port, "port", 8080, "Port to listen on")
	f.StringVar(&configPath, "config", "", "Path to a JSON or YAML config file")
	f.StringVar(&provider, "provider", "", "Model provider: ollama, gemini or stub")
	f.StringVar(&outputDir, "output-dir", "", "Directory persisted reviews are written to (persist requests are refused when unset)")
	f.StringVar(&dbURL, "db-url", "", "PostgreSQL connection URL for the run ledger (optional, defaults to DATABASE_URL env var)")
	f.StringVar(&apiToken, "api-token", "", "Bearer token required by the review routes (defaults to REVIEW_API_TOKEN env var)")
	f.BoolVar(&dryRun, "dry-run", false, "Use echo reviewers instead of a model provider")
	return cmd
}
