package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jonathan/code-reviewer/internal/artifact"
	"github.com/jonathan/code-reviewer/internal/config"
	"github.com/jonathan/code-reviewer/internal/db"
	"github.com/jonathan/code-reviewer/internal/llm"
	"github.com/jonathan/code-reviewer/internal/observability"
	"github.com/jonathan/code-reviewer/internal/pipeline"
)

// runOptions holds the flag values of the run command
type runOptions struct {
	configPath   string
	provider     string
	models       map[string]*string
	baseURL      string
	apiKey       string
	timeout      int
	persistStage int
	concurrency  int
	root         string
	outputPrefix string
	databaseURL  string
	dryRun       bool
	verbose      bool
	extractCode  bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{models: make(map[string]*string)}

	cmd := &cobra.Command{
		Use:   "run [targets...]",
		Short: "Review the target files and write FIXED_<name> for each",
		Long: `Runs build -> syntax -> design -> boss on every target that exists. Each reviewer
receives the previous reviewer's answer; the design reviewer's answer is written to FIXED_<name>.

Configuration can be loaded from a JSON or YAML file using --config. Command-line arguments override config file values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveRunConfig(cmd, opts, args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			report, err := executeRun(ctx, cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if len(report.Outcomes) > 0 && report.Failed() == len(report.Outcomes) {
				return fmt.Errorf("all %d targets failed", len(report.Outcomes))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "Path to a JSON or YAML config file (values can be overridden by other flags)")
	f.StringVar(&opts.provider, "provider", "", "Model provider: ollama, gemini or stub")
	for _, role := range pipeline.DefaultRoles() {
		opts.models[string(role)] = f.String("model-"+string(role), "", fmt.Sprintf("Model for the %s reviewer", role))
	}
	f.StringVar(&opts.baseURL, "base-url", "", "Ollama address (defaults to OLLAMA_HOST or "+llm.DefaultOllamaURL+")")
	f.StringVar(&opts.apiKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	f.IntVar(&opts.timeout, "timeout", 0, "Seconds allowed for one model call")
	f.IntVar(&opts.persistStage, "persist-stage", 0, "Index of the stage whose output is written (-1 for the last; default next-to-last)")
	f.IntVar(&opts.concurrency, "concurrency", 1, "Number of targets reviewed at once")
	f.StringVar(&opts.root, "root", "", "Directory the targets are read from and written to (default: current directory)")
	f.StringVar(&opts.outputPrefix, "output-prefix", "", "Prefix of the written file name (default FIXED_)")
	f.StringVar(&opts.databaseURL, "db-url", "", "PostgreSQL connection URL for the run ledger (optional, defaults to DATABASE_URL env var)")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Use echo reviewers instead of a model provider")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Print every reviewer's full answer")
	f.BoolVar(&opts.extractCode, "extract-code", false, "Write only the first fenced code block of the answer")

	return cmd
}

// resolveRunConfig layers explicitly set flags over the config file, then fills
// the gaps from the environment and the defaults.
func resolveRunConfig(cmd *cobra.Command, opts *runOptions, args []string) (*config.Config, error) {
	// Step 1: Load config file if provided
	var cfg config.Config
	if opts.configPath != "" {
		loaded, err := config.LoadConfig(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	// Step 2: Apply CLI overrides (only flags that were explicitly set)
	flags := cmd.Flags()
	if len(args) > 0 {
		cfg.Targets = args
	}
	if flags.Changed("provider") {
		cfg.Provider = opts.provider
	}
	for role, model := range opts.models {
		if flags.Changed("model-" + role) {
			if cfg.Models == nil {
				cfg.Models = make(map[string]string)
			}
			cfg.Models[role] = *model
		}
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = opts.baseURL
	}
	if flags.Changed("api-key") {
		cfg.APIKey = opts.apiKey
	}
	if flags.Changed("timeout") {
		cfg.TimeoutSeconds = opts.timeout
	}
	if flags.Changed("persist-stage") {
		stage := opts.persistStage
		cfg.PersistedStage = &stage
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = opts.concurrency
	}
	if flags.Changed("root") {
		cfg.Root = opts.root
	}
	if flags.Changed("output-prefix") {
		cfg.OutputPrefix = opts.outputPrefix
	}
	if flags.Changed("db-url") {
		cfg.DatabaseURL = opts.databaseURL
	}
	if flags.Changed("verbose") {
		cfg.Verbose = opts.verbose
	}
	if flags.Changed("extract-code") {
		cfg.ExtractCode = opts.extractCode
	}
	if opts.dryRun {
		cfg.Provider = "stub"
	}

	// Step 3: Environment fallbacks and defaults
	cfg.ApplyEnv(os.Getenv)
	cfg = cfg.MergeWithDefaults(config.Defaults())

	// Step 4: Validate
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// executeRun reviews every configured target and prints progress and a summary to out.
func executeRun(ctx context.Context, cfg *config.Config, out io.Writer) (*pipeline.BatchReport, error) {
	printer := observability.NewPrinter(out, cfg.Verbose)

	stages, release, err := buildStages(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer release()

	opts := append(controllerOptions(cfg), pipeline.WithObserver(printer))

	if cfg.DatabaseURL != "" {
		ledger, err := openLedger(ctx, cfg.DatabaseURL)
		if err != nil {
			_, _ = fmt.Fprintf(out, "Warning: run ledger disabled: %v\n", err)
		} else {
			defer ledger.Close()
			opts = append(opts, pipeline.WithRecorder(ledger))
		}
	}

	ctrl, err := pipeline.NewController(stages, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
	}

	if cfg.Verbose {
		index, role := ctrl.PersistedStage()
		_, _ = fmt.Fprintf(out, "Reviewing %d target(s) with %s models; stage %d (%s) is written\n",
			len(cfg.Targets), cfg.Provider, index+1, role)
	}

	root := cfg.Root
	if root == "" {
		root = "."
	}
	store := artifact.NewFileStore(root, artifact.WithPrefix(cfg.OutputPrefix))

	report := ctrl.ProcessTargets(ctx, store, cfg.Targets)
	printer.PrintReport(report)
	return report, nil
}

// openLedger connects to the database and makes sure the ledger tables exist.
func openLedger(ctx context.Context, databaseURL string) (*db.DB, error) {
	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}
