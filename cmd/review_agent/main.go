// Package main provides the review_agent CLI: the staged code-review pipeline,
// the semicolon cleanup pass, the review API server and the run ledger.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "review_agent",
		Short: "Staged LLM code review",
		Long: `review_agent sends each source file through four reviewers (build, syntax, design, boss),
threading every reviewer's answer into the next one, and writes the corrected code to FIXED_<name>.`,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newCleanCmd(), newServeCmd(), newRunsCmd())
	return root
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
