package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/code-reviewer/internal/artifact"
	"github.com/jonathan/code-reviewer/internal/cleanup"
)

func newCleanCmd() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "clean [targets...]",
		Short: "Collapse doubled semicolons in place",
		Long:  "Rewrites each existing target with every \";;\" collapsed to \";\". Defaults to App.tsx, shim.js and index.js.",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := args
			if len(targets) == 0 {
				targets = cleanup.DefaultTargets
			}

			results := cleanup.Run(artifact.NewFileStore(root), targets, cmd.OutOrStdout())

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d targets could not be cleaned", failed, len(targets))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "Directory the targets live in")
	return cmd
}
