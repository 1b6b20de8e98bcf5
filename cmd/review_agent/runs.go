package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/code-reviewer/internal/db"
)

func newRunsCmd() *cobra.Command {
	var (
		dbURL   string
		filters db.RunFilters
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent review runs from the ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbURL == "" {
				dbURL = os.Getenv("DATABASE_URL")
			}
			if dbURL == "" {
				return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
			}

			ctx := context.Background()
			database, err := db.Connect(ctx, dbURL)
			if err != nil {
				return err
			}
			defer database.Close()

			runs, err := database.ListRuns(ctx, filters)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}

	f := cmd.Flags()
	f.StringVar(&dbURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL env var)")
	f.StringVar(&filters.ArtifactName, "artifact", "", "Only runs of this artifact")
	f.StringVar(&filters.Status, "status", "", "Only runs with this status (completed, failed)")
	f.IntVar(&filters.Limit, "limit", db.DefaultListLimit, "Maximum number of runs")
	return cmd
}

// printRuns writes one row per run.
func printRuns(out io.Writer, runs []db.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "No runs recorded.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tARTIFACT\tSTATUS\tSTAGE\tSTARTED\tDURATION")
	for _, r := range runs {
		stage := "-"
		if r.PersistedRole != nil {
			stage = *r.PersistedRole
		}
		duration := "-"
		if r.CompletedAt != nil {
			duration = r.CompletedAt.Sub(r.StartedAt).Round(100 * time.Millisecond).String()
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.ArtifactName, r.Status, stage, r.StartedAt.Format("2006-01-02 15:04:05"), duration)
	}
	return tw.Flush()
}
