package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/inboxkeeper/internal/core/db"
	"github.com/solatis/inboxkeeper/internal/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent rule passes",
	RunE:  runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().Int("limit", 20, "number of runs to show")
	runsCmd.Flags().String("run-id", "", "show a single run")
}

func runRuns(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	runID, _ := cmd.Flags().GetString("run-id")

	store, database, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	var runs []db.RuleRun
	if runID != "" {
		id, err := types.ParseRunID(runID)
		if err != nil {
			return err
		}
		run, err := store.GetRun(cmd.Context(), id)
		if err != nil {
			return err
		}
		runs = append(runs, run)
	} else {
		runs, err = store.ListRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	for _, r := range runs {
		fmt.Fprintf(out, "%s  %-24s %-9s %6d  %s",
			r.RunID, r.RuleName, r.Status, r.Processed, r.StartedAt.Format(time.RFC3339))
		if r.Error != "" {
			fmt.Fprintf(out, "  %s", r.Error)
		}
		fmt.Fprintln(out)
	}
	return nil
}
