package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/inboxkeeper/internal/batch"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Report per-rule matches without dispatching anything",
	Long: `Evaluates every rule against every stored message both in memory and
through the database filter, and reports counts plus any message the two
disagree on.`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().String("rules", "", "rules file (defaults to rules.path)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	rulesPath, _ := cmd.Flags().GetString("rules")
	engine, err := loadEngine(rulesPath)
	if err != nil {
		return err
	}

	store, database, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	report, err := batch.Simulate(cmd.Context(), store, engine, cfg.Engine.PageSize)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "scanned %d message(s) at %s\n", report.Scanned, report.Now.Format(time.RFC3339))
	disagreements := 0
	for _, r := range report.Rules {
		fmt.Fprintf(out, "%-24s in-memory %6d  store %6d\n", r.Rule, r.InMemory, r.StoreNative)
		for _, k := range r.Disagreements {
			fmt.Fprintf(out, "  disagreement: %s\n", k)
		}
		disagreements += len(r.Disagreements)
	}
	if disagreements > 0 {
		return fmt.Errorf("%d disagreement(s) between evaluation modes", disagreements)
	}
	return nil
}
