package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [rules-file]",
	Short: "Check a rules file without touching the store",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	engine, err := loadEngine(path)
	if err != nil {
		return err
	}
	ruleset := engine.Rules()

	out := cmd.OutOrStdout()
	for _, r := range ruleset {
		fmt.Fprintf(out, "%-24s %s, %d condition(s), %d action(s)\n",
			r.Name, r.Combinator, len(r.Conditions), len(r.Actions))
	}
	fmt.Fprintf(out, "ok: %d rule(s)\n", len(ruleset))
	return nil
}
