package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/inboxkeeper/internal/batch"
	"github.com/solatis/inboxkeeper/internal/core/db"
	"github.com/solatis/inboxkeeper/internal/dispatch"
	"github.com/solatis/inboxkeeper/internal/rules"
	"github.com/solatis/inboxkeeper/internal/types"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Apply every rule to the stored messages",
	RunE:  runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().String("rules", "", "rules file (defaults to rules.path)")
	processCmd.Flags().Bool("dry-run", false, "log intended actions instead of performing them")
	processCmd.Flags().Int("page-size", 0, "override engine.page_size")
}

func runProcess(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("dry-run") {
		cfg.Engine.DryRun, _ = cmd.Flags().GetBool("dry-run")
	}
	if cmd.Flags().Changed("page-size") {
		cfg.Engine.PageSize, _ = cmd.Flags().GetInt("page-size")
	}
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

	summary, err := processOnce(cmd.Context(), store, engine)
	printSummary(cmd.OutOrStdout(), summary)
	return err
}

func processOnce(ctx context.Context, store *db.Store, engine *rules.Engine) (batch.Summary, error) {
	var dispatcher dispatch.Dispatcher
	var dry *dispatch.DryRun
	if cfg.Engine.DryRun {
		dry = dispatch.NewDryRun(logger)
		dispatcher = dry
	} else {
		client, err := gmailClient(ctx)
		if err != nil {
			return batch.Summary{}, err
		}
		dispatcher = client
	}

	p, err := batch.New(store, dispatcher,
		batch.WithPageSize(cfg.Engine.PageSize),
		batch.WithClock(engine.Now),
		batch.WithLogger(logger),
		batch.WithRunRecorder(store))
	if err != nil {
		return batch.Summary{}, err
	}

	summary, err := p.ProcessRuleset(ctx, engine.Rules())
	if dry != nil {
		fields := []zap.Field{
			zap.Int("read", dry.Marked(types.MarkRead)),
			zap.Int("unread", dry.Marked(types.MarkUnread)),
		}
		for _, label := range dry.Labels() {
			fields = append(fields, zap.Int("moved:"+label, dry.Moved(label)))
		}
		logger.Info("dry run totals", fields...)
	}
	return summary, err
}

func printSummary(out io.Writer, s batch.Summary) {
	for _, r := range s.Rules {
		status := "ok"
		if r.Err != nil {
			status = "FAILED: " + r.Err.Error()
		}
		fmt.Fprintf(out, "%-24s %6d  %s\n", r.Rule, r.Processed, status)
	}
	fmt.Fprintf(out, "total %d\n", s.Total)
}
