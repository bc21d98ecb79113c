package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/inboxkeeper/internal/core/db"
	"github.com/solatis/inboxkeeper/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Copy new Gmail messages into the store",
	RunE:  runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().Int("max-pages", 0, "override ingest.max_pages")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("max-pages") {
		cfg.Ingest.MaxPages, _ = cmd.Flags().GetInt("max-pages")
	}

	store, database, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	res, err := ingestOnce(cmd.Context(), store)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "listed %d, fetched %d, failed %d, inserted %d\n",
		res.Listed, res.Fetched, res.Failed, res.Inserted)
	return nil
}

func ingestOnce(ctx context.Context, store *db.Store) (ingest.Result, error) {
	client, err := gmailClient(ctx)
	if err != nil {
		return ingest.Result{}, err
	}

	opts := ingest.Options{
		Label:       cfg.Ingest.Label,
		PageSize:    cfg.Ingest.PageSize,
		MaxPages:    cfg.Ingest.MaxPages,
		Concurrency: cfg.Ingest.FetchConcurrency,
		InsertBatch: cfg.Store.InsertBatchSize,
	}
	svc, err := ingest.New(client, store, opts, logger)
	if err != nil {
		return ingest.Result{}, err
	}
	return svc.Run(ctx)
}
