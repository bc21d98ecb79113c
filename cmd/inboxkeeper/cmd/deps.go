package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/inboxkeeper/internal/core/db"
	"github.com/solatis/inboxkeeper/internal/gmail"
	"github.com/solatis/inboxkeeper/internal/rules"
)

// openStore opens the configured database and checks it is migrated.
func openStore() (*db.Store, *sqlx.DB, error) {
	database, err := db.Open(cfg.Database.ResolvedURL())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	status, err := db.MigrateStatus(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, m := range status {
		if !m.Applied {
			database.Close()
			return nil, nil, fmt.Errorf("migration %s not applied - run 'inboxkeeper migrate' first", m.ID)
		}
	}

	store, err := db.NewStore(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return store, database, nil
}

// loadEngine reads and compiles the rules file at path, defaulting to the
// configured path. The engine clock is the wall clock.
func loadEngine(path string) (*rules.Engine, error) {
	if path == "" {
		path = cfg.Rules.Path
	}
	return rules.NewEngineFromFile(path, time.Now)
}

// gmailClient builds the rate-limited Gmail client from saved credentials.
func gmailClient(ctx context.Context) (*gmail.Client, error) {
	srv, err := gmail.NewService(ctx, cfg.Gmail.CredentialsFile, cfg.Gmail.TokenFile)
	if err != nil {
		return nil, err
	}
	return gmail.NewClient(gmail.NewAPI(srv), cfg.Gmail.RequestsPerSecond, cfg.Gmail.Burst, logger), nil
}
