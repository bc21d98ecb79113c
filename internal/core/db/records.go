package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/inboxkeeper/internal/metrics"
	"github.com/solatis/inboxkeeper/internal/types"
)

// ErrNotFound indicates no message with the requested key.
var ErrNotFound = errors.New("message not found")

// Store adapts the messages and rule_runs tables for the engine.
type Store struct {
	db      *sqlx.DB
	queries *Queries
	now     func() time.Time
}

// NewStore wraps an open, migrated connection.
func NewStore(db *sqlx.DB) (*Store, error) {
	queries, err := LoadQueries(db)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, queries: queries, now: time.Now}, nil
}

// WithClock overrides the clock used for created_at and run timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// DB exposes the underlying connection.
func (s *Store) DB() *sqlx.DB { return s.db }

type messageRow struct {
	ID          int64          `db:"id"`
	MessageKey  string         `db:"message_key"`
	ThreadID    string         `db:"thread_id"`
	FromAddress sql.NullString `db:"from_address"`
	ToAddress   sql.NullString `db:"to_address"`
	Subject     sql.NullString `db:"subject"`
	Body        sql.NullString `db:"body"`
	LabelIDs    string         `db:"label_ids"`
	ReceivedAt  sql.NullInt64  `db:"received_at"`
	CreatedAt   int64          `db:"created_at"`
}

func (r messageRow) record() (types.Record, error) {
	rec := types.Record{
		ID:        r.ID,
		Key:       types.MessageKey(r.MessageKey),
		ThreadID:  r.ThreadID,
		From:      nullString(r.FromAddress),
		To:        nullString(r.ToAddress),
		Subject:   nullString(r.Subject),
		Body:      nullString(r.Body),
		CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
	}
	if r.ReceivedAt.Valid {
		t := time.UnixMilli(r.ReceivedAt.Int64).UTC()
		rec.ReceivedAt = &t
	}
	if r.LabelIDs != "" {
		if err := json.Unmarshal([]byte(r.LabelIDs), &rec.Labels); err != nil {
			return types.Record{}, fmt.Errorf("message %s: decode label_ids: %w", r.MessageKey, err)
		}
	}
	return rec, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func stringArg(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// InsertIfAbsent stores records whose key is not already present.
// Records are buffered and flushed in transactions of batchSize rows
// (types.DefaultInsertBatch when batchSize <= 0); the final partial buffer is
// flushed too. Returns the number of rows actually inserted; duplicates are
// skipped silently.
func (s *Store) InsertIfAbsent(ctx context.Context, records iter.Seq[types.Record], batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = types.DefaultInsertBatch
	}

	inserted := 0
	buf := make([]types.Record, 0, batchSize)

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		n, err := s.insertBatch(ctx, buf)
		if err != nil {
			return err
		}
		inserted += n
		buf = buf[:0]
		return nil
	}

	for rec := range records {
		buf = append(buf, rec)
		if len(buf) >= batchSize {
			if err := flush(); err != nil {
				return inserted, err
			}
		}
	}
	if err := flush(); err != nil {
		return inserted, err
	}
	return inserted, nil
}

func (s *Store) insertBatch(ctx context.Context, batch []types.Record) (n int, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert batch: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			metrics.StoreTransactions.WithLabelValues("rollback").Inc()
		}
	}()

	createdAt := s.now().UnixMilli()
	for _, rec := range batch {
		labels := rec.Labels
		if labels == nil {
			labels = []string{}
		}
		labelJSON, err := json.Marshal(labels)
		if err != nil {
			return 0, fmt.Errorf("encode labels for %s: %w", rec.Key, err)
		}

		var received any
		if rec.ReceivedAt != nil {
			received = rec.ReceivedAt.UnixMilli()
		}

		res, err := s.queries.Exec(ctx, tx, "insert-message",
			string(rec.Key), rec.ThreadID,
			stringArg(rec.From), stringArg(rec.To), stringArg(rec.Subject), stringArg(rec.Body),
			string(labelJSON), received, createdAt,
		)
		if err != nil {
			return 0, fmt.Errorf("insert message %s: %w", rec.Key, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected for %s: %w", rec.Key, err)
		}
		n += int(affected)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert batch: %w", err)
	}
	metrics.StoreTransactions.WithLabelValues("commit").Inc()
	return n, nil
}

// Query returns up to limit records matching filter, skipping offset.
// Ordering by the store-assigned id keeps pages stable across offsets.
func (s *Store) Query(ctx context.Context, filter types.Filter, offset, limit int) ([]types.Record, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("query limit must be positive, got %d", limit)
	}
	if offset < 0 {
		return nil, fmt.Errorf("query offset must not be negative, got %d", offset)
	}

	base, err := s.queries.Raw("select-messages")
	if err != nil {
		return nil, err
	}

	query := base
	args := make([]any, 0, len(filter.Args)+2)
	if !filter.IsEmpty() {
		query += " WHERE " + filter.Clause
		args = append(args, filter.Args...)
	}
	query += " ORDER BY id ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}

	out := make([]types.Record, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Get returns the record stored under key.
func (s *Store) Get(ctx context.Context, key types.MessageKey) (types.Record, error) {
	var row messageRow
	if err := s.queries.Get(ctx, "get-message", &row, string(key)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Record{}, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return types.Record{}, fmt.Errorf("get message %s: %w", key, err)
	}
	return row.record()
}

// Count returns the number of stored messages.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.queries.Get(ctx, "count-messages", &n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}
