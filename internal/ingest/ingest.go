// Package ingest copies provider messages into the record store.
//
// One run lists message ids for a label page by page, fetches every listed
// message with bounded concurrency, and inserts the normalized records with
// insert-if-absent semantics. A message that fails to fetch is logged and
// skipped; it is picked up again by a later run since it never reached the
// store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/solatis/inboxkeeper/internal/metrics"
	"github.com/solatis/inboxkeeper/internal/types"
)

// Source lists and fetches provider messages.
type Source interface {
	ListPage(ctx context.Context, labelID string, pageSize int, pageToken string) ([]string, string, error)
	Fetch(ctx context.Context, id string) (types.Record, error)
}

// Inserter is the write side of the record store.
type Inserter interface {
	InsertIfAbsent(ctx context.Context, records iter.Seq[types.Record], batchSize int) (int, error)
}

// Options bounds one run.
type Options struct {
	Label       string
	PageSize    int
	MaxPages    int
	Concurrency int
	InsertBatch int
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Label:       "INBOX",
		PageSize:    50,
		MaxPages:    10,
		Concurrency: 8,
		InsertBatch: types.DefaultInsertBatch,
	}
}

func (o Options) validate() error {
	switch {
	case o.Label == "":
		return errors.New("label cannot be empty")
	case o.PageSize < 1 || o.PageSize > 500:
		return fmt.Errorf("page size must be in [1, 500], got %d", o.PageSize)
	case o.MaxPages < 1:
		return fmt.Errorf("max pages must be positive, got %d", o.MaxPages)
	case o.Concurrency < 1:
		return fmt.Errorf("concurrency must be positive, got %d", o.Concurrency)
	case o.InsertBatch < 1:
		return fmt.Errorf("insert batch must be positive, got %d", o.InsertBatch)
	}
	return nil
}

// Result counts one run's work.
type Result struct {
	Pages    int
	Listed   int
	Fetched  int
	Failed   int
	Inserted int
}

// Service runs ingestion.
type Service struct {
	source Source
	store  Inserter
	opts   Options
	logger *zap.Logger
}

// New builds a Service.
func New(source Source, store Inserter, opts Options, logger *zap.Logger) (*Service, error) {
	if source == nil {
		return nil, errors.New("source cannot be nil")
	}
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, store: store, opts: opts, logger: logger}, nil
}

// Run ingests up to MaxPages pages. Listing and insert errors abort the run;
// the result covers the pages completed before the error.
func (s *Service) Run(ctx context.Context) (Result, error) {
	var res Result
	token := ""

	for res.Pages < s.opts.MaxPages {
		ids, next, err := s.source.ListPage(ctx, s.opts.Label, s.opts.PageSize, token)
		if err != nil {
			return res, fmt.Errorf("list page %d: %w", res.Pages, err)
		}
		res.Pages++
		res.Listed += len(ids)

		records, failed := s.fetchAll(ctx, ids)
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Fetched += len(records)
		res.Failed += failed

		n, err := s.store.InsertIfAbsent(ctx, slices.Values(records), s.opts.InsertBatch)
		res.Inserted += n
		metrics.RecordsIngested.Add(float64(n))
		if err != nil {
			return res, fmt.Errorf("insert page %d: %w", res.Pages-1, err)
		}

		s.logger.Debug("ingested page",
			zap.Int("page", res.Pages-1),
			zap.Int("listed", len(ids)),
			zap.Int("inserted", n))

		if next == "" {
			break
		}
		token = next
	}

	s.logger.Info("ingestion finished",
		zap.Int("pages", res.Pages),
		zap.Int("listed", res.Listed),
		zap.Int("failed", res.Failed),
		zap.Int("inserted", res.Inserted))
	return res, nil
}

// fetchAll downloads ids concurrently, keeping listing order in the output.
func (s *Service) fetchAll(ctx context.Context, ids []string) ([]types.Record, int) {
	type slot struct {
		rec types.Record
		ok  bool
	}
	slots := make([]slot, len(ids))

	sem := make(chan struct{}, s.opts.Concurrency)
	var wg sync.WaitGroup

	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			rec, err := s.source.Fetch(ctx, id)
			if err != nil {
				metrics.IngestFetchErrors.Inc()
				s.logger.Warn("fetch failed", zap.String("id", id), zap.Error(err))
				return
			}
			slots[i] = slot{rec: rec, ok: true}
		}()
	}
	wg.Wait()

	out := make([]types.Record, 0, len(ids))
	for _, sl := range slots {
		if sl.ok {
			out = append(out, sl.rec)
		}
	}
	return out, len(ids) - len(out)
}
