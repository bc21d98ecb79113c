// Package batch applies rule actions to every stored record a rule matches.
//
// Each rule pass is a bounded loop over the record store:
//
//	FETCH   page := Query(filter, offset, pageSize)
//	        empty page -> done
//	APPLY   one dispatcher application with every key on the page
//	ADVANCE offset += len(page)
//
// Page size never exceeds the dispatcher's 1000-key ceiling, so a page maps
// to exactly one call per action. Rules run sequentially; each pass owns its
// offset and its "now" snapshot.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/solatis/inboxkeeper/internal/dispatch"
	"github.com/solatis/inboxkeeper/internal/metrics"
	"github.com/solatis/inboxkeeper/internal/rules"
	"github.com/solatis/inboxkeeper/internal/types"
)

// Store is the paginated query side of the record store.
type Store interface {
	Query(ctx context.Context, filter types.Filter, offset, limit int) ([]types.Record, error)
}

// RunRecorder persists pass bookkeeping. Optional.
type RunRecorder interface {
	StartRun(ctx context.Context, rule string) (types.RunID, error)
	FinishRun(ctx context.Context, id types.RunID, processed int, runErr error) error
}

// PassError aborts one rule's pass, naming the rule and the offset of the
// page that failed.
type PassError struct {
	Rule   string
	Offset int
	Err    error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("rule %q at offset %d: %v", e.Rule, e.Offset, e.Err)
}

func (e *PassError) Unwrap() error { return e.Err }

// Processor runs rule passes against a store and a dispatcher.
type Processor struct {
	store      Store
	dispatcher dispatch.Dispatcher
	runs       RunRecorder
	logger     *zap.Logger
	clock      func() time.Time
	pageSize   int
}

// Option configures a Processor.
type Option func(*Processor)

// WithPageSize sets the page size; must be within [1, types.MaxActionBatch].
func WithPageSize(n int) Option { return func(p *Processor) { p.pageSize = n } }

// WithClock sets the source of each pass's "now".
func WithClock(clock func() time.Time) Option { return func(p *Processor) { p.clock = clock } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(p *Processor) { p.logger = l } }

// WithRunRecorder persists a run row per pass.
func WithRunRecorder(r RunRecorder) Option { return func(p *Processor) { p.runs = r } }

// New builds a Processor. Store and dispatcher are required.
func New(store Store, dispatcher dispatch.Dispatcher, opts ...Option) (*Processor, error) {
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher cannot be nil")
	}

	p := &Processor{
		store:      store,
		dispatcher: dispatcher,
		logger:     zap.NewNop(),
		clock:      time.Now,
		pageSize:   types.DefaultPageSize,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.pageSize < 1 || p.pageSize > types.MaxActionBatch {
		return nil, fmt.Errorf("%w: got %d", types.ErrInvalidPageSize, p.pageSize)
	}
	return p, nil
}

// ProcessRule runs one pass for rule and returns how many records it acted on.
// On failure the count covers the pages completed before the error.
func (p *Processor) ProcessRule(ctx context.Context, rule *rules.CompiledRule) (processed int, err error) {
	start := time.Now()
	log := p.logger.With(zap.String("rule", rule.Name))

	var runID types.RunID
	if p.runs != nil {
		runID, err = p.runs.StartRun(ctx, rule.Name)
		if err != nil {
			return 0, &PassError{Rule: rule.Name, Err: err}
		}
		log = log.With(zap.String("run_id", string(runID)))
	}

	defer func() {
		metrics.RulePassDuration.WithLabelValues(rule.Name).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.RulePassFailures.WithLabelValues(rule.Name).Inc()
			log.Error("rule pass failed", zap.Int("processed", processed), zap.Error(err))
		} else {
			log.Info("rule pass finished", zap.Int("processed", processed))
		}
		if p.runs != nil {
			// Recorded even when ctx was cancelled.
			if ferr := p.runs.FinishRun(context.WithoutCancel(ctx), runID, processed, err); ferr != nil {
				log.Warn("failed to record run", zap.Error(ferr))
			}
		}
	}()

	now := p.clock()
	filter, err := rules.Translate(rule.Rule, now)
	if err != nil {
		return 0, &PassError{Rule: rule.Name, Offset: 0, Err: err}
	}

	offset := 0
	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			return processed, &PassError{Rule: rule.Name, Offset: offset, Err: err}
		}

		records, err := p.store.Query(ctx, filter, offset, p.pageSize)
		if err != nil {
			return processed, &PassError{Rule: rule.Name, Offset: offset, Err: err}
		}
		if len(records) == 0 {
			return processed, nil
		}
		if len(records) > types.MaxActionBatch {
			return processed, &PassError{Rule: rule.Name, Offset: offset,
				Err: fmt.Errorf("%w: store returned %d records", types.ErrBatchTooLarge, len(records))}
		}

		keys := make([]types.MessageKey, len(records))
		for i, r := range records {
			keys[i] = r.Key
		}

		if err := dispatch.Apply(ctx, p.dispatcher, keys, rule.Actions); err != nil {
			return processed, &PassError{Rule: rule.Name, Offset: offset, Err: err}
		}

		processed += len(records)
		metrics.RecordsProcessed.WithLabelValues(rule.Name).Add(float64(len(records)))
		log.Debug("page applied", zap.Int("page", page), zap.Int("offset", offset), zap.Int("records", len(records)))

		offset += len(records)
	}
}

// RuleSummary is the outcome of one rule's pass.
type RuleSummary struct {
	Rule      string
	Processed int
	Err       error
}

// Summary is the outcome of a ruleset run.
type Summary struct {
	Rules []RuleSummary
	Total int
}

// ProcessRuleset runs every rule in order, stopping at the first failure.
// The returned summary covers every rule attempted, including the failing one.
func (p *Processor) ProcessRuleset(ctx context.Context, ruleset []*rules.CompiledRule) (Summary, error) {
	var summary Summary
	for _, rule := range ruleset {
		n, err := p.ProcessRule(ctx, rule)
		summary.Rules = append(summary.Rules, RuleSummary{Rule: rule.Name, Processed: n, Err: err})
		summary.Total += n
		if err != nil {
			return summary, err
		}
	}
	return summary, nil
}
