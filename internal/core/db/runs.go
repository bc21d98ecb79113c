package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/inboxkeeper/internal/types"
)

// Run statuses stored in rule_runs.status.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// ErrRunNotFound indicates no rule run with the requested id.
var ErrRunNotFound = errors.New("rule run not found")

// RuleRun is one persisted rule pass.
type RuleRun struct {
	RunID      types.RunID
	RuleName   string
	Processed  int
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

type ruleRunRow struct {
	RunID      string         `db:"run_id"`
	RuleName   string         `db:"rule_name"`
	Processed  int            `db:"processed"`
	Status     string         `db:"status"`
	Error      sql.NullString `db:"error"`
	StartedAt  int64          `db:"started_at"`
	FinishedAt sql.NullInt64  `db:"finished_at"`
}

// StartRun records the start of a pass for rule and returns its run ID.
func (s *Store) StartRun(ctx context.Context, rule string) (types.RunID, error) {
	id := types.NewRunID()
	if _, err := s.queries.Exec(ctx, nil, "insert-rule-run", string(id), rule, s.now().UnixMilli()); err != nil {
		return "", fmt.Errorf("start run for %s: %w", rule, err)
	}
	return id, nil
}

// FinishRun closes a run with its processed count and outcome.
func (s *Store) FinishRun(ctx context.Context, id types.RunID, processed int, runErr error) error {
	status := RunSucceeded
	var errText any
	if runErr != nil {
		status = RunFailed
		errText = runErr.Error()
	}
	if _, err := s.queries.Exec(ctx, nil, "finish-rule-run", processed, status, errText, s.now().UnixMilli(), string(id)); err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RuleRun, error) {
	var rows []ruleRunRow
	if err := s.queries.Select(ctx, "list-rule-runs", &rows, limit); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	runs := make([]RuleRun, 0, len(rows))
	for _, r := range rows {
		run, err := r.run()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// GetRun returns one run by id.
func (s *Store) GetRun(ctx context.Context, id types.RunID) (RuleRun, error) {
	var row ruleRunRow
	if err := s.queries.Get(ctx, "get-rule-run", &row, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RuleRun{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return RuleRun{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return row.run()
}

func (r ruleRunRow) run() (RuleRun, error) {
	id, err := types.ParseRunID(r.RunID)
	if err != nil {
		return RuleRun{}, err
	}
	run := RuleRun{
		RunID:     id,
		RuleName:  r.RuleName,
		Processed: r.Processed,
		Status:    r.Status,
		Error:     r.Error.String,
		StartedAt: time.UnixMilli(r.StartedAt).UTC(),
	}
	if r.FinishedAt.Valid {
		t := time.UnixMilli(r.FinishedAt.Int64).UTC()
		run.FinishedAt = &t
	}
	return run, nil
}
