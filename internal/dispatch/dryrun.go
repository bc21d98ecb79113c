package dispatch

import (
	"context"
	"maps"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/solatis/inboxkeeper/internal/types"
)

// DryRun logs intended actions instead of performing them and keeps a
// per-action tally for reporting.
type DryRun struct {
	logger *zap.Logger

	mu     sync.Mutex
	marked map[types.MarkState]int
	moved  map[string]int
}

// NewDryRun returns a dispatcher that only logs.
func NewDryRun(logger *zap.Logger) *DryRun {
	return &DryRun{
		logger: logger,
		marked: make(map[types.MarkState]int),
		moved:  make(map[string]int),
	}
}

func (d *DryRun) MarkReadUnread(_ context.Context, keys []types.MessageKey, state types.MarkState) error {
	if err := CheckBatch(keys); err != nil {
		return err
	}
	d.mu.Lock()
	d.marked[state] += len(keys)
	d.mu.Unlock()
	d.logger.Info("dry run: mark", zap.Stringer("state", state), zap.Int("keys", len(keys)))
	return nil
}

func (d *DryRun) MoveToLabel(_ context.Context, keys []types.MessageKey, label string, removeFromOriginal bool) error {
	if err := CheckBatch(keys); err != nil {
		return err
	}
	d.mu.Lock()
	d.moved[label] += len(keys)
	d.mu.Unlock()
	d.logger.Info("dry run: move",
		zap.String("label", label),
		zap.Bool("remove_from_inbox", removeFromOriginal),
		zap.Int("keys", len(keys)))
	return nil
}

// Marked returns how many keys would have been set to state.
func (d *DryRun) Marked(state types.MarkState) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.marked[state]
}

// Moved returns how many keys would have been moved to label.
func (d *DryRun) Moved(label string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.moved[label]
}

// Labels returns every label a move was recorded for, sorted.
func (d *DryRun) Labels() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Sorted(maps.Keys(d.moved))
}
