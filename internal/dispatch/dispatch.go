// Package dispatch defines the action dispatcher boundary and applies a
// rule's action list to one page of matched keys.
package dispatch

import (
	"context"
	"fmt"

	"github.com/solatis/inboxkeeper/internal/metrics"
	"github.com/solatis/inboxkeeper/internal/types"
)

// InboxLabel is the provider's system label for the inbox.
const InboxLabel = "INBOX"

// Dispatcher applies label and read-state changes to messages by key.
// Implementations must reject more than types.MaxActionBatch keys per call
// with types.ErrBatchTooLarge.
type Dispatcher interface {
	MarkReadUnread(ctx context.Context, keys []types.MessageKey, state types.MarkState) error
	MoveToLabel(ctx context.Context, keys []types.MessageKey, label string, removeFromOriginal bool) error
}

// CheckBatch enforces the per-call key ceiling.
func CheckBatch(keys []types.MessageKey) error {
	if len(keys) > types.MaxActionBatch {
		return fmt.Errorf("%w: %d keys (max %d)", types.ErrBatchTooLarge, len(keys), types.MaxActionBatch)
	}
	return nil
}

// Apply runs every action against keys in declared order.
//
// A mark action issues one MarkReadUnread call. A move action whose label is
// empty or whitespace is skipped; otherwise it issues one MoveToLabel call,
// removing the message from the inbox unless the target is the inbox itself.
// The first failing call aborts the remaining actions.
func Apply(ctx context.Context, d Dispatcher, keys []types.MessageKey, actions []types.Action) error {
	if len(keys) == 0 {
		return nil
	}
	if err := CheckBatch(keys); err != nil {
		return err
	}

	for _, a := range actions {
		if a.Mark != types.MarkNone {
			err := d.MarkReadUnread(ctx, keys, a.Mark)
			observe("mark", len(keys), err)
			if err != nil {
				return fmt.Errorf("mark %s: %w", a.Mark, err)
			}
		}

		label := a.MoveLabel()
		if label == "" {
			continue
		}
		err := d.MoveToLabel(ctx, keys, label, label != InboxLabel)
		observe("move", len(keys), err)
		if err != nil {
			return fmt.Errorf("move to %q: %w", label, err)
		}
	}
	return nil
}

func observe(action string, n int, err error) {
	status := metrics.StatusOK
	if err != nil {
		status = metrics.StatusError
	}
	metrics.DispatchCalls.WithLabelValues(action, status).Inc()
	metrics.DispatchKeys.Observe(float64(n))
}
