package gmail

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/solatis/inboxkeeper/internal/dispatch"
	"github.com/solatis/inboxkeeper/internal/types"
)

const unreadLabel = "UNREAD"

// Client dispatches actions and serves ingestion over the Gmail API.
// Every API call waits on a shared rate limiter.
type Client struct {
	api     API
	limiter *rate.Limiter
	logger  *zap.Logger

	mu     sync.Mutex
	labels map[string]string // lowered name -> label id
}

var _ dispatch.Dispatcher = (*Client)(nil)

// NewClient wraps api, pacing calls to rps with the given burst.
func NewClient(api API, rps float64, burst int, logger *zap.Logger) *Client {
	return &Client{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// MarkReadUnread removes (read) or adds (unread) the UNREAD label.
func (c *Client) MarkReadUnread(ctx context.Context, keys []types.MessageKey, state types.MarkState) error {
	if err := dispatch.CheckBatch(keys); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	req := &gmailapi.BatchModifyMessagesRequest{Ids: ids(keys)}
	switch state {
	case types.MarkRead:
		req.RemoveLabelIds = []string{unreadLabel}
	case types.MarkUnread:
		req.AddLabelIds = []string{unreadLabel}
	default:
		return nil
	}
	return c.batchModify(ctx, req)
}

// MoveToLabel adds label (creating it if needed) and, when
// removeFromOriginal is set, removes INBOX.
func (c *Client) MoveToLabel(ctx context.Context, keys []types.MessageKey, label string, removeFromOriginal bool) error {
	if err := dispatch.CheckBatch(keys); err != nil {
		return err
	}
	label = strings.TrimSpace(label)
	if len(keys) == 0 || label == "" {
		return nil
	}

	labelID, err := c.resolveLabel(ctx, label)
	if err != nil {
		return err
	}

	req := &gmailapi.BatchModifyMessagesRequest{
		Ids:         ids(keys),
		AddLabelIds: []string{labelID},
	}
	if removeFromOriginal && labelID != dispatch.InboxLabel {
		req.RemoveLabelIds = []string{dispatch.InboxLabel}
	}
	return c.batchModify(ctx, req)
}

func (c *Client) batchModify(ctx context.Context, req *gmailapi.BatchModifyMessagesRequest) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := c.api.BatchModify(ctx, req); err != nil {
		return fmt.Errorf("batch modify %d messages: %w", len(req.Ids), err)
	}
	c.logger.Debug("batch modify",
		zap.Int("messages", len(req.Ids)),
		zap.Strings("add", req.AddLabelIds),
		zap.Strings("remove", req.RemoveLabelIds))
	return nil
}

// resolveLabel maps a label name (or id) to its id, creating user labels
// that do not exist yet. The listing is cached for the client's lifetime.
func (c *Client) resolveLabel(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.labels == nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		list, err := c.api.ListLabels(ctx)
		if err != nil {
			return "", fmt.Errorf("list labels: %w", err)
		}
		c.labels = make(map[string]string, len(list)*2)
		for _, l := range list {
			c.labels[strings.ToLower(l.Name)] = l.Id
			c.labels[strings.ToLower(l.Id)] = l.Id
		}
	}

	if id, ok := c.labels[strings.ToLower(name)]; ok {
		return id, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	created, err := c.api.CreateLabel(ctx, &gmailapi.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	})
	if err != nil {
		return "", fmt.Errorf("create label %q: %w", name, err)
	}
	c.logger.Info("created label", zap.String("label", name), zap.String("id", created.Id))
	c.labels[strings.ToLower(name)] = created.Id
	return created.Id, nil
}

// ListPage returns one page of message ids carrying labelID.
func (c *Client) ListPage(ctx context.Context, labelID string, pageSize int, pageToken string) ([]string, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}
	resp, err := c.api.ListMessages(ctx, labelID, int64(pageSize), pageToken)
	if err != nil {
		return nil, "", fmt.Errorf("list messages: %w", err)
	}
	out := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		out = append(out, m.Id)
	}
	return out, resp.NextPageToken, nil
}

// Fetch downloads one message in raw form and normalizes it.
func (c *Client) Fetch(ctx context.Context, id string) (types.Record, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return types.Record{}, err
	}
	msg, err := c.api.GetRawMessage(ctx, id)
	if err != nil {
		return types.Record{}, fmt.Errorf("get message %s: %w", id, err)
	}
	return ParseMessage(msg)
}

func ids(keys []types.MessageKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
