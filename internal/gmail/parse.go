package gmail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/k3a/html2text"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/solatis/inboxkeeper/internal/types"
)

// ParseMessage normalizes a raw-format Gmail message into a Record.
//
// Headers are decoded (RFC 2047, registered charsets). The body is the first
// text/plain part, falling back to the first text/html part converted to
// text; whitespace is collapsed. The received time is the message's
// internal date, or its Date header when the internal date is missing.
// Headers that are absent or empty leave the field nil.
func ParseMessage(msg *gmailapi.Message) (types.Record, error) {
	rec := types.Record{
		Key:      types.MessageKey(msg.Id),
		ThreadID: msg.ThreadId,
		Labels:   msg.LabelIds,
	}
	if msg.InternalDate > 0 {
		t := time.UnixMilli(msg.InternalDate).UTC()
		rec.ReceivedAt = &t
	}
	if msg.Raw == "" {
		return rec, nil
	}

	raw, err := decodeRaw(msg.Raw)
	if err != nil {
		return types.Record{}, fmt.Errorf("message %s: decode raw: %w", msg.Id, err)
	}
	if err := parseRFC822(raw, &rec); err != nil {
		return types.Record{}, fmt.Errorf("message %s: %w", msg.Id, err)
	}
	return rec, nil
}

func decodeRaw(s string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}

func parseRFC822(raw []byte, rec *types.Record) error {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parse message: %w", err)
	}
	defer mr.Close()

	rec.From = headerText(&mr.Header, "From")
	rec.To = headerText(&mr.Header, "To")
	if subject, err := mr.Header.Subject(); err == nil && subject != "" {
		rec.Subject = &subject
	}
	if rec.ReceivedAt == nil {
		if date, err := mr.Header.Date(); err == nil && !date.IsZero() {
			date = date.UTC()
			rec.ReceivedAt = &date
		}
	}

	var plain, html string
	for {
		p, err := mr.NextPart()
		if err != nil {
			// io.EOF, or a malformed part: keep what was read so far.
			break
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		if (ct != "text/plain" || plain != "") && (ct != "text/html" || html != "") {
			continue
		}
		b, err := io.ReadAll(p.Body)
		if err != nil {
			return fmt.Errorf("read %s part: %w", ct, err)
		}
		if ct == "text/plain" {
			plain = string(b)
		} else {
			html = string(b)
		}
	}

	body := plain
	if strings.TrimSpace(body) == "" && html != "" {
		body = html2text.HTML2Text(html)
	}
	if body = collapseWhitespace(body); body != "" {
		rec.Body = &body
	}
	return nil
}

func headerText(h *mail.Header, key string) *string {
	v, err := h.Text(key)
	if err != nil {
		v = h.Get(key)
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
