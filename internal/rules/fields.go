// internal/rules/fields.go
package rules

import (
	"github.com/solatis/inboxkeeper/internal/types"
)

/*
 * Field access on stored records.
 *
 * Maps the closed Field enum to a record attribute (in-memory mode) and to a
 * column of the messages table (store-native mode). Both mappings must stay
 * in step; translate.go and evaluate.go depend on them agreeing.
 */

// textValue returns the record's text for field, or false when absent.
func textValue(rec *types.Record, field types.Field) (string, bool) {
	var p *string
	switch field {
	case types.FieldFrom:
		p = rec.From
	case types.FieldTo:
		p = rec.To
	case types.FieldSubject:
		p = rec.Subject
	case types.FieldMessage:
		p = rec.Body
	default:
		return "", false
	}
	if p == nil {
		return "", false
	}
	return *p, true
}

// receivedMillis returns the received timestamp in Unix milliseconds.
func receivedMillis(rec *types.Record) (int64, bool) {
	if rec.ReceivedAt == nil {
		return 0, false
	}
	return rec.ReceivedAt.UnixMilli(), true
}

// column returns the messages-table column backing field.
func column(field types.Field) (string, bool) {
	switch field {
	case types.FieldFrom:
		return "from_address", true
	case types.FieldTo:
		return "to_address", true
	case types.FieldSubject:
		return "subject", true
	case types.FieldMessage:
		return "body", true
	case types.FieldReceived:
		return "received_at", true
	default:
		return "", false
	}
}
