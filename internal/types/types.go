// Package types provides domain models shared across InboxKeeper components.
//
// Rule model (Field, Predicate, Combinator, Condition, Rule, Action) and the
// stored mail Record live here so that the rules, store, batch and dispatch
// packages agree on one vocabulary without importing each other.
package types

import (
	"strconv"
	"strings"
	"time"
)

// MessageKey is the provider's opaque, immutable message identifier.
type MessageKey string

// RunID identifies one persisted rule pass (UUIDv7).
type RunID string

// Field selects which attribute of a Record a condition inspects.
type Field int

const (
	FieldUnknown Field = iota
	FieldFrom
	FieldTo
	FieldSubject
	FieldMessage
	FieldReceived
)

var fieldNames = map[Field]string{
	FieldFrom:     "From",
	FieldTo:       "To",
	FieldSubject:  "Subject",
	FieldMessage:  "Message",
	FieldReceived: "Received",
}

// ParseField maps the rule-file spelling to a Field.
// Unrecognised names return FieldUnknown.
func ParseField(s string) Field {
	for f, name := range fieldNames {
		if name == s {
			return f
		}
	}
	return FieldUnknown
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return "Unknown"
}

// IsDate reports whether the field compares as elapsed time.
func (f Field) IsDate() bool { return f == FieldReceived }

// IsText reports whether the field compares as case-insensitive text.
func (f Field) IsText() bool {
	switch f {
	case FieldFrom, FieldTo, FieldSubject, FieldMessage:
		return true
	default:
		return false
	}
}

// Predicate is the comparison a condition applies to its field.
type Predicate int

const (
	PredicateUnknown Predicate = iota
	PredicateContains
	PredicateDoesNotContain
	PredicateEquals
	PredicateDoesNotEqual
	PredicateLessThanDays
	PredicateGreaterThanDays
	PredicateLessThanMonths
	PredicateGreaterThanMonths
)

var predicateNames = map[Predicate]string{
	PredicateContains:          "Contains",
	PredicateDoesNotContain:    "DoesNotContain",
	PredicateEquals:            "Equals",
	PredicateDoesNotEqual:      "DoesNotEqual",
	PredicateLessThanDays:      "LessThanDays",
	PredicateGreaterThanDays:   "GreaterThanDays",
	PredicateLessThanMonths:    "LessThanMonths",
	PredicateGreaterThanMonths: "GreaterThanMonths",
}

// ParsePredicate maps the rule-file spelling to a Predicate.
func ParsePredicate(s string) Predicate {
	for p, name := range predicateNames {
		if name == s {
			return p
		}
	}
	return PredicateUnknown
}

func (p Predicate) String() string {
	if name, ok := predicateNames[p]; ok {
		return name
	}
	return "Unknown"
}

// IsText reports whether the predicate belongs to the string-field set.
func (p Predicate) IsText() bool {
	switch p {
	case PredicateContains, PredicateDoesNotContain, PredicateEquals, PredicateDoesNotEqual:
		return true
	default:
		return false
	}
}

// IsDate reports whether the predicate belongs to the date-field set.
func (p Predicate) IsDate() bool {
	switch p {
	case PredicateLessThanDays, PredicateGreaterThanDays, PredicateLessThanMonths, PredicateGreaterThanMonths:
		return true
	default:
		return false
	}
}

// Combinator joins a rule's conditions.
type Combinator int

const (
	CombinatorUnknown Combinator = iota
	CombinatorAll
	CombinatorAny
)

// ParseCombinator accepts "All" or "Any".
func ParseCombinator(s string) Combinator {
	switch s {
	case "All":
		return CombinatorAll
	case "Any":
		return CombinatorAny
	default:
		return CombinatorUnknown
	}
}

func (c Combinator) String() string {
	switch c {
	case CombinatorAll:
		return "All"
	case CombinatorAny:
		return "Any"
	default:
		return "Unknown"
	}
}

// Condition is one (field, predicate, value) triple.
// Value stays textual; date windows are parsed during compilation.
type Condition struct {
	Field     Field
	Predicate Predicate
	Value     string
}

// MarkState is the read state an action sets.
type MarkState int

const (
	MarkNone MarkState = iota
	MarkRead
	MarkUnread
)

func (m MarkState) String() string {
	switch m {
	case MarkRead:
		return "read"
	case MarkUnread:
		return "unread"
	default:
		return "none"
	}
}

// Action is applied to every record a rule matches.
// Mark and Move are independent; an empty or whitespace Move is a no-op.
type Action struct {
	Mark MarkState
	Move string
}

// MoveLabel returns the trimmed target label, or "" when the move is a no-op.
func (a Action) MoveLabel() string {
	return strings.TrimSpace(a.Move)
}

// Rule is a named, combinator-joined list of conditions plus actions.
type Rule struct {
	Name       string
	Combinator Combinator
	Conditions []Condition
	Actions    []Action
}

// DisplayName returns the rule name or "Rule N" (1-based position).
func (r Rule) DisplayName(index int) string {
	if r.Name != "" {
		return r.Name
	}
	return "Rule " + strconv.Itoa(index+1)
}

// Record is one stored message. Optional attributes are nil when absent.
type Record struct {
	ID         int64
	Key        MessageKey
	ThreadID   string
	From       *string
	To         *string
	Subject    *string
	Body       *string
	ReceivedAt *time.Time
	Labels     []string
	CreatedAt  time.Time
}

// Limits enforced across the engine.
const (
	// MaxActionBatch is the provider's ceiling on keys per action call.
	MaxActionBatch = 1000

	// DefaultPageSize is the batch processor's page size when unset.
	DefaultPageSize = 100

	// DefaultInsertBatch is the insert-if-absent flush size when unset.
	DefaultInsertBatch = 1000

	// DaysPerMonth is the fixed month length used by *Months predicates.
	DaysPerMonth = 30
)

// Filter is a store-native boolean clause with positional "?" placeholders.
// An empty Clause matches every record.
type Filter struct {
	Clause string
	Args   []any
}

// IsEmpty reports whether the filter places no restriction on records.
func (f Filter) IsEmpty() bool { return f.Clause == "" }
