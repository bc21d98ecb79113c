package types

import "errors"

// Sentinel errors for InboxKeeper operations.
var (
	// ErrFieldUnknown indicates a condition names a field outside the closed set.
	ErrFieldUnknown = errors.New("unknown field")

	// ErrPredicateIllegalForField indicates a predicate from the wrong field kind,
	// e.g. a date predicate on a string field.
	ErrPredicateIllegalForField = errors.New("invalid predicate for field")

	// ErrValueNotNumeric indicates a date condition whose value is not a finite number.
	ErrValueNotNumeric = errors.New("invalid value for date field")

	// ErrNoConditions indicates a rule with an empty condition list.
	ErrNoConditions = errors.New("rule must have at least one condition")

	// ErrBadCombinator indicates a rule predicate other than All or Any.
	ErrBadCombinator = errors.New("rule predicate must be All or Any")

	// ErrInvalidAction indicates an action with an unrecognised mark value.
	ErrInvalidAction = errors.New("invalid action")

	// ErrMalformedRuleset indicates the rule source is not a JSON array of rules.
	ErrMalformedRuleset = errors.New("malformed ruleset")

	// ErrInvalidField is raised by the store-native translator for a field
	// it has no column for.
	ErrInvalidField = errors.New("invalid field")

	// ErrBatchTooLarge indicates a dispatcher call with more than MaxActionBatch keys.
	ErrBatchTooLarge = errors.New("action batch exceeds maximum size")

	// ErrInvalidPageSize indicates a page size outside [1, MaxActionBatch].
	ErrInvalidPageSize = errors.New("page size must be between 1 and 1000")
)
