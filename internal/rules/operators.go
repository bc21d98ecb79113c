// internal/rules/operators.go
package rules

import (
	"strings"

	"github.com/solatis/inboxkeeper/internal/types"
)

/*
 * Predicate comparison logic.
 *
 * Text predicates compare case-insensitively: both sides are lowered with
 * strings.ToLower (the needle once at compile time). Date predicates are
 * strict inequalities on Unix milliseconds:
 *
 *   LessThan*:    received > cutoff   (newer than the window)
 *   GreaterThan*: received < cutoff   (older than the window)
 *
 * A record exactly at the cutoff matches neither.
 */

// matchText applies a text predicate to a present field value.
func matchText(pred types.Predicate, value, needle string) bool {
	hay := strings.ToLower(value)
	switch pred {
	case types.PredicateContains:
		return strings.Contains(hay, needle)
	case types.PredicateDoesNotContain:
		return !strings.Contains(hay, needle)
	case types.PredicateEquals:
		return hay == needle
	case types.PredicateDoesNotEqual:
		return hay != needle
	default:
		return false
	}
}

// matchDate applies a date predicate to a present received timestamp.
func matchDate(pred types.Predicate, receivedMs, cutoffMs int64) bool {
	switch pred {
	case types.PredicateLessThanDays, types.PredicateLessThanMonths:
		return receivedMs > cutoffMs
	case types.PredicateGreaterThanDays, types.PredicateGreaterThanMonths:
		return receivedMs < cutoffMs
	default:
		return false
	}
}
