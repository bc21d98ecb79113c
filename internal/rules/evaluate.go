// internal/rules/evaluate.go
package rules

import (
	"time"

	"github.com/solatis/inboxkeeper/internal/types"
)

/*
 * In-memory rule evaluation.
 *
 * Evaluates a CompiledRule against one Record using a caller-supplied "now"
 * so every record in a pass sees the same cutoff.
 *
 * Combinators:
 *   - All: conjunction, short-circuits on first non-match
 *   - Any: disjunction, short-circuits on first match
 *
 * Absent fields make a condition false, including negated predicates
 * (DoesNotContain, DoesNotEqual). This matches the store-native filter,
 * where NULL columns fail every comparison.
 */

// MatchResult contains the outcome of rule evaluation.
type MatchResult struct {
	Matched  bool
	RuleName string
}

// Evaluate checks whether the rule matches the record at instant now.
func Evaluate(rule *CompiledRule, rec *types.Record, now time.Time) MatchResult {
	result := MatchResult{RuleName: rule.Name}

	switch rule.Combinator {
	case types.CombinatorAll:
		for _, cond := range rule.Conditions {
			if !evaluateCondition(cond, rec, now) {
				return result
			}
		}
		result.Matched = len(rule.Conditions) > 0
	case types.CombinatorAny:
		for _, cond := range rule.Conditions {
			if evaluateCondition(cond, rec, now) {
				result.Matched = true
				return result
			}
		}
	}
	return result
}

// Matches is Evaluate reduced to its boolean outcome.
func Matches(rule *CompiledRule, rec *types.Record, now time.Time) bool {
	return Evaluate(rule, rec, now).Matched
}

func evaluateCondition(cond CompiledCondition, rec *types.Record, now time.Time) bool {
	if cond.Field.IsDate() {
		ms, ok := receivedMillis(rec)
		if !ok {
			return false
		}
		return matchDate(cond.Predicate, ms, Cutoff(now, cond.Window))
	}

	value, ok := textValue(rec, cond.Field)
	if !ok {
		return false
	}
	return matchText(cond.Predicate, value, cond.Needle)
}
