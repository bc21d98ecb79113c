// internal/rules/cost.go
package rules

import "github.com/solatis/inboxkeeper/internal/types"

/*
 * Cost model for in-memory condition ordering.
 *
 * cost = operator_cost * field_multiplier
 *
 * Date comparisons are integer compares and always run first. Substring
 * search costs more than equality, and the message body is far longer than
 * any header, so body conditions run last. Ordering only affects in-memory
 * short-circuiting; results are identical in any order.
 */

const (
	// Operator base costs
	CostDate     = 1
	CostEquals   = 5
	CostContains = 10

	// Field multipliers
	MultiplierDate   = 1
	MultiplierHeader = 4
	MultiplierBody   = 48
)

// CalculateConditionCost computes cost for a single condition.
func CalculateConditionCost(field types.Field, pred types.Predicate) int {
	return operatorCost(pred) * fieldMultiplier(field)
}

func operatorCost(pred types.Predicate) int {
	switch pred {
	case types.PredicateEquals, types.PredicateDoesNotEqual:
		return CostEquals
	case types.PredicateContains, types.PredicateDoesNotContain:
		return CostContains
	default:
		return CostDate
	}
}

func fieldMultiplier(field types.Field) int {
	switch field {
	case types.FieldReceived:
		return MultiplierDate
	case types.FieldMessage:
		return MultiplierBody
	default:
		return MultiplierHeader
	}
}
