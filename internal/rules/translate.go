// internal/rules/translate.go
package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/solatis/inboxkeeper/internal/types"
)

/*
 * Store-native translation.
 *
 * Translates a rule into a SQL boolean clause over the messages table with
 * "?" placeholders (the store rebinds them per driver). Fragment shapes:
 *
 *   Contains        (col IS NOT NULL AND LOWER(col) LIKE ? ESCAPE '\')
 *   DoesNotContain  (col IS NOT NULL AND LOWER(col) NOT LIKE ? ESCAPE '\')
 *   Equals          (col IS NOT NULL AND LOWER(col) = ?)
 *   DoesNotEqual    (col IS NOT NULL AND LOWER(col) <> ?)
 *   LessThan*       (received_at IS NOT NULL AND received_at > ?)
 *   GreaterThan*    (received_at IS NOT NULL AND received_at < ?)
 *
 * Date arguments are millisecond cutoffs computed from the same "now" the
 * in-memory path uses. Fragments join with AND (All) or OR (Any).
 *
 * Asymmetry with validation: a date condition whose value is not numeric is
 * dropped from the clause rather than failing, because translation may be
 * handed rules that never went through the loader. A field with no column
 * fails the translation with ErrInvalidField. A rule that yields no
 * fragments translates to the empty Filter, which matches every record.
 */

const likeEscape = `\`

// Translate builds the store-native filter for rule at instant now.
func Translate(rule types.Rule, now time.Time) (types.Filter, error) {
	var fragments []string
	var args []any

	for _, cond := range rule.Conditions {
		col, ok := column(cond.Field)
		if !ok {
			return types.Filter{}, fmt.Errorf("%w: %s", types.ErrInvalidField, cond.Field)
		}

		if cond.Field.IsDate() {
			window, err := ParseWindow(cond.Predicate, cond.Value)
			if err != nil {
				continue
			}
			var op string
			switch cond.Predicate {
			case types.PredicateLessThanDays, types.PredicateLessThanMonths:
				op = ">"
			case types.PredicateGreaterThanDays, types.PredicateGreaterThanMonths:
				op = "<"
			default:
				return types.Filter{}, fmt.Errorf("%w: %s on field %s",
					types.ErrPredicateIllegalForField, cond.Predicate, cond.Field)
			}
			fragments = append(fragments, fmt.Sprintf("(%s IS NOT NULL AND %s %s ?)", col, col, op))
			args = append(args, Cutoff(now, window))
			continue
		}

		needle := strings.ToLower(cond.Value)
		switch cond.Predicate {
		case types.PredicateContains:
			fragments = append(fragments, fmt.Sprintf("(%s IS NOT NULL AND LOWER(%s) LIKE ? ESCAPE '%s')", col, col, likeEscape))
			args = append(args, "%"+escapeLike(needle)+"%")
		case types.PredicateDoesNotContain:
			fragments = append(fragments, fmt.Sprintf("(%s IS NOT NULL AND LOWER(%s) NOT LIKE ? ESCAPE '%s')", col, col, likeEscape))
			args = append(args, "%"+escapeLike(needle)+"%")
		case types.PredicateEquals:
			fragments = append(fragments, fmt.Sprintf("(%s IS NOT NULL AND LOWER(%s) = ?)", col, col))
			args = append(args, needle)
		case types.PredicateDoesNotEqual:
			fragments = append(fragments, fmt.Sprintf("(%s IS NOT NULL AND LOWER(%s) <> ?)", col, col))
			args = append(args, needle)
		default:
			return types.Filter{}, fmt.Errorf("%w: %s on field %s",
				types.ErrPredicateIllegalForField, cond.Predicate, cond.Field)
		}
	}

	if len(fragments) == 0 {
		return types.Filter{}, nil
	}

	joiner := " AND "
	if rule.Combinator == types.CombinatorAny {
		joiner = " OR "
	}
	return types.Filter{
		Clause: "(" + strings.Join(fragments, joiner) + ")",
		Args:   args,
	}, nil
}

// escapeLike escapes LIKE metacharacters so the needle matches literally.
func escapeLike(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\', '%', '_':
			b.WriteString(likeEscape)
		}
		b.WriteRune(r)
	}
	return b.String()
}
