// internal/rules/compile.go
package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/solatis/inboxkeeper/internal/types"
)

/*
 * Rule validation and compilation.
 *
 * Validates types.Rule against the closed field/predicate model and produces
 * a CompiledRule with pre-lowered text operands, pre-parsed date windows and
 * a cost-ordered copy of its conditions for in-memory short-circuiting.
 *
 * Validation order (first failure wins):
 *   1. ErrNoConditions
 *   2. ErrBadCombinator
 *   3. each condition in declared order: ErrFieldUnknown,
 *      ErrPredicateIllegalForField, ErrValueNotNumeric
 *
 * Compile wraps every failure in *RuleError so callers can report which rule
 * of a ruleset broke the load.
 *
 * Declared order is kept in CompiledRule.Rule for translation and
 * diagnostics; only the evaluation copy is reordered.
 */

// RuleError attributes a validation failure to a rule by name or position.
type RuleError struct {
	Rule  string // rule name, or "Rule N" when unnamed
	Index int    // zero-based position in the ruleset
	Err   error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("error in %s: %v", e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// CompiledCondition is a validated condition ready for evaluation.
type CompiledCondition struct {
	Field     types.Field
	Predicate types.Predicate
	Value     string        // as declared
	Needle    string        // lowered operand for text predicates
	Window    time.Duration // elapsed-time window for date predicates
	Cost      int
}

// CompiledRule is a validated rule ready for evaluation and translation.
type CompiledRule struct {
	Rule       types.Rule
	Name       string // display name, never empty
	Index      int
	Combinator types.Combinator
	Conditions []CompiledCondition // ordered by ascending cost
	Actions    []types.Action
}

// ValidateCondition checks field, predicate legality and date values.
func ValidateCondition(c types.Condition) error {
	switch {
	case c.Field.IsText():
		if !c.Predicate.IsText() {
			return fmt.Errorf("%w: %s is not a string predicate (field %s)",
				types.ErrPredicateIllegalForField, c.Predicate, c.Field)
		}
		return nil
	case c.Field.IsDate():
		if !c.Predicate.IsDate() {
			return fmt.Errorf("%w: %s is not a date predicate (field %s)",
				types.ErrPredicateIllegalForField, c.Predicate, c.Field)
		}
		if _, err := ParseWindow(c.Predicate, c.Value); err != nil {
			return err
		}
		return nil
	default:
		return types.ErrFieldUnknown
	}
}

// ValidateRule checks a rule's structure and every condition in order.
func ValidateRule(r types.Rule) error {
	if len(r.Conditions) == 0 {
		return types.ErrNoConditions
	}
	if r.Combinator != types.CombinatorAll && r.Combinator != types.CombinatorAny {
		return types.ErrBadCombinator
	}
	for i, c := range r.Conditions {
		if err := ValidateCondition(c); err != nil {
			return fmt.Errorf("condition %d: %w", i+1, err)
		}
	}
	for _, a := range r.Actions {
		if a.Mark < types.MarkNone || a.Mark > types.MarkUnread {
			return types.ErrInvalidAction
		}
	}
	return nil
}

// Compile validates a rule and pre-processes it for evaluation.
// index is the rule's zero-based position, used for "Rule N" naming.
func Compile(rule types.Rule, index int) (*CompiledRule, error) {
	name := rule.DisplayName(index)
	if err := ValidateRule(rule); err != nil {
		return nil, &RuleError{Rule: name, Index: index, Err: err}
	}

	compiled := &CompiledRule{
		Rule:       rule,
		Name:       name,
		Index:      index,
		Combinator: rule.Combinator,
		Conditions: make([]CompiledCondition, 0, len(rule.Conditions)),
		Actions:    rule.Actions,
	}

	for _, c := range rule.Conditions {
		cc := CompiledCondition{
			Field:     c.Field,
			Predicate: c.Predicate,
			Value:     c.Value,
			Cost:      CalculateConditionCost(c.Field, c.Predicate),
		}
		if c.Field.IsDate() {
			// Already validated; error cannot occur.
			cc.Window, _ = ParseWindow(c.Predicate, c.Value)
		} else {
			cc.Needle = strings.ToLower(c.Value)
		}
		compiled.Conditions = append(compiled.Conditions, cc)
	}

	// Stable sort: equal-cost conditions keep declared order.
	sort.SliceStable(compiled.Conditions, func(i, j int) bool {
		return compiled.Conditions[i].Cost < compiled.Conditions[j].Cost
	})

	return compiled, nil
}

// CompileAll compiles a ruleset atomically; the first failure aborts.
func CompileAll(ruleset []types.Rule) ([]*CompiledRule, error) {
	out := make([]*CompiledRule, 0, len(ruleset))
	for i, r := range ruleset {
		cr, err := Compile(r, i)
		if err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, nil
}

// RuleName extracts the offending rule name from a load or compile error.
func RuleName(err error) (string, bool) {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Rule, true
	}
	return "", false
}
