// internal/rules/load.go
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/solatis/inboxkeeper/internal/types"
)

/*
 * Ruleset loading.
 *
 * The rule source is a JSON array; each element is
 *
 *   {"name": "...", "predicate": "All"|"Any",
 *    "conditions": [{"field": "...", "predicate": "...", "value": ...}],
 *    "actions": {"mark": "read", "move": "Label"} | [{...}, ...]}
 *
 * Loading is atomic: every rule is decoded and validated, and the first
 * failure aborts the whole load with a *RuleError naming the rule. A missing
 * rule predicate defaults to All. Condition values may be JSON strings or
 * numbers; numbers keep their literal spelling.
 */

type ruleDoc struct {
	Name       string          `json:"name"`
	Predicate  *string         `json:"predicate"`
	Conditions []conditionDoc  `json:"conditions"`
	Actions    json.RawMessage `json:"actions"`
}

type conditionDoc struct {
	Field     string          `json:"field"`
	Predicate string          `json:"predicate"`
	Value     json.RawMessage `json:"value"`
}

type actionDoc struct {
	Mark *string `json:"mark"`
	Move *string `json:"move"`
}

// LoadFile reads and validates a ruleset from path.
func LoadFile(path string) ([]types.Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a ruleset.
func Load(r io.Reader) ([]types.Rule, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("%w: top level must be an array of rules: %v", types.ErrMalformedRuleset, err)
	}
	if elems == nil {
		return nil, fmt.Errorf("%w: top level must be an array of rules", types.ErrMalformedRuleset)
	}

	ruleset := make([]types.Rule, 0, len(elems))
	for i, raw := range elems {
		rule, err := decodeRule(raw)
		if err != nil {
			return nil, &RuleError{Rule: ruleDisplayName(raw, i), Index: i, Err: err}
		}
		if err := ValidateRule(rule); err != nil {
			return nil, &RuleError{Rule: rule.DisplayName(i), Index: i, Err: err}
		}
		ruleset = append(ruleset, rule)
	}
	return ruleset, nil
}

func decodeRule(raw json.RawMessage) (types.Rule, error) {
	var doc ruleDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return types.Rule{}, fmt.Errorf("%w: %v", types.ErrMalformedRuleset, err)
	}

	rule := types.Rule{
		Name:       doc.Name,
		Combinator: types.CombinatorAll,
		Conditions: make([]types.Condition, 0, len(doc.Conditions)),
	}
	if doc.Predicate != nil {
		rule.Combinator = types.ParseCombinator(*doc.Predicate)
	}

	for _, c := range doc.Conditions {
		rule.Conditions = append(rule.Conditions, types.Condition{
			Field:     types.ParseField(c.Field),
			Predicate: types.ParsePredicate(c.Predicate),
			Value:     rawValue(c.Value),
		})
	}

	if len(rule.Conditions) == 0 {
		return rule, types.ErrNoConditions
	}
	if rule.Combinator == types.CombinatorUnknown {
		return rule, fmt.Errorf("%w: got %q", types.ErrBadCombinator, *doc.Predicate)
	}
	for i, c := range rule.Conditions {
		if err := ValidateCondition(c); err != nil {
			if c.Field == types.FieldUnknown {
				err = fmt.Errorf("%w %q", err, doc.Conditions[i].Field)
			}
			return rule, fmt.Errorf("condition %d: %w", i+1, err)
		}
	}

	actions, err := decodeActions(doc.Actions)
	if err != nil {
		return rule, err
	}
	rule.Actions = actions
	return rule, nil
}

func decodeActions(raw json.RawMessage) ([]types.Action, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var docs []actionDoc
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrInvalidAction, err)
		}
	} else {
		var one actionDoc
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrInvalidAction, err)
		}
		docs = []actionDoc{one}
	}

	actions := make([]types.Action, 0, len(docs))
	for _, d := range docs {
		var a types.Action
		if d.Mark != nil {
			switch strings.ToLower(strings.TrimSpace(*d.Mark)) {
			case "read":
				a.Mark = types.MarkRead
			case "unread":
				a.Mark = types.MarkUnread
			case "":
			default:
				return nil, fmt.Errorf("%w: mark %q", types.ErrInvalidAction, *d.Mark)
			}
		}
		if d.Move != nil {
			a.Move = *d.Move
		}
		actions = append(actions, a)
	}
	return actions, nil
}

// rawValue renders a condition value as text; strings are unquoted,
// numbers and other literals keep their JSON spelling.
func rawValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}

// ruleDisplayName recovers a name from an element that failed to decode.
func ruleDisplayName(raw json.RawMessage, index int) string {
	var named struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(raw, &named)
	return types.Rule{Name: named.Name}.DisplayName(index)
}
