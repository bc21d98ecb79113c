// internal/rules/evaluate_test.go
package rules

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/inboxkeeper/internal/types"
)

var testNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func strp(s string) *string { return &s }

func ago(d time.Duration) *time.Time {
	t := testNow.Add(-d)
	return &t
}

func mustCompile(t *testing.T, rule types.Rule) *CompiledRule {
	t.Helper()
	compiled, err := Compile(rule, 0)
	if err != nil {
		t.Fatalf("Compile() error = %v, want nil", err)
	}
	return compiled
}

func TestEvaluate_TextPredicates(t *testing.T) {
	rec := &types.Record{
		From:    strp("Alerts <ALERTS@Example.com>"),
		Subject: strp("Your Invoice"),
	}

	tests := []struct {
		name string
		cond types.Condition
		want bool
	}{
		{"contains is case-insensitive", cond("From", "Contains", "alerts@example"), true},
		{"contains miss", cond("From", "Contains", "billing"), false},
		{"does not contain", cond("From", "DoesNotContain", "billing"), true},
		{"does not contain hit", cond("From", "DoesNotContain", "EXAMPLE"), false},
		{"equals is case-insensitive", cond("Subject", "Equals", "your invoice"), true},
		{"equals is not substring", cond("Subject", "Equals", "invoice"), false},
		{"does not equal", cond("Subject", "DoesNotEqual", "receipt"), true},
		{"empty needle contains", cond("Subject", "Contains", ""), true},
		{"absent field contains", cond("To", "Contains", ""), false},
		{"absent field does not contain", cond("To", "DoesNotContain", "x"), false},
		{"absent field does not equal", cond("Message", "DoesNotEqual", "x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := mustCompile(t, types.Rule{Combinator: types.CombinatorAll, Conditions: []types.Condition{tt.cond}})
			if got := Matches(rule, rec, testNow); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_DatePredicates(t *testing.T) {
	tests := []struct {
		name     string
		received *time.Time
		cond     types.Condition
		want     bool
	}{
		{"newer than window", ago(1 * day), cond("Received", "LessThanDays", "2"), true},
		{"older than window", ago(5 * day), cond("Received", "LessThanDays", "2"), false},
		{"greater than days", ago(5 * day), cond("Received", "GreaterThanDays", "2"), true},
		{"exactly at cutoff matches neither less", ago(2 * day), cond("Received", "LessThanDays", "2"), false},
		{"exactly at cutoff matches neither greater", ago(2 * day), cond("Received", "GreaterThanDays", "2"), false},
		{"one month is thirty days", ago(29 * day), cond("Received", "LessThanMonths", "1"), true},
		{"thirty one days is older than a month", ago(31 * day), cond("Received", "GreaterThanMonths", "1"), true},
		{"negative window puts cutoff in future", ago(0), cond("Received", "GreaterThanDays", "-1"), true},
		{"absent received", nil, cond("Received", "LessThanDays", "100"), false},
		{"absent received greater", nil, cond("Received", "GreaterThanDays", "0"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := mustCompile(t, types.Rule{Combinator: types.CombinatorAll, Conditions: []types.Condition{tt.cond}})
			rec := &types.Record{ReceivedAt: tt.received}
			if got := Matches(rule, rec, testNow); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Any(From contains x@y, Received < 2 days) over three records matches r1, r2.
func TestEvaluate_AnyScenario(t *testing.T) {
	rule := mustCompile(t, types.Rule{
		Combinator: types.CombinatorAny,
		Conditions: []types.Condition{
			cond("From", "Contains", "x@y"),
			cond("Received", "LessThanDays", "2"),
		},
		Actions: []types.Action{{Mark: types.MarkRead}},
	})

	records := []*types.Record{
		{Key: "r1", From: strp("x@y"), ReceivedAt: ago(10 * day)},
		{Key: "r2", From: strp("z"), ReceivedAt: ago(1 * day)},
		{Key: "r3", From: strp("z"), ReceivedAt: ago(5 * day)},
	}

	var matched []types.MessageKey
	for _, rec := range records {
		if Matches(rule, rec, testNow) {
			matched = append(matched, rec.Key)
		}
	}
	if len(matched) != 2 || matched[0] != "r1" || matched[1] != "r2" {
		t.Errorf("matched = %v, want [r1 r2]", matched)
	}
}

func TestEvaluate_RuleName(t *testing.T) {
	rule := mustCompile(t, types.Rule{
		Combinator: types.CombinatorAny,
		Conditions: []types.Condition{
			cond("Subject", "Contains", "nope"),
			cond("From", "Equals", "a@b"),
		},
	})
	res := Evaluate(rule, &types.Record{From: strp("A@B"), Subject: strp("hello")}, testNow)
	if !res.Matched {
		t.Fatal("Matched = false, want true")
	}
	if res.RuleName != "Rule 1" {
		t.Errorf("RuleName = %q, want Rule 1", res.RuleName)
	}
}

// Property-based test: All is the conjunction and Any the disjunction of
// the individual condition outcomes.
func TestEvaluate_PropertyCombinators(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	needles := []string{"a", "b", "ab", "x@y", ""}
	subjects := []string{"a", "B", "ab", "xyz", "x@y.com", ""}

	properties.Property("All/Any equal AND/OR of single-condition results", prop.ForAll(
		func(picks []int, subject int, days int) bool {
			if len(picks) == 0 {
				return true
			}
			rec := &types.Record{
				Subject:    strp(subjects[subject]),
				ReceivedAt: ago(time.Duration(days) * day),
			}

			var conds []types.Condition
			for _, p := range picks {
				switch p % 3 {
				case 0:
					conds = append(conds, cond("Subject", "Contains", needles[p%len(needles)]))
				case 1:
					conds = append(conds, cond("Subject", "DoesNotEqual", needles[p%len(needles)]))
				default:
					conds = append(conds, cond("Received", "LessThanDays", "3"))
				}
			}

			wantAll, wantAny := true, false
			for _, c := range conds {
				single := mustCompile(t, types.Rule{Combinator: types.CombinatorAll, Conditions: []types.Condition{c}})
				m := Matches(single, rec, testNow)
				wantAll = wantAll && m
				wantAny = wantAny || m
			}

			all := mustCompile(t, types.Rule{Combinator: types.CombinatorAll, Conditions: conds})
			anyRule := mustCompile(t, types.Rule{Combinator: types.CombinatorAny, Conditions: conds})
			return Matches(all, rec, testNow) == wantAll && Matches(anyRule, rec, testNow) == wantAny
		},
		gen.SliceOfN(4, gen.IntRange(0, 29)),
		gen.IntRange(0, len(subjects)-1),
		gen.IntRange(0, 6),
	))

	properties.TestingRun(t)
}

func TestEngine_Match(t *testing.T) {
	engine, err := NewEngine([]types.Rule{
		{Name: "from-x", Combinator: types.CombinatorAll, Conditions: []types.Condition{cond("From", "Contains", "x")}},
		{Name: "recent", Combinator: types.CombinatorAll, Conditions: []types.Condition{cond("Received", "LessThanDays", "1")}},
	}, func() time.Time { return testNow })
	if err != nil {
		t.Fatalf("NewEngine() error = %v, want nil", err)
	}
	if !engine.Now().Equal(testNow) {
		t.Errorf("Now() = %v, want %v", engine.Now(), testNow)
	}

	matched := engine.Match(&types.Record{From: strp("x@y"), ReceivedAt: ago(2 * day)}, engine.Now())
	if len(matched) != 1 || matched[0].Name != "from-x" {
		t.Errorf("Match() = %v, want [from-x]", matched)
	}
}
