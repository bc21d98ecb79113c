package rules

import (
	"errors"
	"testing"

	"github.com/solatis/inboxkeeper/internal/types"
)

func TestTranslate_Fragments(t *testing.T) {
	tests := []struct {
		name       string
		cond       types.Condition
		wantClause string
		wantArg    any
	}{
		{
			name:       "contains",
			cond:       cond("From", "Contains", "Alerts"),
			wantClause: `((from_address IS NOT NULL AND LOWER(from_address) LIKE ? ESCAPE '\'))`,
			wantArg:    "%alerts%",
		},
		{
			name:       "does not contain",
			cond:       cond("To", "DoesNotContain", "me"),
			wantClause: `((to_address IS NOT NULL AND LOWER(to_address) NOT LIKE ? ESCAPE '\'))`,
			wantArg:    "%me%",
		},
		{
			name:       "equals",
			cond:       cond("Subject", "Equals", "Hi"),
			wantClause: `((subject IS NOT NULL AND LOWER(subject) = ?))`,
			wantArg:    "hi",
		},
		{
			name:       "does not equal",
			cond:       cond("Message", "DoesNotEqual", "x"),
			wantClause: `((body IS NOT NULL AND LOWER(body) <> ?))`,
			wantArg:    "x",
		},
		{
			name:       "less than days",
			cond:       cond("Received", "LessThanDays", "2"),
			wantClause: `((received_at IS NOT NULL AND received_at > ?))`,
			wantArg:    testNow.Add(-2 * day).UnixMilli(),
		},
		{
			name:       "greater than months",
			cond:       cond("Received", "GreaterThanMonths", "1"),
			wantClause: `((received_at IS NOT NULL AND received_at < ?))`,
			wantArg:    testNow.Add(-30 * day).UnixMilli(),
		},
		{
			name:       "like metacharacters escaped",
			cond:       cond("Subject", "Contains", `50%_off\`),
			wantClause: `((subject IS NOT NULL AND LOWER(subject) LIKE ? ESCAPE '\'))`,
			wantArg:    `%50\%\_off\\%`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Translate(types.Rule{Combinator: types.CombinatorAll, Conditions: []types.Condition{tt.cond}}, testNow)
			if err != nil {
				t.Fatalf("Translate() error = %v, want nil", err)
			}
			if f.Clause != tt.wantClause {
				t.Errorf("Clause = %s, want %s", f.Clause, tt.wantClause)
			}
			if len(f.Args) != 1 || f.Args[0] != tt.wantArg {
				t.Errorf("Args = %v, want [%v]", f.Args, tt.wantArg)
			}
		})
	}
}

func TestTranslate_Combinators(t *testing.T) {
	conds := []types.Condition{
		cond("From", "Equals", "a"),
		cond("Subject", "Equals", "b"),
	}

	all, err := Translate(types.Rule{Combinator: types.CombinatorAll, Conditions: conds}, testNow)
	if err != nil {
		t.Fatalf("Translate(All) error = %v, want nil", err)
	}
	wantAll := `((from_address IS NOT NULL AND LOWER(from_address) = ?) AND (subject IS NOT NULL AND LOWER(subject) = ?))`
	if all.Clause != wantAll {
		t.Errorf("All clause = %s, want %s", all.Clause, wantAll)
	}

	anyF, err := Translate(types.Rule{Combinator: types.CombinatorAny, Conditions: conds}, testNow)
	if err != nil {
		t.Fatalf("Translate(Any) error = %v, want nil", err)
	}
	wantAny := `((from_address IS NOT NULL AND LOWER(from_address) = ?) OR (subject IS NOT NULL AND LOWER(subject) = ?))`
	if anyF.Clause != wantAny {
		t.Errorf("Any clause = %s, want %s", anyF.Clause, wantAny)
	}
	if len(anyF.Args) != 2 || anyF.Args[0] != "a" || anyF.Args[1] != "b" {
		t.Errorf("Args = %v, want [a b]", anyF.Args)
	}
}

func TestTranslate_SkipsNonNumericDate(t *testing.T) {
	f, err := Translate(types.Rule{
		Combinator: types.CombinatorAll,
		Conditions: []types.Condition{
			cond("Received", "LessThanDays", "soon"),
			cond("From", "Contains", "a"),
		},
	}, testNow)
	if err != nil {
		t.Fatalf("Translate() error = %v, want nil", err)
	}
	if len(f.Args) != 1 || f.Args[0] != "%a%" {
		t.Errorf("Args = %v, want only the From fragment", f.Args)
	}

	empty, err := Translate(types.Rule{
		Combinator: types.CombinatorAll,
		Conditions: []types.Condition{cond("Received", "LessThanDays", "soon")},
	}, testNow)
	if err != nil {
		t.Fatalf("Translate() error = %v, want nil", err)
	}
	if !empty.IsEmpty() || len(empty.Args) != 0 {
		t.Errorf("Translate() = %+v, want empty filter", empty)
	}
}

func TestTranslate_InvalidField(t *testing.T) {
	_, err := Translate(types.Rule{
		Combinator: types.CombinatorAll,
		Conditions: []types.Condition{cond("Bcc", "Contains", "a")},
	}, testNow)
	if !errors.Is(err, types.ErrInvalidField) {
		t.Errorf("Translate() error = %v, want ErrInvalidField", err)
	}
}

func TestTranslate_NoConditions(t *testing.T) {
	f, err := Translate(types.Rule{Combinator: types.CombinatorAny}, testNow)
	if err != nil {
		t.Fatalf("Translate() error = %v, want nil", err)
	}
	if !f.IsEmpty() {
		t.Errorf("Translate() = %+v, want empty filter", f)
	}
}
