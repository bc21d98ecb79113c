package rules

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/solatis/inboxkeeper/internal/types"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		name    string
		pred    types.Predicate
		value   string
		want    time.Duration
		wantErr bool
	}{
		{"integer days", types.PredicateLessThanDays, "7", 7 * day, false},
		{"fractional days", types.PredicateGreaterThanDays, "0.5", 12 * time.Hour, false},
		{"month is thirty days", types.PredicateLessThanMonths, "1", 30 * day, false},
		{"negative kept", types.PredicateLessThanDays, "-1", -day, false},
		{"zero", types.PredicateGreaterThanMonths, "0", 0, false},
		{"exponent notation", types.PredicateLessThanDays, "1e1", 10 * day, false},
		{"huge clamps", types.PredicateGreaterThanMonths, "1e300", time.Duration(math.MaxInt64), false},
		{"huge negative clamps", types.PredicateLessThanDays, "-1e300", time.Duration(-math.MaxInt64), false},
		{"word", types.PredicateLessThanDays, "seven", 0, true},
		{"blank", types.PredicateLessThanDays, "  ", 0, true},
		{"nan", types.PredicateLessThanDays, "nan", 0, true},
		{"inf", types.PredicateLessThanDays, "-Inf", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWindow(tt.pred, tt.value)
			if tt.wantErr {
				if !errors.Is(err, types.ErrValueNotNumeric) {
					t.Fatalf("ParseWindow() error = %v, want ErrValueNotNumeric", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWindow() error = %v, want nil", err)
			}
			if got != tt.want {
				t.Errorf("ParseWindow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCutoff(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 999_999_999, time.UTC)
	got := Cutoff(now, day)
	want := time.Date(2024, 6, 29, 12, 0, 0, 999_000_000, time.UTC).UnixMilli()
	if got != want {
		t.Errorf("Cutoff() = %d, want %d", got, want)
	}
}
