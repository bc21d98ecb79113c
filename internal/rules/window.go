// internal/rules/window.go
package rules

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/solatis/inboxkeeper/internal/types"
)

/*
 * Elapsed-time windows for date predicates.
 *
 * A date condition value is a real number of days (or months of a fixed
 * 30 days). The sign is not normalized: a negative window moves the cutoff
 * into the future. Windows beyond time.Duration range are clamped so the
 * cutoff stays representable.
 *
 * Both evaluation modes compare against the same millisecond cutoff, which
 * is what keeps them in agreement on boundary records.
 */

const day = 24 * time.Hour

// ParseWindow converts a date condition value into a duration.
// Returns ErrValueNotNumeric for empty, non-numeric, NaN or infinite values.
func ParseWindow(pred types.Predicate, value string) (time.Duration, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, fmt.Errorf("%w: %q", types.ErrValueNotNumeric, value)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", types.ErrValueNotNumeric, value)
	}

	days := f
	switch pred {
	case types.PredicateLessThanMonths, types.PredicateGreaterThanMonths:
		days = f * types.DaysPerMonth
	}

	ns := days * float64(day)
	switch {
	case ns >= math.MaxInt64:
		return time.Duration(math.MaxInt64), nil
	case ns <= -math.MaxInt64:
		return time.Duration(-math.MaxInt64), nil
	}
	return time.Duration(ns), nil
}

// Cutoff returns the millisecond instant now-window.
func Cutoff(now time.Time, window time.Duration) int64 {
	return now.Add(-window).UnixMilli()
}
