package batch

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/solatis/inboxkeeper/internal/rules"
	"github.com/solatis/inboxkeeper/internal/types"
)

// RuleSimulation compares both evaluation modes for one rule.
type RuleSimulation struct {
	Rule        string
	InMemory    int
	StoreNative int
	// Keys matched by exactly one of the two modes.
	Disagreements []types.MessageKey
}

// SimulationReport covers a whole ruleset at one instant.
type SimulationReport struct {
	Now     time.Time
	Scanned int
	Rules   []RuleSimulation
}

// Simulate evaluates every engine rule against every stored record in memory
// and through the store-native filter, without dispatching anything. Both
// modes share one "now" taken from the engine clock. Records are read
// pageSize at a time. Disagreements are sorted by key.
func Simulate(ctx context.Context, store Store, engine *rules.Engine, pageSize int) (SimulationReport, error) {
	if pageSize < 1 || pageSize > types.MaxActionBatch {
		return SimulationReport{}, fmt.Errorf("%w: got %d", types.ErrInvalidPageSize, pageSize)
	}
	now := engine.Now()
	ruleset := engine.Rules()

	report := SimulationReport{Now: now, Rules: make([]RuleSimulation, len(ruleset))}
	inMemory := make([]map[types.MessageKey]bool, len(ruleset))
	for i, r := range ruleset {
		report.Rules[i].Rule = r.Name
		inMemory[i] = make(map[types.MessageKey]bool)
	}

	err := scan(ctx, store, types.Filter{}, pageSize, func(rec *types.Record) {
		report.Scanned++
		for _, r := range engine.Match(rec, now) {
			inMemory[r.Index][rec.Key] = true
		}
	})
	if err != nil {
		return report, err
	}

	for i, r := range ruleset {
		filter, err := rules.Translate(r.Rule, now)
		if err != nil {
			return report, &PassError{Rule: r.Name, Err: err}
		}

		native := make(map[types.MessageKey]bool)
		err = scan(ctx, store, filter, pageSize, func(rec *types.Record) {
			native[rec.Key] = true
		})
		if err != nil {
			return report, &PassError{Rule: r.Name, Err: err}
		}

		sim := &report.Rules[i]
		sim.InMemory = len(inMemory[i])
		sim.StoreNative = len(native)
		for k := range inMemory[i] {
			if !native[k] {
				sim.Disagreements = append(sim.Disagreements, k)
			}
		}
		for k := range native {
			if !inMemory[i][k] {
				sim.Disagreements = append(sim.Disagreements, k)
			}
		}
		slices.Sort(sim.Disagreements)
	}
	return report, nil
}

// scan visits every record matching filter in store order.
func scan(ctx context.Context, store Store, filter types.Filter, pageSize int, visit func(*types.Record)) error {
	for offset := 0; ; {
		page, err := store.Query(ctx, filter, offset, pageSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		for i := range page {
			visit(&page[i])
		}
		offset += len(page)
	}
}
