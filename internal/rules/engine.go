package rules

import (
	"time"

	"github.com/solatis/inboxkeeper/internal/types"
)

// Engine holds a compiled ruleset and the clock that fixes "now" per pass.
type Engine struct {
	rules []*CompiledRule
	now   func() time.Time
}

// NewEngine compiles ruleset atomically. A nil clock means time.Now.
func NewEngine(ruleset []types.Rule, clock func() time.Time) (*Engine, error) {
	compiled, err := CompileAll(ruleset)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = time.Now
	}
	return &Engine{rules: compiled, now: clock}, nil
}

// NewEngineFromFile loads and compiles the ruleset at path.
func NewEngineFromFile(path string, clock func() time.Time) (*Engine, error) {
	ruleset, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewEngine(ruleset, clock)
}

// Rules returns the compiled rules in declared order.
func (e *Engine) Rules() []*CompiledRule { return e.rules }

// Now returns the engine clock's current instant.
func (e *Engine) Now() time.Time { return e.now() }

// Match returns the rules matching rec at instant now, in declared order.
func (e *Engine) Match(rec *types.Record, now time.Time) []*CompiledRule {
	var matched []*CompiledRule
	for _, r := range e.rules {
		if Matches(r, rec, now) {
			matched = append(matched, r)
		}
	}
	return matched
}
