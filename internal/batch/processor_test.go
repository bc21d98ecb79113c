package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/inboxkeeper/internal/rules"
	"github.com/solatis/inboxkeeper/internal/types"
)

// memStore serves every record regardless of filter, recording each query.
type memStore struct {
	records []types.Record
	offsets []int
	failAt  int // offset whose query fails; -1 disables
	err     error
}

func newMemStore(n int) *memStore {
	s := &memStore{failAt: -1}
	for i := 0; i < n; i++ {
		s.records = append(s.records, types.Record{Key: types.MessageKey(fmt.Sprintf("k%05d", i))})
	}
	return s
}

func (s *memStore) Query(_ context.Context, _ types.Filter, offset, limit int) ([]types.Record, error) {
	s.offsets = append(s.offsets, offset)
	if offset == s.failAt {
		return nil, s.err
	}
	if offset >= len(s.records) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.records) {
		end = len(s.records)
	}
	return s.records[offset:end], nil
}

type markCall struct {
	keys  []types.MessageKey
	state types.MarkState
}

type fakeDispatcher struct {
	marks  []markCall
	moves  int
	failOn int // 1-based mark call that fails; 0 disables
	err    error
}

func (d *fakeDispatcher) MarkReadUnread(_ context.Context, keys []types.MessageKey, state types.MarkState) error {
	if len(keys) > types.MaxActionBatch {
		return types.ErrBatchTooLarge
	}
	d.marks = append(d.marks, markCall{keys: append([]types.MessageKey(nil), keys...), state: state})
	if d.failOn == len(d.marks) {
		return d.err
	}
	return nil
}

func (d *fakeDispatcher) MoveToLabel(_ context.Context, keys []types.MessageKey, _ string, _ bool) error {
	if len(keys) > types.MaxActionBatch {
		return types.ErrBatchTooLarge
	}
	d.moves++
	return nil
}

func markReadRule(t *testing.T, name string) *rules.CompiledRule {
	t.Helper()
	cr, err := rules.Compile(types.Rule{
		Name:       name,
		Combinator: types.CombinatorAll,
		Conditions: []types.Condition{{Field: types.FieldSubject, Predicate: types.PredicateContains, Value: ""}},
		Actions:    []types.Action{{Mark: types.MarkRead}},
	}, 0)
	require.NoError(t, err)
	return cr
}

func TestNew_PageSizeBounds(t *testing.T) {
	store, d := newMemStore(0), &fakeDispatcher{}

	for _, n := range []int{0, -1, types.MaxActionBatch + 1} {
		_, err := New(store, d, WithPageSize(n))
		assert.ErrorIs(t, err, types.ErrInvalidPageSize, "page size %d", n)
	}
	for _, n := range []int{1, types.MaxActionBatch} {
		_, err := New(store, d, WithPageSize(n))
		assert.NoError(t, err, "page size %d", n)
	}

	_, err := New(nil, d)
	assert.Error(t, err)
	_, err = New(store, nil)
	assert.Error(t, err)
}

func TestProcessRule_Pagination(t *testing.T) {
	store, d := newMemStore(25), &fakeDispatcher{}
	p, err := New(store, d, WithPageSize(10))
	require.NoError(t, err)

	n, err := p.ProcessRule(context.Background(), markReadRule(t, "all"))
	require.NoError(t, err)
	assert.Equal(t, 25, n)
	assert.Equal(t, []int{0, 10, 20, 25}, store.offsets)
	require.Len(t, d.marks, 3)
	assert.Len(t, d.marks[0].keys, 10)
	assert.Len(t, d.marks[2].keys, 5)
}

func TestProcessRule_EmptyStore(t *testing.T) {
	store, d := newMemStore(0), &fakeDispatcher{}
	p, err := New(store, d)
	require.NoError(t, err)

	n, err := p.ProcessRule(context.Background(), markReadRule(t, "none"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, d.marks)
	assert.Equal(t, []int{0}, store.offsets)
}

func TestProcessRule_DispatcherFailure(t *testing.T) {
	boom := errors.New("provider unavailable")
	store, d := newMemStore(30), &fakeDispatcher{failOn: 2, err: boom}
	p, err := New(store, d, WithPageSize(10))
	require.NoError(t, err)

	n, err := p.ProcessRule(context.Background(), markReadRule(t, "flaky"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var pe *PassError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "flaky", pe.Rule)
	assert.Equal(t, 10, pe.Offset)
	assert.Equal(t, 10, n)
}

func TestProcessRule_StoreFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	store, d := newMemStore(30), &fakeDispatcher{}
	store.failAt, store.err = 20, boom
	p, err := New(store, d, WithPageSize(10))
	require.NoError(t, err)

	n, err := p.ProcessRule(context.Background(), markReadRule(t, "r"))
	assert.ErrorIs(t, err, boom)
	var pe *PassError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 20, pe.Offset)
	assert.Equal(t, 20, n)
}

func TestProcessRule_Cancelled(t *testing.T) {
	store, d := newMemStore(5), &fakeDispatcher{}
	p, err := New(store, d)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.ProcessRule(ctx, markReadRule(t, "r"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, d.marks)
}

func TestProcessRule_TranslateFailure(t *testing.T) {
	store, d := newMemStore(5), &fakeDispatcher{}
	p, err := New(store, d)
	require.NoError(t, err)

	// Bypass the loader to get an untranslatable rule into a pass.
	bad := markReadRule(t, "bad")
	bad.Rule.Conditions = []types.Condition{{Field: types.FieldUnknown, Predicate: types.PredicateContains}}

	_, err = p.ProcessRule(context.Background(), bad)
	assert.ErrorIs(t, err, types.ErrInvalidField)
	assert.Empty(t, store.offsets)
}

type runLog struct {
	started  []string
	finished map[types.RunID]error
	counts   map[types.RunID]int
}

func (r *runLog) StartRun(_ context.Context, rule string) (types.RunID, error) {
	r.started = append(r.started, rule)
	return types.RunID(fmt.Sprintf("run-%d", len(r.started))), nil
}

func (r *runLog) FinishRun(_ context.Context, id types.RunID, processed int, err error) error {
	if r.finished == nil {
		r.finished, r.counts = map[types.RunID]error{}, map[types.RunID]int{}
	}
	r.finished[id] = err
	r.counts[id] = processed
	return nil
}

func TestProcessRuleset_StopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	store, d := newMemStore(3), &fakeDispatcher{failOn: 2, err: boom}
	runs := &runLog{}
	p, err := New(store, d, WithRunRecorder(runs))
	require.NoError(t, err)

	summary, err := p.ProcessRuleset(context.Background(), []*rules.CompiledRule{
		markReadRule(t, "first"),
		markReadRule(t, "second"),
		markReadRule(t, "third"),
	})
	assert.ErrorIs(t, err, boom)
	require.Len(t, summary.Rules, 2)
	assert.Equal(t, 3, summary.Rules[0].Processed)
	assert.NoError(t, summary.Rules[0].Err)
	assert.Equal(t, "second", summary.Rules[1].Rule)
	assert.Error(t, summary.Rules[1].Err)
	assert.Equal(t, 3, summary.Total)

	assert.Equal(t, []string{"first", "second"}, runs.started)
	assert.NoError(t, runs.finished["run-1"])
	assert.Equal(t, 3, runs.counts["run-1"])
	assert.ErrorIs(t, runs.finished["run-2"], boom)
}

// Property-based test: a pass over N matching records with page size P makes
// ceil(N/P) dispatcher calls covering every key exactly once, then stops on
// one empty page.
func TestProcessRule_PropertyPaginationCompleteness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("every record visited once in ceil(N/P) pages", prop.ForAll(
		func(n, pageSize int) bool {
			store, d := newMemStore(n), &fakeDispatcher{}
			p, err := New(store, d, WithPageSize(pageSize), WithClock(func() time.Time { return time.Unix(0, 0) }))
			if err != nil {
				return false
			}
			processed, err := p.ProcessRule(context.Background(), markReadRule(t, "prop"))
			if err != nil || processed != n {
				return false
			}

			pages := (n + pageSize - 1) / pageSize
			if len(d.marks) != pages || len(store.offsets) != pages+1 {
				return false
			}
			seen := make(map[types.MessageKey]int, n)
			for i, m := range d.marks {
				if len(m.keys) > types.MaxActionBatch || len(m.keys) > pageSize {
					return false
				}
				if store.offsets[i] != i*pageSize {
					return false
				}
				for _, k := range m.keys {
					seen[k]++
				}
			}
			for _, c := range seen {
				if c != 1 {
					return false
				}
			}
			return len(seen) == n
		},
		gen.IntRange(0, 2500),
		gen.IntRange(1, types.MaxActionBatch),
	))

	properties.TestingRun(t)
}
