package state

import (
	"strings"

	"github.com/vango-dev/enhance/internal/errors"
)

// State is the accessor pair returned by UseState.
type State struct {
	store *Store
	key   string
}

// Key returns the state's key.
func (st *State) Key() string { return st.key }

// Get returns the current value.
func (st *State) Get() any { return st.store.Get(st.key) }

// Set assigns v, which may be a func(any) any updater.
func (st *State) Set(v any, opts ...SetOption) { st.store.Set(st.key, v, opts...) }

// Update sets the value computed by fn from the current value.
func (st *State) Update(fn func(any) any, opts ...SetOption) {
	st.store.Set(st.key, fn, opts...)
}

// Cleanup is returned by an effect to undo its work.
type Cleanup func()

// UseEffect runs fn now and again whenever any dependency key changes.
// The cleanup returned by the previous run is called first. dispose stops
// the effect and runs the last cleanup.
func (s *Store) UseEffect(fn func() Cleanup, deps ...string) (dispose func()) {
	var cleanup Cleanup
	run := func() {
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
		cleanup = fn()
	}
	run()

	unsubs := make([]func(), 0, len(deps))
	for _, key := range deps {
		unsubs = append(unsubs, s.Subscribe(key, func(Change) { run() }))
	}

	disposed := false
	return func() {
		if disposed {
			return
		}
		disposed = true
		for _, u := range unsubs {
			u()
		}
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
	}
}

// Memo caches a computed value.
type Memo struct {
	key     string
	value   any
	factory func() any
	runs    int
}

// Get returns the cached value.
func (m *Memo) Get() any { return m.value }

// Runs returns how many times the factory has run.
func (m *Memo) Runs() int { return m.runs }

func (m *Memo) compute() {
	m.value = m.factory()
	m.runs++
}

// UseMemo computes factory once and caches it under the joined dependency
// list, recomputing when any dependency changes.
//
// Two unrelated memos with identical dependency lists share one cache
// entry: the second call returns the first memo and its factory is never
// run. Use UseMemoKey when that matters.
func (s *Store) UseMemo(factory func() any, deps ...string) *Memo {
	return s.memo(strings.Join(deps, ","), factory, deps)
}

// UseMemoKey is UseMemo with the cache keyed by id as well as the
// dependency list.
func (s *Store) UseMemoKey(id string, factory func() any, deps ...string) *Memo {
	return s.memo(id+"|"+strings.Join(deps, ","), factory, deps)
}

func (s *Store) memo(key string, factory func() any, deps []string) *Memo {
	if m, ok := s.memos[key]; ok {
		s.logger.Debug("memo cache hit", "key", key)
		return m
	}
	m := &Memo{key: key, factory: factory}
	m.compute()
	s.memos[key] = m
	for _, dep := range deps {
		s.Subscribe(dep, func(Change) { m.compute() })
	}
	return m
}

// Action is dispatched to a reducer.
type Action struct {
	Type    string
	Payload any
}

// ReducerFunc computes the next state for action. It returns
// UnknownAction(action) for action types it does not handle.
type ReducerFunc func(state any, action Action) (any, error)

// UnknownAction reports an action type a reducer does not handle.
func UnknownAction(a Action) error {
	return errors.New("E001").WithDetailf("action %q", a.Type)
}

// Reducer is the state returned by UseReducer.
type Reducer struct {
	state   *State
	reducer ReducerFunc
}

// UseReducer is UseState whose updates go through reducer.
func (s *Store) UseReducer(key string, reducer ReducerFunc, initial any) *Reducer {
	return &Reducer{state: s.UseState(key, initial), reducer: reducer}
}

// Get returns the current state.
func (r *Reducer) Get() any { return r.state.Get() }

// Dispatch applies action. Reducer errors are returned unchanged and leave
// the state untouched.
func (r *Reducer) Dispatch(action Action, opts ...SetOption) error {
	next, err := r.reducer(r.state.Get(), action)
	if err != nil {
		return err
	}
	r.state.Set(next, opts...)
	return nil
}
