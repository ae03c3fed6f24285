package state

import (
	"log/slog"
	"sort"

	"golang.org/x/net/html"

	"github.com/vango-dev/enhance/pkg/format"
)

// Sink receives the DOM side effects of the store. The binding layer
// implements it.
type Sink interface {
	// Scan binds every element in the document that declares key.
	Scan(key string)

	// Attach wires two-way sync for el. Called once per (key, el).
	Attach(key string, el *html.Node)

	// Detach undoes Attach.
	Detach(key string, el *html.Node)

	// Write pushes value into el, applying fn when it is not nil.
	Write(key string, el *html.Node, value any, fn format.Func)
}

// Syncer publishes local updates to an external peer.
type Syncer interface {
	Publish(key string, value any)
}

// Change is emitted on a key's event bus for every Set.
type Change struct {
	Key      string
	Value    any
	Previous any
}

// SetOption modifies a single Set.
type SetOption func(*setOptions)

type setOptions struct {
	sync bool
}

// NoSync skips publishing the update to the Syncer. Updates that arrived
// from the Syncer's peer use it to avoid echo loops.
func NoSync() SetOption {
	return func(o *setOptions) { o.sync = false }
}

// Config configures a Store.
type Config struct {
	// Sink receives element writes. Optional.
	Sink Sink

	// Syncer publishes updates externally. Optional.
	Syncer Syncer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

type subscriber struct {
	id uint64
	fn func(Change)
}

// Store holds the bindings of one page.
type Store struct {
	sink   Sink
	syncer Syncer
	logger *slog.Logger

	bindings map[string]*Binding
	subs     map[string][]subscriber
	nextID   uint64

	memos map[string]*Memo

	batchDepth int
	dirty      []string
	dirtySet   map[string]struct{}
}

// New creates a store.
func New(cfg Config) *Store {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{
		sink:     cfg.Sink,
		syncer:   cfg.Syncer,
		logger:   cfg.Logger.With("component", "state"),
		bindings: make(map[string]*Binding),
		subs:     make(map[string][]subscriber),
		memos:    make(map[string]*Memo),
		dirtySet: make(map[string]struct{}),
	}
}

// SetSink replaces the sink. Used when the binding layer is constructed
// after the store.
func (s *Store) SetSink(sink Sink) { s.sink = sink }

// SetSyncer replaces the syncer.
func (s *Store) SetSyncer(syncer Syncer) { s.syncer = syncer }

// Binding returns the binding for key.
func (s *Store) Binding(key string) (*Binding, bool) {
	b, ok := s.bindings[key]
	return b, ok
}

// Keys returns every key with a binding, sorted.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.bindings))
	for k := range s.bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the current value of key, or nil.
func (s *Store) Get(key string) any {
	if b, ok := s.bindings[key]; ok {
		return b.value
	}
	return nil
}

// UseState returns the state for key, creating its binding seeded with
// initial on first use. Later calls ignore initial.
func (s *Store) UseState(key string, initial any) *State {
	s.ensure(key, initial, true)
	return &State{store: s, key: key}
}

// ensure creates the binding for key if needed and scans the document for
// elements declaring it.
func (s *Store) ensure(key string, initial any, seeded bool) *Binding {
	if b, ok := s.bindings[key]; ok {
		return b
	}
	b := newBinding(key)
	if seeded && initial != nil {
		b.value = initial
		b.hasValue = true
	}
	s.bindings[key] = b
	if s.sink != nil {
		s.sink.Scan(key)
	}
	return b
}

// Set assigns next to key. next may be a func(any) any updater that
// receives the current value.
func (s *Store) Set(key string, next any, opts ...SetOption) {
	o := setOptions{sync: true}
	for _, opt := range opts {
		opt(&o)
	}

	b := s.ensure(key, nil, false)
	switch fn := next.(type) {
	case func(any) any:
		next = fn(b.value)
	case func() any:
		next = fn()
	}

	prev := b.value
	b.previous = prev
	b.value = next
	b.hasValue = true

	if s.batchDepth > 0 {
		if _, ok := s.dirtySet[key]; !ok {
			s.dirtySet[key] = struct{}{}
			s.dirty = append(s.dirty, key)
		}
	} else {
		s.push(b)
	}

	s.emit(Change{Key: key, Value: next, Previous: prev})

	if o.sync && s.syncer != nil {
		s.syncer.Publish(key, next)
	}
}

// push writes the binding's value to every bound element.
func (s *Store) push(b *Binding) {
	if s.sink == nil {
		return
	}
	for _, el := range b.Elements() {
		s.sink.Write(b.key, el, b.value, b.formatters[el])
	}
}

// BindState attaches el to key. Binding the same pair twice is a no-op that
// returns an equivalent unbind function. The element is written immediately
// only when the binding already has a value.
func (s *Store) BindState(key string, el *html.Node, fn format.Func) (unbind func()) {
	b := s.ensure(key, nil, false)
	if b.add(el, fn) {
		if s.sink != nil {
			s.sink.Attach(key, el)
			if b.hasValue {
				s.sink.Write(key, el, b.value, fn)
			}
		}
	}
	return func() { s.Unbind(key, el) }
}

// Unbind detaches el from key.
func (s *Store) Unbind(key string, el *html.Node) {
	b, ok := s.bindings[key]
	if !ok {
		return
	}
	if b.remove(el) && s.sink != nil {
		s.sink.Detach(key, el)
	}
}

// Prune unbinds every element for which keep returns false and reports how
// many were removed.
func (s *Store) Prune(keep func(*html.Node) bool) int {
	removed := 0
	for _, key := range s.Keys() {
		for _, el := range s.bindings[key].Elements() {
			if !keep(el) {
				s.Unbind(key, el)
				removed++
			}
		}
	}
	return removed
}

// Subscribe registers fn for changes of key.
func (s *Store) Subscribe(key string, fn func(Change)) (unsubscribe func()) {
	s.nextID++
	id := s.nextID
	s.subs[key] = append(s.subs[key], subscriber{id: id, fn: fn})
	return func() {
		subs := s.subs[key]
		for i, sub := range subs {
			if sub.id == id {
				s.subs[key] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// SubscriberCount returns the number of subscribers for key.
func (s *Store) SubscriberCount(key string) int {
	return len(s.subs[key])
}

// emit notifies subscribers. The list is copied first so subscribers may
// subscribe or unsubscribe while being notified.
func (s *Store) emit(c Change) {
	subs := make([]subscriber, len(s.subs[c.Key]))
	copy(subs, s.subs[c.Key])
	for _, sub := range subs {
		sub.fn(c)
	}
}

// Batch defers element writes for every Set inside fn until the outermost
// batch ends. Each bound element is then written once with the final value.
// Change events are still emitted per Set.
func (s *Store) Batch(fn func()) {
	s.batchDepth++
	defer func() {
		s.batchDepth--
		if s.batchDepth > 0 {
			return
		}
		keys := s.dirty
		s.dirty = nil
		s.dirtySet = make(map[string]struct{})
		for _, key := range keys {
			s.push(s.bindings[key])
		}
	}()
	fn()
}
