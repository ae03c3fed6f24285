package dom

import "golang.org/x/net/html"

// Event is dispatched to listeners registered on a node or on the window.
type Event struct {
	// Type is the event name, e.g. "input" or "hmr:updated".
	Type string

	// Target is the node the event was dispatched on; nil for window events.
	Target *html.Node

	// Detail carries the payload of custom events.
	Detail any
}

// Listener handles a dispatched event.
type Listener func(Event)

type listenerEntry struct {
	id  uint64
	typ string
	fn  Listener
}

// listenerSet holds the listeners of one event target.
type listenerSet struct {
	entries []listenerEntry
}

func (s *listenerSet) add(id uint64, typ string, fn Listener) {
	s.entries = append(s.entries, listenerEntry{id: id, typ: typ, fn: fn})
}

func (s *listenerSet) remove(id uint64) bool {
	for i, e := range s.entries {
		if e.id == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (s *listenerSet) count(typ string) int {
	n := 0
	for _, e := range s.entries {
		if typ == "" || e.typ == typ {
			n++
		}
	}
	return n
}

// dispatch calls every listener for ev.Type. Listeners are copied first so
// handlers may add or remove listeners while running.
func (s *listenerSet) dispatch(ev Event) int {
	var fns []Listener
	for _, e := range s.entries {
		if e.typ == ev.Type {
			fns = append(fns, e.fn)
		}
	}
	for _, fn := range fns {
		fn(ev)
	}
	return len(fns)
}

// AddEventListener registers fn for typ events on n and returns a function
// that removes it. Removing twice is a no-op.
func (d *Document) AddEventListener(n *html.Node, typ string, fn Listener) (remove func()) {
	set := d.handlers[n]
	if set == nil {
		set = &listenerSet{}
		d.handlers[n] = set
	}
	d.nextID++
	id := d.nextID
	set.add(id, typ, fn)
	return func() {
		if s := d.handlers[n]; s != nil {
			s.remove(id)
		}
	}
}

// ListenerCount returns the number of listeners registered on n for typ.
// An empty typ counts every listener.
func (d *Document) ListenerCount(n *html.Node, typ string) int {
	if s := d.handlers[n]; s != nil {
		return s.count(typ)
	}
	return 0
}

// Dispatch delivers ev to the listeners of n and returns how many ran.
func (d *Document) Dispatch(n *html.Node, ev Event) int {
	ev.Target = n
	if s := d.handlers[n]; s != nil {
		return s.dispatch(ev)
	}
	return 0
}

// DispatchCustom dispatches a custom event carrying detail on n.
func (d *Document) DispatchCustom(n *html.Node, typ string, detail any) int {
	return d.Dispatch(n, Event{Type: typ, Detail: detail})
}

// Window is the global event target and scroll viewport of a document.
type Window struct {
	doc       *Document
	listeners listenerSet
	scroll    Point
}

// Document returns the window's document.
func (w *Window) Document() *Document {
	return w.doc
}

// AddEventListener registers fn for typ events on the window.
func (w *Window) AddEventListener(typ string, fn Listener) (remove func()) {
	w.doc.nextID++
	id := w.doc.nextID
	w.listeners.add(id, typ, fn)
	return func() { w.listeners.remove(id) }
}

// ListenerCount returns the number of window listeners for typ.
func (w *Window) ListenerCount(typ string) int {
	return w.listeners.count(typ)
}

// Dispatch delivers ev to the window listeners.
func (w *Window) Dispatch(ev Event) int {
	ev.Target = nil
	return w.listeners.dispatch(ev)
}

// DispatchCustom dispatches a custom event on the window.
func (w *Window) DispatchCustom(typ string, detail any) int {
	return w.Dispatch(Event{Type: typ, Detail: detail})
}

// ScrollTo sets the scroll offset.
func (w *Window) ScrollTo(x, y float64) {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	w.scroll = Point{X: x, Y: y}
}

// Scroll returns the current scroll offset.
func (w *Window) Scroll() Point {
	return w.scroll
}
