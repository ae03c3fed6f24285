package state

import (
	"golang.org/x/net/html"

	"github.com/vango-dev/enhance/pkg/format"
)

// Binding is the store entry for one key.
type Binding struct {
	key      string
	value    any
	previous any
	hasValue bool

	elements   []*html.Node
	members    map[*html.Node]struct{}
	formatters map[*html.Node]format.Func
}

func newBinding(key string) *Binding {
	return &Binding{
		key:        key,
		members:    make(map[*html.Node]struct{}),
		formatters: make(map[*html.Node]format.Func),
	}
}

// Key returns the binding's key.
func (b *Binding) Key() string { return b.key }

// Value returns the current value.
func (b *Binding) Value() any { return b.value }

// Previous returns the value before the latest Set.
func (b *Binding) Previous() any { return b.previous }

// HasValue reports whether the binding was seeded or set. Elements bound to
// a binding without a value keep their server-rendered content.
func (b *Binding) HasValue() bool { return b.hasValue }

// Elements returns the bound elements in bind order.
func (b *Binding) Elements() []*html.Node {
	out := make([]*html.Node, len(b.elements))
	copy(out, b.elements)
	return out
}

// Formatter returns the formatter resolved for el, if any.
func (b *Binding) Formatter(el *html.Node) format.Func {
	return b.formatters[el]
}

// Bound reports whether el is bound to this key.
func (b *Binding) Bound(el *html.Node) bool {
	_, ok := b.members[el]
	return ok
}

func (b *Binding) add(el *html.Node, fn format.Func) bool {
	if _, ok := b.members[el]; ok {
		return false
	}
	b.members[el] = struct{}{}
	b.elements = append(b.elements, el)
	if fn != nil {
		b.formatters[el] = fn
	}
	return true
}

func (b *Binding) remove(el *html.Node) bool {
	if _, ok := b.members[el]; !ok {
		return false
	}
	delete(b.members, el)
	delete(b.formatters, el)
	for i, e := range b.elements {
		if e == el {
			b.elements = append(b.elements[:i], b.elements[i+1:]...)
			break
		}
	}
	return true
}
