package vdom

import (
	"sort"
	"strings"

	"github.com/vango-dev/enhance/pkg/dom"
)

// VKind is the node type discriminator.
type VKind uint8

const (
	KindText    VKind = iota // Plain text node
	KindElement              // <div>, <button>, etc.
	KindRaw                  // Raw HTML, not escaped
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindText:
		return "Text"
	case KindElement:
		return "Element"
	case KindRaw:
		return "Raw"
	default:
		return "Unknown"
	}
}

// VNode is the virtual DOM node. It must not be mutated after creation.
type VNode struct {
	Kind     VKind    // Node type
	Tag      string   // Element tag name (e.g., "div")
	Props    Props    // Attributes and event handlers
	Children []*VNode // Child nodes
	Text     string   // For KindText
	HTML     string   // For KindRaw
}

// Props holds attributes and event handlers. It never contains "children".
type Props map[string]any

// Handler is an event handler bound through an on* prop.
type Handler = func(dom.Event)

// Attrs returns the element's attributes as strings, excluding handlers
// and props that resolve to an absent attribute.
func (v *VNode) Attrs() map[string]string {
	if v == nil || v.Kind != KindElement {
		return nil
	}
	out := make(map[string]string, len(v.Props))
	for key, val := range v.Props {
		if IsEventProp(key) || key == "children" {
			continue
		}
		name := AttrName(key)
		if s, ok := AttrValue(name, val); ok {
			out[name] = s
		}
	}
	return out
}

// Handlers returns the element's event handlers keyed by DOM event type.
func (v *VNode) Handlers() map[string]Handler {
	if v == nil || v.Kind != KindElement {
		return nil
	}
	var out map[string]Handler
	for key, val := range v.Props {
		if !IsEventProp(key) {
			continue
		}
		h := toHandler(val)
		if h == nil {
			continue
		}
		if out == nil {
			out = make(map[string]Handler)
		}
		out[EventName(key)] = h
	}
	return out
}

// String renders a short debug form of the node.
func (v *VNode) String() string {
	if v == nil {
		return "<nil>"
	}
	switch v.Kind {
	case KindText:
		return "Text(" + v.Text + ")"
	case KindRaw:
		return "Raw(" + v.HTML + ")"
	}
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(v.Tag)
	attrs := v.Attrs()
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(attrs[k])
	}
	b.WriteString(">")
	for _, c := range v.Children {
		b.WriteString(c.String())
	}
	b.WriteString("</")
	b.WriteString(v.Tag)
	b.WriteString(">")
	return b.String()
}

// IsEventProp reports whether a prop key names an event handler.
// Case-insensitive so onclick, onClick and ONCLICK are all handlers.
func IsEventProp(key string) bool {
	return len(key) > 2 && strings.EqualFold(key[:2], "on")
}

// EventName converts an on* prop key to its DOM event type ("onClick" -> "click").
func EventName(key string) string {
	return strings.ToLower(key[2:])
}

// AttrName maps a prop key to its attribute name.
func AttrName(key string) string {
	switch key {
	case "className":
		return "class"
	case "htmlFor":
		return "for"
	}
	return key
}

func toHandler(v any) Handler {
	switch fn := v.(type) {
	case func(dom.Event):
		return fn
	case dom.Listener:
		return Handler(fn)
	case func():
		return func(dom.Event) { fn() }
	}
	return nil
}
