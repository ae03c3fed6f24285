package render

import (
	"sort"

	"golang.org/x/net/html"

	"github.com/vango-dev/enhance/internal/errors"
	"github.com/vango-dev/enhance/pkg/dom"
	"github.com/vango-dev/enhance/pkg/vdom"
)

// mount clears container and realizes roots into it.
func (r *Renderer) mount(container *html.Node, roots []*vdom.VNode) error {
	r.unbindTree(container, false)
	if isRawRoot(roots) {
		if err := dom.SetInnerHTML(container, roots[0].HTML); err != nil {
			return errors.New("E022").Wrap(err)
		}
		return nil
	}
	dom.RemoveChildren(container)
	for _, v := range roots {
		container.AppendChild(r.realize(v))
	}
	return nil
}

// realize builds the DOM node for v and binds its handlers.
func (r *Renderer) realize(v *vdom.VNode) *html.Node {
	n := build(v)
	r.bindTree(v, n)
	return n
}

// build creates DOM nodes for v without binding handlers. Nested raw nodes
// are wrapped in a span so every VNode maps to exactly one DOM node.
func build(v *vdom.VNode) *html.Node {
	switch v.Kind {
	case vdom.KindText:
		return dom.CreateTextNode(v.Text)
	case vdom.KindRaw:
		span := dom.CreateElement("span")
		_ = dom.SetInnerHTML(span, v.HTML)
		return span
	}
	el := dom.CreateElement(v.Tag)
	attrs := v.Attrs()
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		dom.SetAttr(el, k, attrs[k])
	}
	for _, c := range v.Children {
		el.AppendChild(build(c))
	}
	return el
}

func (r *Renderer) bindTree(v *vdom.VNode, n *html.Node) {
	if v.Kind != vdom.KindElement {
		return
	}
	for typ, h := range v.Handlers() {
		r.bind(n, typ, h)
	}
	i := 0
	for c := n.FirstChild; c != nil && i < len(v.Children); c = c.NextSibling {
		r.bindTree(v.Children[i], c)
		i++
	}
}

// bind attaches h for typ on n, removing any previous handler first.
func (r *Renderer) bind(n *html.Node, typ string, h vdom.Handler) {
	byType := r.listeners[n]
	if byType == nil {
		byType = make(map[string]func())
		r.listeners[n] = byType
	}
	if remove, ok := byType[typ]; ok {
		remove()
	}
	byType[typ] = r.doc.AddEventListener(n, typ, dom.Listener(h))
}

func (r *Renderer) unbind(n *html.Node, typ string) {
	if remove, ok := r.listeners[n][typ]; ok {
		remove()
		delete(r.listeners[n], typ)
	}
}

// unbindTree removes every handler the renderer bound under n.
func (r *Renderer) unbindTree(n *html.Node, self bool) {
	dom.Walk(n, func(c *html.Node) bool {
		if c == n && !self {
			return true
		}
		if byType, ok := r.listeners[c]; ok {
			for _, remove := range byType {
				remove()
			}
			delete(r.listeners, c)
		}
		return true
	})
}

// apply executes patches in order against container.
func (r *Renderer) apply(container *html.Node, patches []vdom.Patch) error {
	for _, p := range patches {
		if err := r.applyOne(container, p); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) applyOne(container *html.Node, p vdom.Patch) error {
	if p.Op == vdom.PatchInsert {
		parent := resolve(container, p.Path[:len(p.Path)-1])
		if parent == nil {
			return missing(p)
		}
		idx := p.Path[len(p.Path)-1]
		n := r.realize(p.Node)
		parent.InsertBefore(n, dom.ChildAt(parent, idx))
		return nil
	}

	target := resolve(container, p.Path)
	if target == nil {
		return missing(p)
	}
	switch p.Op {
	case vdom.PatchRemove:
		r.unbindTree(target, true)
		dom.Remove(target)
	case vdom.PatchReplace:
		r.unbindTree(target, true)
		dom.Replace(target, r.realize(p.Node))
	case vdom.PatchSetText:
		if target.Type != html.TextNode {
			return missing(p)
		}
		target.Data = p.Value
	case vdom.PatchSetAttr:
		dom.SetAttr(target, p.Key, p.Value)
	case vdom.PatchRemoveAttr:
		dom.RemoveAttr(target, p.Key)
	case vdom.PatchSetEvent:
		r.bind(target, p.Key, p.Handler)
	case vdom.PatchRemoveEvent:
		r.unbind(target, p.Key)
	}
	return nil
}

func resolve(container *html.Node, path vdom.Path) *html.Node {
	n := container
	for _, idx := range path {
		n = dom.ChildAt(n, idx)
		if n == nil {
			return nil
		}
	}
	return n
}

func missing(p vdom.Patch) error {
	return errors.New("E021").WithDetailf("%s", p)
}
