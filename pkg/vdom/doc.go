// Package vdom provides the virtual DOM used by the renderer.
//
// A VNode is an immutable description of one DOM node: a text node, an
// element with props and children, or a raw HTML fragment. Nodes are built
// fresh on every render and compared positionally against the previous tree
// for the same container.
//
// # Creating nodes
//
// CreateElement accepts props and any mix of children:
//
//	CreateElement("ul", Props{"className": "list"},
//	    items,                  // []*VNode, flattened
//	    CreateElement("li", nil, "last"),
//	    showFooter && footer,   // bools are dropped
//	)
//
// Prop conventions: className becomes class, style maps are serialised to
// CSS with camelCase keys converted to kebab-case, boolean props toggle
// attribute presence, and on* props bind event handlers instead of
// attributes.
//
// # Diffing
//
// Diff compares two lists of root nodes by index (no keys) and returns
// path-addressed Patch operations. A node is replaced wholesale when its
// kind, tag, text, or raw HTML changes; otherwise its attributes are patched
// in place and its children are diffed up to the longer child count.
package vdom
