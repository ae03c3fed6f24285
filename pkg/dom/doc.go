// Package dom provides a headless document model on top of golang.org/x/net/html.
//
// The enhance runtime never talks to a browser directly. Everything it needs
// from a DOM (tree mutation, attributes, form control properties, focus,
// selection ranges, scroll position, and event listeners) is provided by
// Document and Window. Nodes are plain *html.Node values, so node identity
// is pointer identity and parsed markup can be inserted without conversion.
//
// Properties that a browser keeps outside the attribute map (a text input's
// current value, a checkbox's checked state, selection ranges) are tracked
// by the Document in side tables keyed by node. Attributes only provide the
// initial values, exactly as in HTML.
//
// A Document is not safe for concurrent use. The runtime confines every
// document to its page loop (see package loop).
package dom
