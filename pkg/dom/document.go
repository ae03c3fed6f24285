package dom

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Point is a scroll offset.
type Point struct {
	X float64
	Y float64
}

// Document is a parsed HTML document with browser-like state.
type Document struct {
	root     *html.Node
	window   *Window
	handlers map[*html.Node]*listenerSet
	controls map[*html.Node]*control
	active   *html.Node
	nextID   uint64
}

// Parse parses an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return newDocument(root), nil
}

// ParseString parses an HTML document from a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// New returns an empty document with html, head and body elements.
func New() *Document {
	doc, _ := ParseString("<!DOCTYPE html><html><head></head><body></body></html>")
	return doc
}

func newDocument(root *html.Node) *Document {
	d := &Document{
		root:     root,
		handlers: make(map[*html.Node]*listenerSet),
		controls: make(map[*html.Node]*control),
	}
	d.window = &Window{doc: d}
	return d
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Window returns the document's window.
func (d *Document) Window() *Window {
	return d.window
}

// DocumentElement returns the <html> element.
func (d *Document) DocumentElement() *html.Node {
	return First(d.root, ByTag("html"))
}

// Head returns the <head> element.
func (d *Document) Head() *html.Node {
	return First(d.root, ByTag("head"))
}

// Body returns the <body> element.
func (d *Document) Body() *html.Node {
	return First(d.root, ByTag("body"))
}

// Contains reports whether n is connected to this document.
func (d *Document) Contains(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

// GetElementByID returns the first element with the given id.
func (d *Document) GetElementByID(id string) *html.Node {
	if id == "" {
		return nil
	}
	return First(d.root, ByAttrValue("id", id))
}

// QueryAll returns every element under the document matching m.
func (d *Document) QueryAll(m Matcher) []*html.Node {
	return FindAll(d.root, m)
}

// HTML renders the full document.
func (d *Document) HTML() string {
	var buf bytes.Buffer
	_ = html.Render(&buf, d.root)
	return buf.String()
}

// CreateElement returns a detached element node.
func CreateElement(tag string) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
}

// CreateTextNode returns a detached text node.
func CreateTextNode(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// Collect drops listener and control state held for nodes that are no
// longer connected to the document. It returns the number of nodes released.
func (d *Document) Collect() int {
	released := make(map[*html.Node]struct{})
	for n := range d.handlers {
		if !d.Contains(n) {
			delete(d.handlers, n)
			released[n] = struct{}{}
		}
	}
	for n := range d.controls {
		if !d.Contains(n) {
			delete(d.controls, n)
			released[n] = struct{}{}
		}
	}
	if d.active != nil && !d.Contains(d.active) {
		d.active = nil
	}
	return len(released)
}
