package binding

import (
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/vango-dev/enhance/pkg/dom"
	"github.com/vango-dev/enhance/pkg/format"
	"github.com/vango-dev/enhance/pkg/render"
	"github.com/vango-dev/enhance/pkg/state"
	"github.com/vango-dev/enhance/pkg/vdom"
)

// Attribute names of the binding protocol.
const (
	AttrBinding = "state-binding"
	AttrFormat  = "format"
)

// Config configures a Binder.
type Config struct {
	Document *dom.Document
	Store    *state.Store
	Renderer *render.Renderer

	// Formats resolves format attributes. Defaults to format.NewRegistry().
	Formats *format.Registry

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Binder binds elements to store keys. It is confined to the page loop.
type Binder struct {
	doc      *dom.Document
	store    *state.Store
	renderer *render.Renderer
	formats  *format.Registry
	logger   *slog.Logger

	// attached holds the listener removers of two-way bound controls.
	attached map[*html.Node][]func()
}

// New creates a Binder and installs it as the store's sink.
func New(cfg Config) *Binder {
	if cfg.Formats == nil {
		cfg.Formats = format.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	b := &Binder{
		doc:      cfg.Document,
		store:    cfg.Store,
		renderer: cfg.Renderer,
		formats:  cfg.Formats,
		logger:   cfg.Logger.With("component", "binding"),
		attached: make(map[*html.Node][]func()),
	}
	cfg.Store.SetSink(b)
	return b
}

// Formats returns the formatter registry.
func (b *Binder) Formats() *format.Registry {
	return b.formats
}

// Mount releases bindings of elements that left the document and binds
// every state-binding element under root. It returns the number of newly
// bound elements. Calling it again on unchanged markup binds nothing.
func (b *Binder) Mount(root *html.Node) int {
	b.store.Prune(b.doc.Contains)
	if root == nil {
		root = b.doc.Root()
	}
	bound := 0
	for _, el := range dom.FindAll(root, dom.ByAttr(AttrBinding)) {
		if b.Bind(el) {
			bound++
		}
	}
	return bound
}

// Bind attaches el to the key named by its state-binding attribute and
// reports whether it was newly bound.
func (b *Binder) Bind(el *html.Node) bool {
	key := strings.TrimSpace(dom.AttrOr(el, AttrBinding, ""))
	if key == "" {
		return false
	}
	if existing, ok := b.store.Binding(key); ok && existing.Bound(el) {
		return false
	}
	b.store.BindState(key, el, b.resolve(key, el))
	return true
}

// resolve returns the formatter for el. Resolution failures are logged and
// yield nil so the raw value is shown.
func (b *Binder) resolve(key string, el *html.Node) format.Func {
	spec, ok := dom.Attr(el, AttrFormat)
	if !ok {
		return nil
	}
	fn, err := b.formats.Resolve(spec)
	if err != nil {
		b.logger.Error("formatter resolution failed",
			"key", key,
			"element", describe(el),
			"error", err)
		return nil
	}
	return fn
}

// Scan implements state.Sink.
func (b *Binder) Scan(key string) {
	for _, el := range b.doc.QueryAll(dom.ByAttrValue(AttrBinding, key)) {
		b.store.BindState(key, el, b.resolve(key, el))
	}
}

// Attach implements state.Sink. Controls get their input and change
// listeners exactly once.
func (b *Binder) Attach(key string, el *html.Node) {
	if !dom.IsFormControl(el) {
		return
	}
	if _, ok := b.attached[el]; ok {
		return
	}
	handler := func(dom.Event) { b.onInput(key, el) }
	b.attached[el] = []func(){
		b.doc.AddEventListener(el, "input", handler),
		b.doc.AddEventListener(el, "change", handler),
	}
}

// Detach implements state.Sink.
func (b *Binder) Detach(_ string, el *html.Node) {
	for _, remove := range b.attached[el] {
		remove()
	}
	delete(b.attached, el)
}

// Attached reports whether el has two-way listeners.
func (b *Binder) Attached(el *html.Node) bool {
	_, ok := b.attached[el]
	return ok
}

// Write implements state.Sink.
func (b *Binder) Write(key string, el *html.Node, value any, fn format.Func) {
	out, err := format.Apply(fn, value)
	if err != nil {
		b.logger.Error("formatter failed",
			"key", key,
			"element", describe(el),
			"error", err)
	}
	if dom.IsFormControl(el) {
		b.writeControl(key, el, value)
		return
	}
	b.renderer.RenderChildren(Nodes(out), el)
}

// writeControl reflects the raw value into a form control. Controls show
// the value itself, never the formatted one.
func (b *Binder) writeControl(key string, el *html.Node, value any) {
	switch dom.InputType(el) {
	case "checkbox":
		if b.isGroup(key, el) {
			b.doc.SetChecked(el, contains(value, b.doc.Value(el)))
			return
		}
		b.doc.SetChecked(el, truthy(value))
	case "radio":
		b.doc.SetChecked(el, vdom.Stringify(value) == b.doc.Value(el))
	default:
		s := vdom.Stringify(value)
		if b.doc.Value(el) != s {
			b.doc.SetValue(el, s)
		}
	}
}

// onInput reads the control back into the store.
func (b *Binder) onInput(key string, el *html.Node) {
	switch dom.InputType(el) {
	case "checkbox":
		if b.isGroup(key, el) {
			b.store.Set(key, b.groupValue(key))
			return
		}
		b.store.Set(key, b.doc.Checked(el))
	case "radio":
		if b.doc.Checked(el) {
			b.store.Set(key, b.doc.Value(el))
		}
	case "number", "range":
		raw := b.doc.Value(el)
		if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			b.store.Set(key, n)
			return
		}
		b.store.Set(key, raw)
	default:
		b.store.Set(key, b.doc.Value(el))
	}
}

// checkboxes returns the checkboxes in the document that declare key, in
// document order. Group membership never depends on how many of them have
// been bound so far.
func (b *Binder) checkboxes(key string) []*html.Node {
	var out []*html.Node
	for _, el := range b.doc.QueryAll(dom.ByAttrValue(AttrBinding, key)) {
		if dom.InputType(el) == "checkbox" {
			out = append(out, el)
		}
	}
	return out
}

// isGroup reports whether el is part of a checkbox group: more than one
// checkbox in the document declares the key, or el carries an explicit value.
func (b *Binder) isGroup(key string, el *html.Node) bool {
	return dom.HasAttr(el, "value") || len(b.checkboxes(key)) > 1
}

// groupValue returns the values of the checked members. It is never nil.
func (b *Binder) groupValue(key string) []string {
	values := []string{}
	for _, cb := range b.checkboxes(key) {
		if b.doc.Checked(cb) {
			values = append(values, b.doc.Value(cb))
		}
	}
	return values
}

// Nodes converts a formatted value into the children of a bound element.
func Nodes(v any) []*vdom.VNode {
	switch val := v.(type) {
	case nil:
		return nil
	case format.HTML:
		return []*vdom.VNode{vdom.Raw(string(val))}
	case *vdom.VNode:
		return []*vdom.VNode{val}
	case []*vdom.VNode:
		return val
	case string:
		return []*vdom.VNode{vdom.Text(val)}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]*vdom.VNode, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, Nodes(rv.Index(i).Interface())...)
		}
		return out
	}
	return []*vdom.VNode{vdom.Text(v)}
}

func contains(list any, s string) bool {
	switch l := list.(type) {
	case []string:
		for _, v := range l {
			if v == s {
				return true
			}
		}
		return false
	case string:
		return l == s
	}
	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if vdom.Stringify(rv.Index(i).Interface()) == s {
			return true
		}
	}
	return false
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != "" && val != "false"
	case float64:
		return val != 0
	case int:
		return val != 0
	}
	return true
}

// describe renders a short element description for logs.
func describe(el *html.Node) string {
	if sel, ok := dom.SelectorFor(el); ok {
		return el.Data + sel.String()
	}
	return el.Data
}
