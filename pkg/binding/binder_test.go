package binding

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/vango-dev/enhance/pkg/dom"
	"github.com/vango-dev/enhance/pkg/format"
	"github.com/vango-dev/enhance/pkg/loop"
	"github.com/vango-dev/enhance/pkg/render"
	"github.com/vango-dev/enhance/pkg/state"
)

type env struct {
	doc    *dom.Document
	loop   *loop.Loop
	store  *state.Store
	binder *Binder
	logs   *bytes.Buffer
}

func setup(t *testing.T, body string) *env {
	t.Helper()
	doc, err := dom.ParseString("<!DOCTYPE html><html><body>" + body + "</body></html>")
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))
	l := loop.New(loop.Config{Logger: logger})
	store := state.New(state.Config{Logger: logger})
	r := render.New(render.Config{Document: doc, Scheduler: l, Logger: logger})
	b := New(Config{Document: doc, Store: store, Renderer: r, Logger: logger})
	return &env{doc: doc, loop: l, store: store, binder: b, logs: logs}
}

func (e *env) byID(t *testing.T, id string) *html.Node {
	t.Helper()
	n := e.doc.GetElementByID(id)
	require.NotNil(t, n, "no element #%s", id)
	return n
}

func (e *env) fire(el *html.Node, typ string) {
	e.doc.Dispatch(el, dom.Event{Type: typ})
	e.loop.RunMicrotasks()
}

func TestServerContentKeptUntilFirstSet(t *testing.T) {
	e := setup(t, `<p id="p" state-binding="greeting">Hello from server</p>`)
	p := e.byID(t, "p")

	e.binder.Mount(nil)
	e.loop.RunMicrotasks()
	assert.Equal(t, "Hello from server", dom.TextContent(p))

	e.store.Set("greeting", "Hi")
	assert.Equal(t, "Hello from server", dom.TextContent(p), "write must wait for the microtask")
	e.loop.RunMicrotasks()
	assert.Equal(t, "Hi", dom.TextContent(p))
}

func TestUseStateWritesInitial(t *testing.T) {
	e := setup(t, `<span id="c" state-binding="counter">?</span>`)
	e.store.UseState("counter", 0)
	e.loop.RunMicrotasks()
	assert.Equal(t, "0", dom.TextContent(e.byID(t, "c")))
}

func TestIdempotentRebind(t *testing.T) {
	e := setup(t, `<input id="q" state-binding="q" value="x">`)
	q := e.byID(t, "q")

	assert.Equal(t, 1, e.binder.Mount(nil))
	assert.Equal(t, 0, e.binder.Mount(nil))
	e.store.BindState("q", q, nil)

	assert.Equal(t, 1, e.doc.ListenerCount(q, "input"))
	assert.Equal(t, 1, e.doc.ListenerCount(q, "change"))

	e.doc.SetValue(q, "typed")
	e.fire(q, "input")
	assert.Equal(t, "typed", e.store.Get("q"))
}

func TestCheckboxGroup(t *testing.T) {
	e := setup(t, `
<input type="checkbox" id="a" state-binding="tags" value="a">
<input type="checkbox" id="b" state-binding="tags" value="b">
<input type="checkbox" id="c" state-binding="tags" value="c">`)
	e.binder.Mount(nil)
	a, b, c := e.byID(t, "a"), e.byID(t, "b"), e.byID(t, "c")

	e.doc.SetChecked(a, true)
	e.fire(a, "change")
	e.doc.SetChecked(c, true)
	e.fire(c, "change")
	assert.Equal(t, []string{"a", "c"}, e.store.Get("tags"))
	assert.False(t, e.doc.Checked(b))

	e.doc.SetChecked(a, false)
	e.fire(a, "change")
	e.doc.SetChecked(c, false)
	e.fire(c, "change")
	assert.Equal(t, []string{}, e.store.Get("tags"))

	e.store.Set("tags", []any{"b"})
	assert.True(t, e.doc.Checked(b))
	assert.False(t, e.doc.Checked(a))
}

func TestSeededCheckboxGroupIgnoresBindOrder(t *testing.T) {
	e := setup(t, `
<input type="checkbox" id="a" state-binding="opts">
<input type="checkbox" id="b" state-binding="opts" value="b">`)
	a, b := e.byID(t, "a"), e.byID(t, "b")

	e.store.UseState("opts", []string{"b"})

	assert.False(t, e.doc.Checked(a), "first checkbox must be written as a group member")
	assert.True(t, e.doc.Checked(b))

	e.doc.SetChecked(a, true)
	e.fire(a, "change")
	assert.Equal(t, []string{"on", "b"}, e.store.Get("opts"))
}

func TestSingleCheckbox(t *testing.T) {
	e := setup(t, `<input type="checkbox" id="agree" state-binding="agree">`)
	e.binder.Mount(nil)
	agree := e.byID(t, "agree")

	e.doc.SetChecked(agree, true)
	e.fire(agree, "change")
	assert.Equal(t, true, e.store.Get("agree"))

	e.store.Set("agree", false)
	assert.False(t, e.doc.Checked(agree))
}

func TestRadioGroup(t *testing.T) {
	e := setup(t, `
<input type="radio" name="size" id="s" value="s" state-binding="size" checked>
<input type="radio" name="size" id="m" value="m" state-binding="size">`)
	e.binder.Mount(nil)
	s, m := e.byID(t, "s"), e.byID(t, "m")

	e.doc.SetChecked(m, true)
	e.fire(m, "change")
	assert.Equal(t, "m", e.store.Get("size"))
	assert.False(t, e.doc.Checked(s))

	e.store.Set("size", "s")
	assert.True(t, e.doc.Checked(s))
	assert.False(t, e.doc.Checked(m))
}

func TestNumberInput(t *testing.T) {
	e := setup(t, `<input type="number" id="n" state-binding="n">`)
	e.binder.Mount(nil)
	n := e.byID(t, "n")

	e.doc.SetValue(n, "4.5")
	e.fire(n, "input")
	assert.Equal(t, 4.5, e.store.Get("n"))

	e.store.Set("n", 7)
	assert.Equal(t, "7", e.doc.Value(n))
}

func TestFormatterFallback(t *testing.T) {
	e := setup(t, `<span id="v" state-binding="n" format="doesNotExist"></span>`)
	e.binder.Mount(nil)

	e.store.Set("n", 5)
	e.loop.RunMicrotasks()

	assert.Equal(t, "5", dom.TextContent(e.byID(t, "v")))
	assert.Contains(t, e.logs.String(), "E002")
}

func TestFormatterKinds(t *testing.T) {
	e := setup(t, `
<span id="named" state-binding="v" format="stars"></span>
<span id="expr" state-binding="v" format="js:value > 2 ? 'many' : 'few'"></span>
<span id="raw" state-binding="html" format="html"></span>
<ul id="list" state-binding="items"></ul>`)
	e.binder.Formats().Register("stars", func(v any) (any, error) {
		return "*" + format.Number(v) + "*", nil
	})
	e.binder.Mount(nil)

	e.store.Set("v", 3)
	e.store.Set("html", "<b>bold</b>")
	e.store.Set("items", []string{"x", "y"})
	e.loop.RunMicrotasks()

	assert.Equal(t, "*3*", dom.TextContent(e.byID(t, "named")))
	assert.Equal(t, "many", dom.TextContent(e.byID(t, "expr")))
	assert.Equal(t, "<b>bold</b>", dom.InnerHTML(e.byID(t, "raw")))
	assert.Equal(t, "xy", dom.InnerHTML(e.byID(t, "list")))
}

func TestFailingFormatterDoesNotBlockOthers(t *testing.T) {
	e := setup(t, `<span id="bad" state-binding="k" format="boom"></span><span id="good" state-binding="k"></span>`)
	e.binder.Formats().Register("boom", func(any) (any, error) { panic("bad formatter") })
	e.binder.Mount(nil)

	e.store.Set("k", "ok")
	e.loop.RunMicrotasks()

	assert.Equal(t, "ok", dom.TextContent(e.byID(t, "bad")))
	assert.Equal(t, "ok", dom.TextContent(e.byID(t, "good")))
	assert.Contains(t, e.logs.String(), "E003")
}

func TestMountBindsInjectedAndPrunesRemoved(t *testing.T) {
	e := setup(t, `<main id="main"><input id="old" state-binding="k"></main>`)
	e.binder.Mount(nil)
	main, old := e.byID(t, "main"), e.byID(t, "old")
	require.True(t, e.binder.Attached(old))

	require.NoError(t, dom.SetInnerHTML(main, `<span id="fresh" state-binding="k"></span>`))
	assert.Equal(t, 1, e.binder.Mount(main))

	binding, ok := e.store.Binding("k")
	require.True(t, ok)
	assert.False(t, binding.Bound(old))
	assert.False(t, e.binder.Attached(old))
	assert.True(t, binding.Bound(e.byID(t, "fresh")))
}

func TestNodes(t *testing.T) {
	assert.Nil(t, Nodes(nil))
	assert.Len(t, Nodes([]any{"a", 1, []string{"b", "c"}}), 4)
	assert.Equal(t, "Raw(<i>x</i>)", Nodes(format.HTML("<i>x</i>"))[0].String())
	assert.Equal(t, "Text(2.5)", Nodes(2.5)[0].String())
}
